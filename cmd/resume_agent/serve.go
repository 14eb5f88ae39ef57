package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonathan/resume-review/internal/archive"
	"github.com/jonathan/resume-review/internal/config"
	"github.com/jonathan/resume-review/internal/db"
	"github.com/jonathan/resume-review/internal/fetch"
	"github.com/jonathan/resume-review/internal/lock"
	"github.com/jonathan/resume-review/internal/logging"
	"github.com/jonathan/resume-review/internal/review"
	"github.com/jonathan/resume-review/internal/server"
	"github.com/jonathan/resume-review/internal/server/ratelimit"
	"github.com/jonathan/resume-review/internal/tailoring"
	"github.com/spf13/cobra"
)

var (
	servePort    int
	serveMigrate bool
	serveAPIKey  string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes profiles, tailoring reviews and match reports.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Port to listen on")
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", false, "Apply database migrations before serving")
	serveCmd.Flags().StringVar(&serveAPIKey, "api-key", "", "Model API key (overrides the environment)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") || cfg.Port == 0 {
		cfg.Port = servePort
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable is required")
	}
	jwtCfg, err := config.NewJWTConfig(os.Getenv)
	if err != nil {
		return fmt.Errorf("failed to create JWT config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	logger := newLogger(cfg)

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()
	if serveMigrate {
		if err := database.Migrate(ctx); err != nil {
			return err
		}
	}

	client, err := newModelClient(ctx, cfg, serveAPIKey, "")
	if err != nil {
		return err
	}
	defer client.Close()

	locker, closeLocker, err := newLocker(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	defer closeLocker()

	archiver, err := newArchiver(ctx, cfg.Archive)
	if err != nil {
		return err
	}

	ttl, _ := cfg.ReviewLockTTL()
	if ttl == 0 {
		ttl = review.DefaultLockTTL
	}
	service := tailoring.NewService(tailoring.Deps{
		Store:     database,
		Registry:  review.NewRegistry(locker, ttl, logging.WithComponent(logger, "registry")),
		Generator: tailoring.NewGenerator(client, logging.WithComponent(logger, "generator")),
		Archive:   archiver,
		Jobs:      fetch.NewJobFetcher(cfg.UseBrowser, logging.WithComponent(logger, "fetch")),
		Logger:    logging.WithComponent(logger, "reviews"),
	})

	srv, err := server.New(server.Options{
		Port:      cfg.Port,
		Profiles:  database,
		Reviews:   service,
		Tokens:    server.NewJWTService(jwtCfg).AsTokenValidator(),
		RateLimit: ratelimit.LoadConfig(os.Getenv),
		Logger:    logging.WithComponent(logger, "http"),
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start(ctx)
}

// newLocker uses Redis when configured so reviews are exclusive across replicas
func newLocker(ctx context.Context, redisURL string) (lock.Locker, func(), error) {
	if redisURL == "" {
		return lock.NewMemory(), func() {}, nil
	}
	r, err := lock.NewRedis(ctx, redisURL)
	if err != nil {
		return nil, nil, err
	}
	return r, func() { _ = r.Close() }, nil
}

func newArchiver(ctx context.Context, cfg archive.Config) (tailoring.Archiver, error) {
	if !cfg.Enabled() {
		return archive.Nop{}, nil
	}
	s3, err := archive.NewS3(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return s3, nil
}
