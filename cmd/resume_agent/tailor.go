package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/resume-review/internal/fetch"
	"github.com/jonathan/resume-review/internal/llm"
	"github.com/jonathan/resume-review/internal/observability"
	"github.com/jonathan/resume-review/internal/review"
	"github.com/jonathan/resume-review/internal/tailoring"
	"github.com/spf13/cobra"
)

// taskFlags are shared by the commands that call the model
type taskFlags struct {
	profile     string
	instruction string
	jobFile     string
	jobURL      string
	apiKey      string
	replay      string
}

func (f *taskFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.profile, "profile", "p", "", "Path to the profile document JSON (required)")
	cmd.Flags().StringVar(&f.instruction, "instruction", "", "What the revision should achieve")
	cmd.Flags().StringVar(&f.jobFile, "job", "", "Path to a job description text file, or - for stdin")
	cmd.Flags().StringVar(&f.jobURL, "job-url", "", "Job posting URL to fetch the description from")
	cmd.Flags().StringVar(&f.apiKey, "api-key", "", "Model API key (overrides the environment)")
	cmd.Flags().StringVar(&f.replay, "replay", "", "Use saved model output from this file instead of calling the provider")
	_ = cmd.MarkFlagRequired("profile")
	cmd.MarkFlagsMutuallyExclusive("job", "job-url")
}

// task builds the generation task, fetching the job posting when a URL is given
func (f *taskFlags) task(ctx context.Context, jobs tailoring.JobSource) (tailoring.Task, error) {
	task := tailoring.Task{Instruction: strings.TrimSpace(f.instruction)}
	switch {
	case f.jobFile != "":
		raw, err := readInput(f.jobFile)
		if err != nil {
			return task, err
		}
		task.JobText = string(raw)
	case f.jobURL != "":
		text, err := jobs.JobText(ctx, f.jobURL)
		if err != nil {
			return task, fmt.Errorf("failed to fetch job posting: %w", err)
		}
		task.JobURL = f.jobURL
		task.JobText = text
	}
	if task.Instruction == "" && strings.TrimSpace(task.JobText) == "" {
		return task, fmt.Errorf("provide --instruction, --job or --job-url")
	}
	return task, nil
}

var (
	tailorFlags  taskFlags
	tailorOutput string
)

var tailorCmd = &cobra.Command{
	Use:   "tailor",
	Short: "Ask the model for a tailored revision of a profile",
	Long: `Send a profile and a job description or instruction to the model and write the
validated proposal. A summary of the proposed changes is printed to stderr; review
the proposal with the review command.`,
	RunE: runTailor,
}

func init() {
	tailorFlags.register(tailorCmd)
	tailorCmd.Flags().StringVarP(&tailorOutput, "out", "o", "", "Write the proposed document here instead of stdout")
	rootCmd.AddCommand(tailorCmd)
}

func runTailor(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	logger := quietLogger(cfg)

	task, err := tailorFlags.task(ctx, fetch.NewJobFetcher(cfg.UseBrowser, logger))
	if err != nil {
		return err
	}
	client, err := newModelClient(ctx, cfg, tailorFlags.apiKey, tailorFlags.replay)
	if err != nil {
		return err
	}
	defer client.Close()

	return tailor(ctx, client, tailorFlags.profile, task, tailorOutput, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

func tailor(ctx context.Context, client llm.Client, profilePath string, task tailoring.Task, outPath string, stdout, stderr io.Writer) error {
	original, err := readDocument(profilePath)
	if err != nil {
		return err
	}

	proposed, err := tailoring.NewGenerator(client, nil).Propose(ctx, original, task)
	if err != nil {
		return err
	}

	session := review.NewSession(original.ID)
	if err := session.Start(original, proposed); err != nil {
		return err
	}
	observability.NewPrinter(stderr).PrintChanges(session.Snapshot())

	return writeJSON(stdout, outPath, proposed)
}

var (
	matchFlags taskFlags
	matchJSON  bool
)

var matchReportCmd = &cobra.Command{
	Use:   "match-report",
	Short: "Score how well a profile fits a job",
	RunE:  runMatchReport,
}

func init() {
	matchFlags.register(matchReportCmd)
	matchReportCmd.Flags().BoolVar(&matchJSON, "json", false, "Print the report as JSON")
	rootCmd.AddCommand(matchReportCmd)
}

func runMatchReport(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	task, err := matchFlags.task(ctx, fetch.NewJobFetcher(cfg.UseBrowser, quietLogger(cfg)))
	if err != nil {
		return err
	}
	client, err := newModelClient(ctx, cfg, matchFlags.apiKey, matchFlags.replay)
	if err != nil {
		return err
	}
	defer client.Close()

	return matchReport(ctx, client, matchFlags.profile, task, matchJSON, cmd.OutOrStdout())
}

func matchReport(ctx context.Context, client llm.Client, profilePath string, task tailoring.Task, asJSON bool, stdout io.Writer) error {
	doc, err := readDocument(profilePath)
	if err != nil {
		return err
	}
	report, err := tailoring.NewGenerator(client, nil).MatchReport(ctx, doc, task)
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(stdout, "", report)
	}
	observability.NewPrinter(stdout).PrintMatchReport(report)
	return nil
}
