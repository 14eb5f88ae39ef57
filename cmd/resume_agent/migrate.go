package main

import (
	"fmt"
	"os"

	"github.com/jonathan/resume-review/internal/db"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations to DATABASE_URL",
	RunE: func(cmd *cobra.Command, _ []string) error {
		databaseURL := os.Getenv("DATABASE_URL")
		if databaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required")
		}
		database, err := db.Connect(cmd.Context(), databaseURL)
		if err != nil {
			return err
		}
		defer database.Close()

		if err := database.Migrate(cmd.Context()); err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied")
		return err
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
