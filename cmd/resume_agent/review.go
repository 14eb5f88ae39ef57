package main

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/jonathan/resume-review/internal/observability"
	"github.com/jonathan/resume-review/internal/review"
	"github.com/jonathan/resume-review/internal/types"
	"github.com/spf13/cobra"
)

// reviewAction is what the review command does after applying decisions
type reviewAction string

const (
	actionPreview reviewAction = "preview"
	actionKeep    reviewAction = "keep"
	actionUndo    reviewAction = "undo"
)

var (
	reviewOriginal  string
	reviewProposed  string
	reviewDecisions string
	reviewKeep      bool
	reviewUndo      bool
	reviewOutput    string
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Apply accept/reject decisions to a proposal offline",
	Long: `Compare a proposed document with the original, apply decisions from a JSON file
({"basics.label": true, "work.<id>": false, ...}) and write the result.

Without --keep or --undo the result is a preview: undecided changes keep the
original values. --keep accepts every undecided change; --undo returns the original.`,
	RunE: runReview,
}

func init() {
	reviewCmd.Flags().StringVar(&reviewOriginal, "original", "", "Path to the original document (required)")
	reviewCmd.Flags().StringVar(&reviewProposed, "proposed", "", "Path to the proposed document (required)")
	reviewCmd.Flags().StringVar(&reviewDecisions, "decisions", "", "Path to a JSON object of path -> accepted")
	reviewCmd.Flags().BoolVar(&reviewKeep, "keep", false, "Accept undecided changes and write the kept document")
	reviewCmd.Flags().BoolVar(&reviewUndo, "undo", false, "Discard the proposal and write the original")
	reviewCmd.Flags().StringVarP(&reviewOutput, "out", "o", "", "Write the resulting document here instead of stdout")
	_ = reviewCmd.MarkFlagRequired("original")
	_ = reviewCmd.MarkFlagRequired("proposed")
	reviewCmd.MarkFlagsMutuallyExclusive("keep", "undo")
	rootCmd.AddCommand(reviewCmd)
}

func runReview(cmd *cobra.Command, _ []string) error {
	original, err := readDocument(reviewOriginal)
	if err != nil {
		return err
	}
	proposed, err := readDocument(reviewProposed)
	if err != nil {
		return err
	}
	decisions := map[string]bool{}
	if reviewDecisions != "" {
		if decisions, err = readDecisions(reviewDecisions); err != nil {
			return err
		}
	}

	action := actionPreview
	switch {
	case reviewKeep:
		action = actionKeep
	case reviewUndo:
		action = actionUndo
	}

	snap, result, err := reviewOffline(original, proposed, decisions, action)
	if err != nil {
		return err
	}
	observability.NewPrinter(cmd.ErrOrStderr()).PrintChanges(snap)
	return writeJSON(cmd.OutOrStdout(), reviewOutput, result)
}

func readDecisions(path string) (map[string]bool, error) {
	raw, err := readInput(path)
	if err != nil {
		return nil, err
	}
	var decisions map[string]bool
	if err := json.Unmarshal(raw, &decisions); err != nil {
		return nil, fmt.Errorf("failed to parse decisions %s: %w", path, err)
	}
	return decisions, nil
}

// reviewOffline runs one session to completion. The snapshot is taken before
// the session ends so it still shows what was pending.
func reviewOffline(original, proposed *types.Document, decisions map[string]bool, action reviewAction) (review.Snapshot, *types.Document, error) {
	session := review.NewSession(original.ID)
	if err := session.Start(original, proposed); err != nil {
		return review.Snapshot{}, nil, err
	}

	paths := make([]string, 0, len(decisions))
	for p := range decisions {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		if err := session.Decide(p, decisions[p]); err != nil {
			return review.Snapshot{}, nil, err
		}
	}

	snap := session.Snapshot()
	var (
		result *types.Document
		err    error
	)
	switch action {
	case actionKeep:
		result, err = session.Keep()
	case actionUndo:
		result, err = session.Undo()
	default:
		result, err = session.Preview()
	}
	return snap, result, err
}
