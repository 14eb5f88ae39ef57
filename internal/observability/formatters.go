// Package observability provides formatted output utilities for the CLI.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/resume-review/internal/review"
	"github.com/jonathan/resume-review/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 72
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
	// absent marks a value one side of a change does not have
	absent = "(none)"
)

// Printer handles formatted output for the CLI
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-3]) + "..."
}

// marker shows the decision on a path: accepted, rejected or pending
func marker(decisions map[string]bool, path string) string {
	accepted, decided := decisions[path]
	switch {
	case !decided:
		return "[ ]"
	case accepted:
		return "[✓]"
	default:
		return "[✗]"
	}
}

// PrintChanges outputs every changed path of a review with its decision and
// the original and proposed values.
func (p *Printer) PrintChanges(snap review.Snapshot) {
	if len(snap.Changed) == 0 {
		p.printBox("PROPOSED CHANGES", "No changes proposed.")
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d changed, %d pending\n", len(snap.Changed), snap.Pending))
	for _, s := range snap.Changed {
		sb.WriteString("\n")
		path, err := review.ParsePath(s)
		if err != nil {
			sb.WriteString(fmt.Sprintf("%s %s\n", marker(snap.Decisions, s), s))
			continue
		}
		before, ok := review.Describe(snap.Original, path)
		if !ok {
			before = absent
		}
		after, ok := review.Describe(snap.Proposed, path)
		if !ok {
			after = absent
		}
		sb.WriteString(fmt.Sprintf("%s %s\n", marker(snap.Decisions, s), s))
		sb.WriteString(fmt.Sprintf("    - %s\n", before))
		sb.WriteString(fmt.Sprintf("    + %s\n", after))
	}

	p.printBox("PROPOSED CHANGES", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintMatchReport outputs the score, keywords and suggestions of a report.
func (p *Printer) PrintMatchReport(report *types.MatchReport) {
	if report == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Score:    %.0f/100\n", report.Score))
	sb.WriteString(fmt.Sprintf("Summary:  %s\n", report.Summary))
	sb.WriteString("\n")

	writeList := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		sb.WriteString(title + ":\n")
		count := min(len(items), maxItemsToShow)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  • %s\n", items[i]))
		}
		if len(items) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(items)-maxItemsToShow))
		}
		sb.WriteString("\n")
	}
	writeList("Matched", report.MatchedKeywords)
	writeList("Missing", report.MissingKeywords)
	writeList("Suggestions", report.Suggestions)

	p.printBox("MATCH REPORT", strings.TrimRight(sb.String(), "\n"))
}

// PrintProfiles outputs a listing of stored profiles.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintProfiles(profiles []*types.Profile) {
	if len(profiles) == 0 {
		fmt.Fprintln(p.out, "No profiles.")
		return
	}
	for _, pr := range profiles {
		folder := pr.FolderPath
		if folder == "" {
			folder = "/"
		}
		variant := ""
		if pr.SourceProfileID != nil {
			variant = " (variant of " + *pr.SourceProfileID + ")"
		}
		fmt.Fprintf(p.out, "%-36s  %-16s  %s%s\n", pr.ID, folder, pr.Name, variant)
	}
}
