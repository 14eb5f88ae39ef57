package review

import (
	"maps"

	"github.com/jonathan/resume-review/internal/types"
)

// ChangeSet is an original and a proposed Document plus sparse per-path decisions.
// It is owned by exactly one Session.
type ChangeSet struct {
	Original  *types.Document
	Proposed  *types.Document
	Decisions map[string]bool
}

// NewChangeSet copies both documents and starts with no decisions
func NewChangeSet(original, proposed *types.Document) *ChangeSet {
	return &ChangeSet{
		Original:  original.Clone(),
		Proposed:  proposed.Clone(),
		Decisions: make(map[string]bool),
	}
}

// Decide records a decision for path, replacing any earlier one
func (c *ChangeSet) Decide(path ChangePath, accepted bool) {
	c.Decisions[path.String()] = accepted
}

// Reset returns path to pending
func (c *ChangeSet) Reset(path ChangePath) {
	delete(c.Decisions, path.String())
}

// Replace installs a new proposed document and clears every decision
func (c *ChangeSet) Replace(proposed *types.Document) {
	c.Proposed = proposed.Clone()
	clear(c.Decisions)
}

// Has reports whether path exists in the original or the proposed document
func (c *ChangeSet) Has(path ChangePath) bool {
	for _, p := range c.AllPaths() {
		if p == path {
			return true
		}
	}
	return false
}

// AllPaths returns the paths of the original followed by paths only the proposed has
func (c *ChangeSet) AllPaths() []ChangePath {
	paths := Paths(c.Original)
	seen := make(map[ChangePath]bool, len(paths))
	for _, p := range paths {
		seen[p] = true
	}
	for _, p := range Paths(c.Proposed) {
		if !seen[p] {
			paths = append(paths, p)
			seen[p] = true
		}
	}
	return paths
}

// Pending returns the paths that have no decision yet
func (c *ChangeSet) Pending() []ChangePath {
	var pending []ChangePath
	for _, p := range c.AllPaths() {
		if _, decided := c.Decisions[p.String()]; !decided {
			pending = append(pending, p)
		}
	}
	return pending
}

// Resolve applies the current decisions with pending paths left conservative
func (c *ChangeSet) Resolve() *types.Document {
	return Resolve(c.Original, c.Proposed, c.Decisions)
}

// DecisionsCopy returns a copy of the decision map
func (c *ChangeSet) DecisionsCopy() map[string]bool {
	return maps.Clone(c.Decisions)
}
