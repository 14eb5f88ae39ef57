package review

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/jonathan/resume-review/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startedSession(t *testing.T, o, p *types.Document) *Session {
	t.Helper()
	s := NewSession(o.ID)
	require.NoError(t, s.Start(o, p))
	return s
}

func TestSession_KeepBulkAccept(t *testing.T) {
	o := &types.Document{ID: "d", Work: []types.WorkEntry{{ID: "1", Company: "Acme", Highlights: []string{"x"}}}}
	p := &types.Document{ID: "d", Work: []types.WorkEntry{
		{ID: "1", Company: "Acme Corp", Highlights: []string{"x", "y"}},
		{ID: "2", Company: "NewCo", Highlights: []string{}},
	}}
	s := startedSession(t, o, p)

	kept, err := s.Keep()

	require.NoError(t, err)
	assert.Equal(t, p, kept)
	assert.NotEqual(t, p, Resolve(o, p, map[string]bool{}), "resolving with no decisions stays conservative")
	assert.Equal(t, Kept, s.State())
}

func TestSession_KeepKeepsDroppedItems(t *testing.T) {
	s := startedSession(t, richOriginal(), richProposed())

	kept, err := s.Keep()

	require.NoError(t, err)
	assert.NotEqual(t, richProposed(), kept)
	assert.Equal(t, []types.WorkEntry{
		{ID: "1", Company: "Acme Corp", Highlights: []string{"x", "y"}},
		{ID: "3", Company: "Globex", Highlights: []string{"z"}},
		{ID: "2", Company: "NewCo", Highlights: []string{}},
	}, kept.Work, "work 3 was dropped by the proposal but never rejected")
	assert.Equal(t, "Senior Engineer", kept.Basics.Label)
	assert.Equal(t, richProposed().Skills, kept.Skills)
	assert.Equal(t, richOriginal().Projects, kept.Projects)
	assert.True(t, s.Snapshot().Decisions["work.3"])
}

func TestSession_KeepHonorsExplicitRejections(t *testing.T) {
	s := startedSession(t, richOriginal(), richProposed())
	require.NoError(t, s.Decide("work.1.company", false))
	require.NoError(t, s.Decide("work.2", false))

	kept, err := s.Keep()

	require.NoError(t, err)
	assert.Equal(t, "Acme", kept.Work[0].Company)
	assert.Equal(t, []string{"x", "y"}, kept.Work[0].Highlights)
	for _, w := range kept.Work {
		assert.NotEqual(t, "2", w.ID)
	}
	assert.Equal(t, "Senior Engineer", kept.Basics.Label)
	assert.Equal(t, richOriginal().Education, kept.Education)
}

func TestSession_Lifecycle(t *testing.T) {
	s := NewSession("doc-1")
	assert.Equal(t, Idle, s.State())
	assert.Equal(t, "doc-1", s.DocumentID())
	assert.NotEmpty(t, s.ID())

	var stateErr *StateError
	assert.ErrorAs(t, s.Decide("basics.label", true), &stateErr)
	assert.Equal(t, Idle, stateErr.State)
	_, err := s.Keep()
	assert.ErrorAs(t, err, &stateErr)

	require.NoError(t, s.Start(richOriginal(), richProposed()))
	assert.Equal(t, Reviewing, s.State())
	assert.ErrorAs(t, s.Start(richOriginal(), richProposed()), &stateErr)

	undone, err := s.Undo()
	require.NoError(t, err)
	assert.Equal(t, richOriginal(), undone)
	assert.Equal(t, Abandoned, s.State())
	assert.True(t, s.State().Terminated())

	for name, op := range map[string]func() error{
		"decide":  func() error { return s.Decide("basics.label", true) },
		"reset":   func() error { return s.Reset("basics.label") },
		"replace": func() error { return s.ReplaceProposed(richProposed()) },
		"start":   func() error { return s.Start(richOriginal(), richProposed()) },
		"keep":    func() error { _, err := s.Keep(); return err },
		"undo":    func() error { _, err := s.Undo(); return err },
		"preview": func() error { _, err := s.Preview(); return err },
	} {
		t.Run(name, func(t *testing.T) {
			var stateErr *StateError
			require.ErrorAs(t, op(), &stateErr)
			assert.Equal(t, Abandoned, stateErr.State)
		})
	}
}

func TestSession_DecideAndReset(t *testing.T) {
	s := startedSession(t, richOriginal(), richProposed())

	require.NoError(t, s.Decide("basics.label", true))
	preview, err := s.Preview()
	require.NoError(t, err)
	assert.Equal(t, "Senior Engineer", preview.Basics.Label)

	require.NoError(t, s.Decide("basics.label", false))
	preview, _ = s.Preview()
	assert.Equal(t, "Engineer", preview.Basics.Label)

	require.NoError(t, s.Reset("basics.label"))
	assert.Empty(t, s.Snapshot().Decisions)
	assert.Equal(t, Reviewing, s.State(), "decisions never end the session")
}

func TestSession_DecideRejectsUnknownPaths(t *testing.T) {
	s := startedSession(t, richOriginal(), richProposed())

	var pathErr *PathError
	assert.ErrorAs(t, s.Decide("work.99", true), &pathErr)
	assert.ErrorAs(t, s.Decide("education.0", true), &pathErr)
	assert.ErrorAs(t, s.Reset("skills.Missing.keywords"), &pathErr)

	assert.NoError(t, s.Decide("work.3", false), "items only in the original are addressable")
	assert.NoError(t, s.Decide("skills.Cloud", true), "items only in the proposal are addressable")
}

func TestSession_ReplaceProposed(t *testing.T) {
	o := richOriginal()
	s := startedSession(t, o, richProposed())
	require.NoError(t, s.Decide("basics.label", true))

	regenerated := richProposed()
	regenerated.Basics.Label = "Staff Engineer"
	require.NoError(t, s.ReplaceProposed(regenerated))

	snap := s.Snapshot()
	assert.Empty(t, snap.Decisions)
	assert.Equal(t, o, snap.Original)
	assert.Equal(t, "Staff Engineer", snap.Proposed.Basics.Label)

	kept, err := s.Keep()
	require.NoError(t, err)
	assert.Equal(t, "Staff Engineer", kept.Basics.Label)
}

func TestSession_StartCopiesInputs(t *testing.T) {
	o, p := richOriginal(), richProposed()
	s := startedSession(t, o, p)

	o.Basics.Name = "changed"
	p.Basics.Label = "changed"

	kept, err := s.Keep()
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", kept.Basics.Name)
	assert.Equal(t, "Senior Engineer", kept.Basics.Label)
}

func TestSession_Snapshot(t *testing.T) {
	s := NewSession("doc-1")
	idle := s.Snapshot()
	assert.Equal(t, "idle", idle.State)
	assert.Nil(t, idle.Original)
	assert.Empty(t, idle.Changed)

	require.NoError(t, s.Start(richOriginal(), richProposed()))
	require.NoError(t, s.Decide("work.2", true))
	snap := s.Snapshot()

	assert.Equal(t, "reviewing", snap.State)
	assert.Equal(t, map[string]bool{"work.2": true}, snap.Decisions)
	assert.Contains(t, snap.Changed, "work.1.company")
	assert.Equal(t, len(NewChangeSet(richOriginal(), richProposed()).AllPaths())-1, snap.Pending)

	snap.Decisions["work.2"] = false
	assert.True(t, s.Snapshot().Decisions["work.2"], "snapshots are copies")

	_, err := s.Keep()
	require.NoError(t, err)
	done := s.Snapshot()
	assert.Equal(t, "kept", done.State)
	assert.NotNil(t, done.Resolved)
	assert.Zero(t, done.Pending)
}

func TestSession_ConcurrentDecisions(t *testing.T) {
	o := &types.Document{ID: "d"}
	p := &types.Document{ID: "d"}
	for i := 0; i < 20; i++ {
		p.Work = append(p.Work, types.WorkEntry{ID: fmt.Sprintf("w%d", i), Company: "Co"})
	}
	s := startedSession(t, o, p)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, s.Decide(fmt.Sprintf("work.w%d", i), i%2 == 0))
		}(i)
	}
	wg.Wait()

	preview, err := s.Preview()
	require.NoError(t, err)
	assert.Len(t, preview.Work, 10)
}

func TestSession_KeepWithPersistFailure(t *testing.T) {
	s := startedSession(t, richOriginal(), richProposed())
	require.NoError(t, s.Decide("basics.label", false))

	_, err := s.KeepWith(func(*types.Document) error { return errors.New("database unavailable") })

	require.EqualError(t, err, "database unavailable")
	assert.Equal(t, Reviewing, s.State())
	assert.Equal(t, map[string]bool{"basics.label": false}, s.Snapshot().Decisions)

	var persisted *types.Document
	kept, err := s.KeepWith(func(doc *types.Document) error {
		persisted = doc
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, kept, persisted)
	assert.Equal(t, "Engineer", kept.Basics.Label)
	assert.Equal(t, Kept, s.State())
}
