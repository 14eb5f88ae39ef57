package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jonathan/resume-review/internal/llm"
	"github.com/jonathan/resume-review/internal/localstore"
	"github.com/jonathan/resume-review/internal/review"
	"github.com/jonathan/resume-review/internal/schemas"
	"github.com/jonathan/resume-review/internal/tailoring"
	"github.com/jonathan/resume-review/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDocument() *types.Document {
	return &types.Document{
		ID:     "doc-1",
		Basics: types.Basics{Name: "Ada Lovelace", Label: "Engineer"},
		Work: []types.WorkEntry{
			{ID: "w1", Company: "Acme", Position: "Developer", Highlights: []string{"Built the engine"}},
		},
		Skills: []types.SkillCategory{{Name: "Languages", Keywords: []string{"Go"}}},
	}
}

func proposedDocument() *types.Document {
	doc := sampleDocument()
	doc.Basics.Label = "Senior Engineer"
	doc.Work[0].Highlights = append(doc.Work[0].Highlights, "Shipped it")
	return doc
}

func marshal(t *testing.T, v any) string {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return string(raw)
}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const reportJSON = `{
	"score": 72,
	"summary": "Good backend fit",
	"matchedKeywords": ["Go"],
	"missingKeywords": ["Kubernetes"],
	"suggestions": ["Mention container work"]
}`

func TestExtractResponse(t *testing.T) {
	t.Run("fenced document", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		raw := "```json\n" + marshal(t, sampleDocument()) + "\n```"

		require.NoError(t, extractResponse(raw, schemas.KindDocument, "", &stdout, &stderr))

		var doc types.Document
		require.NoError(t, json.Unmarshal(stdout.Bytes(), &doc))
		assert.Equal(t, "Ada Lovelace", doc.Basics.Name)
		assert.Equal(t, "Recovered document with strip_fences\n", stderr.String())
	})

	t.Run("report to file", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		out := filepath.Join(t.TempDir(), "report.json")

		require.NoError(t, extractResponse(reportJSON, schemas.KindMatchReport, out, &stdout, &stderr))

		assert.Empty(t, stdout.String())
		raw, err := os.ReadFile(out)
		require.NoError(t, err)
		var report types.MatchReport
		require.NoError(t, json.Unmarshal(raw, &report))
		assert.Equal(t, 72.0, report.Score)
	})

	t.Run("no json", func(t *testing.T) {
		err := extractResponse("I can't do that.", schemas.KindDocument, "", &bytes.Buffer{}, &bytes.Buffer{})
		var malformed *llm.MalformedResponseError
		assert.ErrorAs(t, err, &malformed)
	})

	t.Run("invalid document", func(t *testing.T) {
		err := extractResponse(`{"basics": {}, "work": [], "skills": []}`, schemas.KindDocument, "", &bytes.Buffer{}, &bytes.Buffer{})
		var invalid *schemas.ValidationError
		require.ErrorAs(t, err, &invalid)
		assert.Equal(t, "basics.name", invalid.Path())
	})
}

type staticJobs struct {
	text string
	err  error
}

func (s staticJobs) JobText(context.Context, string) (string, error) { return s.text, s.err }

func TestTaskFlags(t *testing.T) {
	jobFile := writeTemp(t, "job.txt", "Go engineer at Globex")

	tests := []struct {
		name    string
		flags   taskFlags
		jobs    tailoring.JobSource
		want    tailoring.Task
		wantErr string
	}{
		{
			name:  "instruction only",
			flags: taskFlags{instruction: "  emphasize leadership "},
			want:  tailoring.Task{Instruction: "emphasize leadership"},
		},
		{
			name:  "job file",
			flags: taskFlags{jobFile: jobFile},
			want:  tailoring.Task{JobText: "Go engineer at Globex"},
		},
		{
			name:  "job url",
			flags: taskFlags{jobURL: "https://jobs.example.com/1"},
			jobs:  staticJobs{text: "Fetched posting"},
			want:  tailoring.Task{JobURL: "https://jobs.example.com/1", JobText: "Fetched posting"},
		},
		{
			name:    "job url fetch fails",
			flags:   taskFlags{jobURL: "https://jobs.example.com/1"},
			jobs:    staticJobs{err: errors.New("status 404")},
			wantErr: "failed to fetch job posting: status 404",
		},
		{
			name:    "nothing to do",
			flags:   taskFlags{instruction: "   "},
			wantErr: "provide --instruction, --job or --job-url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task, err := tt.flags.task(context.Background(), tt.jobs)
			if tt.wantErr != "" {
				assert.EqualError(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, task)
		})
	}
}

func TestTailor(t *testing.T) {
	profile := writeTemp(t, "profile.json", marshal(t, sampleDocument()))
	client := llm.NewScriptedClient("```json\n" + marshal(t, proposedDocument()) + "\n```")
	out := filepath.Join(t.TempDir(), "proposal.json")
	var stdout, stderr bytes.Buffer

	err := tailor(context.Background(), client, profile, tailoring.Task{Instruction: "senior roles"}, out, &stdout, &stderr)

	require.NoError(t, err)
	assert.Contains(t, stderr.String(), "PROPOSED CHANGES")
	assert.Contains(t, stderr.String(), "basics.label")
	assert.Contains(t, stderr.String(), "work.w1.highlights")

	proposed, err := readDocument(out)
	require.NoError(t, err)
	assert.Equal(t, "doc-1", proposed.ID)
	assert.Equal(t, "Senior Engineer", proposed.Basics.Label)
	require.Len(t, client.Calls(), 1)
	assert.Contains(t, client.Calls()[0].Prompt, "senior roles")
}

func TestTailor_InvalidProfile(t *testing.T) {
	profile := writeTemp(t, "profile.json", `{"basics": {"label": "x"}}`)
	client := llm.NewScriptedClient()

	err := tailor(context.Background(), client, profile, tailoring.Task{Instruction: "x"}, "", &bytes.Buffer{}, &bytes.Buffer{})

	var invalid *schemas.ValidationError
	assert.ErrorAs(t, err, &invalid)
	assert.Empty(t, client.Calls())
}

func TestMatchReport(t *testing.T) {
	profile := writeTemp(t, "profile.json", marshal(t, sampleDocument()))
	task := tailoring.Task{JobText: "Go and Kubernetes"}

	t.Run("text", func(t *testing.T) {
		var stdout bytes.Buffer
		require.NoError(t, matchReport(context.Background(), llm.NewScriptedClient(reportJSON), profile, task, false, &stdout))
		assert.Contains(t, stdout.String(), "MATCH REPORT")
		assert.Contains(t, stdout.String(), "Score:    72/100")
		assert.Contains(t, stdout.String(), "Kubernetes")
	})

	t.Run("json", func(t *testing.T) {
		var stdout bytes.Buffer
		require.NoError(t, matchReport(context.Background(), llm.NewScriptedClient(reportJSON), profile, task, true, &stdout))
		var report types.MatchReport
		require.NoError(t, json.Unmarshal(stdout.Bytes(), &report))
		assert.Equal(t, []string{"Go"}, report.MatchedKeywords)
	})
}

func TestReviewOffline(t *testing.T) {
	tests := []struct {
		name       string
		decisions  map[string]bool
		action     reviewAction
		wantLabel  string
		wantBullet []string
	}{
		{
			name:       "preview keeps undecided original",
			decisions:  map[string]bool{"basics.label": true},
			action:     actionPreview,
			wantLabel:  "Senior Engineer",
			wantBullet: []string{"Built the engine"},
		},
		{
			name:       "keep accepts undecided",
			decisions:  map[string]bool{"basics.label": false},
			action:     actionKeep,
			wantLabel:  "Engineer",
			wantBullet: []string{"Built the engine", "Shipped it"},
		},
		{
			name:       "undo ignores decisions",
			decisions:  map[string]bool{"basics.label": true, "work.w1.highlights": true},
			action:     actionUndo,
			wantLabel:  "Engineer",
			wantBullet: []string{"Built the engine"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap, result, err := reviewOffline(sampleDocument(), proposedDocument(), tt.decisions, tt.action)

			require.NoError(t, err)
			assert.Equal(t, "reviewing", snap.State)
			assert.Equal(t, tt.decisions, snap.Decisions)
			assert.Equal(t, tt.wantLabel, result.Basics.Label)
			assert.Equal(t, tt.wantBullet, result.Work[0].Highlights)
		})
	}
}

func TestReviewOffline_UnknownPath(t *testing.T) {
	_, _, err := reviewOffline(sampleDocument(), proposedDocument(), map[string]bool{"work.nope": true}, actionKeep)

	var pathErr *review.PathError
	assert.ErrorAs(t, err, &pathErr)
}

func TestReadDecisions(t *testing.T) {
	decisions, err := readDecisions(writeTemp(t, "d.json", `{"basics.label": true, "work.w1": false}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"basics.label": true, "work.w1": false}, decisions)

	_, err = readDecisions(writeTemp(t, "bad.json", `{"basics.label": "yes"}`))
	assert.ErrorContains(t, err, "failed to parse decisions")
}

func TestProfilesCommands(t *testing.T) {
	ctx := context.Background()
	store, err := localstore.Open(ctx, filepath.Join(t.TempDir(), "profiles.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	imported, err := importProfile(ctx, store, "local", "", "", "applications/", sampleDocument())
	require.NoError(t, err)
	assert.Equal(t, "doc-1", imported.ID)
	assert.Equal(t, "Ada Lovelace", imported.Name)
	assert.Equal(t, "/applications", imported.FolderPath)

	other := sampleDocument()
	other.ID = ""
	root, err := importProfile(ctx, store, "local", "", "Base", "", other)
	require.NoError(t, err)
	assert.NotEmpty(t, root.ID)
	assert.Equal(t, root.ID, root.Document.ID)

	t.Run("list folder", func(t *testing.T) {
		var out bytes.Buffer
		folder := "/applications"
		require.NoError(t, listProfiles(ctx, store, "local", &folder, &out))
		assert.Contains(t, out.String(), "doc-1")
		assert.NotContains(t, out.String(), root.ID)
	})

	t.Run("list all", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, listProfiles(ctx, store, "local", nil, &out))
		assert.Contains(t, out.String(), "doc-1")
		assert.Contains(t, out.String(), root.ID)
	})

	t.Run("other owner sees nothing", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, listProfiles(ctx, store, "someone-else", nil, &out))
		assert.Equal(t, "No profiles.\n", out.String())
	})

	t.Run("show", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, showProfile(ctx, store, "local", "doc-1", &out))
		var profile types.Profile
		require.NoError(t, json.Unmarshal(out.Bytes(), &profile))
		assert.Equal(t, "Engineer", profile.Document.Basics.Label)
	})

	t.Run("show missing", func(t *testing.T) {
		err := showProfile(ctx, store, "local", "missing", &bytes.Buffer{})
		assert.ErrorIs(t, err, localstore.ErrNotFound)
	})
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, "", map[string]int{"a": 1}))
	assert.Equal(t, "{\n  \"a\": 1\n}\n", buf.String())

	err := writeJSON(&buf, filepath.Join(t.TempDir(), "missing", "out.json"), 1)
	assert.ErrorContains(t, err, "failed to write output file")
}
