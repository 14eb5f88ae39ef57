// Package tailoring asks the model for job-specific variants of a profile and
// drives review sessions from proposal to a committed profile.
package tailoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jonathan/resume-review/internal/llm"
	"github.com/jonathan/resume-review/internal/prompts"
	"github.com/jonathan/resume-review/internal/review"
	"github.com/jonathan/resume-review/internal/schemas"
	"github.com/jonathan/resume-review/internal/types"
	"golang.org/x/sync/semaphore"
)

// ErrGenerationInFlight is returned when a session already waits on the model
var ErrGenerationInFlight = errors.New("a generation is already in progress for this review")

// Task describes what the rewrite should achieve
type Task struct {
	Instruction string `json:"instruction" validate:"required_without_all=JobText JobURL,max=4000"`
	JobText     string `json:"job_text,omitempty" validate:"max=100000"`
	JobURL      string `json:"job_url,omitempty" validate:"omitempty,url"`
}

// DefaultInstruction is used when only a job description is given
const DefaultInstruction = "Tailor the profile to the job description. Reorder and rephrase highlights and skills to emphasize relevant experience."

// Generator turns a profile and a task into a proposed document with one model call
type Generator struct {
	client llm.Client
	tier   llm.ModelTier
	logger *slog.Logger

	mu       sync.Mutex
	inflight map[string]*semaphore.Weighted
}

// NewGenerator creates a generator using the advanced model tier
func NewGenerator(client llm.Client, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		client:   client,
		tier:     llm.TierAdvanced,
		logger:   logger,
		inflight: make(map[string]*semaphore.Weighted),
	}
}

// Propose asks the model to rewrite original and returns the validated proposal.
// The proposal always carries the original's document id.
func (g *Generator) Propose(ctx context.Context, original *types.Document, task Task) (*types.Document, error) {
	source, err := json.MarshalIndent(original, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal profile: %w", err)
	}

	prompt, err := renderTailorPrompt(string(source), task)
	if err != nil {
		return nil, err
	}
	system, err := prompts.Get(prompts.Tailoring, "system")
	if err != nil {
		return nil, err
	}

	start := time.Now()
	raw, err := g.client.GenerateJSON(ctx, llm.Request{System: system, Prompt: prompt, Tier: g.tier})
	if err != nil {
		return nil, err
	}

	ext, err := llm.Extract(raw, llm.DefaultStrategies...)
	if err != nil {
		g.logger.Warn("model response could not be recovered", "model", g.client.GetModel(g.tier), "chars", len(raw))
		return nil, err
	}

	proposed, err := schemas.ValidateDocument([]byte(ext.JSON))
	if err != nil {
		return nil, err
	}
	proposed.ID = original.ID

	g.logger.Info("proposal generated",
		"model", g.client.GetModel(g.tier),
		"duration", time.Since(start).Round(time.Millisecond),
		"strategy", ext.Strategy,
		"changes", len(review.ChangedPaths(original, proposed)),
	)
	return proposed, nil
}

// Generate produces a proposal for session and installs it: an Idle session is
// started, a Reviewing one gets its proposal replaced. Only one generation may be
// outstanding per session; a failed or cancelled call leaves the session untouched.
func (g *Generator) Generate(ctx context.Context, session *review.Session, original *types.Document, task Task) error {
	sem := g.guard(session.ID())
	if !sem.TryAcquire(1) {
		return ErrGenerationInFlight
	}
	defer sem.Release(1)

	if session.State().Terminated() {
		return &review.StateError{Op: "generate", State: session.State()}
	}

	proposed, err := g.Propose(ctx, original, task)
	if err != nil {
		return err
	}

	if session.State() == review.Idle {
		return session.Start(original, proposed)
	}
	return session.ReplaceProposed(proposed)
}

// Forget drops the in-flight guard of a finished session
func (g *Generator) Forget(sessionID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.inflight, sessionID)
}

func (g *Generator) guard(sessionID string) *semaphore.Weighted {
	g.mu.Lock()
	defer g.mu.Unlock()
	sem, ok := g.inflight[sessionID]
	if !ok {
		sem = semaphore.NewWeighted(1)
		g.inflight[sessionID] = sem
	}
	return sem
}

// MatchReport asks the model how well doc fits the job described by task
func (g *Generator) MatchReport(ctx context.Context, doc *types.Document, task Task) (*types.MatchReport, error) {
	source, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal profile: %w", err)
	}

	jobText := strings.TrimSpace(task.JobText)
	if jobText == "" {
		jobText = task.Instruction
	}
	shape, err := llm.MatchReportSchema()
	if err != nil {
		return nil, err
	}
	prompt, err := prompts.Render(prompts.Tailoring, "match-report", map[string]string{
		"Document":   string(source),
		"Extraction": llm.BuildExtractionPrompt(shape, jobText),
	})
	if err != nil {
		return nil, err
	}
	system, err := prompts.Get(prompts.Tailoring, "match-report-system")
	if err != nil {
		return nil, err
	}

	raw, err := g.client.GenerateJSON(ctx, llm.Request{System: system, Prompt: prompt, Tier: llm.TierStandard})
	if err != nil {
		return nil, err
	}
	recovered, err := llm.ExtractJSON(raw)
	if err != nil {
		return nil, err
	}
	return schemas.ValidateReport([]byte(recovered))
}

func renderTailorPrompt(source string, task Task) (string, error) {
	instruction := strings.TrimSpace(task.Instruction)
	if instruction == "" {
		instruction = DefaultInstruction
	}
	data := map[string]string{
		"Instruction": instruction,
		"Document":    source,
	}
	key := "tailor-document-no-job"
	if jobText := strings.TrimSpace(task.JobText); jobText != "" {
		key = "tailor-document"
		data["JobText"] = jobText
	}
	return prompts.Render(prompts.Tailoring, key, data)
}
