// Package gemini generates incident summaries through the Gemini API,
// rotating across models and API keys as quota runs out, with a deterministic
// extractive fallback when no provider is usable.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/pth-in/cprn/internal/logger"
	"github.com/pth-in/cprn/internal/metrics"
	"github.com/pth-in/cprn/internal/ratelimit"
)

// DefaultModels is the fallback ladder, cheapest and newest first. A model
// that is quota-exhausted or unknown for the current key moves the ladder
// down one rung.
var DefaultModels = []string{
	"gemini-2.0-flash",
	"gemini-2.5-flash",
	"gemini-flash-latest",
	"gemini-1.5-flash",
}

// delimiter separates per-incident summaries in a batched response.
const delimiter = "---NEXT INCIDENT---"

// minSummaryLen is the shortest provider output accepted as a real summary.
const minSummaryLen = 40

// Item is one incident to summarize.
type Item struct {
	Title       string
	Description string
}

// Manager owns the key and model rotation state. Rotation position persists
// across batches within a run so an exhausted key is not retried every batch.
type Manager struct {
	keys     []string
	models   []string
	keyIdx   int
	modelIdx int

	pacer        *ratelimit.Pacer
	call         func(ctx context.Context, key, model, prompt string) (string, error)
	maxBodyChars int
	fallbackCap  int
}

func NewManager(keys, models []string, pacer *ratelimit.Pacer) *Manager {
	if len(models) == 0 {
		models = DefaultModels
	}
	return &Manager{
		keys:         keys,
		models:       models,
		pacer:        pacer,
		call:         defaultCall,
		maxBodyChars: 1500,
		fallbackCap:  400,
	}
}

// Configured reports whether at least one API key is available.
func (m *Manager) Configured() bool {
	return len(m.keys) > 0
}

// SummarizeBatch returns one summary per item, in order. Items the provider
// could not cover fall back to extractive summaries, so the result never has
// gaps.
func (m *Manager) SummarizeBatch(ctx context.Context, items []Item) []string {
	summaries := make([]string, len(items))
	if len(items) == 0 {
		return summaries
	}

	if m.Configured() {
		if parts, err := m.generate(ctx, m.batchPrompt(items)); err == nil {
			for i := range summaries {
				if i < len(parts) && len(strings.TrimSpace(parts[i])) >= minSummaryLen {
					summaries[i] = strings.TrimSpace(parts[i])
					metrics.Global.IncrementSummaries()
				}
			}
		} else {
			logger.Warn("batch summarization failed, using fallback", "error", err)
		}
	}

	for i, item := range items {
		if summaries[i] == "" {
			summaries[i] = m.FallbackSummary(item)
			metrics.Global.IncrementFallbackSummaries()
		}
	}
	return summaries
}

// generate tries key/model combinations starting from the saved rotation
// position. Quota and unknown-model errors advance the rotation; anything
// else aborts so a systemic failure does not burn every key.
func (m *Manager) generate(ctx context.Context, prompt string) ([]string, error) {
	var lastErr error

	for m.keyIdx < len(m.keys) {
		key := m.keys[m.keyIdx]
		model := m.models[m.modelIdx]

		if err := m.pacer.BeforeCall(); err != nil {
			return nil, err
		}

		text, err := m.call(ctx, key, model, prompt)
		if err == nil {
			return strings.Split(text, delimiter), nil
		}
		lastErr = err

		switch {
		case isRateLimited(err), isNotFound(err):
			logger.Info("rotating provider", "key", m.keyIdx+1, "model", model, "error", err)
			m.modelIdx++
			if m.modelIdx >= len(m.models) {
				m.modelIdx = 0
				m.keyIdx++
			}
		default:
			return nil, fmt.Errorf("generating with %s: %w", model, err)
		}
	}

	return nil, fmt.Errorf("all API keys exhausted: %w", lastErr)
}

func (m *Manager) batchPrompt(items []Item) string {
	var b strings.Builder
	b.WriteString("You are summarizing reported incidents of religious persecution in India for a public tracker.\n")
	b.WriteString("For each incident below, write one factual summary of 2-3 sentences.\n")
	b.WriteString("State what happened, to whom, and where. Do not editorialize or add information.\n")
	b.WriteString("Separate the summaries with a line containing exactly: " + delimiter + "\n")
	b.WriteString("Return the summaries in the same order as the incidents, nothing else.\n\n")

	for i, item := range items {
		body := item.Description
		if len(body) > m.maxBodyChars {
			body = body[:m.maxBodyChars]
		}
		fmt.Fprintf(&b, "Incident %d:\nTitle: %s\nReport: %s\n\n", i+1, item.Title, body)
	}
	return b.String()
}

// FallbackSummary builds a deterministic extractive summary from the first
// few sentences of the report body.
func (m *Manager) FallbackSummary(item Item) string {
	text := strings.TrimSpace(item.Description)
	if text == "" {
		return item.Title
	}

	sentences := strings.SplitAfter(text, ". ")
	if len(sentences) > 3 {
		sentences = sentences[:3]
	}
	summary := strings.TrimSpace(strings.Join(sentences, ""))

	if len(summary) > m.fallbackCap {
		summary = strings.TrimSpace(summary[:m.fallbackCap])
	}
	return summary
}

func isRateLimited(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == 429 {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "RESOURCE_EXHAUSTED") || strings.Contains(msg, "429")
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == 404 {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "not found")
}

func defaultCall(ctx context.Context, key, model, prompt string) (string, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(key))
	if err != nil {
		return "", fmt.Errorf("creating client: %w", err)
	}
	defer client.Close()

	gm := client.GenerativeModel(model)
	resp, err := gm.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("empty response from %s", model)
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String(), nil
}
