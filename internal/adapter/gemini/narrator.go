// Package gemini implements the optional AI narrator on the Gemini API.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github-signals/internal/common"
	"github-signals/internal/domain"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Narrator generates the one-line "why it matters" narrative. Callers treat
// every error as a signal to fall back to the heuristic narrative; a failed
// narration never fails a run.
type Narrator struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

type narrationResponse struct {
	WhyMatters string `json:"why_matters"`
}

func NewNarrator(ctx context.Context, apiKey, modelName string) (*Narrator, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, common.WrapError(common.ErrCodeGeneration, "gemini client init failed", err)
	}

	model := client.GenerativeModel(modelName)
	// Constrain the response to JSON to reduce parse failures.
	model.ResponseMIMEType = "application/json"

	return &Narrator{client: client, model: model}, nil
}

func (n *Narrator) Close() error { return n.client.Close() }

func (n *Narrator) Narrate(ctx context.Context, result *domain.ScoreResult) (string, error) {
	resp, err := n.model.GenerateContent(ctx, genai.Text(n.prompt(result)))
	if err != nil {
		return "", common.WrapError(common.ErrCodeGeneration, "gemini call failed", err)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", common.NewError(common.ErrCodeGeneration, "gemini returned no candidates")
	}

	text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return "", common.NewError(common.ErrCodeGeneration, "gemini returned a non-text part")
	}

	narration, err := parseNarration(string(text))
	if err != nil {
		return "", err
	}
	return narration, nil
}

func (n *Narrator) prompt(result *domain.ScoreResult) string {
	var signals []string
	for name, sig := range result.Breakdown {
		if sig.Points > 0 && sig.Justification != "" {
			signals = append(signals, fmt.Sprintf("%s: %s", name, sig.Justification))
		}
	}

	repo := result.Repository
	return fmt.Sprintf(`You are an analyst screening open-source repositories for startup potential.

Repository: %s
Description: %s
Language: %s
Momentum score: %.1f/%.1f
Signals: %s

Write one concise English sentence (under 20 words) explaining why this repository matters to an investor.
Return JSON with a single field "why_matters". Return JSON only, no markdown fences.`,
		repo.FullName, repo.Description, repo.Language,
		result.Total, result.Max, strings.Join(signals, "; "))
}

// parseNarration pulls the JSON object out of the raw model output. Models
// sometimes wrap JSON in markdown fences despite the MIME constraint, so we
// cut from the first "{" to the last "}".
func parseNarration(raw string) (string, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end <= start {
		return "", common.NewError(common.ErrCodeGeneration, "gemini response contains no JSON object")
	}

	var parsed narrationResponse
	if err := json.Unmarshal([]byte(raw[start:end+1]), &parsed); err != nil {
		return "", common.WrapError(common.ErrCodeGeneration, "gemini response parse failed", err)
	}
	if strings.TrimSpace(parsed.WhyMatters) == "" {
		return "", common.NewError(common.ErrCodeGeneration, "gemini response has empty narrative")
	}
	return strings.TrimSpace(parsed.WhyMatters), nil
}
