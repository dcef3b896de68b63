// Package report turns a session summary into a natural-language report.
// When an LLM endpoint is configured the report is generated there; any
// failure falls back to a deterministic rule-based generator so a report
// is always produced.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/ayusman/chikitsa/internal/session"
)

// Report sources.
const (
	SourceLLM      = "llm"
	SourceFallback = "fallback"
)

// Report is a natural-language analysis of one completed session.
type Report struct {
	Summary  string `json:"summary"`
	Analysis string `json:"analysis"`
	Tip      string `json:"tip"`
	Source   string `json:"source"`
}

// Config holds connection settings for the report LLM. An empty APIKey
// disables the LLM path entirely.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	TimeoutSeconds int
}

// Generator produces session reports.
type Generator struct {
	cfg        Config
	httpClient *http.Client
}

// NewGenerator creates a Generator with the given LLM settings.
func NewGenerator(cfg Config) *Generator {
	timeout := 30 * time.Second
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	return &Generator{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Generate produces a report for the summary. It never fails: when the
// LLM is unconfigured or errors, the fallback generator is used.
func (g *Generator) Generate(ctx context.Context, exerciseName string, sum *session.Summary) *Report {
	if strings.TrimSpace(g.cfg.APIKey) != "" {
		rep, err := g.generateLLM(ctx, exerciseName, sum)
		if err == nil {
			return rep
		}
		log.Printf("llm report failed, using fallback: %v", err)
	}
	return Fallback(exerciseName, sum)
}

const systemPrompt = `You are a physiotherapy assistant reviewing one rehabilitation
exercise session. Given the session statistics, respond with JSON only, in the form
{"summary": "...", "analysis": "...", "tip": "..."}. The summary is one sentence,
the analysis two or three sentences about form and stability, and the tip one
actionable suggestion for the next session. Be encouraging but honest.`

func (g *Generator) generateLLM(ctx context.Context, exerciseName string, sum *session.Summary) (*Report, error) {
	userPrompt := fmt.Sprintf(
		"Exercise: %s\nDuration: %.0f seconds\nScore: %.1f/100\nCorrections: %d\nRepetitions: %d\n"+
			"Frames analyzed: %d\nError breakdown: torso=%d angle=%d range=%d\n"+
			"Average joint angle: %.1f degrees\nAngle variance: %.1f\nStability: %.1f/100\nConsistency: %.1f%%",
		exerciseName, float64(sum.DurationMs)/1000, sum.Score, sum.Corrections, sum.Reps,
		sum.TotalFrames, sum.Patterns.Torso, sum.Patterns.Angle, sum.Patterns.Range,
		sum.Metrics.AvgAngle, sum.Metrics.AngleVariance, sum.Metrics.StabilityScore,
		sum.Metrics.ConsistencyScore,
	)

	payload := chatCompletionRequest{
		Model: g.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature:    0,
		ResponseFormat: map[string]string{"type": "json_object"},
	}

	content, err := g.sendChatRequest(ctx, payload)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Summary  string `json:"summary"`
		Analysis string `json:"analysis"`
		Tip      string `json:"tip"`
	}
	if err := decodeLLMJSON(content, &parsed); err != nil {
		return nil, fmt.Errorf("parse report payload: %w", err)
	}
	if strings.TrimSpace(parsed.Summary) == "" || strings.TrimSpace(parsed.Analysis) == "" {
		return nil, errors.New("report payload missing summary or analysis")
	}

	return &Report{
		Summary:  strings.TrimSpace(parsed.Summary),
		Analysis: strings.TrimSpace(parsed.Analysis),
		Tip:      strings.TrimSpace(parsed.Tip),
		Source:   SourceLLM,
	}, nil
}

type chatCompletionRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (g *Generator) sendChatRequest(ctx context.Context, payload chatCompletionRequest) (string, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("llm request: encode body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL, bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("llm request: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm request: http error: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("llm request: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("llm request: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return "", fmt.Errorf("llm request: decode response: %w", err)
	}
	if completion.Error != nil {
		return "", fmt.Errorf("llm request: api error: %s", strings.TrimSpace(completion.Error.Message))
	}
	if len(completion.Choices) == 0 {
		return "", errors.New("llm request: empty choices")
	}

	content := strings.TrimSpace(completion.Choices[0].Message.Content)
	if content == "" {
		return "", errors.New("llm request: empty content")
	}
	return content, nil
}

// decodeLLMJSON decodes JSON from an LLM response, tolerating code fences.
func decodeLLMJSON(content string, target any) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return errors.New("empty payload")
	}

	if err := json.Unmarshal([]byte(trimmed), target); err == nil {
		return nil
	}

	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimPrefix(strings.TrimLeft(trimmed, " \t\r\n"), "json")
		if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
			trimmed = trimmed[:idx]
		}
		trimmed = strings.TrimSpace(trimmed)
	}
	if start := strings.Index(trimmed, "{"); start >= 0 {
		if end := strings.LastIndex(trimmed, "}"); end > start {
			trimmed = trimmed[start : end+1]
		}
	}

	return json.Unmarshal([]byte(trimmed), target)
}

// Fallback produces a deterministic report from the summary alone.
func Fallback(exerciseName string, sum *session.Summary) *Report {
	var quality string
	switch {
	case sum.Score >= 90:
		quality = "excellent"
	case sum.Score >= 75:
		quality = "good"
	case sum.Score >= 50:
		quality = "fair"
	default:
		quality = "below your usual standard"
	}

	summary := fmt.Sprintf("You completed a %s session of %s with a score of %.0f out of 100.",
		quality, exerciseName, sum.Score)

	var form string
	switch {
	case sum.Corrections == 0:
		form = "Your form held up for the entire session with no corrections needed."
	case sum.Corrections <= 3:
		form = fmt.Sprintf("Your form was mostly solid; %d corrections were needed.", sum.Corrections)
	default:
		form = fmt.Sprintf("Your form needed %d corrections, so there is room to improve.", sum.Corrections)
	}

	analysis := fmt.Sprintf("%s Consistency was %.0f%% across %d analyzed frames with a stability score of %.0f.",
		form, sum.Metrics.ConsistencyScore, sum.TotalFrames, sum.Metrics.StabilityScore)
	if sum.Reps > 0 {
		analysis += fmt.Sprintf(" You completed %d repetitions.", sum.Reps)
	}

	return &Report{
		Summary:  summary,
		Analysis: analysis,
		Tip:      fallbackTip(sum),
		Source:   SourceFallback,
	}
}

// fallbackTip picks one suggestion based on the dominant error pattern.
func fallbackTip(sum *session.Summary) string {
	p := sum.Patterns
	switch {
	case p.Total == 0:
		return "Keep this up and consider progressing to a longer hold next session."
	case p.Torso >= p.Angle && p.Torso >= p.Range:
		return "Focus on keeping your torso upright; try the exercise in front of a mirror."
	case p.Angle >= p.Range:
		return "Watch your joint angle; move slowly until the target position feels natural."
	default:
		return "Work on completing the full range of motion, even if it means fewer repetitions."
	}
}
