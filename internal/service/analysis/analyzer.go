// Package analysis judges the quality of candidate answers using the
// completion provider, with a deterministic neutral fallback on any
// provider failure.
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"ai-interview-engine/internal/models"
	"ai-interview-engine/internal/observability/metrics"
	"ai-interview-engine/internal/service/completion"
)

const analyzerSystemPrompt = `You are an expert technical interviewer evaluating a candidate's answer.
Judge the answer against the question and respond with a single JSON object:
{"confidence": 0.0-1.0, "technical_accuracy": 0.0-1.0, "depth_of_understanding": 0.0-1.0,
 "hesitation_indicators": ["..."], "proficiency": "novice|intermediate|proficient|expert"}
Respond with JSON only, no prose.`

// Input is the context of one answer to analyze.
type Input struct {
	Answer   string
	Question string
	RoleType string
	Phase    models.Phase
}

// Analyzer calls the completion provider and parses its judgment.
type Analyzer struct {
	provider completion.Provider
	timeout  time.Duration
	logger   zerolog.Logger
	metrics  *metrics.Metrics
}

// NewAnalyzer creates an analyzer with the given provider and call timeout.
func NewAnalyzer(provider completion.Provider, timeout time.Duration, logger zerolog.Logger) *Analyzer {
	return &Analyzer{
		provider: provider,
		timeout:  timeout,
		logger:   logger,
		metrics:  metrics.DefaultMetrics,
	}
}

// judgment is the structured output expected from the provider.
type judgment struct {
	Confidence           float64  `json:"confidence"`
	TechnicalAccuracy    float64  `json:"technical_accuracy"`
	DepthOfUnderstanding float64  `json:"depth_of_understanding"`
	HesitationIndicators []string `json:"hesitation_indicators"`
	Proficiency          string   `json:"proficiency"`
}

// Analyze judges one answer. It never fails: on provider timeout,
// malformed structured output, or any other error it returns the neutral
// fallback so the turn can always produce a next question. The returned
// usage is zero on fallback.
func (a *Analyzer) Analyze(ctx context.Context, in Input) (models.ResponseAnalysis, completion.Usage) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	resp, err := a.provider.Complete(ctx, completion.Request{
		System:       analyzerSystemPrompt,
		Prompt:       buildAnalysisPrompt(in),
		MaxTokens:    300,
		JSONResponse: true,
	})
	a.metrics.RecordProviderCall("analysis", time.Since(start).Seconds())
	if err != nil {
		reason := failureReason(err)
		a.logger.Warn().Err(err).Str("reason", reason).Msg("Answer analysis failed, using neutral fallback")
		a.metrics.RecordProviderFallback("analysis", reason)
		return neutralFallback(reason), completion.Usage{}
	}

	var j judgment
	if err := json.Unmarshal([]byte(extractJSON(resp.Text)), &j); err != nil {
		a.logger.Warn().Err(err).Str("reason", "malformed_output").Msg("Answer analysis unparseable, using neutral fallback")
		a.metrics.RecordProviderFallback("analysis", "malformed_output")
		return neutralFallback("malformed_output"), resp.Usage
	}

	return models.ResponseAnalysis{
		Confidence:           clamp01(j.Confidence),
		TechnicalAccuracy:    clamp01(j.TechnicalAccuracy),
		DepthOfUnderstanding: clamp01(j.DepthOfUnderstanding),
		HesitationIndicators: j.HesitationIndicators,
		Proficiency:          parseSignal(j.Proficiency),
	}, resp.Usage
}

func buildAnalysisPrompt(in Input) string {
	return fmt.Sprintf("Role: %s\nDifficulty: %s\n\nQuestion:\n%s\n\nCandidate answer:\n%s",
		in.RoleType, in.Phase, in.Question, in.Answer)
}

// neutralFallback is the fixed judgment used when the provider fails.
// The hesitation marker names the failure mode for downstream review.
func neutralFallback(reason string) models.ResponseAnalysis {
	return models.ResponseAnalysis{
		Confidence:           0.5,
		TechnicalAccuracy:    0.5,
		DepthOfUnderstanding: 0.5,
		HesitationIndicators: []string{"analysis_fallback:" + reason},
		Proficiency:          models.SignalIntermediate,
	}
}

func failureReason(err error) string {
	if e, ok := err.(interface{ Timeout() bool }); ok && e.Timeout() {
		return "timeout"
	}
	if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "deadline exceeded") {
		return "timeout"
	}
	return "provider_error"
}

func parseSignal(s string) models.ProficiencySignal {
	switch models.ProficiencySignal(strings.ToLower(strings.TrimSpace(s))) {
	case models.SignalNovice:
		return models.SignalNovice
	case models.SignalProficient:
		return models.SignalProficient
	case models.SignalExpert:
		return models.SignalExpert
	default:
		return models.SignalIntermediate
	}
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// extractJSON strips markdown code fences some providers wrap around
// structured output.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
