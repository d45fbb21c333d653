package analysis

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"ai-interview-engine/internal/models"
	"ai-interview-engine/internal/service/completion/mock"
)

func newAnalyzer(p *mock.Provider) *Analyzer {
	return NewAnalyzer(p, 5*time.Second, zerolog.Nop())
}

func testInput() Input {
	return Input{
		Answer:   "I would shard by tenant and use consistent hashing.",
		Question: "How would you scale this database?",
		RoleType: "backend_engineer",
		Phase:    models.PhaseStandard,
	}
}

func TestAnalyze_ParsesJudgment(t *testing.T) {
	p := mock.New()
	p.QueueResponse(`{"confidence":0.82,"technical_accuracy":0.9,"depth_of_understanding":0.7,"hesitation_indicators":["restarted sentence"],"proficiency":"expert"}`)

	got, usage := newAnalyzer(p).Analyze(context.Background(), testInput())

	require.InDelta(t, 0.82, got.Confidence, 1e-9)
	require.InDelta(t, 0.9, got.TechnicalAccuracy, 1e-9)
	require.Equal(t, models.SignalExpert, got.Proficiency)
	require.Equal(t, []string{"restarted sentence"}, got.HesitationIndicators)
	require.Equal(t, 100, usage.PromptTokens)
}

func TestAnalyze_CodeFencedJudgment(t *testing.T) {
	p := mock.New()
	p.QueueResponse("```json\n{\"confidence\":0.6,\"technical_accuracy\":0.6,\"depth_of_understanding\":0.5,\"proficiency\":\"intermediate\"}\n```")

	got, _ := newAnalyzer(p).Analyze(context.Background(), testInput())
	require.InDelta(t, 0.6, got.Confidence, 1e-9)
	require.Equal(t, models.SignalIntermediate, got.Proficiency)
}

func TestAnalyze_ClampsOutOfRangeValues(t *testing.T) {
	p := mock.New()
	p.QueueResponse(`{"confidence":1.7,"technical_accuracy":-0.3,"depth_of_understanding":0.5,"proficiency":"proficient"}`)

	got, _ := newAnalyzer(p).Analyze(context.Background(), testInput())
	require.Equal(t, 1.0, got.Confidence)
	require.Equal(t, 0.0, got.TechnicalAccuracy)
}

func TestAnalyze_ProviderError_NeutralFallback(t *testing.T) {
	p := mock.New()
	p.QueueError(errors.New("upstream unavailable"))

	got, usage := newAnalyzer(p).Analyze(context.Background(), testInput())

	require.Equal(t, 0.5, got.Confidence)
	require.Equal(t, 0.5, got.TechnicalAccuracy)
	require.Equal(t, 0.5, got.DepthOfUnderstanding)
	require.Equal(t, models.SignalIntermediate, got.Proficiency)
	require.Equal(t, []string{"analysis_fallback:provider_error"}, got.HesitationIndicators)
	require.Zero(t, usage.PromptTokens)
}

func TestAnalyze_Timeout_NeutralFallback(t *testing.T) {
	p := mock.New()
	p.QueueError(context.DeadlineExceeded)

	got, _ := newAnalyzer(p).Analyze(context.Background(), testInput())
	require.Equal(t, []string{"analysis_fallback:timeout"}, got.HesitationIndicators)
}

// opaqueTimeout wraps a deadline error behind a message that does not
// mention it, the way layered transport errors often do.
type opaqueTimeout struct{ cause error }

func (e opaqueTimeout) Error() string { return "provider call failed" }
func (e opaqueTimeout) Unwrap() error { return e.cause }

func TestAnalyze_WrappedTimeout_NeutralFallback(t *testing.T) {
	p := mock.New()
	p.QueueError(opaqueTimeout{cause: context.DeadlineExceeded})

	got, _ := newAnalyzer(p).Analyze(context.Background(), testInput())
	require.Equal(t, []string{"analysis_fallback:timeout"}, got.HesitationIndicators)
}

func TestAnalyze_MalformedOutput_NeutralFallback(t *testing.T) {
	p := mock.New()
	p.QueueResponse("The candidate seems fine to me!")

	got, _ := newAnalyzer(p).Analyze(context.Background(), testInput())
	require.Equal(t, 0.5, got.Confidence)
	require.Equal(t, []string{"analysis_fallback:malformed_output"}, got.HesitationIndicators)
}

func TestAnalyze_UnknownProficiencyDefaultsIntermediate(t *testing.T) {
	p := mock.New()
	p.QueueResponse(`{"confidence":0.7,"technical_accuracy":0.7,"depth_of_understanding":0.7,"proficiency":"wizard"}`)

	got, _ := newAnalyzer(p).Analyze(context.Background(), testInput())
	require.Equal(t, models.SignalIntermediate, got.Proficiency)
}
