package progression

import (
	"math/rand"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"ai-interview-engine/internal/models"
)

func newController() *Controller {
	return NewController(DefaultThresholds(), zerolog.Nop())
}

func quality(phase models.Phase, conf, acc float64, signal models.ProficiencySignal) models.QualityRecord {
	return models.QualityRecord{Phase: phase, Confidence: conf, Accuracy: acc, Proficiency: signal}
}

func TestDecide_WarmupAdvances(t *testing.T) {
	c := newController()
	state := models.ProgressionState{
		QualityHistory: []models.QualityRecord{
			quality(models.PhaseWarmup, 0.8, 0.7, models.SignalProficient),
			quality(models.PhaseWarmup, 0.75, 0.65, models.SignalIntermediate),
		},
	}

	// confidence [0.8, 0.75], no accuracy < 0.6 → advance after 2nd turn.
	require.Equal(t, models.PhaseStandard, c.Decide(state, models.PhaseWarmup))
}

func TestDecide_WarmupStays_LowConfidence(t *testing.T) {
	c := newController()
	state := models.ProgressionState{
		QualityHistory: []models.QualityRecord{
			quality(models.PhaseWarmup, 0.4, 0.8, models.SignalNovice),
			quality(models.PhaseWarmup, 0.9, 0.8, models.SignalProficient),
		},
	}

	// average confidence 0.65 < 0.7 → stay.
	require.Equal(t, models.PhaseWarmup, c.Decide(state, models.PhaseWarmup))
}

func TestDecide_WarmupStays_AccuracyFloor(t *testing.T) {
	c := newController()
	state := models.ProgressionState{
		QualityHistory: []models.QualityRecord{
			quality(models.PhaseWarmup, 0.9, 0.9, models.SignalExpert),
			quality(models.PhaseWarmup, 0.9, 0.55, models.SignalProficient),
		},
	}

	// one response below the 0.6 accuracy floor blocks advancement.
	require.Equal(t, models.PhaseWarmup, c.Decide(state, models.PhaseWarmup))
}

func TestDecide_WarmupStays_TooFewQuestions(t *testing.T) {
	c := newController()
	state := models.ProgressionState{
		QualityHistory: []models.QualityRecord{
			quality(models.PhaseWarmup, 0.95, 0.95, models.SignalExpert),
		},
	}

	require.Equal(t, models.PhaseWarmup, c.Decide(state, models.PhaseWarmup))
}

func standardHistory(signals []models.ProficiencySignal, boundaryInLast3 bool) models.ProgressionState {
	state := models.ProgressionState{}
	for i, s := range signals {
		q := quality(models.PhaseStandard, 0.85, 0.85, s)
		if boundaryInLast3 && i == len(signals)-1 {
			q.BoundaryDetected = true
		}
		state.QualityHistory = append(state.QualityHistory, q)
	}
	return state
}

func TestDecide_StandardAdvances(t *testing.T) {
	c := newController()
	state := standardHistory([]models.ProficiencySignal{
		models.SignalIntermediate, models.SignalProficient,
		models.SignalProficient, models.SignalExpert,
	}, false)

	require.Equal(t, models.PhaseAdvanced, c.Decide(state, models.PhaseStandard))
}

func TestDecide_StandardStays_WeakRecentSignals(t *testing.T) {
	c := newController()
	state := standardHistory([]models.ProficiencySignal{
		models.SignalExpert, models.SignalExpert,
		models.SignalIntermediate, models.SignalNovice, models.SignalIntermediate,
	}, false)

	// Only the last 3 signals count; none are strong enough.
	require.Equal(t, models.PhaseStandard, c.Decide(state, models.PhaseStandard))
}

func TestDecide_StandardStays_RecentBoundary(t *testing.T) {
	c := newController()
	state := standardHistory([]models.ProficiencySignal{
		models.SignalProficient, models.SignalProficient,
		models.SignalProficient, models.SignalExpert,
	}, true)

	require.Equal(t, models.PhaseStandard, c.Decide(state, models.PhaseStandard))
}

func TestDecide_StandardStays_LowAvgAccuracy(t *testing.T) {
	c := newController()
	state := models.ProgressionState{
		QualityHistory: []models.QualityRecord{
			quality(models.PhaseStandard, 0.9, 0.6, models.SignalProficient),
			quality(models.PhaseStandard, 0.9, 0.7, models.SignalProficient),
			quality(models.PhaseStandard, 0.9, 0.8, models.SignalExpert),
			quality(models.PhaseStandard, 0.9, 0.8, models.SignalExpert),
		},
	}

	// average accuracy 0.725 < 0.8 → stay.
	require.Equal(t, models.PhaseStandard, c.Decide(state, models.PhaseStandard))
}

func TestDecide_AdvancedIsTerminal(t *testing.T) {
	c := newController()
	state := standardHistory([]models.ProficiencySignal{
		models.SignalExpert, models.SignalExpert, models.SignalExpert, models.SignalExpert,
	}, false)

	require.Equal(t, models.PhaseAdvanced, c.Decide(state, models.PhaseAdvanced))
}

// Phase is non-decreasing across any sequence of random response
// qualities.
func TestDecide_PhaseNeverRegresses(t *testing.T) {
	c := newController()
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 100; trial++ {
		state := models.ProgressionState{}
		phase := models.PhaseWarmup

		for turn := 0; turn < 30; turn++ {
			signals := []models.ProficiencySignal{
				models.SignalNovice, models.SignalIntermediate,
				models.SignalProficient, models.SignalExpert,
			}
			state.QualityHistory = append(state.QualityHistory, models.QualityRecord{
				Phase:            phase,
				Confidence:       rng.Float64(),
				Accuracy:         rng.Float64(),
				Proficiency:      signals[rng.Intn(len(signals))],
				BoundaryDetected: rng.Float64() < 0.2,
			})

			next := c.Decide(state, phase)
			require.GreaterOrEqual(t, next.Rank(), phase.Rank(),
				"trial %d turn %d: phase regressed from %s to %s", trial, turn, phase, next)
			phase = next
		}
	}
}

func TestApply_RecordsTransition(t *testing.T) {
	c := newController()
	sess := models.NewInterviewSession("s1", "i1", "backend_engineer", time.Now().UTC())

	c.Apply(sess, models.PhaseStandard)
	require.Equal(t, models.PhaseStandard, sess.Phase)
	require.Len(t, sess.Progression.PhaseHistory, 2)
	require.Equal(t, models.PhaseStandard, sess.Progression.PhaseHistory[1].Phase)

	// Unchanged phase is a no-op.
	c.Apply(sess, models.PhaseStandard)
	require.Len(t, sess.Progression.PhaseHistory, 2)

	// Regression is refused.
	c.Apply(sess, models.PhaseWarmup)
	require.Equal(t, models.PhaseStandard, sess.Phase)
}
