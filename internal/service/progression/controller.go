// Package progression decides difficulty phase transitions for an
// interview session.
//
// Phase transitions:
//
//	warmup → standard → advanced
//
// Transitions are one-directional. A performance drop never regresses
// the phase; the controller only declines to advance.
package progression

import (
	"github.com/rs/zerolog"

	"ai-interview-engine/internal/models"
	"ai-interview-engine/internal/observability/metrics"
)

// Thresholds holds the configurable advancement criteria.
type Thresholds struct {
	// WarmupMinQuestions is the minimum questions answered in warmup
	// before standard is reachable.
	WarmupMinQuestions int
	// WarmupMinAvgConfidence is the minimum average confidence across
	// warmup responses.
	WarmupMinAvgConfidence float64
	// StandardMinQuestions is the minimum questions answered in standard
	// before advanced is reachable.
	StandardMinQuestions int
	// StandardMinAvgAccuracy is the minimum average accuracy across
	// standard responses.
	StandardMinAvgAccuracy float64
}

// warmupMinAccuracy is the floor below which any single warmup response
// blocks advancement. Fixed, not configurable.
const warmupMinAccuracy = 0.6

// DefaultThresholds returns the default advancement criteria.
func DefaultThresholds() Thresholds {
	return Thresholds{
		WarmupMinQuestions:     2,
		WarmupMinAvgConfidence: 0.7,
		StandardMinQuestions:   4,
		StandardMinAvgAccuracy: 0.8,
	}
}

// Controller decides phase advancement over session history.
type Controller struct {
	th      Thresholds
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// NewController creates a controller with the given thresholds.
func NewController(th Thresholds, logger zerolog.Logger) *Controller {
	return &Controller{
		th:      th,
		logger:  logger,
		metrics: metrics.DefaultMetrics,
	}
}

// Decide returns the phase the session should be in after the latest
// response. Pure over the progression state: it never mutates state and
// never returns a phase lower than current.
func (c *Controller) Decide(state models.ProgressionState, current models.Phase) models.Phase {
	switch current {
	case models.PhaseWarmup:
		if c.warmupComplete(state) {
			return models.PhaseStandard
		}
	case models.PhaseStandard:
		if c.standardComplete(state) {
			return models.PhaseAdvanced
		}
	case models.PhaseAdvanced:
		// Terminal.
	}

	if held, reason := c.heldBack(state, current); held {
		c.logger.Debug().
			Str("phase", string(current)).
			Str("reason", reason).
			Msg("Phase advancement held back")
	}
	return current
}

func (c *Controller) warmupComplete(state models.ProgressionState) bool {
	records := state.QualityInPhase(models.PhaseWarmup)
	if len(records) < c.th.WarmupMinQuestions {
		return false
	}

	var confSum float64
	for _, q := range records {
		if q.Accuracy < warmupMinAccuracy {
			return false
		}
		confSum += q.Confidence
	}
	return confSum/float64(len(records)) >= c.th.WarmupMinAvgConfidence
}

func (c *Controller) standardComplete(state models.ProgressionState) bool {
	records := state.QualityInPhase(models.PhaseStandard)
	if len(records) < c.th.StandardMinQuestions {
		return false
	}

	var accSum float64
	for _, q := range records {
		accSum += q.Accuracy
	}
	if accSum/float64(len(records)) < c.th.StandardMinAvgAccuracy {
		return false
	}

	last := state.LastQuality(3)
	strong := 0
	for _, q := range last {
		if q.BoundaryDetected {
			return false
		}
		if q.Proficiency.Strong() {
			strong++
		}
	}
	return strong >= 2
}

// heldBack reports whether advancement criteria exist but were not met,
// with a diagnostic reason.
func (c *Controller) heldBack(state models.ProgressionState, current models.Phase) (bool, string) {
	switch current {
	case models.PhaseWarmup:
		if len(state.QualityInPhase(models.PhaseWarmup)) >= c.th.WarmupMinQuestions {
			return true, "warmup quality criteria not met"
		}
	case models.PhaseStandard:
		if len(state.QualityInPhase(models.PhaseStandard)) >= c.th.StandardMinQuestions {
			return true, "standard quality criteria not met"
		}
	}
	return false, ""
}

// Apply moves the session to the decided phase, recording the transition
// in the phase history and metrics. No-op when the phase is unchanged.
func (c *Controller) Apply(sess *models.InterviewSession, next models.Phase) {
	if next == sess.Phase {
		return
	}
	if next.Rank() < sess.Phase.Rank() {
		// Regression is a bug in the caller; refuse it.
		c.logger.Error().
			Str("from", string(sess.Phase)).
			Str("to", string(next)).
			Msg("Refusing phase regression")
		return
	}

	c.metrics.RecordPhaseTransition(string(sess.Phase), string(next))
	c.logger.Info().
		Str("from", string(sess.Phase)).
		Str("to", string(next)).
		Int("questionsAsked", sess.QuestionsAsked).
		Msg("Difficulty phase advanced")

	sess.Phase = next
	sess.Progression.EnterPhase(next, sess.LastActivityAt)
}
