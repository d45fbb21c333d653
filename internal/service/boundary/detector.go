// Package boundary classifies response analyses into proficiency levels
// and records skill-boundary events on the session.
package boundary

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"ai-interview-engine/internal/models"
	"ai-interview-engine/internal/observability/metrics"
)

// DefaultBoundaryThreshold is the default confidence threshold below
// which an answer marks the skill boundary as reached.
const DefaultBoundaryThreshold = 0.5

// Classify derives a proficiency level from a response analysis. Pure
// function of (confidence, accuracy); interval bounds are closed, so an
// exact threshold value resolves to the higher tier.
func Classify(a models.ResponseAnalysis, boundaryThreshold float64) models.ProficiencyLevel {
	conf := a.Confidence
	acc := a.TechnicalAccuracy

	switch {
	case conf >= 0.8 && acc >= 0.8:
		return models.ProficiencyComfortable
	case conf >= 0.7 && acc >= 0.7:
		return models.ProficiencyProficient
	case conf >= boundaryThreshold && acc >= 0.5:
		return models.ProficiencyIntermediate
	default:
		return models.ProficiencyBoundaryReached
	}
}

// Detector records classification outcomes on the session state.
type Detector struct {
	threshold float64
	logger    zerolog.Logger
	metrics   *metrics.Metrics
}

// NewDetector creates a detector with the given boundary confidence
// threshold. A non-positive threshold falls back to the default.
func NewDetector(threshold float64, logger zerolog.Logger) *Detector {
	if threshold <= 0 {
		threshold = DefaultBoundaryThreshold
	}
	return &Detector{
		threshold: threshold,
		logger:    logger,
		metrics:   metrics.DefaultMetrics,
	}
}

// Classify classifies with the detector's configured threshold.
func (d *Detector) Classify(a models.ResponseAnalysis) models.ProficiencyLevel {
	return Classify(a, d.threshold)
}

// Outcome is the result of recording one analysis.
type Outcome struct {
	Skill           string
	Level           models.ProficiencyLevel
	BoundaryReached bool
}

// Record classifies the analysis and updates the session's skill map.
// On boundary_reached it also appends an entry to the boundary log.
// questionIndex is the index of the question the answer belongs to.
func (d *Detector) Record(sess *models.InterviewSession, skill string, a models.ResponseAnalysis, questionIndex int, now time.Time) Outcome {
	level := Classify(a, d.threshold)

	if sess.SkillBoundaries == nil {
		sess.SkillBoundaries = make(map[string]models.ProficiencyLevel)
	}
	sess.SkillBoundaries[skill] = level
	sess.Progression.AddExploredSkill(skill)

	out := Outcome{Skill: skill, Level: level}
	if level != models.ProficiencyBoundaryReached {
		return out
	}

	out.BoundaryReached = true
	sess.Progression.BoundaryLog = append(sess.Progression.BoundaryLog, models.BoundaryLogEntry{
		Skill:         skill,
		DetectedAt:    now,
		Evidence:      evidenceSummary(a),
		QuestionIndex: questionIndex,
	})
	d.metrics.BoundariesDetected.Inc()
	d.logger.Info().
		Str("skill", skill).
		Int("questionIndex", questionIndex).
		Float64("confidence", a.Confidence).
		Float64("accuracy", a.TechnicalAccuracy).
		Msg("Skill boundary reached")

	return out
}

func evidenceSummary(a models.ResponseAnalysis) string {
	s := fmt.Sprintf("confidence=%.2f accuracy=%.2f depth=%.2f signal=%s",
		a.Confidence, a.TechnicalAccuracy, a.DepthOfUnderstanding, a.Proficiency)
	if len(a.HesitationIndicators) > 0 {
		s += fmt.Sprintf(" hesitations=%v", a.HesitationIndicators)
	}
	return s
}
