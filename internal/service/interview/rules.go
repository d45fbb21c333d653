package interview

import "ai-interview-engine/internal/models"

// Completion thresholds. An interview always ends at the hard cap; it
// may end earlier once enough signal has been gathered.
const (
	maxQuestions         = 20
	minQuestions         = 12
	strongSkillsRequired = 2
)

// IsComplete reports whether the session has gathered enough signal to
// end the interview: the hard question cap, or the minimum question
// count combined with either enough confidently-assessed skills or a
// full sweep of all difficulty phases.
func IsComplete(sess *models.InterviewSession) bool {
	if sess.QuestionsAsked >= maxQuestions {
		return true
	}
	if sess.QuestionsAsked < minQuestions {
		return false
	}
	if sess.StrongSkillCount() >= strongSkillsRequired {
		return true
	}
	return sess.Progression.HasPhase(models.PhaseWarmup) &&
		sess.Progression.HasPhase(models.PhaseStandard) &&
		sess.Progression.HasPhase(models.PhaseAdvanced)
}
