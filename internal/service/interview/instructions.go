package interview

import (
	"fmt"
	"strings"

	"ai-interview-engine/internal/models"
)

// BuildInstructions renders the interviewer system instructions for the
// session's current state. Shared by the turn pipeline and the realtime
// voice session, so both surfaces steer the provider identically.
func BuildInstructions(sess *models.InterviewSession, firstTurn bool) string {
	role := strings.ReplaceAll(sess.RoleType, "_", " ")
	if role == "" {
		role = "software engineer"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are conducting a technical interview for a %s position.\n", role)
	fmt.Fprintf(&b, "Current difficulty: %s. Questions asked so far: %d.\n", sess.Phase, sess.QuestionsAsked)
	b.WriteString("Ask one question at a time and keep your questions concise.\n")
	b.WriteString("After each candidate answer, evaluate it with the evaluate_candidate_answer function before responding.\n")

	if skills := sess.Progression.ExploredSkills; len(skills) > 0 {
		fmt.Fprintf(&b, "Skills already explored: %s.\n", strings.Join(skills, ", "))
	}
	if boundary := sess.BoundarySkills(); len(boundary) > 0 {
		fmt.Fprintf(&b, "Do NOT ask about these skills, the candidate's limit there is established: %s.\n",
			strings.Join(boundary, ", "))
	}

	if firstTurn && sess.QuestionsAsked == 0 {
		fmt.Fprintf(&b, "Start by greeting the candidate warmly and introducing yourself as the interviewer for the %s interview. Give this greeting exactly once, then wait for the candidate to confirm they are ready. Do not ask any interview question until they confirm.\n", role)
	} else {
		b.WriteString("Continue the interview from where it left off. Do not greet the candidate again.\n")
	}
	return b.String()
}
