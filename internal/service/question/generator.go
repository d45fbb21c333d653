// Package question produces the next interview question, avoiding skills
// whose boundary has been reached, with a deterministic fallback on
// provider failure.
package question

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"ai-interview-engine/internal/models"
	"ai-interview-engine/internal/observability/metrics"
	"ai-interview-engine/internal/service/completion"
)

const generatorSystemPrompt = `You are an expert technical interviewer. Generate the next interview
question for the candidate. Respond with a single JSON object:
{"question": "...", "skill_area": "..."}
Respond with JSON only, no prose.`

// Params is the context for generating one question.
type Params struct {
	Phase          models.Phase
	RoleType       string
	RecentExcerpt  string
	ExploredSkills []string
	BoundarySkills []string
}

// Question is one generated question.
type Question struct {
	Text      string
	SkillArea string
	Phase     models.Phase
	Fallback  bool
	Usage     completion.Usage
}

// Generator requests questions from the completion provider.
type Generator struct {
	provider completion.Provider
	timeout  time.Duration
	logger   zerolog.Logger
	metrics  *metrics.Metrics
}

// NewGenerator creates a generator with the given provider and timeout.
func NewGenerator(provider completion.Provider, timeout time.Duration, logger zerolog.Logger) *Generator {
	return &Generator{
		provider: provider,
		timeout:  timeout,
		logger:   logger,
		metrics:  metrics.DefaultMetrics,
	}
}

type generated struct {
	Question  string `json:"question"`
	SkillArea string `json:"skill_area"`
}

// Generate produces the next question. It never fails: on provider
// timeout or malformed output it returns the deterministic fallback for
// the role type. Counter and activity side effects are applied by the
// caller via Apply, after the question message is durably persisted.
func (g *Generator) Generate(ctx context.Context, p Params) Question {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.provider.Complete(ctx, completion.Request{
		System:       generatorSystemPrompt,
		Prompt:       buildGenerationPrompt(p),
		MaxTokens:    300,
		JSONResponse: true,
	})
	g.metrics.RecordProviderCall("question", time.Since(start).Seconds())
	if err != nil {
		g.logger.Warn().Err(err).Msg("Question generation failed, using fallback question")
		g.metrics.RecordProviderFallback("question", "provider_error")
		return FallbackQuestion(p)
	}

	var out generated
	if err := json.Unmarshal([]byte(extractJSON(resp.Text)), &out); err != nil || strings.TrimSpace(out.Question) == "" {
		g.logger.Warn().Err(err).Msg("Question generation unparseable, using fallback question")
		g.metrics.RecordProviderFallback("question", "malformed_output")
		return FallbackQuestion(p)
	}

	// The provider is instructed to avoid boundary-reached skills, but
	// the avoidance rule is enforced here too.
	for _, skill := range p.BoundarySkills {
		if out.SkillArea != "" && strings.EqualFold(out.SkillArea, skill) {
			g.logger.Warn().Str("skillArea", out.SkillArea).Msg("Generated question targets a boundary-reached skill, using fallback")
			g.metrics.RecordProviderFallback("question", "boundary_skill")
			return FallbackQuestion(p)
		}
	}

	return Question{
		Text:      strings.TrimSpace(out.Question),
		SkillArea: strings.TrimSpace(out.SkillArea),
		Phase:     p.Phase,
		Usage:     resp.Usage,
	}
}

// Apply records the side effects of a successful or fallback generation:
// the questions-asked counter, the per-phase question count and the
// last-activity timestamp.
func Apply(sess *models.InterviewSession, q Question, now time.Time) {
	sess.QuestionsAsked++
	sess.LastActivityAt = now
	if rec := sess.Progression.CurrentPhaseRecord(); rec != nil {
		rec.QuestionCount++
	}
	if q.SkillArea != "" {
		sess.Progression.AddExploredSkill(q.SkillArea)
	}
}

// FallbackQuestion returns the deterministic generic question for the
// role type and phase.
func FallbackQuestion(p Params) Question {
	role := strings.ReplaceAll(p.RoleType, "_", " ")
	if role == "" {
		role = "software engineer"
	}

	var text string
	switch p.Phase {
	case models.PhaseWarmup:
		text = fmt.Sprintf("Tell me about a recent project you worked on as a %s. What was your role and what did you build?", role)
	case models.PhaseAdvanced:
		text = fmt.Sprintf("Describe the most technically challenging problem you have solved as a %s. What made it hard and how did you approach it?", role)
	default:
		text = fmt.Sprintf("Walk me through how you would approach a typical design problem in your work as a %s.", role)
	}

	return Question{
		Text:     text,
		Phase:    p.Phase,
		Fallback: true,
	}
}

func buildGenerationPrompt(p Params) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Role: %s\nDifficulty: %s\n", p.RoleType, p.Phase)
	if len(p.ExploredSkills) > 0 {
		fmt.Fprintf(&b, "Skills already explored: %s\n", strings.Join(p.ExploredSkills, ", "))
	}
	if len(p.BoundarySkills) > 0 {
		fmt.Fprintf(&b, "Do NOT ask about these skills (candidate's boundary reached): %s\n", strings.Join(p.BoundarySkills, ", "))
	}
	if p.RecentExcerpt != "" {
		fmt.Fprintf(&b, "\nRecent conversation:\n%s\n", p.RecentExcerpt)
	}
	b.WriteString("\nGenerate the next question.")
	return b.String()
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
