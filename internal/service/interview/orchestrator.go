// Package interview coordinates one candidate turn: quality analysis,
// boundary detection, difficulty progression and question generation,
// plus message and session persistence.
package interview

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"ai-interview-engine/internal/events"
	"ai-interview-engine/internal/models"
	"ai-interview-engine/internal/observability/logging"
	"ai-interview-engine/internal/observability/metrics"
	"ai-interview-engine/internal/service/analysis"
	"ai-interview-engine/internal/service/boundary"
	"ai-interview-engine/internal/service/completion"
	"ai-interview-engine/internal/service/memory"
	"ai-interview-engine/internal/service/progression"
	"ai-interview-engine/internal/service/question"
	"ai-interview-engine/internal/store"
)

// Orchestrator owns the per-turn control flow. The caller serializes
// concurrent turns against the same session; the orchestrator itself
// holds no locks.
type Orchestrator struct {
	repo       store.Repository
	analyzer   *analysis.Analyzer
	detector   *boundary.Detector
	controller *progression.Controller
	generator  *question.Generator
	codec      *memory.Codec
	publisher  *events.Publisher
	logger     zerolog.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
}

// NewOrchestrator wires the turn pipeline.
func NewOrchestrator(
	repo store.Repository,
	analyzer *analysis.Analyzer,
	detector *boundary.Detector,
	controller *progression.Controller,
	generator *question.Generator,
	codec *memory.Codec,
	publisher *events.Publisher,
	logger zerolog.Logger,
) *Orchestrator {
	return &Orchestrator{
		repo:       repo,
		analyzer:   analyzer,
		detector:   detector,
		controller: controller,
		generator:  generator,
		codec:      codec,
		publisher:  publisher,
		logger:     logger,
		metrics:    metrics.DefaultMetrics,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// TurnResult is the outcome of one processed turn.
type TurnResult struct {
	Question  question.Question
	Analysis  models.ResponseAnalysis
	Phase     models.Phase
	Skill     string
	Boundary  boundary.Outcome
	Completed bool
	AnswerSeq int
}

// ProcessTurn runs one candidate-answer → next-question cycle and
// persists the updated session. On failure before the question message
// is persisted, neither the questions-asked counter nor the phase is
// mutated.
func (o *Orchestrator) ProcessTurn(ctx context.Context, sess *models.InterviewSession, answer string) (*TurnResult, error) {
	if sess.Status != models.StatusActive {
		return nil, store.ErrInterviewClosed
	}

	start := o.now()
	o.metrics.TurnsTotal.Inc()
	logger := logging.WithTurn(o.logger, sess.InterviewID, sess.ID, sess.QuestionsAsked)

	// (1) Persist the candidate's message at the next sequence number.
	answerMsg, err := o.repo.AppendMessage(ctx, sess.ID, models.MessageCandidateResponse, answer, nil)
	if err != nil {
		o.metrics.TurnsFailed.Inc()
		return nil, err
	}

	// (2) Deserialize conversation memory.
	memMessages, memMeta, err := o.codec.Deserialize(sess.MemoryRecord)
	if err != nil {
		o.metrics.TurnsFailed.Inc()
		return nil, err
	}
	if memMeta.CreatedAt.IsZero() {
		memMeta.CreatedAt = start
	}
	lastQuestion, skill := lastQuestionContext(memMessages)

	// (3) Analyze answer quality. Never fails; falls back to a neutral
	// judgment on provider failure.
	resultAnalysis, analysisUsage := o.analyzer.Analyze(ctx, analysis.Input{
		Answer:   answer,
		Question: lastQuestion,
		RoleType: sess.RoleType,
		Phase:    sess.Phase,
	})

	quality := models.QualityRecord{
		QuestionIndex:    sess.QuestionsAsked,
		Phase:            sess.Phase,
		Confidence:       resultAnalysis.Confidence,
		Accuracy:         resultAnalysis.TechnicalAccuracy,
		Proficiency:      resultAnalysis.Proficiency,
		BoundaryDetected: o.detector.Classify(resultAnalysis) == models.ProficiencyBoundaryReached,
	}

	// (4) Boundary detection, progression decision and question
	// generation are independent given the analysis; run them as a
	// fork/join group. The branches only read the snapshots captured
	// here; session mutation happens after the join.
	progressionSnapshot := snapshotWithQuality(sess.Progression, quality)
	params := question.Params{
		Phase:          sess.Phase,
		RoleType:       sess.RoleType,
		RecentExcerpt:  recentExcerpt(memMessages, answer),
		ExploredSkills: append([]string(nil), sess.Progression.ExploredSkills...),
		BoundarySkills: sess.BoundarySkills(),
	}

	var (
		boundaryLevel models.ProficiencyLevel
		nextPhase     models.Phase
		nextQuestion  question.Question
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		boundaryLevel = o.detector.Classify(resultAnalysis)
		return nil
	})
	g.Go(func() error {
		nextPhase = o.controller.Decide(progressionSnapshot, sess.Phase)
		return nil
	})
	g.Go(func() error {
		nextQuestion = o.generator.Generate(gctx, params)
		return nil
	})
	if err := g.Wait(); err != nil {
		o.metrics.TurnsFailed.Inc()
		return nil, err
	}
	logger.Debug().
		Str("boundaryLevel", string(boundaryLevel)).
		Str("decidedPhase", string(nextPhase)).
		Bool("fallbackQuestion", nextQuestion.Fallback).
		Msg("Turn decisions joined")

	// (5) Persist the generated question before mutating any counters,
	// so an aborted turn leaves the session untouched.
	questionMeta := &models.MessageMetadata{
		SkillArea: nextQuestion.SkillArea,
		Phase:     nextQuestion.Phase,
		Fallback:  nextQuestion.Fallback,
	}
	questionMsg, err := o.repo.AppendMessage(ctx, sess.ID, models.MessageAIQuestion, nextQuestion.Text, questionMeta)
	if err != nil {
		o.metrics.TurnsFailed.Inc()
		return nil, err
	}

	// Apply session mutations sequentially.
	now := o.now()
	outcome := o.detector.Record(sess, skill, resultAnalysis, sess.QuestionsAsked, now)
	sess.Progression.QualityHistory = append(sess.Progression.QualityHistory, quality)
	question.Apply(sess, nextQuestion, now)
	o.controller.Apply(sess, nextPhase)

	// (6) Update conversation memory, truncating if needed.
	memMessages = append(memMessages, *answerMsg, *questionMsg)
	memMeta.UpdatedAt = now
	record, err := o.codec.Serialize(memMessages, memMeta)
	if err != nil {
		o.metrics.TurnsFailed.Inc()
		return nil, err
	}
	if o.codec.NeedsTruncation(record) {
		record, err = o.codec.Truncate(record, now)
		if err != nil {
			o.metrics.TurnsFailed.Inc()
			return nil, err
		}
		o.metrics.MemoryTruncations.Inc()
	}
	sess.MemoryRecord = record

	completed := IsComplete(sess)
	if completed {
		sess.Status = models.StatusCompleted
		o.metrics.InterviewsComplete.Inc()
		logger.Info().Int("questionsAsked", sess.QuestionsAsked).Msg("Interview complete")
	}

	// (7) Persist session state and publish usage accounting
	// concurrently. Usage publishing is a best-effort side path: its
	// failure is logged, never propagated.
	pg, pctx := errgroup.WithContext(ctx)
	pg.Go(func() error {
		return o.repo.SaveSession(pctx, sess)
	})
	pg.Go(func() error {
		o.publishUsage(pctx, sess, "analysis", analysisUsage)
		o.publishUsage(pctx, sess, "question", nextQuestion.Usage)
		return nil
	})
	if err := pg.Wait(); err != nil {
		o.metrics.TurnsFailed.Inc()
		return nil, err
	}

	o.metrics.TurnDuration.Observe(o.now().Sub(start).Seconds())
	logger.Info().
		Str("phase", string(sess.Phase)).
		Str("skill", skill).
		Str("level", string(outcome.Level)).
		Bool("fallbackQuestion", nextQuestion.Fallback).
		Bool("completed", completed).
		Msg("Turn processed")

	return &TurnResult{
		Question:  nextQuestion,
		Analysis:  resultAnalysis,
		Phase:     sess.Phase,
		Skill:     skill,
		Boundary:  outcome,
		Completed: completed,
		AnswerSeq: answerMsg.Sequence,
	}, nil
}

func (o *Orchestrator) publishUsage(ctx context.Context, sess *models.InterviewSession, operation string, usage completion.Usage) {
	if usage.PromptTokens == 0 && usage.CompletionTokens == 0 {
		return
	}
	ev := events.UsageEvent{
		EventType:        "interview.usage",
		InterviewID:      sess.InterviewID,
		SessionID:        sess.ID,
		Operation:        operation,
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		Timestamp:        o.now().UnixMilli(),
	}
	if err := o.publisher.PublishUsage(ctx, sess.InterviewID, ev); err != nil {
		o.logger.Warn().Err(err).Str("operation", operation).Msg("Usage accounting publish failed")
	}
}

// lastQuestionContext returns the text and skill area of the most recent
// AI question in memory.
func lastQuestionContext(messages []models.Message) (text, skill string) {
	skill = "general"
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Type == models.MessageAIQuestion {
			text = messages[i].Content
			if messages[i].Metadata != nil && messages[i].Metadata.SkillArea != "" {
				skill = messages[i].Metadata.SkillArea
			}
			return text, skill
		}
	}
	return "", skill
}

// recentExcerpt renders the last few exchanges plus the current answer
// for the question-generation prompt.
func recentExcerpt(messages []models.Message, answer string) string {
	const maxMessages = 6
	start := 0
	if len(messages) > maxMessages {
		start = len(messages) - maxMessages
	}

	var b strings.Builder
	for _, m := range messages[start:] {
		switch m.Type {
		case models.MessageAIQuestion:
			b.WriteString("Interviewer: ")
		case models.MessageCandidateResponse:
			b.WriteString("Candidate: ")
		default:
			continue
		}
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	b.WriteString("Candidate: ")
	b.WriteString(answer)
	return b.String()
}

func snapshotWithQuality(state models.ProgressionState, q models.QualityRecord) models.ProgressionState {
	snap := state
	snap.QualityHistory = make([]models.QualityRecord, 0, len(state.QualityHistory)+1)
	snap.QualityHistory = append(snap.QualityHistory, state.QualityHistory...)
	snap.QualityHistory = append(snap.QualityHistory, q)
	return snap
}
