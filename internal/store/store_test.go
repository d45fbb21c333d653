package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ai-interview-engine/internal/models"
)

// repositories under test share one behavioral contract.
func repositories(t *testing.T) map[string]Repository {
	t.Helper()

	sqlite, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })

	return map[string]Repository{
		"sqlite": sqlite,
		"memory": NewMemStore(),
	}
}

func newTestSession(id string) *models.InterviewSession {
	return models.NewInterviewSession(id, "interview-"+id, "backend_engineer", time.Now().UTC())
}

func TestRepository_CreateAndGet(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			sess := newTestSession("s1")
			require.NoError(t, repo.CreateSession(ctx, sess))

			got, err := repo.GetSession(ctx, "s1")
			require.NoError(t, err)
			require.Equal(t, sess.InterviewID, got.InterviewID)
			require.Equal(t, models.PhaseWarmup, got.Phase)
			require.Equal(t, models.StatusActive, got.Status)
			require.NotNil(t, got.SkillBoundaries)

			byInterview, err := repo.GetSessionByInterview(ctx, sess.InterviewID)
			require.NoError(t, err)
			require.Equal(t, "s1", byInterview.ID)

			_, err = repo.GetSession(ctx, "missing")
			require.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestRepository_SaveSessionRoundTrip(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			sess := newTestSession("s2")
			require.NoError(t, repo.CreateSession(ctx, sess))

			sess.Phase = models.PhaseStandard
			sess.QuestionsAsked = 3
			sess.SkillBoundaries["goroutines"] = models.ProficiencyBoundaryReached
			sess.Progression.EnterPhase(models.PhaseStandard, time.Now().UTC())
			sess.Progression.QualityHistory = append(sess.Progression.QualityHistory, models.QualityRecord{
				QuestionIndex: 1, Phase: models.PhaseWarmup, Confidence: 0.8, Accuracy: 0.9,
				Proficiency: models.SignalProficient,
			})
			sess.MemoryRecord = []byte(`{"version":1,"messages":[]}`)
			require.NoError(t, repo.SaveSession(ctx, sess))

			got, err := repo.GetSession(ctx, "s2")
			require.NoError(t, err)
			require.Equal(t, models.PhaseStandard, got.Phase)
			require.Equal(t, 3, got.QuestionsAsked)
			require.Equal(t, models.ProficiencyBoundaryReached, got.SkillBoundaries["goroutines"])
			require.Len(t, got.Progression.PhaseHistory, 2)
			require.Len(t, got.Progression.QualityHistory, 1)
			require.JSONEq(t, `{"version":1,"messages":[]}`, string(got.MemoryRecord))
		})
	}
}

func TestRepository_AppendMessage_Sequencing(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			sess := newTestSession("s3")
			require.NoError(t, repo.CreateSession(ctx, sess))

			m1, err := repo.AppendMessage(ctx, "s3", models.MessageAIQuestion, "Tell me about Go interfaces.", nil)
			require.NoError(t, err)
			require.Equal(t, 1, m1.Sequence)

			m2, err := repo.AppendMessage(ctx, "s3", models.MessageCandidateResponse, "They define behavior.", nil)
			require.NoError(t, err)
			require.Equal(t, 2, m2.Sequence)

			msgs, err := repo.ListMessages(ctx, "s3", 0)
			require.NoError(t, err)
			require.Len(t, msgs, 2)
			require.Equal(t, models.MessageAIQuestion, msgs[0].Type)

			last, err := repo.ListMessages(ctx, "s3", 1)
			require.NoError(t, err)
			require.Len(t, last, 1)
			require.Equal(t, 2, last[0].Sequence)
		})
	}
}

func TestRepository_AppendMessage_ClosedInterview(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			sess := newTestSession("s4")
			require.NoError(t, repo.CreateSession(ctx, sess))

			sess.Status = models.StatusCompleted
			require.NoError(t, repo.SaveSession(ctx, sess))

			_, err := repo.AppendMessage(ctx, "s4", models.MessageCandidateResponse, "too late", nil)
			require.ErrorIs(t, err, ErrInterviewClosed)

			msgs, err := repo.ListMessages(ctx, "s4", 0)
			require.NoError(t, err)
			require.Empty(t, msgs)
		})
	}
}

func TestRepository_AttachEvaluation(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			sess := newTestSession("s5")
			require.NoError(t, repo.CreateSession(ctx, sess))

			_, err := repo.AppendMessage(ctx, "s5", models.MessageCandidateResponse, "first answer", nil)
			require.NoError(t, err)
			_, err = repo.AppendMessage(ctx, "s5", models.MessageAIQuestion, "next question", nil)
			require.NoError(t, err)
			_, err = repo.AppendMessage(ctx, "s5", models.MessageCandidateResponse, "second answer", nil)
			require.NoError(t, err)

			meta := &models.MessageMetadata{
				Evaluation: &models.FunctionCallEvaluation{
					AnswerQuality: models.AnswerGood,
					SkillArea:     "concurrency",
					NextAction:    models.ActionContinue,
				},
			}
			require.NoError(t, repo.AttachEvaluation(ctx, "s5", meta))

			msgs, err := repo.ListMessages(ctx, "s5", 0)
			require.NoError(t, err)
			require.Len(t, msgs, 3)

			// Only the most recent candidate message carries the evaluation.
			require.Nil(t, msgs[0].Metadata)
			require.NotNil(t, msgs[2].Metadata)
			require.Equal(t, models.AnswerGood, msgs[2].Metadata.Evaluation.AnswerQuality)
		})
	}
}
