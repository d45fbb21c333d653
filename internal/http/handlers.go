package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ai-interview-engine/internal/models"
	"ai-interview-engine/internal/service/interview"
	"ai-interview-engine/internal/store"
)

// turnRequest is the body of POST /v1/interviews/{interviewID}/turn.
type turnRequest struct {
	Answer   string `json:"answer"`
	RoleType string `json:"role_type,omitempty"`
}

// turnResponse is the result of one processed turn.
type turnResponse struct {
	SessionID    string       `json:"session_id"`
	Question     string       `json:"question"`
	SkillArea    string       `json:"skill_area,omitempty"`
	Phase        models.Phase `json:"phase"`
	Fallback     bool         `json:"fallback,omitempty"`
	Completed    bool         `json:"completed"`
	QuestionsAsk int          `json:"questions_asked"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// turnHandler serializes turns per interview: one turn owns its session
// row at a time, mirroring the guarantee the connection registry gives
// the realtime path.
type turnHandler struct {
	repo         store.Repository
	orchestrator *interview.Orchestrator
	logger       zerolog.Logger
	locks        sync.Map // interview ID -> *sync.Mutex
}

func (h *turnHandler) lockInterview(interviewID string) func() {
	v, _ := h.locks.LoadOrStore(interviewID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (h *turnHandler) handleTurn(w http.ResponseWriter, r *http.Request) {
	interviewID := chi.URLParam(r, "interviewID")

	var req turnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad_request", Message: "invalid JSON body"})
		return
	}
	if strings.TrimSpace(req.Answer) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad_request", Message: "answer is required"})
		return
	}

	unlock := h.lockInterview(interviewID)
	defer unlock()

	sess, err := h.loadOrCreateSession(r.Context(), interviewID, req.RoleType)
	if err != nil {
		h.logger.Error().Err(err).Str("interviewId", interviewID).Msg("Session load failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal_error", Message: "failed to load session"})
		return
	}

	res, err := h.orchestrator.ProcessTurn(r.Context(), sess, req.Answer)
	if err != nil {
		if err == store.ErrInterviewClosed {
			writeJSON(w, http.StatusConflict, errorResponse{Error: "interview_closed", Message: "interview is no longer active"})
			return
		}
		h.logger.Error().Err(err).Str("interviewId", interviewID).Msg("Turn failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal_error", Message: "turn processing failed"})
		return
	}

	writeJSON(w, http.StatusOK, turnResponse{
		SessionID:    sess.ID,
		Question:     res.Question.Text,
		SkillArea:    res.Question.SkillArea,
		Phase:        res.Phase,
		Fallback:     res.Question.Fallback,
		Completed:    res.Completed,
		QuestionsAsk: sess.QuestionsAsked,
	})
}

func (h *turnHandler) loadOrCreateSession(ctx context.Context, interviewID, roleType string) (*models.InterviewSession, error) {
	sess, err := h.repo.GetSessionByInterview(ctx, interviewID)
	if err == nil {
		return sess, nil
	}
	if err != store.ErrNotFound {
		return nil, err
	}

	if roleType == "" {
		roleType = "software_engineer"
	}
	sess = models.NewInterviewSession(uuid.NewString(), interviewID, roleType, time.Now().UTC())
	if err := h.repo.CreateSession(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
