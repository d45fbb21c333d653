package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"ai-interview-engine/internal/models"
)

// MemStore is an in-memory Repository used in tests and local development.
type MemStore struct {
	mu       sync.Mutex
	sessions map[string]*models.InterviewSession
	messages map[string][]models.Message
}

// NewMemStore creates an empty in-memory repository.
func NewMemStore() *MemStore {
	return &MemStore{
		sessions: make(map[string]*models.InterviewSession),
		messages: make(map[string][]models.Message),
	}
}

// CreateSession stores a new session.
func (m *MemStore) CreateSession(ctx context.Context, sess *models.InterviewSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.ID] = cloneSession(sess)
	return nil
}

// GetSession loads a session by its ID.
func (m *MemStore) GetSession(ctx context.Context, sessionID string) (*models.InterviewSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneSession(sess), nil
}

// GetSessionByInterview loads the session for an interview.
func (m *MemStore) GetSessionByInterview(ctx context.Context, interviewID string) (*models.InterviewSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sess := range m.sessions {
		if sess.InterviewID == interviewID {
			return cloneSession(sess), nil
		}
	}
	return nil, ErrNotFound
}

// SaveSession persists the full session state.
func (m *MemStore) SaveSession(ctx context.Context, sess *models.InterviewSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[sess.ID]; !ok {
		return ErrNotFound
	}
	sess.UpdatedAt = time.Now().UTC()
	m.sessions[sess.ID] = cloneSession(sess)
	return nil
}

// AppendMessage writes a message at the next sequence number.
func (m *MemStore) AppendMessage(ctx context.Context, sessionID string, msgType models.MessageType, content string, meta *models.MessageMetadata) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	if sess.Status != models.StatusActive {
		return nil, ErrInterviewClosed
	}

	msg := models.Message{
		Sequence:  len(m.messages[sessionID]) + 1,
		Type:      msgType,
		Content:   content,
		Metadata:  meta,
		CreatedAt: time.Now().UTC(),
	}
	m.messages[sessionID] = append(m.messages[sessionID], msg)
	return &msg, nil
}

// AttachEvaluation attaches evaluation metadata to the most recent
// candidate message.
func (m *MemStore) AttachEvaluation(ctx context.Context, sessionID string, meta *models.MessageMetadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs := m.messages[sessionID]
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Type == models.MessageCandidateResponse {
			msgs[i].Metadata = meta
			return nil
		}
	}
	return ErrNotFound
}

// ListMessages returns up to limit most recent messages in sequence order.
func (m *MemStore) ListMessages(ctx context.Context, sessionID string, limit int) ([]models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs := m.messages[sessionID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]models.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

// Close is a no-op.
func (m *MemStore) Close() error {
	return nil
}

// cloneSession deep-copies a session via JSON round trip so callers never
// share mutable state with the store.
func cloneSession(sess *models.InterviewSession) *models.InterviewSession {
	b, _ := json.Marshal(sess)
	var out models.InterviewSession
	_ = json.Unmarshal(b, &out)
	if out.SkillBoundaries == nil {
		out.SkillBoundaries = make(map[string]models.ProficiencyLevel)
	}
	return &out
}
