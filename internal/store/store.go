// Package store persists interview sessions and messages.
package store

import (
	"context"

	"github.com/pkg/errors"

	"ai-interview-engine/internal/models"
)

var (
	// ErrNotFound is returned when a session does not exist.
	ErrNotFound = errors.New("session not found")
	// ErrInterviewClosed is returned when mutating a completed or
	// abandoned interview. No mutation is performed.
	ErrInterviewClosed = errors.New("interview already completed or abandoned")
)

// Repository persists sessions and their ordered message log.
type Repository interface {
	// CreateSession stores a new session.
	CreateSession(ctx context.Context, sess *models.InterviewSession) error

	// GetSession loads a session by its ID.
	GetSession(ctx context.Context, sessionID string) (*models.InterviewSession, error)

	// GetSessionByInterview loads the session for an interview.
	GetSessionByInterview(ctx context.Context, interviewID string) (*models.InterviewSession, error)

	// SaveSession persists the full session state.
	SaveSession(ctx context.Context, sess *models.InterviewSession) error

	// AppendMessage writes a message at the next sequence number and
	// returns it. Fails with ErrInterviewClosed if the session is not
	// active.
	AppendMessage(ctx context.Context, sessionID string, msgType models.MessageType, content string, meta *models.MessageMetadata) (*models.Message, error)

	// AttachEvaluation attaches evaluation metadata to the most recent
	// candidate message. Messages are otherwise immutable.
	AttachEvaluation(ctx context.Context, sessionID string, meta *models.MessageMetadata) error

	// ListMessages returns up to limit most recent messages in sequence
	// order. limit <= 0 returns all messages.
	ListMessages(ctx context.Context, sessionID string, limit int) ([]models.Message, error)

	// Close releases resources.
	Close() error
}
