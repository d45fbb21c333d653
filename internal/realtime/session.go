// Package realtime proxies live voice conversations between the
// candidate's client and the upstream speech-conversation provider.
package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"ai-interview-engine/internal/config"
	"ai-interview-engine/internal/models"
	"ai-interview-engine/internal/realtime/upstream"
	"ai-interview-engine/internal/service/interview"
)

// ErrInitTimeout is returned when the provider does not acknowledge
// session configuration within the bounded wait.
var ErrInitTimeout = errors.New("upstream session initialization timed out")

// EvaluateAnswerTool is the function tool declared to the provider.
const EvaluateAnswerTool = "evaluate_candidate_answer"

// evaluateAnswerSchema is the JSON schema of the tool's arguments.
const evaluateAnswerSchema = `{
  "type": "object",
  "properties": {
    "answer_quality": {"type": "string", "enum": ["excellent", "good", "needs_clarification", "off_topic"]},
    "key_points_covered": {"type": "array", "items": {"type": "string"}},
    "skill_area": {"type": "string"},
    "proficiency_level": {"type": "string", "enum": ["novice", "intermediate", "proficient", "expert"]},
    "next_action": {"type": "string", "enum": ["continue", "follow_up", "move_to_next_topic"]},
    "follow_up_needed": {"type": "boolean"}
  },
  "required": ["answer_quality", "key_points_covered", "next_action", "follow_up_needed"]
}`

// SessionManager builds upstream session configuration and performs the
// initialization exchange.
type SessionManager struct {
	cfg    config.RealtimeConfig
	logger zerolog.Logger
}

// NewSessionManager creates a session manager.
func NewSessionManager(cfg config.RealtimeConfig, logger zerolog.Logger) *SessionManager {
	return &SessionManager{cfg: cfg, logger: logger}
}

// BuildSessionConfig renders the provider session configuration for the
// interview session's current state. On the first turn the instructions
// include the scripted greeting.
func (m *SessionManager) BuildSessionConfig(sess *models.InterviewSession) *upstream.SessionConfig {
	firstTurn := sess.QuestionsAsked == 0
	return &upstream.SessionConfig{
		Modalities:        []string{"text", "audio"},
		Instructions:      interview.BuildInstructions(sess, firstTurn),
		Voice:             m.cfg.Voice,
		InputAudioFormat:  "pcm16",
		OutputAudioFormat: "pcm16",
		InputAudioTranscription: &upstream.Transcription{
			Model: "whisper-1",
		},
		TurnDetection: &upstream.TurnDetection{
			Type:              "server_vad",
			Threshold:         0.5,
			PrefixPaddingMs:   300,
			SilenceDurationMs: 700,
		},
		Tools: []upstream.Tool{
			{
				Type:        "function",
				Name:        EvaluateAnswerTool,
				Description: "Evaluate the candidate's latest answer and recommend the next conversational action.",
				Parameters:  json.RawMessage(evaluateAnswerSchema),
			},
		},
		ToolChoice: "auto",
	}
}

// Initialize sends the session configuration and waits for the
// provider's acknowledgment. Idempotent: re-sending the same
// configuration is safe. On expiry of the bounded wait it returns
// ErrInitTimeout; the caller owns closing the connection, which
// unblocks the pending read.
func (m *SessionManager) Initialize(ctx context.Context, conn upstream.Conn, sc *upstream.SessionConfig) error {
	if err := conn.WriteEvent(&upstream.Event{Type: upstream.EventSessionUpdate, Session: sc}); err != nil {
		return errors.Wrap(err, "send session configuration")
	}

	type readResult struct {
		ev  *upstream.Event
		err error
	}
	ch := make(chan readResult, 1)
	go func() {
		for {
			ev, err := conn.ReadEvent()
			if err != nil {
				ch <- readResult{err: err}
				return
			}
			switch ev.Type {
			case upstream.EventSessionUpdated, upstream.EventError:
				ch <- readResult{ev: ev}
				return
			default:
				// Events preceding the acknowledgment are not relevant
				// to initialization.
			}
		}
	}()

	timeout := m.cfg.InitTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		if res.err != nil {
			return errors.Wrap(res.err, "await session acknowledgment")
		}
		if res.ev.Type == upstream.EventError {
			msg := "provider rejected session configuration"
			if res.ev.Error != nil {
				msg = res.ev.Error.Message
			}
			return errors.Errorf("session initialization failed: %s", msg)
		}
		m.logger.Debug().Msg("Upstream session configured")
		return nil
	case <-timer.C:
		return ErrInitTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}
