package realtime

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"ai-interview-engine/internal/events"
	"ai-interview-engine/internal/models"
	"ai-interview-engine/internal/observability/logging"
	"ai-interview-engine/internal/observability/metrics"
	"ai-interview-engine/internal/realtime/protocol"
	"ai-interview-engine/internal/realtime/upstream"
	"ai-interview-engine/internal/service/boundary"
	"ai-interview-engine/internal/store"
)

// AuthFunc validates that the request may open a realtime connection for
// the interview. A non-nil error denies access.
type AuthFunc func(r *http.Request, interviewID string) error

// UpstreamDialer opens provider connections. Satisfied by
// *upstream.Dialer; narrowed to an interface for tests.
type UpstreamDialer interface {
	Dial(ctx context.Context) (upstream.Conn, error)
}

// Handler is the WebSocket endpoint hosting realtime interview sessions.
type Handler struct {
	repo      store.Repository
	manager   *SessionManager
	dialer    UpstreamDialer
	detector  *boundary.Detector
	publisher *events.Publisher
	registry  *Registry
	auth      AuthFunc
	upgrader  websocket.Upgrader
	logger    zerolog.Logger
	metrics   *metrics.Metrics
}

// NewHandler creates the realtime WebSocket handler. A nil auth allows
// every request.
func NewHandler(
	repo store.Repository,
	manager *SessionManager,
	dialer UpstreamDialer,
	detector *boundary.Detector,
	publisher *events.Publisher,
	registry *Registry,
	auth AuthFunc,
	logger zerolog.Logger,
) *Handler {
	return &Handler{
		repo:      repo,
		manager:   manager,
		dialer:    dialer,
		detector:  detector,
		publisher: publisher,
		registry:  registry,
		auth:      auth,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  32 * 1024,
			WriteBufferSize: 32 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger:  logger,
		metrics: metrics.DefaultMetrics,
	}
}

// ServeHTTP upgrades the connection and runs the relay until teardown.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	interviewID := chi.URLParam(r, "interviewID")
	if interviewID == "" {
		http.Error(w, "missing interview id", http.StatusBadRequest)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	client := newWSClient(ws)
	h.metrics.RealtimeConnectionsTotal.Inc()

	logger := logging.WithInterview(h.logger, interviewID)

	// Auth and session-state checks happen post-upgrade so the client
	// receives a typed error frame and a policy close code.
	if h.auth != nil {
		if err := h.auth(r, interviewID); err != nil {
			logger.Warn().Err(err).Msg("Realtime access denied")
			_ = client.WriteFrame(protocol.Error("access_denied", "access denied"))
			_ = client.CloseWith(protocol.ClosePolicyViolation, "access denied")
			return
		}
	}

	sess, err := h.loadOrCreateSession(r.Context(), interviewID)
	if err != nil {
		if err == store.ErrInterviewClosed {
			_ = client.WriteFrame(protocol.Error("interview_closed", "interview is no longer active"))
			_ = client.CloseWith(protocol.ClosePolicyViolation, "interview closed")
			return
		}
		logger.Error().Err(err).Msg("Session load failed")
		_ = client.WriteFrame(protocol.Error("internal_error", "failed to load interview session"))
		_ = client.CloseWith(protocol.CloseServerError, "session load failed")
		return
	}

	// The connection outlives the HTTP request context.
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	release := h.registry.Acquire(interviewID, Handle{Cancel: cancel, Done: done})
	defer func() {
		cancel()
		release()
		close(done)
	}()

	up, err := h.dialer.Dial(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Upstream dial failed")
		_ = client.WriteFrame(protocol.Error("upstream_unavailable", "could not reach conversation provider"))
		_ = client.CloseWith(protocol.CloseServerError, "upstream unavailable")
		return
	}

	if err := h.manager.Initialize(ctx, up, h.manager.BuildSessionConfig(sess)); err != nil {
		logger.Error().Err(err).Msg("Upstream session initialization failed")
		_ = up.Close()
		_ = client.WriteFrame(protocol.Error("init_failed", "conversation session could not be initialized"))
		_ = client.CloseWith(protocol.CloseServerError, "initialization failed")
		return
	}

	if err := client.WriteFrame(protocol.Connected(sess.ID, interviewID)); err != nil {
		logger.Warn().Err(err).Msg("Client gone before handshake completed")
		_ = up.Close()
		_ = client.Close()
		return
	}

	sessionLogger := logging.WithSession(h.logger, interviewID, sess.ID)
	sessionLogger.Info().Msg("Realtime connection established")
	relay := NewRelay(sess, client, up, h.repo, h.detector, h.publisher, sessionLogger)
	if err := relay.Run(ctx); err != nil {
		sessionLogger.Error().Err(err).Msg("Relay ended with error")
	}
}

// loadOrCreateSession returns the interview's session, creating a fresh
// one on first connect.
func (h *Handler) loadOrCreateSession(ctx context.Context, interviewID string) (*models.InterviewSession, error) {
	sess, err := h.repo.GetSessionByInterview(ctx, interviewID)
	if err == nil {
		if sess.Status != models.StatusActive {
			return nil, store.ErrInterviewClosed
		}
		return sess, nil
	}
	if err != store.ErrNotFound {
		return nil, err
	}

	sess = models.NewInterviewSession(uuid.NewString(), interviewID, "software_engineer", time.Now().UTC())
	if err := h.repo.CreateSession(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func closeDeadline() time.Time {
	return time.Now().Add(2 * time.Second)
}
