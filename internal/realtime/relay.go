package realtime

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"ai-interview-engine/internal/events"
	"ai-interview-engine/internal/models"
	"ai-interview-engine/internal/observability/metrics"
	"ai-interview-engine/internal/realtime/protocol"
	"ai-interview-engine/internal/realtime/upstream"
	"ai-interview-engine/internal/service/boundary"
	"ai-interview-engine/internal/store"
)

// ClientConn is the candidate-facing socket surface used by the relay.
// Implementations serialize concurrent writes internally.
type ClientConn interface {
	ReadFrame() (*protocol.ClientFrame, error)
	WriteFrame(f protocol.ServerFrame) error
	Close() error
}

// Sentinel loop results. A loop ending with one of these is a normal
// teardown, not an application error.
var (
	errClientGone   = errors.New("client connection ended")
	errUpstreamGone = errors.New("upstream connection ended")
)

// Relay proxies events between the candidate's client and the upstream
// provider for one realtime connection, persisting transcripts and
// dispatching provider function calls.
type Relay struct {
	sess      *models.InterviewSession
	client    ClientConn
	upstream  upstream.Conn
	repo      store.Repository
	detector  *boundary.Detector
	publisher *events.Publisher
	lifecycle *Lifecycle
	dispatch  map[string]dispatchFunc
	logger    zerolog.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

type dispatchFunc func(ctx context.Context, arguments string) (string, error)

// NewRelay creates a relay for one connection. The session is owned by
// this relay for the connection's lifetime.
func NewRelay(
	sess *models.InterviewSession,
	client ClientConn,
	up upstream.Conn,
	repo store.Repository,
	detector *boundary.Detector,
	publisher *events.Publisher,
	logger zerolog.Logger,
) *Relay {
	r := &Relay{
		sess:      sess,
		client:    client,
		upstream:  up,
		repo:      repo,
		detector:  detector,
		publisher: publisher,
		lifecycle: NewLifecycle(),
		logger:    logger,
		metrics:   metrics.DefaultMetrics,
		now:       func() time.Time { return time.Now().UTC() },
	}
	r.dispatch = map[string]dispatchFunc{
		EvaluateAnswerTool: r.handleEvaluation,
	}
	return r
}

// Lifecycle exposes the connection state machine.
func (r *Relay) Lifecycle() *Lifecycle {
	return r.lifecycle
}

// Run drives both forwarding loops until either finishes, then cancels
// and awaits the other before returning. The sockets are closed by Run;
// a normal close on either side yields a nil error.
func (r *Relay) Run(ctx context.Context) error {
	if err := r.lifecycle.Activate(); err != nil {
		return err
	}
	r.metrics.RealtimeConnectionsActive.Inc()
	defer r.metrics.RealtimeConnectionsActive.Dec()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return r.clientLoop(gctx) })
	g.Go(func() error { return r.upstreamLoop(gctx) })
	// First loop to finish cancels gctx; closing both sockets unblocks
	// the loser's pending read so the join below always completes.
	g.Go(func() error {
		<-gctx.Done()
		if r.lifecycle.BeginClose() {
			_ = r.client.Close()
			_ = r.upstream.Close()
		}
		return nil
	})

	err := g.Wait()
	r.lifecycle.Finish()

	if errors.Is(err, errClientGone) || errors.Is(err, errUpstreamGone) ||
		errors.Is(err, context.Canceled) {
		r.logger.Info().Str("cause", causeLabel(err)).Msg("Relay closed")
		return nil
	}
	return err
}

func causeLabel(err error) string {
	switch {
	case errors.Is(err, errClientGone):
		return "client"
	case errors.Is(err, errUpstreamGone):
		return "upstream"
	default:
		return "cancelled"
	}
}

// clientLoop forwards candidate frames to the provider.
func (r *Relay) clientLoop(ctx context.Context) error {
	for {
		frame, err := r.client.ReadFrame()
		if err != nil {
			return errClientGone
		}

		switch frame.Type {
		case protocol.TypeAudioChunk:
			if err := r.upstream.WriteEvent(&upstream.Event{
				Type:  upstream.EventAudioAppend,
				Audio: frame.Audio,
			}); err != nil {
				return errUpstreamGone
			}
		case protocol.TypeAudioCommit:
			if err := r.upstream.WriteEvent(&upstream.Event{Type: upstream.EventAudioCommit}); err != nil {
				return errUpstreamGone
			}
			if err := r.upstream.WriteEvent(&upstream.Event{
				Type:     upstream.EventResponseCreate,
				Response: &upstream.ResponseParams{Modalities: []string{"text", "audio"}},
			}); err != nil {
				return errUpstreamGone
			}
		case protocol.TypePing:
			if err := r.client.WriteFrame(protocol.ServerFrame{Type: protocol.TypePong}); err != nil {
				return errClientGone
			}
		default:
			r.logger.Warn().Str("frameType", frame.Type).Msg("Unsupported client frame")
			_ = r.client.WriteFrame(protocol.Error("unsupported_type", "unsupported message type: "+frame.Type))
		}
	}
}

// upstreamLoop forwards provider events to the candidate, committing
// transcripts and dispatching function calls along the way.
func (r *Relay) upstreamLoop(ctx context.Context) error {
	for {
		ev, err := r.upstream.ReadEvent()
		if err != nil {
			return errUpstreamGone
		}

		switch ev.Type {
		case upstream.EventResponseAudioDelta:
			if err := r.client.WriteFrame(protocol.ServerFrame{
				Type:  protocol.TypeAIAudioChunk,
				Audio: ev.Delta,
			}); err != nil {
				return errClientGone
			}
		case upstream.EventTranscriptDelta:
			if err := r.client.WriteFrame(protocol.ServerFrame{
				Type: protocol.TypeTranscriptDelta,
				Role: "interviewer",
				Text: ev.Delta,
			}); err != nil {
				return errClientGone
			}
		case upstream.EventTranscriptDone:
			if err := r.commitTranscript(ctx, "interviewer", models.MessageAIQuestion, ev.Transcript); err != nil {
				return err
			}
		case upstream.EventInputTranscriptComplete:
			if err := r.commitTranscript(ctx, "candidate", models.MessageCandidateResponse, ev.Transcript); err != nil {
				return err
			}
		case upstream.EventFunctionCallDone:
			r.dispatchFunctionCall(ctx, ev)
		case upstream.EventError:
			msg := "upstream provider error"
			if ev.Error != nil && ev.Error.Message != "" {
				msg = ev.Error.Message
			}
			r.logger.Error().Str("providerMessage", msg).Msg("Upstream error event")
			_ = r.client.WriteFrame(protocol.Error("upstream_error", msg))
		case upstream.EventSessionUpdated:
			// Acknowledgment of a re-sent configuration; nothing to relay.
		default:
			r.logger.Debug().Str("eventType", ev.Type).Msg("Ignoring upstream event")
		}
	}
}

// commitTranscript persists a completed transcript line, then relays it
// to the client. Persistence is best-effort: a storage failure must not
// end a live conversation, so it is logged and the relay continues.
func (r *Relay) commitTranscript(ctx context.Context, role string, msgType models.MessageType, transcript string) error {
	if transcript == "" {
		return nil
	}

	messageID := uuid.NewString()
	msg, err := r.repo.AppendMessage(ctx, r.sess.ID, msgType, transcript, nil)
	if err != nil {
		r.metrics.TranscriptCommitFailures.Inc()
		r.logger.Error().Err(err).Str("role", role).Msg("Transcript commit failed, continuing relay")
	} else {
		r.metrics.TranscriptCommits.Inc()
		messageID = strconv.Itoa(msg.Sequence)
		r.publishTranscript(ctx, role, msg.Sequence, transcript)
	}

	if err := r.client.WriteFrame(protocol.ServerFrame{
		Type:      protocol.TypeTranscript,
		Role:      role,
		Text:      transcript,
		MessageID: messageID,
		IsFinal:   true,
	}); err != nil {
		return errClientGone
	}
	return nil
}

func (r *Relay) publishTranscript(ctx context.Context, role string, seq int, text string) {
	ev := events.TranscriptEvent{
		EventType:   "interview.transcript.final",
		InterviewID: r.sess.InterviewID,
		SessionID:   r.sess.ID,
		MessageSeq:  seq,
		Role:        role,
		Text:        text,
		Timestamp:   r.now().UnixMilli(),
	}
	if err := r.publisher.PublishTranscript(ctx, r.sess.InterviewID, ev); err != nil {
		r.logger.Warn().Err(err).Msg("Transcript audit publish failed")
	}
}

// dispatchFunctionCall routes a provider function call by normalized
// name and returns its output upstream. Unknown names get an error
// output so the provider never waits on a missing result.
func (r *Relay) dispatchFunctionCall(ctx context.Context, ev *upstream.Event) {
	name := normalizeFunctionName(ev.Name)
	r.metrics.FunctionCallsDispatched.WithLabelValues(name).Inc()

	fn, ok := r.dispatch[name]
	if !ok {
		r.logger.Warn().Str("name", ev.Name).Msg("Unknown function call")
		r.sendFunctionOutput(ev.CallID, `{"error":"unknown function"}`)
		return
	}

	output, err := fn(ctx, ev.Arguments)
	if err != nil {
		r.logger.Error().Err(err).Str("name", name).Msg("Function call failed")
		output = `{"error":"evaluation failed"}`
	}
	r.sendFunctionOutput(ev.CallID, output)
}

func (r *Relay) sendFunctionOutput(callID, output string) {
	if err := r.upstream.WriteEvent(&upstream.Event{
		Type: upstream.EventConversationItem,
		Item: &upstream.ConversationItem{
			Type:   "function_call_output",
			CallID: callID,
			Output: output,
		},
	}); err != nil {
		r.logger.Error().Err(err).Msg("Failed to send function output upstream")
		return
	}
	if err := r.upstream.WriteEvent(&upstream.Event{
		Type:     upstream.EventResponseCreate,
		Response: &upstream.ResponseParams{Modalities: []string{"text", "audio"}},
	}); err != nil {
		r.logger.Error().Err(err).Msg("Failed to request response after function output")
	}
}

// handleEvaluation applies the provider's evaluate_candidate_answer
// call: the evaluation is attached to the latest candidate message and
// folded into the session's skill-boundary state.
func (r *Relay) handleEvaluation(ctx context.Context, arguments string) (string, error) {
	var eval models.FunctionCallEvaluation
	if err := json.Unmarshal([]byte(arguments), &eval); err != nil {
		return "", errors.Wrap(err, "parse evaluation arguments")
	}

	skill := eval.SkillArea
	if skill == "" {
		skill = "general"
	}

	if err := r.repo.AttachEvaluation(ctx, r.sess.ID, &models.MessageMetadata{
		SkillArea:  skill,
		Evaluation: &eval,
	}); err != nil {
		r.logger.Warn().Err(err).Msg("No candidate message to attach evaluation to")
	}

	outcome := r.detector.Record(r.sess, skill, evaluationAnalysis(eval), r.sess.QuestionsAsked, r.now())
	r.sess.LastActivityAt = r.now()
	if err := r.repo.SaveSession(ctx, r.sess); err != nil {
		return "", errors.Wrap(err, "save session after evaluation")
	}

	r.logger.Info().
		Str("skill", skill).
		Str("quality", string(eval.AnswerQuality)).
		Str("level", string(outcome.Level)).
		Str("nextAction", string(eval.NextAction)).
		Msg("Evaluation recorded")

	out, err := json.Marshal(map[string]any{
		"status":            "recorded",
		"skill_area":        skill,
		"proficiency_level": string(outcome.Level),
	})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// evaluationAnalysis maps the coarse answer-quality judgment onto the
// analysis scale so function-call evaluations flow through the same
// classifier as text turns.
func evaluationAnalysis(eval models.FunctionCallEvaluation) models.ResponseAnalysis {
	var conf float64
	switch eval.AnswerQuality {
	case models.AnswerExcellent:
		conf = 0.9
	case models.AnswerGood:
		conf = 0.75
	case models.AnswerNeedsClarification:
		conf = 0.55
	case models.AnswerOffTopic:
		conf = 0.3
	default:
		conf = 0.5
	}

	signal := eval.ProficiencyLevel
	if signal == "" {
		signal = models.SignalIntermediate
	}

	return models.ResponseAnalysis{
		Confidence:        conf,
		TechnicalAccuracy: conf,
		Proficiency:       signal,
	}
}

// normalizeFunctionName maps known provider misspellings onto the
// canonical tool name.
func normalizeFunctionName(name string) string {
	switch name {
	case "evaluate_candidate_answers":
		return EvaluateAnswerTool
	default:
		return name
	}
}
