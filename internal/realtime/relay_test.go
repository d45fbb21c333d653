package realtime

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"ai-interview-engine/internal/events"
	"ai-interview-engine/internal/models"
	"ai-interview-engine/internal/realtime/protocol"
	"ai-interview-engine/internal/realtime/upstream"
	"ai-interview-engine/internal/service/boundary"
	"ai-interview-engine/internal/store"
)

// fakeClient is an in-memory ClientConn fed by the test.
type fakeClient struct {
	in        chan *protocol.ClientFrame
	mu        sync.Mutex
	written   []protocol.ServerFrame
	closed    chan struct{}
	closeOnce sync.Once
	closes    int
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		in:     make(chan *protocol.ClientFrame, 16),
		closed: make(chan struct{}),
	}
}

func (c *fakeClient) ReadFrame() (*protocol.ClientFrame, error) {
	select {
	case f, ok := <-c.in:
		if !ok {
			return nil, errors.New("client went away")
		}
		return f, nil
	case <-c.closed:
		return nil, errors.New("client conn closed")
	}
}

func (c *fakeClient) WriteFrame(f protocol.ServerFrame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.written = append(c.written, f)
	return nil
}

func (c *fakeClient) Close() error {
	c.mu.Lock()
	c.closes++
	c.mu.Unlock()
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeClient) frames() []protocol.ServerFrame {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]protocol.ServerFrame, len(c.written))
	copy(out, c.written)
	return out
}

// fakeUpstream is an in-memory upstream.Conn fed by the test.
type fakeUpstream struct {
	in        chan *upstream.Event
	mu        sync.Mutex
	written   []*upstream.Event
	closed    chan struct{}
	closeOnce sync.Once
	closes    int
}

func newFakeUpstream() *fakeUpstream {
	return &fakeUpstream{
		in:     make(chan *upstream.Event, 16),
		closed: make(chan struct{}),
	}
}

func (u *fakeUpstream) ReadEvent() (*upstream.Event, error) {
	select {
	case ev, ok := <-u.in:
		if !ok {
			return nil, errors.New("upstream went away")
		}
		return ev, nil
	case <-u.closed:
		return nil, errors.New("upstream conn closed")
	}
}

func (u *fakeUpstream) WriteEvent(ev *upstream.Event) error {
	select {
	case <-u.closed:
		return errors.New("upstream conn closed")
	default:
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.written = append(u.written, ev)
	return nil
}

func (u *fakeUpstream) Close() error {
	u.mu.Lock()
	u.closes++
	u.mu.Unlock()
	u.closeOnce.Do(func() { close(u.closed) })
	return nil
}

func (u *fakeUpstream) events() []*upstream.Event {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]*upstream.Event, len(u.written))
	copy(out, u.written)
	return out
}

func (u *fakeUpstream) closeCount() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.closes
}

func newRelayFixture(t *testing.T) (*Relay, *fakeClient, *fakeUpstream, *models.InterviewSession, store.Repository) {
	t.Helper()
	repo := store.NewMemStore()
	sess := models.NewInterviewSession("sess-1", "int-1", "backend_engineer", time.Now().UTC())
	require.NoError(t, repo.CreateSession(context.Background(), sess))

	client := newFakeClient()
	up := newFakeUpstream()
	logger := zerolog.Nop()
	relay := NewRelay(sess, client, up, repo, boundary.NewDetector(0.5, logger), events.New(nil), logger)
	return relay, client, up, sess, repo
}

func runRelay(relay *Relay) chan error {
	errCh := make(chan error, 1)
	go func() { errCh <- relay.Run(context.Background()) }()
	return errCh
}

func waitRelay(t *testing.T, errCh chan error) error {
	t.Helper()
	select {
	case err := <-errCh:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not terminate")
		return nil
	}
}

func TestRelay_ClientErrorCancelsUpstreamOnce(t *testing.T) {
	relay, client, up, _, _ := newRelayFixture(t)
	errCh := runRelay(relay)

	// Client side dies; the upstream loop is still blocked reading.
	close(client.in)

	require.NoError(t, waitRelay(t, errCh))
	require.Equal(t, 1, up.closeCount(), "upstream cancelled exactly once")
	require.Equal(t, StateClosed, relay.Lifecycle().State())
}

func TestRelay_UpstreamErrorTearsDown(t *testing.T) {
	relay, client, up, _, _ := newRelayFixture(t)
	errCh := runRelay(relay)

	close(up.in)

	require.NoError(t, waitRelay(t, errCh))
	select {
	case <-client.closed:
	default:
		t.Fatal("client socket not closed on teardown")
	}
}

func TestRelay_ContextCancellation(t *testing.T) {
	relay, _, _, _, _ := newRelayFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- relay.Run(ctx) }()

	cancel()
	require.NoError(t, waitRelay(t, errCh))
	require.Equal(t, StateClosed, relay.Lifecycle().State())
}

func TestRelay_ForwardsAudioAndCommit(t *testing.T) {
	relay, client, up, _, _ := newRelayFixture(t)
	errCh := runRelay(relay)

	client.in <- &protocol.ClientFrame{Type: protocol.TypeAudioChunk, Audio: "UklGRg=="}
	client.in <- &protocol.ClientFrame{Type: protocol.TypeAudioCommit}
	time.Sleep(50 * time.Millisecond)
	close(client.in)
	require.NoError(t, waitRelay(t, errCh))

	evs := up.events()
	require.Len(t, evs, 3)
	require.Equal(t, upstream.EventAudioAppend, evs[0].Type)
	require.Equal(t, "UklGRg==", evs[0].Audio)
	require.Equal(t, upstream.EventAudioCommit, evs[1].Type)
	require.Equal(t, upstream.EventResponseCreate, evs[2].Type)
}

func TestRelay_PingPong(t *testing.T) {
	relay, client, _, _, _ := newRelayFixture(t)
	errCh := runRelay(relay)

	client.in <- &protocol.ClientFrame{Type: protocol.TypePing}
	time.Sleep(50 * time.Millisecond)
	close(client.in)
	require.NoError(t, waitRelay(t, errCh))

	frames := client.frames()
	require.Len(t, frames, 1)
	require.Equal(t, protocol.TypePong, frames[0].Type)
}

func TestRelay_TranscriptCommittedThenRelayed(t *testing.T) {
	relay, client, up, sess, repo := newRelayFixture(t)
	errCh := runRelay(relay)

	up.in <- &upstream.Event{Type: upstream.EventTranscriptDone, Transcript: "What is a mutex?"}
	up.in <- &upstream.Event{Type: upstream.EventInputTranscriptComplete, Transcript: "A mutual exclusion lock."}
	time.Sleep(50 * time.Millisecond)
	close(up.in)
	require.NoError(t, waitRelay(t, errCh))

	msgs, err := repo.ListMessages(context.Background(), sess.ID, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Equal(t, models.MessageAIQuestion, msgs[0].Type)
	require.Equal(t, "What is a mutex?", msgs[0].Content)
	require.Equal(t, models.MessageCandidateResponse, msgs[1].Type)

	frames := client.frames()
	require.Len(t, frames, 2)
	require.Equal(t, protocol.TypeTranscript, frames[0].Type)
	require.Equal(t, "interviewer", frames[0].Role)
	require.True(t, frames[0].IsFinal)
	require.Equal(t, "1", frames[0].MessageID)
	require.Equal(t, "candidate", frames[1].Role)
}

// failingRepo rejects every message append.
type failingRepo struct {
	store.Repository
}

func (f *failingRepo) AppendMessage(ctx context.Context, sessionID string, msgType models.MessageType, content string, meta *models.MessageMetadata) (*models.Message, error) {
	return nil, errors.New("disk full")
}

func TestRelay_CommitFailureDoesNotEndConversation(t *testing.T) {
	relay, client, up, _, _ := newRelayFixture(t)
	relay.repo = &failingRepo{Repository: relay.repo}
	errCh := runRelay(relay)

	up.in <- &upstream.Event{Type: upstream.EventTranscriptDone, Transcript: "Still talking."}
	up.in <- &upstream.Event{Type: upstream.EventTranscriptDelta, Delta: "next"}
	time.Sleep(50 * time.Millisecond)
	close(up.in)
	require.NoError(t, waitRelay(t, errCh))

	frames := client.frames()
	require.Len(t, frames, 2, "relay kept going after the failed commit")
	require.Equal(t, protocol.TypeTranscript, frames[0].Type)
	require.NotEmpty(t, frames[0].MessageID, "synthetic id when persistence failed")
	require.Equal(t, protocol.TypeTranscriptDelta, frames[1].Type)
}

func TestRelay_DispatchesEvaluation(t *testing.T) {
	relay, _, up, sess, repo := newRelayFixture(t)
	_, err := repo.AppendMessage(context.Background(), sess.ID, models.MessageCandidateResponse, "my answer", nil)
	require.NoError(t, err)
	errCh := runRelay(relay)

	up.in <- &upstream.Event{
		Type:      upstream.EventFunctionCallDone,
		Name:      "evaluate_candidate_answer",
		CallID:    "call-1",
		Arguments: `{"answer_quality":"excellent","key_points_covered":["locking"],"skill_area":"concurrency","proficiency_level":"expert","next_action":"continue","follow_up_needed":false}`,
	}
	time.Sleep(50 * time.Millisecond)
	close(up.in)
	require.NoError(t, waitRelay(t, errCh))

	require.Equal(t, models.ProficiencyComfortable, sess.SkillBoundaries["concurrency"])

	msgs, err := repo.ListMessages(context.Background(), sess.ID, 0)
	require.NoError(t, err)
	require.NotNil(t, msgs[0].Metadata)
	require.Equal(t, models.AnswerExcellent, msgs[0].Metadata.Evaluation.AnswerQuality)

	evs := up.events()
	require.Len(t, evs, 2)
	require.Equal(t, upstream.EventConversationItem, evs[0].Type)
	require.Equal(t, "function_call_output", evs[0].Item.Type)
	require.Equal(t, "call-1", evs[0].Item.CallID)
	require.Contains(t, evs[0].Item.Output, `"status":"recorded"`)
	require.Equal(t, upstream.EventResponseCreate, evs[1].Type)
}

func TestRelay_ToleratesMisspelledFunctionName(t *testing.T) {
	relay, _, up, sess, _ := newRelayFixture(t)
	errCh := runRelay(relay)

	up.in <- &upstream.Event{
		Type:      upstream.EventFunctionCallDone,
		Name:      "evaluate_candidate_answers",
		CallID:    "call-2",
		Arguments: `{"answer_quality":"off_topic","key_points_covered":[],"skill_area":"graphql","next_action":"move_to_next_topic","follow_up_needed":false}`,
	}
	time.Sleep(50 * time.Millisecond)
	close(up.in)
	require.NoError(t, waitRelay(t, errCh))

	require.Equal(t, models.ProficiencyBoundaryReached, sess.SkillBoundaries["graphql"])
	require.Len(t, sess.Progression.BoundaryLog, 1)
}

func TestRelay_UnknownFunctionGetsErrorOutput(t *testing.T) {
	relay, _, up, _, _ := newRelayFixture(t)
	errCh := runRelay(relay)

	up.in <- &upstream.Event{
		Type:   upstream.EventFunctionCallDone,
		Name:   "grade_resume",
		CallID: "call-3",
	}
	time.Sleep(50 * time.Millisecond)
	close(up.in)
	require.NoError(t, waitRelay(t, errCh))

	evs := up.events()
	require.NotEmpty(t, evs)
	require.Equal(t, upstream.EventConversationItem, evs[0].Type)
	require.Contains(t, evs[0].Item.Output, "unknown function")
}

func TestNormalizeFunctionName(t *testing.T) {
	require.Equal(t, EvaluateAnswerTool, normalizeFunctionName("evaluate_candidate_answers"))
	require.Equal(t, EvaluateAnswerTool, normalizeFunctionName("evaluate_candidate_answer"))
	require.Equal(t, "grade_resume", normalizeFunctionName("grade_resume"))
}
