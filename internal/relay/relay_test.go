// ABOUTME: Tests for the conversation relay worker.
// ABOUTME: Covers activation and peer-echo paths, truncation, and failure modes.

package relay

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/chatter-relay/internal/broker"
	"github.com/2389/chatter-relay/internal/completion"
	"github.com/2389/chatter-relay/internal/guard"
)

type publishRecord struct {
	topic   string
	qos     byte
	retain  bool
	payload string
}

// fakePublisher records publishes and subscriptions.
type fakePublisher struct {
	mu         sync.Mutex
	published  []publishRecord
	subscribed []string
	pubErr     error
	nextID     uint16
}

func (p *fakePublisher) Publish(topic string, qos byte, retain bool, payload []byte) (uint16, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pubErr != nil {
		return 0, p.pubErr
	}
	p.nextID++
	p.published = append(p.published, publishRecord{topic, qos, retain, string(payload)})
	return p.nextID, nil
}

func (p *fakePublisher) Subscribe(topic string, qos byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subscribed = append(p.subscribed, topic)
	return nil
}

func (p *fakePublisher) records() []publishRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publishRecord(nil), p.published...)
}

func (p *fakePublisher) onTopic(topic string) []publishRecord {
	var out []publishRecord
	for _, rec := range p.records() {
		if rec.topic == topic {
			out = append(out, rec)
		}
	}
	return out
}

type sendRecord struct {
	prompt string
	cont   bool
}

// fakeSession replays a canned reply and counts releases.
type fakeSession struct {
	mu        sync.Mutex
	sends     []sendRecord
	replyText string
	sendErr   error
	released  int
}

func (s *fakeSession) SetModel(string)        {}
func (s *fakeSession) SetTemperature(float64) {}

func (s *fakeSession) Send(_ context.Context, prompt string, continueConversation bool) (*completion.Reply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sends = append(s.sends, sendRecord{prompt, continueConversation})
	if s.sendErr != nil {
		return nil, s.sendErr
	}
	return completion.NewReply(s.replyText, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.released++
	}), nil
}

func (s *fakeSession) sendCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sends)
}

func (s *fakeSession) releaseCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}

func testRelay(t *testing.T, cfg Config, loopGuard *guard.Guard) (*Relay, *fakePublisher, *fakeSession) {
	t.Helper()
	if cfg.InitialPrompt == "" {
		cfg.InitialPrompt = "let's talk"
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := New(cfg, loopGuard, logger)
	pub := &fakePublisher{}
	sess := &fakeSession{replyText: "hello"}
	r.Bind(pub, sess)
	return r, pub, sess
}

func TestRelay_UnboundDiscardsActivation(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := New(Config{InitialPrompt: "hi"}, nil, logger)

	// No Bind: a press during startup is lost, not queued.
	r.processActivation(context.Background())
}

func TestRelay_ActivationPublishesNoticeAndReply(t *testing.T) {
	r, pub, sess := testRelay(t, Config{InitialPrompt: "opening line"}, nil)

	r.processActivation(context.Background())

	notices := pub.onTopic(TopicActivation)
	require.Len(t, notices, 1)
	assert.Equal(t, "pressed", notices[0].payload)
	assert.Equal(t, byte(0), notices[0].qos)
	assert.False(t, notices[0].retain)

	replies := pub.onTopic(TopicReplies)
	require.Len(t, replies, 1)
	assert.Equal(t, "hello", replies[0].payload)

	require.Equal(t, 1, sess.sendCount())
	assert.Equal(t, "opening line", sess.sends[0].prompt)
	assert.True(t, sess.sends[0].cont)
	assert.Equal(t, 1, sess.releaseCount())
}

func TestRelay_PeerEchoContinuesWithPayload(t *testing.T) {
	r, pub, sess := testRelay(t, Config{}, nil)

	r.processPeerEcho(context.Background(), []byte("what do you think?"))

	require.Equal(t, 1, sess.sendCount())
	assert.Equal(t, "what do you think?", sess.sends[0].prompt)

	replies := pub.onTopic(TopicReplies)
	require.Len(t, replies, 1)
	assert.Equal(t, "hello", replies[0].payload)
	assert.Equal(t, 1, sess.releaseCount())
}

func TestRelay_OversizePeerEchoTruncated(t *testing.T) {
	r, _, sess := testRelay(t, Config{BufferCapacity: 500}, nil)
	payload := []byte(strings.Repeat("x", 600))

	r.processPeerEcho(context.Background(), payload)

	require.Equal(t, 1, sess.sendCount())
	assert.Equal(t, strings.Repeat("x", 500), sess.sends[0].prompt)
	assert.Equal(t, 500, r.slot.Len())
}

func TestRelay_CompletionErrorSkipsPublish(t *testing.T) {
	r, pub, sess := testRelay(t, Config{}, nil)
	sess.sendErr = errors.New("rate limited")

	r.processPeerEcho(context.Background(), []byte("ping"))

	assert.Empty(t, pub.onTopic(TopicReplies))
	// Send failed, so no reply was acquired and nothing needs release.
	assert.Equal(t, 0, sess.releaseCount())
}

func TestRelay_EmptyReplySkipsPublish(t *testing.T) {
	r, pub, sess := testRelay(t, Config{}, nil)
	sess.replyText = ""

	r.processPeerEcho(context.Background(), []byte("ping"))

	assert.Empty(t, pub.onTopic(TopicReplies))
	assert.Equal(t, 1, sess.releaseCount(), "reply released on the empty-text path too")
}

func TestRelay_OversizeReplyTruncated(t *testing.T) {
	r, pub, sess := testRelay(t, Config{BufferCapacity: 500}, nil)
	sess.replyText = strings.Repeat("y", 600)

	r.processActivation(context.Background())

	replies := pub.onTopic(TopicReplies)
	require.Len(t, replies, 1)
	assert.Equal(t, strings.Repeat("y", 500), replies[0].payload)
	assert.Equal(t, 1, sess.releaseCount())
}

func TestRelay_PublishErrorStillReleasesReply(t *testing.T) {
	r, pub, sess := testRelay(t, Config{}, nil)
	pub.pubErr = errors.New("socket closed")

	r.processActivation(context.Background())

	assert.Equal(t, 1, sess.releaseCount())
}

func TestRelay_CommandTopicIsIgnored(t *testing.T) {
	r, _, sess := testRelay(t, Config{}, nil)

	r.HandleEvent(broker.Event{Kind: broker.EventData, Topic: TopicCommands, Payload: []byte("reboot")})

	assert.Equal(t, 0, len(r.jobs), "no job enqueued for the command topic")
	assert.Equal(t, 0, sess.sendCount())
	assert.Equal(t, 0, r.slot.Len(), "buffer untouched")
}

func TestRelay_UnrelatedTopicIsIgnored(t *testing.T) {
	r, _, _ := testRelay(t, Config{}, nil)

	r.HandleEvent(broker.Event{Kind: broker.EventData, Topic: "/somewhere/else", Payload: []byte("hi")})

	assert.Equal(t, 0, len(r.jobs))
}

func TestRelay_PeerEchoEventEnqueues(t *testing.T) {
	r, _, _ := testRelay(t, Config{}, nil)

	r.HandleEvent(broker.Event{Kind: broker.EventData, Topic: TopicPeerEcho, Payload: []byte("hi")})

	assert.Equal(t, 1, len(r.jobs))
}

func TestRelay_ConnectedSubscribesBothTopics(t *testing.T) {
	r, pub, _ := testRelay(t, Config{}, nil)

	r.HandleEvent(broker.Event{Kind: broker.EventConnected})

	assert.ElementsMatch(t, []string{TopicCommands, TopicPeerEcho}, pub.subscribed)
}

func TestRelay_LifecycleEventsAreLoggedOnly(t *testing.T) {
	r, pub, sess := testRelay(t, Config{}, nil)

	r.HandleEvent(broker.Event{Kind: broker.EventDisconnected, Err: errors.New("gone")})
	r.HandleEvent(broker.Event{Kind: broker.EventPublished, MessageID: 7})
	r.HandleEvent(broker.Event{Kind: broker.EventError, Err: errors.New("errno 104")})

	assert.Empty(t, pub.records())
	assert.Equal(t, 0, sess.sendCount())
}

func TestRelay_FullQueueDropsWithoutBlocking(t *testing.T) {
	r, _, _ := testRelay(t, Config{QueueSize: 2}, nil)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			r.HandleActivation()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("enqueue blocked on a full queue")
	}
	assert.Equal(t, 2, len(r.jobs))
}

func TestRelay_TurnBudgetCapsRoundTrips(t *testing.T) {
	r, _, sess := testRelay(t, Config{MaxTurns: 2}, nil)

	for i := 0; i < 4; i++ {
		r.processActivation(context.Background())
	}

	assert.Equal(t, 2, sess.sendCount())
}

func TestRelay_LoopGuardBreaksRecirculation(t *testing.T) {
	g := guard.New(time.Minute, 100)
	t.Cleanup(g.Close)
	r, pub, sess := testRelay(t, Config{}, g)

	r.processPeerEcho(context.Background(), []byte("echo chamber"))
	r.processPeerEcho(context.Background(), []byte("echo chamber"))

	assert.Equal(t, 1, sess.sendCount(), "second identical echo is dropped")
	assert.Len(t, pub.onTopic(TopicReplies), 1)
}

func TestRelay_RunProcessesEnqueuedEvents(t *testing.T) {
	r, pub, sess := testRelay(t, Config{InitialPrompt: "hi there"}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	r.HandleActivation()
	r.HandleEvent(broker.Event{Kind: broker.EventData, Topic: TopicPeerEcho, Payload: []byte("and then?")})

	require.Eventually(t, func() bool {
		return sess.sendCount() == 2 && len(pub.onTopic(TopicReplies)) == 2
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, 2, sess.releaseCount())
}
