// ABOUTME: Conversation relay: reacts to button activations and peer echoes by
// ABOUTME: running a completion round-trip and republishing the bounded reply.

package relay

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/2389/chatter-relay/internal/broker"
	"github.com/2389/chatter-relay/internal/buffer"
	"github.com/2389/chatter-relay/internal/completion"
	"github.com/2389/chatter-relay/internal/guard"
)

const (
	// Temperature is the fixed sampling temperature for every completion call.
	Temperature = 0.7

	// DefaultBufferCapacity bounds the conversation buffer when the config
	// does not set one.
	DefaultBufferCapacity = 500

	// DefaultQueueSize bounds the job queue fed by both event sources.
	DefaultQueueSize = 16

	// activationNotice is the payload published on TopicActivation per press.
	activationNotice = "pressed"
)

// Config carries the relay's startup parameters.
type Config struct {
	// InitialPrompt opens the conversation on a button press.
	InitialPrompt string

	// BufferCapacity is the conversation buffer size in bytes.
	BufferCapacity int

	// QueueSize bounds the pending-job queue. A full queue drops events.
	QueueSize int

	// MaxTurns caps completion round-trips per process lifetime.
	// Zero means unbounded, which is the original relay behavior.
	MaxTurns int
}

// jobKind tags a queued unit of work for the relay worker.
type jobKind int

const (
	jobActivation jobKind = iota
	jobPeerEcho
)

func (k jobKind) String() string {
	switch k {
	case jobActivation:
		return "activation"
	case jobPeerEcho:
		return "peer_echo"
	default:
		return "unknown"
	}
}

// job is one queued event. Payload is set for jobPeerEcho only; the relay
// owns it from enqueue until the handler returns.
type job struct {
	kind    jobKind
	payload []byte
}

// Relay is the single orchestrator between the input sampler, the broker and
// the completion service. Both event sources enqueue onto one bounded queue
// consumed by a single worker goroutine, which is the sole toucher of the
// conversation buffer and the completion session. That keeps the broker's
// delivery goroutine unblocked during the completion round-trip while
// preserving per-conversation ordering.
type Relay struct {
	cfg       Config
	logger    *slog.Logger
	slot      *buffer.Slot
	loopGuard *guard.Guard // nil disables loop detection
	jobs      chan job

	// turns counts completion round-trips, worker-only state.
	turns int

	// pub and sess are bound exactly once by the startup wiring, before any
	// event can be meaningfully handled. The bind channel makes the
	// happens-before visible to the worker and the broker goroutines.
	bound chan struct{}
	pub   broker.Publisher
	sess  completion.Session
}

// New creates an unbound Relay. Bind must be called before events are
// handled; until then both entry points log and discard.
func New(cfg Config, loopGuard *guard.Guard, logger *slog.Logger) *Relay {
	if cfg.BufferCapacity <= 0 {
		cfg.BufferCapacity = DefaultBufferCapacity
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{
		cfg:       cfg,
		logger:    logger.With("component", "relay"),
		slot:      buffer.New(cfg.BufferCapacity),
		loopGuard: loopGuard,
		jobs:      make(chan job, cfg.QueueSize),
		bound:     make(chan struct{}),
	}
}

// Bind installs the outbound client handle and the completion session.
// It must be called exactly once; the handles are immutable afterward for
// the remainder of process life.
func (r *Relay) Bind(pub broker.Publisher, sess completion.Session) {
	r.pub = pub
	r.sess = sess
	close(r.bound)
}

// handles returns the bound handles, or false while startup is incomplete.
func (r *Relay) handles() (broker.Publisher, completion.Session, bool) {
	select {
	case <-r.bound:
		return r.pub, r.sess, true
	default:
		return nil, nil, false
	}
}

// Run consumes queued jobs until ctx is done. It must run in exactly one
// goroutine: the worker owns the conversation buffer and the session.
func (r *Relay) Run(ctx context.Context) {
	r.logger.Info("relay worker started",
		"buffer_capacity", r.slot.Cap(),
		"queue_size", cap(r.jobs),
		"max_turns", r.cfg.MaxTurns,
	)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("relay worker stopped")
			return
		case j := <-r.jobs:
			switch j.kind {
			case jobActivation:
				r.processActivation(ctx)
			case jobPeerEcho:
				r.processPeerEcho(ctx, j.payload)
			}
		}
	}
}

// HandleActivation enqueues a button-press event. Called from the sampler's
// polling goroutine; never blocks.
func (r *Relay) HandleActivation() {
	r.enqueue(job{kind: jobActivation})
}

// HandleEvent dispatches one broker event. Called from the broker's delivery
// goroutines; anything that could block is handed to the worker queue.
func (r *Relay) HandleEvent(e broker.Event) {
	switch e.Kind {
	case broker.EventConnected:
		r.onConnected()
	case broker.EventDisconnected:
		r.logger.Warn("broker disconnected", "error", e.Err)
	case broker.EventPublished:
		r.logger.Debug("publish confirmed", "msg_id", e.MessageID)
	case broker.EventData:
		r.onData(e)
	case broker.EventError:
		r.logger.Error("broker transport error", "error", e.Err)
	default:
		r.logger.Warn("unhandled broker event", "kind", e.Kind)
	}
}

// onConnected subscribes to the command and peer-echo topics. Inbound
// messages are only meaningful once both subscriptions are in place.
func (r *Relay) onConnected() {
	pub, _, ok := r.handles()
	if !ok {
		r.logger.Warn("connected before startup completed, skipping subscriptions")
		return
	}

	for _, topic := range []string{TopicCommands, TopicPeerEcho} {
		if err := pub.Subscribe(topic, 0); err != nil {
			r.logger.Error("subscribe failed", "topic", topic, "error", err)
			continue
		}
		r.logger.Info("subscribed", "topic", topic)
	}
}

// onData filters inbound messages by topic. Only exact peer-echo matches
// reach the conversational path.
func (r *Relay) onData(e broker.Event) {
	switch e.Topic {
	case TopicPeerEcho:
		r.enqueue(job{kind: jobPeerEcho, payload: e.Payload})
	case TopicCommands:
		// Reserved for future commands; deliberately a no-op.
		r.logger.Debug("command received, ignoring", "len", len(e.Payload))
	default:
		r.logger.Debug("message on unhandled topic", "topic", e.Topic)
	}
}

// enqueue adds a job without blocking the event source. A full queue drops
// the event with a warning; the relay favors bounded memory over delivery.
func (r *Relay) enqueue(j job) {
	select {
	case r.jobs <- j:
	default:
		r.logger.Warn("job queue full, dropping event", "kind", j.kind)
	}
}

// processActivation handles one button press: publish the raw activation
// notice, then open (or continue) the conversation with the initial prompt.
func (r *Relay) processActivation(ctx context.Context) {
	pub, sess, ok := r.handles()
	if !ok {
		// A press during startup is lost, not queued.
		r.logger.Warn("not ready, discarding button press")
		return
	}

	msgID, err := pub.Publish(TopicActivation, 0, false, []byte(activationNotice))
	if err != nil {
		r.logger.Error("publishing activation notice", "error", err)
	} else {
		r.logger.Info("button pressed", "topic", TopicActivation, "msg_id", msgID)
	}

	r.roundTrip(ctx, pub, sess, r.cfg.InitialPrompt)
}

// processPeerEcho handles one peer message: copy it into the conversation
// buffer (truncating at capacity) and continue the conversation with the
// buffer contents as the prompt.
func (r *Relay) processPeerEcho(ctx context.Context, payload []byte) {
	pub, sess, ok := r.handles()
	if !ok {
		r.logger.Warn("not ready, discarding peer echo")
		return
	}

	if truncated := r.slot.Write(payload); truncated {
		r.logger.Warn("inbound payload truncated",
			"payload_len", len(payload),
			"capacity", r.slot.Cap(),
		)
	}

	if r.loopGuard != nil && r.loopGuard.CheckAndMark(r.slot.Bytes()) {
		r.logger.Warn("peer echo recirculated, breaking loop", "len", r.slot.Len())
		return
	}

	r.roundTrip(ctx, pub, sess, r.slot.String())
}

// roundTrip performs one completion call and republishes the bounded reply.
// Errors end the turn silently (log only, no publish, no retry); the relay
// returns to idle ready for the next event of either kind.
func (r *Relay) roundTrip(ctx context.Context, pub broker.Publisher, sess completion.Session, prompt string) {
	if r.cfg.MaxTurns > 0 && r.turns >= r.cfg.MaxTurns {
		r.logger.Warn("turn budget exhausted, skipping completion", "max_turns", r.cfg.MaxTurns)
		return
	}
	r.turns++

	callID := uuid.NewString()[:8]
	r.logger.Info("completion call", "call_id", callID, "prompt_len", len(prompt))

	reply, err := sess.Send(ctx, prompt, true)
	if err != nil {
		r.logger.Error("completion call failed", "call_id", callID, "error", err)
		return
	}
	defer reply.Close()

	text := reply.Text()
	if text == "" {
		r.logger.Error("empty completion reply", "call_id", callID)
		return
	}

	out, truncated := buffer.Truncate(text, r.slot.Cap())
	if truncated {
		r.logger.Warn("reply truncated",
			"call_id", callID,
			"reply_len", len(text),
			"capacity", r.slot.Cap(),
		)
	}

	msgID, err := pub.Publish(TopicReplies, 0, false, []byte(out))
	if err != nil {
		r.logger.Error("publishing reply", "call_id", callID, "error", err)
		return
	}
	r.logger.Info("reply published",
		"call_id", callID,
		"topic", TopicReplies,
		"msg_id", msgID,
		"len", len(out),
	)
}
