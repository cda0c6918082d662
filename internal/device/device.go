// ABOUTME: Startup wiring: builds the broker client, completion session,
// ABOUTME: sampler and relay from config, and manages their lifecycle.

package device

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/2389/chatter-relay/internal/broker"
	"github.com/2389/chatter-relay/internal/completion"
	"github.com/2389/chatter-relay/internal/config"
	"github.com/2389/chatter-relay/internal/guard"
	"github.com/2389/chatter-relay/internal/relay"
	"github.com/2389/chatter-relay/internal/sampler"
)

const (
	// defaultGuardTTL is the echo-guard window when the config sets none.
	defaultGuardTTL = 2 * time.Minute

	// guardMaxEntries bounds the echo guard's memory.
	guardMaxEntries = 4096
)

// Device owns the process-lifetime components of the relay. It is the sole
// writer of the relay's two shared handles, exactly once, before any event
// can fire.
type Device struct {
	cfg       *config.Config
	logger    *slog.Logger
	relay     *relay.Relay
	client    *broker.Client
	session   *completion.OpenAISession
	sampler   *sampler.Sampler
	loopGuard *guard.Guard
}

// New wires the components together. The input line is passed in so callers
// control hardware access (the CLI opens a GPIO pin; tests pass a fake).
func New(cfg *config.Config, line sampler.Line, logger *slog.Logger) *Device {
	if logger == nil {
		logger = slog.Default()
	}

	guardTTL := cfg.Relay.EchoGuardTTL
	if guardTTL <= 0 {
		guardTTL = defaultGuardTTL
	}
	loopGuard := guard.New(guardTTL, guardMaxEntries)

	r := relay.New(relay.Config{
		InitialPrompt:  cfg.Relay.InitialPrompt,
		BufferCapacity: cfg.Relay.BufferCapacity,
		QueueSize:      cfg.Relay.QueueSize,
		MaxTurns:       cfg.Relay.MaxTurns,
	}, loopGuard, logger)

	session := completion.NewSession(completion.Config{
		APIKey:  cfg.Completion.APIKey,
		BaseURL: cfg.Completion.BaseURL,
		Model:   cfg.Completion.Model,
	})
	session.SetTemperature(relay.Temperature)

	client := broker.NewClient(broker.Options{
		URI:      cfg.Broker.URI,
		ClientID: cfg.Broker.ClientID,
		Username: cfg.Broker.Username,
		Password: cfg.Broker.Password,
	}, r.HandleEvent, logger)

	// Single write of the shared handles, before Connect can deliver events.
	r.Bind(client, session)

	s := sampler.New(line, cfg.Input.PollInterval, r.HandleActivation, logger)

	return &Device{
		cfg:       cfg,
		logger:    logger.With("component", "device"),
		relay:     r,
		client:    client,
		session:   session,
		sampler:   s,
		loopGuard: loopGuard,
	}
}

// Run starts the relay worker and the sampler, connects to the broker, and
// blocks until ctx is canceled. Returns nil on graceful shutdown or an error
// if the broker connection cannot be established.
func (d *Device) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Worker and sampler start first so the connect event and early button
	// presses have consumers.
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		d.relay.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		d.sampler.Run(ctx)
	}()

	d.logger.Info("connecting to broker", "uri", d.cfg.Broker.URI)
	if err := d.client.Connect(ctx); err != nil {
		cancel()
		wg.Wait()
		d.loopGuard.Close()
		return fmt.Errorf("starting device: %w", err)
	}

	d.logger.Info("device up",
		"pin", d.cfg.Input.Pin,
		"model", d.cfg.Completion.Model,
	)

	<-ctx.Done()
	d.logger.Info("context canceled, shutting down")

	d.client.Disconnect()
	cancel()
	wg.Wait()
	d.loopGuard.Close()
	return nil
}
