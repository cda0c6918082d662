// ABOUTME: MQTT broker client over paho.mqtt.golang, translating callbacks
// ABOUTME: into the tagged Event variant consumed by the relay.

package broker

import (
	"context"
	"fmt"
	"log/slog"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// Options configures the broker connection. All values arrive from the
// startup wiring; the wire protocol itself is the library's concern.
type Options struct {
	URI      string
	ClientID string
	Username string
	Password string
}

// Client wraps an MQTT session and surfaces its lifecycle as Events.
// Handler callbacks run on paho's delivery goroutines.
type Client struct {
	cli     mqtt.Client
	handler Handler
	logger  *slog.Logger
}

// NewClient builds a broker client delivering events to handler. A short
// random suffix keeps the client ID unique across restarts, since brokers
// drop the older of two sessions with the same ID.
func NewClient(opts Options, handler Handler, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		handler: handler,
		logger:  logger.With("component", "broker"),
	}

	clientID := fmt.Sprintf("%s-%s", opts.ClientID, uuid.NewString()[:8])

	mqttOpts := mqtt.NewClientOptions().
		AddBroker(opts.URI).
		SetClientID(clientID).
		SetOnConnectHandler(c.onConnect).
		SetConnectionLostHandler(c.onConnectionLost).
		SetDefaultPublishHandler(c.onMessage)
	if opts.Username != "" {
		mqttOpts.SetUsername(opts.Username)
		mqttOpts.SetPassword(opts.Password)
	}

	c.cli = mqtt.NewClient(mqttOpts)
	return c
}

// Connect dials the broker, waiting for the session or ctx expiry.
func (c *Client) Connect(ctx context.Context) error {
	token := c.cli.Connect()
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("connecting to broker: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("connecting to broker: %w", ctx.Err())
	}
}

// Publish sends payload on topic, returning the broker message ID without
// waiting for delivery. Completion (or failure) surfaces later as an
// EventPublished or EventError on the handler.
func (c *Client) Publish(topic string, qos byte, retain bool, payload []byte) (uint16, error) {
	token := c.cli.Publish(topic, qos, retain, payload)

	var msgID uint16
	if pt, ok := token.(*mqtt.PublishToken); ok {
		msgID = pt.MessageID()
	}

	go func() {
		<-token.Done()
		if err := token.Error(); err != nil {
			c.handler(Event{Kind: EventError, MessageID: msgID, Err: err})
			return
		}
		c.handler(Event{Kind: EventPublished, MessageID: msgID})
	}()

	return msgID, nil
}

// Subscribe registers for a topic; inbound messages arrive via the default
// publish handler as EventData.
func (c *Client) Subscribe(topic string, qos byte) error {
	token := c.cli.Subscribe(topic, qos, nil)
	<-token.Done()
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	return nil
}

// Disconnect closes the session, allowing in-flight work a short drain.
func (c *Client) Disconnect() {
	c.cli.Disconnect(250)
}

func (c *Client) onConnect(_ mqtt.Client) {
	c.logger.Info("broker connected")
	c.handler(Event{Kind: EventConnected})
}

func (c *Client) onConnectionLost(_ mqtt.Client, err error) {
	c.logger.Warn("broker connection lost", "error", err)
	c.handler(Event{Kind: EventDisconnected, Err: err})
}

func (c *Client) onMessage(_ mqtt.Client, msg mqtt.Message) {
	// Paho reuses message buffers; copy before the payload escapes this
	// callback.
	payload := make([]byte, len(msg.Payload()))
	copy(payload, msg.Payload())

	c.handler(Event{
		Kind:      EventData,
		MessageID: msg.MessageID(),
		Topic:     msg.Topic(),
		Payload:   payload,
	})
}
