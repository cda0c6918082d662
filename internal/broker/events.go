// ABOUTME: Broker event variant and the narrow interfaces the relay consumes.
// ABOUTME: Connection lifecycle and inbound messages are one tagged Event type.

package broker

// EventKind tags the variant carried by an Event.
type EventKind int

const (
	// EventConnected fires when the broker session is established. The
	// startup collaborator must subscribe to its topics on this event.
	EventConnected EventKind = iota

	// EventDisconnected fires when the connection is lost. Err carries the
	// transport error, if any.
	EventDisconnected

	// EventPublished confirms completion of an outbound publish.
	// MessageID identifies the publish.
	EventPublished

	// EventData carries an inbound message. Topic and Payload are valid;
	// Payload is owned by the receiver for the duration of handling only.
	EventData

	// EventError reports a transport-level failure. Logged only; no
	// reconnect logic lives at this layer.
	EventError
)

// String returns the event kind name for logs.
func (k EventKind) String() string {
	switch k {
	case EventConnected:
		return "connected"
	case EventDisconnected:
		return "disconnected"
	case EventPublished:
		return "published"
	case EventData:
		return "data"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is the tagged variant delivered by the broker client. Which fields
// are meaningful depends on Kind; see the kind constants.
type Event struct {
	Kind      EventKind
	MessageID uint16
	Topic     string
	Payload   []byte
	Err       error
}

// Handler receives broker events. It is invoked from the broker client's
// delivery goroutines and must not block; hand work off to a queue.
type Handler func(Event)

// Publisher is the outbound half of the broker client, shared by the
// activation path and the inbound-message path.
type Publisher interface {
	// Publish sends payload on topic and returns the broker message ID.
	// QoS 0 publishes complete without waiting for the network.
	Publish(topic string, qos byte, retain bool, payload []byte) (uint16, error)

	// Subscribe registers interest in a topic. Inbound messages arrive as
	// EventData events on the client's handler.
	Subscribe(topic string, qos byte) error
}
