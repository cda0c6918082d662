// Package broker is the boundary to the publish/subscribe transport. It
// exposes the connection lifecycle and inbound messages as one tagged Event
// variant and publishing through the narrow Publisher interface, keeping the
// MQTT library out of the relay core.
package broker
