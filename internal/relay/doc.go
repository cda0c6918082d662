// Package relay implements the conversational relay at the heart of the
// device. Two event sources feed it: button activations from the input
// sampler and inbound broker messages. Both enqueue onto one bounded queue
// consumed by a single worker goroutine, which owns the conversation buffer
// and the completion session.
//
// # Event flow
//
// A button press publishes an activation notice and opens the conversation
// with the configured initial prompt. A peer echo on /client_gpt lands in the
// fixed-capacity conversation buffer and continues the conversation with the
// buffer contents. Either way the completion reply is truncated to the buffer
// capacity and republished on /esp_gpt_out, which the peer is expected to
// echo back — an intentionally open-ended discussion loop.
//
// # Failure model
//
// No failure here is fatal. Missing handles discard the event; completion
// errors and empty replies log and skip the publish; oversize payloads
// truncate with a diagnostic. The worker always returns to idle.
package relay
