// Package completion is the boundary to the remote conversational-completion
// service. A Session carries a bounded conversation history and produces
// Reply resources that must be explicitly released; only one reply may be
// outstanding at a time.
package completion
