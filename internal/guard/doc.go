// Package guard breaks exact recirculation in the endless-discussion loop.
// The relay has no natural termination condition; the guard remembers digests
// of recently relayed peer payloads and rejects a payload seen again within
// a configurable window.
package guard
