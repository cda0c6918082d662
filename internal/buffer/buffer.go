// ABOUTME: Fixed-capacity conversation buffer with explicit truncation semantics.
// ABOUTME: Reused in place across events; writers truncate, never grow or overflow.

package buffer

import (
	"unicode/utf8"
)

// Slot is a fixed-capacity byte slot holding the most recently received peer
// reply. It is allocated once and reused in place: every write copies into the
// same backing array, truncating when the payload exceeds capacity. A Slot is
// not safe for concurrent use; the relay worker is its sole owner.
type Slot struct {
	buf []byte
	n   int
}

// New creates a Slot with the given capacity in bytes. Capacity must be
// positive; callers get it from config validation, so this panics on misuse
// rather than returning an error.
func New(capacity int) *Slot {
	if capacity <= 0 {
		panic("buffer: capacity must be positive")
	}
	return &Slot{buf: make([]byte, capacity)}
}

// Write replaces the slot contents with p, copying at most Cap() bytes.
// It reports whether the payload was truncated. Truncation backs off to the
// nearest UTF-8 rune boundary so the stored text is never a torn sequence.
func (s *Slot) Write(p []byte) bool {
	cut, truncated := cutPoint(len(p), s.buf, func(i int) byte { return p[i] })
	s.n = copy(s.buf, p[:cut])
	return truncated
}

// WriteString is Write for string payloads, without an intermediate copy.
func (s *Slot) WriteString(p string) bool {
	cut, truncated := cutPoint(len(p), s.buf, func(i int) byte { return p[i] })
	s.n = copy(s.buf, p[:cut])
	return truncated
}

// cutPoint returns how many leading bytes of a payload of length n fit into
// buf without splitting a UTF-8 sequence, and whether that cuts anything off.
func cutPoint(n int, buf []byte, at func(int) byte) (int, bool) {
	if n <= len(buf) {
		return n, false
	}
	cut := len(buf)
	for cut > 0 && !utf8.RuneStart(at(cut)) {
		cut--
	}
	return cut, true
}

// String returns the current contents as a string. The returned value is a
// copy and remains valid after the next Write.
func (s *Slot) String() string {
	return string(s.buf[:s.n])
}

// Bytes returns the current contents. The slice aliases the slot's backing
// array and is invalidated by the next Write.
func (s *Slot) Bytes() []byte {
	return s.buf[:s.n]
}

// Len returns the current content length in bytes.
func (s *Slot) Len() int { return s.n }

// Cap returns the fixed capacity in bytes.
func (s *Slot) Cap() int { return len(s.buf) }

// Reset empties the slot without releasing the backing array.
func (s *Slot) Reset() { s.n = 0 }

// Truncate bounds text to max bytes on a UTF-8 rune boundary and reports
// whether anything was cut. Used on outbound reply text, which shares the
// slot's capacity policy but never lives in the slot itself.
func Truncate(text string, max int) (string, bool) {
	if len(text) <= max {
		return text, false
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut], true
}
