// ABOUTME: Tests for the fixed-capacity conversation slot.
// ABOUTME: Covers exact fits, truncation at capacity, and UTF-8 boundary safety.

package buffer

import (
	"bytes"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlot_WriteFits(t *testing.T) {
	s := New(500)

	truncated := s.Write([]byte("hello"))

	assert.False(t, truncated)
	assert.Equal(t, "hello", s.String())
	assert.Equal(t, 5, s.Len())
	assert.Equal(t, 500, s.Cap())
}

func TestSlot_WriteExactCapacity(t *testing.T) {
	s := New(10)

	truncated := s.Write([]byte("0123456789"))

	assert.False(t, truncated)
	assert.Equal(t, "0123456789", s.String())
}

func TestSlot_WriteTruncates(t *testing.T) {
	s := New(500)
	payload := bytes.Repeat([]byte("x"), 600)

	truncated := s.Write(payload)

	assert.True(t, truncated)
	assert.Equal(t, 500, s.Len())
	assert.Equal(t, string(payload[:500]), s.String())
}

func TestSlot_OverwriteReplacesContents(t *testing.T) {
	s := New(50)

	s.Write([]byte("first message that is fairly long"))
	s.Write([]byte("short"))

	assert.Equal(t, "short", s.String())
	assert.Equal(t, 5, s.Len())
}

func TestSlot_TruncationRespectsRuneBoundary(t *testing.T) {
	// "é" is 2 bytes; capacity 5 would split the third rune.
	s := New(5)

	truncated := s.WriteString("ééé")

	assert.True(t, truncated)
	assert.Equal(t, "éé", s.String())
	require.True(t, utf8.ValidString(s.String()))
}

func TestSlot_StringIsACopy(t *testing.T) {
	s := New(20)
	s.Write([]byte("before"))
	got := s.String()

	s.Write([]byte("after"))

	assert.Equal(t, "before", got)
}

func TestSlot_Reset(t *testing.T) {
	s := New(20)
	s.Write([]byte("something"))

	s.Reset()

	assert.Equal(t, 0, s.Len())
	assert.Equal(t, "", s.String())
}

func TestNew_PanicsOnZeroCapacity(t *testing.T) {
	assert.Panics(t, func() { New(0) })
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		max       int
		want      string
		truncated bool
	}{
		{"fits", "hello", 500, "hello", false},
		{"exact", "hello", 5, "hello", false},
		{"cut", strings.Repeat("a", 600), 500, strings.Repeat("a", 500), true},
		{"rune boundary", "ééé", 5, "éé", true},
		{"empty", "", 10, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, truncated := Truncate(tt.text, tt.max)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.truncated, truncated)
			assert.True(t, utf8.ValidString(got))
		})
	}
}
