package id

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewIsMonotonic(t *testing.T) {
	t.Parallel()

	prev := New()
	for i := 0; i < 1000; i++ {
		next := New()
		assert.Len(t, next, 26)
		assert.Greater(t, next, prev)
		prev = next
	}
}

func TestSourceWithinOneMillisecond(t *testing.T) {
	t.Parallel()

	frozen := time.Date(2025, 7, 18, 14, 30, 0, 0, time.UTC)
	s := NewSource(42, func() time.Time { return frozen })

	prev := s.Next()
	for i := 0; i < 1000; i++ {
		next := s.Next()
		assert.Equal(t, prev[:10], next[:10])
		assert.Greater(t, next, prev)
		prev = next
	}
}

func TestSourceIsSeeded(t *testing.T) {
	t.Parallel()

	frozen := func() time.Time { return time.Unix(1752849000, 0) }
	a := NewSource(7, frozen)
	b := NewSource(7, frozen)
	for i := 0; i < 5; i++ {
		assert.Equal(t, a.Next(), b.Next())
	}
}
