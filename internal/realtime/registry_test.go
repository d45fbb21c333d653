package realtime

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistry_SecondConnectionEvictsFirst(t *testing.T) {
	r := NewRegistry()

	cancelled := false
	done := make(chan struct{})
	releaseA := r.Acquire("int-1", Handle{
		Cancel: func() {
			cancelled = true
			close(done)
		},
		Done: done,
	})
	require.Equal(t, 1, r.Count())

	doneB := make(chan struct{})
	releaseB := r.Acquire("int-1", Handle{Cancel: func() { close(doneB) }, Done: doneB})

	require.True(t, cancelled, "first connection was cancelled")
	require.Equal(t, 1, r.Count(), "registry holds exactly one entry after eviction")

	// Releasing the evicted handle must not remove the new entry.
	releaseA()
	require.Equal(t, 1, r.Count())

	releaseB()
	require.Equal(t, 0, r.Count())
}

func TestRegistry_ReleaseIdempotent(t *testing.T) {
	r := NewRegistry()
	done := make(chan struct{})
	close(done)

	release := r.Acquire("int-1", Handle{Done: done})
	release()
	release()
	require.Equal(t, 0, r.Count())
}

func TestRegistry_IndependentInterviews(t *testing.T) {
	r := NewRegistry()
	d1, d2 := make(chan struct{}), make(chan struct{})
	close(d1)
	close(d2)

	rel1 := r.Acquire("int-1", Handle{Done: d1})
	rel2 := r.Acquire("int-2", Handle{Done: d2})
	require.Equal(t, 2, r.Count())

	rel1()
	require.Equal(t, 1, r.Count())
	rel2()
	require.Equal(t, 0, r.Count())
}

func TestRegistry_CancelAll(t *testing.T) {
	r := NewRegistry()
	n := 0
	d1, d2 := make(chan struct{}), make(chan struct{})
	r.Acquire("int-1", Handle{Cancel: func() { n++; close(d1) }, Done: d1})
	r.Acquire("int-2", Handle{Cancel: func() { n++; close(d2) }, Done: d2})

	r.CancelAll()
	require.Equal(t, 2, n)
}
