package backoff_test

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/rigwild/raspberry-instock-check/internal/services/backoff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedRand always returns the same offset, clamped to the requested range.
type fixedRand int

func (f fixedRand) IntN(n int) int {
	if int(f) >= n {
		return n - 1
	}
	return int(f)
}

// fakeClock is advanced manually by tests.
type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func silentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func defaultSettings() backoff.Settings {
	return backoff.Settings{Window: 5 * time.Minute, Threshold: 5, MinSkip: 4, MaxSkip: 13}
}

func TestController_EntersSkipStateAndResumes(t *testing.T) {
	t.Parallel()

	for _, offset := range []int{0, 3, 9, 100} {
		clock := newClock()
		ctrl := backoff.NewController(silentLogger(), defaultSettings(), fixedRand(offset), clock.Now)
		var st backoff.State

		// Arrange: four failures stay under the threshold.
		for range 4 {
			_, entered := ctrl.RecordFailure(&st)
			require.False(t, entered)
			clock.Advance(30 * time.Second)
		}

		// Act: the fifth failure crosses it.
		skip, entered := ctrl.RecordFailure(&st)

		// Assert
		require.True(t, entered)
		assert.GreaterOrEqual(t, skip, 4)
		assert.LessOrEqual(t, skip, 13)
		assert.Equal(t, skip, st.SkipRemaining)

		for i := range skip {
			assert.True(t, ctrl.Skip(&st), "cycle %d should be skipped", i+1)
		}
		assert.False(t, ctrl.Skip(&st), "cycle N+1 must fetch")
		assert.Zero(t, st.SkipRemaining)
	}
}

func TestController_WindowPrunesOldFailures(t *testing.T) {
	t.Parallel()

	clock := newClock()
	ctrl := backoff.NewController(silentLogger(), defaultSettings(), fixedRand(0), clock.Now)
	var st backoff.State

	for range 4 {
		_, entered := ctrl.RecordFailure(&st)
		require.False(t, entered)
	}

	clock.Advance(6 * time.Minute)

	_, entered := ctrl.RecordFailure(&st)
	assert.False(t, entered)
	assert.Len(t, st.Failures, 1)
	assert.False(t, ctrl.Skip(&st))
}

func TestController_LogIsNotClearedAfterSkipState(t *testing.T) {
	t.Parallel()

	clock := newClock()
	ctrl := backoff.NewController(silentLogger(), defaultSettings(), fixedRand(0), clock.Now)
	var st backoff.State

	for range 5 {
		ctrl.RecordFailure(&st)
	}
	for ctrl.Skip(&st) {
	}

	// Still inside the window: the next failure re-enters the skip state.
	clock.Advance(time.Minute)
	skip, entered := ctrl.RecordFailure(&st)
	assert.True(t, entered)
	assert.Equal(t, 4, skip)
	assert.Len(t, st.Failures, 6)
}

func TestController_SkipWithoutFailures(t *testing.T) {
	t.Parallel()

	ctrl := backoff.NewController(silentLogger(), defaultSettings(), fixedRand(0), nil)
	var st backoff.State

	assert.False(t, ctrl.Skip(&st))
	assert.Zero(t, st.SkipRemaining)
}
