package fps

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestTracker(reports *[]float64) (*Tracker, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	tracker := NewWithReport(func(fps float64) {
		*reports = append(*reports, fps)
	})
	tracker.now = clock.now
	return tracker, clock
}

func TestHundredFramesOneReport(t *testing.T) {
	var reports []float64
	tracker, clock := newTestTracker(&reports)

	tracker.Reset()
	for i := 0; i < 100; i++ {
		clock.advance(10 * time.Millisecond)
		tracker.OnFrame()
	}
	tracker.Reset()

	assert.Len(t, reports, 1)
	assert.InDelta(t, 100.0, reports[0], 0.01)
	assert.GreaterOrEqual(t, reports[0], 0.0)
}

func TestNoReportBelowWindow(t *testing.T) {
	var reports []float64
	tracker, clock := newTestTracker(&reports)

	tracker.Reset()
	for i := 0; i < 99; i++ {
		clock.advance(time.Millisecond)
		tracker.OnFrame()
	}
	assert.Empty(t, reports)
}

func TestResetRearmsWindow(t *testing.T) {
	var reports []float64
	tracker, clock := newTestTracker(&reports)

	tracker.Reset()
	for i := 0; i < 60; i++ {
		clock.advance(time.Millisecond)
		tracker.OnFrame()
	}
	tracker.Reset()
	for i := 0; i < 99; i++ {
		clock.advance(time.Millisecond)
		tracker.OnFrame()
	}
	assert.Empty(t, reports)

	clock.advance(time.Millisecond)
	tracker.OnFrame()
	assert.Len(t, reports, 1)
}

func TestConsecutiveWindows(t *testing.T) {
	var reports []float64
	tracker, clock := newTestTracker(&reports)

	tracker.Reset()
	for i := 0; i < 250; i++ {
		clock.advance(20 * time.Millisecond)
		tracker.OnFrame()
	}

	assert.Len(t, reports, 2)
	for _, fps := range reports {
		assert.InDelta(t, 50.0, fps, 0.01)
	}
}
