package fps

import (
	"log"
	"time"
)

const windowSize = 100

// Tracker reports frame throughput once per fixed window of frames. Each
// session owns one tracker; it is never shared and never blocks.
type Tracker struct {
	count  int
	start  time.Time
	now    func() time.Time
	report func(fps float64)
}

func New() *Tracker {
	return &Tracker{
		now: time.Now,
		report: func(fps float64) {
			log.Printf("fps %.2f", fps)
		},
	}
}

// NewWithReport routes throughput reports to a custom sink.
func NewWithReport(report func(fps float64)) *Tracker {
	t := New()
	if report != nil {
		t.report = report
	}
	return t
}

func (t *Tracker) Reset() {
	t.count = 0
	t.start = t.now()
}

// OnFrame counts one processed frame. On the hundredth frame since the
// last reset or report it emits frames-per-second over the elapsed wall
// clock and re-arms, giving non-overlapping reporting windows.
func (t *Tracker) OnFrame() {
	if t.start.IsZero() {
		t.start = t.now()
	}
	t.count++
	if t.count < windowSize {
		return
	}
	elapsed := t.now().Sub(t.start).Seconds()
	if elapsed > 0 {
		t.report(float64(windowSize) / elapsed)
	}
	t.count = 0
	t.start = t.now()
}
