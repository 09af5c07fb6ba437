package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCreepPolicyGovernThrottle(t *testing.T) {
	cases := []struct {
		name     string
		topSpeed float64
		speed    float64
		want     float64
	}{
		{"stopped", 3.0, 0.0, 0.3},
		{"below top speed", 3.0, 2.99, 0.3},
		{"at top speed", 3.0, 3.0, 0.0},
		{"above top speed", 3.0, 7.5, 0.0},
		{"slow cap", 0.5, 0.49, 0.3},
		{"zero cap", 0.0, 0.0, 0.0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := NewCreepPolicy(tc.topSpeed)
			// The other arguments must not influence the result.
			for _, proposed := range []float64{-1, 0, 0.5, 1} {
				got := p.GovernThrottle(0.7, -0.2, tc.speed, proposed)
				assert.Equal(t, tc.want, got)
			}
		})
	}
}

func TestProportionalPolicyGovernThrottle(t *testing.T) {
	p := ProportionalPolicy{TargetSpeed: 4.0, Gain: 1.0}

	assert.Equal(t, 0.0, p.GovernThrottle(0, 0, 4.0, 1.0))
	assert.Equal(t, 0.0, p.GovernThrottle(0, 0, 6.0, 1.0))
	assert.Equal(t, 0.5, p.GovernThrottle(0, 0, 2.0, 1.0))
	assert.Equal(t, 0.0, p.GovernThrottle(0, 0, 2.0, -0.5))
	assert.Equal(t, 1.0, ProportionalPolicy{TargetSpeed: 4.0, Gain: 10.0}.GovernThrottle(0, 0, 0.0, 1.0))
	assert.Equal(t, 0.0, ProportionalPolicy{}.GovernThrottle(0, 0, 1.0, 1.0))
}
