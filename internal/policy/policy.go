package policy

// Policy filters the model-proposed throttle before it reaches the
// simulator. Implementations must be pure: no side effects, no blocking,
// safe for concurrent use from every session.
type Policy interface {
	GovernThrottle(lastSteering, lastThrottle, speed, proposed float64) float64
}

const defaultCreep = 0.3

// CreepPolicy is the baseline governor: creep forward below the top speed,
// coast above it. The model-proposed throttle is ignored entirely.
type CreepPolicy struct {
	TopSpeed float64
	Creep    float64
}

func NewCreepPolicy(topSpeed float64) CreepPolicy {
	return CreepPolicy{TopSpeed: topSpeed, Creep: defaultCreep}
}

func (p CreepPolicy) GovernThrottle(_, _, speed, _ float64) float64 {
	if speed < p.TopSpeed {
		return p.Creep
	}
	return 0.0
}

// ProportionalPolicy eases throttle toward a target speed, scaling the
// proposed throttle by the remaining speed headroom. Same contract as
// CreepPolicy, swappable at startup.
type ProportionalPolicy struct {
	TargetSpeed float64
	Gain        float64
}

func (p ProportionalPolicy) GovernThrottle(_, _, speed, proposed float64) float64 {
	if p.TargetSpeed <= 0 {
		return 0.0
	}
	headroom := (p.TargetSpeed - speed) / p.TargetSpeed
	if headroom <= 0 {
		return 0.0
	}
	throttle := proposed * headroom * p.Gain
	if throttle < 0 {
		return 0.0
	}
	if throttle > 1 {
		return 1.0
	}
	return throttle
}
