package web

import "time"

// plausibility guards a single metric against one known bogus reading:
// the portal sometimes reports exactly implausible instead of the real
// value. The last good value is reused while it is younger than maxAge.
type plausibility struct {
	metric      string
	implausible float64
	maxAge      time.Duration

	last   float64
	lastAt time.Time
	seen   bool
}

// newGeneratedPowerPolicy guards powergenerated.now, which drops to 1e-05
// for single polls.
func newGeneratedPowerPolicy(interval time.Duration) *plausibility {
	return &plausibility{
		metric:      "powergenerated",
		implausible: 1e-05,
		maxAge:      2*interval + 30*time.Second,
	}
}

// apply returns the value to keep for v observed at now.
func (p *plausibility) apply(v float64, now time.Time) float64 {
	if v != p.implausible {
		p.last, p.lastAt, p.seen = v, now, true
		return v
	}
	if p.seen && now.Sub(p.lastAt) < p.maxAge {
		return p.last
	}
	return v
}
