package ramp

import (
	"time"

	"dshot-go/x/mathx"
)

// Step sets the new logical level in [0..top].
type Step func(level uint16)

// Tick waits for d and reports whether to continue (false => cancelled).
type Tick func(d time.Duration) bool

// Plan is an integer linear ramp from one level to another in equal steps.
type Plan struct {
	From, To uint16
	Steps    uint16
	Every    time.Duration
}

// Linear plans a ramp from cur to to (clamped to top) over duration.
// steps==0 or duration<=0 plans a single snap to the target.
func Linear(cur, to, top uint16, duration time.Duration, steps uint16) Plan {
	to = mathx.Min(to, top)
	cur = mathx.Min(cur, top)
	if steps == 0 || duration <= 0 {
		return Plan{From: cur, To: to, Steps: 1}
	}
	every := mathx.Max(duration/time.Duration(steps), time.Millisecond)
	return Plan{From: cur, To: to, Steps: steps, Every: every}
}

// At returns the level after step i (1..Steps). The last step is exactly To.
func (p Plan) At(i uint16) uint16 {
	if p.Steps == 0 || i >= p.Steps {
		return p.To
	}
	d := int32(p.To) - int32(p.From)
	return uint16(int32(p.From) + d*int32(i)/int32(p.Steps))
}

// Run sets every intermediate level, waiting Every before each one after
// the first step. A cancelled tick stops the ramp where it is; it returns
// whether the ramp reached To.
func (p Plan) Run(tick Tick, set Step) bool {
	last := p.From
	for i := uint16(1); i <= p.Steps; i++ {
		if i > 1 && !tick(p.Every) {
			return false
		}
		if lv := p.At(i); lv != last || i == p.Steps {
			set(lv)
			last = lv
		}
	}
	return true
}
