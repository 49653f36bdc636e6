package dshot

import (
	"context"
	"time"
)

// ArmPhase is a step of the ESC arming sequence.
type ArmPhase uint8

const (
	PhaseLineLow ArmPhase = iota // hold every line low
	PhaseStop                    // repeat motor-stop
	PhaseZero                    // repeat zero throttle
	PhaseRestop                  // repeat motor-stop again
	PhaseDone
)

func (p ArmPhase) String() string {
	switch p {
	case PhaseLineLow:
		return "line_low"
	case PhaseStop:
		return "stop"
	case PhaseZero:
		return "zero"
	case PhaseRestop:
		return "restop"
	case PhaseDone:
		return "done"
	}
	return "unknown"
}

const (
	DefaultArmPhaseLen = 500 * time.Millisecond
	ArmTick            = time.Millisecond
)

// Arming drives motors through the arming phases. It keeps no clock of its
// own: the caller reports elapsed time through Step, so it can run from a
// ticker, a timer interrupt or a test loop.
type Arming struct {
	motors   []*Motor
	phaseLen time.Duration
	phase    ArmPhase
	elapsed  time.Duration
	entered  bool
	ticks    uint32
}

// NewArming prepares a sequence over motors. phaseLen <= 0 selects
// DefaultArmPhaseLen.
func NewArming(motors []*Motor, phaseLen time.Duration) *Arming {
	if phaseLen <= 0 {
		phaseLen = DefaultArmPhaseLen
	}
	return &Arming{motors: motors, phaseLen: phaseLen}
}

func (a *Arming) Phase() ArmPhase { return a.phase }
func (a *Arming) Done() bool      { return a.phase == PhaseDone }

// Ticks counts Step calls that performed a phase action.
func (a *Arming) Ticks() uint32 { return a.ticks }

// Step performs the current phase's action for one tick, then accounts dt
// against the phase. It returns the phase in effect afterwards.
func (a *Arming) Step(dt time.Duration) ArmPhase {
	if a.phase == PhaseDone {
		return a.phase
	}
	switch a.phase {
	case PhaseLineLow:
		if !a.entered {
			for _, m := range a.motors {
				m.ParkLow()
			}
		}
	case PhaseStop, PhaseRestop:
		for _, m := range a.motors {
			m.Command(CmdMotorStop, false)
		}
	case PhaseZero:
		for _, m := range a.motors {
			m.SetThrottle(0, false)
		}
	case PhaseDone:
	}
	a.entered = true
	a.ticks++
	if dt <= 0 {
		dt = ArmTick
	}
	a.elapsed += dt
	if a.elapsed >= a.phaseLen {
		a.phase++
		a.elapsed = 0
		a.entered = false
	}
	return a.phase
}

// Arm runs the arming sequence over every motor of the runtime, ticking
// every ArmTick. It blocks for about four phase lengths and returns early
// with ctx's error if cancelled between ticks.
func (r *Runtime) Arm(ctx context.Context, phaseLen time.Duration) error {
	a := NewArming(r.Motors(), phaseLen)
	tick := time.NewTicker(ArmTick)
	defer tick.Stop()
	for a.Step(ArmTick) != PhaseDone {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
		}
	}
	return nil
}
