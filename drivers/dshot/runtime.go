package dshot

import (
	"math/bits"
	"sync/atomic"

	"dshot-go/errcode"
)

// rxIdleTicks ends a reply capture after 35us of idle line.
const rxIdleTicks = 350

// EventKind is the completion reported by a channel.
type EventKind uint8

const (
	EventTxDone EventKind = iota
	EventRxDone
)

// Event is one channel completion published by the peripheral.
type Event struct {
	Kind    EventKind
	Channel uint8
}

// Runtime owns a peripheral's channel pool and routes its completion
// interrupts to motors. Bring-up happens before interrupts are live;
// after that the routing tables are read-only.
type Runtime struct {
	per  Peripheral
	pool Pool

	tx [MaxChannels]*Motor
	rx [MaxChannels]*Motor

	motors [MaxChannels]*Motor
	n      int

	irqInstalled bool
	stray        atomic.Uint32
}

// NewRuntime binds a runtime to p. p must outlive the runtime.
func NewRuntime(p Peripheral) *Runtime {
	return &Runtime{per: p, pool: NewPool(p.Channels())}
}

// Pool returns a copy of the channel pool state.
func (r *Runtime) Pool() Pool { return r.pool }

// Motors returns the brought-up motors in bring-up order.
func (r *Runtime) Motors() []*Motor { return r.motors[:r.n] }

// Stray counts completions for channels no motor owns.
func (r *Runtime) Stray() uint32 { return r.stray.Load() }

// BringUp binds pin to one channel (unidirectional) or two (bidirectional)
// and configures them. On any failure no channel stays reserved.
func (r *Runtime) BringUp(pin Pin, c SpeedClass) (*Motor, error) {
	if pin == nil {
		return nil, errcode.InvalidParams
	}
	for _, m := range r.Motors() {
		if m.pin.Number() == pin.Number() {
			return nil, errcode.PinInUse
		}
	}
	c = c.Normalize()
	t := TimingFor(c)

	need := 1
	switch t.Dir {
	case Bidirectional:
		need = 2
	case Unidirectional:
	}
	idx, ok := r.pool.Reserve(need)
	if !ok {
		return nil, errcode.NoFreeChannel
	}

	m := &Motor{per: r.per, pin: pin, class: c, timing: t}
	switch t.Dir {
	case Bidirectional:
		m.rx, m.tx, m.hasRx = idx[0], idx[1], true
	case Unidirectional:
		m.tx = idx[0]
	}

	if err := r.configure(m); err != nil {
		for _, i := range idx[:need] {
			r.pool.Release(i)
		}
		return nil, errcode.Wrap(errcode.Error, "bring_up", err)
	}

	r.tx[m.tx] = m
	if m.hasRx {
		r.rx[m.rx] = m
	}
	r.motors[r.n] = m
	r.n++

	if !r.irqInstalled {
		r.per.OnInterrupt(r.HandleInterrupt)
		r.irqInstalled = true
	}

	// A held-low line lets the ESC start its boot sequence.
	pin.Set(false)
	return m, nil
}

func (r *Runtime) configure(m *Motor) error {
	switch m.timing.Dir {
	case Bidirectional:
		if err := r.per.ConfigureRX(m.rx, m.pin, rxIdleTicks); err != nil {
			return err
		}
		if err := r.per.ConfigureTX(m.tx, m.pin, true); err != nil {
			return err
		}
	case Unidirectional:
		if err := r.per.ConfigureTX(m.tx, m.pin, false); err != nil {
			return err
		}
	}
	r.per.EnableTxInterrupt(m.tx, true)
	return nil
}

// Dispatch routes one completion event to the owning motor.
func (r *Runtime) Dispatch(ev Event) {
	if ev.Channel >= MaxChannels {
		r.stray.Add(1)
		return
	}
	switch ev.Kind {
	case EventTxDone:
		if m := r.tx[ev.Channel]; m != nil {
			m.handleTxDone()
			return
		}
	case EventRxDone:
		if m := r.rx[ev.Channel]; m != nil {
			m.handleRxDone()
			return
		}
	}
	r.stray.Add(1)
}

// HandleInterrupt services every pending completion and clears it.
// It is installed as the peripheral's interrupt handler.
func (r *Runtime) HandleInterrupt() {
	for st := r.per.PendingTX(); st != 0; st &= st - 1 {
		ch := uint8(bits.TrailingZeros32(st))
		r.Dispatch(Event{Kind: EventTxDone, Channel: ch})
		r.per.ClearTX(ch)
	}
	for st := r.per.PendingRX(); st != 0; st &= st - 1 {
		ch := uint8(bits.TrailingZeros32(st))
		r.Dispatch(Event{Kind: EventRxDone, Channel: ch})
		r.per.ClearRX(ch)
	}
}

// Close unbinds every motor and frees the pool. Motors must not be used
// afterwards.
func (r *Runtime) Close() {
	r.per.OnInterrupt(nil)
	r.irqInstalled = false
	for i := range r.tx {
		r.tx[i], r.rx[i] = nil, nil
	}
	for i := 0; i < r.n; i++ {
		r.motors[i] = nil
	}
	r.n = 0
	r.pool = NewPool(r.per.Channels())
}
