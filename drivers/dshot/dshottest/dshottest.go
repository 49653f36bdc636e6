// Package dshottest provides an in-memory pulse peripheral and a simulated
// ESC for exercising the dshot package off target.
package dshottest

import (
	"errors"

	"dshot-go/drivers/dshot"
)

// Pin is a recording GPIO.
type Pin struct {
	N        int
	High     bool
	PulledUp bool
	Writes   int
}

func NewPin(n int) *Pin { return &Pin{N: n} }

func (p *Pin) Number() int { return p.N }

func (p *Pin) Set(high bool) {
	p.High = high
	p.PulledUp = false
	p.Writes++
}

func (p *Pin) PullUp() { p.PulledUp = true }

// Mode is how a channel is routed to a pin.
type Mode uint8

const (
	ModeNone Mode = iota
	ModeTX
	ModeRX
)

// Channel is the observable state of one fake channel.
type Channel struct {
	ConfiguredTX bool
	ConfiguredRX bool
	IdleHigh     bool
	IdleTicks    uint16
	TxIRQ        bool

	Train  dshot.PulseTrain
	Loads  int
	Starts int
	Armed  bool

	pin     dshot.Pin
	capture []dshot.Symbol
	held    bool
}

// Call is one recorded peripheral operation.
type Call struct {
	Op string
	Ch uint8
}

// ESCFunc answers a transmitted frame with a reply capture, or nil for no reply.
type ESCFunc func(train *dshot.PulseTrain) []dshot.Symbol

var ErrInjected = errors.New("dshottest: injected failure")

// Peripheral is a fake dshot.Peripheral.
//
// With Auto set, StartTX shows the frame to ESC and completes at once; when
// the line is then armed for receive, ESC's answer is delivered as its
// capture. Otherwise the test drives completions with CompleteTX and Deliver.
type Peripheral struct {
	N    int
	Ch   [dshot.MaxChannels]Channel
	Auto bool
	ESC  ESCFunc
	ESCs map[int]ESCFunc // by pin number, before ESC

	// FailTX and FailRX make the matching Configure call fail.
	FailTX bool
	FailRX bool

	Calls []Call
	Quiet bool // do not record Calls

	txPending uint32
	rxPending uint32
	handler   func()
	firing    bool
	replies   map[int][]dshot.Symbol // by pin, waiting for ArmRX
}

var _ dshot.Peripheral = (*Peripheral)(nil)

// New returns a peripheral with n channels.
func New(n int) *Peripheral {
	return &Peripheral{N: n, replies: make(map[int][]dshot.Symbol)}
}

func (p *Peripheral) record(op string, ch uint8) {
	if !p.Quiet {
		p.Calls = append(p.Calls, Call{Op: op, Ch: ch})
	}
}

// Count returns how many times op was called.
func (p *Peripheral) Count(op string) int {
	n := 0
	for _, c := range p.Calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Ops returns the recorded operation names in order.
func (p *Peripheral) Ops() []string {
	out := make([]string, len(p.Calls))
	for i, c := range p.Calls {
		out[i] = c.Op
	}
	return out
}

// ResetCalls clears the call log.
func (p *Peripheral) ResetCalls() { p.Calls = p.Calls[:0] }

func (p *Peripheral) Channels() int { return p.N }

func (p *Peripheral) ConfigureTX(ch uint8, pin dshot.Pin, idleHigh bool) error {
	p.record("configure_tx", ch)
	if p.FailTX {
		return ErrInjected
	}
	c := &p.Ch[ch]
	c.ConfiguredTX, c.IdleHigh, c.pin = true, idleHigh, pin
	return nil
}

func (p *Peripheral) ConfigureRX(ch uint8, pin dshot.Pin, idleTicks uint16) error {
	p.record("configure_rx", ch)
	if p.FailRX {
		return ErrInjected
	}
	c := &p.Ch[ch]
	c.ConfiguredRX, c.IdleTicks, c.pin = true, idleTicks, pin
	return nil
}

func (p *Peripheral) Load(ch uint8, train *dshot.PulseTrain) {
	p.record("load", ch)
	p.Ch[ch].Train = *train
	p.Ch[ch].Loads++
}

func (p *Peripheral) AttachTX(ch uint8, pin dshot.Pin) {
	p.record("attach_tx", ch)
	p.Ch[ch].pin = pin
}

func (p *Peripheral) AttachRX(ch uint8, pin dshot.Pin) {
	p.record("attach_rx", ch)
	p.Ch[ch].pin = pin
}

func (p *Peripheral) EnableTxInterrupt(ch uint8, on bool) {
	p.record("enable_tx_irq", ch)
	p.Ch[ch].TxIRQ = on
}

func (p *Peripheral) StartTX(ch uint8) {
	p.record("start_tx", ch)
	c := &p.Ch[ch]
	c.Starts++
	if !p.Auto {
		return
	}
	esc := p.ESC
	if c.pin != nil {
		if f, ok := p.ESCs[c.pin.Number()]; ok {
			esc = f
		}
	}
	if esc != nil && c.pin != nil {
		train := c.Train
		if caps := esc(&train); caps != nil {
			p.replies[c.pin.Number()] = caps
		} else {
			delete(p.replies, c.pin.Number())
		}
	}
	p.CompleteTX(ch)
}

func (p *Peripheral) ArmRX(ch uint8) {
	p.record("arm_rx", ch)
	c := &p.Ch[ch]
	c.Armed = true
	if !p.Auto || c.pin == nil {
		return
	}
	if caps, ok := p.replies[c.pin.Number()]; ok {
		delete(p.replies, c.pin.Number())
		p.stage(ch, caps)
	}
}

func (p *Peripheral) AcquireCapture(ch uint8) []dshot.Symbol {
	p.record("acquire", ch)
	c := &p.Ch[ch]
	c.Armed = false
	c.held = true
	return c.capture
}

// ReleaseCapture hands the buffer back; its contents are overwritten so a
// caller holding on to the slice reads garbage.
func (p *Peripheral) ReleaseCapture(ch uint8) {
	p.record("release", ch)
	c := &p.Ch[ch]
	for i := range c.capture {
		c.capture[i] = dshot.Symbol{Dur0: 0xFFFF, Lvl0: dshot.High, Dur1: 0xFFFF, Lvl1: dshot.High}
	}
	c.capture = c.capture[:0]
	c.held = false
}

// Held reports whether ch's capture is acquired and not yet released.
func (p *Peripheral) Held(ch uint8) bool { return p.Ch[ch].held }

func (p *Peripheral) PendingTX() uint32 { return p.txPending }
func (p *Peripheral) PendingRX() uint32 { return p.rxPending }

func (p *Peripheral) ClearTX(ch uint8) {
	p.record("clear_tx", ch)
	p.txPending &^= 1 << ch
}

func (p *Peripheral) ClearRX(ch uint8) {
	p.record("clear_rx", ch)
	p.rxPending &^= 1 << ch
}

func (p *Peripheral) OnInterrupt(h func()) { p.handler = h }

// Installed reports whether an interrupt handler is set.
func (p *Peripheral) Installed() bool { return p.handler != nil }

// stage makes caps the capture of ch and flags the receive completion.
func (p *Peripheral) stage(ch uint8, caps []dshot.Symbol) {
	c := &p.Ch[ch]
	c.capture = append(c.capture[:0], caps...)
	p.rxPending |= 1 << ch
}

// CompleteTX flags ch's transmission done and runs the handler.
func (p *Peripheral) CompleteTX(ch uint8) {
	p.txPending |= 1 << ch
	p.Fire()
}

// Deliver makes caps the capture on ch, flags it done and runs the handler.
func (p *Peripheral) Deliver(ch uint8, caps []dshot.Symbol) {
	p.stage(ch, caps)
	p.Fire()
}

// Fire runs the handler until nothing is pending. Calls made from inside
// the handler only mark work pending, as a real interrupt would.
func (p *Peripheral) Fire() {
	if p.firing || p.handler == nil {
		return
	}
	p.firing = true
	defer func() { p.firing = false }()
	for i := 0; i < 4 && p.txPending|p.rxPending != 0; i++ {
		p.handler()
	}
}

// RaiseTX and RaiseRX flag a completion without running the handler.
func (p *Peripheral) RaiseTX(ch uint8) { p.txPending |= 1 << ch }
func (p *Peripheral) RaiseRX(ch uint8) { p.rxPending |= 1 << ch }

// PinOf returns the pin last routed to ch.
func (p *Peripheral) PinOf(ch uint8) dshot.Pin { return p.Ch[ch].pin }

// Frame parses the train last loaded into ch.
func (p *Peripheral) Frame(ch uint8, c dshot.SpeedClass) (dshot.Frame, error) {
	return dshot.ParseFrame(&p.Ch[ch].Train, dshot.TimingFor(c))
}
