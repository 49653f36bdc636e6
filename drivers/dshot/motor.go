package dshot

import (
	"sync"
	"sync/atomic"

	"dshot-go/x/mathx"
)

// State is a motor line's position in the half-duplex cycle.
type State uint32

const (
	StateIdle State = iota
	StateTransmitting
	StateAwaitingReply
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateTransmitting:
		return "transmitting"
	case StateAwaitingReply:
		return "awaiting_reply"
	}
	return "unknown"
}

// Motor is one ESC line bound to its peripheral channels.
//
// Send methods are called from one goroutine and return as soon as the
// transmission starts. Everything after that runs in the peripheral's
// interrupt handler. Telemetry fields are written only by that handler
// and read word by word.
type Motor struct {
	per    Peripheral
	pin    Pin
	class  SpeedClass
	timing Timing
	tx, rx uint8
	hasRx  bool

	train PulseTrain

	state    atomic.Uint32
	sends    atomic.Uint32
	erpmUs   atomic.Uint32
	last     atomic.Uint32
	slots    [NumFields]atomic.Uint32
	received atomic.Uint32
	valid    atomic.Uint32

	kissMu    sync.Mutex
	kiss      KISSFrame
	kissCount uint32
}

func (m *Motor) Pin() Pin             { return m.pin }
func (m *Motor) Class() SpeedClass    { return m.class }
func (m *Motor) Timing() Timing       { return m.timing }
func (m *Motor) Direction() Direction { return m.timing.Dir }
func (m *Motor) TxChannel() uint8     { return m.tx }
func (m *Motor) State() State         { return State(m.state.Load()) }

// RxChannel returns the receive channel of a bidirectional motor.
func (m *Motor) RxChannel() (uint8, bool) { return m.rx, m.hasRx }

// Sends counts frames handed to the peripheral.
func (m *Motor) Sends() uint32 { return m.sends.Load() }

// SetThrottle sends logical throttle 0..1999 (values offset past the
// command range; anything that lands above 2047 is clamped).
func (m *Motor) SetThrottle(level uint16, telemetry bool) {
	v := mathx.Min(uint32(level)+uint32(ThrottleMin), uint32(ThrottleMax))
	m.send(uint16(v), telemetry)
}

// SetThrottleFraction sends f in [0, 1] scaled to 0..2000. Out-of-range
// and NaN inputs are clamped.
func (m *Motor) SetThrottleFraction(f float32, telemetry bool) {
	m.SetThrottle(uint16(mathx.ClampUnit(f)*float32(ThrottleSpan)), telemetry)
}

// Command sends a reserved command code. Codes above CmdMax are ignored.
func (m *Motor) Command(c Command, telemetry bool) {
	if !c.Valid() {
		return
	}
	m.send(uint16(c), telemetry)
}

// ParkLow drives the line low outside of any transmission.
func (m *Motor) ParkLow() { m.pin.Set(false) }

func (m *Motor) send(value uint16, telemetry bool) {
	Encode(&m.train, value, telemetry, m.timing)
	m.per.Load(m.tx, &m.train)
	switch m.timing.Dir {
	case Bidirectional:
		// Start the turn-around from a known high line.
		m.pin.Set(true)
	case Unidirectional:
	}
	m.state.Store(uint32(StateTransmitting))
	m.sends.Add(1)
	m.per.AttachTX(m.tx, m.pin)
	m.per.StartTX(m.tx)
}

// handleTxDone runs in interrupt context.
func (m *Motor) handleTxDone() {
	switch m.timing.Dir {
	case Bidirectional:
		m.per.AttachRX(m.rx, m.pin)
		m.pin.PullUp()
		m.per.ArmRX(m.rx)
		m.state.Store(uint32(StateAwaitingReply))
	case Unidirectional:
		m.state.Store(uint32(StateIdle))
	}
}

// handleRxDone runs in interrupt context. The capture is only touched
// between acquire and release. A capture finishing outside the reply
// window belongs to an earlier frame and is dropped.
func (m *Motor) handleRxDone() {
	c := m.per.AcquireCapture(m.rx)
	if m.State() != StateAwaitingReply {
		m.per.ReleaseCapture(m.rx)
		return
	}
	v, st := Decode(c, m.timing.BitNs)
	m.per.ReleaseCapture(m.rx)
	if m.state.CompareAndSwap(uint32(StateAwaitingReply), uint32(StateIdle)) {
		m.record(v, st)
	}
}

func (m *Motor) record(v Value, st DecodeStatus) {
	if !st.Received() {
		return
	}
	m.received.Add(1)
	if st != DecodeOK {
		return
	}
	m.valid.Add(1)
	m.last.Store(uint32(v))
	if v.IsExtended() {
		m.erpmUs.Store(uint32(v.ERPMPeriodUs()))
		return
	}
	m.slots[v.Field()].Store(uint32(v.Byte()))
}

// StoreKISS attaches a UART telemetry frame to the motor.
func (m *Motor) StoreKISS(f KISSFrame) {
	m.kissMu.Lock()
	m.kiss = f
	m.kissCount++
	m.kissMu.Unlock()
}

// Telemetry returns the latest telemetry. Fields are read one word at a
// time, so a reply landing mid-read can leave the snapshot mixed.
func (m *Motor) Telemetry() Telemetry {
	t := Telemetry{
		ERPMPeriodUs: uint16(m.erpmUs.Load()),
		Last:         Value(m.last.Load()),
		Received:     m.received.Load(),
		Valid:        m.valid.Load(),
	}
	for i := range t.Slots {
		t.Slots[i] = uint8(m.slots[i].Load())
	}
	m.kissMu.Lock()
	t.KISS, t.KISSCount = m.kiss, m.kissCount
	m.kissMu.Unlock()
	return t
}
