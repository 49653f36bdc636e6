// services/motors/service.go
package motors

import (
	"context"
	"time"

	"dshot-go/bus"
	"dshot-go/drivers/dshot"
	"dshot-go/errcode"
	"dshot-go/types"
	"dshot-go/x/shmring"
	"dshot-go/x/strx"
	"dshot-go/x/timex"

	"tinygo.org/x/drivers"
)

// -----------------------------------------------------------------------------
// Topics
// -----------------------------------------------------------------------------

var (
	topicConfig  = bus.T("config", "motors")
	topicControl = bus.T("motors", "+", "control", "+")
	topicArm     = bus.T("motors", "arm")
	topicState   = bus.T("motors", "state")
)

func telemetryTopic(name string) bus.Topic { return bus.T("motors", name, "telemetry") }

// -----------------------------------------------------------------------------
// Defaults
// -----------------------------------------------------------------------------

const (
	defaultRefresh   = 10 * time.Millisecond
	minRefresh       = time.Millisecond
	defaultTelemetry = time.Second
	minTelemetry     = 10 * time.Millisecond
	defaultKISSBaud  = 115200
	kissRingSize     = 256
)

// PinFactory hands out the line for a GPIO number.
type PinFactory func(n int) (dshot.Pin, error)

// Option customises a Service.
type Option func(*Service)

// WithKISSUART polls u for KISS telemetry on every refresh instead of
// opening the UART named in the configuration.
func WithKISSUART(u drivers.UART) Option { return func(s *Service) { s.uart = u } }

// -----------------------------------------------------------------------------
// Service
// -----------------------------------------------------------------------------

type motor struct {
	name  string
	m     *dshot.Motor
	poles int

	level       uint16 // logical throttle 0..1999
	hasThrottle bool
	wantTelem   bool

	cmd    dshot.Command
	cmdN   int
	cmdTel bool

	rampGen    uint32
	rampCancel context.CancelFunc

	lastReceived uint32
	lastValid    uint32
}

type rampStep struct {
	m     *motor
	gen   uint32
	level uint16
}

// Service drives the motors of one dshot.Runtime from bus messages.
// Everything but KISS reads and ramp timing runs on its loop goroutine.
type Service struct {
	rt   *dshot.Runtime
	pins PinFactory
	uart drivers.UART

	conn   *bus.Connection
	motors map[string]*motor
	order  []*motor

	refresh   time.Duration
	telemetry time.Duration
	armPhase  time.Duration
	armed     bool

	arming *dshot.Arming
	armReq []*bus.Message

	refreshT *time.Ticker
	telemT   *time.Ticker
	armT     *time.Ticker

	ramps    chan rampStep
	kissRing *shmring.Ring
	kiss     dshot.KISSAssembler
	owner    *motor // last motor to request telemetry
}

// New returns a service over rt. pins resolves configured GPIO numbers.
func New(rt *dshot.Runtime, pins PinFactory, opts ...Option) *Service {
	s := &Service{
		rt:        rt,
		pins:      pins,
		motors:    map[string]*motor{},
		refresh:   defaultRefresh,
		telemetry: defaultTelemetry,
		ramps:     make(chan rampStep, 8),
		kissRing:  shmring.New(kissRingSize),
	}
	s.kiss.OnFrame = func(f dshot.KISSFrame) {
		if s.owner != nil {
			s.owner.m.StoreKISS(f)
		}
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Start runs the service loop until ctx is cancelled.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) {
	s.conn = conn
	go s.loop(ctx)
}

func (s *Service) loop(ctx context.Context) {
	cfgSub := s.conn.Subscribe(topicConfig)
	ctrlSub := s.conn.Subscribe(topicControl)
	armSub := s.conn.Subscribe(topicArm)
	defer s.conn.Unsubscribe(cfgSub)
	defer s.conn.Unsubscribe(ctrlSub)
	defer s.conn.Unsubscribe(armSub)

	s.publishState("idle", "awaiting_config", nil)

	s.refreshT = time.NewTicker(s.refresh)
	s.telemT = time.NewTicker(s.telemetry)
	defer s.refreshT.Stop()
	defer s.telemT.Stop()

	for {
		var armC <-chan time.Time
		if s.armT != nil {
			armC = s.armT.C
		}

		select {
		case <-ctx.Done():
			s.shutdown()
			s.publishState("stopped", "context_cancelled", nil)
			return

		case msg := <-cfgSub.Channel():
			var cfg types.MotorsConfig
			if err := decode(msg.Payload, &cfg); err != nil {
				s.publishState("error", "config_decode_failed", err)
				continue
			}
			if err := s.applyConfig(ctx, cfg); err != nil {
				s.publishState("error", "apply_config_failed", err)
				continue
			}
			s.publishState(s.readyLevel(), "configured", nil)
			if cfg.AutoArm && !s.armed && s.arming == nil {
				s.startArm(nil)
			}

		case msg := <-ctrlSub.Channel():
			s.handleControl(ctx, msg)

		case msg := <-armSub.Channel():
			s.startArm(msg)

		case <-armC:
			s.stepArm()

		case <-s.refreshT.C:
			if s.uart != nil {
				s.kiss.PollUART(s.uart)
			}
			if s.armed && s.arming == nil {
				s.refreshAll()
			}

		case <-s.telemT.C:
			s.publishTelemetry()

		case st := <-s.ramps:
			if st.gen != st.m.rampGen {
				continue
			}
			st.m.level, st.m.hasThrottle = st.level, true
			if s.armed && s.arming == nil && st.m.cmdN == 0 {
				st.m.m.SetThrottle(st.level, false)
			}

		case <-s.kissRing.Readable():
			s.drainKISS()
		}
	}
}

// -----------------------------------------------------------------------------
// Configuration
// -----------------------------------------------------------------------------

func (s *Service) applyConfig(ctx context.Context, cfg types.MotorsConfig) error {
	s.refresh = timex.MsOr(cfg.RefreshMs, defaultRefresh, minRefresh)
	s.telemetry = timex.MsOr(cfg.TelemetryMs, defaultTelemetry, minTelemetry)
	s.armPhase = timex.MsOr(cfg.ArmPhaseMs, dshot.DefaultArmPhaseLen, dshot.ArmTick)
	s.refreshT.Reset(s.refresh)
	s.telemT.Reset(s.telemetry)

	var firstErr error
	for _, mc := range cfg.Motors {
		if err := s.bringUp(mc); err != nil {
			println("[motors] bring-up failed:", motorName(mc), err.Error())
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	if cfg.KISS != nil && s.uart == nil {
		port, err := openKISSPort(*cfg.KISS)
		if err != nil {
			println("[motors] kiss uart unavailable:", err.Error())
		} else {
			go s.readKISS(ctx, port)
		}
	}
	return firstErr
}

func (s *Service) bringUp(mc types.MotorConfig) error {
	name := motorName(mc)
	if _, ok := s.motors[name]; ok {
		return nil // already running
	}
	class, ok := dshot.ParseSpeedClass(mc.Mode)
	if !ok && mc.Mode != "" {
		println("[motors] unknown mode", mc.Mode, "for", name, "using", dshot.DefaultClass.String())
	}
	pin, err := s.pins(mc.Pin)
	if err != nil {
		return err
	}
	m, err := s.rt.BringUp(pin, class)
	if err != nil {
		return err
	}
	e := &motor{name: name, m: m, poles: mc.Poles}
	s.motors[name] = e
	s.order = append(s.order, e)
	println("[motors] up:", name, "pin", mc.Pin, m.Class().String())
	return nil
}

func (s *Service) readyLevel() string {
	if s.armed {
		return "armed"
	}
	return "ready"
}

// -----------------------------------------------------------------------------
// Arming
// -----------------------------------------------------------------------------

func (s *Service) startArm(msg *bus.Message) {
	if len(s.order) == 0 {
		s.replyErr(msg, errcode.NotConfigured)
		return
	}
	s.armReq = append(s.armReq, msg)
	if s.arming != nil {
		return
	}
	for _, e := range s.order {
		s.cancelRamp(e)
		e.level, e.hasThrottle, e.cmdN = 0, false, 0
	}
	s.armed = false
	s.arming = dshot.NewArming(s.rt.Motors(), s.armPhase)
	s.armT = time.NewTicker(dshot.ArmTick)
	s.publishState("arming", dshot.PhaseLineLow.String(), nil)
}

func (s *Service) stepArm() {
	before := s.arming.Phase()
	if after := s.arming.Step(dshot.ArmTick); after != before && after != dshot.PhaseDone {
		s.publishState("arming", after.String(), nil)
	}
	if !s.arming.Done() {
		return
	}
	s.armT.Stop()
	s.armT = nil
	s.arming = nil
	s.armed = true
	for _, req := range s.armReq {
		s.replyOK(req)
	}
	s.armReq = s.armReq[:0]
	s.publishState("armed", "arming_complete", nil)
}

// -----------------------------------------------------------------------------
// Refresh
// -----------------------------------------------------------------------------

func (s *Service) refreshAll() {
	for _, e := range s.order {
		if e.wantTelem || (e.cmdN > 0 && e.cmdTel) {
			s.takeKISS(e)
		}
		switch {
		case e.cmdN > 0:
			e.cmdN--
			e.m.Command(e.cmd, e.cmdTel)
		case e.hasThrottle:
			e.m.SetThrottle(e.level, e.wantTelem)
		default:
			e.m.Command(dshot.CmdMotorStop, e.wantTelem)
		}
		e.wantTelem = false
	}
}

// takeKISS attributes the next KISS frame to e.
func (s *Service) takeKISS(e *motor) {
	s.owner = e
	s.kiss.Reset()
}

func (s *Service) shutdown() {
	for _, e := range s.order {
		s.cancelRamp(e)
		if s.armed {
			e.m.Command(dshot.CmdMotorStop, false)
		}
	}
	if s.armT != nil {
		s.armT.Stop()
		s.armT = nil
	}
}

func motorName(mc types.MotorConfig) string {
	return strx.Coalesce(mc.Name, "m"+itoa(mc.Pin))
}
