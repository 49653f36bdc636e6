package motors

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"dshot-go/bus"
	"dshot-go/drivers/dshot"
	"dshot-go/drivers/dshot/dshottest"
	"dshot-go/types"
)

type harness struct {
	b      *bus.Bus
	c      *bus.Connection
	per    *dshottest.Peripheral
	esc    *dshottest.ESC
	cancel context.CancelFunc
}

func newHarness(t *testing.T, class dshot.SpeedClass, opts ...Option) *harness {
	t.Helper()
	h := &harness{b: bus.NewBus(64)}
	h.per = dshottest.New(4)
	h.per.Auto = true
	h.per.Quiet = true
	h.esc = dshottest.NewESC(class)
	h.per.ESC = h.esc.Answer

	pins := func(n int) (dshot.Pin, error) { return dshottest.NewPin(n), nil }
	svc := New(dshot.NewRuntime(h.per), pins, opts...)
	var ctx context.Context
	ctx, h.cancel = context.WithCancel(context.Background())
	t.Cleanup(h.cancel)
	svc.Start(ctx, h.b.NewConnection("motors"))
	h.c = h.b.NewConnection("test")
	return h
}

func (h *harness) configure(t *testing.T, cfg types.MotorsConfig, level string) {
	t.Helper()
	st := h.c.Subscribe(topicState)
	defer h.c.Unsubscribe(st)
	h.c.Publish(h.c.NewMessage(topicConfig, cfg, true))
	waitState(t, st, level)
}

func waitState(t *testing.T, sub *bus.Subscription, level string) types.ServiceState {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case m := <-sub.Channel():
			st, ok := m.Payload.(types.ServiceState)
			if ok && st.Level == level {
				return st
			}
		case <-deadline:
			t.Fatalf("timeout waiting for state %q", level)
		}
	}
}

func (h *harness) request(t *testing.T, topic bus.Topic, payload any) any {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	r, err := h.c.RequestWait(ctx, h.c.NewMessage(topic, payload, false))
	if err != nil {
		t.Fatalf("request %v: %v", topic, err)
	}
	return r.Payload
}

func (h *harness) expectOK(t *testing.T, topic bus.Topic, payload any) {
	t.Helper()
	if r, ok := h.request(t, topic, payload).(types.OKReply); !ok || !r.OK {
		t.Fatalf("%v: unexpected reply %#v", topic, r)
	}
}

func (h *harness) expectErr(t *testing.T, topic bus.Topic, payload any, code string) {
	t.Helper()
	r, ok := h.request(t, topic, payload).(types.ErrorReply)
	if !ok || r.Error != code {
		t.Fatalf("%v: want error %q, got %#v", topic, code, r)
	}
}

func waitTelemetry(t *testing.T, sub *bus.Subscription, pred func(types.MotorTelemetry) bool) types.MotorTelemetry {
	t.Helper()
	deadline := time.After(3 * time.Second)
	var last types.MotorTelemetry
	for {
		select {
		case m := <-sub.Channel():
			last = m.Payload.(types.MotorTelemetry)
			if pred(last) {
				return last
			}
		case <-deadline:
			t.Fatalf("timeout waiting for telemetry, last %#v", last)
		}
	}
}

func ctl(name, method string) bus.Topic { return bus.T("motors", name, "control", method) }

var fastConfig = types.MotorsConfig{
	Motors:      []types.MotorConfig{{Name: "front", Pin: 2, Mode: "600bidir", Poles: 14}},
	RefreshMs:   2,
	TelemetryMs: 20,
	ArmPhaseMs:  2,
}

func TestConfigBringsUpMotors(t *testing.T) {
	h := newHarness(t, dshot.DShot600Bidir)
	cfg := fastConfig
	cfg.Motors = append([]types.MotorConfig{}, fastConfig.Motors...)
	cfg.Motors = append(cfg.Motors, types.MotorConfig{Pin: 7, Mode: "dshot300"})
	h.configure(t, cfg, "ready")

	tel := h.c.Subscribe(telemetryTopic("m7"))
	got := waitTelemetry(t, tel, func(types.MotorTelemetry) bool { return true })
	if got.Mode != "DSHOT300" || got.Link != types.LinkNone {
		t.Fatalf("unexpected telemetry %#v", got)
	}
}

func TestConfigErrorIsReported(t *testing.T) {
	h := newHarness(t, dshot.DShot600Bidir)
	cfg := types.MotorsConfig{Motors: []types.MotorConfig{
		{Name: "a", Pin: 1, Mode: "600bidir"},
		{Name: "b", Pin: 1, Mode: "600"},
	}}
	st := h.c.Subscribe(topicState)
	h.c.Publish(h.c.NewMessage(topicConfig, cfg, true))
	got := waitState(t, st, "error")
	if got.Error != "pin_in_use" {
		t.Fatalf("error = %q", got.Error)
	}
}

func TestControlsNeedArming(t *testing.T) {
	h := newHarness(t, dshot.DShot600Bidir)
	h.configure(t, fastConfig, "ready")

	h.expectErr(t, ctl("front", "set"), types.ThrottleSet{Level: 100}, "not_armed")
	h.expectErr(t, ctl("rear", "set"), types.ThrottleSet{Level: 100}, "unknown_motor")
	h.expectErr(t, ctl("front", "set"), "{not json", "invalid_payload")
	h.expectErr(t, ctl("front", "cmd"), types.MotorCommand{Code: 48}, "invalid_params")
	h.expectErr(t, ctl("front", "dance"), nil, "unsupported")
	h.expectErr(t, bus.T("motors", 7, "control", "set"), nil, "invalid_topic")
}

func TestArmAndSpin(t *testing.T) {
	h := newHarness(t, dshot.DShot600Bidir)
	h.configure(t, fastConfig, "ready")
	h.expectOK(t, topicArm, nil)

	tel := h.c.Subscribe(telemetryTopic("front"))
	h.expectOK(t, ctl("front", "set"), map[string]any{"level": 1000})
	got := waitTelemetry(t, tel, func(m types.MotorTelemetry) bool { return m.Throttle == 1000 && m.ERPM > 0 })
	if got.Link != types.LinkUp || got.Valid == 0 || got.RPM != got.ERPM*2/14 {
		t.Fatalf("unexpected telemetry %#v", got)
	}

	h.expectOK(t, ctl("front", "cmd"), types.MotorCommand{Code: uint8(dshot.CmdMotorStop)})
	waitTelemetry(t, tel, func(m types.MotorTelemetry) bool { return m.Throttle == 0 && m.ERPM == 0 })
}

func TestFractionAndRamp(t *testing.T) {
	h := newHarness(t, dshot.DShot600Bidir)
	h.configure(t, fastConfig, "ready")
	h.expectOK(t, topicArm, nil)
	tel := h.c.Subscribe(telemetryTopic("front"))

	h.expectOK(t, ctl("front", "fraction"), &types.ThrottleFraction{Value: 2})
	waitTelemetry(t, tel, func(m types.MotorTelemetry) bool { return m.Throttle == 1999 })

	h.expectOK(t, ctl("front", "ramp"), types.ThrottleRamp{Target: 500, DurationMs: 30})
	waitTelemetry(t, tel, func(m types.MotorTelemetry) bool { return m.Throttle == 500 })

	h.expectOK(t, ctl("front", "stop_ramp"), nil)
}

type bufUART struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (u *bufUART) Read(p []byte) (int, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.buf.Read(p)
}

func (u *bufUART) Write(p []byte) (int, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.buf.Write(p)
}

func (u *bufUART) Buffered() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.buf.Len()
}

func TestKISSTelemetryIsAttributed(t *testing.T) {
	uart := &bufUART{}
	h := newHarness(t, dshot.DShot300, WithKISSUART(uart))
	h.esc.KISS = uart
	h.esc.TemperatureC = 47

	cfg := fastConfig
	cfg.Motors = []types.MotorConfig{{Name: "tail", Pin: 3, Mode: "300"}}
	h.configure(t, cfg, "ready")
	h.expectOK(t, topicArm, nil)

	tel := h.c.Subscribe(telemetryTopic("tail"))
	h.expectOK(t, ctl("tail", "set"), types.ThrottleSet{Level: 200})
	h.expectOK(t, ctl("tail", "telemetry"), nil)
	got := waitTelemetry(t, tel, func(m types.MotorTelemetry) bool { return m.KISS != nil })
	if got.KISS.TemperatureC != 47 || got.KISS.VoltageCV != 1600 {
		t.Fatalf("unexpected kiss %#v", got.KISS)
	}
}

func TestStopPublishesState(t *testing.T) {
	h := newHarness(t, dshot.DShot600Bidir)
	h.configure(t, fastConfig, "ready")
	st := h.c.Subscribe(topicState)
	h.cancel()
	waitState(t, st, "stopped")
}

// chunkPort hands out one chunk per call, then blocks until ctx ends.
type chunkPort struct{ chunks [][]byte }

func (p *chunkPort) RecvSomeContext(ctx context.Context, buf []byte) (int, error) {
	if len(p.chunks) == 0 {
		<-ctx.Done()
		return 0, ctx.Err()
	}
	n := copy(buf, p.chunks[0])
	p.chunks = p.chunks[1:]
	return n, nil
}

func TestReadKISSThroughRing(t *testing.T) {
	s := New(dshot.NewRuntime(dshottest.New(2)), nil)
	var got []dshot.KISSFrame
	s.kiss.OnFrame = func(f dshot.KISSFrame) { got = append(got, f) }

	frame := dshot.AppendKISS(nil, dshot.KISSFrame{TemperatureC: 41, ERPMHundreds: 120})
	port := &chunkPort{chunks: [][]byte{frame[:4], frame[4:]}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.readKISS(ctx, port)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for len(got) == 0 {
		select {
		case <-s.kissRing.Readable():
			s.drainKISS()
		case <-deadline:
			t.Fatal("timeout waiting for KISS frame")
		}
	}
	cancel()
	<-done

	if got[0].TemperatureC != 41 || got[0].ERPM() != 12000 {
		t.Fatalf("frame=%+v", got[0])
	}
}
