// Host demo: the motor stack on a simulated peripheral with one simulated
// ESC per configured line.
package main

import (
	"context"
	"runtime"
	"time"

	"dshot-go/bus"
	"dshot-go/drivers/dshot"
	"dshot-go/drivers/dshot/dshottest"
	"dshot-go/services/config"
	"dshot-go/services/heartbeat"
	"dshot-go/services/motors"
	"dshot-go/types"
)

// simLines mirrors the "sim" embedded config.
var simLines = map[int]dshot.SpeedClass{
	1: dshot.DShot600Bidir,
	2: dshot.DShot300,
}

func printTopicWith(prefix string, t bus.Topic) {
	print(prefix, " ")
	for i, tok := range t {
		if i > 0 {
			print("/")
		}
		switch v := tok.(type) {
		case string:
			print(v)
		case int:
			print(v)
		default:
			print("?")
		}
	}
	println()
}

func main() {
	ctx, cancel := context.WithCancel(context.WithValue(context.Background(), config.CtxDeviceKey, "sim"))
	defer cancel()

	println("[main] bootstrapping bus …")
	b := bus.NewBus(16)
	ui := b.NewConnection("ui")

	mon := ui.Subscribe(bus.T("motors", "#"))
	go func() {
		for m := range mon.Channel() {
			printTopicWith("[monitor] <-", m.Topic)
		}
	}()

	per := dshottest.New(4)
	per.Auto = true
	per.Quiet = true
	per.ESCs = map[int]dshottest.ESCFunc{}
	for pin, class := range simLines {
		per.ESCs[pin] = dshottest.NewESC(class).Answer
	}
	pins := func(n int) (dshot.Pin, error) { return dshottest.NewPin(n), nil }

	println("[main] starting services …")
	motors.New(dshot.NewRuntime(per), pins).Start(ctx, b.NewConnection("motors"))
	(&heartbeat.Service{}).Start(ctx, b.NewConnection("heartbeat"))
	config.NewConfigService().Start(ctx, b.NewConnection("config"))

	// The sim config arms on its own; wait for it.
	st := ui.Subscribe(bus.T("motors", "state"))
	for m := range st.Channel() {
		if s, ok := m.Payload.(types.ServiceState); ok && s.Level == "armed" {
			break
		}
	}
	ui.Unsubscribe(st)
	println("[main] armed")

	steps := []float32{0.1, 0.3, 0.6, 0.3, 0}
	for i := 0; ; i++ {
		for _, name := range []string{"m1", "m2"} {
			topic := bus.T("motors", name, "control", "fraction")
			req := ui.NewMessage(topic, types.ThrottleFraction{Value: steps[i%len(steps)]}, false)
			rctx, rcancel := context.WithTimeout(ctx, time.Second)
			if _, err := ui.RequestWait(rctx, req); err != nil {
				println("[main] fraction error:", err.Error())
			}
			rcancel()
		}
		printMem()
		time.Sleep(2 * time.Second)
	}
}

// printMem prints a compact snapshot of runtime memory stats.
func printMem() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	println(
		"[mem]",
		"alloc:", uint32(ms.Alloc),
		"heapInuse:", uint32(ms.HeapInuse),
		"heapSys:", uint32(ms.HeapSys),
		"mallocs:", uint32(ms.Mallocs),
		"frees:", uint32(ms.Frees),
	)
}
