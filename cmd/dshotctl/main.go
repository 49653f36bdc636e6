// dshotctl encodes and decodes DSHOT frames, reads KISS telemetry from a
// serial port and runs a motor against a simulated ESC.
package main

import (
	"context"
	"os"
	"os/signal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
