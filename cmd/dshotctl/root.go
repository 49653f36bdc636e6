package main

import (
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
	"github.com/spf13/cobra"

	"dshot-go/drivers/dshot"
)

// options holds the persistent flags shared by every subcommand.
type options struct {
	mode string
	cbor bool
}

func newRootCmd() *cobra.Command {
	o := &options{}
	root := &cobra.Command{
		Use:   "dshotctl",
		Short: "DSHOT frame and telemetry tool",
		Long: `dshotctl works with DSHOT motor lines from a host.

It encodes command and throttle frames to pulse timings, decodes command
packets and bidirectional replies, prints the timing of each speed class,
reads KISS telemetry from a serial port and drives a motor against a
simulated ESC.

Modes: 150, 300, 600, 1200, each with an optional "bidir" suffix.
With --cbor every result is written as one CBOR item instead of text.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&o.mode, "mode", "m", "600bidir", "Speed class")
	root.PersistentFlags().BoolVar(&o.cbor, "cbor", false, "Write results as CBOR")

	root.AddCommand(
		newEncodeCmd(o),
		newDecodeCmd(o),
		newTimingCmd(o),
		newKISSCmd(o),
		newSimCmd(o),
	)
	return root
}

func (o *options) class() (dshot.SpeedClass, error) {
	c, ok := dshot.ParseSpeedClass(o.mode)
	if !ok {
		return 0, fmt.Errorf("unknown mode %q", o.mode)
	}
	return c, nil
}

// emit writes v as a CBOR item, or calls text when CBOR is off.
func (o *options) emit(w io.Writer, v any, text func(io.Writer)) error {
	if !o.cbor {
		text(w)
		return nil
	}
	b, err := cbor.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode CBOR: %w", err)
	}
	_, err = w.Write(b)
	return err
}
