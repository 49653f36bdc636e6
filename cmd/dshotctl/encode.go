package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"dshot-go/drivers/dshot"
)

type encodeResult struct {
	Mode        string   `cbor:"mode"`
	Value       uint16   `cbor:"value"`
	Telemetry   bool     `cbor:"telemetry"`
	Packet      uint16   `cbor:"packet"`
	CRC         uint8    `cbor:"crc"`
	ActiveTicks []uint16 `cbor:"active_ticks"`
	BitTicks    uint16   `cbor:"bit_ticks"`
}

func newEncodeCmd(o *options) *cobra.Command {
	var telemetry, throttle bool
	cmd := &cobra.Command{
		Use:   "encode <value>",
		Short: "Encode a value into a command frame",
		Long: `Encode a frame value (0..2047, decimal or 0x hex) and show the packet
and the active pulse length of each bit in 100ns ticks.

With --throttle the argument is a logical throttle 0..1999.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := o.class()
			if err != nil {
				return err
			}
			v, err := parseValue(args[0], throttle)
			if err != nil {
				return err
			}
			t := dshot.TimingFor(c)
			var tr dshot.PulseTrain
			dshot.Encode(&tr, v, telemetry, t)
			f, err := dshot.ParseFrame(&tr, t)
			if err != nil {
				return err
			}

			res := encodeResult{
				Mode:      c.String(),
				Value:     f.Value,
				Telemetry: f.Telemetry,
				Packet:    f.Packet(),
				CRC:       f.CRC,
				BitTicks:  t.TicksPerBit,
			}
			for _, s := range tr {
				res.ActiveTicks = append(res.ActiveTicks, s.Dur0)
			}
			return o.emit(cmd.OutOrStdout(), res, func(w io.Writer) {
				fmt.Fprintf(w, "mode:      %s\n", res.Mode)
				if th, ok := f.Throttle(); ok {
					fmt.Fprintf(w, "value:     %d (throttle %d)\n", f.Value, th)
				} else {
					fmt.Fprintf(w, "value:     %d (command)\n", f.Value)
				}
				fmt.Fprintf(w, "telemetry: %t\n", f.Telemetry)
				fmt.Fprintf(w, "packet:    %s\n", f)
				fmt.Fprintf(w, "crc:       %d\n", f.CRC)
				fmt.Fprintf(w, "bits:      %s\n", packetBits(res.Packet))
				fmt.Fprintf(w, "active:    %s (of %d ticks)\n", joinTicks(res.ActiveTicks), t.TicksPerBit)
			})
		},
	}
	cmd.Flags().BoolVarP(&telemetry, "telemetry", "t", false, "Set the telemetry request bit")
	cmd.Flags().BoolVar(&throttle, "throttle", false, "Argument is a logical throttle 0..1999")
	return cmd
}

func parseValue(s string, throttle bool) (uint16, error) {
	n, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid value %q: %w", s, err)
	}
	if throttle {
		if n >= uint64(dshot.ThrottleSpan) {
			return 0, fmt.Errorf("throttle %d out of range 0..%d", n, dshot.ThrottleSpan-1)
		}
		return uint16(n) + dshot.ThrottleMin, nil
	}
	if n > uint64(dshot.ThrottleMax) {
		return 0, fmt.Errorf("value %d out of range 0..%d", n, dshot.ThrottleMax)
	}
	return uint16(n), nil
}

// packetBits renders p as four groups of four bits.
func packetBits(p uint16) string {
	s := fmt.Sprintf("%016b", p)
	return s[0:4] + " " + s[4:8] + " " + s[8:12] + " " + s[12:16]
}

func joinTicks(ticks []uint16) string {
	parts := make([]string, len(ticks))
	for i, t := range ticks {
		parts[i] = strconv.Itoa(int(t))
	}
	return strings.Join(parts, " ")
}
