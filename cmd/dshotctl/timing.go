package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"dshot-go/drivers/dshot"
)

type timingResult struct {
	Mode        string `cbor:"mode"`
	Direction   string `cbor:"direction"`
	TicksPerBit uint16 `cbor:"ticks_per_bit"`
	ZeroHigh    uint16 `cbor:"t0h_ticks"`
	OneHigh     uint16 `cbor:"t1h_ticks"`
	ReplyBitNs  uint32 `cbor:"reply_bit_ns"`
	FrameNs     int64  `cbor:"frame_ns"`
	IntervalNs  int64  `cbor:"interval_ns"`
}

func newTimingCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "timing",
		Short: "Show bit timing for the speed classes",
		Long: `Print the tick timing, frame length and minimum send interval of every
speed class, or only of --mode when it is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			classes := []dshot.SpeedClass{
				dshot.DShot150, dshot.DShot150Bidir,
				dshot.DShot300, dshot.DShot300Bidir,
				dshot.DShot600, dshot.DShot600Bidir,
				dshot.DShot1200, dshot.DShot1200Bidir,
			}
			if cmd.Flags().Changed("mode") {
				c, err := o.class()
				if err != nil {
					return err
				}
				classes = []dshot.SpeedClass{c}
			}

			rows := make([]timingResult, 0, len(classes))
			for _, c := range classes {
				t := dshot.TimingFor(c)
				rows = append(rows, timingResult{
					Mode:        c.String(),
					Direction:   t.Dir.String(),
					TicksPerBit: t.TicksPerBit,
					ZeroHigh:    t.TicksZeroHigh,
					OneHigh:     t.TicksOneHigh,
					ReplyBitNs:  t.BitNs,
					FrameNs:     t.FrameDuration().Nanoseconds(),
					IntervalNs:  t.FrameInterval().Nanoseconds(),
				})
			}
			return o.emit(cmd.OutOrStdout(), rows, func(w io.Writer) {
				fmt.Fprintf(w, "%-16s %5s %4s %4s %8s %9s %9s\n",
					"MODE", "BIT", "T0H", "T1H", "REPLY_NS", "FRAME_US", "MIN_GAP")
				for _, r := range rows {
					fmt.Fprintf(w, "%-16s %5d %4d %4d %8d %9.1f %7dus\n",
						r.Mode, r.TicksPerBit, r.ZeroHigh, r.OneHigh, r.ReplyBitNs,
						float64(r.FrameNs)/1000, r.IntervalNs/1000)
				}
			})
		},
	}
}
