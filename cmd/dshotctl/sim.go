package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"tinygo.org/x/drivers"

	"dshot-go/drivers/dshot"
	"dshot-go/drivers/dshot/dshottest"
)

type simResult struct {
	Mode          string  `cbor:"mode"`
	Throttle      float32 `cbor:"throttle"`
	Sends         uint32  `cbor:"sends"`
	Received      uint32  `cbor:"received"`
	Valid         uint32  `cbor:"valid"`
	SuccessPerMil uint32  `cbor:"success_permil"`
	ESCERPM       uint32  `cbor:"esc_erpm"`
	ERPM          uint32  `cbor:"erpm"`
	RPM           uint32  `cbor:"rpm"`
	TemperatureC  int32   `cbor:"temperature_c"`
	VoltageMV     int32   `cbor:"voltage_mv"`
	CurrentMA     int32   `cbor:"current_ma"`
	KISSFrames    uint32  `cbor:"kiss_frames"`
	BadFrames     int     `cbor:"bad_frames"`
}

func newSimCmd(o *options) *cobra.Command {
	var (
		throttle   float32
		frames     int
		poles      int
		telemEvery int
		edt        bool
		corrupt    bool
	)
	cmd := &cobra.Command{
		Use:   "sim",
		Short: "Drive one motor against a simulated ESC",
		Long: `Bring up one motor on a simulated peripheral, arm it, send a fixed
throttle for a number of frames and report what came back: line telemetry
on bidirectional modes and KISS frames for every telemetry request.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := o.class()
			if err != nil {
				return err
			}
			per := dshottest.New(4)
			per.Auto = true
			per.Quiet = true
			esc := dshottest.NewESC(c)
			esc.Corrupt = corrupt
			per.ESC = esc.Answer

			rt := dshot.NewRuntime(per)
			defer rt.Close()
			m, err := rt.BringUp(dshottest.NewPin(16), c)
			if err != nil {
				return err
			}

			asm := &dshot.KISSAssembler{OnFrame: m.StoreKISS}
			esc.KISS = asm

			arm := dshot.NewArming(rt.Motors(), 5*time.Millisecond)
			for !arm.Done() {
				arm.Step(dshot.ArmTick)
			}
			if edt {
				for i := 0; i < dshot.CmdExtendedTelemetryEnable.RepeatCount(); i++ {
					m.Command(dshot.CmdExtendedTelemetryEnable, false)
				}
			}
			for i := 0; i < frames; i++ {
				m.SetThrottleFraction(throttle, telemEvery > 0 && i%telemEvery == 0)
			}

			s := dshot.NewSensor(m, poles)
			if err := s.Update(drivers.AllMeasurements); err != nil {
				return err
			}
			snap := s.Snapshot()
			res := simResult{
				Mode:          c.String(),
				Throttle:      throttle,
				Sends:         m.Sends(),
				Received:      snap.Received,
				Valid:         snap.Valid,
				SuccessPerMil: snap.SuccessRatio(),
				ESCERPM:       esc.ERPM(),
				ERPM:          s.ERPM(),
				RPM:           s.RPM(),
				TemperatureC:  s.Temperature() / 1000,
				VoltageMV:     s.Voltage() / 1000,
				CurrentMA:     s.Current() / 1000,
				KISSFrames:    snap.KISSCount,
				BadFrames:     esc.BadCRC,
			}
			return o.emit(cmd.OutOrStdout(), res, func(w io.Writer) {
				fmt.Fprintf(w, "mode:        %s\n", res.Mode)
				fmt.Fprintf(w, "sends:       %d\n", res.Sends)
				fmt.Fprintf(w, "replies:     %d received, %d valid (%d permil)\n",
					res.Received, res.Valid, res.SuccessPerMil)
				fmt.Fprintf(w, "esc erpm:    %d\n", res.ESCERPM)
				fmt.Fprintf(w, "erpm:        %d (%d rpm)\n", res.ERPM, res.RPM)
				fmt.Fprintf(w, "temperature: %dC\n", res.TemperatureC)
				fmt.Fprintf(w, "voltage:     %dmV\n", res.VoltageMV)
				fmt.Fprintf(w, "current:     %dmA\n", res.CurrentMA)
				fmt.Fprintf(w, "kiss frames: %d\n", res.KISSFrames)
				if res.BadFrames > 0 {
					fmt.Fprintf(w, "bad frames:  %d\n", res.BadFrames)
				}
			})
		},
	}
	cmd.Flags().Float32VarP(&throttle, "throttle", "t", 0.25, "Throttle fraction 0..1")
	cmd.Flags().IntVarP(&frames, "frames", "n", 100, "Throttle frames to send after arming")
	cmd.Flags().IntVar(&poles, "poles", 14, "Motor pole count")
	cmd.Flags().IntVar(&telemEvery, "telemetry-every", 10, "Request KISS telemetry every N frames (0 disables)")
	cmd.Flags().BoolVar(&edt, "edt", false, "Enable extended telemetry before spinning")
	cmd.Flags().BoolVar(&corrupt, "corrupt", false, "Make the ESC send replies with bad checksums")
	return cmd
}
