package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.bug.st/serial"

	"dshot-go/drivers/dshot"
)

type kissResult struct {
	TemperatureC   uint8   `cbor:"temperature_c"`
	VoltageV       float32 `cbor:"voltage_v"`
	CurrentA       float32 `cbor:"current_a"`
	ConsumptionMAh uint16  `cbor:"consumption_mah"`
	ERPM           uint32  `cbor:"erpm"`
}

func newKISSCmd(o *options) *cobra.Command {
	var (
		portName string
		baudRate int
		count    int
	)
	cmd := &cobra.Command{
		Use:   "kiss",
		Short: "Read KISS telemetry frames from a serial port",
		Long: `Continuously decode 10-byte KISS telemetry frames from an ESC telemetry
wire. The stream has no sync marker, so the reader slides over bytes until
a frame passes its CRC.

Use --port - to read the byte stream from stdin.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader
			switch portName {
			case "":
				return errors.New("--port is required")
			case "-":
				in = cmd.InOrStdin()
			default:
				port, err := openSerial(portName, baudRate)
				if err != nil {
					return err
				}
				defer port.Close()
				done := make(chan struct{})
				defer close(done)
				go func() {
					select {
					case <-cmd.Context().Done():
						port.Close()
					case <-done:
					}
				}()
				in = port
			}

			out := cmd.OutOrStdout()
			var emitErr error
			asm := &dshot.KISSAssembler{}
			asm.OnFrame = func(f dshot.KISSFrame) {
				if emitErr != nil {
					return
				}
				emitErr = o.emit(out, kissOf(f), func(w io.Writer) {
					fmt.Fprintf(w, "temp=%dC voltage=%.2fV current=%.2fA used=%dmAh erpm=%d\n",
						f.TemperatureC, float32(f.VoltageCV)/100, float32(f.CurrentCA)/100,
						f.ConsumptionMAh, f.ERPM())
				})
			}

			err := readKISS(in, asm, count)
			if cmd.Context().Err() != nil {
				err = nil
			}
			if emitErr != nil {
				return emitErr
			}
			_, frames := asm.Last()
			fmt.Fprintf(cmd.ErrOrStderr(), "frames=%d crc_errors=%d\n", frames, asm.CRCErrors())
			return err
		},
	}
	cmd.Flags().StringVarP(&portName, "port", "p", "", "Serial port device, or - for stdin")
	cmd.Flags().IntVarP(&baudRate, "baud", "b", 115200, "Baud rate")
	cmd.Flags().IntVarP(&count, "count", "n", 0, "Stop after this many frames (0 runs until EOF)")
	return cmd
}

func openSerial(name string, baud int) (serial.Port, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", name, err)
	}
	return port, nil
}

// readKISS feeds r into asm until EOF or count frames.
func readKISS(r io.Reader, asm *dshot.KISSAssembler, count int) error {
	buf := make([]byte, 64)
	for {
		n, err := r.Read(buf)
		for i := 0; i < n; i++ {
			asm.Write(buf[i : i+1])
			if _, frames := asm.Last(); count > 0 && int(frames) >= count {
				return nil
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func kissOf(f dshot.KISSFrame) kissResult {
	return kissResult{
		TemperatureC:   f.TemperatureC,
		VoltageV:       float32(f.VoltageCV) / 100,
		CurrentA:       float32(f.CurrentCA) / 100,
		ConsumptionMAh: f.ConsumptionMAh,
		ERPM:           f.ERPM(),
	}
}
