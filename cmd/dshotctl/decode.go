package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"dshot-go/drivers/dshot"
)

type packetResult struct {
	Packet    uint16 `cbor:"packet"`
	Value     uint16 `cbor:"value"`
	Telemetry bool   `cbor:"telemetry"`
	CRC       uint8  `cbor:"crc"`
	Expected  uint8  `cbor:"expected_crc"`
	Valid     bool   `cbor:"valid"`
}

type replyResult struct {
	Raw      uint32 `cbor:"raw"`
	Status   string `cbor:"status"`
	Value    uint16 `cbor:"value"`
	Kind     string `cbor:"kind,omitempty"`
	PeriodUs uint16 `cbor:"period_us,omitempty"`
	ERPM     uint32 `cbor:"erpm,omitempty"`
	RPM      uint32 `cbor:"rpm,omitempty"`
	Field    string `cbor:"field,omitempty"`
	Data     uint8  `cbor:"data,omitempty"`
}

func newDecodeCmd(o *options) *cobra.Command {
	var packet bool
	var poles int
	cmd := &cobra.Command{
		Use:   "decode <word>",
		Short: "Decode a bidirectional reply or a command packet",
		Long: `Decode a captured 21-bit reply word (before GCR decoding) into its
telemetry value, or with --packet check a 16-bit command packet against
the checksum of the selected mode's direction.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.ParseUint(args[0], 0, 32)
			if err != nil {
				return fmt.Errorf("invalid word %q: %w", args[0], err)
			}
			if packet {
				c, err := o.class()
				if err != nil {
					return err
				}
				if n > 0xFFFF {
					return fmt.Errorf("packet %#x wider than 16 bits", n)
				}
				return decodePacket(o, cmd.OutOrStdout(), uint16(n), c.Direction())
			}
			return decodeReply(o, cmd.OutOrStdout(), uint32(n), poles)
		},
	}
	cmd.Flags().BoolVar(&packet, "packet", false, "Decode a 16-bit command packet")
	cmd.Flags().IntVar(&poles, "poles", 14, "Motor pole count for RPM")
	return cmd
}

func decodePacket(o *options, w io.Writer, p uint16, dir dshot.Direction) error {
	res := packetResult{
		Packet:    p,
		Value:     p >> 5,
		Telemetry: p&0x10 != 0,
		CRC:       uint8(p & 0x0F),
		Expected:  dshot.Checksum(p>>4, dir),
	}
	res.Valid = res.CRC == res.Expected
	return o.emit(w, res, func(w io.Writer) {
		fmt.Fprintf(w, "value:     %d\n", res.Value)
		fmt.Fprintf(w, "telemetry: %t\n", res.Telemetry)
		if res.Valid {
			fmt.Fprintf(w, "checksum:  ok (%d, %s)\n", res.CRC, dir)
		} else {
			fmt.Fprintf(w, "checksum:  bad (got %d, want %d for %s)\n", res.CRC, res.Expected, dir)
		}
	})
}

func decodeReply(o *options, w io.Writer, raw uint32, poles int) error {
	v, st := dshot.DecodeRaw(raw)
	if raw>>dshot.ReplyBits != 0 {
		v, st = 0, dshot.DecodeOverrun
	}
	res := replyResult{Raw: raw, Status: st.String(), Value: uint16(v)}
	if st == dshot.DecodeOK {
		switch {
		case v == dshot.ValueStopped:
			res.Kind = "stopped"
		case v.IsExtended():
			t := dshot.Telemetry{ERPMPeriodUs: v.ERPMPeriodUs()}
			res.Kind = "erpm"
			res.PeriodUs = t.ERPMPeriodUs
			res.ERPM = t.ERPM()
			res.RPM = t.RPM(poles)
		default:
			res.Kind = "telemetry"
			res.Field = v.Field().String()
			res.Data = v.Byte()
		}
	}
	return o.emit(w, res, func(w io.Writer) {
		fmt.Fprintf(w, "status: %s\n", res.Status)
		if st != dshot.DecodeOK {
			return
		}
		fmt.Fprintf(w, "value:  0x%03X\n", res.Value)
		switch res.Kind {
		case "erpm":
			fmt.Fprintf(w, "erpm:   %d (period %dus, %d rpm)\n", res.ERPM, res.PeriodUs, res.RPM)
		case "telemetry":
			fmt.Fprintf(w, "%s: %d\n", res.Field, res.Data)
		default:
			fmt.Fprintf(w, "motor stopped\n")
		}
	})
}
