package dshot

// Command is a reserved frame value below ThrottleMin.
type Command uint8

const (
	CmdMotorStop                Command = 0
	CmdBeep1                    Command = 1 // wait >= 260ms before next command
	CmdBeep2                    Command = 2
	CmdBeep3                    Command = 3
	CmdBeep4                    Command = 4
	CmdBeep5                    Command = 5
	CmdESCInfo                  Command = 6
	CmdSpinDirection1           Command = 7 // send 6x
	CmdSpinDirection2           Command = 8 // send 6x
	Cmd3DModeOff                Command = 9
	Cmd3DModeOn                 Command = 10
	CmdSettingsRequest          Command = 11
	CmdSaveSettings             Command = 12 // send 6x, wait >= 12ms
	CmdExtendedTelemetryEnable  Command = 13
	CmdExtendedTelemetryDisable Command = 14
	CmdLED0On                   Command = 15 // BLHeli32 only
	CmdLED1On                   Command = 16
	CmdLED2On                   Command = 17
	CmdLED3On                   Command = 18
	CmdLED0Off                  Command = 19
	CmdLED1Off                  Command = 20
	CmdLED2Off                  Command = 21
	CmdLED3Off                  Command = 22
	CmdAudioStreamModeOnOff     Command = 30 // KISS
	CmdSilentModeOnOff          Command = 31 // KISS
	CmdMax                      Command = 47
)

// Bluejay/BLHeli_S aliases share codes with the LED block.
const (
	CmdSpinDirectionNormal   = CmdLED1Off
	CmdSpinDirectionReversed = CmdLED2Off
)

// Frame value range.
const (
	ThrottleMin  uint16 = 48
	ThrottleMax  uint16 = 2047
	ThrottleSpan uint16 = 2000 // logical throttle steps accepted by SetThrottle
)

// Valid reports whether c is inside the reserved command range.
func (c Command) Valid() bool { return c <= CmdMax }

// RepeatCount is how many consecutive frames an ESC needs before it
// acts on c. Commands not listed act on a single frame.
func (c Command) RepeatCount() int {
	switch c {
	case CmdSpinDirection1, CmdSpinDirection2, Cmd3DModeOff, Cmd3DModeOn,
		CmdSaveSettings, CmdExtendedTelemetryEnable, CmdExtendedTelemetryDisable,
		CmdSpinDirectionNormal, CmdSpinDirectionReversed:
		return 6
	default:
		return 1
	}
}
