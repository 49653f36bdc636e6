package types

// ------------------------
// Configuration (config/motors)
// ------------------------

type MotorsConfig struct {
	Motors      []MotorConfig `json:"motors"`
	RefreshMs   int           `json:"refresh_ms,omitempty"`   // frame resend period
	TelemetryMs int           `json:"telemetry_ms,omitempty"` // telemetry publish period
	ArmPhaseMs  int           `json:"arm_phase_ms,omitempty"`
	AutoArm     bool          `json:"auto_arm,omitempty"` // arm once configured
	KISS        *KISSConfig   `json:"kiss,omitempty"`
}

type MotorConfig struct {
	Name  string `json:"name"`
	Pin   int    `json:"pin"`
	Mode  string `json:"mode"` // "600", "dshot300_bidir", ...
	Poles int    `json:"poles,omitempty"`
}

// KISSConfig describes the UART carrying ESC serial telemetry.
type KISSConfig struct {
	UART string `json:"uart"` // "uart0", "uart1"
	Baud uint32 `json:"baud,omitempty"`
	TX   int    `json:"tx"`
	RX   int    `json:"rx"`
}

// ------------------------
// Controls (motors/<name>/<method>)
// ------------------------

// ThrottleSet is a logical throttle 0..1999.
type ThrottleSet struct {
	Level     uint16 `json:"level"`
	Telemetry bool   `json:"telemetry,omitempty"`
}

type ThrottleFraction struct {
	Value     float32 `json:"value"` // 0..1
	Telemetry bool    `json:"telemetry,omitempty"`
}

// MotorCommand sends a reserved command. Repeat 0 uses the command's own
// required repeat count.
type MotorCommand struct {
	Code      uint8 `json:"code"`
	Repeat    int   `json:"repeat,omitempty"`
	Telemetry bool  `json:"telemetry,omitempty"`
}

// ThrottleRamp moves the throttle linearly to Target over DurationMs.
type ThrottleRamp struct {
	Target     uint16 `json:"target"`
	DurationMs uint32 `json:"duration_ms"`
	Steps      uint16 `json:"steps,omitempty"`
}

// ------------------------
// Telemetry (motors/<name>/telemetry, retained)
// ------------------------

type MotorTelemetry struct {
	Name     string `json:"name"`
	Mode     string `json:"mode"`
	State    string `json:"state"`
	Link     Link   `json:"link"`
	Throttle uint16 `json:"throttle"`
	ERPM     uint32 `json:"erpm"`
	RPM      uint32 `json:"rpm"`

	TemperatureC uint8  `json:"temp_c"`
	VoltageMV    uint32 `json:"voltage_mv"`
	CurrentA     uint8  `json:"current_a"`

	Received uint32 `json:"received"`
	Valid    uint32 `json:"valid"`
	Sends    uint32 `json:"sends"`

	KISS *KISSTelemetry `json:"kiss,omitempty"`
	TS   int64          `json:"ts_ms"`
}

type KISSTelemetry struct {
	TemperatureC   uint8  `json:"temp_c"`
	VoltageCV      uint16 `json:"voltage_cv"`
	CurrentCA      uint16 `json:"current_ca"`
	ConsumptionMAh uint16 `json:"consumption_mah"`
	ERPM           uint32 `json:"erpm"`
}
