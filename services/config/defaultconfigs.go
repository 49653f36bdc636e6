package config

// -----------------------------------------------------------------------------
// Embedded configuration
//
// Key: device ID (same value placed in ctx under CtxDeviceKey)
// Val: raw JSON bytes for that device
// -----------------------------------------------------------------------------

// Quad on a Pico: four bidirectional DSHOT600 lines, KISS telemetry on uart1.
const cfgPicoQuad = `{
  "motors": {
    "motors": [
      {"name": "front_left",  "pin": 2, "mode": "600bidir", "poles": 14},
      {"name": "front_right", "pin": 3, "mode": "600bidir", "poles": 14},
      {"name": "rear_right",  "pin": 4, "mode": "600bidir", "poles": 14},
      {"name": "rear_left",   "pin": 5, "mode": "600bidir", "poles": 14}
    ],
    "refresh_ms": 2,
    "telemetry_ms": 200,
    "kiss": {"uart": "uart1", "baud": 115200, "tx": 8, "rx": 9}
  },
  "heartbeat": {
    "interval_ms": 2000
  }
}`

// Host simulation: two lines on the in-memory peripheral, armed at start.
const cfgSim = `{
  "motors": {
    "motors": [
      {"name": "m1", "pin": 1, "mode": "600bidir", "poles": 14},
      {"name": "m2", "pin": 2, "mode": "300", "poles": 12}
    ],
    "refresh_ms": 10,
    "telemetry_ms": 1000,
    "arm_phase_ms": 100,
    "auto_arm": true
  },
  "heartbeat": {
    "interval_ms": 1000
  }
}`

var embeddedConfigs = map[string][]byte{
	"pico-quad": []byte(cfgPicoQuad),
	"sim":       []byte(cfgSim),
}
