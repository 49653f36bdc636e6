package types

// ---- Common service state (retained) ----

type ServiceState struct {
	Level  string `json:"level"`  // e.g. "idle", "ready", "stopped"
	Status string `json:"status"` // freeform short code
	Error  string `json:"error,omitempty"`
	TS     int64  `json:"ts_ms"`
}

// Link is the reply-link state reported for a motor.
type Link string

const (
	LinkUp       Link = "up"       // replies decode
	LinkDown     Link = "down"     // no replies
	LinkDegraded Link = "degraded" // replies arrive but some fail decode
	LinkNone     Link = "none"     // unidirectional line
)

// ---- Replies ----

type OKReply struct {
	OK bool `json:"ok"`
}

type ErrorReply struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// ---- Heartbeat (config/heartbeat) ----

type HeartbeatConfig struct {
	IntervalMs int `json:"interval_ms"`
}
