package timex

import "time"

// NowMs returns Unix milliseconds as int64.
func NowMs() int64 { return time.Now().UnixMilli() }

// MsOr converts a millisecond setting, falling back to def when ms <= 0
// and raising anything below min to min.
func MsOr(ms int, def, min time.Duration) time.Duration {
	if ms <= 0 {
		return def
	}
	d := time.Duration(ms) * time.Millisecond
	if d < min {
		return min
	}
	return d
}
