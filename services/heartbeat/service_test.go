package heartbeat

import (
	"testing"

	"dshot-go/types"
)

func TestSummarize(t *testing.T) {
	h := summarize(map[string]types.MotorTelemetry{
		"a": {Name: "a", Link: types.LinkUp, ERPM: 120_000, TemperatureC: 40},
		"b": {Name: "b", Link: types.LinkDegraded, ERPM: 90_000,
			KISS: &types.KISSTelemetry{TemperatureC: 55}},
		"c": {Name: "c", Link: types.LinkDown},
		"d": {Name: "d", Link: types.LinkNone},
	})
	want := Health{Motors: 4, Up: 1, Degraded: 1, Down: 1, MaxERPM: 120_000, MaxTempC: 55}
	if h != want {
		t.Fatalf("summarize = %+v, want %+v", h, want)
	}
	if (summarize(nil) != Health{}) {
		t.Fatal("empty summary should be zero")
	}
}
