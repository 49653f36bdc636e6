package dshot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimingTable(t *testing.T) {
	cases := []struct {
		c           SpeedClass
		bit, t0, t1 uint16
		bitNs       uint32
		dir         Direction
		rate        int
		name        string
	}{
		{DShot150, 67, 25, 50, 5333, Unidirectional, 150, "DSHOT150"},
		{DShot300Bidir, 33, 12, 25, 2666, Bidirectional, 300, "DSHOT300_BIDIR"},
		{DShot600, 17, 6, 12, 1333, Unidirectional, 600, "DSHOT600"},
		{DShot1200Bidir, 8, 3, 6, 667, Bidirectional, 1200, "DSHOT1200_BIDIR"},
	}
	for _, tc := range cases {
		tm := TimingFor(tc.c)
		assert.Equal(t, tc.bit, tm.TicksPerBit, tc.name)
		assert.Equal(t, tc.t0, tm.TicksZeroHigh, tc.name)
		assert.Equal(t, tc.t1, tm.TicksOneHigh, tc.name)
		assert.Equal(t, tc.bitNs, tm.BitNs, tc.name)
		assert.Equal(t, tc.dir, tm.Dir, tc.name)
		assert.Equal(t, tc.rate, tc.c.Rate(), tc.name)
		assert.Equal(t, tc.name, tc.c.String())
	}
}

func TestUnknownClassFallsBack(t *testing.T) {
	c := SpeedClass(42)
	assert.False(t, c.Valid())
	assert.Equal(t, DefaultClass, c.Normalize())
	assert.Equal(t, TimingFor(DShot300), TimingFor(c))
}

func TestFrameInterval(t *testing.T) {
	assert.Equal(t, 27200*time.Nanosecond, TimingFor(DShot600).FrameDuration())
	assert.Equal(t, 67*time.Microsecond, TimingFor(DShot600).FrameInterval())
	assert.Equal(t, 125*time.Microsecond, TimingFor(DShot600Bidir).FrameInterval())
	for c := DShot150; c <= DShot1200Bidir; c += 2 {
		assert.Greater(t, TimingFor(c+1).FrameInterval(), TimingFor(c).FrameInterval(), c.String())
	}
}

func TestParseSpeedClass(t *testing.T) {
	for in, want := range map[string]SpeedClass{
		"600":            DShot600,
		"600bidir":       DShot600Bidir,
		"dshot150":       DShot150,
		"DSHOT300-BIDIR": DShot300Bidir,
		" dshot1200_bi ": DShot1200Bidir,
	} {
		got, ok := ParseSpeedClass(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := ParseSpeedClass("dshot900")
	assert.False(t, ok)
}
