package dshot_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dshot-go/drivers/dshot"
	"dshot-go/drivers/dshot/dshottest"
)

func TestArmingPhases(t *testing.T) {
	per := dshottest.New(4)
	per.Auto = true
	rt := dshot.NewRuntime(per)
	pinA, pinB := dshottest.NewPin(1), dshottest.NewPin(2)
	a, err := rt.BringUp(pinA, dshot.DShot600)
	require.NoError(t, err)
	b, err := rt.BringUp(pinB, dshot.DShot600)
	require.NoError(t, err)

	last := func(m *dshot.Motor) uint16 {
		f, err := per.Frame(m.TxChannel(), dshot.DShot600)
		require.NoError(t, err)
		return f.Value
	}

	arm := dshot.NewArming(rt.Motors(), 3*time.Millisecond)
	writes := pinA.Writes
	steps := func(n int) {
		for i := 0; i < n; i++ {
			arm.Step(time.Millisecond)
		}
	}

	steps(3)
	assert.Equal(t, dshot.PhaseStop, arm.Phase())
	assert.Zero(t, a.Sends())
	assert.Equal(t, writes+1, pinA.Writes, "line parked once")
	assert.False(t, pinA.High)

	steps(3)
	assert.Equal(t, dshot.PhaseZero, arm.Phase())
	assert.Equal(t, uint32(3), a.Sends())
	assert.Equal(t, uint16(dshot.CmdMotorStop), last(a))

	steps(3)
	assert.Equal(t, dshot.PhaseRestop, arm.Phase())
	assert.Equal(t, uint32(6), b.Sends())
	assert.Equal(t, dshot.ThrottleMin, last(b))

	steps(3)
	assert.True(t, arm.Done())
	assert.Equal(t, uint32(9), a.Sends())
	assert.Equal(t, uint16(dshot.CmdMotorStop), last(a))
	assert.Equal(t, uint32(12), arm.Ticks())

	assert.Equal(t, dshot.PhaseDone, arm.Step(time.Millisecond))
	assert.Equal(t, uint32(9), a.Sends())
	assert.Equal(t, "done", arm.Phase().String())
}

func TestArmingDefaultPhase(t *testing.T) {
	arm := dshot.NewArming(nil, 0)
	for i := 0; i < 499; i++ {
		arm.Step(dshot.ArmTick)
	}
	assert.Equal(t, dshot.PhaseLineLow, arm.Phase())
	arm.Step(dshot.ArmTick)
	assert.Equal(t, dshot.PhaseStop, arm.Phase())
}

func TestRuntimeArm(t *testing.T) {
	per := dshottest.New(2)
	per.Auto = true
	rt, m, _ := bringUp(t, per, 1, dshot.DShot300)

	require.NoError(t, rt.Arm(context.Background(), 2*time.Millisecond))
	assert.Equal(t, uint32(6), m.Sends())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, rt.Arm(ctx, time.Second), context.Canceled)
}
