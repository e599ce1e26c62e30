/*
Copyright (c) Twisted Fields LLC. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package actuator

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/twistedfields/rover/estop"
	"github.com/twistedfields/rover/odrive"
)

func TestBeginUpdateIssuesInStrictOrder(t *testing.T) {
	a, sim := newTestActuator(t, FrontLeft)
	before := len(sim.History())

	flags := UpdateAmps | UpdateVolts | UpdateErrors
	require.NoError(t, a.BeginUpdate(10, 5, flags))

	counts := strconv.FormatFloat(10*9797.0/360.0, 'f', -1, 64)
	issued := sim.History()[before:]
	require.Equal(t, []string{
		"t 0 " + counts,
		"w axis1.controller.vel_setpoint 5",
		"r axis0.encoder.pos_estimate",
		"r axis0.encoder.vel_estimate",
		"r axis1.encoder.pos_estimate",
		"r axis1.encoder.vel_estimate",
		"r axis0.motor.current_control.Ibus",
		"r axis1.motor.current_control.Ibus",
		"a 5",
		"r vbus_voltage",
		"r axis0.error",
		"r axis1.error",
	}, issued)
}

func TestEndUpdateCommitsInIssueOrder(t *testing.T) {
	a, sim := newTestActuator(t, FrontLeft)
	sim.SetRegister(odrive.EncoderVelEstimate(odrive.SteeringAxis), 20)
	sim.SetRegister(odrive.EncoderPosEstimate(odrive.TractionAxis), 30)
	sim.SetRegister(odrive.EncoderVelEstimate(odrive.TractionAxis), 40)
	sim.SetRegister(odrive.IbusMeasured(odrive.SteeringAxis), 1.5)
	sim.SetRegister(odrive.IbusMeasured(odrive.TractionAxis), 2.5)
	sim.SetRegister(odrive.AxisError(odrive.TractionAxis), 0x20)
	sim.SetPotVolts(1.7)

	flags := UpdateAmps | UpdateVolts | UpdateErrors
	require.NoError(t, a.BeginUpdate(10, 5, flags))

	ok, err := a.EndUpdate(flags)
	require.NoError(t, err)
	require.True(t, ok)

	state := a.State()
	// The steering position read reflects the move just issued.
	require.InDelta(t, 272.139, state.EncoderEstimates[0], 0.001)
	require.Equal(t, 20.0, state.EncoderEstimates[1])
	require.Equal(t, 30.0, state.EncoderEstimates[2])
	require.Equal(t, 40.0, state.EncoderEstimates[3])
	require.Equal(t, [2]float64{1.5, 2.5}, state.PhaseCurrents)
	require.Equal(t, 1.7, state.PotVolts)
	require.GreaterOrEqual(t, state.BusVoltage, 45.5)
	require.Zero(t, state.SteeringError)
	require.Equal(t, int64(0x20), state.TractionError)
}

func TestDoubleBeginUpdateIsRejected(t *testing.T) {
	a, _ := newTestActuator(t, FrontLeft)

	require.NoError(t, a.BeginUpdate(0, 0, 0))
	require.ErrorIs(t, a.BeginUpdate(0, 0, 0), ErrUpdateInFlight)
}

func TestEndUpdateWithoutBeginIsRejected(t *testing.T) {
	a, _ := newTestActuator(t, FrontLeft)

	_, err := a.EndUpdate(0)
	require.ErrorIs(t, err, ErrNoUpdateInFlight)
}

func TestEndUpdateFlagMismatchIsRejected(t *testing.T) {
	a, _ := newTestActuator(t, FrontLeft)

	require.NoError(t, a.BeginUpdate(0, 0, UpdateAmps))
	_, err := a.EndUpdate(UpdateVolts)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNoUpdateInFlight)
}

func TestBrokenChannelLeavesStateUntouched(t *testing.T) {
	a, sim := newTestActuator(t, FrontLeft)

	require.NoError(t, a.BeginUpdate(10, 5, UpdateAmps))
	sim.Break()

	ok, err := a.EndUpdate(UpdateAmps)
	require.NoError(t, err)
	require.False(t, ok)

	state := a.State()
	require.Equal(t, [4]float64{}, state.EncoderEstimates)
	require.Equal(t, [2]float64{}, state.PhaseCurrents)

	// The pipeline is usable again next cycle.
	_, err = a.EndUpdate(UpdateAmps)
	require.ErrorIs(t, err, ErrNoUpdateInFlight)
}

func TestSteeringFlippedInvertsDriveVelocity(t *testing.T) {
	a, sim := newTestActuator(t, FrontLeft)
	a.state.SteeringFlipped = true

	require.NoError(t, a.BeginUpdate(0, 5, 0))
	require.Equal(t, -5.0, a.State().CommandedVelocity)
	require.Equal(t, -5.0, sim.Register(odrive.VelSetpoint(odrive.TractionAxis)))
}

func TestIntegratorResetFiresOnceAfterHold(t *testing.T) {
	a, sim := newTestActuator(t, FrontLeft)
	now := time.Now()
	a.now = func() time.Time { return now }

	resetLine := "w axis1.controller.vel_integrator_current 0"

	require.NoError(t, a.Update(0, 0))
	require.Zero(t, historyCount(sim.History(), resetLine))

	now = now.Add(6 * time.Second)
	require.NoError(t, a.Update(0, 0))
	require.Equal(t, 1, historyCount(sim.History(), resetLine))

	// Still stationary: the reset does not re-fire.
	now = now.Add(time.Second)
	require.NoError(t, a.Update(0, 0))
	require.Equal(t, 1, historyCount(sim.History(), resetLine))

	// Motion resets the stationary timer and re-arms the latch.
	require.NoError(t, a.Update(0, 5))
	require.True(t, a.State().ZeroVelocitySince.IsZero())

	require.NoError(t, a.Update(0, 0))
	now = now.Add(6 * time.Second)
	require.NoError(t, a.Update(0, 0))
	require.Equal(t, 2, historyCount(sim.History(), resetLine))
}

func TestSyncUpdateReadsAndCommands(t *testing.T) {
	a, sim := newTestActuator(t, FrontLeft)
	a.state.HomePositionCounts = 1000
	sim.SetRegister(odrive.EncoderVelEstimate(odrive.TractionAxis), 12)

	require.NoError(t, a.Update(10, 5))

	state := a.State()
	require.Equal(t, 10.0, state.CommandedPositionDeg)
	require.Equal(t, 5.0, state.CommandedVelocity)
	require.Equal(t, 12.0, state.EncoderEstimates[3])
	require.InDelta(t, 1272.139, sim.Register(odrive.PosSetpoint(odrive.SteeringAxis)), 0.001)
	require.Equal(t, 5.0, sim.Register(odrive.VelSetpoint(odrive.TractionAxis)))
}

func TestSimulatedBackendElidesIssuePhase(t *testing.T) {
	dev, sim := odrive.NewSimDevice()
	a, err := New(Config{
		Corner:           FrontLeft,
		EnableSteering:   true,
		EnableTraction:   true,
		SimulateHardware: true,
		Watchdog:         estop.NewWatchdog(nopGPIO{}),
		Device:           dev,
		Timing:           testTiming(),
	})
	require.NoError(t, err)

	before := len(sim.History())
	require.NoError(t, a.BeginUpdate(10, 5, UpdateVolts))
	require.Equal(t, before, len(sim.History()))

	// The discipline still holds under simulation.
	require.ErrorIs(t, a.BeginUpdate(10, 5, UpdateVolts), ErrUpdateInFlight)

	ok, err := a.EndUpdate(UpdateVolts)
	require.NoError(t, err)
	require.True(t, ok)
	require.GreaterOrEqual(t, a.State().BusVoltage, 45.5)
}
