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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/twistedfields/rover/odrive"
)

func TestHomingFindsSensorDuringSweep(t *testing.T) {
	a, sim := newTestActuator(t, FrontLeft)

	// The first sweep commands home - 50 degrees; put the home switch
	// window there so the sweep trips it.
	target := ProfileFor(FrontLeft).OffsetCounts(-50)
	sim.SetHomeWindow(target, 50)

	require.NoError(t, a.InitializeSteering(false, false))

	state := a.State()
	require.True(t, state.SteeringInitialized)
	require.InDelta(t, target, state.HomePositionCounts, 1.0)
	// The axis is commanded back to the accepted home.
	require.InDelta(t, target, sim.Register(odrive.PosSetpoint(odrive.SteeringAxis)), 1.0)
}

func TestHomingExhaustsRetryPositions(t *testing.T) {
	a, _ := newTestActuator(t, FrontLeft)
	// No home window anywhere: the sensor never trips.

	err := a.InitializeSteering(false, false)
	require.Error(t, err)
	require.True(t, IsFatal(err))
	require.Contains(t, err.Error(), "exceeded max homing attempts")
	require.False(t, a.State().SteeringInitialized)
}

func TestHomingRepositionsWalkAroundRevolution(t *testing.T) {
	a, sim := newTestActuator(t, FrontLeft)
	// Place the window three retry offsets away from the start, on the
	// side the pot bias heuristic explores when the pot reads low:
	// repositioning moves home by -80 degrees per failed position.
	offset := ProfileFor(FrontLeft).OffsetCounts(-80*2 - 50)
	sim.SetPotVolts(1.0)
	sim.SetHomeWindow(offset, 100)

	require.NoError(t, a.InitializeSteering(false, false))
	require.True(t, a.State().SteeringInitialized)
	require.InDelta(t, offset, a.State().HomePositionCounts, 150.0)
}

func TestHomingControllerErrorIsFatal(t *testing.T) {
	a, sim := newTestActuator(t, FrontLeft)
	sim.SetRegister(odrive.AxisError(odrive.TractionAxis), 0x02)

	err := a.InitializeSteering(false, false)
	require.Error(t, err)
	require.True(t, IsFatal(err))
	require.Contains(t, err.Error(), "during homing")
	require.False(t, a.State().SteeringInitialized)
}

func TestHomingOutOfBandPotIsFatalBeforeSweep(t *testing.T) {
	a, sim := newTestActuator(t, FrontLeft)
	sim.SetPotVolts(0.0)

	err := a.InitializeSteering(false, false)
	require.Error(t, err)
	require.True(t, IsFatal(err))
	require.Contains(t, err.Error(), "out of range")
}

func TestHomingStopsActuatorBeforeLimitErrorPropagates(t *testing.T) {
	a, sim := newTestActuator(t, FrontLeft)
	sim.SetRegister(odrive.VelSetpoint(odrive.TractionAxis), 9)
	sim.SetPotVolts(0.05)

	_, err := a.runHoming(0)
	require.Error(t, err)
	require.True(t, IsFatal(err))
	require.Zero(t, sim.Register(odrive.VelSetpoint(odrive.SteeringAxis)))
	require.Zero(t, sim.Register(odrive.VelSetpoint(odrive.TractionAxis)))
}

func TestSkipHomingAcceptsCurrentPosition(t *testing.T) {
	a, sim := newTestActuator(t, RearRight)
	sim.SetRegister(odrive.EncoderPosEstimate(odrive.SteeringAxis), 4242)

	require.NoError(t, a.InitializeSteering(true, true))

	state := a.State()
	require.True(t, state.SteeringInitialized)
	require.True(t, state.SteeringFlipped)
	require.Equal(t, 4242.0, state.HomePositionCounts)
}

func TestMeanPosition(t *testing.T) {
	require.Equal(t, 105.0, meanPosition([]float64{100, 120, 90, 110, 105}))
}

func TestHomingAcceptsMeanOfTransitions(t *testing.T) {
	s := &homingSession{}
	for _, pos := range []float64{100, 120, 90, 110, 105} {
		s.transitions = append(s.transitions, pos)
	}
	require.Len(t, s.transitions, DefaultHomingParams().MaxTransitions)
	require.Equal(t, 105.0, meanPosition(s.transitions))
}
