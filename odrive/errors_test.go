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

package odrive

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeBits(t *testing.T) {
	names := decodeBits(axisErrorBits, 0x21)
	require.Equal(t, []string{"ERROR_INVALID_STATE", "ERROR_MOTOR_DISARMED"}, names)

	names = decodeBits(encoderErrorBits, 0x20)
	require.Equal(t, []string{"ERROR_INDEX_NOT_FOUND_YET"}, names)

	// Unknown bits are kept visible.
	names = decodeBits(controllerErrorBits, 0x81)
	require.Equal(t, []string{"ERROR_OVERSPEED", "UNKNOWN_ERROR_0x80"}, names)

	require.Empty(t, decodeBits(motorErrorBits, 0))
}

func TestDumpErrorsCleanController(t *testing.T) {
	d, _ := NewSimDevice()

	dump, err := DumpErrors(d, false)
	require.NoError(t, err)
	require.Contains(t, dump, "axis0")
	require.Contains(t, dump, "axis1")
	require.Contains(t, dump, "no error")
	require.NotContains(t, dump, "Error(s):")
}

func TestDumpErrorsDecodesAndClears(t *testing.T) {
	d, sim := NewSimDevice()
	sim.SetRegister(AxisError(SteeringAxis), 0x100)
	sim.SetRegister(EncoderError(SteeringAxis), 0x04)

	dump, err := DumpErrors(d, true)
	require.NoError(t, err)
	require.Contains(t, dump, "ERROR_ENCODER_FAILED")
	require.Contains(t, dump, "ERROR_NO_RESPONSE")

	require.Zero(t, sim.Register(AxisError(SteeringAxis)))
	require.Zero(t, sim.Register(EncoderError(SteeringAxis)))
}
