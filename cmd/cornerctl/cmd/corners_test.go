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

package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/twistedfields/rover/actuator"
	"github.com/twistedfields/rover/estop"
)

func writeTestFleet(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fleet.yaml")
	body := `
corners:
  front_left:
    path: /dev/ttySC0
  front_right:
    path: /dev/ttySC1
  rear_left:
    path: /dev/ttySC2
    steering_flipped: true
    has_thermistor: true
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestSelectCornersAll(t *testing.T) {
	names, defs, err := selectCorners(writeTestFleet(t), nil)
	require.NoError(t, err)
	require.Equal(t, []string{"front_left", "front_right", "rear_left"}, names)
	require.True(t, defs["rear_left"].SteeringFlipped)
}

func TestSelectCornersFiltered(t *testing.T) {
	names, _, err := selectCorners(writeTestFleet(t), []string{"front_right"})
	require.NoError(t, err)
	require.Equal(t, []string{"front_right"}, names)
}

func TestSelectCornersUnknownName(t *testing.T) {
	_, _, err := selectCorners(writeTestFleet(t), []string{"front_middle"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "front_middle")
}

func TestBuildCornerSimulated(t *testing.T) {
	_, defs, err := selectCorners(writeTestFleet(t), nil)
	require.NoError(t, err)

	wd := estop.NewWatchdog(noopGPIO{})
	a, err := buildCorner("rear_left", defs["rear_left"], wd, true, false)
	require.NoError(t, err)
	defer a.Close()
	require.Equal(t, actuator.RearLeft, a.Corner())
}
