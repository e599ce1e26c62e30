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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFleetConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fleet.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadFleetConfig(t *testing.T) {
	path := writeFleetConfig(t, `
corners:
  front_left:
    path: /dev/ttySC0
    has_thermistor: true
  rear_left:
    path: /dev/ttySC2
    enable_steering: false
    steering_flipped: true
`)
	cfg, err := LoadFleetConfig(path)
	require.NoError(t, err)
	require.Len(t, cfg.Corners, 2)

	fl := cfg.Corners["front_left"]
	require.Equal(t, "/dev/ttySC0", fl.Path)
	require.True(t, fl.HasThermistor)
	steering, traction := fl.Enabled()
	require.True(t, steering)
	require.True(t, traction)

	rl := cfg.Corners["rear_left"]
	require.True(t, rl.SteeringFlipped)
	steering, traction = rl.Enabled()
	require.False(t, steering)
	require.True(t, traction)
}

func TestLoadFleetConfigUnknownCorner(t *testing.T) {
	path := writeFleetConfig(t, `
corners:
  middle_left:
    path: /dev/ttySC9
`)
	_, err := LoadFleetConfig(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "middle_left")
}

func TestLoadFleetConfigMissingPath(t *testing.T) {
	path := writeFleetConfig(t, `
corners:
  front_right: {}
`)
	_, err := LoadFleetConfig(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "no device path")
}

func TestLoadFleetConfigBadYAML(t *testing.T) {
	path := writeFleetConfig(t, "corners: [not, a, map]")
	_, err := LoadFleetConfig(path)
	require.Error(t, err)
}

func TestLoadFleetConfigMissingFile(t *testing.T) {
	_, err := LoadFleetConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
