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
	"time"

	"github.com/stretchr/testify/require"

	"github.com/twistedfields/rover/estop"
	"github.com/twistedfields/rover/odrive"
)

type nopGPIO struct{}

func (nopGPIO) Output(int, bool) {}

// testTiming compresses every sleep and deadline so homing and enable
// loops run in milliseconds.
func testTiming() Timing {
	return Timing{
		FastPoll:         100 * time.Microsecond,
		SlowPoll:         100 * time.Microsecond,
		EnableRetryPause: 100 * time.Microsecond,
		HomingTick:       time.Millisecond,
		ZeroVelHold:      5 * time.Second,
	}
}

func newTestActuator(t *testing.T, corner Corner) (*CornerActuator, *odrive.Sim) {
	t.Helper()
	dev, sim := odrive.NewSimDevice()
	a, err := New(Config{
		Corner:         corner,
		EnableSteering: true,
		EnableTraction: true,
		Watchdog:       estop.NewWatchdog(nopGPIO{}),
		Device:         dev,
		Timing:         testTiming(),
	})
	require.NoError(t, err)
	return a, sim
}

func historyContains(history []string, line string) bool {
	for _, h := range history {
		if h == line {
			return true
		}
	}
	return false
}

func historyCount(history []string, line string) int {
	n := 0
	for _, h := range history {
		if h == line {
			n++
		}
	}
	return n
}
