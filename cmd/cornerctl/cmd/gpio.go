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
	"fmt"

	log "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/twistedfields/rover/estop"
)

// hostGPIO drives the estop heartbeat line through the board's pin
// registry. The pin is resolved once at construction.
type hostGPIO struct {
	pin gpio.PinIO
}

func (g *hostGPIO) Output(_ int, high bool) {
	if err := g.pin.Out(gpio.Level(high)); err != nil {
		log.Errorf("writing estop heartbeat pin: %v", err)
	}
}

// noopGPIO stands in for the heartbeat line during simulation.
type noopGPIO struct{}

func (noopGPIO) Output(int, bool) {}

// newWatchdog wires the estop watchdog to the board's heartbeat pin, or
// to nothing when running against simulated hardware.
func newWatchdog(sim bool) (*estop.Watchdog, error) {
	if sim {
		return estop.NewWatchdog(noopGPIO{}), nil
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("initializing gpio host: %w", err)
	}
	name := fmt.Sprintf("GPIO%d", estop.Pin)
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("estop heartbeat pin %s not present", name)
	}
	return estop.NewWatchdog(&hostGPIO{pin: pin}), nil
}
