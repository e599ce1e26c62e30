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
	"sort"

	log "github.com/sirupsen/logrus"

	"github.com/twistedfields/rover/actuator"
	"github.com/twistedfields/rover/estop"
)

// selectCorners loads the fleet config and filters it down to the named
// corners. No names means every configured corner, in stable order.
func selectCorners(configPath string, names []string) ([]string, map[string]actuator.CornerDefinition, error) {
	cfg, err := actuator.LoadFleetConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	if len(names) == 0 {
		for name := range cfg.Corners {
			names = append(names, name)
		}
		sort.Strings(names)
		return names, cfg.Corners, nil
	}
	for _, name := range names {
		if _, ok := cfg.Corners[name]; !ok {
			return nil, nil, fmt.Errorf("corner %s not in fleet config %s", name, configPath)
		}
	}
	return names, cfg.Corners, nil
}

// buildCorner constructs one actuator from its fleet definition.
func buildCorner(name string, def actuator.CornerDefinition, wd *estop.Watchdog, sim, disableLimits bool) (*actuator.CornerActuator, error) {
	corner, err := actuator.ParseCorner(name)
	if err != nil {
		return nil, err
	}
	steering, traction := def.Enabled()
	a, err := actuator.New(actuator.Config{
		Corner:                corner,
		DevicePath:            def.Path,
		EnableSteering:        steering,
		EnableTraction:        traction,
		SimulateHardware:      sim,
		DisableSteeringLimits: disableLimits,
		Watchdog:              wd,
	})
	if err != nil {
		return nil, fmt.Errorf("opening %s at %s: %w", name, def.Path, err)
	}
	if def.HasThermistor {
		a.EnableThermistor()
	}
	return a, nil
}

// initCorner brings both axes of one corner up, homing steering unless
// told to skip it.
func initCorner(a *actuator.CornerActuator, def actuator.CornerDefinition, skipHoming bool) error {
	log.Infof("%s: initializing traction", a.Corner())
	if err := a.InitializeTraction(); err != nil {
		return err
	}
	log.Infof("%s: initializing steering", a.Corner())
	return a.InitializeSteering(def.SteeringFlipped, skipHoming)
}
