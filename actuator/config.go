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
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// CornerDefinition is one corner's entry in the fleet config file.
type CornerDefinition struct {
	Path            string `yaml:"path"`
	EnableSteering  *bool  `yaml:"enable_steering"`
	EnableTraction  *bool  `yaml:"enable_traction"`
	SteeringFlipped bool   `yaml:"steering_flipped"`
	HasThermistor   bool   `yaml:"has_thermistor"`
}

// FleetConfig maps corner names to their connection definitions.
type FleetConfig struct {
	Corners map[string]CornerDefinition `yaml:"corners"`
}

// LoadFleetConfig reads a yaml fleet config and validates corner names.
func LoadFleetConfig(path string) (*FleetConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fleet config: %w", err)
	}
	cfg := &FleetConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing fleet config %s: %w", path, err)
	}
	for name, def := range cfg.Corners {
		if _, err := ParseCorner(name); err != nil {
			return nil, fmt.Errorf("fleet config %s: %w", path, err)
		}
		if def.Path == "" {
			return nil, fmt.Errorf("fleet config %s: corner %s has no device path", path, name)
		}
	}
	return cfg, nil
}

// Enabled applies the config's defaults: an axis is enabled unless
// explicitly turned off.
func (d CornerDefinition) Enabled() (steering, traction bool) {
	steering, traction = true, true
	if d.EnableSteering != nil {
		steering = *d.EnableSteering
	}
	if d.EnableTraction != nil {
		traction = *d.EnableTraction
	}
	return steering, traction
}
