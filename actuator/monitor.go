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
	"math"

	log "github.com/sirupsen/logrus"

	"github.com/twistedfields/rover/odrive"
)

// Thermistor divider reference constants.
const (
	thermistorR0   = 10000.0
	thermistorT0   = 25.0
	thermistorBeta = 3900.0
)

// EnableThermistor turns on temperature sampling for corners that have
// the divider populated.
func (a *CornerActuator) EnableThermistor() {
	a.hasThermistor = true
}

// UpdateVoltage refreshes bus voltage and both axes' bus current. The
// simulated backend synthesizes a voltage in a realistic band.
func (a *CornerActuator) UpdateVoltage() error {
	v, err := a.dev.ReadFloat(odrive.VbusVoltage)
	if err != nil {
		return err
	}
	i0, err := a.dev.ReadFloat(odrive.IbusMeasured(odrive.SteeringAxis))
	if err != nil {
		return err
	}
	i1, err := a.dev.ReadFloat(odrive.IbusMeasured(odrive.TractionAxis))
	if err != nil {
		return err
	}
	a.state.BusVoltage = v
	a.state.PhaseCurrents = [2]float64{i0, i1}
	return nil
}

// UpdateEncoderData refreshes all four encoder estimates synchronously.
func (a *CornerActuator) UpdateEncoderData() error {
	endpoints := []string{
		odrive.EncoderPosEstimate(odrive.SteeringAxis),
		odrive.EncoderVelEstimate(odrive.SteeringAxis),
		odrive.EncoderPosEstimate(odrive.TractionAxis),
		odrive.EncoderVelEstimate(odrive.TractionAxis),
	}
	var estimates [4]float64
	for i, ep := range endpoints {
		v, err := a.dev.ReadFloat(ep)
		if err != nil {
			return err
		}
		estimates[i] = v
	}
	a.state.EncoderEstimates = estimates
	return nil
}

// UpdateThermistorTemperature samples the thermistor channel and converts
// it through Steinhart-Hart. A degenerate reading that would divide by
// zero is absorbed: the temperature is simply left unchanged.
func (a *CornerActuator) UpdateThermistorTemperature() error {
	if !a.hasThermistor {
		return nil
	}
	a.watchdog.Toggle()
	v, err := a.dev.ReadADC(odrive.ADCChannelThermistor)
	if err != nil {
		return err
	}
	if v <= 0 {
		return nil
	}
	resistance := thermistorR0 / (vcc / v)
	a.state.TemperatureC = steinhartTemperatureC(resistance)
	a.state.HasTemperature = true
	return nil
}

// steinhartTemperatureC converts thermistor resistance to degrees C using
// the beta approximation of the Steinhart-Hart equation.
func steinhartTemperatureC(r float64) float64 {
	steinhart := math.Log(r/thermistorR0) / thermistorBeta
	steinhart += 1.0 / (thermistorT0 + 273.15)
	return 1.0/steinhart - 273.15
}

// PrintErrors dumps decoded sticky errors for both axes, optionally
// clearing them. Commanded position and velocity are zeroed on clear so
// the next update starts from a safe command. A heartbeat guard keeps the
// estop fed for the duration of the dump.
func (a *CornerActuator) PrintErrors(clear bool) error {
	guard := a.watchdog.Guard(a.timing.FastPoll)
	defer guard.Stop()

	dump, err := odrive.DumpErrors(a.dev, clear)
	if err != nil {
		return err
	}
	log.Infof("%s errors:\n%s", a.corner, dump)
	if clear {
		a.state.CommandedPositionDeg = 0
		a.state.CommandedVelocity = 0
	}
	return nil
}
