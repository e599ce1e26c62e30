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
	"github.com/prometheus/client_golang/prometheus"
)

// Stats exports per-corner telemetry as prometheus gauges.
type Stats struct {
	busVoltage  *prometheus.GaugeVec
	busCurrent  *prometheus.GaugeVec
	temperature *prometheus.GaugeVec
	axisErrors  *prometheus.GaugeVec
	initialized *prometheus.GaugeVec
}

// NewStats creates the gauge set and registers it.
func NewStats(reg prometheus.Registerer) *Stats {
	s := &Stats{
		busVoltage: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "corner_bus_voltage_volts",
			Help: "DC bus voltage per corner",
		}, []string{"corner"}),
		busCurrent: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "corner_bus_current_amps",
			Help: "DC bus current per corner axis",
		}, []string{"corner", "axis"}),
		temperature: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "corner_motor_temperature_celsius",
			Help: "Thermistor derived motor temperature per corner",
		}, []string{"corner"}),
		axisErrors: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "corner_axis_error_bitmask",
			Help: "Sticky axis error bitmask per corner axis",
		}, []string{"corner", "axis"}),
		initialized: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "corner_axis_initialized",
			Help: "Whether a corner axis completed initialization",
		}, []string{"corner", "axis"}),
	}
	reg.MustRegister(s.busVoltage, s.busCurrent, s.temperature, s.axisErrors, s.initialized)
	return s
}

// Observe publishes the actuator's current state.
func (s *Stats) Observe(a *CornerActuator) {
	corner := a.Corner().String()
	state := a.State()

	s.busVoltage.WithLabelValues(corner).Set(state.BusVoltage)
	s.busCurrent.WithLabelValues(corner, "steering").Set(state.PhaseCurrents[0])
	s.busCurrent.WithLabelValues(corner, "traction").Set(state.PhaseCurrents[1])
	if state.HasTemperature {
		s.temperature.WithLabelValues(corner).Set(state.TemperatureC)
	}
	s.axisErrors.WithLabelValues(corner, "steering").Set(float64(state.SteeringError))
	s.axisErrors.WithLabelValues(corner, "traction").Set(float64(state.TractionError))
	s.initialized.WithLabelValues(corner, "steering").Set(boolGauge(state.SteeringInitialized))
	s.initialized.WithLabelValues(corner, "traction").Set(boolGauge(state.TractionInitialized))
}

func boolGauge(v bool) float64 {
	if v {
		return 1
	}
	return 0
}
