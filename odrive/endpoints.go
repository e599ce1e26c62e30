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

import "fmt"

// Register endpoints shared by both axes. Axis 0 is steering, axis 1 is
// traction on a corner controller.
const (
	// VbusVoltage is the DC bus voltage register, not tied to an axis.
	VbusVoltage = "vbus_voltage"

	// SteeringAxis and TractionAxis name the two axes of one controller.
	SteeringAxis = 0
	TractionAxis = 1
)

func axisEP(axis int, suffix string) string {
	return fmt.Sprintf("axis%d.%s", axis, suffix)
}

// RequestedState is the axis state request register.
func RequestedState(axis int) string { return axisEP(axis, "requested_state") }

// CurrentState is the axis state readback register.
func CurrentState(axis int) string { return axisEP(axis, "current_state") }

// AxisError is the sticky axis error bitmask.
func AxisError(axis int) string { return axisEP(axis, "error") }

// MotorError is the sticky motor error bitmask.
func MotorError(axis int) string { return axisEP(axis, "motor.error") }

// EncoderError is the sticky encoder error bitmask.
func EncoderError(axis int) string { return axisEP(axis, "encoder.error") }

// ControllerError is the sticky controller error bitmask.
func ControllerError(axis int) string { return axisEP(axis, "controller.error") }

// EncoderPosEstimate is the encoder position estimate in counts.
func EncoderPosEstimate(axis int) string { return axisEP(axis, "encoder.pos_estimate") }

// EncoderVelEstimate is the encoder velocity estimate in counts per second.
func EncoderVelEstimate(axis int) string { return axisEP(axis, "encoder.vel_estimate") }

// EncoderIsReady reports whether the encoder has a usable offset.
func EncoderIsReady(axis int) string { return axisEP(axis, "encoder.is_ready") }

// EncoderCPR is the configured encoder counts per revolution.
func EncoderCPR(axis int) string { return axisEP(axis, "encoder.config.cpr") }

// EncoderUseIndex enables the encoder index input.
func EncoderUseIndex(axis int) string { return axisEP(axis, "encoder.config.use_index") }

// ControlModeEP is the controller mode config register.
func ControlModeEP(axis int) string { return axisEP(axis, "controller.config.control_mode") }

// VelSetpoint is the velocity command register.
func VelSetpoint(axis int) string { return axisEP(axis, "controller.vel_setpoint") }

// PosSetpoint is the position command register.
func PosSetpoint(axis int) string { return axisEP(axis, "controller.pos_setpoint") }

// VelIntegratorCurrent is the velocity loop integrator accumulator.
func VelIntegratorCurrent(axis int) string { return axisEP(axis, "controller.vel_integrator_current") }

// VelIntegratorGain is the velocity loop integrator gain.
func VelIntegratorGain(axis int) string {
	return axisEP(axis, "controller.config.vel_integrator_gain")
}

// VelGain is the velocity loop proportional gain.
func VelGain(axis int) string { return axisEP(axis, "controller.config.vel_gain") }

// PosGain is the position loop proportional gain.
func PosGain(axis int) string { return axisEP(axis, "controller.config.pos_gain") }

// VelRampRate is the velocity ramp slew rate.
func VelRampRate(axis int) string { return axisEP(axis, "controller.config.vel_ramp_rate") }

// VelRampEnable turns on velocity ramping.
func VelRampEnable(axis int) string { return axisEP(axis, "controller.vel_ramp_enable") }

// MotorType selects the motor model used by the axis.
func MotorType(axis int) string { return axisEP(axis, "motor.config.motor_type") }

// MotorDirection is the motor winding direction config.
func MotorDirection(axis int) string { return axisEP(axis, "motor.config.direction") }

// MotorCurrentLim is the motor current limit in amps.
func MotorCurrentLim(axis int) string { return axisEP(axis, "motor.config.current_lim") }

// IbusMeasured is the measured DC bus current drawn by one axis.
func IbusMeasured(axis int) string { return axisEP(axis, "motor.current_control.Ibus") }

// TrapVelLimit is the trapezoidal trajectory velocity cap.
func TrapVelLimit(axis int) string { return axisEP(axis, "trap_traj.config.vel_limit") }

// TrapAccelLimit is the trapezoidal trajectory acceleration cap.
func TrapAccelLimit(axis int) string { return axisEP(axis, "trap_traj.config.accel_limit") }

// TrapDecelLimit is the trapezoidal trajectory deceleration cap.
func TrapDecelLimit(axis int) string { return axisEP(axis, "trap_traj.config.decel_limit") }

// TrapAPerCSS is the trajectory current feed-forward term.
func TrapAPerCSS(axis int) string { return axisEP(axis, "trap_traj.config.A_per_css") }
