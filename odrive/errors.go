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
	"fmt"
	"strings"

	"github.com/fatih/color"
)

type errorBit struct {
	mask int64
	name string
}

var axisErrorBits = []errorBit{
	{0x01, "ERROR_INVALID_STATE"},
	{0x02, "ERROR_DC_BUS_UNDER_VOLTAGE"},
	{0x04, "ERROR_DC_BUS_OVER_VOLTAGE"},
	{0x08, "ERROR_CURRENT_MEASUREMENT_TIMEOUT"},
	{0x10, "ERROR_BRAKE_RESISTOR_DISARMED"},
	{0x20, "ERROR_MOTOR_DISARMED"},
	{0x40, "ERROR_MOTOR_FAILED"},
	{0x80, "ERROR_SENSORLESS_ESTIMATOR_FAILED"},
	{0x100, "ERROR_ENCODER_FAILED"},
	{0x200, "ERROR_CONTROLLER_FAILED"},
	{0x400, "ERROR_POS_CTRL_DURING_SENSORLESS"},
	{0x800, "ERROR_WATCHDOG_TIMER_EXPIRED"},
}

var motorErrorBits = []errorBit{
	{0x01, "ERROR_PHASE_RESISTANCE_OUT_OF_RANGE"},
	{0x02, "ERROR_PHASE_INDUCTANCE_OUT_OF_RANGE"},
	{0x04, "ERROR_ADC_FAILED"},
	{0x08, "ERROR_DRV_FAULT"},
	{0x10, "ERROR_CONTROL_DEADLINE_MISSED"},
	{0x400, "ERROR_CURRENT_SENSE_SATURATION"},
	{0x1000, "ERROR_CURRENT_LIMIT_VIOLATION"},
	{0x10000, "ERROR_MODULATION_MAGNITUDE"},
}

var encoderErrorBits = []errorBit{
	{0x01, "ERROR_UNSTABLE_GAIN"},
	{0x02, "ERROR_CPR_OUT_OF_RANGE"},
	{0x04, "ERROR_NO_RESPONSE"},
	{0x08, "ERROR_UNSUPPORTED_ENCODER_MODE"},
	{0x10, "ERROR_ILLEGAL_HALL_STATE"},
	{0x20, "ERROR_INDEX_NOT_FOUND_YET"},
}

var controllerErrorBits = []errorBit{
	{0x01, "ERROR_OVERSPEED"},
}

type errorModule struct {
	name     string
	endpoint func(axis int) string
	bits     []errorBit
}

var errorModules = []errorModule{
	{"axis", AxisError, axisErrorBits},
	{"motor", MotorError, motorErrorBits},
	{"encoder", EncoderError, encoderErrorBits},
	{"controller", ControllerError, controllerErrorBits},
}

// decodeBits turns one module's sticky bitmask into readable labels.
// Unknown bits are reported in hex so nothing gets silently dropped.
func decodeBits(bits []errorBit, value int64) []string {
	var names []string
	known := int64(0)
	for _, b := range bits {
		known |= b.mask
		if value&b.mask != 0 {
			names = append(names, b.name)
		}
	}
	if rest := value &^ known; rest != 0 {
		names = append(names, fmt.Sprintf("UNKNOWN_ERROR_0x%x", rest))
	}
	return names
}

// DumpErrors reads the sticky error registers of every module on both
// axes and renders a colored, human readable report. With clear set, each
// register is zeroed after decoding.
func DumpErrors(d *Device, clear bool) (string, error) {
	red := color.New(color.FgRed).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()

	var out strings.Builder
	for _, axis := range []int{SteeringAxis, TractionAxis} {
		fmt.Fprintf(&out, "axis%d\n", axis)
		for _, m := range errorModules {
			value, err := d.ReadInt(m.endpoint(axis))
			if err != nil {
				return out.String(), fmt.Errorf("dumping axis%d %s error: %w", axis, m.name, err)
			}
			prefix := "  " + m.name + ": "
			if value == 0 {
				out.WriteString(prefix + green("no error") + "\n")
				continue
			}
			out.WriteString(prefix + red("Error(s):") + "\n")
			for _, name := range decodeBits(m.bits, value) {
				out.WriteString("    " + name + "\n")
			}
			if clear {
				if err := d.WriteInt(m.endpoint(axis), 0); err != nil {
					return out.String(), fmt.Errorf("clearing axis%d %s error: %w", axis, m.name, err)
				}
			}
		}
	}
	return out.String(), nil
}
