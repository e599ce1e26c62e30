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

/*
Package odrive talks to a two-axis ODrive motor controller over its
line-oriented register protocol. Axis 0 drives steering, axis 1 drives
traction.

The protocol carries no request identifiers: replies arrive in the exact
order requests were sent. Device supports both synchronous register access
and a fire-and-request pattern (Request followed later by Retrieve) used
to pipeline several round trips over the link. Callers own the ordering
contract; Pending tokens exist so misuse fails loudly instead of silently
misaligning results.
*/
package odrive

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrChannelBroken indicates the link to the controller failed mid
// conversation. Any in-flight pipelined results are lost.
var ErrChannelBroken = fmt.Errorf("odrive: channel broken")

// DefaultOpGap is the minimum spacing between operations issued on the
// link. The controller firmware drops requests that arrive back to back.
const DefaultOpGap = 500 * time.Microsecond

// AxisState mirrors the controller's requested/current state machine values.
type AxisState int32

const (
	AxisStateUndefined AxisState = iota
	AxisStateIdle
	AxisStateStartupSequence
	AxisStateFullCalibrationSequence
	AxisStateMotorCalibration
	AxisStateSensorlessControl
	AxisStateEncoderIndexSearch
	AxisStateEncoderOffsetCalibration
	AxisStateClosedLoopControl
)

var axisStateToString = map[AxisState]string{
	AxisStateUndefined:                "UNDEFINED",
	AxisStateIdle:                     "IDLE",
	AxisStateStartupSequence:          "STARTUP_SEQUENCE",
	AxisStateFullCalibrationSequence:  "FULL_CALIBRATION_SEQUENCE",
	AxisStateMotorCalibration:         "MOTOR_CALIBRATION",
	AxisStateSensorlessControl:        "SENSORLESS_CONTROL",
	AxisStateEncoderIndexSearch:       "ENCODER_INDEX_SEARCH",
	AxisStateEncoderOffsetCalibration: "ENCODER_OFFSET_CALIBRATION",
	AxisStateClosedLoopControl:        "CLOSED_LOOP_CONTROL",
}

func (s AxisState) String() string {
	v, found := axisStateToString[s]
	if !found {
		return "UNSUPPORTED VALUE"
	}
	return v
}

// ControlMode selects what quantity the axis controller regulates.
type ControlMode int32

const (
	ControlModeVoltage ControlMode = iota
	ControlModeCurrent
	ControlModeVelocity
	ControlModePosition
	ControlModeTrajectory
)

var controlModeToString = map[ControlMode]string{
	ControlModeVoltage:    "VOLTAGE_CONTROL",
	ControlModeCurrent:    "CURRENT_CONTROL",
	ControlModeVelocity:   "VELOCITY_CONTROL",
	ControlModePosition:   "POSITION_CONTROL",
	ControlModeTrajectory: "TRAJECTORY_CONTROL",
}

func (m ControlMode) String() string {
	v, found := controlModeToString[m]
	if !found {
		return "UNSUPPORTED VALUE"
	}
	return v
}

// MotorTypeBrushedVoltage is the motor type used by the steering gearmotor.
const MotorTypeBrushedVoltage = 4

// Conn is a line transport to one controller. Implementations are the
// serial link and the simulator; neither is safe for concurrent use.
type Conn interface {
	WriteLine(line string) error
	ReadLine() (string, error)
	Close() error
}

// Pending is a token for one in-flight pipelined read. It records only the
// request that produced it; correlation with a reply is purely positional.
type Pending struct {
	query string
}

// Query returns the request line this token stands for, for diagnostics.
func (p Pending) Query() string {
	return p.query
}

// Device is a handle to one two-axis controller.
type Device struct {
	conn Conn

	// OpGap is the minimum spacing enforced between issued operations.
	// The simulator sets it to zero.
	OpGap time.Duration

	lastOp time.Time
}

// NewDevice wraps an open transport in a Device.
func NewDevice(conn Conn) *Device {
	return &Device{conn: conn, OpGap: DefaultOpGap}
}

// Close closes the underlying transport.
func (d *Device) Close() error {
	return d.conn.Close()
}

func (d *Device) issue(line string) error {
	if d.OpGap > 0 {
		if since := time.Since(d.lastOp); since < d.OpGap {
			time.Sleep(d.OpGap - since)
		}
	}
	if err := d.conn.WriteLine(line); err != nil {
		return fmt.Errorf("%w: %v", ErrChannelBroken, err)
	}
	d.lastOp = time.Now()
	return nil
}

func (d *Device) readValue() (float64, error) {
	line, err := d.conn.ReadLine()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrChannelBroken, err)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(line), 64)
	if err != nil {
		return 0, fmt.Errorf("parsing reply %q: %w", line, err)
	}
	return v, nil
}

// ReadFloat reads one register synchronously.
func (d *Device) ReadFloat(endpoint string) (float64, error) {
	if err := d.issue("r " + endpoint); err != nil {
		return 0, err
	}
	v, err := d.readValue()
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", endpoint, err)
	}
	return v, nil
}

// ReadInt reads one integer register synchronously.
func (d *Device) ReadInt(endpoint string) (int64, error) {
	v, err := d.ReadFloat(endpoint)
	if err != nil {
		return 0, err
	}
	return int64(v), nil
}

// WriteFloat writes one register. The controller sends no acknowledgement.
func (d *Device) WriteFloat(endpoint string, value float64) error {
	return d.issue(fmt.Sprintf("w %s %s", endpoint, formatValue(value)))
}

// WriteInt writes one integer register.
func (d *Device) WriteInt(endpoint string, value int64) error {
	return d.issue(fmt.Sprintf("w %s %d", endpoint, value))
}

// MoveTo commands a trapezoidal trajectory move of one axis to an absolute
// encoder count. Fire and forget.
func (d *Device) MoveTo(axis int, counts float64) error {
	return d.issue(fmt.Sprintf("t %d %s", axis, formatValue(counts)))
}

// ReadADC reads one of the controller's analog input channels, in volts.
func (d *Device) ReadADC(channel int) (float64, error) {
	if err := d.issue(fmt.Sprintf("a %d", channel)); err != nil {
		return 0, err
	}
	v, err := d.readValue()
	if err != nil {
		return 0, fmt.Errorf("reading adc %d: %w", channel, err)
	}
	return v, nil
}

// Request issues a register read without waiting for the reply and returns
// a token for it. The reply must be collected with Retrieve, in the same
// order requests were issued.
func (d *Device) Request(endpoint string) (Pending, error) {
	line := "r " + endpoint
	if err := d.issue(line); err != nil {
		return Pending{}, err
	}
	return Pending{query: line}, nil
}

// RequestADC is Request for an analog input channel.
func (d *Device) RequestADC(channel int) (Pending, error) {
	line := fmt.Sprintf("a %d", channel)
	if err := d.issue(line); err != nil {
		return Pending{}, err
	}
	return Pending{query: line}, nil
}

// Retrieve collects the reply for the oldest outstanding request. The
// caller must pass tokens back in issue order; the token itself only
// names the request for error messages.
func (d *Device) Retrieve(p Pending) (float64, error) {
	v, err := d.readValue()
	if err != nil {
		return 0, fmt.Errorf("retrieving %q: %w", p.query, err)
	}
	return v, nil
}

// RetrieveInt is Retrieve for integer registers.
func (d *Device) RetrieveInt(p Pending) (int64, error) {
	v, err := d.Retrieve(p)
	if err != nil {
		return 0, err
	}
	return int64(v), nil
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
