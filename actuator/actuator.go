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
Package actuator controls one steering/traction corner of the vehicle
through a two-axis ODrive controller.

A CornerActuator owns one controller connection exclusively and is driven
from a single control thread: no method is safe for concurrent use. The
estop watchdog must keep being fed throughout every operation, so all
blocking paths either toggle it inline or hold an estop.Guard.
*/
package actuator

import (
	"math"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/twistedfields/rover/estop"
	"github.com/twistedfields/rover/odrive"
)

const (
	vcc             = 3.3
	voltageMidpoint = vcc / 2
	potVoltageLow   = vcc / 6
	potVoltageHigh  = 5 * vcc / 6

	tractionIntegratorGain = 0.5
	steeringCurrentLimit   = 20.0

	// Commands smaller than this are treated as zero when slowing down.
	commandValueMinimum = 0.001

	// Traction is considered stationary below this commanded velocity,
	// in encoder counts per time unit.
	zeroVelCountsThreshold = 2.0
)

// Timing groups every sleep and deadline used by the actuator. Tests
// compress these; production uses DefaultTiming.
type Timing struct {
	FastPoll         time.Duration
	SlowPoll         time.Duration
	EnableRetryPause time.Duration
	HomingTick       time.Duration
	ZeroVelHold      time.Duration
}

// DefaultTiming returns the timing the hardware was tuned with.
func DefaultTiming() Timing {
	return Timing{
		FastPoll:         10 * time.Millisecond,
		SlowPoll:         500 * time.Millisecond,
		EnableRetryPause: 5 * time.Second,
		HomingTick:       3 * time.Second,
		ZeroVelHold:      5 * time.Second,
	}
}

// State is the mutable runtime record of one corner. It is owned
// exclusively by its CornerActuator; State() hands out copies.
type State struct {
	HomePositionCounts   float64
	CommandedPositionDeg float64
	CommandedVelocity    float64
	SteeringInitialized  bool
	TractionInitialized  bool
	SteeringFlipped      bool
	ZeroVelocitySince    time.Time

	BusVoltage    float64
	PhaseCurrents [2]float64

	// Steering position, steering velocity, traction position, traction
	// velocity, all in encoder counts.
	EncoderEstimates [4]float64

	SteeringError int64
	TractionError int64

	PotVolts       float64
	TemperatureC   float64
	HasTemperature bool
}

// Config are the construction parameters for one corner.
type Config struct {
	Corner                Corner
	DevicePath            string
	EnableSteering        bool
	EnableTraction        bool
	SimulateHardware      bool
	DisableSteeringLimits bool

	// Watchdog is required; the estop circuit trips without it.
	Watchdog *estop.Watchdog

	// Device overrides DevicePath when set. Tests inject a simulator
	// backed device here.
	Device *odrive.Device

	// Timing defaults to DefaultTiming when zero.
	Timing Timing
}

// CornerActuator drives one corner.
type CornerActuator struct {
	corner   Corner
	profile  CalibrationProfile
	dev      *odrive.Device
	watchdog *estop.Watchdog
	timing   Timing

	enableSteering        bool
	enableTraction        bool
	simulated             bool
	disableSteeringLimits bool
	hasThermistor         bool

	state State

	integratorCleared bool

	pending        []odrive.Pending
	pendingFlags   UpdateFlags
	updateInFlight bool

	homing HomingParams
	now    func() time.Time
}

// New resolves the hardware handle and returns an actuator with zeroed
// runtime state. Axis initialization is explicit via InitializeTraction
// and InitializeSteering.
func New(cfg Config) (*CornerActuator, error) {
	dev := cfg.Device
	if dev == nil {
		if cfg.SimulateHardware {
			dev, _ = odrive.NewSimDevice()
		} else {
			var err error
			dev, err = odrive.Open(cfg.DevicePath)
			if err != nil {
				return nil, err
			}
		}
	}
	timing := cfg.Timing
	if timing == (Timing{}) {
		timing = DefaultTiming()
	}
	return &CornerActuator{
		corner:                cfg.Corner,
		profile:               ProfileFor(cfg.Corner),
		dev:                   dev,
		watchdog:              cfg.Watchdog,
		timing:                timing,
		enableSteering:        cfg.EnableSteering,
		enableTraction:        cfg.EnableTraction,
		simulated:             cfg.SimulateHardware,
		disableSteeringLimits: cfg.DisableSteeringLimits,
		homing:                DefaultHomingParams(),
		now:                   time.Now,
	}, nil
}

// Corner returns which corner this actuator drives.
func (a *CornerActuator) Corner() Corner {
	return a.corner
}

// State returns a copy of the current runtime state.
func (a *CornerActuator) State() State {
	return a.state
}

// Close releases the controller connection.
func (a *CornerActuator) Close() error {
	return a.dev.Close()
}

// positionCounts converts a commanded steering angle to absolute encoder
// counts relative to the homed zero.
func (a *CornerActuator) positionCounts(degrees float64) float64 {
	return a.state.HomePositionCounts + a.profile.OffsetCounts(degrees)
}

// SampleHomeSensor reads the binary home switch. True only near the
// mechanical steering reference.
func (a *CornerActuator) SampleHomeSensor() (bool, error) {
	a.watchdog.Toggle()
	v, err := a.dev.ReadADC(odrive.ADCChannelSteeringHome)
	if err != nil {
		return false, err
	}
	return v < voltageMidpoint, nil
}

// SampleSteeringPot reads the steering potentiometer voltage and records
// it in the state.
func (a *CornerActuator) SampleSteeringPot() (float64, error) {
	a.watchdog.Toggle()
	v, err := a.dev.ReadADC(odrive.ADCChannelSteeringPot)
	if err != nil {
		return 0, err
	}
	a.state.PotVolts = v
	return v, nil
}

// CheckSteeringLimits validates a potentiometer reading against the safe
// band. Out of band readings risk mechanical damage and are fatal unless
// limit checking is disabled for bench diagnosis, in which case they only
// log a warning.
func (a *CornerActuator) CheckSteeringLimits(potVolts float64) error {
	if a.disableSteeringLimits {
		log.Infof("%s steering sensor %f", a.corner, potVolts)
	}
	if potVolts < potVoltageLow || potVolts > potVoltageHigh {
		if a.disableSteeringLimits {
			log.Warnf("%s POTENTIOMETER VOLTAGE OUT OF RANGE, DAMAGE MAY OCCUR: %f", a.corner, potVolts)
			return nil
		}
		return a.fatalf("steering limits", "potentiometer voltage out of range: %f", potVolts)
	}
	return nil
}

func (a *CornerActuator) checkSteeringLimitsFresh() error {
	v, err := a.SampleSteeringPot()
	if err != nil {
		return err
	}
	return a.CheckSteeringLimits(v)
}

// InitializeTraction brings the traction axis into closed-loop velocity
// control. Failures surface later through CheckErrors.
func (a *CornerActuator) InitializeTraction() error {
	a.watchdog.Toggle()
	if err := a.dev.WriteFloat(odrive.VelIntegratorCurrent(odrive.TractionAxis), 0); err != nil {
		return err
	}
	if err := a.dev.WriteFloat(odrive.VelIntegratorGain(odrive.TractionAxis), tractionIntegratorGain); err != nil {
		return err
	}
	if err := a.dev.WriteInt(odrive.ControlModeEP(odrive.TractionAxis), int64(odrive.ControlModeVelocity)); err != nil {
		return err
	}
	if err := a.dev.WriteInt(odrive.RequestedState(odrive.TractionAxis), int64(odrive.AxisStateClosedLoopControl)); err != nil {
		return err
	}
	a.state.TractionInitialized = true
	return nil
}

// EnableSteeringControl programs the steering axis from the calibration
// profile and confirms closed-loop control, retrying through transient
// startup errors a bounded number of times.
func (a *CornerActuator) EnableSteeringControl() error {
	const maxAttempts = 4
	steering := odrive.SteeringAxis

	// The retry loop can run for many seconds; keep the heartbeat fed
	// independently of the loop's own pacing.
	guard := a.watchdog.Guard(a.timing.FastPoll)
	defer guard.Stop()

	type write struct {
		endpoint string
		value    float64
	}
	config := []write{
		{odrive.EncoderUseIndex(steering), 0},
		{odrive.MotorDirection(steering), 1},
		{odrive.MotorType(steering), odrive.MotorTypeBrushedVoltage},
		{odrive.MotorCurrentLim(steering), steeringCurrentLimit},
		{odrive.VelGain(steering), a.profile.VelocityGain},
		{odrive.PosGain(steering), a.profile.PositionGain},
		{odrive.EncoderCPR(steering), a.profile.EncoderCPR},
		{odrive.VelRampRate(steering), a.profile.VelocityRampRate},
		{odrive.TrapVelLimit(steering), a.profile.VelocityLimit},
		{odrive.TrapAccelLimit(steering), a.profile.AccelLimit},
		{odrive.TrapDecelLimit(steering), a.profile.DecelLimit},
		{odrive.TrapAPerCSS(steering), 0},
	}
	for _, w := range config {
		if err := a.dev.WriteFloat(w.endpoint, w.value); err != nil {
			return err
		}
	}
	a.watchdog.Toggle()
	if err := a.dev.WriteInt(odrive.RequestedState(steering), int64(odrive.AxisStateEncoderIndexSearch)); err != nil {
		return err
	}

	for attempt := 0; ; attempt++ {
		if err := a.dev.WriteInt(odrive.RequestedState(steering), int64(odrive.AxisStateIdle)); err != nil {
			return err
		}
		a.watchdog.Sleep(a.timing.SlowPoll)
		if err := a.dev.WriteInt(odrive.ControlModeEP(steering), int64(odrive.ControlModePosition)); err != nil {
			return err
		}
		if err := a.dev.WriteInt(odrive.RequestedState(steering), int64(odrive.AxisStateClosedLoopControl)); err != nil {
			return err
		}
		if err := a.dev.WriteInt(odrive.VelRampEnable(steering), 1); err != nil {
			return err
		}
		a.watchdog.Sleep(a.timing.SlowPoll)

		axisErr, err := a.dev.ReadInt(odrive.AxisError(steering))
		if err != nil {
			return err
		}
		if axisErr == 0 {
			return nil
		}
		ready, err := a.dev.ReadInt(odrive.EncoderIsReady(steering))
		if err != nil {
			return err
		}
		if ready == 0 {
			return a.fatalf("enable steering", "encoder is not ready")
		}

		dump, err := odrive.DumpErrors(a.dev, true)
		if err != nil {
			return err
		}
		log.Warnf("%s steering enable attempt %d failed:\n%s", a.corner, attempt+1, dump)
		a.watchdog.Toggle()
		if attempt+1 >= maxAttempts {
			return a.fatalf("enable steering", "axis error persisted: %s", dump)
		}
		a.watchdog.Sleep(a.timing.EnableRetryPause)
	}
}

// CheckErrors reads the sticky error registers of each enabled axis.
// A non-zero register dumps diagnostics, refreshes voltage telemetry and
// returns a fatal controller error naming the axis. The check itself is
// advisory; callers decide whether to abort or retry.
func (a *CornerActuator) CheckErrors() error {
	if a.enableTraction {
		if err := a.checkAxisError(odrive.TractionAxis, "traction"); err != nil {
			return err
		}
	}
	if a.enableSteering {
		if err := a.checkAxisError(odrive.SteeringAxis, "steering"); err != nil {
			return err
		}
	}
	return nil
}

func (a *CornerActuator) checkAxisError(axis int, name string) error {
	value, err := a.dev.ReadInt(odrive.AxisError(axis))
	if err != nil {
		return err
	}
	if value == 0 {
		if axis == odrive.SteeringAxis {
			a.state.SteeringError = 0
		} else {
			a.state.TractionError = 0
		}
		return nil
	}
	a.watchdog.Toggle()
	if dump, dumpErr := odrive.DumpErrors(a.dev, false); dumpErr == nil {
		log.Errorf("%s controller errors:\n%s", a.corner, dump)
	}
	if err := a.UpdateVoltage(); err != nil {
		log.Warnf("%s voltage refresh after error failed: %v", a.corner, err)
	}
	if axis == odrive.SteeringAxis {
		a.state.SteeringError = value
	} else {
		a.state.TractionError = value
	}
	return a.fatalf("check errors", "%s motor error state detected: 0x%x", name, value)
}

// RecoverFromEstop restores both axes after an external emergency stop
// clears.
func (a *CornerActuator) RecoverFromEstop() error {
	a.watchdog.Toggle()
	if err := a.dev.WriteInt(odrive.ControlModeEP(odrive.SteeringAxis), int64(odrive.ControlModePosition)); err != nil {
		return err
	}
	if err := a.dev.WriteInt(odrive.RequestedState(odrive.SteeringAxis), int64(odrive.AxisStateClosedLoopControl)); err != nil {
		return err
	}
	return a.InitializeTraction()
}

// Stop zeroes both velocity setpoints immediately.
func (a *CornerActuator) Stop() error {
	a.watchdog.Toggle()
	if err := a.dev.WriteFloat(odrive.VelSetpoint(odrive.SteeringAxis), 0); err != nil {
		return err
	}
	return a.dev.WriteFloat(odrive.VelSetpoint(odrive.TractionAxis), 0)
}

// Slow scales the current command toward zero, clamping tiny residues.
// A no-op until both axes are initialized.
func (a *CornerActuator) Slow(fraction float64) error {
	a.watchdog.Toggle()
	if !a.state.SteeringInitialized || !a.state.TractionInitialized {
		return nil
	}
	position := fraction * a.state.CommandedPositionDeg
	velocity := fraction * a.state.CommandedVelocity
	if a.state.SteeringFlipped {
		velocity = -velocity
	}
	if math.Abs(a.state.CommandedPositionDeg) < commandValueMinimum {
		position = 0
	}
	if math.Abs(a.state.CommandedVelocity) < commandValueMinimum {
		velocity = 0
	}
	return a.Update(position, velocity)
}

// IdleWait blocks until the traction axis reports idle, feeding the
// watchdog throughout.
func (a *CornerActuator) IdleWait() error {
	for {
		state, err := a.dev.ReadInt(odrive.CurrentState(odrive.TractionAxis))
		if err != nil {
			return err
		}
		if odrive.AxisState(state) == odrive.AxisStateIdle {
			return nil
		}
		a.watchdog.Sleep(10 * a.timing.FastPoll)
	}
}
