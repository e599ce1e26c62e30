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
	"math"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/twistedfields/rover/odrive"
)

// UpdateFlags select optional telemetry collected by an update cycle.
type UpdateFlags uint8

const (
	// UpdateAmps adds bus current for both axes.
	UpdateAmps UpdateFlags = 1 << iota
	// UpdateVolts adds bus voltage and the steering pot reading.
	UpdateVolts
	// UpdateErrors adds both sticky axis error registers.
	UpdateErrors
)

// BeginUpdate issues one control cycle's writes and telemetry reads
// without waiting for any reply, hiding the link's per-call round trip.
// The results must be collected by exactly one later EndUpdate with the
// same flags. Calling BeginUpdate again before EndUpdate is a usage
// error.
//
// The issue order is a wire contract: the link carries no request
// identifiers, so EndUpdate relies on replies arriving in this exact
// order.
func (a *CornerActuator) BeginUpdate(steeringPosDeg, driveVelocity float64, flags UpdateFlags) error {
	if a.updateInFlight {
		return ErrUpdateInFlight
	}
	a.watchdog.Toggle()
	if a.state.SteeringFlipped {
		driveVelocity = -driveVelocity
	}
	a.state.CommandedPositionDeg = steeringPosDeg
	a.state.CommandedVelocity = driveVelocity
	a.updateInFlight = true
	a.pendingFlags = flags

	if a.simulated {
		return nil
	}

	if a.integratorResetDue() {
		if err := a.dev.WriteFloat(odrive.VelIntegratorCurrent(odrive.TractionAxis), 0); err != nil {
			return a.abortBegin(err)
		}
	}
	if err := a.dev.MoveTo(odrive.SteeringAxis, a.positionCounts(steeringPosDeg)); err != nil {
		return a.abortBegin(err)
	}
	if err := a.dev.WriteFloat(odrive.VelSetpoint(odrive.TractionAxis), driveVelocity); err != nil {
		return a.abortBegin(err)
	}

	requests := []string{
		odrive.EncoderPosEstimate(odrive.SteeringAxis),
		odrive.EncoderVelEstimate(odrive.SteeringAxis),
		odrive.EncoderPosEstimate(odrive.TractionAxis),
		odrive.EncoderVelEstimate(odrive.TractionAxis),
	}
	if flags&UpdateAmps != 0 {
		requests = append(requests,
			odrive.IbusMeasured(odrive.SteeringAxis),
			odrive.IbusMeasured(odrive.TractionAxis))
	}
	for i, ep := range requests {
		if i == 2 {
			a.watchdog.Toggle()
		}
		p, err := a.dev.Request(ep)
		if err != nil {
			return a.abortBegin(err)
		}
		a.pending = append(a.pending, p)
	}
	if flags&UpdateVolts != 0 {
		p, err := a.dev.RequestADC(odrive.ADCChannelSteeringPot)
		if err != nil {
			return a.abortBegin(err)
		}
		a.pending = append(a.pending, p)
		p, err = a.dev.Request(odrive.VbusVoltage)
		if err != nil {
			return a.abortBegin(err)
		}
		a.pending = append(a.pending, p)
	}
	if flags&UpdateErrors != 0 {
		for _, axis := range []int{odrive.SteeringAxis, odrive.TractionAxis} {
			p, err := a.dev.Request(odrive.AxisError(axis))
			if err != nil {
				return a.abortBegin(err)
			}
			a.pending = append(a.pending, p)
		}
	}
	a.watchdog.Toggle()
	return nil
}

func (a *CornerActuator) abortBegin(err error) error {
	a.pending = nil
	a.updateInFlight = false
	return err
}

// EndUpdate collects the replies issued by the previous BeginUpdate, in
// issue order, and commits them to the state. A broken channel clears the
// batch and returns ok=false with the state untouched; the caller treats
// telemetry as stale and retries next cycle. Calling EndUpdate without a
// matching BeginUpdate, or with different flags, is a usage error.
func (a *CornerActuator) EndUpdate(flags UpdateFlags) (bool, error) {
	if !a.updateInFlight {
		return false, ErrNoUpdateInFlight
	}
	if flags != a.pendingFlags {
		a.pending = nil
		a.updateInFlight = false
		return false, fmt.Errorf("actuator: EndUpdate flags %#x do not match BeginUpdate flags %#x", flags, a.pendingFlags)
	}
	a.updateInFlight = false

	if a.simulated {
		if err := a.UpdateVoltage(); err != nil {
			return false, err
		}
		return true, nil
	}

	a.watchdog.Toggle()
	batch := a.pending
	a.pending = nil

	values := make([]float64, len(batch))
	for i, p := range batch {
		v, err := a.dev.Retrieve(p)
		if err != nil {
			log.Warnf("%s telemetry retrieval failed, state left stale: %v", a.corner, err)
			return false, nil
		}
		values[i] = v
	}

	// All replies arrived; commit in one shot so a failure above never
	// leaves the state partially overwritten.
	copy(a.state.EncoderEstimates[:], values[:4])
	next := values[4:]
	if flags&UpdateAmps != 0 {
		a.state.PhaseCurrents = [2]float64{next[0], next[1]}
		next = next[2:]
	}
	var limitErr error
	if flags&UpdateVolts != 0 {
		a.state.PotVolts = next[0]
		limitErr = a.CheckSteeringLimits(next[0])
		a.state.BusVoltage = next[1]
		next = next[2:]
	}
	if flags&UpdateErrors != 0 {
		a.state.SteeringError = int64(next[0])
		a.state.TractionError = int64(next[1])
	}
	a.watchdog.Toggle()
	if limitErr != nil {
		return true, limitErr
	}
	return true, nil
}

// Update is the synchronous, non-pipelined control cycle: issue the
// writes and immediately read telemetry back. Used when latency hiding
// is unnecessary.
func (a *CornerActuator) Update(steeringPosDeg, driveVelocity float64) error {
	a.watchdog.Toggle()
	if a.state.SteeringFlipped {
		driveVelocity = -driveVelocity
	}
	a.state.CommandedPositionDeg = steeringPosDeg
	a.state.CommandedVelocity = driveVelocity

	if err := a.UpdateEncoderData(); err != nil {
		return err
	}
	if err := a.dev.MoveTo(odrive.SteeringAxis, a.positionCounts(steeringPosDeg)); err != nil {
		return err
	}
	a.watchdog.Toggle()
	if a.integratorResetDue() {
		if err := a.dev.WriteFloat(odrive.VelIntegratorCurrent(odrive.TractionAxis), 0); err != nil {
			return err
		}
	}
	return a.dev.WriteFloat(odrive.VelSetpoint(odrive.TractionAxis), driveVelocity)
}

// integratorResetDue tracks how long the traction command has been near
// zero and reports, exactly once per stationary period, that the velocity
// integrator should be cleared. Clearing it avoids integrator windup
// while the vehicle sits still.
func (a *CornerActuator) integratorResetDue() bool {
	if math.Abs(a.state.CommandedVelocity) > zeroVelCountsThreshold {
		a.state.ZeroVelocitySince = time.Time{}
		a.integratorCleared = false
		return false
	}
	if a.state.ZeroVelocitySince.IsZero() {
		a.state.ZeroVelocitySince = a.now()
		return false
	}
	if a.integratorCleared {
		return false
	}
	if a.now().Sub(a.state.ZeroVelocitySince) > a.timing.ZeroVelHold {
		a.integratorCleared = true
		return true
	}
	return false
}
