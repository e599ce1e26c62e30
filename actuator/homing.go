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
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/twistedfields/rover/odrive"
)

// HomingParams tunes the oscillating home search. The retry geometry is
// deliberate: 80 degree repositioning steps do not evenly divide 360, so
// successive bias points never land on the same blind spot twice.
type HomingParams struct {
	// DisplacementDeg is the half amplitude of the oscillating sweep.
	DisplacementDeg float64
	// RetryOffsetDeg is how far the search bias moves after a position
	// is exhausted.
	RetryOffsetDeg float64
	// MaxAttempts is how many sweep reversals to try per bias position.
	MaxAttempts int
	// MaxTransitions is how many sensor transition positions to collect
	// before accepting their mean as home.
	MaxTransitions int
}

// DefaultHomingParams returns the tuned production values.
func DefaultHomingParams() HomingParams {
	return HomingParams{
		DisplacementDeg: 50.0,
		RetryOffsetDeg:  80.0,
		MaxAttempts:     4,
		MaxTransitions:  5,
	}
}

// SetHomingParams overrides the homing search tuning.
func (a *CornerActuator) SetHomingParams(p HomingParams) {
	a.homing = p
}

type homingState int

const (
	homingIdle homingState = iota
	homingSweeping
	homingHomeFound
	homingPositionFailed
	homingExhausted
)

// homingSession is the transient state of one home search. It exists only
// for the duration of InitializeSteering.
type homingSession struct {
	state          homingState
	sweepDeg       float64
	lastTick       time.Time
	transitions    []float64
	attempts       int
	positionChecks int
	lastSensor     bool
}

// InitializeSteering homes the steering axis and brings it into
// closed-loop position control. With skipHoming the current position is
// accepted as home, for bench setups where the corner is pre-aligned.
func (a *CornerActuator) InitializeSteering(steeringFlipped, skipHoming bool) error {
	a.watchdog.Toggle()
	if err := a.checkSteeringLimitsFresh(); err != nil {
		return err
	}
	if err := a.EnableSteeringControl(); err != nil {
		return err
	}
	a.state.SteeringFlipped = steeringFlipped

	home, err := a.dev.ReadFloat(odrive.EncoderPosEstimate(odrive.SteeringAxis))
	if err != nil {
		return err
	}
	if !skipHoming {
		home, err = a.runHoming(home)
		if err != nil {
			return err
		}
	}
	a.state.HomePositionCounts = home
	if err := a.dev.MoveTo(odrive.SteeringAxis, home); err != nil {
		return err
	}
	a.state.SteeringInitialized = true
	return nil
}

// runHoming oscillates the steering axis around a bias position until the
// home switch trips or enough sensor transitions are collected, walking
// the bias around the revolution when a position turns out to be blind.
func (a *CornerActuator) runHoming(home float64) (float64, error) {
	p := a.homing
	s := &homingSession{
		state:    homingSweeping,
		sweepDeg: p.DisplacementDeg,
	}

	last, err := a.SampleHomeSensor()
	if err != nil {
		return 0, err
	}
	s.lastSensor = last
	pot, err := a.SampleSteeringPot()
	if err != nil {
		return 0, err
	}
	log.Infof("%s rotation sensor voltage: %f", a.corner, pot)
	a.watchdog.Toggle()

	maxPositionChecks := 1 + 360.0/p.RetryOffsetDeg

	for {
		if s.state == homingPositionFailed {
			s.positionChecks++
			if float64(s.positionChecks) > maxPositionChecks {
				s.state = homingExhausted
				return 0, a.fatalf("homing", "exceeded max homing attempts after %d repositions", s.positionChecks-1)
			}
			s.attempts = 0
			s.state = homingSweeping
			pot, err := a.SampleSteeringPot()
			if err != nil {
				return 0, err
			}
			// The pot and home sensor use independent reference frames;
			// this bias is empirically tuned, not derived.
			offset := p.RetryOffsetDeg
			if pot <= voltageMidpoint {
				offset = -offset
			}
			home += a.profile.OffsetCounts(offset)
			log.Infof("%s repositioning home search by %f degrees (check %d)", a.corner, offset, s.positionChecks)
		}

		a.watchdog.Toggle()
		time.Sleep(a.timing.FastPoll)
		a.watchdog.Toggle()

		sensor, err := a.SampleHomeSensor()
		if err != nil {
			return 0, err
		}
		pot, err := a.SampleSteeringPot()
		if err != nil {
			return 0, err
		}
		log.Debugf("%s home: %v, rotation: %f", a.corner, sensor, pot)

		if sensor {
			s.state = homingHomeFound
			return a.dev.ReadFloat(odrive.EncoderPosEstimate(odrive.SteeringAxis))
		}
		if sensor != s.lastSensor {
			pos, err := a.dev.ReadFloat(odrive.EncoderPosEstimate(odrive.SteeringAxis))
			if err != nil {
				return 0, err
			}
			s.transitions = append(s.transitions, pos)
			log.Infof("%s home sensor transitions: %v", a.corner, s.transitions)
		}

		if a.now().Sub(s.lastTick) > a.timing.HomingTick {
			s.lastTick = a.now()
			s.sweepDeg = -s.sweepDeg
			if err := a.dev.MoveTo(odrive.SteeringAxis, home+a.profile.OffsetCounts(s.sweepDeg)); err != nil {
				return 0, err
			}
			s.attempts++
		}

		if len(s.transitions) >= p.MaxTransitions {
			// Chattering or multi-detection contacts: the mean of the
			// recorded transition positions beats any single reading.
			s.state = homingHomeFound
			return meanPosition(s.transitions), nil
		}
		if s.attempts > p.MaxAttempts {
			s.state = homingPositionFailed
		}

		if err := a.CheckErrors(); err != nil {
			return 0, fmt.Errorf("controller error during homing: %w", err)
		}
		if limitErr := a.checkSteeringLimitsFresh(); limitErr != nil {
			// The sweep must never outrun the limit check: stop before
			// the limit error propagates.
			if stopErr := a.Stop(); stopErr != nil {
				log.Errorf("%s stopping after limit trip: %v", a.corner, stopErr)
			}
			return 0, limitErr
		}

		s.lastSensor = sensor
	}
}

func meanPosition(positions []float64) float64 {
	sum := 0.0
	for _, p := range positions {
		sum += p
	}
	return sum / float64(len(positions))
}
