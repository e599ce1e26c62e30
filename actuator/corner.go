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

import "fmt"

// Corner identifies one of the four vehicle corners.
type Corner int

const (
	FrontLeft Corner = iota
	FrontRight
	RearLeft
	RearRight
)

var cornerToString = map[Corner]string{
	FrontLeft:  "front_left",
	FrontRight: "front_right",
	RearLeft:   "rear_left",
	RearRight:  "rear_right",
}

func (c Corner) String() string {
	s, found := cornerToString[c]
	if !found {
		return "UNSUPPORTED VALUE"
	}
	return s
}

// ParseCorner maps a config name to a Corner.
func ParseCorner(s string) (Corner, error) {
	for c, name := range cornerToString {
		if name == s {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown corner %q", s)
}

// CalibrationProfile is the per-corner constant set applied to the
// steering axis. Profiles are immutable after load; all corner-specific
// arithmetic goes through the profile instead of branching on the corner
// name inline.
type CalibrationProfile struct {
	CountsPerRev     float64
	VelocityGain     float64
	PositionGain     float64
	EncoderCPR       float64
	VelocityRampRate float64
	VelocityLimit    float64
	AccelLimit       float64
	DecelLimit       float64
	SteeringSign     float64
}

const countsPerRevolution = 9797.0

// The rear left corner runs the newer steering gearbox: a 520 count
// encoder where the others have 2000, and a mechanically inverted sense.
var profiles = map[Corner]CalibrationProfile{
	FrontLeft:  standardSteeringProfile,
	FrontRight: standardSteeringProfile,
	RearRight:  standardSteeringProfile,
	RearLeft: {
		CountsPerRev:     countsPerRevolution * 520.0 / 2000.0,
		VelocityGain:     0.020,
		PositionGain:     -40,
		EncoderCPR:       520,
		VelocityRampRate: 80,
		VelocityLimit:    32000,
		AccelLimit:       12000,
		DecelLimit:       12000,
		SteeringSign:     -1,
	},
}

var standardSteeringProfile = CalibrationProfile{
	CountsPerRev:     countsPerRevolution,
	VelocityGain:     0.005,
	PositionGain:     -10,
	EncoderCPR:       2000,
	VelocityRampRate: 80,
	VelocityLimit:    16000,
	AccelLimit:       6000,
	DecelLimit:       6000,
	SteeringSign:     1,
}

// ProfileFor returns the calibration profile for a corner.
func ProfileFor(c Corner) CalibrationProfile {
	return profiles[c]
}

// OffsetCounts converts a steering offset in degrees to encoder counts,
// honoring the corner's gear ratio and sign convention.
func (p CalibrationProfile) OffsetCounts(degrees float64) float64 {
	return degrees * p.CountsPerRev / 360.0 * p.SteeringSign
}
