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
	"math/rand"
	"strconv"
	"strings"
)

// Analog input channels wired on the corner controller board.
const (
	ADCChannelThermistor   = 3
	ADCChannelSteeringPot  = 5
	ADCChannelSteeringHome = 6
)

// Sim is an in-memory controller producing the same data shapes as real
// hardware with all blocking and physical behavior elided: trajectory
// moves land instantly and replies are available as soon as a request is
// parsed. It implements Conn, so the framing and FIFO reply ordering of
// Device run unchanged against it. Not safe for concurrent use.
type Sim struct {
	registers map[string]float64
	replies   []string
	history   []string

	potVolts   float64
	thermVolts float64

	homeCenter    float64
	homeHalfWidth float64
	hasHomeWindow bool

	broken bool
}

// NewSim creates a simulator with encoders ready, all sticky errors clear
// and the steering potentiometer resting at mid range.
func NewSim() *Sim {
	s := &Sim{
		registers:  make(map[string]float64),
		potVolts:   1.65,
		thermVolts: 1.65,
	}
	s.registers[EncoderIsReady(SteeringAxis)] = 1
	s.registers[EncoderIsReady(TractionAxis)] = 1
	return s
}

// NewSimDevice wraps a fresh simulator in a Device with operation spacing
// disabled.
func NewSimDevice() (*Device, *Sim) {
	sim := NewSim()
	d := NewDevice(sim)
	d.OpGap = 0
	return d, sim
}

// SetRegister presets a register value, for tests and fault setups.
func (s *Sim) SetRegister(endpoint string, value float64) {
	s.registers[endpoint] = value
}

// Register reads back a register value written by the device under test.
func (s *Sim) Register(endpoint string) float64 {
	return s.registers[endpoint]
}

// SetPotVolts sets the steering potentiometer reading.
func (s *Sim) SetPotVolts(v float64) {
	s.potVolts = v
}

// SetThermistorVolts sets the thermistor ADC reading.
func (s *Sim) SetThermistorVolts(v float64) {
	s.thermVolts = v
}

// SetHomeWindow makes the home sensor read true whenever the steering
// encoder position is within halfWidth counts of center.
func (s *Sim) SetHomeWindow(center, halfWidth float64) {
	s.homeCenter = center
	s.homeHalfWidth = halfWidth
	s.hasHomeWindow = true
}

// Break makes every subsequent transport call fail, mimicking a dropped
// USB link.
func (s *Sim) Break() {
	s.broken = true
}

// History returns every line received so far, in order.
func (s *Sim) History() []string {
	return s.history
}

// WriteLine parses one request line and queues its reply, if any.
func (s *Sim) WriteLine(line string) error {
	if s.broken {
		return fmt.Errorf("sim: link down")
	}
	s.history = append(s.history, line)

	fields := strings.Fields(line)
	if len(fields) == 0 {
		return fmt.Errorf("sim: empty request")
	}
	switch fields[0] {
	case "r":
		if len(fields) != 2 {
			return fmt.Errorf("sim: bad read %q", line)
		}
		s.reply(s.readRegister(fields[1]))
	case "w":
		if len(fields) != 3 {
			return fmt.Errorf("sim: bad write %q", line)
		}
		v, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return fmt.Errorf("sim: bad write value %q", line)
		}
		s.registers[fields[1]] = v
	case "t":
		if len(fields) != 3 {
			return fmt.Errorf("sim: bad move %q", line)
		}
		axis, err := strconv.Atoi(fields[1])
		if err != nil {
			return fmt.Errorf("sim: bad move axis %q", line)
		}
		pos, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return fmt.Errorf("sim: bad move target %q", line)
		}
		// Instant move: the trajectory is elided.
		s.registers[PosSetpoint(axis)] = pos
		s.registers[EncoderPosEstimate(axis)] = pos
	case "a":
		if len(fields) != 2 {
			return fmt.Errorf("sim: bad adc read %q", line)
		}
		ch, err := strconv.Atoi(fields[1])
		if err != nil {
			return fmt.Errorf("sim: bad adc channel %q", line)
		}
		s.reply(s.readADC(ch))
	default:
		return fmt.Errorf("sim: unknown request %q", line)
	}
	return nil
}

// ReadLine pops the oldest queued reply. Reading with nothing pending is
// a correlation bug in the caller and fails loudly.
func (s *Sim) ReadLine() (string, error) {
	if s.broken {
		return "", fmt.Errorf("sim: link down")
	}
	if len(s.replies) == 0 {
		return "", fmt.Errorf("sim: read with no pending reply")
	}
	line := s.replies[0]
	s.replies = s.replies[1:]
	return line, nil
}

// Close implements Conn.
func (s *Sim) Close() error {
	return nil
}

func (s *Sim) reply(v float64) {
	s.replies = append(s.replies, strconv.FormatFloat(v, 'f', -1, 64))
}

func (s *Sim) readRegister(endpoint string) float64 {
	if endpoint == VbusVoltage {
		// Realistic band for a nominally 48V pack.
		return 45.5 + rand.Float64()*2.0
	}
	return s.registers[endpoint]
}

func (s *Sim) readADC(channel int) float64 {
	switch channel {
	case ADCChannelSteeringPot:
		return s.potVolts
	case ADCChannelThermistor:
		return s.thermVolts
	case ADCChannelSteeringHome:
		pos := s.registers[EncoderPosEstimate(SteeringAxis)]
		if s.hasHomeWindow && pos >= s.homeCenter-s.homeHalfWidth && pos <= s.homeCenter+s.homeHalfWidth {
			return 0.3
		}
		return 3.0
	}
	return 0
}
