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
Package estop feeds the hardware emergency stop circuit. The circuit cuts
motor power unless its watchdog input keeps changing level, so every code
path that can hold the control thread for longer than the trip timeout
must either call Toggle frequently or hold a Guard for the duration.
*/
package estop

import (
	"sync"
	"time"
)

// Pin is the GPIO output wired to the estop watchdog input.
const Pin = 6

// sleepSlice is how often a toggling sleep wakes up to feed the watchdog.
const sleepSlice = 10 * time.Millisecond

// GPIO drives one digital output. Implementations must tolerate being
// called from the Guard goroutine concurrently with the control thread.
type GPIO interface {
	Output(pin int, high bool)
}

// Watchdog tracks the current level of the estop pin and flips it on
// demand.
type Watchdog struct {
	gpio GPIO
	pin  int

	mu    sync.Mutex
	state bool
}

// NewWatchdog creates a watchdog driving the default estop pin.
func NewWatchdog(gpio GPIO) *Watchdog {
	return &Watchdog{gpio: gpio, pin: Pin}
}

// Toggle flips the watchdog output once.
func (w *Watchdog) Toggle() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state = !w.state
	w.gpio.Output(w.pin, w.state)
}

// State reports the current pin level.
func (w *Watchdog) State() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Sleep pauses for the given duration while keeping the watchdog fed.
func (w *Watchdog) Sleep(d time.Duration) {
	start := time.Now()
	for time.Since(start) < d {
		w.Toggle()
		remaining := d - time.Since(start)
		if remaining > sleepSlice {
			remaining = sleepSlice
		}
		if remaining > 0 {
			time.Sleep(remaining)
		}
	}
	w.Toggle()
}

// Guard keeps the watchdog fed on a fixed interval while a bounded
// operation runs, so the operation's own code does not have to interleave
// Toggle calls. Stop must be called when the operation finishes.
type Guard struct {
	stop chan struct{}
	done chan struct{}
}

// Guard starts a heartbeat pinging every interval until Stop is called.
func (w *Watchdog) Guard(interval time.Duration) *Guard {
	g := &Guard{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go func() {
		defer close(g.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-g.stop:
				return
			case <-ticker.C:
				w.Toggle()
			}
		}
	}()
	return g
}

// Stop ends the heartbeat and waits for its goroutine to exit.
func (g *Guard) Stop() {
	close(g.stop)
	<-g.done
}
