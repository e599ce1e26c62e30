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
	"errors"
	"fmt"
)

// Usage errors for the two-phase telemetry pipeline. Either one means the
// caller broke the 1:1 BeginUpdate/EndUpdate discipline.
var (
	ErrUpdateInFlight   = errors.New("actuator: update already in flight")
	ErrNoUpdateInFlight = errors.New("actuator: no update in flight")
)

// FatalError is a condition the caller must not retry: hardware damage
// risk, persistent controller error, or an exhausted homing search.
// Transient conditions never use this type; they surface as an ok=false
// result instead.
type FatalError struct {
	Corner Corner
	Op     string
	Err    error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Corner, e.Op, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err carries a FatalError anywhere in its chain.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}

func (a *CornerActuator) fatalf(op, format string, args ...any) error {
	return &FatalError{
		Corner: a.corner,
		Op:     op,
		Err:    fmt.Errorf(format, args...),
	}
}
