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
	"bufio"
	"fmt"
	"strings"
	"time"

	"go.bug.st/serial"
)

const (
	serialBaudRate    = 115200
	serialReadTimeout = 100 * time.Millisecond
)

type serialConn struct {
	port   serial.Port
	reader *bufio.Reader
}

// Open connects to a controller on a serial device such as /dev/ttySC0
// and returns a Device ready for use. Stale input is flushed so the first
// reply read corresponds to the first request sent.
func Open(path string) (*Device, error) {
	mode := &serial.Mode{
		BaudRate: serialBaudRate,
	}
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	if err := port.SetReadTimeout(serialReadTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("setting read timeout on %s: %w", path, err)
	}
	if err := port.ResetInputBuffer(); err != nil {
		port.Close()
		return nil, fmt.Errorf("flushing %s: %w", path, err)
	}
	if err := port.ResetOutputBuffer(); err != nil {
		port.Close()
		return nil, fmt.Errorf("flushing %s: %w", path, err)
	}
	return NewDevice(&serialConn{
		port:   port,
		reader: bufio.NewReader(port),
	}), nil
}

func (c *serialConn) WriteLine(line string) error {
	_, err := c.port.Write([]byte(line + "\n"))
	return err
}

func (c *serialConn) ReadLine() (string, error) {
	line, err := c.reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (c *serialConn) Close() error {
	return c.port.Close()
}
