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

package cmd

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.bug.st/serial"

	"github.com/twistedfields/rover/odrive"
)

var (
	bringupDeviceFlag   string
	bringupCountFlag    int
	bringupIntervalFlag time.Duration
)

func init() {
	RootCmd.AddCommand(bringupCmd)
	bringupCmd.Flags().StringVarP(&bringupDeviceFlag, "device", "d", "", "serial device to probe, e.g. /dev/ttySC0; empty probes every port")
	bringupCmd.Flags().IntVarP(&bringupCountFlag, "count", "c", 10, "number of voltage reads per device, 0 means forever")
	bringupCmd.Flags().DurationVarP(&bringupIntervalFlag, "interval", "i", time.Second, "delay between reads")
}

// bringupRun polls bus voltage over a freshly opened link. A stable
// reading in the pack's band is the first sign of life from a newly
// cabled controller.
func bringupRun(path string, count int, interval time.Duration) error {
	dev, err := odrive.Open(path)
	if err != nil {
		return err
	}
	defer dev.Close()

	for i := 0; count == 0 || i < count; i++ {
		v, err := dev.ReadFloat(odrive.VbusVoltage)
		if err != nil {
			return fmt.Errorf("probing %s: %w", path, err)
		}
		fmt.Printf("%s vbus %.2fV\n", path, v)
		time.Sleep(interval)
	}
	return nil
}

func bringupScan(count int, interval time.Duration) error {
	ports, err := serial.GetPortsList()
	if err != nil {
		return fmt.Errorf("listing serial ports: %w", err)
	}
	if len(ports) == 0 {
		return fmt.Errorf("no serial ports found")
	}
	for _, port := range ports {
		if err := bringupRun(port, count, interval); err != nil {
			log.Warnf("%s: %v", port, err)
		}
	}
	return nil
}

var bringupCmd = &cobra.Command{
	Use:   "bringup",
	Short: "Probe controller serial links by polling bus voltage",
	Run: func(_ *cobra.Command, _ []string) {
		ConfigureVerbosity()
		var err error
		if bringupDeviceFlag != "" {
			err = bringupRun(bringupDeviceFlag, bringupCountFlag, bringupIntervalFlag)
		} else {
			err = bringupScan(bringupCountFlag, bringupIntervalFlag)
		}
		if err != nil {
			log.Fatal(err)
		}
	},
}
