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
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/twistedfields/rover/actuator"
)

var (
	monitorIntervalFlag time.Duration
	monitorCountFlag    int
	monitorMetricsFlag  string
	monitorSkipFlag     bool
)

func init() {
	RootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().StringVarP(&rootConfigFlag, "config", "f", "fleet.yaml", rootConfigFlagDesc)
	monitorCmd.Flags().BoolVar(&rootSimFlag, "sim", false, "run against simulated controllers")
	monitorCmd.Flags().DurationVarP(&monitorIntervalFlag, "interval", "i", time.Second, "telemetry cycle period")
	monitorCmd.Flags().IntVarP(&monitorCountFlag, "count", "c", 0, "number of cycles, 0 means until interrupted")
	monitorCmd.Flags().StringVarP(&monitorMetricsFlag, "metrics", "m", "", "listen address for prometheus metrics, disabled if empty")
	monitorCmd.Flags().BoolVar(&monitorSkipFlag, "skip-homing", true, "accept current steering positions instead of homing")
}

const monitorFlags = actuator.UpdateAmps | actuator.UpdateVolts | actuator.UpdateErrors

// monitorCycle runs one pipelined telemetry pass over every corner.
// All issue phases run before any collect phase so each link's round
// trip overlaps the others.
func monitorCycle(corners []*actuator.CornerActuator) error {
	eg := errgroup.Group{}
	for _, a := range corners {
		a := a
		eg.Go(func() error {
			return a.BeginUpdate(0, 0, monitorFlags)
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}
	for _, a := range corners {
		a := a
		eg.Go(func() error {
			fresh, err := a.EndUpdate(monitorFlags)
			if err != nil {
				return err
			}
			if !fresh {
				log.Warnf("%s: stale telemetry this cycle", a.Corner())
			}
			return a.UpdateThermistorTemperature()
		})
	}
	return eg.Wait()
}

func printStatus(corners []*actuator.CornerActuator) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"corner", "vbus", "amps s/t", "pot", "temp", "errors s/t", "homed"})
	for _, a := range corners {
		s := a.State()
		temp := "-"
		if s.HasTemperature {
			temp = fmt.Sprintf("%.1fC", s.TemperatureC)
		}
		table.Append([]string{
			a.Corner().String(),
			fmt.Sprintf("%.2fV", s.BusVoltage),
			fmt.Sprintf("%.1f/%.1fA", s.PhaseCurrents[0], s.PhaseCurrents[1]),
			fmt.Sprintf("%.2fV", s.PotVolts),
			temp,
			fmt.Sprintf("0x%x/0x%x", s.SteeringError, s.TractionError),
			fmt.Sprintf("%v", s.SteeringInitialized),
		})
	}
	table.Render()
}

func serveMetrics(addr string, reg *prometheus.Registry) {
	http.Handle("/metrics", promhttp.HandlerFor(
		reg,
		promhttp.HandlerOpts{},
	))
	go func() {
		log.Fatal(http.ListenAndServe(addr, nil))
	}()
}

func monitorRun(ctx context.Context, configPath string, names []string) error {
	names, defs, err := selectCorners(configPath, names)
	if err != nil {
		return err
	}
	wd, err := newWatchdog(rootSimFlag)
	if err != nil {
		return err
	}

	var corners []*actuator.CornerActuator
	defer func() {
		for _, a := range corners {
			a.Close()
		}
	}()
	for _, name := range names {
		a, err := buildCorner(name, defs[name], wd, rootSimFlag, false)
		if err != nil {
			return err
		}
		corners = append(corners, a)
		if err := initCorner(a, defs[name], monitorSkipFlag); err != nil {
			return err
		}
	}

	var stats *actuator.Stats
	if monitorMetricsFlag != "" {
		reg := prometheus.NewRegistry()
		stats = actuator.NewStats(reg)
		serveMetrics(monitorMetricsFlag, reg)
	}

	ticker := time.NewTicker(monitorIntervalFlag)
	defer ticker.Stop()
	for cycle := 0; monitorCountFlag == 0 || cycle < monitorCountFlag; cycle++ {
		if err := monitorCycle(corners); err != nil {
			return err
		}
		if stats != nil {
			for _, a := range corners {
				stats.Observe(a)
			}
		}
		printStatus(corners)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
	return nil
}

var monitorCmd = &cobra.Command{
	Use:   "monitor [corner]...",
	Short: "Continuously collect and display corner telemetry",
	Run: func(_ *cobra.Command, args []string) {
		ConfigureVerbosity()
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
		defer cancel()
		if err := monitorRun(ctx, rootConfigFlag, args); err != nil {
			log.Fatal(err)
		}
	},
}
