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
	"os"
	"os/signal"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	steerAngleFlag    float64
	steerVelocityFlag float64
	steerDurationFlag time.Duration
	steerRecoverFlag  bool
)

func init() {
	RootCmd.AddCommand(steerCmd)
	steerCmd.Flags().StringVarP(&rootConfigFlag, "config", "f", "fleet.yaml", rootConfigFlagDesc)
	steerCmd.Flags().BoolVar(&rootSimFlag, "sim", false, "run against simulated controllers")
	steerCmd.Flags().Float64VarP(&steerAngleFlag, "angle", "a", 0, "steering angle in degrees")
	steerCmd.Flags().Float64VarP(&steerVelocityFlag, "velocity", "w", 0, "traction velocity in counts per second")
	steerCmd.Flags().DurationVarP(&steerDurationFlag, "duration", "t", 5*time.Second, "how long to hold the command")
	steerCmd.Flags().BoolVar(&steerRecoverFlag, "recover", false, "re-enter closed loop control first, after an estop")
}

func steerRun(ctx context.Context, configPath, name string) error {
	names, defs, err := selectCorners(configPath, []string{name})
	if err != nil {
		return err
	}
	wd, err := newWatchdog(rootSimFlag)
	if err != nil {
		return err
	}
	a, err := buildCorner(name, defs[names[0]], wd, rootSimFlag, false)
	if err != nil {
		return err
	}
	defer a.Close()

	if steerRecoverFlag {
		if err := a.RecoverFromEstop(); err != nil {
			return err
		}
	}
	if err := initCorner(a, defs[names[0]], true); err != nil {
		return err
	}

	log.Infof("%s: holding %.1f deg at velocity %.1f for %s", name, steerAngleFlag, steerVelocityFlag, steerDurationFlag)
	deadline := time.Now().Add(steerDurationFlag)
	for time.Now().Before(deadline) {
		if err := a.Update(steerAngleFlag, steerVelocityFlag); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			// Ramp down instead of cutting the command dead.
			if err := a.Slow(0.5); err != nil {
				log.Errorf("%s: slowing: %v", name, err)
			}
			return a.Stop()
		case <-time.After(100 * time.Millisecond):
		}
	}
	return a.Stop()
}

var steerCmd = &cobra.Command{
	Use:   "steer <corner>",
	Short: "Hold one corner at a commanded angle and velocity",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		ConfigureVerbosity()
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
		defer cancel()
		if err := steerRun(ctx, rootConfigFlag, args[0]); err != nil {
			log.Fatal(err)
		}
	},
}
