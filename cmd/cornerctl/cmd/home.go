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
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	homeSkipFlag          bool
	homeDisableLimitsFlag bool
)

func init() {
	RootCmd.AddCommand(homeCmd)
	homeCmd.Flags().StringVarP(&rootConfigFlag, "config", "f", "fleet.yaml", rootConfigFlagDesc)
	homeCmd.Flags().BoolVar(&rootSimFlag, "sim", false, "run against simulated controllers")
	homeCmd.Flags().BoolVar(&homeSkipFlag, "skip-homing", false, "accept the current steering position as home")
	homeCmd.Flags().BoolVar(&homeDisableLimitsFlag, "disable-limits", false, "do not trip on out of range steering pot readings")
}

func homeRun(configPath string, names []string) error {
	names, defs, err := selectCorners(configPath, names)
	if err != nil {
		return err
	}
	wd, err := newWatchdog(rootSimFlag)
	if err != nil {
		return err
	}

	for _, name := range names {
		a, err := buildCorner(name, defs[name], wd, rootSimFlag, homeDisableLimitsFlag)
		if err != nil {
			return err
		}
		err = initCorner(a, defs[name], homeSkipFlag)
		a.Close()
		if err != nil {
			return err
		}
		log.Infof("%s: homed", name)
	}
	return nil
}

var homeCmd = &cobra.Command{
	Use:   "home [corner]...",
	Short: "Home steering and enable both axes of each corner",
	Run: func(_ *cobra.Command, args []string) {
		ConfigureVerbosity()
		if err := homeRun(rootConfigFlag, args); err != nil {
			log.Fatal(err)
		}
	},
}
