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

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/twistedfields/rover/odrive"
)

var errorsClearFlag bool

func init() {
	RootCmd.AddCommand(errorsCmd)
	errorsCmd.Flags().StringVarP(&rootConfigFlag, "config", "f", "fleet.yaml", rootConfigFlagDesc)
	errorsCmd.Flags().BoolVarP(&errorsClearFlag, "clear", "c", false, "clear sticky errors after dumping them")
}

func errorsRun(configPath string, names []string, clear bool) error {
	names, defs, err := selectCorners(configPath, names)
	if err != nil {
		return err
	}
	for _, name := range names {
		dev, err := odrive.Open(defs[name].Path)
		if err != nil {
			return fmt.Errorf("opening %s: %w", name, err)
		}
		dump, err := odrive.DumpErrors(dev, clear)
		dev.Close()
		if err != nil {
			return fmt.Errorf("dumping %s: %w", name, err)
		}
		fmt.Printf("%s:\n%s", name, dump)
	}
	return nil
}

var errorsCmd = &cobra.Command{
	Use:   "errors [corner]...",
	Short: "Dump and optionally clear sticky axis errors",
	Run: func(_ *cobra.Command, args []string) {
		ConfigureVerbosity()
		if err := errorsRun(rootConfigFlag, args, errorsClearFlag); err != nil {
			log.Fatal(err)
		}
	},
}
