/*
Copyright 2025

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
	"github.com/penny-vault/import-dhan/dhan"
	"github.com/spf13/cobra"
)

var spotCmd = &cobra.Command{
	Use:   "spot",
	Short: "Download spot index candles (NIFTY 50 and SENSEX)",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		return dhan.RunSpot(cmd.Context(), client)
	},
}

func init() {
	rootCmd.AddCommand(spotCmd)
}
