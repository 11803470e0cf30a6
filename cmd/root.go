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
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/penny-vault/import-dhan/dhan"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "import-dhan",
	Short: "Download 1-minute candles from Dhan",
	Long: `Download historical 1-minute candles from Dhan's v2 API for NIFTY and
SENSEX spot, their rolling option chains, and the NIFTY 100 equities, and
save them as parquet files that later runs extend incrementally.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if err := dhan.RunSpot(ctx, client); err != nil {
			return err
		}
		if err := dhan.RunOptions(ctx, client); err != nil {
			return err
		}
		return dhan.RunStocks(ctx, client)
	},
}

// newClient builds the shared Dhan client from configuration. The access
// token must be present before any phase starts.
func newClient() (*dhan.Client, error) {
	token := viper.GetString("dhan_access_token")
	if token == "" {
		return nil, dhan.ErrMissingToken
	}
	return dhan.NewClient(
		viper.GetString("base_url"),
		viper.GetString("instrument_url"),
		token,
		viper.GetInt("rate_limit"),
	), nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err == nil {
		return
	}
	if errors.Is(err, context.Canceled) {
		os.Exit(130)
	}
	os.Exit(1)
}

func init() {
	cobra.OnInitialize(initConfig)
	cobra.OnInitialize(initLog)

	// Persistent flags are global to all subcommands.
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is import-dhan.toml)")
	rootCmd.PersistentFlags().Bool("log.json", false, "print logs as json to stderr")
	viper.BindPFlag("log.json", rootCmd.PersistentFlags().Lookup("log.json"))

	rootCmd.PersistentFlags().StringP("data-dir", "d", "data", "directory the parquet files are written to")
	viper.BindPFlag("data_dir", rootCmd.PersistentFlags().Lookup("data-dir"))

	rootCmd.PersistentFlags().String("database-url", "", "DSN for mirroring candles to a database")
	viper.BindPFlag("database.url", rootCmd.PersistentFlags().Lookup("database-url"))

	rootCmd.PersistentFlags().Int("rate-limit", 2, "dhan rate limit (calls per second)")
	viper.BindPFlag("rate_limit", rootCmd.PersistentFlags().Lookup("rate-limit"))

	rootCmd.PersistentFlags().Uint32P("limit", "l", 0, "limit stock downloads to N symbols")
	viper.BindPFlag("limit", rootCmd.PersistentFlags().Lookup("limit"))
}

func initLog() {
	if !viper.GetBool("log.json") {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".import-dhan" (without extension).
		viper.AddConfigPath("/etc/import-dhan/")
		viper.AddConfigPath(fmt.Sprintf("%s/.import-dhan", home))
		viper.AddConfigPath(".")
		viper.SetConfigType("toml")
		viper.SetConfigName("import-dhan")
	}

	setDefaults()
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		log.Debug().Str("ConfigFile", viper.ConfigFileUsed()).Msg("Loaded config file")
	} else if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
		log.Error().Err(err).Msg("error reading config file")
	}
}
