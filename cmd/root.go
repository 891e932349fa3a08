/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

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

// Package cmd is the CLI harness from §6: open/submit-response/tick/abort
// drive one Registry, status reads it back, and the process exit code
// reports invalid input (2), a Byzantine-timeout verdict (3), or an
// internal invariant violation (4) per the distilled specification's CLI
// exit codes. Flags and settings-file discovery follow this codebase's
// own cmd/root.go: a persistent --config flag, a settings file found via
// go-homedir when it is not given, and viper bindings for everything else.
package cmd

import (
	"fmt"
	"os"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "accountability",
	Short: "GRANDPA accountable safety CLI",
	Long:  "Drives the session registry: open a conflict, submit query responses, tick deadlines, abort, and inspect session state.",
}

// Execute adds all child commands to the root command and sets flags
// appropriately. It is called once by main.main(), and translates any
// returned error into the §6 exit code via exitCodeFor.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(exitCodeFor(err))
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to settings.yaml file (default is $HOME/settings.yaml)")
	rootCmd.PersistentFlags().StringP("data-dir", "d", viper.GetString("storage.dir"), "Directory holding the session store and committee file")
	rootCmd.PersistentFlags().Int64P("response-deadline", "r", viper.GetInt64("chain.responseDeadlineSeconds"), "Seconds a dispatched query waits before its addressees are marked Byzantine")

	if err := viper.BindPFlag("storage.dir", rootCmd.PersistentFlags().Lookup("data-dir")); err != nil {
		println(err.Error())
	}
	if err := viper.BindEnv("storage.dir", "ACCOUNTABILITY_DATA_DIR"); err != nil {
		println(err.Error())
	}
	if err := viper.BindPFlag("chain.responseDeadlineSeconds", rootCmd.PersistentFlags().Lookup("response-deadline")); err != nil {
		println(err.Error())
	}

	viper.SetDefault("chain.responseDeadlineSeconds", 30)
	viper.SetDefault("chain.genesisBlock", 0)
	viper.SetDefault("rpc.host", "127.0.0.1")
	viper.SetDefault("rpc.port", "8645")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	envCfg, envFound := os.LookupEnv("ACCOUNTABILITY_SETTINGS")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envFound {
		viper.SetConfigFile(envCfg)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(exitInvariantViolation)
		}

		viper.AddConfigPath(home)
		viper.SetConfigName("settings")
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}
