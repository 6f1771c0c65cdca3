/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/uptimeproof/poa/poa"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "poa-verify",
	Short: "Verify the published proof-of-availability against local evidence exports",

	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(runVerify())
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		fmt.Sprintf("config file (default is %s)", poa.DefaultCfgFile))
	rootCmd.PersistentFlags().BoolVarP(&poa.Globals.Debug, "debug", "d", false, "debug output")
	rootCmd.PersistentFlags().BoolVarP(&poa.Globals.Verbose, "verbose", "v", false, "verbose output")
}

func initConfig() {
	poa.SetupCliLogging()
}

// parseConfig loads the full config stack (defaults, config file,
// poa.env, environment) into a fresh Config.
func parseConfig() (*poa.Config, error) {
	conf := &poa.Config{}
	conf.Internal.CfgFile = cfgFile

	if err := poa.ParseConfig(conf, false); err != nil {
		return nil, err
	}
	return conf, nil
}

// runVerify performs one verification and prints the report. The
// return value is the process exit code: 0 for OK, 1 for WARN, 2 for
// FAIL or when no verdict could be reached at all.
func runVerify() int {
	conf, err := parseConfig()
	if err != nil {
		fmt.Print(poa.RenderFailure(err))
		return 2
	}

	resolver, err := poa.NewLiveResolver(&conf.Dns)
	if err != nil {
		fmt.Print(poa.RenderFailure(err))
		return 2
	}

	res, err := poa.NewVerifier(&conf.Verify, resolver).Run()
	if err != nil {
		fmt.Print(poa.RenderFailure(err))
		return 2
	}

	fmt.Print(poa.RenderReport(res))
	return res.Verdict.ExitCode()
}
