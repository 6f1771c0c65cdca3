/*
 * Copyright (c) Johan Stenstam, johani@johani.org
 */
package cmd

import (
	"fmt"
	"os"

	"github.com/gookit/goutil/dump"
	"github.com/spf13/cobra"

	"github.com/uptimeproof/poa/poa"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Prefix command, not useable by itself",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective verify config after all overrides have been applied",
	Run: func(cmd *cobra.Command, args []string) {
		conf, err := parseConfig()
		if err != nil {
			fmt.Printf("Error: %s\n", err.Error())
			os.Exit(1)
		}

		fmt.Printf("Effective config (file: %s):\n", conf.Internal.CfgFile)
		dump.P(conf.Verify)
		dump.P(conf.Dns)
	},
}

var configEnvCmd = &cobra.Command{
	Use:   "env",
	Short: "Show the values picked up from the poa.env file",
	Run: func(cmd *cobra.Command, args []string) {
		conf, err := parseConfig()
		if err != nil {
			fmt.Printf("Error: %s\n", err.Error())
			os.Exit(1)
		}

		vals, err := poa.LoadEnvFileValues(conf.Verify.EnvFile)
		if err != nil {
			fmt.Printf("Error reading env file %s: %v\n", conf.Verify.EnvFile, err)
			os.Exit(1)
		}
		if len(vals) == 0 {
			fmt.Printf("No values found in %s\n", conf.Verify.EnvFile)
			return
		}
		for k, v := range vals {
			fmt.Printf("%s=%s\n", k, v)
		}
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEnvCmd)
}
