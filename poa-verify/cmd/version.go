/*
 * Johan Stenstam
 */
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/uptimeproof/poa/poa"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of the app",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("This is %s, version %s, compiled on %v\n",
			poa.Globals.App.Name, poa.Globals.App.Version, poa.Globals.App.Date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
