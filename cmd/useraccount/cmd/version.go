package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/d-kuro/useraccount/pkg/constants"
)

func init() {
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("%s v%s\n", constants.LibraryName, constants.LibraryVersion)
		if configFile != "" {
			fmt.Println("Config file:", expandHome(configFile))
		}
	},
}
