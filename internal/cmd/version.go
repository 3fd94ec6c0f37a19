package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of wasmprune",
	Long:  `Display the current version of the wasmprune CLI tool.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("wasmprune version %s\n", Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
