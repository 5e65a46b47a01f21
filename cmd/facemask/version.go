package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/menta2k/facemask"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "facemask %s\n", facemask.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
