package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"marquee/handlers"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the marquee version",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintf(cmd.OutOrStdout(), "marquee %s\n", handlers.CurrentVersion())
		fmt.Fprintf(cmd.OutOrStdout(), "go      %s\n", runtime.Version())
		fmt.Fprintf(cmd.OutOrStdout(), "os      %s/%s\n", runtime.GOOS, runtime.GOARCH)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
