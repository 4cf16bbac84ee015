package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"mmw/logx"
)

var rootCmd = &cobra.Command{
	Use:   "mmw",
	Short: "MMW majority multisig wallet CLI",
	Long:  "Command line interface for running and managing an MMW majority multisig wallet node.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logx.Error("CMD", "Command execution failed:", err)
		os.Exit(1)
	}
}
