package main

import "github.com/spf13/cobra"

var rootCmd = &cobra.Command{
	Use: "sdg11-api",
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(workerCmd)
}
