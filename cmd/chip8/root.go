// Package cmd is the command-line tree for the chip8x emulator,
// adopting bradford-hamilton-chippy's cobra CLI shape in place of the
// original teacher's raw flag package (SPEC_FULL.md's Ambient Stack).
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// currentReleaseVersion is printed by `chip8x version`.
const currentReleaseVersion = "v0.1.0"

var rootCmd = &cobra.Command{
	Use:   "chip8x [command]",
	Short: "chip8x is a multi-backend Chip8 emulator",
	Long:  "chip8x is a multi-backend Chip8 emulator: a direct interpreter, three cached-interpreter tiers, and an amd64 JIT share one virtual machine core.",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("Unknown command. Try `chip8x help` for more information")
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs chip8x according to the user's command/subcommand/flags.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
