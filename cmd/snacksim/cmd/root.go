// Package cmd provides the command-line interface for the snack dispenser
// simulator.
package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "snacksim",
	Short: "Snacksim simulates the control board of a five-slot snack dispenser.",
	Long: `Snacksim simulates the control board of a five-slot snack dispenser. ` +
		`The board receives order commands over a serial line, latches them ` +
		`into a 16-bit command word, and walks the five slots in a fixed ` +
		`order, pushing out the requested number of items from each slot.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	_ = godotenv.Load()

	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}
}
