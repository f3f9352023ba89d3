package cmd

import (
	"fmt"
	"log"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/chat2snack/snacksim/snack/snack"
)

var decodeCmd = &cobra.Command{
	Use:   "decode [word]",
	Short: "Decode a 16-bit command word into its order.",
	Long: `Decode breaks a command word such as 0x8009 into the GO flag and ` +
		`the five per-item counts.`,
	Example: `  snacksim decode 0x8009
  snacksim decode 33289`,
	Args: cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		v, err := strconv.ParseUint(args[0], 0, 16)
		if err != nil {
			log.Fatalf("bad command word %q: %v", args[0], err)
		}

		word := snack.Command(v)

		fmt.Printf("%s\n", word)
		fmt.Printf("go: %v\n", word.Go())
		for _, item := range snack.VisitOrder {
			fmt.Printf("%-7v %d\n", item, word.Count(item))
		}
	},
}

func init() {
	rootCmd.AddCommand(decodeCmd)
}
