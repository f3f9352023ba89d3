package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/chat2snack/snacksim/snack/snack"
)

var encodeCmd = &cobra.Command{
	Use:   "encode [order]",
	Short: "Encode an order into a 16-bit command word.",
	Long: `Encode turns an order such as "burger=2,fries=1" into the command ` +
		`word the board expects on its serial line, with the GO flag set ` +
		`unless --no-go is given.`,
	Example: `  snacksim encode burger=2,fries=1
  snacksim encode --no-go soda=7`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		word, err := snack.ParseOrder(args[0])
		if err != nil {
			log.Fatalf("%v", err)
		}

		noGo, _ := cmd.Flags().GetBool("no-go")
		word = word.WithGo(!noGo)

		low, high := word.Bytes()
		fmt.Printf("%s\n", word)
		fmt.Printf("bits:  %016b\n", uint16(word))
		fmt.Printf("bytes: 0x%02X 0x%02X (low first)\n", low, high)
	},
}

func init() {
	rootCmd.AddCommand(encodeCmd)

	encodeCmd.Flags().Bool("no-go", false, "leave the GO flag clear")
}
