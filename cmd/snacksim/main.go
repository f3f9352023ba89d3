// Command snacksim simulates the snack dispenser control board.
package main

import (
	"github.com/tebeka/atexit"

	"github.com/chat2snack/snacksim/cmd/snacksim/cmd"
)

func main() {
	cmd.Execute()
	atexit.Exit(0)
}
