package main

import (
	"fmt"
	"os"

	"github.com/kauecodify/PIX-ORCHESTRED-DATABASE/cmd/pixd/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
