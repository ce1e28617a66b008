package main

import (
	"fmt"
	"os"

	"miluim/internal/app/server"
)

func main() {
	if err := server.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "miluim: %v\n", err)
		os.Exit(1)
	}
}
