package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/phillycal/internal/app"
)

func main() {
	if err := app.Run(os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "phillycal: %v\n", err)
		os.Exit(1)
	}
}
