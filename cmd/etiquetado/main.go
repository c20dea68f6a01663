package main

import (
	"fmt"
	"os"

	"github.com/lrdgdown-eng/etiquetado/internal/cmd"
)

func main() {
	if err := cmd.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
