package main

import (
	"os"

	"github.com/birmacher/dealing-with-ai/cmd"
	_ "github.com/birmacher/dealing-with-ai/version" // Import for version info
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
