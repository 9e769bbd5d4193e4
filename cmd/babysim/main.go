package main

import (
	"os"

	"github.com/while-basic/Ollama-AI-Simulator/internal/cli"
)

func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
