package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/meshcompute/clearing/cmd/cli/commands"
)

func main() {
	// Load .env file if present so CLEARING_SERVER_ADDRESS can come from it
	_ = godotenv.Load()

	if err := commands.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
