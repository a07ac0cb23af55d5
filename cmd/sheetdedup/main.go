package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/sheetdedup/internal/cli"
)

func main() {
	// Load .env file if it exists; variables already set in the environment win
	_ = godotenv.Load()

	os.Exit(cli.Execute())
}
