package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"jellyshrink/internal/cli"
)

func main() {
	// Optional .env so JELLYFIN_API_KEY and friends need not live in the shell.
	_ = godotenv.Load()

	if err := cli.Run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
