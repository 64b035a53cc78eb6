package main

import (
	"fmt"
	"os"

	"github.com/arnavshah/assignment-engine-go/pkg/auth"
	"github.com/arnavshah/assignment-engine-go/pkg/config"
)

func main() {
	config.LoadEnv()

	if len(os.Args) < 2 {
		fmt.Println("Usage: keygen <unitID>")
		os.Exit(1)
	}

	unitID := os.Args[1]
	if os.Getenv("API_MASTER_SECRET") == "" {
		fmt.Println("Error: API_MASTER_SECRET not found in .env")
		os.Exit(1)
	}

	apiKey, err := auth.GenerateHMACKey(unitID)
	if err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
	fmt.Printf("Generated Key for %s:\n%s\n", unitID, apiKey)
}
