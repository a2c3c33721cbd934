package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/aveline/ticketing/internal/server"
)

func main() {
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		log.Fatalf("Error loading .env file: %v", err)
	}

	if err := server.Start(); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
