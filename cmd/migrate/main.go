// Command migrate creates the database schema. Safe to run repeatedly.
package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"

	"datalyst/adapters/postgres"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	url := os.Getenv("DATABASE_URL")
	if len(os.Args) > 1 {
		url = os.Args[1]
	}
	if url == "" {
		log.Fatal("Usage: migrate [database_url] (or set DATABASE_URL)")
	}

	db, err := postgres.Connect(url)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := postgres.EnsureSchema(context.Background(), db); err != nil {
		log.Fatalf("Failed to create schema: %v", err)
	}
	log.Println("Schema is up to date")
}
