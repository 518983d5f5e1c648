// Package main provides CLI for database schema management.
// Usage: migrate up
//        migrate down
//        migrate status
package main

import (
	"fmt"
	"os"
	"os/exec"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	switch command {
	case "up", "down", "status", "version":
		runGoose(command)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Powderbook Migration CLI

Usage:
  migrate <command>

Commands:
  up        Apply all pending migrations
  down      Roll back the last migration
  status    Show migration status
  version   Show current schema version
  help      Show this help

Environment Variables:
  DATABASE_URL     Connection string (required)
  MIGRATIONS_DIR   Migration directory (default: db/migrations)`)
}

func runGoose(command string) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		fmt.Println("Error: DATABASE_URL environment variable is required")
		os.Exit(1)
	}

	dir := os.Getenv("MIGRATIONS_DIR")
	if dir == "" {
		dir = "db/migrations"
	}

	cmd := exec.Command("goose", "-dir", dir, "postgres", dsn, command)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		fmt.Printf("Error: migration failed: %v\n", err)
		os.Exit(1)
	}
}
