// Command migrate applies the schema to the configured database.
package main

import (
	"flag"
	"fmt"
	"log"
	"strings"

	"postline/internal/config"
	"postline/internal/database"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func usage() error {
	return fmt.Errorf("usage: go run ./cmd/migrate <up|status>")
}

func run() error {
	flag.Parse()
	if flag.NArg() < 1 {
		return usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(flag.Arg(0))) {
	case "up":
		if err := database.Migrate(db); err != nil {
			return err
		}
		log.Println("schema applied")
	case "status":
		for _, model := range database.PersistentModels() {
			log.Printf("%-16T table present: %t", model, db.Migrator().HasTable(model))
		}
	default:
		return usage()
	}

	return nil
}
