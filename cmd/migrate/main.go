// Command migrate runs schema operations for the backend.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"sort"
	"strings"

	"struggles/internal/bootstrap"
	"struggles/internal/config"
	"struggles/internal/database"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func usage() error {
	return fmt.Errorf("usage: go run ./cmd/migrate <up|status> [-fixture path]")
}

func run() error {
	fixture := flag.String("fixture", "", "YAML fixture applied after migrating when the users table is empty")
	flag.Parse()
	if flag.NArg() < 1 {
		return usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx := context.Background()
	cmd := strings.ToLower(strings.TrimSpace(flag.Arg(0)))
	switch cmd {
	case "up":
		rt, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{
			Migrate:     true,
			FixturePath: *fixture,
			SkipRedis:   true,
		})
		if err != nil {
			return fmt.Errorf("migrate failed: %w", err)
		}
		defer rt.Close()
		log.Printf("schema up to date (driver=%s)", cfg.DBDriver)
	case "status":
		rt, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{SkipRedis: true})
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer rt.Close()

		status, err := database.TableStatus(rt.DB)
		if err != nil {
			return fmt.Errorf("schema status failed: %w", err)
		}
		tables := make([]string, 0, len(status))
		for t := range status {
			tables = append(tables, t)
		}
		sort.Strings(tables)
		pending := 0
		for _, t := range tables {
			state := "present"
			if !status[t] {
				state = "missing"
				pending++
			}
			log.Printf("%-14s %s", t, state)
		}
		log.Printf("driver=%s tables=%d missing=%d", cfg.DBDriver, len(tables), pending)
	default:
		return usage()
	}

	return nil
}
