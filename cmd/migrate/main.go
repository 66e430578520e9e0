package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/samirrijal/voltrip/internal/pkg/config"
)

var migrations = []struct {
	up, down string
}{
	{up: "migrations/001_init_extensions.sql"},
	{up: "migrations/002_chargers.sql", down: "migrations/002_chargers.down.sql"},
}

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: migrate <up|down>")
	}

	cfg, err := config.Load("voltrip-migrate")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	switch os.Args[1] {
	case "up":
		for _, m := range migrations {
			apply(ctx, pool, m.up)
		}
	case "down":
		for i := len(migrations) - 1; i >= 0; i-- {
			if migrations[i].down != "" {
				apply(ctx, pool, migrations[i].down)
			}
		}
	default:
		log.Fatalf("unknown command: %s", os.Args[1])
	}

	log.Println("migrations applied")
}

func apply(ctx context.Context, pool *pgxpool.Pool, file string) {
	data, err := os.ReadFile(file)
	if err != nil {
		log.Fatalf("read %s: %v", file, err)
	}
	if _, err := pool.Exec(ctx, string(data)); err != nil {
		log.Fatalf("exec %s: %v", file, err)
	}
	fmt.Printf("OK  %s\n", file)
}
