package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mcdev12/scoreboard/go/internal/dbconfig"
	"github.com/mcdev12/scoreboard/go/internal/matchstore"
)

// Player is one roster entry in the seed file. Height is cm, weight is kg.
type Player struct {
	Name   string  `json:"name"`
	Height float64 `json:"height"`
	Weight float64 `json:"weight"`
}

func main() {
	path := flag.String("file", "go/internal/assets/players.json", "players JSON file")
	flag.Parse()

	ctx := context.Background()

	// 1) Load the roster
	data, err := os.ReadFile(*path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read %s: %v\n", *path, err)
		os.Exit(1)
	}
	var players []Player
	if err := json.Unmarshal(data, &players); err != nil {
		fmt.Fprintf(os.Stderr, "unmarshal players: %v\n", err)
		os.Exit(1)
	}

	// 2) Connect to DB
	cfg, err := dbconfig.NewConfigFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "db config: %v\n", err)
		os.Exit(1)
	}
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect error: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	// 3) Seed players, existing names are left untouched
	total, inserted, skipped, errs := len(players), 0, 0, 0
	for _, p := range players {
		name, err := matchstore.ValidateName(p.Name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "skip %q: %v\n", p.Name, err)
			errs++
			continue
		}
		tag, err := pool.Exec(ctx, `
            INSERT INTO players (name, height, weight)
            VALUES ($1, $2, $3)
            ON CONFLICT (name) DO NOTHING
        `, name, p.Height, p.Weight)
		if err != nil {
			fmt.Fprintf(os.Stderr, "insert %q: %v\n", name, err)
			errs++
			continue
		}
		if tag.RowsAffected() == 1 {
			inserted++
		} else {
			skipped++
		}
	}
	fmt.Printf(
		"Players seed: total=%d inserted=%d skipped=%d errors=%d\n",
		total, inserted, skipped, errs,
	)
}
