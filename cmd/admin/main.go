package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/codingconcepts/env"
	"github.com/golden-vcr/server-common/db"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/sansad-av/talktime/gen/queries"
	"github.com/sansad-av/talktime/internal/broadcast"
	"github.com/sansad-av/talktime/internal/feed"
)

type Config struct {
	DatabaseHost     string `env:"PGHOST" required:"true"`
	DatabasePort     int    `env:"PGPORT" required:"true"`
	DatabaseName     string `env:"PGDATABASE" required:"true"`
	DatabaseUser     string `env:"PGUSER" required:"true"`
	DatabasePassword string `env:"PGPASSWORD" required:"true"`
	DatabaseSslMode  string `env:"PGSSLMODE"`
}

func main() {
	// Initialize config from environment vars
	err := godotenv.Load()
	if err != nil && !os.IsNotExist(err) {
		log.Fatalf("error loading .env file: %v", err)
	}
	config := Config{}
	if err := env.Set(&config); err != nil {
		log.Fatalf("error parsing config: %v", err)
	}

	connectionString := db.FormatConnectionString(
		config.DatabaseHost,
		config.DatabasePort,
		config.DatabaseName,
		config.DatabaseUser,
		config.DatabasePassword,
		config.DatabaseSslMode,
	)
	pgdb, err := sql.Open("postgres", connectionString)
	if err != nil {
		log.Fatalf("error opening database: %v", err)
	}
	defer pgdb.Close()
	if err := pgdb.Ping(); err != nil {
		log.Fatalf("error connecting to database: %v", err)
	}

	ctx := context.Background()
	store := feed.NewPostgresStore(queries.New(pgdb))

	// Print the state currently held in the feed slot
	state, err := store.Get(ctx)
	if err != nil {
		log.Fatalf("error getting broadcast feed: %v", err)
	}
	printState(state)

	// 'reset' replaces the slot with an unversioned Idle state, keeping the chair;
	// 'clear' deletes the row outright
	if len(os.Args) >= 2 && os.Args[1] == "reset" {
		fmt.Printf("resetting broadcast feed to idle\n")
		next, err := store.Put(ctx, broadcast.IdleState(state.Chairperson()))
		if err != nil {
			log.Fatalf("error resetting broadcast feed: %v", err)
		}
		printState(next)
	} else if len(os.Args) >= 2 && os.Args[1] == "clear" {
		fmt.Printf("clearing broadcast feed\n")
		if err := store.Clear(ctx); err != nil {
			log.Fatalf("error clearing broadcast feed: %v", err)
		}
	}
}

func printState(state broadcast.State) {
	fmt.Printf("mode:       %s\n", state.Mode)
	fmt.Printf("version:    %d\n", state.Version)
	if !state.UpdatedAt.IsZero() {
		fmt.Printf("updated at: %s\n", state.UpdatedAt.Format("2006-01-02 15:04:05 MST"))
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		log.Fatalf("error encoding state: %v", err)
	}
	fmt.Printf("%s\n", data)
}
