package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/codingconcepts/env"
	"github.com/golden-vcr/server-common/db"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	talktimedb "github.com/sansad-av/talktime/db"
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

	migrations, err := talktimedb.Migrations()
	if err != nil {
		log.Fatalf("error loading migrations: %v", err)
	}

	// Every migration is idempotent, so the full set is simply re-applied in order
	dryRun := len(os.Args) > 1 && os.Args[1] == "--dry-run"
	fmt.Printf("Found %d migrations:\n", len(migrations))
	for _, m := range migrations {
		if dryRun {
			fmt.Printf("- %s (skipped)\n", m.Name)
			continue
		}
		if _, err := pgdb.Exec(m.SQL); err != nil {
			log.Fatalf("failed to apply migration %s: %v", m.Name, err)
		}
		fmt.Printf("- %s applied\n", m.Name)
	}
	fmt.Printf("Done.\n")
}
