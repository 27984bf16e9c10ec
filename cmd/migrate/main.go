package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"atlasmark.io/internal/migrate"
)

func main() {
	dir := flag.String("dir", "migrations", "directory with .sql migration files")
	flag.Parse()

	dsn := os.Getenv("ATLASMARK_PG_DSN")
	if dsn == "" {
		log.Fatal("ATLASMARK_PG_DSN is required")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	applied, err := migrate.NewManager(db, *dir).Up(ctx)
	if err != nil {
		log.Fatalf("migrate: %v", err)
	}
	if len(applied) == 0 {
		log.Println("no pending migrations")
		return
	}
	for _, name := range applied {
		log.Printf("applied %s", name)
	}
}
