package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/zaiqa-pos/api/internal/config"
	"github.com/zaiqa-pos/api/internal/database"
	"github.com/zaiqa-pos/api/internal/events"
	"github.com/zaiqa-pos/api/internal/router"
	"github.com/zaiqa-pos/api/internal/ws"
)

func main() {
	cfg := config.Load()

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Unable to ping database: %v", err)
	}
	log.Println("Connected to database")

	queries := database.New(pool)

	bus := events.NewBus()
	hub := ws.NewHub()
	go hub.Run()
	go hub.Bridge(ctx, bus)

	r := router.New(cfg, queries, pool, bus, hub)

	log.Printf("Starting server on :%s", cfg.Port)
	if err := http.ListenAndServe(fmt.Sprintf(":%s", cfg.Port), r); err != nil {
		log.Fatal(err)
	}
}
