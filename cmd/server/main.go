package main

import (
	"log"
	"net/http"
	"os"
	"time"

	"plot-twist/internal/config"
	"plot-twist/internal/db"
	"plot-twist/internal/server"

	"gorm.io/gorm"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Printf("failed to load .env: %v", err)
	}
	cfg := config.Load()

	var conn *gorm.DB
	if os.Getenv("DATABASE_URL") != "" {
		opened, err := db.Open()
		if err != nil {
			log.Fatalf("database connection failed: %v", err)
		}
		if err := db.Migrate(opened); err != nil {
			log.Fatalf("database migration failed: %v", err)
		}
		if sqlDB, err := opened.DB(); err == nil {
			sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
			sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
			sqlDB.SetConnMaxLifetime(time.Duration(cfg.DBConnMaxLifetimeSeconds) * time.Second)
			sqlDB.SetConnMaxIdleTime(time.Duration(cfg.DBConnMaxIdleTimeSeconds) * time.Second)
		}
		conn = opened
	} else {
		log.Println("DATABASE_URL not set, running without persistence")
	}

	addr := ":8080"
	if env := os.Getenv("PORT"); env != "" {
		addr = ":" + env
	}

	srv := server.New(conn, cfg)
	srv.Start()
	defer srv.Stop()

	log.Printf("plot-twist server listening on %s", addr)
	if err := http.ListenAndServe(addr, srv.Handler()); err != nil {
		log.Fatal(err)
	}
}
