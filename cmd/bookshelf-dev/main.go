package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/pressly/goose/v3"
	"github.com/testcontainers/testcontainers-go/modules/clickhouse"

	"bookshelf/internal/app"
)

const migrationsDir = "./migrations"

func main() {
	ctx := context.Background()

	log.Println("Starting ClickHouse testcontainer...")

	clickhouseContainer, err := clickhouse.Run(ctx,
		"clickhouse/clickhouse-server:latest",
		clickhouse.WithUsername("default"),
		clickhouse.WithPassword("devpassword"),
		clickhouse.WithDatabase("default"),
	)
	if err != nil {
		log.Fatalf("Failed to start ClickHouse container: %v", err)
	}

	// Ensure container cleanup on exit
	defer func() {
		log.Println("Stopping ClickHouse container...")
		if err := clickhouseContainer.Terminate(ctx); err != nil {
			log.Printf("Failed to terminate container: %v", err)
		}
	}()

	host, err := clickhouseContainer.Host(ctx)
	if err != nil {
		log.Fatalf("Failed to get container host: %v", err)
	}

	port, err := clickhouseContainer.MappedPort(ctx, "9000/tcp")
	if err != nil {
		log.Fatalf("Failed to get container port: %v", err)
	}

	log.Printf("ClickHouse started at %s:%s", host, port.Port())

	if err := migrate(fmt.Sprintf("clickhouse://default:devpassword@%s:%s/default?dial_timeout=10s", host, port.Port())); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Set environment variables for the application
	os.Setenv("CLICKHOUSE_HOST", host)
	os.Setenv("CLICKHOUSE_PORT", port.Port())
	os.Setenv("CLICKHOUSE_DATABASE", "default")
	os.Setenv("CLICKHOUSE_USER", "default")
	os.Setenv("CLICKHOUSE_PASSWORD", "devpassword")
	os.Setenv("CLICKHOUSE_USE_TLS", "false")
	os.Setenv("USE_MOCK_DB", "false")
	os.Setenv("WEBHOOK_MODE", "false")
	os.Setenv("LOG_LEVEL", "debug")

	if os.Getenv("PORT") == "" {
		os.Setenv("PORT", "8080")
	}

	if os.Getenv("TELEGRAM_BOT_TOKEN") == "" {
		log.Println("TELEGRAM_BOT_TOKEN not set, only the HTTP API will be available")
	}

	log.Println("Starting application with ClickHouse backend...")

	application, err := app.New()
	if err != nil {
		log.Printf("Failed to create application: %v", err)
		return
	}

	// Run blocks until SIGINT/SIGTERM
	if err := application.Run(); err != nil {
		log.Printf("Application error: %v", err)
	}
}

func migrate(dsn string) error {
	db, err := sql.Open("clickhouse", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := goose.SetDialect("clickhouse"); err != nil {
		return err
	}
	return goose.Up(db, migrationsDir)
}
