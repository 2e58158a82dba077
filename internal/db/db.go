package db

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/sethvargo/go-retry"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

const (
	postgresConnectAttempts = 10
	postgresConnectDelay    = 2 * time.Second
)

// Open opens a SQLite database, sets recommended pragmas, and validates connectivity.
func Open(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if _, err := db.Exec(`
		PRAGMA journal_mode = WAL;
		PRAGMA foreign_keys = ON;
		PRAGMA busy_timeout = 5000;
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("set sqlite pragmas: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite database: %w", err)
	}

	return db, nil
}

// OpenPostgres connects to the remote Postgres store, retrying while the
// server is unreachable.
func OpenPostgres(ctx context.Context, dsn string) (*gorm.DB, error) {
	var gdb *gorm.DB
	backoff := retry.WithMaxRetries(postgresConnectAttempts, retry.NewConstant(postgresConnectDelay))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
		if err != nil {
			closeGorm(conn)
			log.Printf("retrying postgres connection: %v", err)
			return retry.RetryableError(err)
		}
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			sqlDB.Close()
			log.Printf("retrying postgres ping: %v", err)
			return retry.RetryableError(err)
		}
		gdb = conn
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	return gdb, nil
}

// closeGorm releases the pool behind a connection that failed to come up.
func closeGorm(conn *gorm.DB) {
	if conn == nil {
		return
	}
	if sqlDB, err := conn.DB(); err == nil {
		sqlDB.Close()
	}
}
