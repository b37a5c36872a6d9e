package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"astral-server/internal/shared/config"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// DB wraps a connection pool together with the driver it speaks, so
// queries written with $n placeholders can run on either dialect.
type DB struct {
	*sql.DB
	Driver string
}

type Tx struct {
	*sql.Tx
}

func (db *DB) BeginTxContext(ctx context.Context) (*Tx, error) {
	tx, err := db.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &Tx{tx}, nil
}

// Rebind rewrites $n placeholders for drivers that only understand "?".
func (db *DB) Rebind(query string) string {
	if db.Driver != DriverSQLite {
		return query
	}
	var b strings.Builder
	b.Grow(len(query))
	for i := 0; i < len(query); i++ {
		if query[i] != '$' {
			b.WriteByte(query[i])
			continue
		}
		j := i + 1
		for j < len(query) && query[j] >= '0' && query[j] <= '9' {
			j++
		}
		if _, err := strconv.Atoi(query[i+1 : j]); err != nil {
			b.WriteByte(query[i])
			continue
		}
		b.WriteByte('?')
		i = j - 1
	}
	return b.String()
}

// Connect opens the database named by the global configuration.
func Connect() (*DB, error) {
	cfg := config.GlobalConfig
	return Open(cfg.Database.Driver, cfg.DataSourceName(), cfg.Database)
}

func Open(driver, dsn string, pool config.DatabaseConfig) (*DB, error) {
	logger := slog.With("component", "database", "operation", "connect", "driver", driver)
	logger.Debug("Initializing database connection")

	if driver == DriverPostgres {
		logger.Info("Connecting to database",
			"host", pool.Host,
			"port", pool.Port,
			"user", pool.User,
			"database", pool.Name,
			"sslmode", pool.SSLMode,
			"max_open_conns", pool.MaxOpenConns,
			"max_idle_conns", pool.MaxIdleConns,
		)
	} else {
		logger.Info("Opening database file", "path", dsn)
	}

	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		logger.Error("Failed to open database connection", "error", err)
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if driver == DriverSQLite {
		// one writer at a time
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
		sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}

	logger.Debug("Testing database connection with ping")
	if err := sqlDB.Ping(); err != nil {
		logger.Error("Failed to ping database", "error", err)
		if closeErr := sqlDB.Close(); closeErr != nil {
			logger.Error("Failed to close database after ping failure", "close_error", closeErr, "ping_error", err)
		}
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Database connection established successfully")
	return &DB{DB: sqlDB, Driver: driver}, nil
}
