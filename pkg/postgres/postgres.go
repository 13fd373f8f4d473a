package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

type Config struct {
	DSN          string        `envconfig:"DSN" split_words:"true"`
	MaxOpenConns int           `split_words:"true" default:"10"`
	MaxIdleConns int           `split_words:"true" default:"5"`
	ConnLifetime time.Duration `split_words:"true" default:"30m"`
}

// New opens a bun database over pgdriver and checks connectivity.
func (c *Config) New(ctx context.Context) (*bun.DB, error) {
	dsn := strings.TrimSpace(c.DSN)
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	if c.MaxOpenConns > 0 {
		sqldb.SetMaxOpenConns(c.MaxOpenConns)
	}
	if c.MaxIdleConns > 0 {
		sqldb.SetMaxIdleConns(c.MaxIdleConns)
	}
	if c.ConnLifetime > 0 {
		sqldb.SetConnMaxLifetime(c.ConnLifetime)
	}

	db := Wrap(sqldb)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Wrap attaches the Postgres dialect to an existing handle.
func Wrap(sqldb *sql.DB) *bun.DB {
	return bun.NewDB(sqldb, pgdialect.New())
}
