package db

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mewroo/marketx/pkg/db/clickhouse"
	"github.com/mewroo/marketx/pkg/utils"
	"go.uber.org/zap"
)

// DB represents the finance database and provides methods to manage and query its
// tables. It embeds a ClickHouse client and keeps the database name for DDL/queries.
type DB struct {
	clickhouse.Client
	Name string
}

// New creates the finance ClickHouse database instance, connecting with retry and
// ensuring the database plus all tables exist.
func New(ctx context.Context, logger *zap.Logger) (*DB, error) {
	dbName := clickhouse.SanitizeName(utils.Env("CLICKHOUSE_DATABASE", "finance"))

	client, err := clickhouse.New(ctx, logger.With(zap.String("db", dbName)))
	if err != nil {
		return nil, err
	}

	financeDB := &DB{
		Client: client,
		Name:   dbName,
	}

	if err := financeDB.InitializeDB(ctx); err != nil {
		return nil, err
	}

	return financeDB, nil
}

// InitializeDB ensures the required database and tables exist.
// Table creation statements run in parallel; they are independent of each other.
func (db *DB) InitializeDB(ctx context.Context) error {
	initStart := time.Now()

	if err := db.CreateDbIfNotExists(ctx, db.Name); err != nil {
		return fmt.Errorf("failed to create database %s: %w", db.Name, err)
	}

	initOps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"ingest_state", db.initIngestState},
		{"dim_industry", db.initDimIndustry},
		{"industry_membership", db.initMembership},
		{"stock_prices", db.initPrices},
		{"market_cap", db.initMarketCap},
	}

	var wg sync.WaitGroup
	errChan := make(chan error, len(initOps))

	for _, op := range initOps {
		wg.Add(1)
		go func(name string, fn func(context.Context) error) {
			defer wg.Done()
			if err := fn(ctx); err != nil {
				errChan <- fmt.Errorf("init %s: %w", name, err)
			}
		}(op.name, op.fn)
	}

	wg.Wait()
	close(errChan)

	for err := range errChan {
		return err
	}

	db.Logger.Info("Finance database initialization complete",
		zap.String("database", db.Name),
		zap.Duration("duration", time.Since(initStart)))

	return nil
}

// DatabaseName returns the ClickHouse database backing this store.
func (db *DB) DatabaseName() string {
	return db.Name
}

// Close terminates the underlying ClickHouse connection.
func (db *DB) Close() error {
	return db.Db.Close()
}
