package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/golang-migrate/migrate/v4/source"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StoreHealth answers readiness questions about the ticket database.
type StoreHealth struct {
	pool *pgxpool.Pool
}

// NewStoreHealth creates a StoreHealth backed by pool.
func NewStoreHealth(pool *pgxpool.Pool) *StoreHealth {
	return &StoreHealth{pool: pool}
}

// Ping checks that a connection can be acquired.
func (h *StoreHealth) Ping(ctx context.Context) error {
	return h.pool.Ping(ctx)
}

// SchemaVersion returns the version recorded by golang-migrate.
func (h *StoreHealth) SchemaVersion(ctx context.Context) (uint, bool, error) {
	var (
		version int64
		dirty   bool
	)
	err := h.pool.QueryRow(ctx, `SELECT version, dirty FROM schema_migrations LIMIT 1`).Scan(&version, &dirty)
	if isNoRows(err) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read schema version: %w", err)
	}
	return uint(version), dirty, nil
}

// CheckTicketStore runs the cheapest query the dashboard depends on.
func (h *StoreHealth) CheckTicketStore(ctx context.Context) error {
	var one int
	err := h.pool.QueryRow(ctx, `SELECT 1 FROM tickets LIMIT 1`).Scan(&one)
	if err != nil && !isNoRows(err) {
		return fmt.Errorf("query tickets: %w", err)
	}
	return nil
}

// LatestMigrationVersion returns the highest migration version available at
// sourceURL, for example "file://migrations".
func LatestMigrationVersion(sourceURL string) (uint, error) {
	drv, err := source.Open(sourceURL)
	if err != nil {
		return 0, fmt.Errorf("open migration source: %w", err)
	}
	defer drv.Close()

	version, err := drv.First()
	if err != nil {
		return 0, fmt.Errorf("first migration: %w", err)
	}
	for {
		next, err := drv.Next(version)
		if errors.Is(err, os.ErrNotExist) {
			return version, nil
		}
		if err != nil {
			return 0, fmt.Errorf("next migration after %d: %w", version, err)
		}
		version = next
	}
}
