// Package db owns the process-wide Postgres connection pool.
package db

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/n1207n/blog-post-api/config"
)

// Provider lazily creates a single pgxpool.Pool on first use and hands the
// same pool to every caller afterwards. It satisfies sqlc.DBTX, so a querier
// built on it never touches the network until a query runs.
//
// A configuration error is captured once in NewProvider and returned from
// every call instead of a pool.
type Provider struct {
	cfg *pgxpool.Config
	err error

	mu   sync.Mutex
	pool *pgxpool.Pool
}

// NewProvider validates and parses databaseURL without connecting.
func NewProvider(databaseURL string) *Provider {
	if err := config.ValidateDatabaseURL(databaseURL); err != nil {
		return &Provider{err: err}
	}

	pgxpoolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return &Provider{err: fmt.Errorf("unable to parse database URL: %w", err)}
	}
	pgxpoolCfg.MaxConns = 10
	pgxpoolCfg.MaxConnLifetime = time.Hour
	pgxpoolCfg.MaxConnIdleTime = 30 * time.Minute
	pgxpoolCfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheStatement

	return &Provider{cfg: pgxpoolCfg}
}

// Err returns the configuration error detected at construction, if any.
func (p *Provider) Err() error {
	return p.err
}

// Pool returns the shared pool, creating it on the first call.
func (p *Provider) Pool() (*pgxpool.Pool, error) {
	if p.err != nil {
		return nil, p.err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pool != nil {
		return p.pool, nil
	}

	// The pool outlives any single request, so it is not tied to one's context.
	pool, err := pgxpool.NewWithConfig(context.Background(), p.cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	p.pool = pool
	return pool, nil
}

// Ping forces pool creation and verifies connectivity.
func (p *Provider) Ping(ctx context.Context) error {
	pool, err := p.Pool()
	if err != nil {
		return err
	}
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("unable to ping database: %w", err)
	}
	return nil
}

// Close releases the pool if one was created.
func (p *Provider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pool != nil {
		p.pool.Close()
		p.pool = nil
	}
}

func (p *Provider) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	pool, err := p.Pool()
	if err != nil {
		return pgconn.CommandTag{}, err
	}
	return pool.Exec(ctx, sql, args...)
}

func (p *Provider) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	pool, err := p.Pool()
	if err != nil {
		return nil, err
	}
	return pool.Query(ctx, sql, args...)
}

func (p *Provider) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	pool, err := p.Pool()
	if err != nil {
		return errRow{err: err}
	}
	return pool.QueryRow(ctx, sql, args...)
}

type errRow struct {
	err error
}

func (r errRow) Scan(...any) error {
	return r.err
}
