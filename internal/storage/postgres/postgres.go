// Package postgres stores the realm's versioned documents in PostgreSQL using pgx v5.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/fiefdom/internal/config"
)

// Pool owns the pgx connection pool shared by the document store.
type Pool struct {
	pool *pgxpool.Pool
}

// NewPool connects to cfg and pings it. Every connection reports appName as
// its application_name so realm traffic is visible in pg_stat_activity.
//
// Precondition: cfg must contain valid database connection parameters.
// Postcondition: Returns a connected Pool or a non-nil error.
func NewPool(ctx context.Context, cfg config.DatabaseConfig, appName string) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	if appName != "" {
		poolCfg.ConnConfig.RuntimeParams["application_name"] = appName
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &Pool{pool: pool}, nil
}

// Documents returns a document store on this pool.
func (p *Pool) Documents() *DocumentStore {
	return NewDocumentStore(p.pool)
}

// Stats is a snapshot of pool usage.
type Stats struct {
	Total    int32
	Idle     int32
	Acquired int32
}

// Stats reports current pool usage.
func (p *Pool) Stats() Stats {
	s := p.pool.Stat()
	return Stats{Total: s.TotalConns(), Idle: s.IdleConns(), Acquired: s.AcquiredConns()}
}

// Health pings the database within timeout.
//
// Precondition: The pool must not be closed.
func (p *Pool) Health(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.pool.Ping(ctx)
}

// Close releases all connections.
func (p *Pool) Close() {
	p.pool.Close()
}

// DB returns the underlying pgxpool.Pool.
func (p *Pool) DB() *pgxpool.Pool {
	return p.pool
}
