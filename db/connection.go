// Package db runs the SQL the assistant generated against the PostgreSQL
// database named by the configured connection profile.
//
// Design decisions:
//   - Uses pgxpool so the TUI can run and explain concurrently.
//   - SSH tunnel integration is transparent: when the profile enables SSH,
//     the tunnel is started first and pgx connects to its local endpoint.
//   - Generated SQL only ever runs inside a read-only transaction.
package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/DachengChen/asksql/applog"
	"github.com/DachengChen/asksql/config"
	"github.com/DachengChen/asksql/ssh"
)

// DB wraps a pgx connection pool and optional SSH tunnel.
type DB struct {
	Pool   *pgxpool.Pool
	Tunnel *ssh.Tunnel

	target string
}

// Connect opens the pool described by cfg, through an SSH tunnel when
// cfg.SSH.Enabled is set.
func Connect(ctx context.Context, cfg config.Config) (*DB, error) {
	d := &DB{target: cfg.Target()}

	if cfg.SSH.Enabled {
		tunnel, err := ssh.NewTunnel(cfg.SSH, cfg.Host, cfg.Port)
		if err != nil {
			return nil, fmt.Errorf("ssh tunnel: %w", err)
		}
		local, err := tunnel.Start(ctx)
		if err != nil {
			return nil, fmt.Errorf("ssh tunnel start: %w", err)
		}
		d.Tunnel = tunnel
		cfg.Host = local.Host
		cfg.Port = local.Port
	}

	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("pgx connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		d.Close()
		return nil, fmt.Errorf("pgx ping: %w", err)
	}

	d.Pool = pool
	applog.Event("DB", "connected to %s", d.target)
	return d, nil
}

// Target is the user@host:port/db the pool was opened for.
func (d *DB) Target() string {
	return d.target
}

// Close shuts down the pool and SSH tunnel.
func (d *DB) Close() {
	if d.Pool != nil {
		d.Pool.Close()
		d.Pool = nil
	}
	if d.Tunnel != nil {
		d.Tunnel.Stop()
		d.Tunnel = nil
	}
}
