// Package postgres talks to the target PostgreSQL server directly, for the
// checks that do not need an external tool.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/AI2HU/sqlite2pg/internal/config"
)

// ConnectTimeout bounds the single connection attempt.
const ConnectTimeout = 15 * time.Second

// TestConnection connects once, reads the server version and disconnects.
func TestConnection(ctx context.Context, conn config.Connection) (string, error) {
	cfg, err := pgx.ParseConfig(conn.URL())
	if err != nil {
		return "", fmt.Errorf("invalid connection parameters: %w", err)
	}
	cfg.ConnectTimeout = ConnectTimeout

	ctx, cancel := context.WithTimeout(ctx, ConnectTimeout)
	defer cancel()

	pg, err := pgx.ConnectConfig(ctx, cfg)
	if err != nil {
		return "", err
	}
	defer pg.Close(context.Background())

	var version string
	if err := pg.QueryRow(ctx, "SELECT version()").Scan(&version); err != nil {
		return "", fmt.Errorf("failed to query server version: %w", err)
	}

	return version, nil
}
