package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"mdm/pkg/platform/sentinel"
)

// Open connects to the master store and verifies the connection. An
// unreachable store is fatal for the run, so failures wrap ErrUnavailable.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open master store: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping master store: %w: %v", sentinel.ErrUnavailable, err)
	}
	return db, nil
}
