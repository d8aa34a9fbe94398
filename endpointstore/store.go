// Package endpointstore owns RPC endpoint selection state: a Postgres-backed
// store of configured endpoints, an in-memory health tracker feeding the
// simulator's ordered endpoint list, and a background monitor recording
// session health into the tracker.
package endpointstore

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	_ "github.com/lib/pq"

	"github.com/dotbot/transfer-lib/common/types"
)

var (
	// ErrInvalidChain is returned when an empty chain name is provided.
	ErrInvalidChain = errors.New("invalid chain name")
	// ErrDatabaseConnect is returned when the database operation fails.
	ErrDatabaseConnect = errors.New("failed to connect to database")
)

// Store reads configured endpoints from Postgres.
type Store struct {
	dbConnStr string
}

// NewStore creates a new Store instance with the provided connection string.
//
// Parameters:
// - connStr: the database connection string.
//
// Returns:
// - *Store: a pointer to the newly created Store instance.
func NewStore(connStr string) *Store {
	return &Store{dbConnStr: connStr}
}

// GetEndpoints returns all endpoints for a chain, optionally filtering by
// active status.
//
// Parameters:
// - ctx: the context for managing the request.
// - chain: the chain name.
// - activeOnly: a boolean flag to filter only active endpoints.
//
// Returns:
// - []types.Endpoint: a slice of endpoint records.
// - error: an error if the database operation fails.
func (s *Store) GetEndpoints(ctx context.Context, chain string, activeOnly bool) ([]types.Endpoint, error) {
	if chain == "" {
		return nil, ErrInvalidChain
	}

	db, err := sql.Open("postgres", s.dbConnStr)
	if err != nil {
		return nil, ErrDatabaseConnect
	}
	defer db.Close()

	query := `
		SELECT
			url,
			active,
			healthy,
			failure_count,
			last_failure_at
		FROM endpoints
		WHERE chain = $1
	`

	args := []interface{}{chain}
	if activeOnly {
		query += " AND active = $2"
		args = append(args, true)
	}

	query += " ORDER BY failure_count ASC, url ASC"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, ErrDatabaseConnect
	}
	defer rows.Close()

	var endpoints []types.Endpoint
	for rows.Next() {
		var endpoint types.Endpoint
		var lastFailureAt sql.NullTime

		err := rows.Scan(
			&endpoint.URL,
			&endpoint.Active,
			&endpoint.Healthy,
			&endpoint.FailureCount,
			&lastFailureAt,
		)
		if err != nil {
			return nil, ErrDatabaseConnect
		}

		if lastFailureAt.Valid {
			endpoint.LastFailureAt = lastFailureAt.Time
		}

		endpoints = append(endpoints, endpoint)
	}

	if err = rows.Err(); err != nil {
		return nil, ErrDatabaseConnect
	}

	return endpoints, nil
}

// RecordHealth persists one endpoint's health observation.
//
// Parameters:
// - ctx: the context for managing the request.
// - chain: the chain name.
// - url: the endpoint URL.
// - healthy: the observed health state.
//
// Returns:
// - error: an error if the database operation fails.
func (s *Store) RecordHealth(ctx context.Context, chain, url string, healthy bool) error {
	if chain == "" {
		return ErrInvalidChain
	}

	db, err := sql.Open("postgres", s.dbConnStr)
	if err != nil {
		return ErrDatabaseConnect
	}
	defer db.Close()

	var query string
	if healthy {
		query = `
			UPDATE endpoints
			SET
				healthy = true,
				failure_count = 0,
				updated_at = NOW()
			WHERE chain = $1 AND url = $2
		`
	} else {
		query = `
			UPDATE endpoints
			SET
				healthy = false,
				failure_count = failure_count + 1,
				last_failure_at = NOW(),
				updated_at = NOW()
			WHERE chain = $1 AND url = $2
		`
	}

	if _, err := db.ExecContext(ctx, query, chain, url); err != nil {
		return errors.Wrap(err, "failed to record endpoint health")
	}
	return nil
}
