// Package records stores retired players and serves the leaderboard.
package records

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Record is one leaderboard entry. PlayTime is the total session time
// in seconds.
type Record struct {
	Name     string
	Score    int
	PlayTime float64
}

const (
	createTableQuery = `
CREATE TABLE IF NOT EXISTS retired_players (
    id SERIAL PRIMARY KEY,
    name VARCHAR(100) NOT NULL,
    score INTEGER NOT NULL,
    play_time DOUBLE PRECISION NOT NULL
);`

	createIndexQuery = `
CREATE INDEX IF NOT EXISTS retired_players_rank
    ON retired_players (score DESC, play_time ASC, name ASC);`

	insertQuery = `
INSERT INTO retired_players (name, score, play_time) VALUES ($1, $2, $3);`

	selectQuery = `
SELECT name, score, play_time FROM retired_players
    ORDER BY score DESC, play_time ASC, name ASC
    LIMIT $1 OFFSET $2;`
)

// Postgres keeps records in a retired_players table behind a pgx pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to databaseURL and ensures the table and its
// ranking index exist.
func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to records database: %w", err)
	}
	if _, err := pool.Exec(ctx, createTableQuery); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create retired_players table: %w", err)
	}
	if _, err := pool.Exec(ctx, createIndexQuery); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create retired_players index: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Add inserts one retired player.
func (p *Postgres) Add(ctx context.Context, rec Record) error {
	if _, err := p.pool.Exec(ctx, insertQuery, rec.Name, rec.Score, rec.PlayTime); err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

// List reads one leaderboard page ordered by score descending, then
// play time ascending, then name.
func (p *Postgres) List(ctx context.Context, start, maxItems int) ([]Record, error) {
	rows, err := p.pool.Query(ctx, selectQuery, maxItems, start)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var result []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.Name, &rec.Score, &rec.PlayTime); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}
	return result, nil
}

// Close releases the pool.
func (p *Postgres) Close() {
	p.pool.Close()
}
