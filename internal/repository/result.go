package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"telegram-trivia-bot/internal/model"
)

// ResultRepository persists final session scores, the score ledger behind
// the engine's ScoreLedger contract.
type ResultRepository struct {
	pool *pgxpool.Pool
}

// NewResultRepository creates a new ResultRepository instance.
func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

// SaveResults inserts one ledger row per entry in a single transaction.
func (r *ResultRepository) SaveResults(ctx context.Context, entries []model.ScoreEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const query = `
		INSERT INTO game_results (chat_id, name, points, created_at)
		VALUES ($1, $2, $3, NOW())
	`
	for _, e := range entries {
		if _, err := tx.Exec(ctx, query, e.ChatID, e.Name, e.Points); err != nil {
			return fmt.Errorf("failed to insert result for %s: %w", e.Name, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit results: %w", err)
	}
	return nil
}

// Leaderboard returns the all-time standings aggregated over every
// reported session, highest total first.
func (r *ResultRepository) Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardRow, error) {
	const query = `
		SELECT name, SUM(points) AS total_points, COUNT(*) AS games_played
		FROM game_results
		GROUP BY name
		ORDER BY total_points DESC, name ASC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch leaderboard: %w", err)
	}
	defer rows.Close()

	var out []model.LeaderboardRow
	for rows.Next() {
		var row model.LeaderboardRow
		if err := rows.Scan(&row.Name, &row.TotalPoints, &row.GamesPlayed); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard row: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate leaderboard: %w", err)
	}
	return out, nil
}

// ChatTotals returns per-name totals for one chat, used by the status
// surface.
func (r *ResultRepository) ChatTotals(ctx context.Context, chatID int64, limit int) ([]model.LeaderboardRow, error) {
	const query = `
		SELECT name, SUM(points) AS total_points, COUNT(*) AS games_played
		FROM game_results
		WHERE chat_id = $1
		GROUP BY name
		ORDER BY total_points DESC, name ASC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, chatID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chat totals: %w", err)
	}
	defer rows.Close()

	var out []model.LeaderboardRow
	for rows.Next() {
		var row model.LeaderboardRow
		if err := rows.Scan(&row.Name, &row.TotalPoints, &row.GamesPlayed); err != nil {
			return nil, fmt.Errorf("failed to scan chat total: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chat totals: %w", err)
	}
	return out, nil
}
