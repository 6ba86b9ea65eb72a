package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"telegram-trivia-bot/internal/model"
	"telegram-trivia-bot/internal/repository"
)

// ResultService is the score ledger consumed by the game engine and the
// leaderboard surface. It implements game.ScoreLedger.
type ResultService struct {
	results *repository.ResultRepository
}

// NewResultService creates a new ResultService instance.
func NewResultService(results *repository.ResultRepository) *ResultService {
	return &ResultService{results: results}
}

// ReportResults persists final session scores.
func (s *ResultService) ReportResults(ctx context.Context, entries []model.ScoreEntry) error {
	if err := s.results.SaveResults(ctx, entries); err != nil {
		return fmt.Errorf("failed to save results: %w", err)
	}
	log.Debug().Int("entries", len(entries)).Msg("Results reported to ledger")
	return nil
}

// Leaderboard returns the all-time top standings.
func (s *ResultService) Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardRow, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.results.Leaderboard(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load leaderboard: %w", err)
	}
	return rows, nil
}

// ChatLeaderboard returns standings scoped to one chat.
func (s *ResultService) ChatLeaderboard(ctx context.Context, chatID int64, limit int) ([]model.LeaderboardRow, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.results.ChatTotals(ctx, chatID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load chat leaderboard: %w", err)
	}
	return rows, nil
}
