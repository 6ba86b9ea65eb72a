// Package service provides business logic implementations.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"telegram-trivia-bot/internal/game"
	"telegram-trivia-bot/internal/model"
	"telegram-trivia-bot/internal/repository"
)

// QuizService supplies question sets to the game engine. It implements
// game.QuestionSource on top of the question store, applying configured
// defaults when the stored quiz does not set its own size or time limit.
type QuizService struct {
	questions *repository.QuestionRepository
}

// NewQuizService creates a new QuizService instance.
func NewQuizService(questions *repository.QuestionRepository) *QuizService {
	return &QuizService{questions: questions}
}

// FetchQuestionSet picks a quiz for the mode and loads its question
// subset. size and timeLimit are the configured fallbacks used when the
// stored quiz leaves them unset.
func (s *QuizService) FetchQuestionSet(ctx context.Context, mode game.Mode, chatID int64, size int, timeLimit time.Duration) (model.QuizInfo, []model.Question, error) {
	info, err := s.questions.FetchQuizInfo(ctx, mode.String())
	if err != nil {
		if errors.Is(err, repository.ErrQuizNotFound) {
			return model.QuizInfo{}, nil, game.ErrNoQuestions
		}
		return model.QuizInfo{}, nil, fmt.Errorf("failed to pick quiz: %w", err)
	}

	if info.QuestionCount > 0 {
		size = info.QuestionCount
	}
	if info.TimePerAnswer <= 0 {
		info.TimePerAnswer = timeLimit
	}

	questions, err := s.questions.FetchQuestions(ctx, size)
	if err != nil {
		return model.QuizInfo{}, nil, fmt.Errorf("failed to load questions: %w", err)
	}

	// The per-question limit comes from the quiz; the engine falls back
	// to its own default when zero.
	for i := range questions {
		questions[i].TimeLimit = info.TimePerAnswer
	}
	return info, questions, nil
}
