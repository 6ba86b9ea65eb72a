// Package repository provides data access layer implementations.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"telegram-trivia-bot/internal/model"
)

// Common errors for repository operations.
var (
	ErrQuizNotFound = errors.New("no quiz found for this mode")
)

// QuestionRepository loads quizzes and their questions. Question rotation
// lives here, behind the engine's QuestionSource contract: every fetch
// picks a random quiz of the requested mode and a random subset of active
// questions.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository instance.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// FetchQuizInfo picks a random quiz of the given mode ("solo", "dm",
// "team"). Returns ErrQuizNotFound when none is configured.
func (r *QuestionRepository) FetchQuizInfo(ctx context.Context, mode string) (model.QuizInfo, error) {
	const query = `
		SELECT id, name, quiz_type, amount_questions, time_to_answer
		FROM quizzes
		WHERE quiz_type = $1
		ORDER BY random()
		LIMIT 1
	`

	var info model.QuizInfo
	var timeToAnswer int
	err := r.pool.QueryRow(ctx, query, mode).Scan(
		&info.ID,
		&info.Name,
		&info.Mode,
		&info.QuestionCount,
		&timeToAnswer,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.QuizInfo{}, ErrQuizNotFound
		}
		return model.QuizInfo{}, fmt.Errorf("failed to fetch quiz info: %w", err)
	}
	info.TimePerAnswer = time.Duration(timeToAnswer) * time.Second
	return info, nil
}

// FetchQuestions loads a random subset of active questions with their
// answer options. The correct option becomes CorrectAnswer; every other
// correct-marked option of a text question extends AcceptedAnswers.
func (r *QuestionRepository) FetchQuestions(ctx context.Context, size int) ([]model.Question, error) {
	const query = `
		SELECT id, text, question_type, COALESCE(comment, ''), COALESCE(image_url, '')
		FROM questions
		WHERE status = 'active'
		ORDER BY random()
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, size)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch questions: %w", err)
	}
	defer rows.Close()

	var questions []model.Question
	ids := make([]int64, 0, size)
	for rows.Next() {
		var q model.Question
		var qType string
		if err := rows.Scan(&q.ID, &q.Text, &qType, &q.Comment, &q.ImageURL); err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		q.Type = model.QuestionType(qType)
		questions = append(questions, q)
		ids = append(ids, q.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate questions: %w", err)
	}
	if len(questions) == 0 {
		return nil, nil
	}

	if err := r.attachAnswers(ctx, questions, ids); err != nil {
		return nil, err
	}
	return questions, nil
}

// attachAnswers loads the answer options for the given question IDs and
// distributes them onto the question slice.
func (r *QuestionRepository) attachAnswers(ctx context.Context, questions []model.Question, ids []int64) error {
	const query = `
		SELECT question_id, text, is_correct
		FROM question_answers
		WHERE question_id = ANY($1)
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("failed to fetch question answers: %w", err)
	}
	defer rows.Close()

	byID := make(map[int64]*model.Question, len(questions))
	for i := range questions {
		byID[questions[i].ID] = &questions[i]
	}

	for rows.Next() {
		var questionID int64
		var text string
		var isCorrect bool
		if err := rows.Scan(&questionID, &text, &isCorrect); err != nil {
			return fmt.Errorf("failed to scan question answer: %w", err)
		}
		q, ok := byID[questionID]
		if !ok {
			continue
		}
		if isCorrect {
			if q.CorrectAnswer == "" {
				q.CorrectAnswer = text
			}
			q.AcceptedAnswers = append(q.AcceptedAnswers, text)
		} else {
			q.WrongAnswers = append(q.WrongAnswers, text)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate question answers: %w", err)
	}
	return nil
}
