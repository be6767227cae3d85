package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/estudy/estudy-backend/internal/model"
)

// AttemptResult combines learner data with their attempt outcome, as
// listed on the author's results page.
type AttemptResult struct {
	LearnerID    int                 `json:"learner_id"`
	Name         string              `json:"name"`
	Email        string              `json:"email"`
	ScorePercent *float64            `json:"score_percent"`
	Passed       *bool               `json:"passed"`
	Status       model.AttemptStatus `json:"status"`
	StartedAt    *time.Time          `json:"started_at"`
	FinishedAt   *time.Time          `json:"finished_at"`
}

// AttemptRepository handles attempt data access.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

// GetByTestAndLearner retrieves an attempt for a test-learner combination.
func (r *AttemptRepository) GetByTestAndLearner(ctx context.Context, testID uuid.UUID, learnerID int) (*model.Attempt, error) {
	a := &model.Attempt{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, test_id, learner_id, started_at, finished_at, status, score_percent, passed, result
		 FROM attempts
		 WHERE test_id = $1 AND learner_id = $2`, testID, learnerID,
	).Scan(&a.ID, &a.TestID, &a.LearnerID, &a.StartedAt, &a.FinishedAt, &a.Status,
		&a.ScorePercent, &a.Passed, &a.Result)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Create inserts a new attempt (learner begins the test).
func (r *AttemptRepository) Create(ctx context.Context, a *model.Attempt) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO attempts (test_id, learner_id, status)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (test_id, learner_id) DO NOTHING
		 RETURNING id, started_at`,
		a.TestID, a.LearnerID, model.AttemptStatusInProgress,
	).Scan(&a.ID, &a.StartedAt)
}

// ListByLearner retrieves all attempts for a given learner.
func (r *AttemptRepository) ListByLearner(ctx context.Context, learnerID int) ([]model.Attempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, test_id, learner_id, started_at, finished_at, status, score_percent, passed, result
		 FROM attempts
		 WHERE learner_id = $1
		 ORDER BY started_at DESC`, learnerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []model.Attempt
	for rows.Next() {
		var a model.Attempt
		if err := rows.Scan(&a.ID, &a.TestID, &a.LearnerID, &a.StartedAt, &a.FinishedAt,
			&a.Status, &a.ScorePercent, &a.Passed, &a.Result); err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// ListByTest retrieves paginated attempt results for one test, joined
// with learner identity, optionally filtered to passed/failed.
func (r *AttemptRepository) ListByTest(ctx context.Context, testID uuid.UUID, page, perPage int, passed *bool) ([]AttemptResult, int64, error) {
	offset := (page - 1) * perPage

	baseQuery := `
		FROM attempts a
		JOIN users u ON a.learner_id = u.id
		WHERE a.test_id = $1
	`
	args := []any{testID}

	if passed != nil {
		args = append(args, *passed)
		baseQuery += fmt.Sprintf(" AND a.passed = $%d", len(args))
	}

	var total int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) "+baseQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT u.id, u.name, u.email, a.score_percent, a.passed, a.status, a.started_at, a.finished_at
		` + baseQuery + `
		ORDER BY u.name ASC
		LIMIT $` + fmt.Sprintf("%d", len(args)+1) + ` OFFSET $` + fmt.Sprintf("%d", len(args)+2)
	args = append(args, perPage, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var results []AttemptResult
	for rows.Next() {
		var res AttemptResult
		if err := rows.Scan(&res.LearnerID, &res.Name, &res.Email, &res.ScorePercent,
			&res.Passed, &res.Status, &res.StartedAt, &res.FinishedAt); err != nil {
			return nil, 0, err
		}
		results = append(results, res)
	}

	return results, total, rows.Err()
}
