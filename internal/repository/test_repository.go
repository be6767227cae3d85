package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/estudy/estudy-backend/internal/engine"
	"github.com/estudy/estudy-backend/internal/model"
)

// TestRepository handles test aggregate data access. The aggregate spans
// four tables (tests, sections, questions, answer_options); the full
// structure is read back as an engine.TestDefinition.
type TestRepository struct {
	pool *pgxpool.Pool
}

// NewTestRepository creates a new TestRepository.
func NewTestRepository(pool *pgxpool.Pool) *TestRepository {
	return &TestRepository{pool: pool}
}

// GetByID retrieves test metadata by its UUID.
func (r *TestRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Test, error) {
	t := &model.Test{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, title, description, author_id, duration_minutes, passing_score_percent,
		        question_count, entry_token, status, created_at, updated_at
		 FROM tests
		 WHERE id = $1`, id,
	).Scan(&t.ID, &t.Title, &t.Description, &t.AuthorID, &t.DurationMinutes, &t.PassingScorePercent,
		&t.QuestionCount, &t.EntryToken, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Create inserts a new test row.
func (r *TestRepository) Create(ctx context.Context, t *model.Test) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO tests (title, description, author_id, duration_minutes, passing_score_percent,
		                    question_count, entry_token, status)
		 VALUES ($1, $2, $3, $4, $5, 0, $6, $7)
		 RETURNING id, created_at, updated_at`,
		t.Title, t.Description, t.AuthorID, t.DurationMinutes, t.PassingScorePercent,
		t.EntryToken, t.Status,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
}

// Update modifies test metadata.
func (r *TestRepository) Update(ctx context.Context, t *model.Test) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE tests
		 SET title = $1, description = $2, duration_minutes = $3, passing_score_percent = $4,
		     entry_token = $5, updated_at = NOW()
		 WHERE id = $6`,
		t.Title, t.Description, t.DurationMinutes, t.PassingScorePercent, t.EntryToken, t.ID)
	return err
}

// UpdateStatus changes the lifecycle status of a test.
func (r *TestRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.TestStatus) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE tests SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	return err
}

// Delete removes a test and cascades to its structure.
func (r *TestRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM tests WHERE id = $1`, id)
	return err
}

// ListByAuthorPaginated retrieves tests for one author. authorID 0 lists all.
func (r *TestRepository) ListByAuthorPaginated(ctx context.Context, authorID, limit, offset int) ([]model.Test, int, error) {
	where := ""
	args := []any{}
	if authorID != 0 {
		where = "WHERE author_id = $1"
		args = append(args, authorID)
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM tests "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(
		`SELECT id, title, description, author_id, duration_minutes, passing_score_percent,
		        question_count, entry_token, status, created_at, updated_at
		 FROM tests %s
		 ORDER BY created_at DESC
		 LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var tests []model.Test
	for rows.Next() {
		var t model.Test
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.AuthorID, &t.DurationMinutes,
			&t.PassingScorePercent, &t.QuestionCount, &t.EntryToken, &t.Status,
			&t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, 0, err
		}
		tests = append(tests, t)
	}
	return tests, total, rows.Err()
}

// ListPublished retrieves all published tests.
func (r *TestRepository) ListPublished(ctx context.Context) ([]model.Test, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, title, description, author_id, duration_minutes, passing_score_percent,
		        question_count, entry_token, status, created_at, updated_at
		 FROM tests
		 WHERE status = $1
		 ORDER BY created_at DESC`, model.TestStatusPublished)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tests []model.Test
	for rows.Next() {
		var t model.Test
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.AuthorID, &t.DurationMinutes,
			&t.PassingScorePercent, &t.QuestionCount, &t.EntryToken, &t.Status,
			&t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		tests = append(tests, t)
	}
	return tests, rows.Err()
}

// GetDefinition reads the full section/question/option structure back as
// an engine definition, preserving stored ordering.
func (r *TestRepository) GetDefinition(ctx context.Context, testID uuid.UUID) (*engine.TestDefinition, error) {
	t, err := r.GetByID(ctx, testID)
	if err != nil {
		return nil, fmt.Errorf("get test: %w", err)
	}

	def := &engine.TestDefinition{
		ID:                  t.ID,
		Title:               t.Title,
		Description:         t.Description,
		DurationMinutes:     t.DurationMinutes,
		PassingScorePercent: t.PassingScorePercent,
		QuestionCount:       t.QuestionCount,
	}

	secRows, err := r.pool.Query(ctx,
		`SELECT id, title, description
		 FROM sections
		 WHERE test_id = $1
		 ORDER BY position ASC`, testID)
	if err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	defer secRows.Close()

	sectionIndex := make(map[uuid.UUID]int)
	for secRows.Next() {
		var sec engine.Section
		if err := secRows.Scan(&sec.ID, &sec.Title, &sec.Description); err != nil {
			return nil, err
		}
		sectionIndex[sec.ID] = len(def.Sections)
		def.Sections = append(def.Sections, sec)
	}
	if err := secRows.Err(); err != nil {
		return nil, err
	}

	qRows, err := r.pool.Query(ctx,
		`SELECT q.id, q.section_id, q.kind, q.text, q.points
		 FROM questions q
		 JOIN sections s ON q.section_id = s.id
		 WHERE s.test_id = $1
		 ORDER BY s.position ASC, q.position ASC`, testID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer qRows.Close()

	questionIndex := make(map[uuid.UUID][2]int)
	for qRows.Next() {
		var q engine.Question
		var sectionID uuid.UUID
		if err := qRows.Scan(&q.ID, &sectionID, &q.Kind, &q.Text, &q.Points); err != nil {
			return nil, err
		}
		si, ok := sectionIndex[sectionID]
		if !ok {
			return nil, fmt.Errorf("question %s references unknown section %s", q.ID, sectionID)
		}
		questionIndex[q.ID] = [2]int{si, len(def.Sections[si].Questions)}
		def.Sections[si].Questions = append(def.Sections[si].Questions, q)
	}
	if err := qRows.Err(); err != nil {
		return nil, err
	}

	optRows, err := r.pool.Query(ctx,
		`SELECT o.id, o.question_id, o.text, o.is_correct
		 FROM answer_options o
		 JOIN questions q ON o.question_id = q.id
		 JOIN sections s ON q.section_id = s.id
		 WHERE s.test_id = $1
		 ORDER BY o.position ASC`, testID)
	if err != nil {
		return nil, fmt.Errorf("list options: %w", err)
	}
	defer optRows.Close()

	for optRows.Next() {
		var opt engine.AnswerOption
		var questionID uuid.UUID
		if err := optRows.Scan(&opt.ID, &questionID, &opt.Text, &opt.IsCorrect); err != nil {
			return nil, err
		}
		pos, ok := questionIndex[questionID]
		if !ok {
			return nil, fmt.Errorf("option %s references unknown question %s", opt.ID, questionID)
		}
		q := &def.Sections[pos[0]].Questions[pos[1]]
		q.AnswerOptions = append(q.AnswerOptions, opt)
	}
	if err := optRows.Err(); err != nil {
		return nil, err
	}

	return def, nil
}

// ReplaceStructure swaps a draft test's sections/questions/options in a
// single transaction and refreshes the stored question count.
func (r *TestRepository) ReplaceStructure(ctx context.Context, testID uuid.UUID, sections []model.SectionInput) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM sections WHERE test_id = $1`, testID); err != nil {
		return fmt.Errorf("clear sections: %w", err)
	}

	questionCount := 0
	for si, sec := range sections {
		var sectionID uuid.UUID
		err := tx.QueryRow(ctx,
			`INSERT INTO sections (test_id, title, description, position)
			 VALUES ($1, $2, $3, $4)
			 RETURNING id`,
			testID, sec.Title, sec.Description, si,
		).Scan(&sectionID)
		if err != nil {
			return fmt.Errorf("insert section: %w", err)
		}

		for qi, q := range sec.Questions {
			var questionID uuid.UUID
			err := tx.QueryRow(ctx,
				`INSERT INTO questions (section_id, kind, text, points, position)
				 VALUES ($1, $2, $3, $4, $5)
				 RETURNING id`,
				sectionID, q.Kind, q.Text, q.Points, qi,
			).Scan(&questionID)
			if err != nil {
				return fmt.Errorf("insert question: %w", err)
			}
			questionCount++

			for oi, opt := range q.Options {
				if _, err := tx.Exec(ctx,
					`INSERT INTO answer_options (question_id, text, is_correct, position)
					 VALUES ($1, $2, $3, $4)`,
					questionID, opt.Text, opt.IsCorrect, oi,
				); err != nil {
					return fmt.Errorf("insert option: %w", err)
				}
			}
		}
	}

	if _, err := tx.Exec(ctx,
		`UPDATE tests SET question_count = $1, updated_at = NOW() WHERE id = $2`,
		questionCount, testID,
	); err != nil {
		return fmt.Errorf("update question count: %w", err)
	}

	return tx.Commit(ctx)
}
