package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/estudy/estudy-backend/internal/config"
	"github.com/estudy/estudy-backend/internal/engine"
	"github.com/estudy/estudy-backend/internal/model"
	"github.com/estudy/estudy-backend/internal/repository"
	"github.com/estudy/estudy-backend/internal/response"
)

// Domain errors.
var (
	ErrNotTestAuthor    = errors.New("not the author of this test")
	ErrTestNotDraft     = errors.New("test status is not DRAFT")
	ErrTestNotPublished = errors.New("test status is not PUBLISHED")
)

// TestService handles test business logic and Redis caching.
type TestService struct {
	testRepo *repository.TestRepository
	rdb      *redis.Client
	log      zerolog.Logger
}

// NewTestService creates a new TestService.
func NewTestService(testRepo *repository.TestRepository, rdb *redis.Client, log zerolog.Logger) *TestService {
	return &TestService{
		testRepo: testRepo,
		rdb:      rdb,
		log:      log.With().Str("component", "test_service").Logger(),
	}
}

// GetByID retrieves a test by its UUID.
func (s *TestService) GetByID(ctx context.Context, id uuid.UUID) (*model.Test, error) {
	return s.testRepo.GetByID(ctx, id)
}

// ListByAuthor retrieves paginated tests for one author.
func (s *TestService) ListByAuthor(ctx context.Context, authorID, page, perPage int) ([]model.Test, *response.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}

	limit := perPage
	offset := (page - 1) * perPage

	tests, total, err := s.testRepo.ListByAuthorPaginated(ctx, authorID, limit, offset)
	if err != nil {
		return nil, nil, err
	}

	if tests == nil {
		tests = []model.Test{}
	}

	totalPages := (total + perPage - 1) / perPage

	pagination := &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: totalPages,
	}

	return tests, pagination, nil
}

// Create inserts a new test as DRAFT.
func (s *TestService) Create(ctx context.Context, test *model.Test) error {
	test.Status = model.TestStatusDraft
	return s.testRepo.Create(ctx, test)
}

// Update modifies an existing draft test.
func (s *TestService) Update(ctx context.Context, authorID int, test *model.Test) error {
	existing, err := s.testRepo.GetByID(ctx, test.ID)
	if err != nil {
		return err
	}
	if existing.AuthorID != authorID {
		return ErrNotTestAuthor
	}
	if existing.Status != model.TestStatusDraft {
		return ErrTestNotDraft
	}
	return s.testRepo.Update(ctx, test)
}

// Delete removes a draft test.
func (s *TestService) Delete(ctx context.Context, id uuid.UUID, authorID int) error {
	existing, err := s.testRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing.AuthorID != authorID {
		return ErrNotTestAuthor
	}
	if existing.Status != model.TestStatusDraft {
		return ErrTestNotDraft
	}
	return s.testRepo.Delete(ctx, id)
}

// ReplaceStructure swaps the section/question/option tree of a draft test.
func (s *TestService) ReplaceStructure(ctx context.Context, testID uuid.UUID, authorID int, sections []model.SectionInput) error {
	existing, err := s.testRepo.GetByID(ctx, testID)
	if err != nil {
		return err
	}
	if existing.AuthorID != authorID {
		return ErrNotTestAuthor
	}
	if existing.Status != model.TestStatusDraft {
		return ErrTestNotDraft
	}
	return s.testRepo.ReplaceStructure(ctx, testID, sections)
}

// GetStructure reads the full authoring structure of a test, including
// correct-answer flags. Author use only.
func (s *TestService) GetStructure(ctx context.Context, testID uuid.UUID, authorID int) (*engine.TestDefinition, error) {
	existing, err := s.testRepo.GetByID(ctx, testID)
	if err != nil {
		return nil, err
	}
	if existing.AuthorID != authorID {
		return nil, ErrNotTestAuthor
	}
	return s.testRepo.GetDefinition(ctx, testID)
}

// Publish validates the full test definition, warms the Redis cache, and
// flips the status to PUBLISHED. A structurally invalid test never goes live;
// the validation error carries the first failing reason.
func (s *TestService) Publish(ctx context.Context, testID uuid.UUID, authorID int) error {
	test, err := s.testRepo.GetByID(ctx, testID)
	if err != nil {
		return fmt.Errorf("get test: %w", err)
	}

	if test.AuthorID != authorID {
		return ErrNotTestAuthor
	}
	if test.Status != model.TestStatusDraft {
		return ErrTestNotDraft
	}

	if err := s.WarmTestCache(ctx, test); err != nil {
		return err
	}

	if err := s.testRepo.UpdateStatus(ctx, testID, model.TestStatusPublished); err != nil {
		return fmt.Errorf("update status: %w", err)
	}

	s.log.Info().Str("test_id", testID.String()).Msg("Test published")
	return nil
}

// Archive retires a published test. Archived tests keep their attempts but
// disappear from the learner lobby and reject new attempts.
func (s *TestService) Archive(ctx context.Context, testID uuid.UUID, authorID int) error {
	test, err := s.testRepo.GetByID(ctx, testID)
	if err != nil {
		return fmt.Errorf("get test: %w", err)
	}

	if test.AuthorID != authorID {
		return ErrNotTestAuthor
	}
	if test.Status != model.TestStatusPublished {
		return ErrTestNotPublished
	}

	if err := s.testRepo.UpdateStatus(ctx, testID, model.TestStatusArchived); err != nil {
		return fmt.Errorf("update status: %w", err)
	}

	// Drop the hot cache so the portal stops serving it.
	pipe := s.rdb.Pipeline()
	pipe.Del(ctx, config.CacheKey.TestPayloadKey(testID.String()))
	pipe.Del(ctx, config.CacheKey.TestDefinitionKey(testID.String()))
	pipe.Del(ctx, config.CacheKey.TestDurationKey(testID.String()))
	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Warn().Err(err).Str("test_id", testID.String()).Msg("Failed to evict cache")
	}

	s.log.Info().Str("test_id", testID.String()).Msg("Test archived")
	return nil
}

// RefreshCache re-caches the payload + definition for a published test.
func (s *TestService) RefreshCache(ctx context.Context, testID uuid.UUID, authorID int) error {
	test, err := s.testRepo.GetByID(ctx, testID)
	if err != nil {
		return fmt.Errorf("get test: %w", err)
	}

	if test.AuthorID != authorID {
		return ErrNotTestAuthor
	}
	if test.Status != model.TestStatusPublished {
		return ErrTestNotPublished
	}

	if err := s.WarmTestCache(ctx, test); err != nil {
		return err
	}

	s.log.Info().Str("test_id", testID.String()).Msg("Cache refreshed")
	return nil
}

// WarmTestCache validates the definition and loads the learner payload, the
// grading definition, and the duration into Redis. Used by Publish,
// RefreshCache, and PrewarmAllCaches.
func (s *TestService) WarmTestCache(ctx context.Context, test *model.Test) error {
	def, err := s.testRepo.GetDefinition(ctx, test.ID)
	if err != nil {
		return fmt.Errorf("load definition: %w", err)
	}

	if err := def.Validate(); err != nil {
		return err
	}

	payloadJSON, err := json.Marshal(model.PayloadFromDefinition(def))
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	defJSON, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("marshal definition: %w", err)
	}

	// Cache all three atomically via pipeline.
	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, config.CacheKey.TestPayloadKey(test.ID.String()), payloadJSON, 0)
	pipe.Set(ctx, config.CacheKey.TestDefinitionKey(test.ID.String()), defJSON, 0)
	pipe.Set(ctx, config.CacheKey.TestDurationKey(test.ID.String()), test.DurationMinutes, 0)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache to redis: %w", err)
	}

	s.log.Debug().
		Str("test_id", test.ID.String()).
		Int("questions", def.TotalQuestions()).
		Msg("Cache warmed")
	return nil
}

// PrewarmAllCaches loads all published tests into Redis on application startup.
// This prevents lazy-loading race conditions under thundering herd traffic.
func (s *TestService) PrewarmAllCaches(ctx context.Context) error {
	tests, err := s.testRepo.ListPublished(ctx)
	if err != nil {
		return fmt.Errorf("list published tests: %w", err)
	}

	if len(tests) == 0 {
		s.log.Info().Msg("No published tests to prewarm")
		return nil
	}

	s.log.Info().Int("count", len(tests)).Msg("Prewarming published tests...")

	warmed := 0
	for i := range tests {
		if err := s.WarmTestCache(ctx, &tests[i]); err != nil {
			s.log.Warn().
				Err(err).
				Str("test_id", tests[i].ID.String()).
				Msg("Failed to warm test, skipping")
			continue
		}
		warmed++
	}

	s.log.Info().
		Int("warmed", warmed).
		Int("total", len(tests)).
		Msg("Prewarming complete")
	return nil
}

// GetPayload retrieves the cached learner payload from Redis.
func (s *TestService) GetPayload(ctx context.Context, testID uuid.UUID) (*model.TestPayload, error) {
	key := config.CacheKey.TestPayloadKey(testID.String())
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrTestNotPublished
		}
		return nil, fmt.Errorf("get payload: %w", err)
	}

	var payload model.TestPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return &payload, nil
}

// GetDefinition retrieves the grading definition for a test, preferring the
// Redis copy and falling back to PostgreSQL with a self-healing re-cache.
func (s *TestService) GetDefinition(ctx context.Context, testID uuid.UUID) (*engine.TestDefinition, error) {
	key := config.CacheKey.TestDefinitionKey(testID.String())
	data, err := s.rdb.Get(ctx, key).Bytes()

	if errors.Is(err, redis.Nil) {
		def, dbErr := s.testRepo.GetDefinition(ctx, testID)
		if dbErr != nil {
			return nil, fmt.Errorf("definition not found in cache or db: %w", dbErr)
		}

		if defJSON, mErr := json.Marshal(def); mErr == nil {
			_ = s.rdb.Set(ctx, key, defJSON, 0)
		}
		return def, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get definition: %w", err)
	}

	var def engine.TestDefinition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("unmarshal definition: %w", err)
	}
	return &def, nil
}
