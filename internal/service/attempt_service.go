package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/estudy/estudy-backend/internal/config"
	"github.com/estudy/estudy-backend/internal/engine"
	"github.com/estudy/estudy-backend/internal/model"
	"github.com/estudy/estudy-backend/internal/repository"
)

// Attempt domain errors.
var (
	ErrTestNotAvailable  = errors.New("test is not available for attempts")
	ErrInvalidEntryToken = errors.New("invalid entry token")
	ErrNoActiveAttempt   = errors.New("no active attempt for this test")
	ErrAttemptCompleted  = errors.New("attempt is already completed")
)

// AttemptService handles the learner attempt lifecycle: begin, autosave,
// state reload, and submit. The hot path lives entirely in Redis; the
// workers persist to PostgreSQL behind it.
type AttemptService struct {
	attemptRepo *repository.AttemptRepository
	testRepo    *repository.TestRepository
	testSvc     *TestService
	rdb         *redis.Client
	log         zerolog.Logger
}

// NewAttemptService creates a new AttemptService.
func NewAttemptService(
	attemptRepo *repository.AttemptRepository,
	testRepo *repository.TestRepository,
	testSvc *TestService,
	rdb *redis.Client,
	log zerolog.Logger,
) *AttemptService {
	return &AttemptService{
		attemptRepo: attemptRepo,
		testRepo:    testRepo,
		testSvc:     testSvc,
		rdb:         rdb,
		log:         log.With().Str("component", "attempt_service").Logger(),
	}
}

// GetLobby returns all published tests with the learner's attempt status
// overlaid. Entry tokens never leave the server.
func (s *AttemptService) GetLobby(ctx context.Context, learnerID int) ([]model.LobbyTest, error) {
	tests, err := s.testRepo.ListPublished(ctx)
	if err != nil {
		return nil, fmt.Errorf("list published tests: %w", err)
	}

	attempts, err := s.attemptRepo.ListByLearner(ctx, learnerID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}

	attemptMap := make(map[uuid.UUID]*model.Attempt, len(attempts))
	for i := range attempts {
		attemptMap[attempts[i].TestID] = &attempts[i]
	}

	lobby := make([]model.LobbyTest, 0, len(tests))
	for _, t := range tests {
		t.EntryToken = ""
		entry := model.LobbyTest{Test: t}

		if att, ok := attemptMap[t.ID]; ok {
			entry.AttemptStatus = &att.Status
			entry.ScorePercent = att.ScorePercent
			entry.Passed = att.Passed
			if att.Status == model.AttemptStatusCompleted {
				entry.LobbyStatus = model.LobbyStatusCompleted
			} else {
				entry.LobbyStatus = model.LobbyStatusInProgress
			}
		} else {
			entry.LobbyStatus = model.LobbyStatusAvailable
		}

		lobby = append(lobby, entry)
	}

	return lobby, nil
}

// Begin validates the entry token and creates an attempt for the learner.
// Calling it again for an existing attempt is idempotent and re-caches the
// start time, which covers refreshes and device switches.
func (s *AttemptService) Begin(ctx context.Context, testID uuid.UUID, learnerID int, entryToken string) (*model.Attempt, error) {
	test, err := s.testRepo.GetByID(ctx, testID)
	if err != nil {
		return nil, fmt.Errorf("get test: %w", err)
	}

	if test.Status != model.TestStatusPublished {
		return nil, ErrTestNotAvailable
	}
	if test.EntryToken != entryToken {
		return nil, ErrInvalidEntryToken
	}

	existing, err := s.attemptRepo.GetByTestAndLearner(ctx, testID, learnerID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("check existing attempt: %w", err)
	}

	if existing != nil {
		if existing.Status == model.AttemptStatusCompleted {
			return nil, ErrAttemptCompleted
		}
		startKey := config.CacheKey.AttemptStartKey(testID.String(), learnerID)
		_ = s.rdb.Set(ctx, startKey, existing.StartedAt.Unix(), 0)
		return existing, nil
	}

	attempt := &model.Attempt{
		TestID:    testID,
		LearnerID: learnerID,
		Status:    model.AttemptStatusInProgress,
	}

	if err := s.attemptRepo.Create(ctx, attempt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Concurrent begin detected; the other request won the insert.
			existing, fetchErr := s.attemptRepo.GetByTestAndLearner(ctx, testID, learnerID)
			if fetchErr != nil {
				return nil, fmt.Errorf("concurrent begin detected, but fetch failed: %w", fetchErr)
			}
			return existing, nil
		}
		return nil, fmt.Errorf("create attempt: %w", err)
	}

	// Cache the authoritative start time. The fallback in GetState handles a
	// write failure here.
	startKey := config.CacheKey.AttemptStartKey(testID.String(), learnerID)
	if err := s.rdb.Set(ctx, startKey, attempt.StartedAt.Unix(), 0).Err(); err != nil {
		s.log.Warn().Err(err).
			Str("test_id", testID.String()).
			Int("learner_id", learnerID).
			Msg("Failed to cache start time")
	}

	return attempt, nil
}

// VerifyActive checks that a learner has an IN_PROGRESS attempt for the test.
func (s *AttemptService) VerifyActive(ctx context.Context, testID uuid.UUID, learnerID int) error {
	att, err := s.attemptRepo.GetByTestAndLearner(ctx, testID, learnerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNoActiveAttempt
		}
		return fmt.Errorf("get attempt: %w", err)
	}
	if att.Status == model.AttemptStatusCompleted {
		return ErrAttemptCompleted
	}
	return nil
}

// GetState rebuilds an in-progress attempt for a reconnecting client:
// saved answers, remaining seconds, warning level, and answer progress.
func (s *AttemptService) GetState(ctx context.Context, testID uuid.UUID, learnerID int) (*model.AttemptState, error) {
	answersKey := config.CacheKey.LearnerAnswersKey(testID.String(), learnerID)
	rawAnswers, err := s.rdb.HGetAll(ctx, answersKey).Result()
	if err != nil {
		return nil, fmt.Errorf("get saved answers: %w", err)
	}

	saved := make(map[string][]uuid.UUID, len(rawAnswers))
	answered := 0
	for qid, raw := range rawAnswers {
		var optionIDs []uuid.UUID
		if err := json.Unmarshal([]byte(raw), &optionIDs); err != nil {
			s.log.Warn().Err(err).Str("question_id", qid).Msg("Skipping malformed saved answer")
			continue
		}
		saved[qid] = optionIDs
		if len(optionIDs) > 0 {
			answered++
		}
	}

	durationStr, err := s.rdb.Get(ctx, config.CacheKey.TestDurationKey(testID.String())).Result()
	if err != nil {
		return nil, fmt.Errorf("get test duration: %w", err)
	}
	durationMinutes, err := strconv.Atoi(durationStr)
	if err != nil {
		return nil, fmt.Errorf("invalid duration format in redis: %w", err)
	}

	startTimeUnix, err := s.resolveStartTime(ctx, testID, learnerID)
	if err != nil {
		return nil, err
	}

	startTime := time.Unix(startTimeUnix, 0)
	endTime := startTime.Add(time.Duration(durationMinutes) * time.Minute)
	remaining := time.Until(endTime)
	if remaining < 0 {
		remaining = 0
	}

	totalSeconds := durationMinutes * 60
	secondsRemaining := int(remaining.Seconds())

	def, err := s.testSvc.GetDefinition(ctx, testID)
	if err != nil {
		return nil, fmt.Errorf("get definition: %w", err)
	}
	total := def.TotalQuestions()

	progress := engine.OverallProgress{
		Total:    total,
		Answered: answered,
	}
	if total > 0 {
		progress.Percentage = float64(answered) / float64(total) * 100
	}

	return &model.AttemptState{
		TestID:           testID,
		LearnerID:        learnerID,
		SavedAnswers:     saved,
		SecondsRemaining: secondsRemaining,
		WarningLevel:     engine.ClassifyWarning(secondsRemaining, totalSeconds),
		Progress:         progress,
	}, nil
}

// resolveStartTime reads the attempt start from Redis, falling back to
// PostgreSQL and re-caching on a miss.
func (s *AttemptService) resolveStartTime(ctx context.Context, testID uuid.UUID, learnerID int) (int64, error) {
	startKey := config.CacheKey.AttemptStartKey(testID.String(), learnerID)

	val, err := s.rdb.Get(ctx, startKey).Result()
	if errors.Is(err, redis.Nil) {
		att, dbErr := s.attemptRepo.GetByTestAndLearner(ctx, testID, learnerID)
		if dbErr != nil {
			return 0, fmt.Errorf("attempt not found in cache or db: %w", dbErr)
		}

		startTimeUnix := att.StartedAt.Unix()
		_ = s.rdb.Set(ctx, startKey, startTimeUnix, 0)
		return startTimeUnix, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis error getting start time: %w", err)
	}

	startTimeUnix, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid start time format in cache: %w", err)
	}
	return startTimeUnix, nil
}

// SaveAnswer replaces the selection for one question in the Redis hash and
// queues the write-behind persist. Re-answering overwrites; an empty option
// list is a valid explicit selection.
func (s *AttemptService) SaveAnswer(ctx context.Context, testID uuid.UUID, learnerID int, questionID uuid.UUID, optionIDs []uuid.UUID) error {
	if optionIDs == nil {
		optionIDs = []uuid.UUID{}
	}

	selectionJSON, err := json.Marshal(optionIDs)
	if err != nil {
		return fmt.Errorf("marshal selection: %w", err)
	}

	answersKey := config.CacheKey.LearnerAnswersKey(testID.String(), learnerID)
	if err := s.rdb.HSet(ctx, answersKey, questionID.String(), selectionJSON).Err(); err != nil {
		return fmt.Errorf("save answer: %w", err)
	}

	optionStrs := make([]string, len(optionIDs))
	for i, id := range optionIDs {
		optionStrs[i] = id.String()
	}

	payload, err := json.Marshal(model.PersistAnswerPayload{
		LearnerID:  learnerID,
		TestID:     testID.String(),
		QuestionID: questionID.String(),
		OptionIDs:  optionStrs,
	})
	if err != nil {
		return fmt.Errorf("marshal persist payload: %w", err)
	}

	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistAnswersQueue, payload).Err(); err != nil {
		return fmt.Errorf("queue persist: %w", err)
	}
	return nil
}

// Submit grades the attempt in RAM from the cached definition and saved
// answers, queues the result persist, and returns the full graded result.
// A repeated submit returns ErrAttemptCompleted.
func (s *AttemptService) Submit(ctx context.Context, testID uuid.UUID, learnerID int) (*engine.TestResult, error) {
	if err := s.VerifyActive(ctx, testID, learnerID); err != nil {
		return nil, err
	}

	def, err := s.testSvc.GetDefinition(ctx, testID)
	if err != nil {
		return nil, fmt.Errorf("get definition: %w", err)
	}

	answersKey := config.CacheKey.LearnerAnswersKey(testID.String(), learnerID)
	rawAnswers, err := s.rdb.HGetAll(ctx, answersKey).Result()
	if err != nil {
		return nil, fmt.Errorf("get saved answers: %w", err)
	}

	answers := make(map[uuid.UUID]engine.Selection, len(rawAnswers))
	for qidStr, raw := range rawAnswers {
		qid, err := uuid.Parse(qidStr)
		if err != nil {
			s.log.Warn().Str("question_id", qidStr).Msg("Skipping malformed question id")
			continue
		}

		var optionIDs []uuid.UUID
		if err := json.Unmarshal([]byte(raw), &optionIDs); err != nil {
			s.log.Warn().Err(err).Str("question_id", qidStr).Msg("Skipping malformed saved answer")
			continue
		}
		answers[qid] = engine.NewSelection(optionIDs...)
	}

	result, err := engine.Grade(def, answers)
	if err != nil {
		return nil, fmt.Errorf("grade attempt: %w", err)
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}

	payload, err := json.Marshal(model.PersistResultPayload{
		LearnerID:    learnerID,
		TestID:       testID.String(),
		ScorePercent: result.Percentage,
		Passed:       result.Passed,
		Result:       resultJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal persist payload: %w", err)
	}

	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistResultsQueue, payload).Err(); err != nil {
		return nil, fmt.Errorf("queue result persist: %w", err)
	}

	// Drop the start-time key so a stale client cannot resurrect the timer.
	_ = s.rdb.Del(ctx, config.CacheKey.AttemptStartKey(testID.String(), learnerID))

	s.log.Info().
		Str("test_id", testID.String()).
		Int("learner_id", learnerID).
		Float64("score", result.Percentage).
		Bool("passed", result.Passed).
		Msg("Attempt submitted")

	return result, nil
}

// GetResult returns a learner's own completed attempt.
func (s *AttemptService) GetResult(ctx context.Context, testID uuid.UUID, learnerID int) (*model.Attempt, error) {
	att, err := s.attemptRepo.GetByTestAndLearner(ctx, testID, learnerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoActiveAttempt
		}
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	return att, nil
}

// GetResults retrieves paginated attempt results for the author results page.
func (s *AttemptService) GetResults(ctx context.Context, testID uuid.UUID, authorID, page, perPage int, passed *bool) ([]repository.AttemptResult, int64, error) {
	test, err := s.testRepo.GetByID(ctx, testID)
	if err != nil {
		return nil, 0, fmt.Errorf("get test: %w", err)
	}
	if test.AuthorID != authorID {
		return nil, 0, ErrNotTestAuthor
	}
	return s.attemptRepo.ListByTest(ctx, testID, page, perPage, passed)
}
