package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/estudy/estudy-backend/internal/config"
	"github.com/estudy/estudy-backend/internal/model"
)

const (
	ResultBatchSize    = 50
	ResultBatchTimeout = 2 * time.Second
	ResultPollTimeout  = 1 * time.Second
)

// ResultWorker consumes persist_results_queue and writes graded outcomes to
// the attempts table in bulk.
type ResultWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

// NewResultWorker creates a new ResultWorker.
func NewResultWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *ResultWorker {
	return &ResultWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "result_worker").Logger(),
	}
}

// Start begins the worker loop with batching. Call in a goroutine.
func (w *ResultWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ResultWorker started")

	batch := make([]*model.PersistResultPayload, 0, ResultBatchSize)
	lastFlush := time.Now()

	for {
		// Should flush?
		if len(batch) > 0 &&
			(len(batch) >= ResultBatchSize || time.Since(lastFlush) >= ResultBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, ResultPollTimeout, config.WorkerKey.PersistResultsQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var p model.PersistResultPayload
			if err := json.Unmarshal([]byte(item[1]), &p); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			batch = append(batch, &p)
		}
	}
}

func (w *ResultWorker) flushSafe(ctx context.Context, batch []*model.PersistResultPayload) {
	if len(batch) == 0 {
		return
	}

	if err := w.bulkCompleteAttempts(ctx, batch); err != nil {
		w.log.Warn().Err(err).Msg("bulk attempt update failed, using fallback")

		for _, p := range batch {
			if err := w.persistSingle(ctx, p); err != nil {
				w.log.Error().Err(err).Msg("persistSingle failed — requeueing")
				raw, _ := json.Marshal(p)
				w.rdb.RPush(ctx, config.WorkerKey.PersistResultsQueue, raw)
			}
		}
		return
	}

	// After successful persistence → clear the Redis answer buffers.
	w.bulkClearSavedAnswers(ctx, batch)
}

// bulkCompleteAttempts updates a whole batch in one statement using UNNEST.
func (w *ResultWorker) bulkCompleteAttempts(ctx context.Context, batch []*model.PersistResultPayload) error {
	n := len(batch)

	testIDs := make([]uuid.UUID, 0, n)
	learners := make([]int, 0, n)
	scores := make([]float64, 0, n)
	passes := make([]bool, 0, n)
	results := make([]string, 0, n)
	finishedAts := make([]time.Time, n)

	now := time.Now()
	for i, p := range batch {
		tID, err := uuid.Parse(p.TestID)
		if err != nil {
			return err
		}
		testIDs = append(testIDs, tID)
		learners = append(learners, p.LearnerID)
		scores = append(scores, p.ScorePercent)
		passes = append(passes, p.Passed)
		results = append(results, string(p.Result))
		finishedAts[i] = now
	}

	query := `
		UPDATE attempts AS a
		SET status = 'COMPLETED',
		    score_percent = t.score_percent,
		    passed = t.passed,
		    result = t.result::jsonb,
		    finished_at = t.finished_at
		FROM (
			SELECT
				u.test_id,
				u.learner_id,
				u.score_percent,
				u.passed,
				u.result,
				u.finished_at
			FROM UNNEST(
				$1::uuid[],
				$2::int[],
				$3::float8[],
				$4::bool[],
				$5::text[],
				$6::timestamptz[]
			) AS u (test_id, learner_id, score_percent, passed, result, finished_at)
		) AS t
		WHERE a.test_id = t.test_id
		  AND a.learner_id = t.learner_id
	`

	_, err := w.pool.Exec(ctx, query, testIDs, learners, scores, passes, results, finishedAts)
	return err
}

func (w *ResultWorker) bulkClearSavedAnswers(ctx context.Context, batch []*model.PersistResultPayload) {
	pipe := w.rdb.Pipeline()

	for _, p := range batch {
		pipe.Del(ctx, config.CacheKey.LearnerAnswersKey(p.TestID, p.LearnerID))
	}

	_, _ = pipe.Exec(ctx)
}

// persistSingle is the fallback path when the bulk update fails.
func (w *ResultWorker) persistSingle(ctx context.Context, p *model.PersistResultPayload) error {
	tID, err := uuid.Parse(p.TestID)
	if err != nil {
		return err
	}

	_, err = w.pool.Exec(ctx,
		`UPDATE attempts
		 SET status = 'COMPLETED',
		     score_percent = $1,
		     passed = $2,
		     result = $3,
		     finished_at = NOW()
		 WHERE test_id = $4 AND learner_id = $5`,
		p.ScorePercent, p.Passed, p.Result, tID, p.LearnerID,
	)

	return err
}
