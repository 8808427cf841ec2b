package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/certiva/examportal-backend/internal/config"
	"github.com/certiva/examportal-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	batchSize    = 50
	batchTimeout = 2 * time.Second
	pollTimeout  = 1 * time.Second // BLPop minimum granularity
)

// AutosaveWorker drains the answer persistence queue into PostgreSQL. Redis
// holds the hot copy; this worker is the write-behind path that makes
// answers survive a Redis restart.
type AutosaveWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

// NewAutosaveWorker creates a new AutosaveWorker.
func NewAutosaveWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *AutosaveWorker {
	return &AutosaveWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "autosave_worker").Logger(),
	}
}

// Start begins the worker loop. Call in a goroutine; it exits when ctx is
// cancelled, flushing whatever is buffered first.
func (w *AutosaveWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	buffer := make([]*model.AutosaveRecord, 0, batchSize)
	lastFlush := time.Now()

	for {
		if len(buffer) > 0 && (len(buffer) >= batchSize || time.Since(lastFlush) >= batchTimeout) {
			w.flushSafe(ctx, buffer)
			buffer = buffer[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.shutdown(buffer)
			return
		default:
		}

		result, err := w.rdb.BLPop(ctx, pollTimeout, config.WorkerKey.PersistAnswersQueue).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue // Queue empty, loop back to the flush timer
			}
			if ctx.Err() != nil {
				w.shutdown(buffer)
				return
			}
			w.log.Error().Err(err).Msg("Redis connection error, sleeping 3s")
			time.Sleep(3 * time.Second)
			continue
		}
		if len(result) < 2 {
			continue
		}

		var rec model.AutosaveRecord
		if err := json.Unmarshal([]byte(result[1]), &rec); err != nil {
			// Malformed JSON cannot be retried. Log and discard.
			w.log.Error().Err(err).Str("data", result[1]).Msg("Discarding malformed autosave")
			continue
		}
		buffer = append(buffer, &rec)
	}
}

// flushSafe tries one bulk upsert, then falls back to row-by-row with
// requeue so a single bad record cannot sink the batch.
func (w *AutosaveWorker) flushSafe(ctx context.Context, batch []*model.AutosaveRecord) {
	if err := w.bulkUpsert(ctx, batch); err != nil {
		w.log.Warn().Err(err).Int("count", len(batch)).Msg("Bulk upsert failed, attempting row-by-row recovery")
		w.fallbackUpsert(ctx, batch)
	}
}

func (w *AutosaveWorker) bulkUpsert(ctx context.Context, batch []*model.AutosaveRecord) error {
	attemptIDs := make([]uuid.UUID, 0, len(batch))
	questionIDs := make([]uuid.UUID, 0, len(batch))
	options := make([]int, 0, len(batch))
	savedAts := make([]time.Time, 0, len(batch))

	for _, rec := range batch {
		attemptID, err := uuid.Parse(rec.AttemptID)
		if err != nil {
			return err // fallback will isolate the bad record
		}
		questionID, err := uuid.Parse(rec.QuestionID)
		if err != nil {
			return err
		}
		attemptIDs = append(attemptIDs, attemptID)
		questionIDs = append(questionIDs, questionID)
		options = append(options, rec.SelectedOption)
		savedAts = append(savedAts, time.Unix(rec.SavedAt, 0))
	}

	// CopyFrom cannot upsert, so bulk via UNNEST. Later saves win on the
	// same (attempt, question) pair.
	_, err := w.pool.Exec(ctx,
		`INSERT INTO attempt_answers (attempt_id, question_id, selected_option, saved_at)
		 SELECT * FROM UNNEST($1::uuid[], $2::uuid[], $3::int[], $4::timestamptz[])
		 ON CONFLICT (attempt_id, question_id) DO UPDATE
		 SET selected_option = EXCLUDED.selected_option, saved_at = EXCLUDED.saved_at
		 WHERE attempt_answers.saved_at <= EXCLUDED.saved_at`,
		attemptIDs, questionIDs, options, savedAts,
	)
	return err
}

func (w *AutosaveWorker) fallbackUpsert(ctx context.Context, batch []*model.AutosaveRecord) {
	requeueList := make([]*model.AutosaveRecord, 0)

	for _, rec := range batch {
		attemptID, err := uuid.Parse(rec.AttemptID)
		if err != nil {
			w.log.Error().Str("attempt_id", rec.AttemptID).Msg("Dropping autosave with invalid attempt UUID")
			continue
		}
		questionID, err := uuid.Parse(rec.QuestionID)
		if err != nil {
			w.log.Error().Str("question_id", rec.QuestionID).Msg("Dropping autosave with invalid question UUID")
			continue
		}

		_, err = w.pool.Exec(ctx,
			`INSERT INTO attempt_answers (attempt_id, question_id, selected_option, saved_at)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (attempt_id, question_id) DO UPDATE
			 SET selected_option = EXCLUDED.selected_option, saved_at = EXCLUDED.saved_at
			 WHERE attempt_answers.saved_at <= EXCLUDED.saved_at`,
			attemptID, questionID, rec.SelectedOption, time.Unix(rec.SavedAt, 0),
		)
		if err != nil {
			w.log.Error().Err(err).Str("attempt_id", rec.AttemptID).Msg("Upsert failed, requeueing")
			requeueList = append(requeueList, rec)
		}
	}

	if len(requeueList) > 0 {
		w.requeue(ctx, requeueList)
	}
}

func (w *AutosaveWorker) requeue(ctx context.Context, items []*model.AutosaveRecord) {
	pipe := w.rdb.Pipeline()
	for _, rec := range items {
		data, _ := json.Marshal(rec)
		pipe.RPush(ctx, config.WorkerKey.PersistAnswersQueue, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		w.log.Error().Err(err).Msg("CRITICAL: Failed to requeue autosaves. Data loss occurred.")
		return
	}
	w.log.Info().Int("count", len(items)).Msg("Requeued failed autosaves")
	// Avoid thrashing if the DB is down hard.
	time.Sleep(2 * time.Second)
}

func (w *AutosaveWorker) shutdown(buffer []*model.AutosaveRecord) {
	w.log.Info().Msg("Worker stopping, flushing remaining buffer...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if len(buffer) > 0 {
		w.flushSafe(shutdownCtx, buffer)
	}
	w.log.Info().Msg("Worker stopped")
}
