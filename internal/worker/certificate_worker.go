package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/certiva/examportal-backend/internal/config"
	"github.com/certiva/examportal-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// CertificateWorker consumes the certificate dispatch queue and records an
// issuance per passed attempt. Rendering and delivery of the document
// happen in a downstream system; this worker owns the issuance record and
// its serial.
type CertificateWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

// NewCertificateWorker creates a new CertificateWorker.
func NewCertificateWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *CertificateWorker {
	return &CertificateWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "certificate_worker").Logger(),
	}
}

// Start begins the worker loop. Call in a goroutine.
func (w *CertificateWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			w.drain(context.Background())
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *CertificateWorker) processNext(ctx context.Context) {
	result, err := w.rdb.BLPop(ctx, pollTimeout, config.WorkerKey.DispatchCertificatesQueue).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
		}
		return
	}
	if len(result) < 2 {
		return
	}

	var payload model.CertificateDispatch
	if err := json.Unmarshal([]byte(result[1]), &payload); err != nil {
		w.log.Error().Err(err).Str("data", result[1]).Msg("Discarding malformed dispatch")
		return
	}

	if err := w.issue(ctx, &payload); err != nil {
		w.log.Error().Err(err).
			Str("attempt_id", payload.AttemptID).
			Msg("Issue error, requeueing in 5s")
		w.rdb.RPush(ctx, config.WorkerKey.DispatchCertificatesQueue, result[1])
		time.Sleep(5 * time.Second)
	}
}

// issue records the certificate and stamps it on the attempt. Both steps are
// idempotent, so a redelivered dispatch cannot double-issue.
func (w *CertificateWorker) issue(ctx context.Context, p *model.CertificateDispatch) error {
	attemptID, err := uuid.Parse(p.AttemptID)
	if err != nil {
		w.log.Error().Str("attempt_id", p.AttemptID).Msg("Dropping dispatch with invalid attempt UUID")
		return nil
	}
	examID, err := uuid.Parse(p.ExamID)
	if err != nil {
		w.log.Error().Str("exam_id", p.ExamID).Msg("Dropping dispatch with invalid exam UUID")
		return nil
	}

	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	certID := uuid.New()
	var issuedID uuid.UUID
	err = tx.QueryRow(ctx,
		`INSERT INTO certificates (id, attempt_id, student_id, exam_id, serial, issued_at)
		 VALUES ($1, $2, $3, $4, $5, NOW())
		 ON CONFLICT (attempt_id) DO UPDATE SET attempt_id = EXCLUDED.attempt_id
		 RETURNING id`,
		certID, attemptID, p.StudentID, examID, serialFor(certID),
	).Scan(&issuedID)
	if err != nil {
		return fmt.Errorf("insert certificate: %w", err)
	}

	// Stamp only passed, unstamped attempts; a redelivery is a no-op.
	_, err = tx.Exec(ctx,
		`UPDATE attempts SET certificate_id = $2
		 WHERE id = $1 AND passed = TRUE AND certificate_id IS NULL`,
		attemptID, issuedID,
	)
	if err != nil {
		return fmt.Errorf("stamp attempt: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	w.log.Info().
		Str("attempt_id", p.AttemptID).
		Str("certificate_id", issuedID.String()).
		Msg("Certificate issued")
	return nil
}

// serialFor derives a human-readable serial from the certificate UUID.
func serialFor(id uuid.UUID) string {
	return fmt.Sprintf("CERT-%s", id.String()[:8])
}

func (w *CertificateWorker) drain(ctx context.Context) {
	drained := 0
	for {
		result, err := w.rdb.LPop(ctx, config.WorkerKey.DispatchCertificatesQueue).Result()
		if err != nil {
			break
		}

		var payload model.CertificateDispatch
		if err := json.Unmarshal([]byte(result), &payload); err != nil {
			w.log.Error().Err(err).Msg("Drain unmarshal error")
			continue
		}
		if err := w.issue(ctx, &payload); err != nil {
			w.log.Error().Err(err).Msg("Drain issue error")
			w.rdb.RPush(ctx, config.WorkerKey.DispatchCertificatesQueue, result)
			break
		}
		drained++
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining dispatches")
	}
}
