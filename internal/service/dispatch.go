package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/certiva/examportal-backend/internal/config"
	"github.com/certiva/examportal-backend/internal/model"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisCertificateDispatcher queues passed attempts for the certificate
// worker. The actual certificate rendering and delivery happen downstream.
type RedisCertificateDispatcher struct {
	rdb *redis.Client
}

// NewRedisCertificateDispatcher creates a new RedisCertificateDispatcher.
func NewRedisCertificateDispatcher(rdb *redis.Client) *RedisCertificateDispatcher {
	return &RedisCertificateDispatcher{rdb: rdb}
}

// Dispatch enqueues one certificate issuance.
func (d *RedisCertificateDispatcher) Dispatch(ctx context.Context, attemptID uuid.UUID, studentID int, examID uuid.UUID) error {
	payload, err := json.Marshal(model.CertificateDispatch{
		AttemptID: attemptID.String(),
		StudentID: studentID,
		ExamID:    examID.String(),
		QueuedAt:  time.Now().Unix(),
	})
	if err != nil {
		return fmt.Errorf("marshal dispatch: %w", err)
	}
	return d.rdb.RPush(ctx, config.WorkerKey.DispatchCertificatesQueue, payload).Err()
}
