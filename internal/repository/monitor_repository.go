package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/certiva/examportal-backend/internal/config"
	"github.com/certiva/examportal-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// ActiveAttemptRow is one live row in the admin monitor: the attempt plus
// the student identity needed to render it.
type ActiveAttemptRow struct {
	Attempt     model.Attempt `json:"attempt"`
	StudentName string        `json:"student_name"`
	RollNumber  string        `json:"roll_number"`
}

// MonitorRepository provides data access for the live exam monitoring feature.
// It combines PostgreSQL (attempt state) and Redis (live answer counts).
type MonitorRepository struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
}

// NewMonitorRepository creates a new MonitorRepository.
func NewMonitorRepository(pool *pgxpool.Pool, rdb *redis.Client) *MonitorRepository {
	return &MonitorRepository{pool: pool, rdb: rdb}
}

// GetActiveAttempts returns in-progress and suspended attempts for an exam
// with the owning student attached.
func (r *MonitorRepository) GetActiveAttempts(ctx context.Context, examID uuid.UUID) ([]ActiveAttemptRow, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT a.id, a.student_id, a.exam_id, a.attempt_number, a.status,
		        a.started_at, a.last_active_at, a.suspended_at,
		        a.selected_question_ids, a.total_questions,
		        a.extra_incidents_allowed, s.name, s.roll_number
		 FROM attempts a
		 JOIN students s ON a.student_id = s.id
		 WHERE a.exam_id = $1 AND a.status IN ($2, $3)
		 ORDER BY s.name ASC`,
		examID, model.AttemptStatusInProgress, model.AttemptStatusSuspended)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ActiveAttemptRow
	for rows.Next() {
		var row ActiveAttemptRow
		var selected []byte
		if err := rows.Scan(
			&row.Attempt.ID, &row.Attempt.StudentID, &row.Attempt.ExamID,
			&row.Attempt.AttemptNumber, &row.Attempt.Status,
			&row.Attempt.StartedAt, &row.Attempt.LastActiveAt, &row.Attempt.SuspendedAt,
			&selected, &row.Attempt.TotalQuestions,
			&row.Attempt.ExtraIncidentsAllowed, &row.StudentName, &row.RollNumber,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(selected, &row.Attempt.SelectedQuestionIDs); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// GetAnsweredCounts returns the autosaved answer count for each attempt using
// the live Redis hashes, best effort per attempt.
func (r *MonitorRepository) GetAnsweredCounts(ctx context.Context, attemptIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	counts := make(map[uuid.UUID]int64, len(attemptIDs))

	pipe := r.rdb.Pipeline()
	cmds := make(map[uuid.UUID]*redis.IntCmd, len(attemptIDs))
	for _, id := range attemptIDs {
		cmds[id] = pipe.HLen(ctx, config.CacheKey.AttemptAnswersKey(id.String()))
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, err
	}

	for id, cmd := range cmds {
		counts[id] = cmd.Val()
	}
	return counts, nil
}

// GetLiveLastActive overlays Redis heartbeat timestamps onto attempts; the
// Redis value is fresher than the DB row when the websocket stream is up.
func (r *MonitorRepository) GetLiveLastActive(ctx context.Context, attemptIDs []uuid.UUID) (map[uuid.UUID]time.Time, error) {
	out := make(map[uuid.UUID]time.Time, len(attemptIDs))

	pipe := r.rdb.Pipeline()
	cmds := make(map[uuid.UUID]*redis.StringCmd, len(attemptIDs))
	for _, id := range attemptIDs {
		cmds[id] = pipe.Get(ctx, config.CacheKey.AttemptLastActiveKey(id.String()))
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, err
	}

	for id, cmd := range cmds {
		unix, err := cmd.Int64()
		if err != nil {
			continue // No heartbeat cached for this attempt
		}
		out[id] = time.Unix(unix, 0)
	}
	return out, nil
}
