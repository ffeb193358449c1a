package syncx

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
)

// Event types written when a best-effort side effect of a submission fails.
const (
	TypeAnalyticsStale = "quiz.analytics.stale" // Key: quiz id
	TypeProgressStale  = "progress.quiz.stale"  // Key: attempt id, Data: ProgressStaleData
)

// ProgressStaleData is the payload of a TypeProgressStale event.
type ProgressStaleData struct {
	UserID int64 `json:"userId"`
	QuizID int64 `json:"quizId"`
	Score  int   `json:"score"`
	Passed bool  `json:"passed"`
}

type Event struct {
	Seq         int64         `db:"seq"`
	SiteID      string        `db:"site_id"`
	Type        string        `db:"typ"`
	Key         string        `db:"key"`
	DataJSON    string        `db:"data"`
	CreatedAt   int64         `db:"created_at"`
	ProcessedAt sql.NullInt64 `db:"processed_at"`
	Retries     int           `db:"retries"`
	LastError   string        `db:"last_error"`
}

// Outbox records events for later replay.
type Outbox interface {
	Append(ctx context.Context, e Event) error
}

type EventRepo struct{ db *sqlx.DB }

func NewEventRepo(db *sqlx.DB) *EventRepo { return &EventRepo{db: db} }

func (r *EventRepo) Append(ctx context.Context, e Event) error {
	if e.SiteID == "" {
		e.SiteID = "local"
	}
	if e.DataJSON == "" {
		e.DataJSON = "{}"
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO event_log (site_id, typ, key, data, created_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		e.SiteID, e.Type, e.Key, e.DataJSON, time.Now().Unix())
	return err
}

// Pending returns unprocessed events with fewer than maxRetries failures, oldest first.
func (r *EventRepo) Pending(ctx context.Context, limit, maxRetries int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []Event
	err := r.db.SelectContext(ctx, &out,
		`SELECT seq, site_id, typ, key, data, created_at, processed_at, retries, last_error
		   FROM event_log
		  WHERE processed_at IS NULL AND retries < $1
		  ORDER BY seq
		  LIMIT $2`, maxRetries, limit)
	return out, err
}

func (r *EventRepo) MarkDone(ctx context.Context, seq int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE event_log SET processed_at=$1, last_error='' WHERE seq=$2`,
		time.Now().Unix(), seq)
	return err
}

func (r *EventRepo) MarkFailed(ctx context.Context, seq int64, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE event_log SET retries=retries+1, last_error=$1 WHERE seq=$2`,
		msg, seq)
	return err
}
