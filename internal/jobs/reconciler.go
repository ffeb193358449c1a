// Package jobs runs background maintenance on a schedule.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/mind-engage/mindengage-progress/internal/course"
	"github.com/mind-engage/mindengage-progress/internal/logger"
	"github.com/mind-engage/mindengage-progress/internal/progress"
	syncx "github.com/mind-engage/mindengage-progress/internal/sync"
)

const defaultMaxRetries = 5

type EventSource interface {
	Pending(ctx context.Context, limit, maxRetries int) ([]syncx.Event, error)
	MarkDone(ctx context.Context, seq int64) error
	MarkFailed(ctx context.Context, seq int64, cause error) error
}

type AnalyticsRecomputer interface {
	Recompute(ctx context.Context, quizID int64) (course.QuizAnalytics, error)
}

type AttemptLister interface {
	ListAttempts(ctx context.Context, opts course.AttemptListOpts) ([]course.QuizAttempt, error)
}

type QuizCompletionRecorder interface {
	RecordQuizCompletion(ctx context.Context, userID, quizID int64, score int, passed bool) (progress.Summary, error)
}

// Reconciler replays side effects that failed after a submission.
type Reconciler struct {
	events     EventSource
	attempts   AttemptLister
	analytics  AnalyticsRecomputer
	progress   QuizCompletionRecorder
	log        *logger.Logger
	batch      int
	maxRetries int

	scheduler *gocron.Scheduler
}

func NewReconciler(ev EventSource, at AttemptLister, a AnalyticsRecomputer, p QuizCompletionRecorder, log *logger.Logger, batch int) *Reconciler {
	if log == nil {
		log = logger.Nop()
	}
	if batch <= 0 {
		batch = 100
	}
	return &Reconciler{
		events:     ev,
		attempts:   at,
		analytics:  a,
		progress:   p,
		log:        log,
		batch:      batch,
		maxRetries: defaultMaxRetries,
	}
}

// RunOnce drains one batch of pending events.
func (r *Reconciler) RunOnce(ctx context.Context) (done, failed int, err error) {
	evs, err := r.events.Pending(ctx, r.batch, r.maxRetries)
	if err != nil {
		return 0, 0, fmt.Errorf("jobs: pending events: %w", err)
	}
	for _, e := range evs {
		if perr := r.replay(ctx, e); perr != nil {
			failed++
			r.log.Warn("event replay failed", "seq", e.Seq, "type", e.Type, "key", e.Key, "retries", e.Retries+1, "error", perr)
			if err := r.events.MarkFailed(ctx, e.Seq, perr); err != nil {
				return done, failed, fmt.Errorf("jobs: mark failed: %w", err)
			}
			continue
		}
		done++
		if err := r.events.MarkDone(ctx, e.Seq); err != nil {
			return done, failed, fmt.Errorf("jobs: mark done: %w", err)
		}
	}
	return done, failed, nil
}

func (r *Reconciler) replay(ctx context.Context, e syncx.Event) error {
	switch e.Type {
	case syncx.TypeAnalyticsStale:
		quizID, err := strconv.ParseInt(e.Key, 10, 64)
		if err != nil {
			return fmt.Errorf("bad quiz id %q", e.Key)
		}
		_, err = r.analytics.Recompute(ctx, quizID)
		return err
	case syncx.TypeProgressStale:
		var d syncx.ProgressStaleData
		if err := json.Unmarshal([]byte(e.DataJSON), &d); err != nil {
			return fmt.Errorf("bad payload: %w", err)
		}
		score, passed, err := r.latestResult(ctx, d)
		if err != nil {
			return err
		}
		_, err = r.progress.RecordQuizCompletion(ctx, d.UserID, d.QuizID, score, passed)
		return err
	default:
		return fmt.Errorf("unknown event type %q", e.Type)
	}
}

// latestResult returns the user's most recent completed result for the quiz.
// A newer submission may have landed since the event was queued; the payload
// is only used when no completed attempt is stored.
func (r *Reconciler) latestResult(ctx context.Context, d syncx.ProgressStaleData) (int, bool, error) {
	list, err := r.attempts.ListAttempts(ctx, course.AttemptListOpts{
		QuizID: d.QuizID,
		UserID: d.UserID,
		Status: course.AttemptCompleted,
	})
	if err != nil {
		return 0, false, fmt.Errorf("list attempts: %w", err)
	}
	if len(list) == 0 {
		return d.Score, d.Passed, nil
	}
	last := list[0]
	for _, a := range list[1:] {
		if a.ID > last.ID {
			last = a
		}
	}
	return last.Scoring.Score, last.Scoring.Passed, nil
}

// Start schedules RunOnce every interval. Runs never overlap.
func (r *Reconciler) Start(interval time.Duration) error {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	_, err := s.Every(interval).Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), interval)
		defer cancel()
		done, failed, err := r.RunOnce(ctx)
		if err != nil {
			r.log.Error("reconcile run failed", "error", err)
			return
		}
		if done+failed > 0 {
			r.log.Info("reconcile run", "replayed", done, "failed", failed)
		}
	})
	if err != nil {
		return fmt.Errorf("jobs: schedule reconciler: %w", err)
	}
	s.StartAsync()
	r.scheduler = s
	return nil
}

func (r *Reconciler) Stop() {
	if r.scheduler != nil {
		r.scheduler.Stop()
	}
}
