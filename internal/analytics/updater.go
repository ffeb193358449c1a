// Package analytics maintains per-quiz rollups derived from completed attempts.
package analytics

import (
	"context"
	"fmt"
	"math"

	"github.com/mind-engage/mindengage-progress/internal/course"
)

type Store interface {
	ListAttempts(ctx context.Context, opts course.AttemptListOpts) ([]course.QuizAttempt, error)
	UpdateQuizAnalytics(ctx context.Context, quizID int64, a course.QuizAnalytics) error
}

type Updater struct {
	store Store
}

func NewUpdater(s Store) *Updater { return &Updater{store: s} }

// Recompute rebuilds the quiz's analytics from all of its completed attempts
// and writes them back. Calling it twice yields the same result.
func (u *Updater) Recompute(ctx context.Context, quizID int64) (course.QuizAnalytics, error) {
	attempts, err := u.store.ListAttempts(ctx, course.AttemptListOpts{
		QuizID: quizID,
		Status: course.AttemptCompleted,
	})
	if err != nil {
		return course.QuizAnalytics{}, fmt.Errorf("analytics: list attempts for quiz %d: %w", quizID, err)
	}
	a := Summarize(attempts)
	if err := u.store.UpdateQuizAnalytics(ctx, quizID, a); err != nil {
		return course.QuizAnalytics{}, fmt.Errorf("analytics: update quiz %d: %w", quizID, err)
	}
	return a, nil
}

// Summarize computes the rollup over attempts; all fields are 0 for none.
func Summarize(attempts []course.QuizAttempt) course.QuizAnalytics {
	n := len(attempts)
	if n == 0 {
		return course.QuizAnalytics{}
	}
	var scoreSum, timeSum float64
	passed := 0
	for _, a := range attempts {
		scoreSum += float64(a.Scoring.Score)
		timeSum += float64(a.TimeSpent)
		if a.Scoring.Passed {
			passed++
		}
	}
	return course.QuizAnalytics{
		TotalAttempts:    n,
		AverageScore:     int(math.Round(scoreSum / float64(n))),
		PassRate:         int(math.Round(100 * float64(passed) / float64(n))),
		AverageTimeSpent: int(math.Round(timeSum / float64(n))),
	}
}
