// Package progress maintains the per-user, per-course completion record.
package progress

import (
	"context"
	"fmt"
	"time"

	"github.com/mind-engage/mindengage-progress/internal/apperr"
	"github.com/mind-engage/mindengage-progress/internal/config"
	"github.com/mind-engage/mindengage-progress/internal/course"
	"github.com/mind-engage/mindengage-progress/internal/grading"
	"github.com/mind-engage/mindengage-progress/internal/sequence"
)

type Store interface {
	LoadCurriculum(ctx context.Context, courseID int64) (course.Course, error)
	GetQuiz(ctx context.Context, id int64) (course.Quiz, error)
	CountAttempts(ctx context.Context, opts course.AttemptListOpts) (int, error)
	course.ProgressStore
}

type Aggregator struct {
	store  Store
	policy config.Policy
	now    func() time.Time
}

type Option func(*Aggregator)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

func NewAggregator(s Store, p config.Policy, opts ...Option) *Aggregator {
	a := &Aggregator{store: s, policy: p, now: time.Now}
	for _, o := range opts {
		o(a)
	}
	return a
}

// LessonUpdate is one lesson-watch event. Nil fields were not supplied.
type LessonUpdate struct {
	UserID          int64
	CourseID        int64
	LessonID        int64
	IsCompleted     *bool
	Progress        *float64 // 0-100
	PositionSeconds *float64
	DurationSeconds *float64
}

// Summary is the short form returned after a write.
type Summary struct {
	TotalLessons       int                   `json:"totalLessons"`
	CompletedLessons   int                   `json:"completedLessons"`
	ProgressPercentage int                   `json:"progressPercentage"`
	Status             course.ProgressStatus `json:"status"`
}

// RecordLessonProgress upserts the lesson's watch state and applies the
// completion rule: the lesson is completed when IsCompleted is true or
// Progress reaches the auto-complete threshold; otherwise an explicit
// IsCompleted=false removes it.
func (a *Aggregator) RecordLessonProgress(ctx context.Context, u LessonUpdate) (Summary, error) {
	c, err := a.store.LoadCurriculum(ctx, u.CourseID)
	if err != nil {
		return Summary{}, err
	}
	seq := sequence.Of(c)
	if sequence.PositionOf(seq, course.KindLesson, u.LessonID) == sequence.NotFound {
		return Summary{}, apperr.Invalid("lesson %d is not part of course %d", u.LessonID, u.CourseID)
	}

	now := a.now()
	p, err := a.store.FindOrCreateProgress(ctx, u.UserID, u.CourseID, now)
	if err != nil {
		return Summary{}, fmt.Errorf("progress: load: %w", err)
	}

	upsertLessonState(&p, u, now)

	explicit := u.IsCompleted != nil && *u.IsCompleted
	watched := u.Progress != nil && *u.Progress >= a.policy.AutoCompletePercent
	switch {
	case explicit || watched:
		if !p.HasCompletedLesson(u.LessonID) {
			p.CompletedLessons = append(p.CompletedLessons, u.LessonID)
		}
	case u.IsCompleted != nil:
		p.CompletedLessons = removeID(p.CompletedLessons, u.LessonID)
	}

	s := recompute(&p, seq, now)
	if err := a.store.SaveProgress(ctx, p); err != nil {
		return Summary{}, fmt.Errorf("progress: save: %w", err)
	}
	return s, nil
}

// RecordQuizCompletion upserts the quiz score entry, and the lesson score
// entry when the quiz is attached to a lesson, then recomputes.
func (a *Aggregator) RecordQuizCompletion(ctx context.Context, userID, quizID int64, score int, passed bool) (Summary, error) {
	q, err := a.store.GetQuiz(ctx, quizID)
	if err != nil {
		return Summary{}, err
	}
	attempts, err := a.store.CountAttempts(ctx, course.AttemptListOpts{
		QuizID: quizID,
		UserID: userID,
		Status: course.AttemptCompleted,
	})
	if err != nil {
		return Summary{}, fmt.Errorf("progress: count attempts: %w", err)
	}
	c, err := a.store.LoadCurriculum(ctx, q.CourseID)
	if err != nil {
		return Summary{}, err
	}

	now := a.now()
	p, err := a.store.FindOrCreateProgress(ctx, userID, q.CourseID, now)
	if err != nil {
		return Summary{}, fmt.Errorf("progress: load: %w", err)
	}

	qs := course.QuizScore{QuizID: quizID, Score: score, Attempts: attempts, Passed: passed, CompletedAt: now}
	replaced := false
	for i := range p.QuizScores {
		if p.QuizScores[i].QuizID == quizID {
			p.QuizScores[i] = qs
			replaced = true
			break
		}
	}
	if !replaced {
		p.QuizScores = append(p.QuizScores, qs)
	}

	if q.LessonID != nil {
		ls := course.LessonScore{LessonID: *q.LessonID, QuizID: quizID, Score: score, Passed: passed, CompletedAt: now}
		replaced = false
		for i := range p.Scores {
			if p.Scores[i].LessonID == ls.LessonID {
				p.Scores[i] = ls
				replaced = true
				break
			}
		}
		if !replaced {
			p.Scores = append(p.Scores, ls)
		}
	}

	s := recompute(&p, sequence.Of(c), now)
	if err := a.store.SaveProgress(ctx, p); err != nil {
		return Summary{}, fmt.Errorf("progress: save: %w", err)
	}
	return s, nil
}

func upsertLessonState(p *course.UserProgress, u LessonUpdate, now time.Time) {
	var st *course.LessonState
	for i := range p.LessonStates {
		if p.LessonStates[i].LessonID == u.LessonID {
			st = &p.LessonStates[i]
			break
		}
	}
	if st == nil {
		p.LessonStates = append(p.LessonStates, course.LessonState{LessonID: u.LessonID})
		st = &p.LessonStates[len(p.LessonStates)-1]
	}
	if u.Progress != nil {
		st.Progress = clamp(*u.Progress, 0, 100)
	}
	if u.PositionSeconds != nil {
		st.PositionSeconds = *u.PositionSeconds
	}
	if u.DurationSeconds != nil {
		st.DurationSeconds = *u.DurationSeconds
	}
	st.LastWatchedAt = now
}

// recompute refreshes percentage, status and the one-shot timestamps.
func recompute(p *course.UserProgress, seq []sequence.Item, now time.Time) Summary {
	total := len(seq)
	done := completedItems(p)
	pct := grading.Percent(done, total)
	if pct > 100 {
		pct = 100
	}

	p.ProgressPercentage = pct
	p.Status = statusFor(pct)
	p.LastAccessedAt = now
	if p.Status != course.StatusNotStarted && p.StartedAt == nil {
		t := now
		p.StartedAt = &t
	}
	if p.Status == course.StatusCompleted && p.CompletedAt == nil {
		t := now
		p.CompletedAt = &t
	}
	return Summary{
		TotalLessons:       total,
		CompletedLessons:   done,
		ProgressPercentage: pct,
		Status:             p.Status,
	}
}

func completedItems(p *course.UserProgress) int {
	return len(p.CompletedLessons) + p.PassedQuizzes()
}

func statusFor(pct int) course.ProgressStatus {
	switch {
	case pct <= 0:
		return course.StatusNotStarted
	case pct >= 100:
		return course.StatusCompleted
	default:
		return course.StatusInProgress
	}
}

func removeID(ids []int64, id int64) []int64 {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
