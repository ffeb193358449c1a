// Package attempt governs quiz attempts: who may start one, how many, when,
// and what happens on submission.
package attempt

import (
	"context"
	"strconv"
	"time"

	"github.com/mind-engage/mindengage-progress/internal/apperr"
	"github.com/mind-engage/mindengage-progress/internal/config"
	"github.com/mind-engage/mindengage-progress/internal/course"
	"github.com/mind-engage/mindengage-progress/internal/grading"
	"github.com/mind-engage/mindengage-progress/internal/logger"
	"github.com/mind-engage/mindengage-progress/internal/progress"
	"github.com/mind-engage/mindengage-progress/internal/sequence"
	syncx "github.com/mind-engage/mindengage-progress/internal/sync"
)

// Anonymous is the user id of a caller without a session.
const Anonymous int64 = 0

type Store interface {
	LoadCurriculum(ctx context.Context, courseID int64) (course.Course, error)
	GetQuiz(ctx context.Context, id int64) (course.Quiz, error)
	GetQuestions(ctx context.Context, ids []int64) ([]course.Question, error)
	course.AttemptStore
}

type AnalyticsRecomputer interface {
	Recompute(ctx context.Context, quizID int64) (course.QuizAnalytics, error)
}

type QuizCompletionRecorder interface {
	RecordQuizCompletion(ctx context.Context, userID, quizID int64, score int, passed bool) (progress.Summary, error)
}

type Manager struct {
	store     Store
	analytics AnalyticsRecomputer
	progress  QuizCompletionRecorder
	grader    grading.Grader
	outbox    syncx.Outbox
	policy    config.Policy
	log       *logger.Logger
	now       func() time.Time
}

type Option func(*Manager)

func WithGrader(g grading.Grader) Option    { return func(m *Manager) { m.grader = g } }
func WithOutbox(o syncx.Outbox) Option      { return func(m *Manager) { m.outbox = o } }
func WithPolicy(p config.Policy) Option     { return func(m *Manager) { m.policy = p } }
func WithLogger(l *logger.Logger) Option    { return func(m *Manager) { m.log = l } }
func WithClock(now func() time.Time) Option { return func(m *Manager) { m.now = now } }

func NewManager(s Store, a AnalyticsRecomputer, p QuizCompletionRecorder, opts ...Option) *Manager {
	m := &Manager{
		store:     s,
		analytics: a,
		progress:  p,
		grader:    grading.NewDefaultGrader(),
		policy:    config.DefaultPolicy(),
		log:       logger.Nop(),
		now:       time.Now,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

type Started struct {
	AttemptID     string `json:"attemptId"`
	AttemptNumber int    `json:"attemptNumber,omitempty"`
	Guest         bool   `json:"guest"`
}

// StartAttempt opens an attempt. Anonymous callers get an unpersisted guest id
// when the quiz sits in the course's free prefix.
func (m *Manager) StartAttempt(ctx context.Context, quizID, userID int64) (Started, error) {
	now := m.now()
	q, free, err := m.locate(ctx, quizID)
	if err != nil {
		return Started{}, err
	}
	if userID == Anonymous && !free {
		return Started{}, apperr.Unauthorized("sign in to take quiz %d", quizID)
	}
	if !q.Availability.Contains(now) {
		return Started{}, apperr.Unavailable("quiz %d is not available now", quizID)
	}

	if userID == Anonymous {
		return Started{AttemptID: NewGuestID(now), Guest: true}, nil
	}

	prior, err := m.store.CountAttempts(ctx, course.AttemptListOpts{QuizID: quizID, UserID: userID})
	if err != nil {
		return Started{}, err
	}
	n := prior + 1
	if limit := q.Settings.MaxAttempts; limit != nil && n > *limit {
		return Started{}, apperr.QuotaExceeded("maximum attempts (%d) reached for quiz %d", *limit, quizID)
	}

	answers := make([]course.AttemptAnswer, 0, len(q.QuestionIDs))
	for _, id := range q.QuestionIDs {
		answers = append(answers, course.AttemptAnswer{QuestionID: id})
	}
	a, err := m.store.CreateAttempt(ctx, course.QuizAttempt{
		UserID:        userID,
		QuizID:        quizID,
		AttemptNumber: n,
		Status:        course.AttemptInProgress,
		Answers:       answers,
		StartedAt:     now,
	})
	if err != nil {
		return Started{}, err
	}
	m.log.Info("attempt started", "attempt_id", a.ID, "quiz_id", quizID, "user_id", userID, "attempt_number", n)
	return Started{AttemptID: strconv.FormatInt(a.ID, 10), AttemptNumber: n}, nil
}

type StartInfo struct {
	Allowed           bool   `json:"allowed"`
	Message           string `json:"message"`
	TotalAttempts     int    `json:"totalAttempts"`
	MaxAttempts       *int   `json:"maxAttempts"`
	RemainingAttempts *int   `json:"remainingAttempts"`
}

// StartInfo runs the StartAttempt checks without creating anything.
// Availability and quota failures come back as Allowed=false.
func (m *Manager) StartInfo(ctx context.Context, quizID, userID int64) (StartInfo, error) {
	q, free, err := m.locate(ctx, quizID)
	if err != nil {
		return StartInfo{}, err
	}
	if userID == Anonymous && !free {
		return StartInfo{}, apperr.Unauthorized("sign in to take quiz %d", quizID)
	}

	info := StartInfo{Allowed: true, MaxAttempts: q.Settings.MaxAttempts}
	if userID != Anonymous {
		n, err := m.store.CountAttempts(ctx, course.AttemptListOpts{QuizID: quizID, UserID: userID})
		if err != nil {
			return StartInfo{}, err
		}
		info.TotalAttempts = n
	}
	if limit := q.Settings.MaxAttempts; limit != nil {
		remaining := *limit - info.TotalAttempts
		if remaining < 0 {
			remaining = 0
		}
		info.RemainingAttempts = &remaining
		if userID != Anonymous && remaining == 0 {
			info.Allowed = false
			info.Message = "You have used all available attempts for this quiz."
		}
	}
	if !q.Availability.Contains(m.now()) {
		info.Allowed = false
		info.Message = "This quiz is not currently available."
	}
	return info, nil
}

// ListMine returns the caller's attempts for a quiz, oldest first.
func (m *Manager) ListMine(ctx context.Context, quizID, userID int64) ([]course.QuizAttempt, error) {
	if userID == Anonymous {
		return nil, apperr.Unauthorized("sign in to list attempts")
	}
	if _, err := m.store.GetQuiz(ctx, quizID); err != nil {
		return nil, err
	}
	return m.store.ListAttempts(ctx, course.AttemptListOpts{QuizID: quizID, UserID: userID})
}

// locate loads a live quiz and reports whether it lies in the free prefix.
func (m *Manager) locate(ctx context.Context, quizID int64) (course.Quiz, bool, error) {
	q, err := m.store.GetQuiz(ctx, quizID)
	if err != nil {
		return course.Quiz{}, false, err
	}
	if q.Archived() {
		return course.Quiz{}, false, apperr.NotFound("quiz %d not found", quizID)
	}
	c, err := m.store.LoadCurriculum(ctx, q.CourseID)
	if err != nil {
		return course.Quiz{}, false, err
	}
	pos := sequence.PositionOf(sequence.Of(c), course.KindQuiz, quizID)
	return q, sequence.IsFree(pos, c.FreeItemCount), nil
}

func (m *Manager) passingScore(q course.Quiz) int {
	if q.Settings.PassingScore != nil {
		return *q.Settings.PassingScore
	}
	return m.policy.DefaultPassingScore
}
