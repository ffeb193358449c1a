package attempt

import (
	"context"
	"encoding/json"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/mind-engage/mindengage-progress/internal/apperr"
	"github.com/mind-engage/mindengage-progress/internal/course"
	"github.com/mind-engage/mindengage-progress/internal/grading"
	syncx "github.com/mind-engage/mindengage-progress/internal/sync"
)

type Submission struct {
	AttemptID string           `json:"attemptId"`
	Answers   []grading.Answer `json:"answers"`
	QuizID    int64            `json:"quizId,omitempty"` // required for guest attempts
}

// SideEffects reports what happened to the post-submission updates. Neither
// failure changes the submission outcome.
type SideEffects struct {
	Analytics error `json:"-"`
	Progress  error `json:"-"`
}

type Result struct {
	Score       int                 `json:"score"`
	Passed      bool                `json:"passed"`
	Attempt     *course.QuizAttempt `json:"attempt,omitempty"`
	SideEffects SideEffects         `json:"-"`
}

// SubmitAttempt grades a submission. Guest ids are graded in memory only.
// Other ids must belong to userID; a foreign or unknown id is NotFound.
// Resubmitting a completed attempt returns its stored result unchanged.
func (m *Manager) SubmitAttempt(ctx context.Context, sub Submission, userID int64) (Result, error) {
	if IsGuestID(sub.AttemptID) {
		return m.submitGuest(ctx, sub)
	}
	if userID == Anonymous {
		return Result{}, apperr.Unauthorized("sign in to submit attempt")
	}
	id, err := strconv.ParseInt(sub.AttemptID, 10, 64)
	if err != nil || id <= 0 {
		return Result{}, apperr.NotFound("attempt %q not found", sub.AttemptID)
	}
	a, err := m.store.GetAttempt(ctx, id)
	if err != nil {
		return Result{}, err
	}
	if a.UserID != userID {
		return Result{}, apperr.NotFound("attempt %d not found", id)
	}
	if a.Status == course.AttemptCompleted {
		return Result{Score: a.Scoring.Score, Passed: a.Scoring.Passed, Attempt: &a}, nil
	}

	q, err := m.store.GetQuiz(ctx, a.QuizID)
	if err != nil {
		return Result{}, err
	}
	ev, err := m.evaluate(ctx, q, sub.Answers)
	if err != nil {
		return Result{}, err
	}

	now := m.now()
	score := ev.Score()
	passed := grading.Passed(score, m.passingScore(q))
	spent := int64(now.Sub(a.StartedAt).Seconds())
	if spent < 0 {
		spent = 0
	}

	a.Status = course.AttemptCompleted
	a.Answers = mergeAnswers(a.Answers, ev.PerAnswer)
	a.Scoring = course.Scoring{TotalPoints: ev.TotalPoints, MaxPoints: ev.MaxPoints, Score: score, Passed: passed}
	a.CompletedAt = &now
	a.TimeSpent = spent
	if err := m.store.CompleteAttempt(ctx, a); err != nil {
		return Result{}, err
	}
	m.log.Info("attempt submitted", "attempt_id", a.ID, "quiz_id", a.QuizID, "user_id", userID, "score", score, "passed", passed)

	fx := m.afterSubmit(ctx, a)
	return Result{Score: score, Passed: passed, Attempt: &a, SideEffects: fx}, nil
}

func (m *Manager) submitGuest(ctx context.Context, sub Submission) (Result, error) {
	if sub.QuizID <= 0 {
		return Result{}, apperr.Invalid("quizId is required for guest attempts")
	}
	q, free, err := m.locate(ctx, sub.QuizID)
	if err != nil {
		return Result{}, err
	}
	if !free {
		return Result{}, apperr.Unauthorized("sign in to take quiz %d", sub.QuizID)
	}
	ev, err := m.evaluate(ctx, q, sub.Answers)
	if err != nil {
		return Result{}, err
	}
	score := ev.Score()
	return Result{Score: score, Passed: grading.Passed(score, m.passingScore(q))}, nil
}

func (m *Manager) evaluate(ctx context.Context, q course.Quiz, answers []grading.Answer) (grading.Evaluation, error) {
	qs, err := m.store.GetQuestions(ctx, q.QuestionIDs)
	if err != nil {
		return grading.Evaluation{}, err
	}
	gq := make([]grading.Q, 0, len(qs))
	for _, x := range qs {
		gq = append(gq, toGradingQ(x))
	}
	return grading.Evaluate(ctx, m.grader, gq, answers), nil
}

// mergeAnswers fills the per-question skeleton seeded at start with graded
// answers. Skipped questions keep their empty entry; answers to questions
// outside the skeleton are appended in submission order.
func mergeAnswers(skeleton []course.AttemptAnswer, graded []grading.GradedAnswer) []course.AttemptAnswer {
	out := make([]course.AttemptAnswer, len(skeleton), len(skeleton)+len(graded))
	pos := make(map[int64]int, len(skeleton))
	for i, sa := range skeleton {
		out[i] = course.AttemptAnswer{QuestionID: sa.QuestionID}
		pos[sa.QuestionID] = i
	}
	for _, ga := range graded {
		aa := course.AttemptAnswer{
			QuestionID:    ga.QuestionID,
			Answer:        ga.Answer,
			IsCorrect:     ga.IsCorrect,
			PointsAwarded: ga.PointsAwarded,
		}
		if i, ok := pos[ga.QuestionID]; ok {
			out[i] = aa
			continue
		}
		out = append(out, aa)
	}
	return out
}

func toGradingQ(q course.Question) grading.Q {
	opts := make([]grading.Choice, 0, len(q.Options))
	for _, o := range q.Options {
		opts = append(opts, grading.Choice{Text: o.Text, IsCorrect: o.IsCorrect})
	}
	return grading.Q{
		ID:                q.ID,
		Type:              string(q.Type),
		Points:            q.Weight(),
		Options:           opts,
		CorrectBool:       q.CorrectBool,
		AcceptableAnswers: q.AcceptableAnswers,
		CorrectAnswer:     q.CorrectAnswer,
	}
}

// afterSubmit runs the analytics and progress updates side by side. They
// outlive the request context; failures are logged and queued for replay.
func (m *Manager) afterSubmit(ctx context.Context, a course.QuizAttempt) SideEffects {
	ctx = context.WithoutCancel(ctx)
	var fx SideEffects
	var g errgroup.Group

	g.Go(func() error {
		if _, err := m.analytics.Recompute(ctx, a.QuizID); err != nil {
			fx.Analytics = err
			m.log.Warn("analytics recompute failed", "quiz_id", a.QuizID, "error", err)
			m.enqueue(ctx, syncx.Event{
				Type: syncx.TypeAnalyticsStale,
				Key:  strconv.FormatInt(a.QuizID, 10),
			})
		}
		return nil
	})
	g.Go(func() error {
		if _, err := m.progress.RecordQuizCompletion(ctx, a.UserID, a.QuizID, a.Scoring.Score, a.Scoring.Passed); err != nil {
			fx.Progress = err
			m.log.Warn("progress update failed", "attempt_id", a.ID, "user_id", a.UserID, "error", err)
			data, _ := json.Marshal(syncx.ProgressStaleData{
				UserID: a.UserID,
				QuizID: a.QuizID,
				Score:  a.Scoring.Score,
				Passed: a.Scoring.Passed,
			})
			m.enqueue(ctx, syncx.Event{
				Type:     syncx.TypeProgressStale,
				Key:      strconv.FormatInt(a.ID, 10),
				DataJSON: string(data),
			})
		}
		return nil
	})
	_ = g.Wait()
	return fx
}

func (m *Manager) enqueue(ctx context.Context, e syncx.Event) {
	if m.outbox == nil {
		return
	}
	if err := m.outbox.Append(ctx, e); err != nil {
		m.log.Error("outbox append failed", "type", e.Type, "key", e.Key, "error", err)
	}
}
