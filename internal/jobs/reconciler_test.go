package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mind-engage/mindengage-progress/internal/config"
	"github.com/mind-engage/mindengage-progress/internal/course"
	"github.com/mind-engage/mindengage-progress/internal/progress"
	syncx "github.com/mind-engage/mindengage-progress/internal/sync"
)

type fakeEvents struct {
	pending []syncx.Event
	done    []int64
	failed  map[int64]string
}

func (f *fakeEvents) Pending(_ context.Context, limit, _ int) ([]syncx.Event, error) {
	if len(f.pending) > limit {
		return f.pending[:limit], nil
	}
	return f.pending, nil
}

func (f *fakeEvents) MarkDone(_ context.Context, seq int64) error {
	f.done = append(f.done, seq)
	return nil
}

func (f *fakeEvents) MarkFailed(_ context.Context, seq int64, cause error) error {
	if f.failed == nil {
		f.failed = map[int64]string{}
	}
	f.failed[seq] = cause.Error()
	return nil
}

type fakeAnalytics struct {
	calls []int64
	err   error
}

func (f *fakeAnalytics) Recompute(_ context.Context, quizID int64) (course.QuizAnalytics, error) {
	f.calls = append(f.calls, quizID)
	return course.QuizAnalytics{}, f.err
}

type fakeAttempts struct {
	list []course.QuizAttempt
	err  error
}

func (f *fakeAttempts) ListAttempts(context.Context, course.AttemptListOpts) ([]course.QuizAttempt, error) {
	return f.list, f.err
}

type fakeProgress struct {
	got []syncx.ProgressStaleData
}

func (f *fakeProgress) RecordQuizCompletion(_ context.Context, userID, quizID int64, score int, passed bool) (progress.Summary, error) {
	f.got = append(f.got, syncx.ProgressStaleData{UserID: userID, QuizID: quizID, Score: score, Passed: passed})
	return progress.Summary{}, nil
}

func TestRunOnce_Replays(t *testing.T) {
	ev := &fakeEvents{pending: []syncx.Event{
		{Seq: 1, Type: syncx.TypeAnalyticsStale, Key: "200"},
		{Seq: 2, Type: syncx.TypeProgressStale, Key: "9", DataJSON: `{"userId":7,"quizId":200,"score":80,"passed":true}`},
		{Seq: 3, Type: "something.else", Key: "x"},
		{Seq: 4, Type: syncx.TypeAnalyticsStale, Key: "nope"},
	}}
	an := &fakeAnalytics{}
	pr := &fakeProgress{}
	r := NewReconciler(ev, &fakeAttempts{}, an, pr, nil, 10)

	done, failed, err := r.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if done != 2 || failed != 2 {
		t.Fatalf("done=%d failed=%d", done, failed)
	}
	if len(an.calls) != 1 || an.calls[0] != 200 {
		t.Fatalf("analytics calls=%v", an.calls)
	}
	want := syncx.ProgressStaleData{UserID: 7, QuizID: 200, Score: 80, Passed: true}
	if len(pr.got) != 1 || pr.got[0] != want {
		t.Fatalf("progress calls=%+v", pr.got)
	}
	if len(ev.done) != 2 || ev.done[0] != 1 || ev.done[1] != 2 {
		t.Fatalf("done=%v", ev.done)
	}
	if _, ok := ev.failed[3]; !ok {
		t.Fatalf("unknown type not marked failed: %v", ev.failed)
	}
	if _, ok := ev.failed[4]; !ok {
		t.Fatalf("bad key not marked failed: %v", ev.failed)
	}
}

func TestRunOnce_FailureIsRecorded(t *testing.T) {
	ev := &fakeEvents{pending: []syncx.Event{{Seq: 5, Type: syncx.TypeAnalyticsStale, Key: "1"}}}
	r := NewReconciler(ev, &fakeAttempts{}, &fakeAnalytics{err: errors.New("db locked")}, &fakeProgress{}, nil, 0)

	done, failed, err := r.RunOnce(context.Background())
	if err != nil || done != 0 || failed != 1 {
		t.Fatalf("done=%d failed=%d err=%v", done, failed, err)
	}
	if ev.failed[5] != "db locked" {
		t.Fatalf("failed=%v", ev.failed)
	}
}

func TestRunOnce_ProgressUsesLatestAttempt(t *testing.T) {
	ev := &fakeEvents{pending: []syncx.Event{
		{Seq: 1, Type: syncx.TypeProgressStale, Key: "9", DataJSON: `{"userId":7,"quizId":200,"score":80,"passed":true}`},
	}}
	at := &fakeAttempts{list: []course.QuizAttempt{
		{ID: 12, Scoring: course.Scoring{Score: 40, Passed: false}},
		{ID: 9, Scoring: course.Scoring{Score: 80, Passed: true}},
	}}
	pr := &fakeProgress{}
	if _, _, err := NewReconciler(ev, at, &fakeAnalytics{}, pr, nil, 10).RunOnce(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	want := syncx.ProgressStaleData{UserID: 7, QuizID: 200, Score: 40, Passed: false}
	if len(pr.got) != 1 || pr.got[0] != want {
		t.Fatalf("progress calls=%+v, want %+v", pr.got, want)
	}

	ev = &fakeEvents{pending: []syncx.Event{{Seq: 2, Type: syncx.TypeProgressStale, Key: "9", DataJSON: `{"userId":7,"quizId":200}`}}}
	r := NewReconciler(ev, &fakeAttempts{err: errors.New("db locked")}, &fakeAnalytics{}, &fakeProgress{}, nil, 10)
	if done, failed, err := r.RunOnce(context.Background()); err != nil || done != 0 || failed != 1 {
		t.Fatalf("done=%d failed=%d err=%v", done, failed, err)
	}
}

func TestRunOnce_StaleEventKeepsNewerResult(t *testing.T) {
	ctx := context.Background()
	s := course.NewMemoryStore()
	must := func(err error) {
		if err != nil {
			t.Fatal(err)
		}
	}
	must(s.PutCourse(ctx, course.Course{ID: 1, Title: "Go", ModuleIDs: []int64{10}}))
	must(s.PutModule(ctx, course.Module{ID: 10, CourseID: 1, Contents: []course.ContentRef{{Kind: course.KindQuiz, RefID: 200}}}))
	must(s.PutQuiz(ctx, course.Quiz{ID: 200, CourseID: 1, ModuleID: 10}))

	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, sc := range []course.Scoring{{Score: 80, Passed: true}, {Score: 40, Passed: false}} {
		_, err := s.CreateAttempt(ctx, course.QuizAttempt{
			UserID: 7, QuizID: 200, AttemptNumber: i + 1,
			Status: course.AttemptCompleted, Scoring: sc, StartedAt: start,
		})
		must(err)
	}

	agg := progress.NewAggregator(s, config.DefaultPolicy())
	// the second attempt's update went through; the first one's was queued
	if _, err := agg.RecordQuizCompletion(ctx, 7, 200, 40, false); err != nil {
		t.Fatalf("record: %v", err)
	}
	ev := &fakeEvents{pending: []syncx.Event{
		{Seq: 1, Type: syncx.TypeProgressStale, Key: "1", DataJSON: `{"userId":7,"quizId":200,"score":80,"passed":true}`},
	}}
	if done, _, err := NewReconciler(ev, s, &fakeAnalytics{}, agg, nil, 10).RunOnce(ctx); err != nil || done != 1 {
		t.Fatalf("done=%d err=%v", done, err)
	}

	p, _ := s.FindOrCreateProgress(ctx, 7, 1, start)
	if len(p.QuizScores) != 1 || p.QuizScores[0].Score != 40 || p.QuizScores[0].Passed {
		t.Fatalf("quizScores=%+v", p.QuizScores)
	}
	if p.Status == course.StatusCompleted || p.CompletedAt != nil {
		t.Fatalf("status=%s completedAt=%v", p.Status, p.CompletedAt)
	}
}
