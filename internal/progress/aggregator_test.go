package progress

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mind-engage/mindengage-progress/internal/apperr"
	"github.com/mind-engage/mindengage-progress/internal/config"
	"github.com/mind-engage/mindengage-progress/internal/course"
)

func f64(v float64) *float64 { return &v }
func bptr(v bool) *bool      { return &v }

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }
func (c *clock) tick()          { c.t = c.t.Add(time.Minute) }

// course 1: module 10 = [L101, L102, Q201(lesson 102)], module 11 = [L103]
func fixture(t *testing.T) (course.Store, *Aggregator, *clock) {
	t.Helper()
	ctx := context.Background()
	s := course.NewMemoryStore()
	lessonID := int64(102)
	must := func(err error) {
		if err != nil {
			t.Fatal(err)
		}
	}
	must(s.PutCourse(ctx, course.Course{ID: 1, Title: "Go", ModuleIDs: []int64{10, 11}, FreeItemCount: 1}))
	must(s.PutModule(ctx, course.Module{ID: 10, CourseID: 1, Title: "Basics", Contents: []course.ContentRef{
		{Kind: course.KindLesson, RefID: 101},
		{Kind: course.KindLesson, RefID: 102},
		{Kind: course.KindQuiz, RefID: 201},
	}}))
	must(s.PutModule(ctx, course.Module{ID: 11, CourseID: 1, Title: "More", Contents: []course.ContentRef{
		{Kind: course.KindLesson, RefID: 103},
	}}))
	for _, id := range []int64{101, 102} {
		must(s.PutLesson(ctx, course.Lesson{ID: id, CourseID: 1, ModuleID: 10}))
	}
	must(s.PutLesson(ctx, course.Lesson{ID: 103, CourseID: 1, ModuleID: 11}))
	must(s.PutQuiz(ctx, course.Quiz{ID: 201, CourseID: 1, ModuleID: 10, LessonID: &lessonID}))
	must(s.PutCourse(ctx, course.Course{ID: 2, Title: "Empty"}))

	clk := &clock{t: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	return s, NewAggregator(s, config.DefaultPolicy(), WithClock(clk.now)), clk
}

func TestRecordLessonProgress_WatchThresholdCompletes(t *testing.T) {
	s, agg, clk := fixture(t)
	ctx := context.Background()

	sum, err := agg.RecordLessonProgress(ctx, LessonUpdate{
		UserID: 7, CourseID: 1, LessonID: 101,
		IsCompleted: bptr(false), Progress: f64(92), PositionSeconds: f64(552), DurationSeconds: f64(600),
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	want := Summary{TotalLessons: 4, CompletedLessons: 1, ProgressPercentage: 25, Status: course.StatusInProgress}
	if sum != want {
		t.Fatalf("summary=%+v, want %+v", sum, want)
	}

	p, _ := s.FindOrCreateProgress(ctx, 7, 1, clk.now())
	if !p.HasCompletedLesson(101) {
		t.Fatalf("lesson not completed: %+v", p.CompletedLessons)
	}
	if len(p.LessonStates) != 1 || p.LessonStates[0].PositionSeconds != 552 || p.LessonStates[0].Progress != 92 {
		t.Fatalf("lesson state: %+v", p.LessonStates)
	}
	if p.StartedAt == nil || !p.StartedAt.Equal(clk.now()) {
		t.Fatalf("startedAt=%v", p.StartedAt)
	}
}

func TestRecordLessonProgress_ExplicitFalseRemoves(t *testing.T) {
	s, agg, clk := fixture(t)
	ctx := context.Background()

	if _, err := agg.RecordLessonProgress(ctx, LessonUpdate{UserID: 7, CourseID: 1, LessonID: 101, IsCompleted: bptr(true)}); err != nil {
		t.Fatal(err)
	}
	started := clk.now()
	clk.tick()

	sum, err := agg.RecordLessonProgress(ctx, LessonUpdate{UserID: 7, CourseID: 1, LessonID: 101, IsCompleted: bptr(false), Progress: f64(40)})
	if err != nil {
		t.Fatal(err)
	}
	if sum.CompletedLessons != 0 || sum.ProgressPercentage != 0 || sum.Status != course.StatusNotStarted {
		t.Fatalf("summary=%+v", sum)
	}
	p, _ := s.FindOrCreateProgress(ctx, 7, 1, clk.now())
	if p.StartedAt == nil || !p.StartedAt.Equal(started) {
		t.Fatalf("startedAt should be kept from first transition, got %v", p.StartedAt)
	}
}

func TestRecordLessonProgress_OmittedFlagKeepsCompletion(t *testing.T) {
	_, agg, _ := fixture(t)
	ctx := context.Background()

	_, _ = agg.RecordLessonProgress(ctx, LessonUpdate{UserID: 7, CourseID: 1, LessonID: 102, IsCompleted: bptr(true)})
	sum, err := agg.RecordLessonProgress(ctx, LessonUpdate{UserID: 7, CourseID: 1, LessonID: 102, Progress: f64(10)})
	if err != nil {
		t.Fatal(err)
	}
	if sum.CompletedLessons != 1 {
		t.Fatalf("completion dropped without explicit false: %+v", sum)
	}
}

func TestRecordLessonProgress_Errors(t *testing.T) {
	_, agg, _ := fixture(t)
	ctx := context.Background()

	_, err := agg.RecordLessonProgress(ctx, LessonUpdate{UserID: 7, CourseID: 1, LessonID: 999, IsCompleted: bptr(true)})
	if !errors.Is(err, apperr.ErrInvalid) {
		t.Fatalf("foreign lesson: err=%v", err)
	}
	_, err = agg.RecordLessonProgress(ctx, LessonUpdate{UserID: 7, CourseID: 42, LessonID: 101})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("unknown course: err=%v", err)
	}
}

func TestRecordQuizCompletion(t *testing.T) {
	s, agg, clk := fixture(t)
	ctx := context.Background()

	a, err := s.CreateAttempt(ctx, course.QuizAttempt{UserID: 7, QuizID: 201, AttemptNumber: 1, Status: course.AttemptInProgress, StartedAt: clk.now()})
	if err != nil {
		t.Fatal(err)
	}
	a.Status = course.AttemptCompleted
	if err := s.CompleteAttempt(ctx, a); err != nil {
		t.Fatal(err)
	}

	sum, err := agg.RecordQuizCompletion(ctx, 7, 201, 80, true)
	if err != nil {
		t.Fatalf("record quiz: %v", err)
	}
	if sum.CompletedLessons != 1 || sum.ProgressPercentage != 25 {
		t.Fatalf("summary=%+v", sum)
	}

	p, _ := s.FindOrCreateProgress(ctx, 7, 1, clk.now())
	if len(p.QuizScores) != 1 || p.QuizScores[0].Attempts != 1 || !p.QuizScores[0].Passed || p.QuizScores[0].Score != 80 {
		t.Fatalf("quiz scores: %+v", p.QuizScores)
	}
	if len(p.Scores) != 1 || p.Scores[0].LessonID != 102 || p.Scores[0].QuizID != 201 {
		t.Fatalf("lesson scores: %+v", p.Scores)
	}

	// a later failing score replaces the entry and drops the item
	sum, _ = agg.RecordQuizCompletion(ctx, 7, 201, 40, false)
	if sum.CompletedLessons != 0 {
		t.Fatalf("failed retake still counted: %+v", sum)
	}
	p, _ = s.FindOrCreateProgress(ctx, 7, 1, clk.now())
	if len(p.QuizScores) != 1 || p.QuizScores[0].Score != 40 {
		t.Fatalf("quiz score not replaced: %+v", p.QuizScores)
	}
}

func TestCompletionStampedOnce(t *testing.T) {
	s, agg, clk := fixture(t)
	ctx := context.Background()

	for _, id := range []int64{101, 102, 103} {
		if _, err := agg.RecordLessonProgress(ctx, LessonUpdate{UserID: 7, CourseID: 1, LessonID: id, IsCompleted: bptr(true)}); err != nil {
			t.Fatal(err)
		}
	}
	sum, err := agg.RecordQuizCompletion(ctx, 7, 201, 100, true)
	if err != nil {
		t.Fatal(err)
	}
	if sum.ProgressPercentage != 100 || sum.Status != course.StatusCompleted {
		t.Fatalf("summary=%+v", sum)
	}
	completedAt := clk.now()

	clk.tick()
	_, _ = agg.RecordLessonProgress(ctx, LessonUpdate{UserID: 7, CourseID: 1, LessonID: 103, Progress: f64(100)})
	p, _ := s.FindOrCreateProgress(ctx, 7, 1, clk.now())
	if p.CompletedAt == nil || !p.CompletedAt.Equal(completedAt) {
		t.Fatalf("completedAt=%v, want %v", p.CompletedAt, completedAt)
	}
	if !p.LastAccessedAt.Equal(clk.now()) {
		t.Fatalf("lastAccessedAt not refreshed")
	}
}

func TestGetProgress(t *testing.T) {
	_, agg, _ := fixture(t)
	ctx := context.Background()

	_, _ = agg.RecordLessonProgress(ctx, LessonUpdate{UserID: 7, CourseID: 1, LessonID: 101, IsCompleted: bptr(true)})
	_, _ = agg.RecordLessonProgress(ctx, LessonUpdate{UserID: 7, CourseID: 1, LessonID: 103, IsCompleted: bptr(true)})
	_, _ = agg.RecordLessonProgress(ctx, LessonUpdate{UserID: 7, CourseID: 1, LessonID: 102, Progress: f64(30)})

	v, err := agg.GetProgress(ctx, 7, 1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if v.TotalLessons != 4 || v.CompletedLessons != 2 || v.ProgressPercentage != 50 || v.QuizCount != 1 {
		t.Fatalf("view=%+v", v)
	}
	if v.NextIncompleteItem == nil || v.NextIncompleteItem.ID != 102 || v.NextIncompleteItem.Type != course.KindLesson {
		t.Fatalf("next=%+v", v.NextIncompleteItem)
	}
	if len(v.LessonProgress) != 3 || v.LessonProgress[1].Progress != 30 || v.LessonProgress[1].Completed {
		t.Fatalf("lessonProgress=%+v", v.LessonProgress)
	}
	if len(v.ModulesProgress) != 2 {
		t.Fatalf("modules=%+v", v.ModulesProgress)
	}
	if m := v.ModulesProgress[0]; m.TotalItems != 3 || m.CompletedItems != 1 || m.Completed {
		t.Fatalf("module 10=%+v", m)
	}
	if m := v.ModulesProgress[1]; m.TotalItems != 1 || !m.Completed {
		t.Fatalf("module 11=%+v", m)
	}
}

func TestGetProgress_EmptyCourseCreatesRecord(t *testing.T) {
	s, agg, clk := fixture(t)
	ctx := context.Background()

	v, err := agg.GetProgress(ctx, 8, 2)
	if err != nil {
		t.Fatal(err)
	}
	if v.TotalLessons != 0 || v.ProgressPercentage != 0 || v.Status != course.StatusNotStarted || v.NextIncompleteItem != nil {
		t.Fatalf("view=%+v", v)
	}
	if !v.EnrolledAt.Equal(clk.now()) {
		t.Fatalf("enrolledAt=%v", v.EnrolledAt)
	}
	clk.tick()
	p, _ := s.FindOrCreateProgress(ctx, 8, 2, clk.now())
	if !p.EnrolledAt.Equal(v.EnrolledAt) {
		t.Fatalf("record was not created on read")
	}
}
