package course

import (
	"context"
	"time"
)

// Catalog is the read side of the content repository.
type Catalog interface {
	GetCourse(ctx context.Context, id int64) (Course, error)
	// LoadCurriculum returns the course with Modules materialized in course order.
	// Archived quizzes and dangling content refs are dropped.
	LoadCurriculum(ctx context.Context, courseID int64) (Course, error)
	GetLesson(ctx context.Context, id int64) (Lesson, error)
	GetQuiz(ctx context.Context, id int64) (Quiz, error)
	// GetQuestions returns questions in ids order, skipping unknown ids.
	GetQuestions(ctx context.Context, ids []int64) ([]Question, error)
}

// CatalogWriter upserts catalog entities. Used by the catalog loader and tests.
type CatalogWriter interface {
	PutCourse(ctx context.Context, c Course) error
	PutModule(ctx context.Context, m Module) error
	PutLesson(ctx context.Context, l Lesson) error
	PutQuiz(ctx context.Context, q Quiz) error
	PutQuestion(ctx context.Context, q Question) error
}

type AnalyticsWriter interface {
	UpdateQuizAnalytics(ctx context.Context, quizID int64, a QuizAnalytics) error
}

type AttemptListOpts struct {
	QuizID int64
	UserID int64         // 0 = any user
	Status AttemptStatus // "" = any status
}

type AttemptStore interface {
	CountAttempts(ctx context.Context, opts AttemptListOpts) (int, error)
	ListAttempts(ctx context.Context, opts AttemptListOpts) ([]QuizAttempt, error)
	CreateAttempt(ctx context.Context, a QuizAttempt) (QuizAttempt, error)
	GetAttempt(ctx context.Context, id int64) (QuizAttempt, error)
	// CompleteAttempt persists answers, scoring, completion time and time spent.
	CompleteAttempt(ctx context.Context, a QuizAttempt) error
}

type ProgressStore interface {
	// FindOrCreateProgress returns the (user, course) record, creating an
	// empty not-started one stamped with now when absent.
	FindOrCreateProgress(ctx context.Context, userID, courseID int64, now time.Time) (UserProgress, error)
	SaveProgress(ctx context.Context, p UserProgress) error
}

type Store interface {
	Catalog
	CatalogWriter
	AnalyticsWriter
	AttemptStore
	ProgressStore
}
