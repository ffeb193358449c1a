package course

import "time"

type ItemKind string

const (
	KindLesson ItemKind = "lesson"
	KindQuiz   ItemKind = "quiz"
)

// ContentRef is one entry of a module's ordered contents: either a lesson or a quiz.
type ContentRef struct {
	Kind  ItemKind `json:"kind"`
	RefID int64    `json:"refId"`
}

// OrderedRef is a lesson or quiz belonging to a module, with its fallback sort key.
type OrderedRef struct {
	ID    int64 `json:"id"`
	Order int   `json:"order"`
}

type Course struct {
	ID            int64   `json:"id"`
	Title         string  `json:"title"`
	ModuleIDs     []int64 `json:"moduleIds"`
	FreeItemCount int     `json:"freeItemCount"`

	// Modules is populated by Catalog.LoadCurriculum, in ModuleIDs order.
	Modules []Module `json:"modules,omitempty"`
}

type Module struct {
	ID       int64        `json:"id"`
	CourseID int64        `json:"courseId"`
	Title    string       `json:"title"`
	Contents []ContentRef `json:"contents"`

	// Fallback collections used when Contents is empty.
	Lessons []OrderedRef `json:"lessons,omitempty"`
	Quizzes []OrderedRef `json:"quizzes,omitempty"`
}

type Lesson struct {
	ID              int64  `json:"id"`
	CourseID        int64  `json:"courseId"`
	ModuleID        int64  `json:"moduleId"`
	Title           string `json:"title"`
	Order           int    `json:"order"`
	DurationSeconds int    `json:"durationSeconds,omitempty"`
}

type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple-choice"
	QuestionTrueFalse      QuestionType = "true-false"
	QuestionShortAnswer    QuestionType = "short-answer"
	QuestionFillBlank      QuestionType = "fill-blank"
)

type Option struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
}

type Question struct {
	ID                int64        `json:"id"`
	Type              QuestionType `json:"type"`
	Prompt            string       `json:"prompt,omitempty"`
	Options           []Option     `json:"options,omitempty"`           // multiple-choice
	CorrectBool       *bool        `json:"correctBool,omitempty"`       // true-false
	AcceptableAnswers []string     `json:"acceptableAnswers,omitempty"` // short-answer, fill-blank
	CorrectAnswer     string       `json:"correctAnswer,omitempty"`     // short-answer, fill-blank fallback
	Points            float64      `json:"points"`
}

// Weight returns the question's points, defaulting to 1.
func (q Question) Weight() float64 {
	if q.Points <= 0 {
		return 1
	}
	return q.Points
}

const (
	QuizPublished = "published"
	QuizArchived  = "archived"
)

type QuizSettings struct {
	MaxAttempts  *int `json:"maxAttempts,omitempty"`
	PassingScore *int `json:"passingScore,omitempty"`
}

type Availability struct {
	AvailableFrom  *time.Time `json:"availableFrom,omitempty"`
	AvailableUntil *time.Time `json:"availableUntil,omitempty"`
}

// Contains reports whether t lies inside the window; open ends are unbounded.
func (a Availability) Contains(t time.Time) bool {
	if a.AvailableFrom != nil && t.Before(*a.AvailableFrom) {
		return false
	}
	if a.AvailableUntil != nil && t.After(*a.AvailableUntil) {
		return false
	}
	return true
}

type QuizAnalytics struct {
	TotalAttempts    int `json:"totalAttempts"`
	AverageScore     int `json:"averageScore"`
	PassRate         int `json:"passRate"`
	AverageTimeSpent int `json:"averageTimeSpent"` // seconds
}

type Quiz struct {
	ID           int64         `json:"id"`
	CourseID     int64         `json:"courseId"`
	ModuleID     int64         `json:"moduleId"`
	LessonID     *int64        `json:"lessonId,omitempty"`
	Title        string        `json:"title"`
	Status       string        `json:"status"`
	Order        int           `json:"order"`
	QuestionIDs  []int64       `json:"questionIds"`
	Settings     QuizSettings  `json:"quizSettings"`
	Availability Availability  `json:"availability"`
	Analytics    QuizAnalytics `json:"analytics"`
}

func (q Quiz) Archived() bool { return q.Status == QuizArchived }

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in-progress"
	AttemptCompleted  AttemptStatus = "completed"
)

type AttemptAnswer struct {
	QuestionID    int64   `json:"question"`
	Answer        any     `json:"answer"`
	IsCorrect     bool    `json:"isCorrect"`
	PointsAwarded float64 `json:"pointsAwarded"`
}

type Scoring struct {
	TotalPoints float64 `json:"totalPoints"`
	MaxPoints   float64 `json:"maxPoints"`
	Score       int     `json:"score"`
	Passed      bool    `json:"passed"`
}

type QuizAttempt struct {
	ID            int64           `json:"id"`
	UserID        int64           `json:"userId"`
	QuizID        int64           `json:"quizId"`
	AttemptNumber int             `json:"attemptNumber"`
	Status        AttemptStatus   `json:"status"`
	Answers       []AttemptAnswer `json:"answers"`
	Scoring       Scoring         `json:"scoring"`
	StartedAt     time.Time       `json:"startedAt"`
	CompletedAt   *time.Time      `json:"completedAt,omitempty"`
	TimeSpent     int64           `json:"timeSpent"` // seconds
}

type ProgressStatus string

const (
	StatusNotStarted ProgressStatus = "not-started"
	StatusInProgress ProgressStatus = "in-progress"
	StatusCompleted  ProgressStatus = "completed"
	StatusPaused     ProgressStatus = "paused"
	StatusDropped    ProgressStatus = "dropped"
)

type LessonState struct {
	LessonID        int64     `json:"lesson"`
	Progress        float64   `json:"progress"`
	PositionSeconds float64   `json:"positionSeconds"`
	DurationSeconds float64   `json:"durationSeconds"`
	LastWatchedAt   time.Time `json:"lastWatchedAt"`
}

type QuizScore struct {
	QuizID      int64     `json:"quiz"`
	Score       int       `json:"score"`
	Attempts    int       `json:"attempts"`
	Passed      bool      `json:"passed"`
	CompletedAt time.Time `json:"completedAt"`
}

// LessonScore mirrors a QuizScore for quizzes attached to a lesson.
type LessonScore struct {
	LessonID    int64     `json:"lesson"`
	QuizID      int64     `json:"quiz"`
	Score       int       `json:"score"`
	Passed      bool      `json:"passed"`
	CompletedAt time.Time `json:"completedAt"`
}

type UserProgress struct {
	ID                 int64          `json:"id"`
	UserID             int64          `json:"userId"`
	CourseID           int64          `json:"courseId"`
	CompletedLessons   []int64        `json:"completedLessons"`
	LessonStates       []LessonState  `json:"lessonStates"`
	QuizScores         []QuizScore    `json:"quizScores"`
	Scores             []LessonScore  `json:"scores"`
	Status             ProgressStatus `json:"status"`
	ProgressPercentage int            `json:"progressPercentage"`
	EnrolledAt         time.Time      `json:"enrolledAt"`
	StartedAt          *time.Time     `json:"startedAt,omitempty"`
	CompletedAt        *time.Time     `json:"completedAt,omitempty"`
	LastAccessedAt     time.Time      `json:"lastAccessedAt"`
}

// HasCompletedLesson reports whether id is in CompletedLessons.
func (p *UserProgress) HasCompletedLesson(id int64) bool {
	for _, l := range p.CompletedLessons {
		if l == id {
			return true
		}
	}
	return false
}

// PassedQuizzes counts quiz score entries marked passed.
func (p *UserProgress) PassedQuizzes() int {
	n := 0
	for _, s := range p.QuizScores {
		if s.Passed {
			n++
		}
	}
	return n
}

// HasPassedQuiz reports whether the quiz has a passed score entry.
func (p *UserProgress) HasPassedQuiz(id int64) bool {
	for _, s := range p.QuizScores {
		if s.QuizID == id && s.Passed {
			return true
		}
	}
	return false
}
