package course

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mind-engage/mindengage-progress/internal/apperr"
)

type memoryStore struct {
	mu        sync.RWMutex
	courses   map[int64]Course
	modules   map[int64]Module
	lessons   map[int64]Lesson
	quizzes   map[int64]Quiz
	questions map[int64]Question
	attempts  map[int64]QuizAttempt
	progress  map[[2]int64]UserProgress

	attemptSeq  int64
	progressSeq int64
}

// NewMemoryStore returns a Store kept entirely in process memory.
func NewMemoryStore() Store {
	return &memoryStore{
		courses:   map[int64]Course{},
		modules:   map[int64]Module{},
		lessons:   map[int64]Lesson{},
		quizzes:   map[int64]Quiz{},
		questions: map[int64]Question{},
		attempts:  map[int64]QuizAttempt{},
		progress:  map[[2]int64]UserProgress{},
	}
}

func (m *memoryStore) PutCourse(_ context.Context, c Course) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.Modules = nil
	c.ModuleIDs = append([]int64(nil), c.ModuleIDs...)
	m.courses[c.ID] = c
	return nil
}

func (m *memoryStore) PutModule(_ context.Context, mod Module) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mod.Contents = append([]ContentRef(nil), mod.Contents...)
	mod.Lessons, mod.Quizzes = nil, nil
	m.modules[mod.ID] = mod
	return nil
}

func (m *memoryStore) PutLesson(_ context.Context, l Lesson) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lessons[l.ID] = l
	return nil
}

func (m *memoryStore) PutQuiz(_ context.Context, q Quiz) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if q.Status == "" {
		q.Status = QuizPublished
	}
	q.QuestionIDs = append([]int64(nil), q.QuestionIDs...)
	m.quizzes[q.ID] = q
	return nil
}

func (m *memoryStore) PutQuestion(_ context.Context, q Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.questions[q.ID] = q
	return nil
}

func (m *memoryStore) GetCourse(_ context.Context, id int64) (Course, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.courses[id]
	if !ok {
		return Course{}, apperr.NotFound("course %d not found", id)
	}
	c.ModuleIDs = append([]int64(nil), c.ModuleIDs...)
	return c, nil
}

func (m *memoryStore) LoadCurriculum(_ context.Context, courseID int64) (Course, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.courses[courseID]
	if !ok {
		return Course{}, apperr.NotFound("course %d not found", courseID)
	}
	c.ModuleIDs = append([]int64(nil), c.ModuleIDs...)
	c.Modules = make([]Module, 0, len(c.ModuleIDs))
	for _, mid := range c.ModuleIDs {
		mod, ok := m.modules[mid]
		if !ok || mod.CourseID != courseID {
			continue
		}
		mod.Contents = nil
		for _, ref := range m.modules[mid].Contents {
			if m.refExists(ref, courseID) {
				mod.Contents = append(mod.Contents, ref)
			}
		}
		mod.Lessons, mod.Quizzes = nil, nil
		for _, l := range m.lessons {
			if l.ModuleID == mid && l.CourseID == courseID {
				mod.Lessons = append(mod.Lessons, OrderedRef{ID: l.ID, Order: l.Order})
			}
		}
		for _, q := range m.quizzes {
			if q.ModuleID == mid && q.CourseID == courseID && !q.Archived() {
				mod.Quizzes = append(mod.Quizzes, OrderedRef{ID: q.ID, Order: q.Order})
			}
		}
		// map iteration is random; hand back id order like the SQL store does
		sortRefsByID(mod.Lessons)
		sortRefsByID(mod.Quizzes)
		c.Modules = append(c.Modules, mod)
	}
	return c, nil
}

func (m *memoryStore) refExists(ref ContentRef, courseID int64) bool {
	switch ref.Kind {
	case KindLesson:
		l, ok := m.lessons[ref.RefID]
		return ok && l.CourseID == courseID
	case KindQuiz:
		q, ok := m.quizzes[ref.RefID]
		return ok && q.CourseID == courseID && !q.Archived()
	default:
		return false
	}
}

func sortRefsByID(refs []OrderedRef) {
	sort.Slice(refs, func(i, j int) bool { return refs[i].ID < refs[j].ID })
}

func (m *memoryStore) GetLesson(_ context.Context, id int64) (Lesson, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.lessons[id]
	if !ok {
		return Lesson{}, apperr.NotFound("lesson %d not found", id)
	}
	return l, nil
}

func (m *memoryStore) GetQuiz(_ context.Context, id int64) (Quiz, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.quizzes[id]
	if !ok {
		return Quiz{}, apperr.NotFound("quiz %d not found", id)
	}
	q.QuestionIDs = append([]int64(nil), q.QuestionIDs...)
	return q, nil
}

func (m *memoryStore) GetQuestions(_ context.Context, ids []int64) ([]Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Question, 0, len(ids))
	for _, id := range ids {
		if q, ok := m.questions[id]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

func (m *memoryStore) UpdateQuizAnalytics(_ context.Context, quizID int64, a QuizAnalytics) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quizzes[quizID]
	if !ok {
		return apperr.NotFound("quiz %d not found", quizID)
	}
	q.Analytics = a
	m.quizzes[quizID] = q
	return nil
}

func (m *memoryStore) matches(a QuizAttempt, opts AttemptListOpts) bool {
	if opts.QuizID != 0 && a.QuizID != opts.QuizID {
		return false
	}
	if opts.UserID != 0 && a.UserID != opts.UserID {
		return false
	}
	if opts.Status != "" && a.Status != opts.Status {
		return false
	}
	return true
}

func (m *memoryStore) CountAttempts(_ context.Context, opts AttemptListOpts) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, a := range m.attempts {
		if m.matches(a, opts) {
			n++
		}
	}
	return n, nil
}

func (m *memoryStore) ListAttempts(_ context.Context, opts AttemptListOpts) ([]QuizAttempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []QuizAttempt{}
	for _, a := range m.attempts {
		if m.matches(a, opts) {
			out = append(out, cloneAttempt(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryStore) CreateAttempt(_ context.Context, a QuizAttempt) (QuizAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.quizzes[a.QuizID]; !ok {
		return QuizAttempt{}, apperr.NotFound("quiz %d not found", a.QuizID)
	}
	for _, other := range m.attempts {
		if other.UserID == a.UserID && other.QuizID == a.QuizID && other.AttemptNumber == a.AttemptNumber {
			return QuizAttempt{}, apperr.Invalid("attempt %d already exists", a.AttemptNumber)
		}
	}
	m.attemptSeq++
	a.ID = m.attemptSeq
	a = cloneAttempt(a)
	m.attempts[a.ID] = a
	return cloneAttempt(a), nil
}

func (m *memoryStore) GetAttempt(_ context.Context, id int64) (QuizAttempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.attempts[id]
	if !ok {
		return QuizAttempt{}, apperr.NotFound("attempt %d not found", id)
	}
	return cloneAttempt(a), nil
}

func (m *memoryStore) CompleteAttempt(_ context.Context, a QuizAttempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.attempts[a.ID]
	if !ok {
		return apperr.NotFound("attempt %d not found", a.ID)
	}
	cur.Status = a.Status
	cur.Answers = a.Answers
	cur.Scoring = a.Scoring
	cur.CompletedAt = a.CompletedAt
	cur.TimeSpent = a.TimeSpent
	m.attempts[a.ID] = cloneAttempt(cur)
	return nil
}

func (m *memoryStore) FindOrCreateProgress(_ context.Context, userID, courseID int64, now time.Time) (UserProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := [2]int64{userID, courseID}
	if p, ok := m.progress[k]; ok {
		return cloneProgress(p), nil
	}
	m.progressSeq++
	p := NewUserProgress(userID, courseID, now)
	p.ID = m.progressSeq
	m.progress[k] = p
	return cloneProgress(p), nil
}

func (m *memoryStore) SaveProgress(_ context.Context, p UserProgress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := [2]int64{p.UserID, p.CourseID}
	if _, ok := m.progress[k]; !ok {
		return apperr.NotFound("progress for user %d course %d not found", p.UserID, p.CourseID)
	}
	m.progress[k] = cloneProgress(p)
	return nil
}

// NewUserProgress builds the empty record created on first progress event.
func NewUserProgress(userID, courseID int64, now time.Time) UserProgress {
	return UserProgress{
		UserID:           userID,
		CourseID:         courseID,
		CompletedLessons: []int64{},
		LessonStates:     []LessonState{},
		QuizScores:       []QuizScore{},
		Scores:           []LessonScore{},
		Status:           StatusNotStarted,
		EnrolledAt:       now,
		LastAccessedAt:   now,
	}
}

func cloneAttempt(a QuizAttempt) QuizAttempt {
	a.Answers = append([]AttemptAnswer(nil), a.Answers...)
	return a
}

func cloneProgress(p UserProgress) UserProgress {
	p.CompletedLessons = append([]int64{}, p.CompletedLessons...)
	p.LessonStates = append([]LessonState{}, p.LessonStates...)
	p.QuizScores = append([]QuizScore{}, p.QuizScores...)
	p.Scores = append([]LessonScore{}, p.Scores...)
	return p
}
