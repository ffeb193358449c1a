package progress

import (
	"context"
	"fmt"
	"time"

	"github.com/mind-engage/mindengage-progress/internal/course"
	"github.com/mind-engage/mindengage-progress/internal/grading"
	"github.com/mind-engage/mindengage-progress/internal/sequence"
)

type LessonProgress struct {
	LessonID  int64   `json:"lessonId"`
	ModuleID  int64   `json:"moduleId"`
	Completed bool    `json:"completed"`
	Progress  float64 `json:"progress"`
}

type ModuleProgress struct {
	ModuleID       int64  `json:"moduleId"`
	Title          string `json:"title"`
	TotalItems     int    `json:"totalItems"`
	CompletedItems int    `json:"completedItems"`
	Completed      bool   `json:"completed"`
}

// View is the read model served to the UI.
type View struct {
	CourseID           int64                 `json:"courseId"`
	TotalLessons       int                   `json:"totalLessons"`
	CompletedLessons   int                   `json:"completedLessons"`
	ProgressPercentage int                   `json:"progressPercentage"`
	LessonProgress     []LessonProgress      `json:"lessonProgress"`
	ModulesProgress    []ModuleProgress      `json:"modulesProgress"`
	NextIncompleteItem *sequence.Item        `json:"nextIncompleteItem"`
	QuizCount          int                   `json:"quizCount"`
	Status             course.ProgressStatus `json:"status"`
	EnrolledAt         time.Time             `json:"enrolledAt"`
	LastAccessedAt     time.Time             `json:"lastAccessedAt"`
}

// GetProgress projects the user's record over the current curriculum. The
// only write is creating the record when absent.
func (a *Aggregator) GetProgress(ctx context.Context, userID, courseID int64) (View, error) {
	c, err := a.store.LoadCurriculum(ctx, courseID)
	if err != nil {
		return View{}, err
	}
	p, err := a.store.FindOrCreateProgress(ctx, userID, courseID, a.now())
	if err != nil {
		return View{}, fmt.Errorf("progress: load: %w", err)
	}

	seq := sequence.Of(c)
	_, quizCount := sequence.Counts(seq)
	done := completedItems(&p)
	pct := grading.Percent(done, len(seq))
	if pct > 100 {
		pct = 100
	}

	watch := make(map[int64]float64, len(p.LessonStates))
	for _, st := range p.LessonStates {
		watch[st.LessonID] = st.Progress
	}

	v := View{
		CourseID:           courseID,
		TotalLessons:       len(seq),
		CompletedLessons:   done,
		ProgressPercentage: pct,
		LessonProgress:     []LessonProgress{},
		ModulesProgress:    make([]ModuleProgress, 0, len(c.Modules)),
		QuizCount:          quizCount,
		Status:             p.Status,
		EnrolledAt:         p.EnrolledAt,
		LastAccessedAt:     p.LastAccessedAt,
	}

	perModule := map[int64]*ModuleProgress{}
	for _, m := range c.Modules {
		v.ModulesProgress = append(v.ModulesProgress, ModuleProgress{ModuleID: m.ID, Title: m.Title})
	}
	for i := range v.ModulesProgress {
		perModule[v.ModulesProgress[i].ModuleID] = &v.ModulesProgress[i]
	}

	for i, it := range seq {
		finished := itemDone(&p, it)
		if it.Type == course.KindLesson {
			v.LessonProgress = append(v.LessonProgress, LessonProgress{
				LessonID:  it.ID,
				ModuleID:  it.ModuleID,
				Completed: finished,
				Progress:  watch[it.ID],
			})
		}
		if mp := perModule[it.ModuleID]; mp != nil {
			mp.TotalItems++
			if finished {
				mp.CompletedItems++
			}
		}
		if !finished && v.NextIncompleteItem == nil {
			next := seq[i]
			v.NextIncompleteItem = &next
		}
	}
	for i := range v.ModulesProgress {
		mp := &v.ModulesProgress[i]
		mp.Completed = mp.TotalItems > 0 && mp.CompletedItems == mp.TotalItems
	}
	return v, nil
}

func itemDone(p *course.UserProgress, it sequence.Item) bool {
	if it.Type == course.KindQuiz {
		return p.HasPassedQuiz(it.ID)
	}
	return p.HasCompletedLesson(it.ID)
}
