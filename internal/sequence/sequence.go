// Package sequence flattens a course's modules into the single ordered list of
// lessons and quizzes every other component reasons about.
package sequence

import (
	"sort"

	"github.com/mind-engage/mindengage-progress/internal/course"
)

// NotFound is the position reported for items absent from a sequence.
const NotFound = -1

type Item struct {
	Type     course.ItemKind `json:"type"`
	ID       int64           `json:"id"`
	ModuleID int64           `json:"moduleId"`
}

// Of returns the course's items in display order. Modules follow the course's
// module order; inside a module the contents list wins when non-empty,
// otherwise lessons then quizzes, each sorted by their order field.
// c must come from Catalog.LoadCurriculum.
func Of(c course.Course) []Item {
	out := make([]Item, 0, 16)
	for _, m := range c.Modules {
		out = append(out, moduleItems(m)...)
	}
	return out
}

func moduleItems(m course.Module) []Item {
	if len(m.Contents) > 0 {
		out := make([]Item, 0, len(m.Contents))
		for _, ref := range m.Contents {
			if ref.RefID == 0 {
				continue
			}
			switch ref.Kind {
			case course.KindLesson, course.KindQuiz:
				out = append(out, Item{Type: ref.Kind, ID: ref.RefID, ModuleID: m.ID})
			}
		}
		return out
	}

	out := make([]Item, 0, len(m.Lessons)+len(m.Quizzes))
	for _, r := range byOrder(m.Lessons) {
		out = append(out, Item{Type: course.KindLesson, ID: r.ID, ModuleID: m.ID})
	}
	for _, r := range byOrder(m.Quizzes) {
		out = append(out, Item{Type: course.KindQuiz, ID: r.ID, ModuleID: m.ID})
	}
	return out
}

// byOrder sorts a copy; ties keep their incoming (id) order.
func byOrder(refs []course.OrderedRef) []course.OrderedRef {
	cp := append([]course.OrderedRef(nil), refs...)
	sort.SliceStable(cp, func(i, j int) bool { return cp[i].Order < cp[j].Order })
	return cp
}

// PositionOf returns the index of the item in seq, or NotFound.
func PositionOf(seq []Item, kind course.ItemKind, id int64) int {
	for i, it := range seq {
		if it.Type == kind && it.ID == id {
			return i
		}
	}
	return NotFound
}

// IsFree reports whether position falls inside the course's free prefix.
func IsFree(position, freeItemCount int) bool {
	return position >= 0 && position < freeItemCount
}

// Counts tallies lessons and quizzes in seq.
func Counts(seq []Item) (lessons, quizzes int) {
	for _, it := range seq {
		switch it.Type {
		case course.KindLesson:
			lessons++
		case course.KindQuiz:
			quizzes++
		}
	}
	return lessons, quizzes
}
