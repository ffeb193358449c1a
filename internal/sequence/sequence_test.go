package sequence

import (
	"reflect"
	"testing"

	"github.com/mind-engage/mindengage-progress/internal/course"
)

func lesson(id int64) course.ContentRef { return course.ContentRef{Kind: course.KindLesson, RefID: id} }
func quiz(id int64) course.ContentRef   { return course.ContentRef{Kind: course.KindQuiz, RefID: id} }

func scenarioA() course.Course {
	return course.Course{
		ID:            1,
		FreeItemCount: 1,
		Modules: []course.Module{
			{ID: 10, Contents: []course.ContentRef{lesson(101), lesson(102), quiz(201)}},
			{ID: 11, Contents: []course.ContentRef{lesson(103)}},
		},
	}
}

func TestOf_ScenarioA(t *testing.T) {
	seq := Of(scenarioA())
	want := []Item{
		{Type: course.KindLesson, ID: 101, ModuleID: 10},
		{Type: course.KindLesson, ID: 102, ModuleID: 10},
		{Type: course.KindQuiz, ID: 201, ModuleID: 10},
		{Type: course.KindLesson, ID: 103, ModuleID: 11},
	}
	if !reflect.DeepEqual(seq, want) {
		t.Fatalf("sequence=%+v\nwant %+v", seq, want)
	}

	if p := PositionOf(seq, course.KindLesson, 101); p != 0 || !IsFree(p, 1) {
		t.Fatalf("L1 position=%d free=%v, want 0 free", p, IsFree(p, 1))
	}
	if p := PositionOf(seq, course.KindQuiz, 201); p != 2 || IsFree(p, 1) {
		t.Fatalf("Q1 position=%d free=%v, want 2 not free", p, IsFree(p, 1))
	}
}

func TestOf_Deterministic(t *testing.T) {
	c := course.Course{Modules: []course.Module{{
		ID:      1,
		Lessons: []course.OrderedRef{{ID: 5, Order: 2}, {ID: 3, Order: 1}, {ID: 4, Order: 2}},
		Quizzes: []course.OrderedRef{{ID: 9, Order: 0}},
	}}}
	first := Of(c)
	for i := 0; i < 20; i++ {
		if got := Of(c); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d differs: %+v vs %+v", i, got, first)
		}
	}
}

func TestOf_FallbackOrdering(t *testing.T) {
	c := course.Course{Modules: []course.Module{
		{
			ID:      1,
			Lessons: []course.OrderedRef{{ID: 5, Order: 2}, {ID: 3, Order: 1}},
			Quizzes: []course.OrderedRef{{ID: 8, Order: 2}, {ID: 7, Order: 1}},
		},
		{
			ID:       2,
			Contents: []course.ContentRef{quiz(9), lesson(6)},
			// ignored: contents is non-empty
			Lessons: []course.OrderedRef{{ID: 6, Order: 0}, {ID: 99, Order: 1}},
		},
	}}
	got := Of(c)
	var ids []int64
	for _, it := range got {
		ids = append(ids, it.ID)
	}
	want := []int64{3, 5, 7, 8, 9, 6}
	if !reflect.DeepEqual(ids, want) {
		t.Fatalf("ids=%v, want %v", ids, want)
	}
	if got[0].Type != course.KindLesson || got[2].Type != course.KindQuiz {
		t.Fatalf("lessons must precede quizzes in fallback: %+v", got)
	}
}

func TestOf_SkipsMalformedRefs(t *testing.T) {
	c := course.Course{Modules: []course.Module{{
		ID:       1,
		Contents: []course.ContentRef{{Kind: "video", RefID: 4}, lesson(0), lesson(2)},
	}}}
	got := Of(c)
	if len(got) != 1 || got[0].ID != 2 {
		t.Fatalf("got %+v, want only lesson 2", got)
	}
}

func TestPositionOfMissing(t *testing.T) {
	seq := Of(scenarioA())
	p := PositionOf(seq, course.KindQuiz, 101) // lesson id, wrong kind
	if p != NotFound {
		t.Fatalf("position=%d, want NotFound", p)
	}
	if IsFree(p, 10) {
		t.Fatalf("missing item must not be free")
	}
}

func TestCounts(t *testing.T) {
	l, q := Counts(Of(scenarioA()))
	if l != 3 || q != 1 {
		t.Fatalf("lessons=%d quizzes=%d, want 3/1", l, q)
	}
}

func TestOf_EmptyCourse(t *testing.T) {
	if got := Of(course.Course{}); len(got) != 0 {
		t.Fatalf("expected empty sequence, got %+v", got)
	}
}
