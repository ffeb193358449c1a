package grading

import (
	"context"
	"testing"
)

func boolPtr(b bool) *bool { return &b }

func TestMultipleChoice(t *testing.T) {
	g := NewDefaultGrader()
	q := Q{ID: 1, Type: TypeMultipleChoice, Points: 1, Options: []Choice{{Text: "A", IsCorrect: true}, {Text: "B"}}}

	res, err := g.Grade(context.Background(), q, "A")
	if err != nil || !res.Correct || res.AutoPoints != 1 {
		t.Fatalf("A: res=%+v err=%v, want correct", res, err)
	}
	res, err = g.Grade(context.Background(), q, "B")
	if err != nil || res.Correct || res.AutoPoints != 0 {
		t.Fatalf("B: res=%+v err=%v, want incorrect", res, err)
	}
	// exact match only
	if res, _ := g.Grade(context.Background(), q, "a"); res.Correct {
		t.Fatalf("lower-case option text graded correct")
	}
	if _, err := g.Grade(context.Background(), q, 3.0); err == nil {
		t.Fatalf("expected error for non-string response")
	}
}

func TestTrueFalse(t *testing.T) {
	g := NewDefaultGrader()
	q := Q{ID: 2, Type: TypeTrueFalse, Points: 2, CorrectBool: boolPtr(false)}

	if res, _ := g.Grade(context.Background(), q, false); !res.Correct || res.AutoPoints != 2 {
		t.Fatalf("false: %+v", res)
	}
	if res, _ := g.Grade(context.Background(), q, "false"); !res.Correct {
		t.Fatalf(`"false" should parse and match`)
	}
	if res, _ := g.Grade(context.Background(), q, true); res.Correct {
		t.Fatalf("true graded correct")
	}
	if res, _ := g.Grade(context.Background(), Q{Type: TypeTrueFalse}, true); res.Correct {
		t.Fatalf("question without key graded correct")
	}
}

func TestShortAnswer_AcceptableList(t *testing.T) {
	g := NewDefaultGrader()
	q := Q{ID: 3, Type: TypeShortAnswer, Points: 1, AcceptableAnswers: []string{"Paris", " paris "}, CorrectAnswer: "London"}

	if res, _ := g.Grade(context.Background(), q, "PARIS"); !res.Correct {
		t.Fatalf("PARIS should match")
	}
	if res, _ := g.Grade(context.Background(), q, "  paris\n"); !res.Correct {
		t.Fatalf("padded paris should match")
	}
	// the acceptable list wins over correctAnswer
	if res, _ := g.Grade(context.Background(), q, "London"); res.Correct {
		t.Fatalf("correctAnswer consulted despite acceptable list")
	}
}

func TestFillBlank_CorrectAnswerFallback(t *testing.T) {
	g := NewDefaultGrader()
	q := Q{ID: 4, Type: TypeFillBlank, Points: 1, CorrectAnswer: "4"}

	if res, _ := g.Grade(context.Background(), q, " 4 "); !res.Correct {
		t.Fatalf("string 4 should match")
	}
	if res, _ := g.Grade(context.Background(), q, 4.0); !res.Correct {
		t.Fatalf("JSON number 4 should match")
	}
	if res, _ := g.Grade(context.Background(), Q{Type: TypeFillBlank}, ""); res.Correct {
		t.Fatalf("empty answer matched empty key")
	}
}

func TestGrader_UnknownType(t *testing.T) {
	res, err := NewDefaultGrader().Grade(context.Background(), Q{Type: "essay", Points: 5}, "x")
	if err != nil || res.Correct || res.MaxPoints != 5 {
		t.Fatalf("res=%+v err=%v", res, err)
	}
}

type alwaysRight struct{}

func (alwaysRight) Grade(_ context.Context, q Q, _ interface{}) (Result, error) {
	return Result{Correct: true, AutoPoints: q.Points, MaxPoints: q.Points}, nil
}

func TestWithStrategy_Overrides(t *testing.T) {
	g := NewDefaultGrader(WithStrategy(TypeMultipleChoice, alwaysRight{}))
	res, _ := g.Grade(context.Background(), Q{Type: TypeMultipleChoice, Points: 1}, "anything")
	if !res.Correct {
		t.Fatalf("override not installed")
	}
}

func TestEvaluate_EqualWeightScore(t *testing.T) {
	qs := []Q{
		{ID: 1, Type: TypeMultipleChoice, Points: 10, Options: []Choice{{Text: "A", IsCorrect: true}}},
		{ID: 2, Type: TypeTrueFalse, Points: 1, CorrectBool: boolPtr(true)},
		{ID: 3, Type: TypeShortAnswer, Points: 1, CorrectAnswer: "x"},
	}
	answers := []Answer{
		{QuestionID: 1, Answer: "A"},
		{QuestionID: 2, Answer: false},
		{QuestionID: 3, Answer: "X"},
		{QuestionID: 99, Answer: "ghost"},
	}
	ev := Evaluate(context.Background(), NewDefaultGrader(), qs, answers)

	if ev.Answered != 4 || ev.CorrectCount != 2 {
		t.Fatalf("answered=%d correct=%d", ev.Answered, ev.CorrectCount)
	}
	if ev.TotalPoints != 11 || ev.MaxPoints != 12 {
		t.Fatalf("points=%v/%v, want 11/12", ev.TotalPoints, ev.MaxPoints)
	}
	// 2 of 4 regardless of the 10-point question
	if s := ev.Score(); s != 50 {
		t.Fatalf("score=%d, want 50", s)
	}
	if len(ev.PerAnswer) != 4 || ev.PerAnswer[3].IsCorrect || ev.PerAnswer[3].PointsAwarded != 0 {
		t.Fatalf("unknown question entry: %+v", ev.PerAnswer)
	}
	if !ev.PerAnswer[0].IsCorrect || ev.PerAnswer[0].PointsAwarded != 10 {
		t.Fatalf("first entry: %+v", ev.PerAnswer[0])
	}
}

func TestEvaluate_RejectedResponseIsIncorrect(t *testing.T) {
	qs := []Q{{ID: 1, Type: TypeTrueFalse, Points: 1, CorrectBool: boolPtr(true)}}
	ev := Evaluate(context.Background(), NewDefaultGrader(), qs, []Answer{{QuestionID: 1, Answer: []int{1}}})
	if ev.CorrectCount != 0 || ev.Answered != 1 || ev.Score() != 0 {
		t.Fatalf("ev=%+v", ev)
	}
}

func TestEvaluate_DuplicateAnswersKeepFirst(t *testing.T) {
	qs := []Q{
		{ID: 1, Type: TypeMultipleChoice, Points: 1, Options: []Choice{{Text: "A", IsCorrect: true}}},
		{ID: 2, Type: TypeTrueFalse, Points: 1, CorrectBool: boolPtr(true)},
	}
	answers := []Answer{
		{QuestionID: 2, Answer: false},
		{QuestionID: 1, Answer: "A"},
		{QuestionID: 1, Answer: "A"},
		{QuestionID: 1, Answer: "A"},
		{QuestionID: 2, Answer: true},
	}
	ev := Evaluate(context.Background(), NewDefaultGrader(), qs, answers)
	if ev.Answered != 2 || ev.CorrectCount != 1 || ev.MaxPoints != 2 || ev.TotalPoints != 1 {
		t.Fatalf("ev=%+v", ev)
	}
	if ev.Score() != 50 || len(ev.PerAnswer) != 2 || ev.PerAnswer[0].IsCorrect {
		t.Fatalf("score=%d per=%+v", ev.Score(), ev.PerAnswer)
	}
}

func TestPercentAndPassed(t *testing.T) {
	cases := []struct{ part, whole, want int }{
		{0, 0, 0},
		{1, 3, 33},
		{2, 3, 67},
		{1, 2, 50},
		{1, 8, 13}, // 12.5 rounds up
		{3, 3, 100},
	}
	for _, c := range cases {
		if got := Percent(c.part, c.whole); got != c.want {
			t.Fatalf("Percent(%d,%d)=%d, want %d", c.part, c.whole, got, c.want)
		}
	}
	if !Passed(70, 70) || Passed(69, 70) {
		t.Fatalf("Passed threshold wrong")
	}
}
