package grading

import (
	"context"
	"math"
)

// Answer is one submitted response, keyed by question id.
type Answer struct {
	QuestionID int64       `json:"question"`
	Answer     interface{} `json:"answer"`
}

type GradedAnswer struct {
	QuestionID    int64
	Answer        interface{}
	IsCorrect     bool
	PointsAwarded float64
}

type Evaluation struct {
	PerAnswer    []GradedAnswer
	CorrectCount int
	Answered     int
	TotalPoints  float64
	MaxPoints    float64
}

// Score is the equal-weight percentage of correct answers, rounded half up.
// Point weights do not enter into it.
func (e Evaluation) Score() int {
	return Percent(e.CorrectCount, e.Answered)
}

// Passed reports score >= passingScore.
func Passed(score, passingScore int) bool {
	return score >= passingScore
}

// Percent returns round(100*part/whole), or 0 when whole is 0.
func Percent(part, whole int) int {
	if whole <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(part) / float64(whole)))
}

// Evaluate grades answers against questions. Answers referencing unknown
// questions, or that a strategy rejects, count as answered and incorrect.
// Only the first answer for a question id is graded; repeats are dropped.
func Evaluate(ctx context.Context, g Grader, questions []Q, answers []Answer) Evaluation {
	idx := make(map[int64]Q, len(questions))
	for _, q := range questions {
		idx[q.ID] = q
	}

	ev := Evaluation{PerAnswer: make([]GradedAnswer, 0, len(answers))}
	seen := make(map[int64]bool, len(answers))
	for _, a := range answers {
		if seen[a.QuestionID] {
			continue
		}
		seen[a.QuestionID] = true
		ev.Answered++
		ga := GradedAnswer{QuestionID: a.QuestionID, Answer: a.Answer}
		q, ok := idx[a.QuestionID]
		if !ok {
			ev.PerAnswer = append(ev.PerAnswer, ga)
			continue
		}
		ev.MaxPoints += q.Points
		res, err := g.Grade(ctx, q, a.Answer)
		if err == nil && res.Correct {
			ga.IsCorrect = true
			ga.PointsAwarded = q.Points
			ev.CorrectCount++
			ev.TotalPoints += q.Points
		}
		ev.PerAnswer = append(ev.PerAnswer, ga)
	}
	return ev
}
