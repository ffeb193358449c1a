package grading

import (
	"context"
	"errors"
	"strconv"
	"strings"
)

// Question types understood by the default grader.
const (
	TypeMultipleChoice = "multiple-choice"
	TypeTrueFalse      = "true-false"
	TypeShortAnswer    = "short-answer"
	TypeFillBlank      = "fill-blank"
)

type Choice struct {
	Text      string
	IsCorrect bool
}

// Q is a minimal view of a question needed for grading.
type Q struct {
	ID                int64
	Type              string
	Points            float64
	Options           []Choice
	CorrectBool       *bool
	AcceptableAnswers []string
	CorrectAnswer     string
}

// Result is the outcome of grading a single question response.
type Result struct {
	Correct    bool
	AutoPoints float64 // points awarded
	MaxPoints  float64 // the question's max points
	Feedback   []string
}

// Strategy grades a single question.
type Strategy interface {
	Grade(ctx context.Context, q Q, response interface{}) (Result, error)
}

// Grader routes by question type to the correct Strategy.
type Grader interface {
	Grade(ctx context.Context, q Q, response interface{}) (Result, error)
}

type defaultGrader struct {
	strategies map[string]Strategy
}

func (g *defaultGrader) Grade(ctx context.Context, q Q, response interface{}) (Result, error) {
	s, ok := g.strategies[q.Type]
	if !ok {
		return Result{MaxPoints: q.Points, Feedback: []string{"no strategy available"}}, nil
	}
	return s.Grade(ctx, q, response)
}

type Option func(*config)

type config struct {
	extra map[string]Strategy
}

// WithStrategy installs or replaces the strategy for a question type.
func WithStrategy(typ string, s Strategy) Option {
	return func(c *config) { c.extra[typ] = s }
}

// NewDefaultGrader installs built-in strategies.
func NewDefaultGrader(opts ...Option) Grader {
	cfg := &config{extra: map[string]Strategy{}}
	for _, o := range opts {
		o(cfg)
	}
	strategies := map[string]Strategy{
		TypeMultipleChoice: multipleChoiceStrategy{},
		TypeTrueFalse:      trueFalseStrategy{},
		TypeShortAnswer:    textAnswerStrategy{},
		TypeFillBlank:      textAnswerStrategy{},
	}
	for k, v := range cfg.extra {
		strategies[k] = v
	}
	return &defaultGrader{strategies: strategies}
}

// --- Strategies ---

// multipleChoiceStrategy is single-answer: the response must equal the text
// of the option flagged correct.
type multipleChoiceStrategy struct{}

func (multipleChoiceStrategy) Grade(_ context.Context, q Q, response interface{}) (Result, error) {
	res := Result{MaxPoints: q.Points}
	resp, ok := response.(string)
	if !ok {
		return res, errors.New("response must be string")
	}
	for _, o := range q.Options {
		if o.IsCorrect {
			if resp == o.Text {
				res.Correct = true
				res.AutoPoints = q.Points
			}
			return res, nil
		}
	}
	res.Feedback = append(res.Feedback, "no option flagged correct")
	return res, nil
}

type trueFalseStrategy struct{}

func (trueFalseStrategy) Grade(_ context.Context, q Q, response interface{}) (Result, error) {
	res := Result{MaxPoints: q.Points}
	var resp bool
	switch v := response.(type) {
	case bool:
		resp = v
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return res, errors.New("response must be boolean")
		}
		resp = b
	default:
		return res, errors.New("response must be boolean")
	}
	if q.CorrectBool != nil && resp == *q.CorrectBool {
		res.Correct = true
		res.AutoPoints = q.Points
	}
	return res, nil
}

// textAnswerStrategy serves short-answer and fill-blank: case and surrounding
// whitespace are ignored. The acceptable list wins over CorrectAnswer when non-empty.
type textAnswerStrategy struct{}

func (textAnswerStrategy) Grade(_ context.Context, q Q, response interface{}) (Result, error) {
	res := Result{MaxPoints: q.Points}
	text, ok := toText(response)
	if !ok {
		return res, errors.New("response must be text")
	}
	got := normalize(text)

	keys := q.AcceptableAnswers
	if len(keys) == 0 {
		keys = []string{q.CorrectAnswer}
	}
	for _, k := range keys {
		nk := normalize(k)
		if nk != "" && nk == got {
			res.Correct = true
			res.AutoPoints = q.Points
			return res, nil
		}
	}
	return res, nil
}

// helpers

func toText(v interface{}) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}
