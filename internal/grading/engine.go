package grading

import (
	"context"
	"errors"
	"strings"
)

// Q is the minimal view of a question needed for grading.
type Q struct {
	Type      string // mcq|written|problem_solving
	Points    float64
	Multi     bool   // mcq: multi-select
	AnswerKey string // mcq: canonical comma-separated ascending option indices
}

// Result is the outcome of grading a single answer.
type Result struct {
	AutoPoints  float64 // points awarded automatically
	MaxPoints   float64 // the question's max points
	NeedsManual bool    // true if reviewer action is required
	Feedback    []string
}

// ErrShape reports an answer whose shape does not match the question
// (comma list for a single-select, or a bare index for a multi-select).
// The boundary validates this too; the engine refuses to score it silently.
var ErrShape = errors.New("answer shape does not match question")

// Strategy grades a single answer string.
type Strategy interface {
	Grade(ctx context.Context, q Q, answer string) (Result, error)
}

// Grader routes by question type to the correct Strategy.
type Grader interface {
	Grade(ctx context.Context, q Q, answer string) (Result, error)
}

type defaultGrader struct {
	strategies map[string]Strategy
}

func (g *defaultGrader) Grade(ctx context.Context, q Q, answer string) (Result, error) {
	s, ok := g.strategies[q.Type]
	if !ok {
		return Result{MaxPoints: q.Points, NeedsManual: true, Feedback: []string{"no strategy available"}}, nil
	}
	return s.Grade(ctx, q, answer)
}

// NewDefaultGrader installs the built-in strategies. Problem-solving answers
// are scored by the execution orchestrator, not here.
func NewDefaultGrader() Grader {
	return &defaultGrader{
		strategies: map[string]Strategy{
			"mcq":     mcqStrategy{},
			"written": writtenStrategy{},
		},
	}
}

// --- Strategies ---

// mcqStrategy awards full points iff the submitted option string is
// byte-for-byte equal to the canonical answer key; anything else is 0.
type mcqStrategy struct{}

func (mcqStrategy) Grade(_ context.Context, q Q, answer string) (Result, error) {
	res := Result{MaxPoints: q.Points}
	hasComma := strings.Contains(answer, ",")
	if q.Multi != hasComma {
		return res, ErrShape
	}
	if answer == q.AnswerKey {
		res.AutoPoints = q.Points
	}
	return res, nil
}

type writtenStrategy struct{}

func (writtenStrategy) Grade(_ context.Context, q Q, _ string) (Result, error) {
	return Result{MaxPoints: q.Points, NeedsManual: true, Feedback: []string{"manual review required"}}, nil
}
