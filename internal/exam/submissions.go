package exam

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/examgate/examgate/internal/grading"
	"github.com/examgate/examgate/internal/judge"
)

// SaveMcqAnswer upserts the candidate's answer for one MCQ question and
// scores it synchronously: full points iff the submitted option string is
// byte-for-byte equal to the canonical answer key.
func (s *Service) SaveMcqAnswer(ctx context.Context, examID, accountID, questionID, answer string) (McqSubmission, error) {
	q, err := s.questionForWrite(ctx, examID, questionID, QuestionMCQ)
	if err != nil {
		return McqSubmission{}, err
	}
	if _, err := s.gate(ctx, examID, accountID); err != nil {
		return McqSubmission{}, err
	}
	if q.Mcq == nil {
		return McqSubmission{}, E(KindUnexpected, "question %s has no option set", questionID)
	}

	res, err := s.grader.Grade(ctx, grading.Q{
		Type:      string(QuestionMCQ),
		Points:    q.Points,
		Multi:     q.Mcq.IsMultiSelect,
		AnswerKey: q.Mcq.AnswerOptions,
	}, answer)
	if err != nil {
		if errors.Is(err, grading.ErrShape) {
			return McqSubmission{}, Wrap(KindValidation, "mcq answer", err)
		}
		return McqSubmission{}, Wrap(KindUnexpected, "grade mcq answer", err)
	}

	sub, err := s.store.UpsertMcq(ctx, examID, McqSubmission{
		ID:            uuid.NewString(),
		QuestionID:    questionID,
		AccountID:     accountID,
		AnswerOptions: answer,
		Score:         res.AutoPoints,
	})
	if err != nil {
		return McqSubmission{}, err
	}
	s.record(ctx, "mcq_saved", questionID+"|"+accountID, map[string]any{"score": sub.Score})
	return sub, nil
}

// WrittenAnswer is one item of a batch written-answer save.
type WrittenAnswer struct {
	QuestionID string `json:"question_id"`
	Answer     string `json:"answer"`
}

// SaveWrittenAnswers upserts a batch of written answers in one unit of work.
// Scores and review flags on existing rows are untouched; only the answer
// text changes.
func (s *Service) SaveWrittenAnswers(ctx context.Context, examID, accountID string, answers []WrittenAnswer) ([]WrittenSubmission, error) {
	if len(answers) == 0 {
		return nil, E(KindValidation, "no answers given")
	}
	if _, err := s.gate(ctx, examID, accountID); err != nil {
		return nil, err
	}
	subs := make([]WrittenSubmission, 0, len(answers))
	for _, a := range answers {
		if strings.TrimSpace(a.QuestionID) == "" {
			return nil, E(KindValidation, "question id required")
		}
		if _, err := s.questionForWrite(ctx, examID, a.QuestionID, QuestionWritten); err != nil {
			return nil, err
		}
		subs = append(subs, WrittenSubmission{
			ID:         uuid.NewString(),
			QuestionID: a.QuestionID,
			AccountID:  accountID,
			Answer:     a.Answer,
		})
	}
	saved, err := s.store.UpsertWritten(ctx, examID, subs)
	if err != nil {
		return nil, err
	}
	s.record(ctx, "written_saved", examID+"|"+accountID, map[string]any{"count": len(saved)})
	return saved, nil
}

// SaveProblemAnswer runs the submitted code against every test case of the
// question, sequentially, then persists the submission, its per-case outputs
// and the all-or-nothing score in one unit of work. Executor faults degrade
// individual test cases; only caller cancellation aborts the save.
func (s *Service) SaveProblemAnswer(ctx context.Context, examID, accountID, questionID, language, code string) (ProblemSubmission, error) {
	if strings.TrimSpace(code) == "" {
		return ProblemSubmission{}, E(KindValidation, "code required")
	}
	q, err := s.questionForWrite(ctx, examID, questionID, QuestionProblem)
	if err != nil {
		return ProblemSubmission{}, err
	}
	if _, err := s.gate(ctx, examID, accountID); err != nil {
		return ProblemSubmission{}, err
	}

	cases := make([]judge.TestCase, 0, len(q.TestCases))
	for _, tc := range q.TestCases {
		cases = append(cases, judge.TestCase{ID: tc.ID, Input: tc.Input, Expected: tc.Output})
	}
	results, allAccepted, err := s.runner.Run(ctx, language, code, cases)
	if err != nil {
		return ProblemSubmission{}, Wrap(KindUnexpected, "test-case run aborted", err)
	}

	score := 0.0
	if allAccepted {
		score = q.Points
	}
	outputs := make([]TestCaseOutput, 0, len(results))
	for _, r := range results {
		outputs = append(outputs, TestCaseOutput{
			TestCaseID: r.TestCaseID,
			IsAccepted: r.Accepted,
			Received:   r.Received,
		})
	}

	sub, err := s.store.UpsertProblem(ctx, examID, ProblemSubmission{
		ID:         uuid.NewString(),
		QuestionID: questionID,
		AccountID:  accountID,
		Code:       code,
		Language:   language,
		Score:      score,
		Outputs:    outputs,
	})
	if err != nil {
		return ProblemSubmission{}, err
	}
	s.record(ctx, "problem_graded", questionID+"|"+accountID, map[string]any{
		"accepted": allAccepted,
		"score":    sub.Score,
		"attempts": sub.Attempts,
	})
	return sub, nil
}

// questionForWrite loads the question and defends against cross-exam or
// cross-type writes slipping past boundary validation.
func (s *Service) questionForWrite(ctx context.Context, examID, questionID string, want QuestionType) (Question, error) {
	q, err := s.store.GetQuestion(ctx, questionID)
	if err != nil {
		return Question{}, err
	}
	if q.ExamID != examID {
		return Question{}, E(KindValidation, "question %s does not belong to exam %s", questionID, examID)
	}
	if q.Type != want {
		return Question{}, E(KindValidation, "question %s is not a %s question", questionID, want)
	}
	return q, nil
}
