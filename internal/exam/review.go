package exam

import (
	"context"
)

// ReviewInput is a reviewer's (human or AI-assisted) change set. Score and
// flags are independent: a reviewer can flag without re-scoring.
type ReviewInput struct {
	Score      *float64 `json:"score,omitempty"`
	IsFlagged  *bool    `json:"is_flagged,omitempty"`
	FlagReason *string  `json:"flag_reason,omitempty"`
}

// ReviewWritten overwrites a written submission's review fields. A provided
// score replaces the submission's score and moves the written category total
// on the candidate's scoreboard row by the same delta, so the grand total
// stays the sum of the three category fields.
func (s *Service) ReviewWritten(ctx context.Context, examID, accountID, submissionID string, in ReviewInput) (WrittenSubmission, error) {
	sub, err := s.store.ApplyWrittenReview(ctx, examID, ReviewUpdate{
		SubmissionID: submissionID,
		AccountID:    accountID,
		Score:        in.Score,
		IsFlagged:    in.IsFlagged,
		FlagReason:   in.FlagReason,
	})
	if err != nil {
		return WrittenSubmission{}, err
	}
	s.record(ctx, "review_applied", submissionID, map[string]any{"kind": "written"})
	return sub, nil
}

// ReviewProblem is ReviewWritten for problem-solving submissions, moving the
// problem-solving category total instead.
func (s *Service) ReviewProblem(ctx context.Context, examID, accountID, submissionID string, in ReviewInput) (ProblemSubmission, error) {
	sub, err := s.store.ApplyProblemReview(ctx, examID, ReviewUpdate{
		SubmissionID: submissionID,
		AccountID:    accountID,
		Score:        in.Score,
		IsFlagged:    in.IsFlagged,
		FlagReason:   in.FlagReason,
	})
	if err != nil {
		return ProblemSubmission{}, err
	}
	s.record(ctx, "review_applied", submissionID, map[string]any{"kind": "problem"})
	return sub, nil
}

// SuggestWrittenReview asks the AI collaborator to draft a review for a
// written submission. The suggestion only pre-fills the reviewer's form;
// nothing is committed here.
func (s *Service) SuggestWrittenReview(ctx context.Context, submissionID string) (ReviewSuggestion, error) {
	if s.reviewer == nil {
		return ReviewSuggestion{}, E(KindValidation, "ai review is not configured")
	}
	sub, err := s.store.GetWrittenSubmission(ctx, submissionID)
	if err != nil {
		return ReviewSuggestion{}, err
	}
	q, err := s.store.GetQuestion(ctx, sub.QuestionID)
	if err != nil {
		return ReviewSuggestion{}, err
	}
	sugg, err := s.reviewer.Review(ctx, q.StatementMD, sub.Answer, q.Points)
	if err != nil {
		return ReviewSuggestion{}, Wrap(KindUnexpected, "ai review", err)
	}
	return sugg, nil
}
