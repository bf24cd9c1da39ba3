package exam

import (
	"context"
	"time"
)

// Invite names one account to add to an exam's candidate list.
type Invite struct {
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
}

// ReviewUpdate carries a reviewer's changes for one submission. Nil fields
// are left untouched, so a reviewer can flag without re-scoring.
type ReviewUpdate struct {
	SubmissionID string
	AccountID    string
	Score        *float64
	IsFlagged    *bool
	FlagReason   *string
}

// Store is the persistence contract the core depends on. Every mutating
// method is one atomic unit of work: either all of its writes commit or none
// do. Implementations map missing rows to KindNotFound and storage faults to
// KindUnexpected; they never decide session policy (that is the Service's job).
type Store interface {
	PutExam(ctx context.Context, e Examination, qs []Question) error
	PublishExam(ctx context.Context, examID string) (Examination, error)
	GetExam(ctx context.Context, id string) (Examination, error)
	QuestionsForExam(ctx context.Context, examID string) ([]Question, error)
	GetQuestion(ctx context.Context, id string) (Question, error)

	InviteCandidates(ctx context.Context, examID string, invites []Invite) (int, error)
	GetCandidate(ctx context.Context, examID, accountID string) (Candidate, error)
	// StartCandidate stamps started_at and the deadline in one conditional
	// write. If the session was already started (possibly by a concurrent
	// call) it returns the existing row untouched.
	StartCandidate(ctx context.Context, examID, accountID string, startedAt, deadline time.Time) (Candidate, error)
	FinalizeCandidate(ctx context.Context, examID, accountID string, submittedAt time.Time) (Candidate, error)
	// SetCheated raises the candidate's cheating flag. The flag is sticky:
	// there is no operation to clear it.
	SetCheated(ctx context.Context, examID, accountID string) (Candidate, error)

	Submissions(ctx context.Context, examID, accountID string) (SubmissionSet, error)

	// UpsertMcq inserts or overwrites the (question, account) row and adjusts
	// the candidate's MCQ category total by the score delta in the same
	// transaction.
	UpsertMcq(ctx context.Context, examID string, sub McqSubmission) (McqSubmission, error)
	// UpsertWritten upserts the whole batch in one transaction. Review fields
	// (score, flags) on existing rows are left untouched, so the written
	// category total never moves here: only ApplyWrittenReview changes it.
	UpsertWritten(ctx context.Context, examID string, subs []WrittenSubmission) ([]WrittenSubmission, error)
	// UpsertProblem upserts the submission, increments its attempts counter,
	// replaces its test-case outputs and adjusts the candidate's
	// problem-solving category total, all in one transaction.
	UpsertProblem(ctx context.Context, examID string, sub ProblemSubmission) (ProblemSubmission, error)

	GetWrittenSubmission(ctx context.Context, id string) (WrittenSubmission, error)
	GetProblemSubmission(ctx context.Context, id string) (ProblemSubmission, error)
	// ApplyWrittenReview/ApplyProblemReview overwrite the submission's review
	// fields and move the matching category total on the candidate row by the
	// score delta, atomically. A submission without a candidate row is a
	// data-integrity fault (KindUnexpected).
	ApplyWrittenReview(ctx context.Context, examID string, upd ReviewUpdate) (WrittenSubmission, error)
	ApplyProblemReview(ctx context.Context, examID string, upd ReviewUpdate) (ProblemSubmission, error)
}
