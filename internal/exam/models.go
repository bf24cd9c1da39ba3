package exam

import "time"

type QuestionType string

const (
	QuestionMCQ     QuestionType = "mcq"
	QuestionWritten QuestionType = "written"
	QuestionProblem QuestionType = "problem_solving"
)

type Examination struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	OpensAt         time.Time `json:"opens_at"`
	ClosesAt        time.Time `json:"closes_at"`
	DurationMinutes int       `json:"duration_minutes"`

	McqPoints     float64 `json:"mcq_points"`
	WrittenPoints float64 `json:"written_points"`
	ProblemPoints float64 `json:"problem_points"`
	TotalPoints   float64 `json:"total_points"`

	IsPublished bool  `json:"is_published"`
	CreatedAt   int64 `json:"created_at,omitempty"`
}

// McqOption holds the four option strings and the canonical correct answer,
// a comma-separated ascending list of option indices ("2" or "1,3").
type McqOption struct {
	Option1       string `json:"option1"`
	Option2       string `json:"option2"`
	Option3       string `json:"option3"`
	Option4       string `json:"option4"`
	IsMultiSelect bool   `json:"is_multi_select"`
	AnswerOptions string `json:"answer_options,omitempty"` // hidden from candidates
}

type TestCase struct {
	ID     string `json:"id"`
	Input  string `json:"input"`
	Output string `json:"output"` // expected stdout
}

type Question struct {
	ID          string       `json:"id"`
	ExamID      string       `json:"exam_id"`
	Type        QuestionType `json:"type"`
	StatementMD string       `json:"statement_md"`
	Points      float64      `json:"points"`
	Difficulty  string       `json:"difficulty,omitempty"` // easy|medium|hard

	Mcq       *McqOption `json:"mcq,omitempty"`        // type == mcq
	TestCases []TestCase `json:"test_cases,omitempty"` // type == problem_solving, ordered
}

// Candidate is one (exam, account) invitation/session/scoreboard row.
//
// SubmittedAt is meaningful only relative to StartedAt: before the session
// starts it is nil, after StartSession it holds the computed deadline, and
// after FinalizeSession it holds the actual submit time.
type Candidate struct {
	ExamID    string `json:"exam_id"`
	AccountID string `json:"account_id"`
	Email     string `json:"email"`

	StartedAt   *time.Time `json:"started_at,omitempty"` // set at most once
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`

	McqScore     float64 `json:"mcq_score"`
	WrittenScore float64 `json:"written_score"`
	ProblemScore float64 `json:"problem_score"`

	HasCheated bool `json:"has_cheated"`
}

// TotalScore is the sum of the three category fields; it is never stored.
func (c Candidate) TotalScore() float64 {
	return c.McqScore + c.WrittenScore + c.ProblemScore
}

type McqSubmission struct {
	ID            string  `json:"id"`
	QuestionID    string  `json:"question_id"`
	AccountID     string  `json:"account_id"`
	AnswerOptions string  `json:"answer_options"`
	Score         float64 `json:"score"`
}

type WrittenSubmission struct {
	ID         string  `json:"id"`
	QuestionID string  `json:"question_id"`
	AccountID  string  `json:"account_id"`
	Answer     string  `json:"answer"`
	Score      float64 `json:"score"`
	IsFlagged  bool    `json:"is_flagged"`
	FlagReason string  `json:"flag_reason,omitempty"`
}

// TestCaseOutput records one execution outcome per test case, in test-case order.
type TestCaseOutput struct {
	TestCaseID string `json:"test_case_id"`
	IsAccepted bool   `json:"is_accepted"`
	Received   string `json:"received_output"`
}

type ProblemSubmission struct {
	ID         string           `json:"id"`
	QuestionID string           `json:"question_id"`
	AccountID  string           `json:"account_id"`
	Code       string           `json:"code"`
	Language   string           `json:"language"`
	Attempts   int              `json:"attempts"`
	Score      float64          `json:"score"`
	IsFlagged  bool             `json:"is_flagged"`
	FlagReason string           `json:"flag_reason,omitempty"`
	Outputs    []TestCaseOutput `json:"outputs,omitempty"`
}

// SubmissionSet bundles everything a candidate has answered so far in one
// exam, used to resume a session after a page reload.
type SubmissionSet struct {
	Mcq      []McqSubmission     `json:"mcq"`
	Written  []WrittenSubmission `json:"written"`
	Problems []ProblemSubmission `json:"problems"`
}
