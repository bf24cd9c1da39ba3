package exam

import (
	"context"
	"time"

	"github.com/examgate/examgate/internal/grading"
	"github.com/examgate/examgate/internal/judge"
)

// CodeRunner drives a problem submission through its test cases. Satisfied
// by *judge.Runner; faked in tests.
type CodeRunner interface {
	Run(ctx context.Context, language, code string, cases []judge.TestCase) ([]judge.CaseResult, bool, error)
}

// EventSink receives audit events. Appends are best-effort and must not
// fail the operation that emitted them.
type EventSink interface {
	Record(ctx context.Context, typ, key string, data any)
}

// ReviewSuggestion is an AI-drafted review. It pre-fills a reviewer's form
// and is never committed on its own.
type ReviewSuggestion struct {
	ReviewText string  `json:"review_text"`
	Score      float64 `json:"score"`
}

// Reviewer is the AI review collaborator.
type Reviewer interface {
	Review(ctx context.Context, statement, answer string, maxPoints float64) (ReviewSuggestion, error)
}

// Service is the exam session and grading engine. All clock reads go through
// the injected now func so deadline gates are deterministic under test.
type Service struct {
	store    Store
	grader   grading.Grader
	runner   CodeRunner
	reviewer Reviewer
	events   EventSink
	now      func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }
func WithEventSink(es EventSink) Option     { return func(s *Service) { s.events = es } }
func WithReviewer(r Reviewer) Option        { return func(s *Service) { s.reviewer = r } }
func WithGrader(g grading.Grader) Option    { return func(s *Service) { s.grader = g } }

func NewService(store Store, runner CodeRunner, opts ...Option) *Service {
	s := &Service{
		store:  store,
		grader: grading.NewDefaultGrader(),
		runner: runner,
		now:    time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) record(ctx context.Context, typ, key string, data any) {
	if s.events != nil {
		s.events.Record(ctx, typ, key, data)
	}
}

// SessionState is returned by StartSession so a reloaded client can resume:
// the fixed deadline plus everything already answered.
type SessionState struct {
	ExamID      string        `json:"exam_id"`
	AccountID   string        `json:"account_id"`
	StartedAt   time.Time     `json:"started_at"`
	Deadline    time.Time     `json:"deadline"`
	Submissions SubmissionSet `json:"submissions"`
}

// StartSession opens (or resumes) the candidate's one-shot timed session.
//
// Not invited, or already closed out (prior deadline/submit in the past),
// fails Forbidden. A failure to load the exam itself is Unexpected. The
// first call stamps started_at and the deadline atomically; later calls
// only return the existing state.
func (s *Service) StartSession(ctx context.Context, examID, accountID string) (SessionState, error) {
	cand, err := s.store.GetCandidate(ctx, examID, accountID)
	if err != nil {
		if IsKind(err, KindNotFound) {
			return SessionState{}, E(KindForbidden, "account %s is not invited to exam %s", accountID, examID)
		}
		return SessionState{}, err
	}
	now := s.now()
	if cand.SubmittedAt != nil && now.After(*cand.SubmittedAt) {
		return SessionState{}, E(KindForbidden, "exam already finished or expired")
	}

	ex, err := s.store.GetExam(ctx, examID)
	if err != nil {
		return SessionState{}, Wrap(KindUnexpected, "load exam", err)
	}

	if cand.StartedAt == nil {
		if ex.StatusOf(now) != StatusRunning {
			return SessionState{}, E(KindForbidden, "exam %s is not running", examID)
		}
		deadline := now.Add(time.Duration(ex.DurationMinutes) * time.Minute)
		cand, err = s.store.StartCandidate(ctx, examID, accountID, now, deadline)
		if err != nil {
			return SessionState{}, err
		}
		s.record(ctx, "session_started", examID+"|"+accountID, map[string]any{"deadline": deadline.Unix()})
	}

	subs, err := s.store.Submissions(ctx, examID, accountID)
	if err != nil {
		return SessionState{}, err
	}
	return SessionState{
		ExamID:      examID,
		AccountID:   accountID,
		StartedAt:   *cand.StartedAt,
		Deadline:    *cand.SubmittedAt,
		Submissions: subs,
	}, nil
}

// FinalizeSession is the candidate's explicit submit. It unconditionally
// overwrites submitted_at with now; every later answer write is then
// rejected by the gate. A missing session row is a data-integrity fault.
func (s *Service) FinalizeSession(ctx context.Context, examID, accountID string) (Candidate, error) {
	cand, err := s.store.FinalizeCandidate(ctx, examID, accountID, s.now())
	if err != nil {
		if IsKind(err, KindNotFound) {
			return Candidate{}, Wrap(KindUnexpected, "no session to finalize", err)
		}
		return Candidate{}, err
	}
	s.record(ctx, "session_submitted", examID+"|"+accountID, nil)
	return cand, nil
}

// MarkCheated records a cheating report from the exam client (tab switch,
// clipboard use). The flag is sticky and shown to reviewers; it does not end
// the session by itself.
func (s *Service) MarkCheated(ctx context.Context, examID, accountID string) (Candidate, error) {
	cand, err := s.store.SetCheated(ctx, examID, accountID)
	if err != nil {
		if IsKind(err, KindNotFound) {
			return Candidate{}, E(KindForbidden, "account %s is not invited to exam %s", accountID, examID)
		}
		return Candidate{}, err
	}
	s.record(ctx, "cheating_reported", examID+"|"+accountID, nil)
	return cand, nil
}

// gate re-validates the candidate before every answer write. A session can
// expire between page load and submit, so this check runs on each call with
// a fresh clock read.
func (s *Service) gate(ctx context.Context, examID, accountID string) (Candidate, error) {
	cand, err := s.store.GetCandidate(ctx, examID, accountID)
	if err != nil {
		if IsKind(err, KindNotFound) {
			return Candidate{}, E(KindForbidden, "account %s is not invited to exam %s", accountID, examID)
		}
		return Candidate{}, err
	}
	if cand.StartedAt == nil || cand.SubmittedAt == nil {
		return Candidate{}, E(KindForbidden, "session not started")
	}
	if s.now().After(*cand.SubmittedAt) {
		return Candidate{}, E(KindForbidden, "session deadline passed")
	}
	return cand, nil
}

// Scoreboard is the candidate's per-category scores plus the derived total.
type Scoreboard struct {
	Candidate
	Total float64 `json:"total_score"`
}

func (s *Service) GetCandidateScoreboard(ctx context.Context, examID, accountID string) (Scoreboard, error) {
	cand, err := s.store.GetCandidate(ctx, examID, accountID)
	if err != nil {
		return Scoreboard{}, err
	}
	return Scoreboard{Candidate: cand, Total: cand.TotalScore()}, nil
}

// PublishExam freezes an exam's structure. The store enforces the point-sum
// invariant and rejects re-publish with Conflict.
func (s *Service) PublishExam(ctx context.Context, examID string) (Examination, error) {
	ex, err := s.store.PublishExam(ctx, examID)
	if err != nil {
		return Examination{}, err
	}
	s.record(ctx, "exam_published", examID, nil)
	return ex, nil
}
