package exam

import (
	"context"
	"sync"
	"time"
)

// memoryStore is a mutex-guarded Store for tests and offline dev. It mirrors
// the transactional semantics of the SQL store: every mutating method applies
// all of its writes under one lock hold.
type memoryStore struct {
	mu         sync.RWMutex
	exams      map[string]Examination
	questions  map[string]Question   // questionID -> question
	order      map[string][]string   // examID -> questionIDs in authored order
	candidates map[string]*Candidate // examID|accountID
	mcq        map[string]*McqSubmission
	written    map[string]*WrittenSubmission
	problems   map[string]*ProblemSubmission
}

func NewInMemoryStore() Store {
	return &memoryStore{
		exams:      map[string]Examination{},
		questions:  map[string]Question{},
		order:      map[string][]string{},
		candidates: map[string]*Candidate{},
		mcq:        map[string]*McqSubmission{},
		written:    map[string]*WrittenSubmission{},
		problems:   map[string]*ProblemSubmission{},
	}
}

func ckey(examID, accountID string) string { return examID + "|" + accountID }
func skey(questionID, accountID string) string {
	return questionID + "|" + accountID
}

func (m *memoryStore) PutExam(_ context.Context, e Examination, qs []Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.exams[e.ID]; ok && prev.IsPublished {
		return E(KindConflict, "exam %s is published and cannot be edited", e.ID)
	}
	for _, qid := range m.order[e.ID] {
		delete(m.questions, qid)
	}
	ids := make([]string, 0, len(qs))
	for _, q := range qs {
		q.ExamID = e.ID
		m.questions[q.ID] = q
		ids = append(ids, q.ID)
	}
	m.order[e.ID] = ids
	m.exams[e.ID] = e
	return nil
}

func (m *memoryStore) PublishExam(_ context.Context, examID string) (Examination, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.exams[examID]
	if !ok {
		return Examination{}, E(KindNotFound, "exam %s not found", examID)
	}
	if e.IsPublished {
		return Examination{}, E(KindConflict, "exam %s is already published", examID)
	}
	sum := 0.0
	for _, qid := range m.order[examID] {
		sum += m.questions[qid].Points
	}
	if sum != e.TotalPoints {
		return Examination{}, E(KindValidation, "question points sum %.2f does not equal total %.2f", sum, e.TotalPoints)
	}
	e.IsPublished = true
	m.exams[examID] = e
	return e, nil
}

func (m *memoryStore) GetExam(_ context.Context, id string) (Examination, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.exams[id]
	if !ok {
		return Examination{}, E(KindNotFound, "exam %s not found", id)
	}
	return e, nil
}

func (m *memoryStore) QuestionsForExam(_ context.Context, examID string) ([]Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.exams[examID]; !ok {
		return nil, E(KindNotFound, "exam %s not found", examID)
	}
	out := make([]Question, 0, len(m.order[examID]))
	for _, qid := range m.order[examID] {
		out = append(out, m.questions[qid])
	}
	return out, nil
}

func (m *memoryStore) GetQuestion(_ context.Context, id string) (Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.questions[id]
	if !ok {
		return Question{}, E(KindNotFound, "question %s not found", id)
	}
	return q, nil
}

func (m *memoryStore) InviteCandidates(_ context.Context, examID string, invites []Invite) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.exams[examID]; !ok {
		return 0, E(KindNotFound, "exam %s not found", examID)
	}
	added := 0
	for _, in := range invites {
		k := ckey(examID, in.AccountID)
		if _, ok := m.candidates[k]; ok {
			continue
		}
		m.candidates[k] = &Candidate{ExamID: examID, AccountID: in.AccountID, Email: in.Email}
		added++
	}
	return added, nil
}

func (m *memoryStore) GetCandidate(_ context.Context, examID, accountID string) (Candidate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.candidates[ckey(examID, accountID)]
	if !ok {
		return Candidate{}, E(KindNotFound, "candidate %s not found for exam %s", accountID, examID)
	}
	return *c, nil
}

func (m *memoryStore) StartCandidate(_ context.Context, examID, accountID string, startedAt, deadline time.Time) (Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.candidates[ckey(examID, accountID)]
	if !ok {
		return Candidate{}, E(KindNotFound, "candidate %s not found for exam %s", accountID, examID)
	}
	if c.StartedAt != nil {
		return *c, nil // lost the race or repeat call: never re-stamp
	}
	st, dl := startedAt, deadline
	c.StartedAt = &st
	c.SubmittedAt = &dl
	return *c, nil
}

func (m *memoryStore) FinalizeCandidate(_ context.Context, examID, accountID string, submittedAt time.Time) (Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.candidates[ckey(examID, accountID)]
	if !ok {
		return Candidate{}, E(KindNotFound, "candidate %s not found for exam %s", accountID, examID)
	}
	at := submittedAt
	c.SubmittedAt = &at
	return *c, nil
}

func (m *memoryStore) SetCheated(_ context.Context, examID, accountID string) (Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.candidates[ckey(examID, accountID)]
	if !ok {
		return Candidate{}, E(KindNotFound, "candidate %s not found for exam %s", accountID, examID)
	}
	c.HasCheated = true
	return *c, nil
}

func (m *memoryStore) Submissions(_ context.Context, examID, accountID string) (SubmissionSet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	set := SubmissionSet{
		Mcq:      []McqSubmission{},
		Written:  []WrittenSubmission{},
		Problems: []ProblemSubmission{},
	}
	for _, qid := range m.order[examID] {
		k := skey(qid, accountID)
		if s, ok := m.mcq[k]; ok {
			set.Mcq = append(set.Mcq, *s)
		}
		if s, ok := m.written[k]; ok {
			set.Written = append(set.Written, *s)
		}
		if s, ok := m.problems[k]; ok {
			set.Problems = append(set.Problems, copyProblem(s))
		}
	}
	return set, nil
}

func (m *memoryStore) UpsertMcq(_ context.Context, examID string, sub McqSubmission) (McqSubmission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cand, ok := m.candidates[ckey(examID, sub.AccountID)]
	if !ok {
		return McqSubmission{}, E(KindUnexpected, "submission without candidate row for exam %s", examID)
	}
	k := skey(sub.QuestionID, sub.AccountID)
	if prev, ok := m.mcq[k]; ok {
		cand.McqScore += sub.Score - prev.Score
		prev.AnswerOptions = sub.AnswerOptions
		prev.Score = sub.Score
		return *prev, nil
	}
	cand.McqScore += sub.Score
	s := sub
	m.mcq[k] = &s
	return s, nil
}

func (m *memoryStore) UpsertWritten(_ context.Context, _ string, subs []WrittenSubmission) ([]WrittenSubmission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]WrittenSubmission, 0, len(subs))
	for _, sub := range subs {
		k := skey(sub.QuestionID, sub.AccountID)
		if prev, ok := m.written[k]; ok {
			prev.Answer = sub.Answer // score and flags stay
			out = append(out, *prev)
			continue
		}
		s := sub
		m.written[k] = &s
		out = append(out, s)
	}
	return out, nil
}

func (m *memoryStore) UpsertProblem(_ context.Context, examID string, sub ProblemSubmission) (ProblemSubmission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cand, ok := m.candidates[ckey(examID, sub.AccountID)]
	if !ok {
		return ProblemSubmission{}, E(KindUnexpected, "submission without candidate row for exam %s", examID)
	}
	k := skey(sub.QuestionID, sub.AccountID)
	if prev, ok := m.problems[k]; ok {
		cand.ProblemScore += sub.Score - prev.Score
		prev.Code = sub.Code
		prev.Language = sub.Language
		prev.Score = sub.Score
		prev.Attempts++
		prev.Outputs = append([]TestCaseOutput(nil), sub.Outputs...)
		return copyProblem(prev), nil
	}
	cand.ProblemScore += sub.Score
	s := sub
	s.Attempts = 1
	s.Outputs = append([]TestCaseOutput(nil), sub.Outputs...)
	m.problems[k] = &s
	return copyProblem(&s), nil
}

func (m *memoryStore) GetWrittenSubmission(_ context.Context, id string) (WrittenSubmission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.written {
		if s.ID == id {
			return *s, nil
		}
	}
	return WrittenSubmission{}, E(KindNotFound, "written submission %s not found", id)
}

func (m *memoryStore) GetProblemSubmission(_ context.Context, id string) (ProblemSubmission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.problems {
		if s.ID == id {
			return copyProblem(s), nil
		}
	}
	return ProblemSubmission{}, E(KindNotFound, "problem submission %s not found", id)
}

func (m *memoryStore) ApplyWrittenReview(_ context.Context, examID string, upd ReviewUpdate) (WrittenSubmission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sub *WrittenSubmission
	for _, s := range m.written {
		if s.ID == upd.SubmissionID {
			sub = s
			break
		}
	}
	if sub == nil {
		return WrittenSubmission{}, E(KindNotFound, "written submission %s not found", upd.SubmissionID)
	}
	if sub.AccountID != upd.AccountID {
		return WrittenSubmission{}, E(KindValidation, "submission %s does not belong to account %s", upd.SubmissionID, upd.AccountID)
	}
	cand, ok := m.candidates[ckey(examID, upd.AccountID)]
	if !ok {
		return WrittenSubmission{}, E(KindUnexpected, "submission %s has no scoreboard row", upd.SubmissionID)
	}
	if upd.Score != nil {
		cand.WrittenScore += *upd.Score - sub.Score
		sub.Score = *upd.Score
	}
	if upd.IsFlagged != nil {
		sub.IsFlagged = *upd.IsFlagged
	}
	if upd.FlagReason != nil {
		sub.FlagReason = *upd.FlagReason
	}
	return *sub, nil
}

func (m *memoryStore) ApplyProblemReview(_ context.Context, examID string, upd ReviewUpdate) (ProblemSubmission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sub *ProblemSubmission
	for _, s := range m.problems {
		if s.ID == upd.SubmissionID {
			sub = s
			break
		}
	}
	if sub == nil {
		return ProblemSubmission{}, E(KindNotFound, "problem submission %s not found", upd.SubmissionID)
	}
	if sub.AccountID != upd.AccountID {
		return ProblemSubmission{}, E(KindValidation, "submission %s does not belong to account %s", upd.SubmissionID, upd.AccountID)
	}
	cand, ok := m.candidates[ckey(examID, upd.AccountID)]
	if !ok {
		return ProblemSubmission{}, E(KindUnexpected, "submission %s has no scoreboard row", upd.SubmissionID)
	}
	if upd.Score != nil {
		cand.ProblemScore += *upd.Score - sub.Score
		sub.Score = *upd.Score
	}
	if upd.IsFlagged != nil {
		sub.IsFlagged = *upd.IsFlagged
	}
	if upd.FlagReason != nil {
		sub.FlagReason = *upd.FlagReason
	}
	return copyProblem(sub), nil
}

func copyProblem(s *ProblemSubmission) ProblemSubmission {
	out := *s
	out.Outputs = append([]TestCaseOutput(nil), s.Outputs...)
	return out
}
