package http_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	api "github.com/examgate/examgate/internal/api/http"
	authmw "github.com/examgate/examgate/internal/auth/middleware"
	"github.com/examgate/examgate/internal/exam"
	"github.com/examgate/examgate/internal/judge"
	"github.com/examgate/examgate/internal/rbac"
)

type nopRunner struct{}

func (nopRunner) Run(_ context.Context, _, _ string, cases []judge.TestCase) ([]judge.CaseResult, bool, error) {
	out := make([]judge.CaseResult, 0, len(cases))
	for _, tc := range cases {
		out = append(out, judge.CaseResult{TestCaseID: tc.ID, Accepted: true})
	}
	return out, true, nil
}

// asUser fakes an authenticated request context the way JWTMiddleware
// builds it.
func asUser(sub, role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := authmw.WithSubject(r.Context(), sub)
			ctx = rbac.WithRole(ctx, role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func jsonBody(s string) io.Reader { return strings.NewReader(s) }

func seededStore(t *testing.T) exam.Store {
	t.Helper()
	store := exam.NewInMemoryStore()
	now := time.Now()
	ex := exam.Examination{
		ID: "exam-1", Title: "Screening",
		OpensAt: now.Add(-time.Hour), ClosesAt: now.Add(time.Hour),
		DurationMinutes: 30, TotalPoints: 15,
	}
	qs := []exam.Question{
		{ID: "q1", Type: exam.QuestionMCQ, Points: 5,
			Mcq: &exam.McqOption{Option1: "a", Option2: "b", AnswerOptions: "2"}},
		{ID: "q2", Type: exam.QuestionProblem, Points: 10,
			TestCases: []exam.TestCase{{ID: "tc1", Input: "1 2", Output: "3"}}},
	}
	if err := store.PutExam(context.Background(), ex, qs); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return store
}

func TestGetExamStripsAnswersForCandidates(t *testing.T) {
	store := seededStore(t)

	r := chi.NewRouter()
	r.With(asUser("alice", "candidate")).Get("/exams/{examID}", api.GetExamHandler(store))
	r.With(asUser("rita", "reviewer")).Get("/review/exams/{examID}", api.GetExamHandler(store))

	var body struct {
		Status    exam.Status     `json:"status"`
		Questions []exam.Question `json:"questions"`
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/exams/exam-1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != exam.StatusRunning {
		t.Errorf("status = %q, want running", body.Status)
	}
	if got := body.Questions[0].Mcq.AnswerOptions; got != "" {
		t.Errorf("candidate sees answer key %q", got)
	}
	if got := body.Questions[1].TestCases[0].Output; got != "" {
		t.Errorf("candidate sees expected output %q", got)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/review/exams/exam-1", nil))
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Questions[0].Mcq.AnswerOptions != "2" {
		t.Errorf("reviewer should see the answer key, got %q", body.Questions[0].Mcq.AnswerOptions)
	}
}

func TestErrorKindStatusMapping(t *testing.T) {
	store := seededStore(t)
	svc := exam.NewService(store, nopRunner{})

	r := chi.NewRouter()
	r.With(asUser("mallory", "candidate")).Post("/exams/{examID}/session", api.StartSessionHandler(svc))
	r.With(asUser("alice", "candidate")).Get("/exams/{examID}", api.GetExamHandler(store))

	// Not invited: 403.
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("POST", "/exams/exam-1/session", nil))
	if rec.Code != http.StatusForbidden {
		t.Errorf("uninvited start = %d, want 403", rec.Code)
	}

	// Unknown exam: 404.
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/exams/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing exam = %d, want 404", rec.Code)
	}
}

func TestInviteCandidatesJSONBody(t *testing.T) {
	store := seededStore(t)

	r := chi.NewRouter()
	r.With(asUser("root", "admin")).Post("/exams/{examID}/candidates", api.InviteCandidatesHandler(store))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/exams/exam-1/candidates",
		jsonBody(`[{"account_id":"alice","email":"alice@example.com"},{"account_id":"bob"}]`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("invite = %d, body %s", rec.Code, rec.Body)
	}
	var out map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out["invited"] != 2 {
		t.Errorf("invited = %d, want 2", out["invited"])
	}

	// Re-inviting is a no-op, not an error.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest("POST", "/exams/exam-1/candidates", jsonBody(`[{"account_id":"alice"}]`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("re-invite = %d", rec.Code)
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	if out["invited"] != 0 {
		t.Errorf("re-invite added %d, want 0", out["invited"])
	}
}
