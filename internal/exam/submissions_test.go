package exam_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/examgate/examgate/internal/exam"
	"github.com/examgate/examgate/internal/judge"
)

func startedFixture(t *testing.T, opts ...exam.Option) (*exam.Service, exam.Store, *fakeClock, *fakeRunner) {
	t.Helper()
	svc, store, clk, runner := newFixture(t, opts...)
	if _, err := svc.StartSession(context.Background(), "exam-1", "alice"); err != nil {
		t.Fatalf("start session: %v", err)
	}
	return svc, store, clk, runner
}

/* ---------------- mcq ---------------- */

func TestSaveMcqAnswerByteEquality(t *testing.T) {
	svc, store, _, _ := startedFixture(t)
	ctx := context.Background()

	sub, err := svc.SaveMcqAnswer(ctx, "exam-1", "alice", "q-mcq", "1,3")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if sub.Score != 5 {
		t.Errorf("exact match score = %v, want 5", sub.Score)
	}

	// Same options, wrong order: not byte-equal, no points.
	sub, err = svc.SaveMcqAnswer(ctx, "exam-1", "alice", "q-mcq", "3,1")
	if err != nil {
		t.Fatalf("re-save: %v", err)
	}
	if sub.Score != 0 {
		t.Errorf("out-of-order score = %v, want 0", sub.Score)
	}
	cand, err := store.GetCandidate(ctx, "exam-1", "alice")
	if err != nil {
		t.Fatalf("candidate: %v", err)
	}
	if cand.McqScore != 0 {
		t.Errorf("category total after re-save = %v, want 0", cand.McqScore)
	}

	// Back to correct: total lands on exactly 5, not 10.
	if _, err := svc.SaveMcqAnswer(ctx, "exam-1", "alice", "q-mcq", "1,3"); err != nil {
		t.Fatalf("re-save: %v", err)
	}
	cand, _ = store.GetCandidate(ctx, "exam-1", "alice")
	if cand.McqScore != 5 {
		t.Errorf("category total = %v, want 5", cand.McqScore)
	}
}

func TestSaveMcqAnswerUpsertsSingleRow(t *testing.T) {
	svc, store, _, _ := startedFixture(t)
	ctx := context.Background()

	if _, err := svc.SaveMcqAnswer(ctx, "exam-1", "alice", "q-mcq", "1,3"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := svc.SaveMcqAnswer(ctx, "exam-1", "alice", "q-mcq", "2,4"); err != nil {
		t.Fatalf("re-save: %v", err)
	}
	set, err := store.Submissions(ctx, "exam-1", "alice")
	if err != nil {
		t.Fatalf("submissions: %v", err)
	}
	if len(set.Mcq) != 1 {
		t.Fatalf("mcq rows = %d, want 1", len(set.Mcq))
	}
	if set.Mcq[0].AnswerOptions != "2,4" {
		t.Errorf("stored answer = %q, want latest", set.Mcq[0].AnswerOptions)
	}
}

func TestSaveMcqAnswerShapeMismatch(t *testing.T) {
	svc, _, _, _ := startedFixture(t)
	// q-mcq is multi-select; a bare index has the wrong shape.
	_, err := svc.SaveMcqAnswer(context.Background(), "exam-1", "alice", "q-mcq", "2")
	wantKind(t, err, exam.KindValidation)
}

func TestSaveMcqAnswerWrongQuestionType(t *testing.T) {
	svc, _, _, _ := startedFixture(t)
	_, err := svc.SaveMcqAnswer(context.Background(), "exam-1", "alice", "q-written", "1")
	wantKind(t, err, exam.KindValidation)
}

func TestSaveMcqAnswerCrossExam(t *testing.T) {
	svc, _, _, _ := startedFixture(t)
	_, err := svc.SaveMcqAnswer(context.Background(), "other-exam", "alice", "q-mcq", "1,3")
	wantKind(t, err, exam.KindValidation)
}

/* ---------------- written ---------------- */

func TestSaveWrittenAnswersPreservesReviewFields(t *testing.T) {
	svc, store, _, _ := startedFixture(t)
	ctx := context.Background()

	subs, err := svc.SaveWrittenAnswers(ctx, "exam-1", "alice", []exam.WrittenAnswer{
		{QuestionID: "q-written", Answer: "b-trees keep lookups logarithmic"},
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	score := 7.0
	if _, err := svc.ReviewWritten(ctx, "exam-1", "alice", subs[0].ID, exam.ReviewInput{Score: &score}); err != nil {
		t.Fatalf("review: %v", err)
	}

	subs, err = svc.SaveWrittenAnswers(ctx, "exam-1", "alice", []exam.WrittenAnswer{
		{QuestionID: "q-written", Answer: "revised answer"},
	})
	if err != nil {
		t.Fatalf("re-save: %v", err)
	}
	if subs[0].Answer != "revised answer" {
		t.Errorf("answer = %q, want revised text", subs[0].Answer)
	}
	if subs[0].Score != 7 {
		t.Errorf("re-save reset score to %v, want 7 kept", subs[0].Score)
	}
	cand, _ := store.GetCandidate(ctx, "exam-1", "alice")
	if cand.WrittenScore != 7 {
		t.Errorf("written total = %v, want 7", cand.WrittenScore)
	}
}

func TestSaveWrittenAnswersValidation(t *testing.T) {
	svc, _, _, _ := startedFixture(t)
	ctx := context.Background()

	if _, err := svc.SaveWrittenAnswers(ctx, "exam-1", "alice", nil); exam.KindOf(err) != exam.KindValidation {
		t.Errorf("empty batch: kind = %s, want validation", exam.KindOf(err))
	}
	_, err := svc.SaveWrittenAnswers(ctx, "exam-1", "alice", []exam.WrittenAnswer{{QuestionID: "  ", Answer: "x"}})
	wantKind(t, err, exam.KindValidation)
}

/* ---------------- problem solving ---------------- */

func TestSaveProblemAnswerAllOrNothing(t *testing.T) {
	svc, store, _, runner := startedFixture(t)
	ctx := context.Background()

	sub, err := svc.SaveProblemAnswer(ctx, "exam-1", "alice", "q-problem", "python", "print(sum(map(int, input().split())))")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if sub.Score != 10 {
		t.Errorf("all accepted score = %v, want 10", sub.Score)
	}
	if sub.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", sub.Attempts)
	}
	if len(sub.Outputs) != 3 {
		t.Errorf("outputs = %d, want 3", len(sub.Outputs))
	}

	// One rejected case wipes the whole score.
	runner.results = []judge.CaseResult{
		{TestCaseID: "tc-1", Accepted: true, Received: "3"},
		{TestCaseID: "tc-2", Accepted: false, Received: "13"},
		{TestCaseID: "tc-3", Accepted: true, Received: "0"},
	}
	runner.all = false
	sub, err = svc.SaveProblemAnswer(ctx, "exam-1", "alice", "q-problem", "python", "print(13)")
	if err != nil {
		t.Fatalf("re-save: %v", err)
	}
	if sub.Score != 0 {
		t.Errorf("partial pass score = %v, want 0", sub.Score)
	}
	if sub.Attempts != 2 {
		t.Errorf("attempts = %d, want 2", sub.Attempts)
	}
	cand, _ := store.GetCandidate(ctx, "exam-1", "alice")
	if cand.ProblemScore != 0 {
		t.Errorf("problem total = %v, want 0 after losing the points", cand.ProblemScore)
	}
}

func TestSaveProblemAnswerExecutorFaultRecorded(t *testing.T) {
	svc, _, _, runner := startedFixture(t)
	runner.results = []judge.CaseResult{
		{TestCaseID: "tc-1", Accepted: true, Received: "3"},
		{TestCaseID: "tc-2", Accepted: false, Received: "execution error: connection refused"},
		{TestCaseID: "tc-3", Accepted: true, Received: "0"},
	}
	runner.all = false

	sub, err := svc.SaveProblemAnswer(context.Background(), "exam-1", "alice", "q-problem", "python", "code")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if sub.Score != 0 {
		t.Errorf("score = %v, want 0", sub.Score)
	}
	if got := sub.Outputs[1].Received; !strings.HasPrefix(got, "execution error:") {
		t.Errorf("faulted case received = %q, want execution error surfaced", got)
	}
}

func TestSaveProblemAnswerAbortedRunPersistsNothing(t *testing.T) {
	svc, store, _, runner := startedFixture(t)
	runner.err = context.Canceled

	_, err := svc.SaveProblemAnswer(context.Background(), "exam-1", "alice", "q-problem", "python", "code")
	wantKind(t, err, exam.KindUnexpected)

	set, err := store.Submissions(context.Background(), "exam-1", "alice")
	if err != nil {
		t.Fatalf("submissions: %v", err)
	}
	if len(set.Problems) != 0 {
		t.Fatalf("aborted run left %d submissions", len(set.Problems))
	}
}

func TestSaveProblemAnswerRequiresCode(t *testing.T) {
	svc, _, _, _ := startedFixture(t)
	_, err := svc.SaveProblemAnswer(context.Background(), "exam-1", "alice", "q-problem", "python", "   ")
	wantKind(t, err, exam.KindValidation)
}

/* ---------------- resume ---------------- */

func TestStartSessionReturnsSavedWork(t *testing.T) {
	svc, _, clk, _ := startedFixture(t)
	ctx := context.Background()

	if _, err := svc.SaveMcqAnswer(ctx, "exam-1", "alice", "q-mcq", "1,3"); err != nil {
		t.Fatalf("save mcq: %v", err)
	}
	if _, err := svc.SaveWrittenAnswers(ctx, "exam-1", "alice", []exam.WrittenAnswer{{QuestionID: "q-written", Answer: "x"}}); err != nil {
		t.Fatalf("save written: %v", err)
	}

	clk.Advance(time.Minute)
	st, err := svc.StartSession(ctx, "exam-1", "alice")
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if len(st.Submissions.Mcq) != 1 || len(st.Submissions.Written) != 1 {
		t.Errorf("resume returned %d mcq / %d written, want 1/1",
			len(st.Submissions.Mcq), len(st.Submissions.Written))
	}
}
