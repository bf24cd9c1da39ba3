package exam_test

import (
	"context"
	"testing"

	"github.com/examgate/examgate/internal/exam"
)

type fakeReviewer struct {
	sugg exam.ReviewSuggestion
	err  error
}

func (f fakeReviewer) Review(_ context.Context, _, _ string, _ float64) (exam.ReviewSuggestion, error) {
	return f.sugg, f.err
}

func writtenSubmission(t *testing.T, svc *exam.Service) exam.WrittenSubmission {
	t.Helper()
	subs, err := svc.SaveWrittenAnswers(context.Background(), "exam-1", "alice", []exam.WrittenAnswer{
		{QuestionID: "q-written", Answer: "an index is a sorted lookup structure"},
	})
	if err != nil {
		t.Fatalf("save written: %v", err)
	}
	return subs[0]
}

func TestReviewWrittenReplacesScoreNotAccumulates(t *testing.T) {
	svc, store, _, _ := startedFixture(t)
	ctx := context.Background()
	sub := writtenSubmission(t, svc)

	first := 7.0
	if _, err := svc.ReviewWritten(ctx, "exam-1", "alice", sub.ID, exam.ReviewInput{Score: &first}); err != nil {
		t.Fatalf("first review: %v", err)
	}
	second := 8.5
	got, err := svc.ReviewWritten(ctx, "exam-1", "alice", sub.ID, exam.ReviewInput{Score: &second})
	if err != nil {
		t.Fatalf("second review: %v", err)
	}
	if got.Score != 8.5 {
		t.Errorf("submission score = %v, want 8.5", got.Score)
	}
	cand, _ := store.GetCandidate(ctx, "exam-1", "alice")
	if cand.WrittenScore != 8.5 {
		t.Errorf("written total = %v, want exactly 8.5 (replace, not add)", cand.WrittenScore)
	}
}

func TestReviewWrittenFlagWithoutScore(t *testing.T) {
	svc, store, _, _ := startedFixture(t)
	ctx := context.Background()
	sub := writtenSubmission(t, svc)

	score := 6.0
	if _, err := svc.ReviewWritten(ctx, "exam-1", "alice", sub.ID, exam.ReviewInput{Score: &score}); err != nil {
		t.Fatalf("score: %v", err)
	}

	flagged := true
	reason := "answer copied verbatim from documentation"
	got, err := svc.ReviewWritten(ctx, "exam-1", "alice", sub.ID, exam.ReviewInput{IsFlagged: &flagged, FlagReason: &reason})
	if err != nil {
		t.Fatalf("flag: %v", err)
	}
	if !got.IsFlagged || got.FlagReason != reason {
		t.Errorf("flag not applied: %+v", got)
	}
	if got.Score != 6 {
		t.Errorf("flag-only review changed score to %v", got.Score)
	}
	cand, _ := store.GetCandidate(ctx, "exam-1", "alice")
	if cand.WrittenScore != 6 {
		t.Errorf("written total = %v, want 6 untouched", cand.WrittenScore)
	}
}

func TestReviewWrittenUnknownSubmission(t *testing.T) {
	svc, _, _, _ := startedFixture(t)
	score := 1.0
	_, err := svc.ReviewWritten(context.Background(), "exam-1", "alice", "no-such-id", exam.ReviewInput{Score: &score})
	wantKind(t, err, exam.KindNotFound)
}

func TestReviewWrittenAccountMismatch(t *testing.T) {
	svc, store, _, _ := startedFixture(t)
	ctx := context.Background()
	sub := writtenSubmission(t, svc)

	if _, err := store.InviteCandidates(ctx, "exam-1", []exam.Invite{{AccountID: "bob"}}); err != nil {
		t.Fatalf("invite bob: %v", err)
	}
	score := 3.0
	_, err := svc.ReviewWritten(ctx, "exam-1", "bob", sub.ID, exam.ReviewInput{Score: &score})
	wantKind(t, err, exam.KindValidation)
}

func TestReviewProblemMovesProblemTotal(t *testing.T) {
	svc, store, _, _ := startedFixture(t)
	ctx := context.Background()

	sub, err := svc.SaveProblemAnswer(ctx, "exam-1", "alice", "q-problem", "python", "code")
	if err != nil {
		t.Fatalf("save problem: %v", err)
	}
	// All cases accepted: 10 points. Reviewer docks to 4 for a hard-coded
	// output.
	score := 4.0
	if _, err := svc.ReviewProblem(ctx, "exam-1", "alice", sub.ID, exam.ReviewInput{Score: &score}); err != nil {
		t.Fatalf("review: %v", err)
	}
	cand, _ := store.GetCandidate(ctx, "exam-1", "alice")
	if cand.ProblemScore != 4 {
		t.Errorf("problem total = %v, want 4", cand.ProblemScore)
	}
	if cand.TotalScore() != 4 {
		t.Errorf("grand total = %v, want 4", cand.TotalScore())
	}
}

func TestScoreboardTotalIsSumOfCategories(t *testing.T) {
	svc, _, _, _ := startedFixture(t)
	ctx := context.Background()

	if _, err := svc.SaveMcqAnswer(ctx, "exam-1", "alice", "q-mcq", "1,3"); err != nil {
		t.Fatalf("mcq: %v", err)
	}
	sub := writtenSubmission(t, svc)
	score := 7.5
	if _, err := svc.ReviewWritten(ctx, "exam-1", "alice", sub.ID, exam.ReviewInput{Score: &score}); err != nil {
		t.Fatalf("review: %v", err)
	}

	sb, err := svc.GetCandidateScoreboard(ctx, "exam-1", "alice")
	if err != nil {
		t.Fatalf("scoreboard: %v", err)
	}
	if sb.Total != 12.5 {
		t.Errorf("total = %v, want 12.5 (5 mcq + 7.5 written)", sb.Total)
	}
}

func TestSuggestWrittenReview(t *testing.T) {
	svc, _, _, _ := startedFixture(t)
	sub := writtenSubmission(t, svc)

	// Not configured: a clear client error, not a crash.
	_, err := svc.SuggestWrittenReview(context.Background(), sub.ID)
	wantKind(t, err, exam.KindValidation)

	svc2, _, _, _ := startedFixture(t, exam.WithReviewer(fakeReviewer{
		sugg: exam.ReviewSuggestion{ReviewText: "solid, missing the covering-index case", Score: 8},
	}))
	sub2 := writtenSubmission(t, svc2)
	sugg, err := svc2.SuggestWrittenReview(context.Background(), sub2.ID)
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}
	if sugg.Score != 8 || sugg.ReviewText == "" {
		t.Errorf("suggestion = %+v", sugg)
	}
}
