package exam_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/examgate/examgate/internal/db"
	"github.com/examgate/examgate/internal/exam"
)

// openSQLStore opens a shared-cache in-memory sqlite DB with the full schema.
// Each test gets its own name so state never leaks between tests.
func openSQLStore(t *testing.T, name string) (*exam.SQLStore, *sql.DB) {
	t.Helper()
	dbh, err := db.Open(context.Background(), db.DriverSQLite,
		"file:"+name+"?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = dbh.Close() })
	return exam.NewSQLStore(dbh, "sqlite"), dbh
}

func seedSQLExam(t *testing.T, store *exam.SQLStore) {
	t.Helper()
	ctx := context.Background()
	ex := exam.Examination{
		ID: "exam-1", Title: "Screening",
		OpensAt: t0, ClosesAt: t0.Add(time.Hour), DurationMinutes: 30,
		WrittenPoints: 10, TotalPoints: 10,
	}
	qs := []exam.Question{{ID: "q-written", Type: exam.QuestionWritten, StatementMD: "explain", Points: 10}}
	if err := store.PutExam(ctx, ex, qs); err != nil {
		t.Fatalf("seed exam: %v", err)
	}
}

func TestSQLStoreFlagOnlyReviewRequiresScoreboardRow(t *testing.T) {
	store, dbh := openSQLStore(t, "flagonly")
	seedSQLExam(t, store)
	ctx := context.Background()

	// An orphaned submission: the candidate row was never created (or was
	// removed out of band). The upsert path would refuse this, so write the
	// row directly.
	_, err := dbh.ExecContext(ctx, `INSERT INTO written_submissions
		(id,question_id,account_id,answer,score,is_flagged,flag_reason)
		VALUES ('w-orphan','q-written','ghost','text',0,0,'')`)
	if err != nil {
		t.Fatalf("seed orphan: %v", err)
	}

	flagged := true
	reason := "plagiarized"
	_, err = store.ApplyWrittenReview(ctx, "exam-1", exam.ReviewUpdate{
		SubmissionID: "w-orphan",
		AccountID:    "ghost",
		IsFlagged:    &flagged,
		FlagReason:   &reason,
	})
	wantKind(t, err, exam.KindUnexpected)

	// Same fault for problem reviews.
	_, err = dbh.ExecContext(ctx, `INSERT INTO problem_submissions
		(id,question_id,account_id,code,language,attempts,score,is_flagged,flag_reason)
		VALUES ('p-orphan','q-written','ghost','code','python',1,0,0,'')`)
	if err != nil {
		t.Fatalf("seed orphan problem: %v", err)
	}
	_, err = store.ApplyProblemReview(ctx, "exam-1", exam.ReviewUpdate{
		SubmissionID: "p-orphan",
		AccountID:    "ghost",
		IsFlagged:    &flagged,
	})
	wantKind(t, err, exam.KindUnexpected)
}

func TestSQLStoreFlagOnlyReviewWithScoreboardRow(t *testing.T) {
	store, _ := openSQLStore(t, "flagok")
	seedSQLExam(t, store)
	ctx := context.Background()

	if _, err := store.InviteCandidates(ctx, "exam-1", []exam.Invite{{AccountID: "alice"}}); err != nil {
		t.Fatalf("invite: %v", err)
	}
	subs, err := store.UpsertWritten(ctx, "exam-1", []exam.WrittenSubmission{
		{ID: "w1", QuestionID: "q-written", AccountID: "alice", Answer: "text"},
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	flagged := true
	reason := "needs a second look"
	got, err := store.ApplyWrittenReview(ctx, "exam-1", exam.ReviewUpdate{
		SubmissionID: subs[0].ID,
		AccountID:    "alice",
		IsFlagged:    &flagged,
		FlagReason:   &reason,
	})
	if err != nil {
		t.Fatalf("flag-only review: %v", err)
	}
	if !got.IsFlagged || got.FlagReason != reason {
		t.Errorf("flag not applied: %+v", got)
	}
	if got.Score != 0 {
		t.Errorf("flag-only review changed score to %v", got.Score)
	}

	// The candidate's written total is untouched by a flag-only review.
	cand, err := store.GetCandidate(ctx, "exam-1", "alice")
	if err != nil {
		t.Fatalf("candidate: %v", err)
	}
	if cand.WrittenScore != 0 {
		t.Errorf("written total = %v, want 0", cand.WrittenScore)
	}
}
