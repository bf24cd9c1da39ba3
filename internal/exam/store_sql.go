package exam

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// SQLStore implements Store on database/sql. Placeholders use the $N form,
// which both the pgx stdlib driver and modernc sqlite accept.
type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

func (s *SQLStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Wrap(KindUnexpected, "begin tx", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return Wrap(KindUnexpected, "commit", err)
	}
	return nil
}

func nullUnix(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}

func unixPtr(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := time.Unix(n.Int64, 0).UTC()
	return &t
}

/* ---------------- Exams and questions ---------------- */

func (s *SQLStore) PutExam(ctx context.Context, e Examination, qs []Question) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var published bool
		err := tx.QueryRowContext(ctx, `SELECT is_published FROM examinations WHERE id=$1`, e.ID).Scan(&published)
		switch {
		case err == nil && published:
			return E(KindConflict, "exam %s is published and cannot be edited", e.ID)
		case err != nil && !errors.Is(err, sql.ErrNoRows):
			return Wrap(KindUnexpected, "load exam", err)
		}

		_, err = tx.ExecContext(ctx, `INSERT INTO examinations
			(id,title,description,opens_at,closes_at,duration_minutes,mcq_points,written_points,problem_points,total_points,is_published,created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
			ON CONFLICT (id) DO UPDATE SET
				title=EXCLUDED.title, description=EXCLUDED.description,
				opens_at=EXCLUDED.opens_at, closes_at=EXCLUDED.closes_at,
				duration_minutes=EXCLUDED.duration_minutes,
				mcq_points=EXCLUDED.mcq_points, written_points=EXCLUDED.written_points,
				problem_points=EXCLUDED.problem_points, total_points=EXCLUDED.total_points`,
			e.ID, e.Title, e.Description, e.OpensAt.Unix(), e.ClosesAt.Unix(), e.DurationMinutes,
			e.McqPoints, e.WrittenPoints, e.ProblemPoints, e.TotalPoints, false, time.Now().Unix())
		if err != nil {
			return Wrap(KindUnexpected, "upsert exam", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM questions WHERE exam_id=$1`, e.ID); err != nil {
			return Wrap(KindUnexpected, "clear questions", err)
		}
		for i, q := range qs {
			if _, err := tx.ExecContext(ctx, `INSERT INTO questions
				(id,exam_id,qtype,statement_md,points,difficulty,position)
				VALUES ($1,$2,$3,$4,$5,$6,$7)`,
				q.ID, e.ID, string(q.Type), q.StatementMD, q.Points, q.Difficulty, i); err != nil {
				return Wrap(KindUnexpected, "insert question", err)
			}
			if q.Type == QuestionMCQ && q.Mcq != nil {
				if _, err := tx.ExecContext(ctx, `INSERT INTO mcq_options
					(question_id,option1,option2,option3,option4,is_multi_select,answer_options)
					VALUES ($1,$2,$3,$4,$5,$6,$7)`,
					q.ID, q.Mcq.Option1, q.Mcq.Option2, q.Mcq.Option3, q.Mcq.Option4,
					q.Mcq.IsMultiSelect, q.Mcq.AnswerOptions); err != nil {
					return Wrap(KindUnexpected, "insert mcq options", err)
				}
			}
			for j, tc := range q.TestCases {
				if _, err := tx.ExecContext(ctx, `INSERT INTO test_cases
					(id,question_id,position,input,expected_output)
					VALUES ($1,$2,$3,$4,$5)`,
					tc.ID, q.ID, j, tc.Input, tc.Output); err != nil {
					return Wrap(KindUnexpected, "insert test case", err)
				}
			}
		}
		return nil
	})
}

func (s *SQLStore) PublishExam(ctx context.Context, examID string) (Examination, error) {
	var out Examination
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		e, err := scanExam(tx.QueryRowContext(ctx, examSelect+` WHERE id=$1`, examID))
		if err != nil {
			return err
		}
		if e.IsPublished {
			return E(KindConflict, "exam %s is already published", examID)
		}
		var sum sql.NullFloat64
		if err := tx.QueryRowContext(ctx,
			`SELECT SUM(points) FROM questions WHERE exam_id=$1`, examID).Scan(&sum); err != nil {
			return Wrap(KindUnexpected, "sum question points", err)
		}
		if sum.Float64 != e.TotalPoints {
			return E(KindValidation, "question points sum %.2f does not equal total %.2f", sum.Float64, e.TotalPoints)
		}
		res, err := tx.ExecContext(ctx, `UPDATE examinations SET is_published=$1 WHERE id=$2`, true, examID)
		if err != nil {
			return Wrap(KindUnexpected, "publish exam", err)
		}
		if n, _ := res.RowsAffected(); n != 1 {
			return E(KindUnexpected, "publish affected %d rows", n)
		}
		e.IsPublished = true
		out = e
		return nil
	})
	return out, err
}

const examSelect = `SELECT id,title,description,opens_at,closes_at,duration_minutes,
	mcq_points,written_points,problem_points,total_points,is_published,created_at
	FROM examinations`

type rowScanner interface{ Scan(dest ...any) error }

func scanExam(row rowScanner) (Examination, error) {
	var e Examination
	var opens, closes int64
	if err := row.Scan(&e.ID, &e.Title, &e.Description, &opens, &closes, &e.DurationMinutes,
		&e.McqPoints, &e.WrittenPoints, &e.ProblemPoints, &e.TotalPoints, &e.IsPublished, &e.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Examination{}, E(KindNotFound, "exam not found")
		}
		return Examination{}, Wrap(KindUnexpected, "scan exam", err)
	}
	e.OpensAt = time.Unix(opens, 0).UTC()
	e.ClosesAt = time.Unix(closes, 0).UTC()
	return e, nil
}

func (s *SQLStore) GetExam(ctx context.Context, id string) (Examination, error) {
	return scanExam(s.db.QueryRowContext(ctx, examSelect+` WHERE id=$1`, id))
}

func (s *SQLStore) QuestionsForExam(ctx context.Context, examID string) ([]Question, error) {
	if _, err := s.GetExam(ctx, examID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id,exam_id,qtype,statement_md,points,difficulty
		FROM questions WHERE exam_id=$1 ORDER BY position`, examID)
	if err != nil {
		return nil, Wrap(KindUnexpected, "list questions", err)
	}
	defer rows.Close()
	var out []Question
	for rows.Next() {
		var q Question
		var typ string
		if err := rows.Scan(&q.ID, &q.ExamID, &typ, &q.StatementMD, &q.Points, &q.Difficulty); err != nil {
			return nil, Wrap(KindUnexpected, "scan question", err)
		}
		q.Type = QuestionType(typ)
		if err := s.loadQuestionDetail(ctx, &q); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *SQLStore) GetQuestion(ctx context.Context, id string) (Question, error) {
	var q Question
	var typ string
	err := s.db.QueryRowContext(ctx, `SELECT id,exam_id,qtype,statement_md,points,difficulty
		FROM questions WHERE id=$1`, id).
		Scan(&q.ID, &q.ExamID, &typ, &q.StatementMD, &q.Points, &q.Difficulty)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Question{}, E(KindNotFound, "question %s not found", id)
		}
		return Question{}, Wrap(KindUnexpected, "load question", err)
	}
	q.Type = QuestionType(typ)
	if err := s.loadQuestionDetail(ctx, &q); err != nil {
		return Question{}, err
	}
	return q, nil
}

func (s *SQLStore) loadQuestionDetail(ctx context.Context, q *Question) error {
	switch q.Type {
	case QuestionMCQ:
		var o McqOption
		err := s.db.QueryRowContext(ctx, `SELECT option1,option2,option3,option4,is_multi_select,answer_options
			FROM mcq_options WHERE question_id=$1`, q.ID).
			Scan(&o.Option1, &o.Option2, &o.Option3, &o.Option4, &o.IsMultiSelect, &o.AnswerOptions)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return Wrap(KindUnexpected, "load mcq options", err)
		}
		if err == nil {
			q.Mcq = &o
		}
	case QuestionProblem:
		rows, err := s.db.QueryContext(ctx, `SELECT id,input,expected_output
			FROM test_cases WHERE question_id=$1 ORDER BY position`, q.ID)
		if err != nil {
			return Wrap(KindUnexpected, "load test cases", err)
		}
		defer rows.Close()
		for rows.Next() {
			var tc TestCase
			if err := rows.Scan(&tc.ID, &tc.Input, &tc.Output); err != nil {
				return Wrap(KindUnexpected, "scan test case", err)
			}
			q.TestCases = append(q.TestCases, tc)
		}
		return rows.Err()
	}
	return nil
}

/* ---------------- Candidates ---------------- */

func (s *SQLStore) InviteCandidates(ctx context.Context, examID string, invites []Invite) (int, error) {
	if _, err := s.GetExam(ctx, examID); err != nil {
		return 0, err
	}
	added := 0
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, in := range invites {
			res, err := tx.ExecContext(ctx, `INSERT INTO exam_candidates
				(exam_id,account_id,email,mcq_score,written_score,problem_score,has_cheated)
				VALUES ($1,$2,$3,0,0,0,$4)
				ON CONFLICT (exam_id,account_id) DO NOTHING`,
				examID, in.AccountID, in.Email, false)
			if err != nil {
				return Wrap(KindUnexpected, "invite candidate", err)
			}
			if n, _ := res.RowsAffected(); n == 1 {
				added++
			}
		}
		return nil
	})
	return added, err
}

const candSelect = `SELECT exam_id,account_id,email,started_at,submitted_at,
	mcq_score,written_score,problem_score,has_cheated FROM exam_candidates`

func scanCandidate(row rowScanner) (Candidate, error) {
	var c Candidate
	var started, submitted sql.NullInt64
	if err := row.Scan(&c.ExamID, &c.AccountID, &c.Email, &started, &submitted,
		&c.McqScore, &c.WrittenScore, &c.ProblemScore, &c.HasCheated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Candidate{}, E(KindNotFound, "candidate not found")
		}
		return Candidate{}, Wrap(KindUnexpected, "scan candidate", err)
	}
	c.StartedAt = unixPtr(started)
	c.SubmittedAt = unixPtr(submitted)
	return c, nil
}

func (s *SQLStore) GetCandidate(ctx context.Context, examID, accountID string) (Candidate, error) {
	return scanCandidate(s.db.QueryRowContext(ctx,
		candSelect+` WHERE exam_id=$1 AND account_id=$2`, examID, accountID))
}

func (s *SQLStore) StartCandidate(ctx context.Context, examID, accountID string, startedAt, deadline time.Time) (Candidate, error) {
	var out Candidate
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		// Conditional stamp: a concurrent starter loses quietly and we
		// return whatever the winner wrote.
		_, err := tx.ExecContext(ctx, `UPDATE exam_candidates
			SET started_at=$1, submitted_at=$2
			WHERE exam_id=$3 AND account_id=$4 AND started_at IS NULL`,
			startedAt.Unix(), deadline.Unix(), examID, accountID)
		if err != nil {
			return Wrap(KindUnexpected, "stamp session start", err)
		}
		c, err := scanCandidate(tx.QueryRowContext(ctx,
			candSelect+` WHERE exam_id=$1 AND account_id=$2`, examID, accountID))
		if err != nil {
			return err
		}
		out = c
		return nil
	})
	return out, err
}

func (s *SQLStore) FinalizeCandidate(ctx context.Context, examID, accountID string, submittedAt time.Time) (Candidate, error) {
	var out Candidate
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE exam_candidates SET submitted_at=$1
			WHERE exam_id=$2 AND account_id=$3`, submittedAt.Unix(), examID, accountID)
		if err != nil {
			return Wrap(KindUnexpected, "stamp submit", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return E(KindNotFound, "candidate %s not found for exam %s", accountID, examID)
		}
		c, err := scanCandidate(tx.QueryRowContext(ctx,
			candSelect+` WHERE exam_id=$1 AND account_id=$2`, examID, accountID))
		if err != nil {
			return err
		}
		out = c
		return nil
	})
	return out, err
}

func (s *SQLStore) SetCheated(ctx context.Context, examID, accountID string) (Candidate, error) {
	var out Candidate
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE exam_candidates SET has_cheated=$1
			WHERE exam_id=$2 AND account_id=$3`, true, examID, accountID)
		if err != nil {
			return Wrap(KindUnexpected, "set cheated flag", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return E(KindNotFound, "candidate %s not found for exam %s", accountID, examID)
		}
		c, err := scanCandidate(tx.QueryRowContext(ctx,
			candSelect+` WHERE exam_id=$1 AND account_id=$2`, examID, accountID))
		if err != nil {
			return err
		}
		out = c
		return nil
	})
	return out, err
}

/* ---------------- Submissions ---------------- */

func (s *SQLStore) Submissions(ctx context.Context, examID, accountID string) (SubmissionSet, error) {
	set := SubmissionSet{
		Mcq:      []McqSubmission{},
		Written:  []WrittenSubmission{},
		Problems: []ProblemSubmission{},
	}

	rows, err := s.db.QueryContext(ctx, `SELECT m.id,m.question_id,m.account_id,m.answer_options,m.score
		FROM mcq_submissions m JOIN questions q ON q.id=m.question_id
		WHERE q.exam_id=$1 AND m.account_id=$2 ORDER BY q.position`, examID, accountID)
	if err != nil {
		return set, Wrap(KindUnexpected, "list mcq submissions", err)
	}
	for rows.Next() {
		var m McqSubmission
		if err := rows.Scan(&m.ID, &m.QuestionID, &m.AccountID, &m.AnswerOptions, &m.Score); err != nil {
			rows.Close()
			return set, Wrap(KindUnexpected, "scan mcq submission", err)
		}
		set.Mcq = append(set.Mcq, m)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return set, Wrap(KindUnexpected, "list mcq submissions", err)
	}

	rows, err = s.db.QueryContext(ctx, `SELECT w.id,w.question_id,w.account_id,w.answer,w.score,w.is_flagged,w.flag_reason
		FROM written_submissions w JOIN questions q ON q.id=w.question_id
		WHERE q.exam_id=$1 AND w.account_id=$2 ORDER BY q.position`, examID, accountID)
	if err != nil {
		return set, Wrap(KindUnexpected, "list written submissions", err)
	}
	for rows.Next() {
		var w WrittenSubmission
		if err := rows.Scan(&w.ID, &w.QuestionID, &w.AccountID, &w.Answer, &w.Score, &w.IsFlagged, &w.FlagReason); err != nil {
			rows.Close()
			return set, Wrap(KindUnexpected, "scan written submission", err)
		}
		set.Written = append(set.Written, w)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return set, Wrap(KindUnexpected, "list written submissions", err)
	}

	rows, err = s.db.QueryContext(ctx, `SELECT p.id,p.question_id,p.account_id,p.code,p.language,p.attempts,p.score,p.is_flagged,p.flag_reason
		FROM problem_submissions p JOIN questions q ON q.id=p.question_id
		WHERE q.exam_id=$1 AND p.account_id=$2 ORDER BY q.position`, examID, accountID)
	if err != nil {
		return set, Wrap(KindUnexpected, "list problem submissions", err)
	}
	for rows.Next() {
		var p ProblemSubmission
		if err := rows.Scan(&p.ID, &p.QuestionID, &p.AccountID, &p.Code, &p.Language, &p.Attempts, &p.Score, &p.IsFlagged, &p.FlagReason); err != nil {
			rows.Close()
			return set, Wrap(KindUnexpected, "scan problem submission", err)
		}
		set.Problems = append(set.Problems, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return set, Wrap(KindUnexpected, "list problem submissions", err)
	}

	for i := range set.Problems {
		outs, err := s.loadOutputs(ctx, set.Problems[i].ID)
		if err != nil {
			return set, err
		}
		set.Problems[i].Outputs = outs
	}
	return set, nil
}

func (s *SQLStore) loadOutputs(ctx context.Context, submissionID string) ([]TestCaseOutput, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT test_case_id,is_accepted,received_output
		FROM test_case_outputs WHERE submission_id=$1 ORDER BY position`, submissionID)
	if err != nil {
		return nil, Wrap(KindUnexpected, "load test outputs", err)
	}
	defer rows.Close()
	var out []TestCaseOutput
	for rows.Next() {
		var o TestCaseOutput
		if err := rows.Scan(&o.TestCaseID, &o.IsAccepted, &o.Received); err != nil {
			return nil, Wrap(KindUnexpected, "scan test output", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *SQLStore) UpsertMcq(ctx context.Context, examID string, sub McqSubmission) (McqSubmission, error) {
	var out McqSubmission
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var prevID string
		var prevScore float64
		err := tx.QueryRowContext(ctx, `SELECT id,score FROM mcq_submissions
			WHERE question_id=$1 AND account_id=$2`, sub.QuestionID, sub.AccountID).
			Scan(&prevID, &prevScore)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			if _, err := tx.ExecContext(ctx, `INSERT INTO mcq_submissions
				(id,question_id,account_id,answer_options,score)
				VALUES ($1,$2,$3,$4,$5)`,
				sub.ID, sub.QuestionID, sub.AccountID, sub.AnswerOptions, sub.Score); err != nil {
				return Wrap(KindUnexpected, "insert mcq submission", err)
			}
			out = sub
		case err != nil:
			return Wrap(KindUnexpected, "load mcq submission", err)
		default:
			if _, err := tx.ExecContext(ctx, `UPDATE mcq_submissions
				SET answer_options=$1, score=$2 WHERE id=$3`,
				sub.AnswerOptions, sub.Score, prevID); err != nil {
				return Wrap(KindUnexpected, "update mcq submission", err)
			}
			out = sub
			out.ID = prevID
		}
		return adjustCategory(ctx, tx, examID, sub.AccountID, "mcq_score", sub.Score-prevScore)
	})
	return out, err
}

func (s *SQLStore) UpsertWritten(ctx context.Context, _ string, subs []WrittenSubmission) ([]WrittenSubmission, error) {
	out := make([]WrittenSubmission, 0, len(subs))
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, sub := range subs {
			var prev WrittenSubmission
			err := tx.QueryRowContext(ctx, `SELECT id,score,is_flagged,flag_reason FROM written_submissions
				WHERE question_id=$1 AND account_id=$2`, sub.QuestionID, sub.AccountID).
				Scan(&prev.ID, &prev.Score, &prev.IsFlagged, &prev.FlagReason)
			switch {
			case errors.Is(err, sql.ErrNoRows):
				if _, err := tx.ExecContext(ctx, `INSERT INTO written_submissions
					(id,question_id,account_id,answer,score,is_flagged,flag_reason)
					VALUES ($1,$2,$3,$4,0,$5,'')`,
					sub.ID, sub.QuestionID, sub.AccountID, sub.Answer, false); err != nil {
					return Wrap(KindUnexpected, "insert written submission", err)
				}
				out = append(out, sub)
			case err != nil:
				return Wrap(KindUnexpected, "load written submission", err)
			default:
				if _, err := tx.ExecContext(ctx, `UPDATE written_submissions
					SET answer=$1 WHERE id=$2`, sub.Answer, prev.ID); err != nil {
					return Wrap(KindUnexpected, "update written submission", err)
				}
				saved := sub
				saved.ID = prev.ID
				saved.Score = prev.Score
				saved.IsFlagged = prev.IsFlagged
				saved.FlagReason = prev.FlagReason
				out = append(out, saved)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLStore) UpsertProblem(ctx context.Context, examID string, sub ProblemSubmission) (ProblemSubmission, error) {
	var out ProblemSubmission
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var prevID string
		var prevScore float64
		var prevAttempts int
		var flagged bool
		var reason string
		err := tx.QueryRowContext(ctx, `SELECT id,score,attempts,is_flagged,flag_reason FROM problem_submissions
			WHERE question_id=$1 AND account_id=$2`, sub.QuestionID, sub.AccountID).
			Scan(&prevID, &prevScore, &prevAttempts, &flagged, &reason)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			sub.Attempts = 1
			if _, err := tx.ExecContext(ctx, `INSERT INTO problem_submissions
				(id,question_id,account_id,code,language,attempts,score,is_flagged,flag_reason)
				VALUES ($1,$2,$3,$4,$5,1,$6,$7,'')`,
				sub.ID, sub.QuestionID, sub.AccountID, sub.Code, sub.Language, sub.Score, false); err != nil {
				return Wrap(KindUnexpected, "insert problem submission", err)
			}
			out = sub
		case err != nil:
			return Wrap(KindUnexpected, "load problem submission", err)
		default:
			if _, err := tx.ExecContext(ctx, `UPDATE problem_submissions
				SET code=$1, language=$2, score=$3, attempts=attempts+1 WHERE id=$4`,
				sub.Code, sub.Language, sub.Score, prevID); err != nil {
				return Wrap(KindUnexpected, "update problem submission", err)
			}
			out = sub
			out.ID = prevID
			out.Attempts = prevAttempts + 1
			out.IsFlagged = flagged
			out.FlagReason = reason
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM test_case_outputs WHERE submission_id=$1`, out.ID); err != nil {
			return Wrap(KindUnexpected, "clear test outputs", err)
		}
		for i, o := range sub.Outputs {
			if _, err := tx.ExecContext(ctx, `INSERT INTO test_case_outputs
				(submission_id,test_case_id,position,is_accepted,received_output)
				VALUES ($1,$2,$3,$4,$5)`,
				out.ID, o.TestCaseID, i, o.IsAccepted, o.Received); err != nil {
				return Wrap(KindUnexpected, "insert test output", err)
			}
		}
		out.Outputs = sub.Outputs

		return adjustCategory(ctx, tx, examID, sub.AccountID, "problem_score", sub.Score-prevScore)
	})
	return out, err
}

// adjustCategory moves one category total on the scoreboard row. Zero rows
// affected means the submission has no scoreboard row, which is a
// data-integrity fault.
func adjustCategory(ctx context.Context, tx *sql.Tx, examID, accountID, column string, delta float64) error {
	if delta == 0 {
		return nil
	}
	res, err := tx.ExecContext(ctx, `UPDATE exam_candidates SET `+column+`=`+column+`+$1
		WHERE exam_id=$2 AND account_id=$3`, delta, examID, accountID)
	if err != nil {
		return Wrap(KindUnexpected, "adjust "+column, err)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		return E(KindUnexpected, "submission without scoreboard row for exam %s account %s", examID, accountID)
	}
	return nil
}

/* ---------------- Reviews ---------------- */

func (s *SQLStore) GetWrittenSubmission(ctx context.Context, id string) (WrittenSubmission, error) {
	var w WrittenSubmission
	err := s.db.QueryRowContext(ctx, `SELECT id,question_id,account_id,answer,score,is_flagged,flag_reason
		FROM written_submissions WHERE id=$1`, id).
		Scan(&w.ID, &w.QuestionID, &w.AccountID, &w.Answer, &w.Score, &w.IsFlagged, &w.FlagReason)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return WrittenSubmission{}, E(KindNotFound, "written submission %s not found", id)
		}
		return WrittenSubmission{}, Wrap(KindUnexpected, "load written submission", err)
	}
	return w, nil
}

func (s *SQLStore) GetProblemSubmission(ctx context.Context, id string) (ProblemSubmission, error) {
	var p ProblemSubmission
	err := s.db.QueryRowContext(ctx, `SELECT id,question_id,account_id,code,language,attempts,score,is_flagged,flag_reason
		FROM problem_submissions WHERE id=$1`, id).
		Scan(&p.ID, &p.QuestionID, &p.AccountID, &p.Code, &p.Language, &p.Attempts, &p.Score, &p.IsFlagged, &p.FlagReason)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ProblemSubmission{}, E(KindNotFound, "problem submission %s not found", id)
		}
		return ProblemSubmission{}, Wrap(KindUnexpected, "load problem submission", err)
	}
	outs, err := s.loadOutputs(ctx, p.ID)
	if err != nil {
		return ProblemSubmission{}, err
	}
	p.Outputs = outs
	return p, nil
}

func (s *SQLStore) ApplyWrittenReview(ctx context.Context, examID string, upd ReviewUpdate) (WrittenSubmission, error) {
	var out WrittenSubmission
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var w WrittenSubmission
		err := tx.QueryRowContext(ctx, `SELECT id,question_id,account_id,answer,score,is_flagged,flag_reason
			FROM written_submissions WHERE id=$1`, upd.SubmissionID).
			Scan(&w.ID, &w.QuestionID, &w.AccountID, &w.Answer, &w.Score, &w.IsFlagged, &w.FlagReason)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return E(KindNotFound, "written submission %s not found", upd.SubmissionID)
			}
			return Wrap(KindUnexpected, "load written submission", err)
		}
		if w.AccountID != upd.AccountID {
			return E(KindValidation, "submission %s does not belong to account %s", upd.SubmissionID, upd.AccountID)
		}
		if err := requireScoreboardRow(ctx, tx, examID, upd.AccountID, upd.SubmissionID); err != nil {
			return err
		}
		prevScore := w.Score
		applyReviewFields(&w.Score, &w.IsFlagged, &w.FlagReason, upd)
		if _, err := tx.ExecContext(ctx, `UPDATE written_submissions
			SET score=$1, is_flagged=$2, flag_reason=$3 WHERE id=$4`,
			w.Score, w.IsFlagged, w.FlagReason, w.ID); err != nil {
			return Wrap(KindUnexpected, "update written review", err)
		}
		if upd.Score != nil {
			if err := adjustScoreboard(ctx, tx, examID, upd.AccountID, "written_score", *upd.Score-prevScore, upd.SubmissionID); err != nil {
				return err
			}
		}
		out = w
		return nil
	})
	return out, err
}

func (s *SQLStore) ApplyProblemReview(ctx context.Context, examID string, upd ReviewUpdate) (ProblemSubmission, error) {
	var out ProblemSubmission
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var p ProblemSubmission
		err := tx.QueryRowContext(ctx, `SELECT id,question_id,account_id,code,language,attempts,score,is_flagged,flag_reason
			FROM problem_submissions WHERE id=$1`, upd.SubmissionID).
			Scan(&p.ID, &p.QuestionID, &p.AccountID, &p.Code, &p.Language, &p.Attempts, &p.Score, &p.IsFlagged, &p.FlagReason)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return E(KindNotFound, "problem submission %s not found", upd.SubmissionID)
			}
			return Wrap(KindUnexpected, "load problem submission", err)
		}
		if p.AccountID != upd.AccountID {
			return E(KindValidation, "submission %s does not belong to account %s", upd.SubmissionID, upd.AccountID)
		}
		if err := requireScoreboardRow(ctx, tx, examID, upd.AccountID, upd.SubmissionID); err != nil {
			return err
		}
		prevScore := p.Score
		applyReviewFields(&p.Score, &p.IsFlagged, &p.FlagReason, upd)
		if _, err := tx.ExecContext(ctx, `UPDATE problem_submissions
			SET score=$1, is_flagged=$2, flag_reason=$3 WHERE id=$4`,
			p.Score, p.IsFlagged, p.FlagReason, p.ID); err != nil {
			return Wrap(KindUnexpected, "update problem review", err)
		}
		if upd.Score != nil {
			if err := adjustScoreboard(ctx, tx, examID, upd.AccountID, "problem_score", *upd.Score-prevScore, upd.SubmissionID); err != nil {
				return err
			}
		}
		out = p
		return nil
	})
	return out, err
}

func applyReviewFields(score *float64, flagged *bool, reason *string, upd ReviewUpdate) {
	if upd.Score != nil {
		*score = *upd.Score
	}
	if upd.IsFlagged != nil {
		*flagged = *upd.IsFlagged
	}
	if upd.FlagReason != nil {
		*reason = *upd.FlagReason
	}
}

// requireScoreboardRow rejects a review against a submission whose candidate
// row is gone. Every review must hit this check, score change or not, so a
// flag-only review cannot mask the data-integrity fault.
func requireScoreboardRow(ctx context.Context, tx *sql.Tx, examID, accountID, submissionID string) error {
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM exam_candidates
		WHERE exam_id=$1 AND account_id=$2`, examID, accountID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return E(KindUnexpected, "submission %s has no scoreboard row", submissionID)
	}
	if err != nil {
		return Wrap(KindUnexpected, "load scoreboard row", err)
	}
	return nil
}

func adjustScoreboard(ctx context.Context, tx *sql.Tx, examID, accountID, column string, delta float64, submissionID string) error {
	res, err := tx.ExecContext(ctx, `UPDATE exam_candidates SET `+column+`=`+column+`+$1
		WHERE exam_id=$2 AND account_id=$3`, delta, examID, accountID)
	if err != nil {
		return Wrap(KindUnexpected, "adjust "+column, err)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		return E(KindUnexpected, "submission %s has no scoreboard row", submissionID)
	}
	return nil
}
