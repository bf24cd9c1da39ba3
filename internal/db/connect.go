package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Open opens a DB and ensures schema exists.
func Open(ctx context.Context, driver Driver, dsn string) (*sql.DB, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite" // modernc driver
		if dsn == "" {
			dsn = "file:examgate.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
		drvName = "pgx" // pgx stdlib driver
		if dsn == "" {
			dsn = "postgres://localhost:5432/examgate?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	if err := ensureSchema(ctx, db, driver); err != nil {
		return nil, err
	}
	return db, nil
}

func ensureSchema(ctx context.Context, db *sql.DB, driver Driver) error {
	var schema string
	switch driver {
	case DriverSQLite:
		schema = schemaSQLite
	case DriverPostgres:
		schema = schemaPostgres
	}
	_, err := db.ExecContext(ctx, schema)
	return err
}

const schemaSQLite = `
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS examinations (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  opens_at INTEGER NOT NULL,
  closes_at INTEGER NOT NULL,
  duration_minutes INTEGER NOT NULL,
  mcq_points REAL NOT NULL DEFAULT 0,
  written_points REAL NOT NULL DEFAULT 0,
  problem_points REAL NOT NULL DEFAULT 0,
  total_points REAL NOT NULL DEFAULT 0,
  is_published INTEGER NOT NULL DEFAULT 0,
  created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS questions (
  id TEXT PRIMARY KEY,
  exam_id TEXT NOT NULL REFERENCES examinations(id) ON DELETE CASCADE,
  qtype TEXT NOT NULL,
  statement_md TEXT NOT NULL,
  points REAL NOT NULL DEFAULT 0,
  difficulty TEXT NOT NULL DEFAULT '',
  position INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS mcq_options (
  question_id TEXT PRIMARY KEY REFERENCES questions(id) ON DELETE CASCADE,
  option1 TEXT NOT NULL,
  option2 TEXT NOT NULL,
  option3 TEXT NOT NULL,
  option4 TEXT NOT NULL,
  is_multi_select INTEGER NOT NULL DEFAULT 0,
  answer_options TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS test_cases (
  id TEXT PRIMARY KEY,
  question_id TEXT NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
  position INTEGER NOT NULL DEFAULT 0,
  input TEXT NOT NULL,
  expected_output TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS exam_candidates (
  exam_id TEXT NOT NULL REFERENCES examinations(id) ON DELETE CASCADE,
  account_id TEXT NOT NULL,
  email TEXT NOT NULL DEFAULT '',
  started_at INTEGER,
  submitted_at INTEGER,
  mcq_score REAL NOT NULL DEFAULT 0,
  written_score REAL NOT NULL DEFAULT 0,
  problem_score REAL NOT NULL DEFAULT 0,
  has_cheated INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY (exam_id, account_id)
);

CREATE TABLE IF NOT EXISTS mcq_submissions (
  id TEXT PRIMARY KEY,
  question_id TEXT NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
  account_id TEXT NOT NULL,
  answer_options TEXT NOT NULL,
  score REAL NOT NULL DEFAULT 0,
  UNIQUE (question_id, account_id)
);

CREATE TABLE IF NOT EXISTS written_submissions (
  id TEXT PRIMARY KEY,
  question_id TEXT NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
  account_id TEXT NOT NULL,
  answer TEXT NOT NULL,
  score REAL NOT NULL DEFAULT 0,
  is_flagged INTEGER NOT NULL DEFAULT 0,
  flag_reason TEXT NOT NULL DEFAULT '',
  UNIQUE (question_id, account_id)
);

CREATE TABLE IF NOT EXISTS problem_submissions (
  id TEXT PRIMARY KEY,
  question_id TEXT NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
  account_id TEXT NOT NULL,
  code TEXT NOT NULL,
  language TEXT NOT NULL,
  attempts INTEGER NOT NULL DEFAULT 0,
  score REAL NOT NULL DEFAULT 0,
  is_flagged INTEGER NOT NULL DEFAULT 0,
  flag_reason TEXT NOT NULL DEFAULT '',
  UNIQUE (question_id, account_id)
);

CREATE TABLE IF NOT EXISTS test_case_outputs (
  submission_id TEXT NOT NULL REFERENCES problem_submissions(id) ON DELETE CASCADE,
  test_case_id TEXT NOT NULL,
  position INTEGER NOT NULL DEFAULT 0,
  is_accepted INTEGER NOT NULL DEFAULT 0,
  received_output TEXT NOT NULL DEFAULT '',
  PRIMARY KEY (submission_id, test_case_id)
);

CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  username TEXT NOT NULL UNIQUE,
  role TEXT NOT NULL,
  pass_hash TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS event_log (
  seq INTEGER PRIMARY KEY AUTOINCREMENT,
  typ TEXT NOT NULL,
  key TEXT NOT NULL,
  data TEXT NOT NULL,
  created_at INTEGER NOT NULL
);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS examinations (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  opens_at BIGINT NOT NULL,
  closes_at BIGINT NOT NULL,
  duration_minutes INTEGER NOT NULL,
  mcq_points DOUBLE PRECISION NOT NULL DEFAULT 0,
  written_points DOUBLE PRECISION NOT NULL DEFAULT 0,
  problem_points DOUBLE PRECISION NOT NULL DEFAULT 0,
  total_points DOUBLE PRECISION NOT NULL DEFAULT 0,
  is_published BOOLEAN NOT NULL DEFAULT FALSE,
  created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS questions (
  id TEXT PRIMARY KEY,
  exam_id TEXT NOT NULL REFERENCES examinations(id) ON DELETE CASCADE,
  qtype TEXT NOT NULL,
  statement_md TEXT NOT NULL,
  points DOUBLE PRECISION NOT NULL DEFAULT 0,
  difficulty TEXT NOT NULL DEFAULT '',
  position INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS mcq_options (
  question_id TEXT PRIMARY KEY REFERENCES questions(id) ON DELETE CASCADE,
  option1 TEXT NOT NULL,
  option2 TEXT NOT NULL,
  option3 TEXT NOT NULL,
  option4 TEXT NOT NULL,
  is_multi_select BOOLEAN NOT NULL DEFAULT FALSE,
  answer_options TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS test_cases (
  id TEXT PRIMARY KEY,
  question_id TEXT NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
  position INTEGER NOT NULL DEFAULT 0,
  input TEXT NOT NULL,
  expected_output TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS exam_candidates (
  exam_id TEXT NOT NULL REFERENCES examinations(id) ON DELETE CASCADE,
  account_id TEXT NOT NULL,
  email TEXT NOT NULL DEFAULT '',
  started_at BIGINT,
  submitted_at BIGINT,
  mcq_score DOUBLE PRECISION NOT NULL DEFAULT 0,
  written_score DOUBLE PRECISION NOT NULL DEFAULT 0,
  problem_score DOUBLE PRECISION NOT NULL DEFAULT 0,
  has_cheated BOOLEAN NOT NULL DEFAULT FALSE,
  PRIMARY KEY (exam_id, account_id)
);

CREATE TABLE IF NOT EXISTS mcq_submissions (
  id TEXT PRIMARY KEY,
  question_id TEXT NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
  account_id TEXT NOT NULL,
  answer_options TEXT NOT NULL,
  score DOUBLE PRECISION NOT NULL DEFAULT 0,
  UNIQUE (question_id, account_id)
);

CREATE TABLE IF NOT EXISTS written_submissions (
  id TEXT PRIMARY KEY,
  question_id TEXT NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
  account_id TEXT NOT NULL,
  answer TEXT NOT NULL,
  score DOUBLE PRECISION NOT NULL DEFAULT 0,
  is_flagged BOOLEAN NOT NULL DEFAULT FALSE,
  flag_reason TEXT NOT NULL DEFAULT '',
  UNIQUE (question_id, account_id)
);

CREATE TABLE IF NOT EXISTS problem_submissions (
  id TEXT PRIMARY KEY,
  question_id TEXT NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
  account_id TEXT NOT NULL,
  code TEXT NOT NULL,
  language TEXT NOT NULL,
  attempts INTEGER NOT NULL DEFAULT 0,
  score DOUBLE PRECISION NOT NULL DEFAULT 0,
  is_flagged BOOLEAN NOT NULL DEFAULT FALSE,
  flag_reason TEXT NOT NULL DEFAULT '',
  UNIQUE (question_id, account_id)
);

CREATE TABLE IF NOT EXISTS test_case_outputs (
  submission_id TEXT NOT NULL REFERENCES problem_submissions(id) ON DELETE CASCADE,
  test_case_id TEXT NOT NULL,
  position INTEGER NOT NULL DEFAULT 0,
  is_accepted BOOLEAN NOT NULL DEFAULT FALSE,
  received_output TEXT NOT NULL DEFAULT '',
  PRIMARY KEY (submission_id, test_case_id)
);

CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  username TEXT NOT NULL UNIQUE,
  role TEXT NOT NULL,
  pass_hash TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS event_log (
  seq BIGSERIAL PRIMARY KEY,
  typ TEXT NOT NULL,
  key TEXT NOT NULL,
  data TEXT NOT NULL,
  created_at BIGINT NOT NULL
);
`
