// Package judge runs candidate code against a problem's test cases through
// an external execution service and classifies each outcome.
package judge

import (
	"context"
	"strings"
)

// ExecResult is what the execution collaborator reports for one run.
type ExecResult struct {
	Stdout      string
	Stderr      string
	Exception   string
	ExecutionMs int64
}

// Executor is the external code-execution collaborator. It is treated as
// untrusted and unreliable: a returned error downgrades to a rejected test
// case, it never fails the submission.
type Executor interface {
	Execute(ctx context.Context, language, code, stdin string) (ExecResult, error)
}

// TestCase is one input/expected-output pair, in authored order.
type TestCase struct {
	ID       string
	Input    string
	Expected string
}

// CaseResult is the classified outcome for one test case.
type CaseResult struct {
	TestCaseID string
	Accepted   bool
	Received   string
}

// Runner executes a submission's test cases strictly sequentially.
// Concurrency lives across submissions, never inside one.
type Runner struct {
	exec Executor
}

func NewRunner(exec Executor) *Runner { return &Runner{exec: exec} }

// Run invokes the executor once per test case and classifies each result.
// A test case is accepted when stderr and exception are empty and the
// trailing-whitespace-trimmed stdout equals the trimmed expected output.
//
// Executor faults (network, timeout) mark that single case rejected with the
// error surfaced in Received; remaining cases still run. Only caller
// cancellation aborts the run, returning ctx.Err() so no partial state is
// persisted.
func (r *Runner) Run(ctx context.Context, language, code string, cases []TestCase) ([]CaseResult, bool, error) {
	results := make([]CaseResult, 0, len(cases))
	all := true
	for _, tc := range cases {
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}
		res, err := r.exec.Execute(ctx, language, code, tc.Input)
		if err != nil {
			if ctx.Err() != nil {
				return nil, false, ctx.Err()
			}
			results = append(results, CaseResult{TestCaseID: tc.ID, Received: "execution error: " + err.Error()})
			all = false
			continue
		}
		cr := CaseResult{TestCaseID: tc.ID, Received: res.Stdout}
		switch {
		case res.Exception != "":
			cr.Received = res.Exception
		case res.Stderr != "":
			cr.Received = res.Stderr
		default:
			cr.Accepted = trimTrailing(res.Stdout) == trimTrailing(tc.Expected)
		}
		if !cr.Accepted {
			all = false
		}
		results = append(results, cr)
	}
	return results, all, nil
}

func trimTrailing(s string) string {
	return strings.TrimRight(s, " \t\r\n")
}
