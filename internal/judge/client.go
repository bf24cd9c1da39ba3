package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// HTTPExecutor talks to a Piston-style execution service:
// POST {base}/execute with {language, code, stdin} returning
// {stdout, stderr, exception, execution_time_ms}.
type HTTPExecutor struct {
	BaseURL string
	HTTP    *http.Client
}

func NewHTTPExecutor(baseURL string, timeout time.Duration) *HTTPExecutor {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPExecutor{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
	}
}

type execRequest struct {
	Language string `json:"language"`
	Code     string `json:"code"`
	Stdin    string `json:"stdin"`
}

type execResponse struct {
	Stdout      string `json:"stdout"`
	Stderr      string `json:"stderr"`
	Exception   string `json:"exception"`
	ExecutionMs int64  `json:"execution_time_ms"`
}

func (e *HTTPExecutor) Execute(ctx context.Context, language, code, stdin string) (ExecResult, error) {
	body, err := json.Marshal(execRequest{Language: language, Code: code, Stdin: stdin})
	if err != nil {
		return ExecResult{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.BaseURL+"/execute", bytes.NewReader(body))
	if err != nil {
		return ExecResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTP.Do(req)
	if err != nil {
		return ExecResult{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		slog.Warn("executor returned non-200", "status", resp.StatusCode)
		return ExecResult{}, fmt.Errorf("executor status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	var out execResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return ExecResult{}, fmt.Errorf("decode executor response: %w", err)
	}
	return ExecResult{
		Stdout:      out.Stdout,
		Stderr:      out.Stderr,
		Exception:   out.Exception,
		ExecutionMs: out.ExecutionMs,
	}, nil
}
