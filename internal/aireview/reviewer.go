// Package aireview drafts review suggestions for written answers through an
// OpenAI-compatible API. Suggestions pre-fill a reviewer's form and are never
// committed without a human action.
package aireview

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/examgate/examgate/internal/exam"
)

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api   *openai.Client
	model string
}

// New creates a new review client. baseURL may be empty for the default API.
func New(baseURL, apiKey, modelName string) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:   openai.NewClientWithConfig(config),
		model: modelName,
	}
}

type reviewPayload struct {
	ReviewText string  `json:"review_text"`
	Score      float64 `json:"score"`
}

// Review asks the model to assess one answer against its question statement.
func (c *Client) Review(ctx context.Context, statement, answer string, maxPoints float64) (exam.ReviewSuggestion, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: buildReviewPrompt(statement, maxPoints)},
			{Role: openai.ChatMessageRoleUser, Content: answer},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.2,
	})
	if err != nil {
		return exam.ReviewSuggestion{}, fmt.Errorf("review API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return exam.ReviewSuggestion{}, fmt.Errorf("review API returned no choices")
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("ai review response", "raw", raw)

	var out reviewPayload
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return exam.ReviewSuggestion{}, fmt.Errorf("parse review response: %w (raw: %s)", err, raw)
	}
	if out.Score < 0 {
		out.Score = 0
	}
	if out.Score > maxPoints {
		out.Score = maxPoints
	}
	return exam.ReviewSuggestion{ReviewText: out.ReviewText, Score: out.Score}, nil
}

func buildReviewPrompt(statement string, maxPoints float64) string {
	var sb strings.Builder
	sb.WriteString("You are an exam reviewer. A candidate answered the following question:\n\n")
	sb.WriteString("QUESTION: " + statement + "\n\n")
	sb.WriteString(fmt.Sprintf("MAX POINTS: %.2f\n\n", maxPoints))
	sb.WriteString("Assess the answer for correctness and completeness. ")
	sb.WriteString("Your score suggestion will be shown to a human reviewer, not applied automatically.\n\n")
	sb.WriteString("Respond ONLY with a JSON object:\n")
	sb.WriteString(`{"review_text": "<brief assessment>", "score": <number 0 to max_points>}`)
	sb.WriteString("\n")
	return sb.String()
}
