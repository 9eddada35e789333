// Package tutor talks to an OpenAI-compatible chat completion endpoint to give
// progressive hints on a practice problem.
//
// The default endpoint is Gemini's OpenAI-compatible API, but any provider
// speaking the same protocol works (OpenAI, a local Ollama, ...).
package tutor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"
	DefaultModel   = "gemini-2.0-flash"
)

// Generation settings tuned for short, friendly tutoring replies.
const (
	temperature = 0.7
	topP        = 0.95
	maxTokens   = 1024
)

// SystemPrompt frames every conversation.
const SystemPrompt = `You are a friendly DSA (Data Structures & Algorithms) tutor embedded in a revision platform. Your role:

1. **Give progressive hints**: start with a subtle nudge, then get more specific if the user asks again. Never dump the full solution immediately.
2. **Explain concepts clearly**: use simple language, analogies and small examples.
3. **Analyze complexity**: when relevant, discuss time and space complexity with Big-O notation.
4. **Encourage learning**: ask the user what they've tried and guide them to the answer.
5. **Be concise**: keep responses short and scannable. Use bullet points and code snippets when helpful.
6. **Format nicely**: use markdown, bold for key terms, backticks for code, numbered lists for steps.

If the user provides a specific problem, help them think through the approach rather than giving the answer outright.`

// ErrNotConfigured is returned when no API key was provided.
var ErrNotConfigured = errors.New("tutor: no API key configured")

// Roles accepted in a conversation history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of the conversation.
type Message struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// QuestionContext describes the problem the user is looking at.
type QuestionContext struct {
	Question   string
	Topic      string
	Difficulty string
	Link       string
}

// Config configures Client.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	MaxRetries int
	// RetryBackoff is the first wait between attempts; it doubles each retry.
	RetryBackoff time.Duration
	Timeout      time.Duration
}

// Client is a chat completion client with retry on transient failures.
type Client struct {
	api    *openai.Client
	config Config
	logger *slog.Logger
}

// New creates a Client. It returns ErrNotConfigured when cfg has no API key,
// so callers can start without the tutor and report it as unavailable.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrNotConfigured
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	clientConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &Client{
		api:    openai.NewClientWithConfig(clientConfig),
		config: cfg,
		logger: logger,
	}, nil
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.config.Model
}

// BuildMessages turns a conversation into chat completion messages: the
// system prompt (with the problem details, when known) followed by history.
func BuildMessages(history []Message, q *QuestionContext) []openai.ChatCompletionMessage {
	system := SystemPrompt
	if q != nil {
		difficulty := q.Difficulty
		if difficulty == "" {
			difficulty = "Medium"
		}
		var b strings.Builder
		b.WriteString(system)
		b.WriteString("\n\nThe user is currently looking at this problem:\n")
		fmt.Fprintf(&b, "- **Problem**: %s\n", q.Question)
		fmt.Fprintf(&b, "- **Topic**: %s\n", q.Topic)
		fmt.Fprintf(&b, "- **Difficulty**: %s", difficulty)
		if q.Link != "" {
			fmt.Fprintf(&b, "\n- **Link**: %s", q.Link)
		}
		system = b.String()
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: system,
	})
	for _, m := range history {
		role := openai.ChatMessageRoleUser
		if m.Role == RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: m.Text})
	}
	return messages
}

// Chat sends the conversation and returns the tutor's reply.
func (c *Client) Chat(ctx context.Context, history []Message, q *QuestionContext) (string, error) {
	if len(history) == 0 {
		return "", fmt.Errorf("tutor: conversation is empty")
	}

	req := openai.ChatCompletionRequest{
		Model:       c.config.Model,
		Messages:    BuildMessages(history, q),
		Temperature: temperature,
		TopP:        topP,
		MaxTokens:   maxTokens,
	}

	var reply string
	err := c.doWithRetry(ctx, func() error {
		resp, err := c.api.CreateChatCompletion(ctx, req)
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
			return errEmptyReply
		}
		reply = resp.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("tutor: completing chat: %w", err)
	}
	return reply, nil
}

var errEmptyReply = errors.New("empty reply from model")

// doWithRetry runs fn, retrying transient failures with exponential backoff.
func (c *Client) doWithRetry(ctx context.Context, fn func() error) error {
	wait := c.config.RetryBackoff
	var lastErr error
	for attempt := 1; attempt <= c.config.MaxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) || attempt == c.config.MaxRetries {
			break
		}

		c.logger.Debug("tutor request failed, retrying",
			slog.Int("attempt", attempt),
			slog.Duration("wait", wait),
			slog.String("error", lastErr.Error()),
		)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
		wait *= 2
	}
	return lastErr
}

// retryable reports whether err is worth another attempt: rate limits,
// server errors and empty replies.
func retryable(err error) bool {
	if errors.Is(err, errEmptyReply) {
		return true
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= 500
	}
	return false
}
