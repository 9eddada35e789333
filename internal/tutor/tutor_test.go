package tutor

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =========================================================================
// HELPERS
// =========================================================================

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func completionBody(content string) string {
	resp := map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "test-model",
		"choices": []map[string]any{
			{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			},
		},
	}
	b, _ := json.Marshal(resp)
	return string(b)
}

// newTestClient points a Client at handler with fast retries.
func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Config{
		APIKey:       "test-key",
		BaseURL:      srv.URL + "/v1",
		Model:        "test-model",
		MaxRetries:   3,
		RetryBackoff: time.Millisecond,
	}, discardLogger())
	require.NoError(t, err)
	return c
}

// =========================================================================
// CONFIGURATION
// =========================================================================

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New(Config{}, discardLogger())
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = New(Config{APIKey: "   "}, discardLogger())
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestNew_Defaults(t *testing.T) {
	c, err := New(Config{APIKey: "k"}, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, c.Model())
	assert.Equal(t, 3, c.config.MaxRetries)
	assert.Equal(t, DefaultBaseURL, c.config.BaseURL)
}

// =========================================================================
// PROMPT
// =========================================================================

func TestBuildMessages_WithoutContext(t *testing.T) {
	msgs := BuildMessages([]Message{
		{Role: RoleUser, Text: "how do I start?"},
		{Role: RoleAssistant, Text: "what have you tried?"},
		{Role: "model", Text: "unknown roles count as the user"},
	}, nil)

	require.Len(t, msgs, 4)
	assert.Equal(t, openai.ChatMessageRoleSystem, msgs[0].Role)
	assert.Equal(t, SystemPrompt, msgs[0].Content)
	assert.Equal(t, openai.ChatMessageRoleUser, msgs[1].Role)
	assert.Equal(t, openai.ChatMessageRoleAssistant, msgs[2].Role)
	assert.Equal(t, openai.ChatMessageRoleUser, msgs[3].Role)
}

func TestBuildMessages_WithContext(t *testing.T) {
	msgs := BuildMessages([]Message{{Role: RoleUser, Text: "hint please"}}, &QuestionContext{
		Question: "Two Sum",
		Topic:    "Array",
		Link:     "https://leetcode.com/problems/two-sum",
	})

	system := msgs[0].Content
	assert.True(t, strings.HasPrefix(system, SystemPrompt))
	assert.Contains(t, system, "- **Problem**: Two Sum")
	assert.Contains(t, system, "- **Topic**: Array")
	assert.Contains(t, system, "- **Difficulty**: Medium", "blank difficulty falls back to Medium")
	assert.Contains(t, system, "- **Link**: https://leetcode.com/problems/two-sum")
}

func TestBuildMessages_OmitsEmptyLink(t *testing.T) {
	msgs := BuildMessages([]Message{{Role: RoleUser, Text: "hi"}}, &QuestionContext{
		Question: "Two Sum", Topic: "Array", Difficulty: "Easy",
	})
	assert.NotContains(t, msgs[0].Content, "**Link**")
	assert.Contains(t, msgs[0].Content, "- **Difficulty**: Easy")
}

// =========================================================================
// CHAT
// =========================================================================

func TestChat_Success(t *testing.T) {
	var got openai.ChatCompletionRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, completionBody("Try a hash map."))
	})

	reply, err := c.Chat(context.Background(), []Message{{Role: RoleUser, Text: "hint"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Try a hash map.", reply)

	assert.Equal(t, "test-model", got.Model)
	assert.Len(t, got.Messages, 2)
	assert.InDelta(t, 0.7, got.Temperature, 0.0001)
	assert.InDelta(t, 0.95, got.TopP, 0.0001)
	assert.Equal(t, 1024, got.MaxTokens)
}

func TestChat_EmptyHistory(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})
	_, err := c.Chat(context.Background(), nil, nil)
	assert.Error(t, err)
}

func TestChat_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			io.WriteString(w, `{"error":{"message":"overloaded","type":"server_error"}}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, completionBody("third time lucky"))
	})

	reply, err := c.Chat(context.Background(), []Message{{Role: RoleUser, Text: "hint"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "third time lucky", reply)
	assert.Equal(t, int32(3), calls.Load())
}

func TestChat_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"error":{"message":"bad key","type":"invalid_request_error"}}`)
	})

	_, err := c.Chat(context.Background(), []Message{{Role: RoleUser, Text: "hint"}}, nil)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())

	var apiErr *openai.APIError
	assert.True(t, errors.As(err, &apiErr))
}

func TestChat_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, completionBody(""))
	})

	_, err := c.Chat(context.Background(), []Message{{Role: RoleUser, Text: "hint"}}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errEmptyReply)
	assert.Equal(t, int32(3), calls.Load())
}
