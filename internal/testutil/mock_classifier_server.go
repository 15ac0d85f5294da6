// Package testutil provides shared test fixtures: a mock OpenAI-compatible
// chat completions server and canned classifier payloads.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
)

// chatMessage mirrors the request/response message shape on the wire.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatChoice struct {
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatCompletionResponse is the minimal chat completions response for tests.
type ChatCompletionResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
}

// MockClassifierServer is an httptest-backed OpenAI-compatible endpoint that
// returns a fixed assistant message. It counts requests so tests can assert
// on cache hits and retries, and can fail the first N requests with a given
// status code.
type MockClassifierServer struct {
	*httptest.Server

	content   string
	failFirst int
	failCode  int
	requests  atomic.Int64
	// LastUserContent holds the user message of the most recent request.
	lastUser atomic.Value
}

// NewMockClassifierServer starts a server whose assistant replies with
// content. Caller must register t.Cleanup(server.Close).
func NewMockClassifierServer(content string) *MockClassifierServer {
	s := &MockClassifierServer{content: content}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// FailFirst makes the first n requests return the given HTTP status before
// the server starts answering normally.
func (s *MockClassifierServer) FailFirst(n, code int) *MockClassifierServer {
	s.failFirst = n
	s.failCode = code
	return s
}

// Requests returns how many chat completion requests the server has seen.
func (s *MockClassifierServer) Requests() int {
	return int(s.requests.Load())
}

// LastUserContent returns the user message body of the most recent request,
// or "" if none arrived yet.
func (s *MockClassifierServer) LastUserContent() string {
	if v := s.lastUser.Load(); v != nil {
		return v.(string)
	}
	return ""
}

func (s *MockClassifierServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/chat/completions" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	n := s.requests.Add(1)

	var req struct {
		Messages []chatMessage `json:"messages"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
		for _, m := range req.Messages {
			if m.Role == "user" {
				s.lastUser.Store(m.Content)
			}
		}
	}

	if s.failFirst > 0 && int(n) <= s.failFirst {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(s.failCode)
		_, _ = w.Write([]byte(`{"error":{"message":"mock failure","type":"server_error"}}`))
		return
	}

	resp := ChatCompletionResponse{
		ID:     "chatcmpl-test",
		Object: "chat.completion",
		Model:  "gpt-4o-mini",
		Choices: []chatChoice{{
			Message:      chatMessage{Role: "assistant", Content: s.content},
			FinishReason: "stop",
		}},
		Usage: chatUsage{PromptTokens: 50, CompletionTokens: 30, TotalTokens: 80},
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
