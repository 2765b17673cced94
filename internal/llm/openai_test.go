package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/sashabaranov/go-openai"
)

func openAIReply(content string, tokens int) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		ID:      "chatcmpl-123",
		Object:  "chat.completion",
		Created: 1677652288,
		Model:   "gpt-4o-mini",
		Choices: []openai.ChatCompletionChoice{
			{
				Index:        0,
				Message:      openai.ChatCompletionMessage{Role: "assistant", Content: content},
				FinishReason: "stop",
			},
		},
		Usage: openai.Usage{TotalTokens: tokens},
	}
}

func TestOpenAIProvider_Invoke_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Expected path /chat/completions, got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("Expected Authorization header Bearer test-key, got %s", r.Header.Get("Authorization"))
		}

		var req openai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != openai.ChatMessageRoleSystem {
			t.Errorf("expected system + user messages, got %+v", req.Messages)
		}
		if !strings.Contains(req.Messages[1].Content, "PROTOCOL TEXT:\n--- PAGE 1 ---") {
			t.Errorf("protocol text missing from user message")
		}

		_ = json.NewEncoder(w).Encode(openAIReply(`{"status": "FOUND"}`, 100))
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "gpt-4o-mini",
		Timeout: 5,
	})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	resp, err := provider.Invoke(context.Background(), Task{
		Prompt:  "Extract the study purpose.",
		Context: "--- PAGE 1 ---\nThe purpose of this study is...",
		Budget:  5,
	})
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}

	if resp.Text != `{"status": "FOUND"}` {
		t.Errorf("unexpected text: %q", resp.Text)
	}
	if resp.TokensUsed != 100 {
		t.Errorf("Expected 100 tokens, got %d", resp.TokensUsed)
	}
	if resp.Turns != 1 {
		t.Errorf("Expected 1 turn, got %d", resp.Turns)
	}
}

func TestOpenAIProvider_Invoke_FollowsUp(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		reply := "I am still reading the protocol."
		if n == 2 {
			reply = `{"status": "NOT_FOUND"}`
		}
		_ = json.NewEncoder(w).Encode(openAIReply(reply, 10))
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(Config{APIKey: "test-key", BaseURL: server.URL, Timeout: 5})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	resp, err := provider.Invoke(context.Background(), Task{Prompt: "p", Budget: 4})
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if resp.Turns != 2 || calls.Load() != 2 {
		t.Errorf("expected 2 turns, got %d (calls %d)", resp.Turns, calls.Load())
	}
	if resp.TokensUsed != 20 {
		t.Errorf("expected tokens summed across turns, got %d", resp.TokensUsed)
	}
}

func TestOpenAIProvider_Invoke_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"message": "Invalid API key", "type": "invalid_request_error"}}`))
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(Config{APIKey: "bad-key", BaseURL: server.URL, Timeout: 5})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	if _, err := provider.Invoke(context.Background(), Task{Prompt: "p", Budget: 1}); err == nil {
		t.Fatal("Expected error for API failure, got nil")
	}
}

func TestOpenAIProvider_Invoke_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := openAIReply("", 0)
		resp.Choices = nil
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(Config{APIKey: "test-key", BaseURL: server.URL, Timeout: 5})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	if _, err := provider.Invoke(context.Background(), Task{Prompt: "p", Budget: 1}); err == nil {
		t.Fatal("Expected error for empty choices")
	}
}

func TestOpenAIProvider_MissingKey(t *testing.T) {
	if _, err := NewOpenAIProvider(Config{}); err == nil {
		t.Fatal("Expected error without API key")
	}
}

func TestOpenAIProvider_Name(t *testing.T) {
	provider, err := NewOpenAIProvider(Config{APIKey: "k"})
	if err != nil {
		t.Fatal(err)
	}
	if provider.Name() != "openai" {
		t.Errorf("Expected name 'openai', got %s", provider.Name())
	}
}
