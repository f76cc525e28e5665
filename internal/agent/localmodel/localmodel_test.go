package localmodel

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestInvoke_HappyPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "llama3" {
			t.Errorf("unexpected model: %q", req.Model)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Role != "user" {
			t.Fatalf("unexpected messages: %+v", req.Messages)
		}
		_ = json.NewEncoder(w).Encode(chatResponse{
			Choices: []chatChoice{{Message: chatMessage{Role: "assistant", Content: "hello"}}},
		})
	}))
	defer srv.Close()

	client := New(srv.URL, "")
	out, err := client.Invoke(context.Background(), "sys", "user", 5*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "hello" {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestInvoke_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer srv.Close()

	client := New(srv.URL, "")
	if _, err := client.Invoke(context.Background(), "sys", "user", 5*time.Second); err == nil {
		t.Fatal("expected error")
	}
}

func TestInvoke_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(chatResponse{})
	}))
	defer srv.Close()

	client := New(srv.URL, "")
	if _, err := client.Invoke(context.Background(), "sys", "user", 5*time.Second); err == nil {
		t.Fatal("expected error for empty choices")
	}
}

func TestNew_DefaultsWhenEmpty(t *testing.T) {
	client := New("", "")
	if client.BaseURL != DefaultBaseURL {
		t.Errorf("expected default base URL, got %q", client.BaseURL)
	}
	if client.ModelName != DefaultModel {
		t.Errorf("expected default model, got %q", client.ModelName)
	}
}
