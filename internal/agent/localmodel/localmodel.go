// Package localmodel implements internal/agent.Model against a local,
// OpenAI-chat-compatible inference server (llama.cpp, Ollama, vLLM, etc.),
// the default provider per SPEC §6.
package localmodel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

const (
	// DefaultBaseURL matches Ollama's and llama.cpp's default listen address.
	DefaultBaseURL = "http://localhost:11434/v1"
	DefaultModel   = "llama3"
)

// Client is a Model backed by a local chat-completions endpoint.
type Client struct {
	BaseURL    string
	ModelName  string
	HTTPClient *http.Client
}

// New builds a Client from explicit base URL and model name. Either may be
// empty to take the package default.
func New(baseURL, modelName string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if modelName == "" {
		modelName = DefaultModel
	}
	return &Client{
		BaseURL:    baseURL,
		ModelName:  modelName,
		HTTPClient: &http.Client{},
	}
}

// NewFromEnv builds a Client from LOCAL_MODEL_BASE_URL / LOCAL_MODEL_NAME,
// falling back to package defaults when unset.
func NewFromEnv() *Client {
	return New(os.Getenv("LOCAL_MODEL_BASE_URL"), os.Getenv("LOCAL_MODEL_NAME"))
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
	Error   *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Invoke implements agent.Model.
func (c *Client) Invoke(ctx context.Context, systemPrompt, userPrompt string, timeout time.Duration) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := json.Marshal(chatRequest{
		Model: c.ModelName,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal local model request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build local model request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("call local model: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read local model response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("local model error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("unmarshal local model response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("local model error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("local model returned no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}
