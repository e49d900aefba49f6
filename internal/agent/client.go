package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const chatPath = "/inference/chat/"

// maxErrorBody bounds how much of an upstream error body is kept in errors.
const maxErrorBody = 2048

var ErrUpstream = errors.New("agent upstream error")

type Options struct {
	BaseURL string
	APIKey  string
	UserID  string
	Timeout time.Duration
}

// Client talks to the hosted chat agent. One agent ID builds reports from
// prompts; another compares reports.
type Client struct {
	baseURL    string
	apiKey     string
	userID     string
	httpClient *http.Client
}

func NewClient(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		apiKey:  opts.APIKey,
		userID:  opts.UserID,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type chatRequest struct {
	UserID    string `json:"user_id"`
	AgentID   string `json:"agent_id"`
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type chatResponse struct {
	Response string `json:"response"`
}

// Chat sends one message within a session and returns the agent's reply text.
func (c *Client) Chat(ctx context.Context, agentID, sessionID, message string) (string, error) {
	body, err := json.Marshal(chatRequest{
		UserID:    c.userID,
		AgentID:   agentID,
		SessionID: sessionID,
		Message:   message,
	})
	if err != nil {
		return "", fmt.Errorf("encode chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+chatPath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrUpstream, err)
	}
	return result.Response, nil
}
