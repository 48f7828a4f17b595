package fargate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// chatRequestTimeout bounds a single invoke round-trip.
const chatRequestTimeout = 30 * time.Second

// maxChatResponseBytes caps how much of a chatbot response is read.
const maxChatResponseBytes = 1 << 20

// ChatClient sends test messages to a deployed chatbot endpoint.
type ChatClient struct {
	httpClient *http.Client
	endpoint   string
}

// NewChatClient builds a client for the given endpoint URL, as produced by
// a successful apply or a status report.
func NewChatClient(endpoint string) *ChatClient {
	return &ChatClient{
		httpClient: &http.Client{Timeout: chatRequestTimeout},
		endpoint:   endpoint,
	}
}

// chatRequest is the JSON payload posted to the chatbot.
type chatRequest struct {
	Message string `json:"message"`
}

// chatResponse is the expected shape of a chatbot reply. Bots that return a
// different shape fall back to the raw body.
type chatResponse struct {
	Response string `json:"response"`
}

// Send posts a message to the chatbot and returns its reply.
func (c *ChatClient) Send(ctx context.Context, message string) (string, error) {
	payload, err := json.Marshal(chatRequest{Message: message})
	if err != nil {
		return "", errors.Wrap(err, "marshal chat request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", errors.Wrap(err, "build chat request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrapf(err, "POST %s", c.endpoint)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxChatResponseBytes))
	if err != nil {
		return "", errors.Wrap(err, "read chat response")
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chatbot returned %s: %s", resp.Status, bytes.TrimSpace(body))
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Response != "" {
		return parsed.Response, nil
	}
	return string(bytes.TrimSpace(body)), nil
}
