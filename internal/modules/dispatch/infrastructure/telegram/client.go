package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Client is a minimal Telegram Bot API client: one method, one attempt,
// no retry. Delivery guarantees belong to the retryable upstream trigger.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
}

func NewClient(token, baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{token: token, baseURL: baseURL, httpClient: httpClient}
}

// SendMessage posts text to chatID and returns Telegram's raw response
// body. Any completed exchange counts as a successful relay, even when
// the body reports a delivery failure; only a failed request or an
// unreadable response is an error.
func (c *Client) SendMessage(ctx context.Context, chatID, text string) (json.RawMessage, error) {
	body, err := json.Marshal(map[string]string{
		"chat_id":    chatID,
		"text":       text,
		"parse_mode": "Markdown",
	})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telegram request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("telegram response read failed: %w", err)
	}
	return json.RawMessage(raw), nil
}
