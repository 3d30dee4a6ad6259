// Package telegram is a minimal Bot API client covering the cursor-based
// getUpdates pull used by the message ingestor.
package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram API error (%d): %s", e.Status, e.Body)
}

func NewClient(httpClient *http.Client, baseURL, token string) *Client {
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: httpClient,
	}
}

type Chat struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Username string `json:"username"`
}

type Message struct {
	MessageID int64  `json:"message_id"`
	Date      int64  `json:"date"`
	Text      string `json:"text"`
	Caption   string `json:"caption"`
	Chat      Chat   `json:"chat"`
}

type Update struct {
	UpdateID    int64    `json:"update_id"`
	ChannelPost *Message `json:"channel_post"`
}

// Envelope pairs a decoded update with its raw bytes so persistence can keep
// the source payload verbatim.
type Envelope struct {
	Update Update
	Raw    json.RawMessage
}

type getUpdatesResponse struct {
	OK          bool              `json:"ok"`
	Result      []json.RawMessage `json:"result"`
	Description string            `json:"description"`
}

// GetUpdates pulls channel-post updates starting at offset. An offset of zero
// is omitted so the gateway returns from its own low-water mark.
func (c *Client) GetUpdates(ctx context.Context, offset int64, limit int) ([]Envelope, error) {
	if c.token == "" {
		return nil, fmt.Errorf("telegram bot token is required")
	}
	if limit <= 0 {
		limit = 100
	}

	query := url.Values{}
	if offset > 0 {
		query.Set("offset", strconv.FormatInt(offset, 10))
	}
	query.Set("timeout", "0")
	query.Set("limit", strconv.Itoa(limit))
	query.Set("allowed_updates", `["channel_post"]`)

	endpoint := c.baseURL + "/bot" + c.token + "/getUpdates?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode, Body: string(body)}
	}

	var parsed getUpdatesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if !parsed.OK {
		desc := parsed.Description
		if desc == "" {
			desc = "telegram API returned ok=false"
		}
		return nil, fmt.Errorf("%s", desc)
	}

	envelopes := make([]Envelope, 0, len(parsed.Result))
	for _, raw := range parsed.Result {
		var update Update
		if err := json.Unmarshal(raw, &update); err != nil {
			continue
		}
		envelopes = append(envelopes, Envelope{Update: update, Raw: raw})
	}
	return envelopes, nil
}
