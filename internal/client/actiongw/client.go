// Package actiongw invokes named external actions (spreadsheet reads, channel
// statistics, calendar listings) through a single authenticated gateway.
package actiongw

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var ErrNoAPIKey = errors.New("gateway api key is not configured")

type Client struct {
	BaseURL     string
	ExecutePath string
	APIKey      string

	// Static identity fallback used when the connected-account lookup
	// yields nothing.
	UserID   string
	EntityID string

	Identities *IdentityCache
	HTTP       *http.Client
}

// APIError carries the gateway's own error body for non-2xx responses.
type APIError struct {
	Status    int
	Message   string
	Slug      string
	RequestID string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "gateway request failed"
	}
	out := msg
	if e.Slug != "" {
		out += "; slug=" + e.Slug
	}
	if e.RequestID != "" {
		out += "; request_id=" + e.RequestID
	}
	return fmt.Sprintf("%s; status=%d", out, e.Status)
}

const slugIdentityRequired = "ActionExecute_ConnectedAccountEntityIdRequired"

// Execute invokes the named action with the given arguments, optionally
// scoped to a connected account, and returns the decoded result payload
// (the gateway's `data` field when present, otherwise the whole body).
func (c *Client) Execute(ctx context.Context, action string, args map[string]any, accountID string) (any, error) {
	if strings.TrimSpace(c.APIKey) == "" {
		return nil, ErrNoAPIKey
	}

	base := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	path := strings.TrimRight(strings.TrimSpace(c.ExecutePath), "/")
	if path == "" {
		path = "/api/v3/tools/execute"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	endpoint := base + path + "/" + url.PathEscape(action)

	body := map[string]any{"arguments": args}
	if accountID != "" {
		body["connected_account_id"] = accountID
	}
	identity := c.resolveIdentity(ctx, accountID)
	userID := firstNonEmpty(identity.UserID, strings.TrimSpace(c.UserID))
	entityID := firstNonEmpty(identity.EntityID, strings.TrimSpace(c.EntityID))
	if userID != "" {
		body["user_id"] = userID
	} else if entityID != "" {
		body["entity_id"] = entityID
	}

	raw, _ := json.Marshal(body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-api-key", c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, parseGatewayError(resp.StatusCode, respBody)
	}

	var parsed any
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, errors.New("gateway response is not valid JSON")
	}

	record, _ := parsed.(map[string]any)
	if record != nil {
		if ok, present := record["successful"].(bool); present && !ok {
			msg := "gateway action execution failed"
			if errVal, ok := record["error"].(string); ok && errVal != "" {
				msg = errVal
			}
			if logID, ok := record["log_id"].(string); ok && logID != "" {
				msg += "; log_id=" + logID
			}
			return nil, errors.New(msg)
		}
		if data, ok := record["data"]; ok && data != nil {
			return data, nil
		}
	}
	return parsed, nil
}

func parseGatewayError(status int, body []byte) error {
	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return &APIError{Status: status, Message: strings.TrimSpace(string(body))}
	}
	errObj, _ := decoded["error"].(map[string]any)
	if errObj == nil {
		errObj = decoded
	}

	apiErr := &APIError{
		Status:    status,
		Message:   stringValue(errObj["message"]),
		Slug:      stringValue(errObj["slug"]),
		RequestID: stringValue(errObj["request_id"]),
	}
	if apiErr.Slug == slugIdentityRequired {
		apiErr.Message = "gateway requires identity context for connected account; configure a user id or entity id"
	}
	return apiErr
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return &http.Client{Timeout: 30 * time.Second}
}

func stringValue(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
