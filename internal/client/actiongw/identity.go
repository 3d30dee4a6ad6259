package actiongw

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
)

// Identity is the user/entity context the gateway may require for a
// connected account.
type Identity struct {
	UserID   string
	EntityID string
}

// IdentityCache holds resolved identities keyed by connected-account id. The
// key space is bounded by the number of connected accounts, and an entry is
// written at most once per key, so concurrent read/insert is safe under one
// mutex. Constructed explicitly and passed into the client for test injection.
type IdentityCache struct {
	mu      sync.RWMutex
	entries map[string]Identity
}

func NewIdentityCache() *IdentityCache {
	return &IdentityCache{entries: map[string]Identity{}}
}

func (c *IdentityCache) Get(accountID string) (Identity, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.entries[accountID]
	return id, ok
}

func (c *IdentityCache) Put(accountID string, id Identity) {
	c.mu.Lock()
	c.entries[accountID] = id
	c.mu.Unlock()
}

// resolveIdentity resolves the identity context for a connected account:
// cache first, then a lookup call against the gateway. Lookup failures
// degrade silently to an empty identity; they never abort the action call.
func (c *Client) resolveIdentity(ctx context.Context, accountID string) Identity {
	if accountID == "" || strings.TrimSpace(c.APIKey) == "" {
		return Identity{}
	}
	if c.Identities != nil {
		if cached, ok := c.Identities.Get(accountID); ok {
			return cached
		}
	}

	base := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/api/v3/connected_accounts/"+accountID, nil)
	if err != nil {
		return Identity{}
	}
	req.Header.Set("x-api-key", c.APIKey)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return Identity{}
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Identity{}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Identity{}
	}

	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return Identity{}
	}
	data, _ := decoded["data"].(map[string]any)

	resolved := Identity{
		UserID:   firstNonEmpty(identityField(decoded, "user_id", "userId"), identityField(data, "user_id", "userId")),
		EntityID: firstNonEmpty(identityField(decoded, "entity_id", "entityId"), identityField(data, "entity_id", "entityId")),
	}
	if c.Identities != nil {
		c.Identities.Put(accountID, resolved)
	}
	return resolved
}

func identityField(obj map[string]any, keys ...string) string {
	if obj == nil {
		return ""
	}
	for _, key := range keys {
		if s, ok := obj[key].(string); ok {
			if trimmed := strings.TrimSpace(s); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}
