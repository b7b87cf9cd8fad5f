package remote

import (
	"context"
	"encoding/json"
	"net/http"
)

// Account wraps the calls a player account makes on its own behalf
type Account struct {
	client *Client
	id     string
}

// Account returns a handle signing as the account id
func (c *Client) Account(id string) *Account {
	return &Account{client: c, id: id}
}

func (a *Account) auth() Auth {
	return Auth{Scheme: SchemeAccount, ID: a.id, SigID: a.id, Secret: a.client.opts.Auth.Secret}
}

// Event records an action with optional data and context
func (a *Account) Event(ctx context.Context, action string, data, evCtx map[string]any) (json.RawMessage, error) {
	payload := make(map[string]any, len(data)+1)
	for k, v := range data {
		payload[k] = v
	}
	payload["action"] = action
	if evCtx == nil {
		evCtx = map[string]any{}
	}
	body := map[string]any{"event": map[string]any{"data": payload, "ctx": evCtx}}
	return a.client.do(ctx, http.MethodPost, "/events", nil, body, a.auth())
}

// Like records a like of objectID
func (a *Account) Like(ctx context.Context, objectID string, evCtx map[string]any) (json.RawMessage, error) {
	return a.Event(ctx, "like", map[string]any{"object_id": objectID}, evCtx)
}

// Me fetches the account's own profile
func (a *Account) Me(ctx context.Context) (json.RawMessage, error) {
	return a.client.do(ctx, http.MethodGet, "/me", nil, nil, a.auth())
}

// UpdatePlayer updates the account's player attributes
func (a *Account) UpdatePlayer(ctx context.Context, attrs map[string]any) (json.RawMessage, error) {
	return a.client.do(ctx, http.MethodPut, "/player", nil, attrs, a.auth())
}
