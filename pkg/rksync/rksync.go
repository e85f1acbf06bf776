// Package rksync talks to the authoritative remote store. Records live
// under the path scheme {collection}/{recordId}; the local-only synced
// flag is stripped before anything goes on the wire.
package rksync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/wurt83ow/rosterkeeper/pkg/appcontext"
	"github.com/wurt83ow/rosterkeeper/pkg/models"
)

// ErrNetworkUnavailable covers transport failures, timeouts and rejected
// authorization: everything the coordinator answers by queueing.
var ErrNetworkUnavailable = errors.New("network unavailable")

// ErrNotFound reports an absent remote record.
var ErrNotFound = errors.New("remote record not found")

type Client struct {
	serverURL string
	token     string
	client    *http.Client
}

func NewClient(serverURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		serverURL: serverURL,
		token:     token,
		client:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) url(collection, id string) string {
	if id == "" {
		return fmt.Sprintf("%s/%s", c.serverURL, collection)
	}
	return fmt.Sprintf("%s/%s/%s", c.serverURL, collection, id)
}

func (c *Client) do(ctx context.Context, method, url string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewBuffer(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	token := c.token
	if ctxToken, ok := appcontext.GetAccessToken(ctx); ok {
		token = ctxToken
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, ErrNetworkUnavailable
	}
	return resp, nil
}

// Set writes the record at {collection}/{id}. Idempotent: the remote keeps
// exactly the last body written for the path.
func (c *Client) Set(ctx context.Context, collection, id string, rec models.Record) error {
	wire := rec.Clone()
	wire.Synced = false // local bookkeeping, never stored remotely
	body, err := json.Marshal(wire)
	if err != nil {
		return err
	}
	resp, err := c.do(ctx, http.MethodPut, c.url(collection, id), body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("%w: server returned status %s", ErrNetworkUnavailable, resp.Status)
	}
	return nil
}

// Get reads the record at {collection}/{id}.
func (c *Client) Get(ctx context.Context, collection, id string) (models.Record, error) {
	resp, err := c.do(ctx, http.MethodGet, c.url(collection, id), nil)
	if err != nil {
		return models.Record{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return models.Record{}, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return models.Record{}, fmt.Errorf("%w: server returned status %s", ErrNetworkUnavailable, resp.Status)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.Record{}, ErrNetworkUnavailable
	}
	var rec models.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return models.Record{}, fmt.Errorf("decode remote record: %w", err)
	}
	return rec, nil
}

// Remove deletes the record at {collection}/{id}. Removing an absent
// record succeeds, which keeps queued delete replay idempotent.
func (c *Client) Remove(ctx context.Context, collection, id string) error {
	resp, err := c.do(ctx, http.MethodDelete, c.url(collection, id), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("%w: server returned status %s", ErrNetworkUnavailable, resp.Status)
	}
	return nil
}

// GetAllUnderPath fetches a whole collection in one round trip as a map
// from record id to record. This is the only bulk read primitive.
func (c *Client) GetAllUnderPath(ctx context.Context, collection string) (map[string]models.Record, error) {
	resp, err := c.do(ctx, http.MethodGet, c.url(collection, ""), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return map[string]models.Record{}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: server returned status %s", ErrNetworkUnavailable, resp.Status)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ErrNetworkUnavailable
	}
	out := make(map[string]models.Record)
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode remote collection: %w", err)
	}
	return out, nil
}
