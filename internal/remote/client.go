package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrBadStatus is returned for non-2xx responses from either endpoint.
var ErrBadStatus = errors.New("unexpected http status")

// secretHeader carries the static API secret on config requests.
const secretHeader = "X-Api-Secret"

// Client talks to the remote config and collection endpoints.
type Client struct {
	hc         *http.Client
	configURL  string
	collectURL string
	secret     string
}

// NewClient builds a Client. If hc is nil a client with a 30 second
// timeout is used (network stalls must not wedge the sync loop).
func NewClient(hc *http.Client, configURL, collectURL, secret string) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		hc:         hc,
		configURL:  configURL,
		collectURL: collectURL,
		secret:     secret,
	}
}

// CheckUpdate posts the device's freshness cursor and decodes the
// configuration envelope.
func (c *Client) CheckUpdate(ctx context.Context, req CheckUpdateRequest) (*CheckUpdateResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode check_update request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.configURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build check_update request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.secret != "" {
		httpReq.Header.Set(secretHeader, c.secret)
	}

	resp, err := c.hc.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: check_update returned %d", ErrBadStatus, resp.StatusCode)
	}
	var out CheckUpdateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode check_update response: %w", err)
	}
	return &out, nil
}

// Collect performs one auxiliary collection call.
func (c *Client) Collect(ctx context.Context) (*CollectResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.collectURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build collect request: %w", err)
	}
	resp, err := c.hc.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: collect returned %d", ErrBadStatus, resp.StatusCode)
	}
	var out CollectResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode collect response: %w", err)
	}
	return &out, nil
}

// drainAndClose keeps the underlying connection reusable.
func drainAndClose(rc io.ReadCloser) {
	io.Copy(io.Discard, rc)
	rc.Close()
}
