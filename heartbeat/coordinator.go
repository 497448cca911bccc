package heartbeat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/progrium/tapeplay/protocol"
)

// HTTPCoordinator reports heartbeats to the coordinator's REST API.
type HTTPCoordinator struct {
	BaseURL string
	Form    protocol.Form
	Client  *http.Client
}

func NewHTTPCoordinator(baseURL string, form protocol.Form) *HTTPCoordinator {
	return &HTTPCoordinator{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		Form:    form,
		Client:  http.DefaultClient,
	}
}

func (c *HTTPCoordinator) client() *http.Client {
	if c.Client == nil {
		return http.DefaultClient
	}
	return c.Client
}

// Report PATCHes hb to the endpoint for the coordinator's form. The response
// body is discarded; an error status is returned only so it can be logged.
func (c *HTTPCoordinator) Report(ctx context.Context, hb protocol.Heartbeat) error {
	body, err := json.Marshal(hb)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, c.BaseURL+c.Form.Path(), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("coordinator: %s", resp.Status)
	}
	return nil
}

// Current fetches the coordinator's current experience. It returns nil when
// nothing is running.
func (c *HTTPCoordinator) Current(ctx context.Context) (*protocol.Current, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/current", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch current: %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte("{}")) {
		return nil, nil
	}

	var cur protocol.Current
	if err := json.Unmarshal(trimmed, &cur); err != nil {
		return nil, err
	}
	return &cur, nil
}
