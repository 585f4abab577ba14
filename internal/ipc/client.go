package ipc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/cordx56/autosave/internal/config"
)

// Client talks to a running daemon over its Unix domain control socket.
type Client struct {
	httpClient *http.Client
}

// NewClient returns a client dialing sockPath for every request.
func NewClient(sockPath string) *Client {
	return &Client{
		httpClient: &http.Client{
			Transport: &http.Transport{
				DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
					d := net.Dialer{Timeout: 2 * time.Second}
					return d.DialContext(ctx, "unix", sockPath)
				},
			},
			Timeout: 5 * time.Second,
		},
	}
}

// ListWatched returns the watched repository paths.
func (c *Client) ListWatched(ctx context.Context) ([]string, error) {
	var resp watchListResponse
	if err := c.doJSON(ctx, http.MethodGet, "/watch", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Paths, nil
}

// AddWatch registers path with cfg, merging with any existing configs for
// that path.
func (c *Client) AddWatch(ctx context.Context, path string, cfg config.Config) error {
	rawCfg, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	req := watchMutationRequest{Action: "add", Path: path, Config: rawCfg}
	return c.doJSON(ctx, http.MethodPost, "/watch", req, nil)
}

// RemoveWatch unregisters path.
func (c *Client) RemoveWatch(ctx context.Context, path string) error {
	req := watchMutationRequest{Action: "remove", Path: path}
	return c.doJSON(ctx, http.MethodPost, "/watch", req, nil)
}

// Kill asks the daemon to terminate.
func (c *Client) Kill(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "/kill", nil, nil)
}

// Ping checks whether a daemon is listening and responsive.
func (c *Client) Ping(ctx context.Context) bool {
	_, err := c.ListWatched(ctx)
	return err == nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reqBody bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = *bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, "http://unix"+path, &reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("contacting daemon: %w", err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decoding daemon response: %w", err)
	}
	if env.Result != "success" {
		return &errNonSuccess{Message: env.Message}
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decoding daemon data: %w", err)
		}
	}
	return nil
}
