// client/client.go
package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"committer/internal/api"
	"committer/internal/errors"
	"committer/internal/journal"
	"committer/internal/tree"
	"committer/internal/validation"
)

// Client talks to a running committer server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: time.Second * 30,
		},
	}
}

func (c *Client) Status(ctx context.Context) (tree.FileGroup, error) {
	var group tree.FileGroup
	err := c.do(ctx, http.MethodGet, "/api/status", nil, &group)
	return group, err
}

func (c *Client) Add(ctx context.Context, paths []string) error {
	return c.do(ctx, http.MethodPost, "/api/add", validation.PathsRequest{Paths: paths}, nil)
}

func (c *Client) Commit(ctx context.Context, paths []string, message string) (string, error) {
	req := validation.CommitRequest{
		PathsRequest: validation.PathsRequest{Paths: paths},
		Message:      message,
	}
	var resp api.CommitResponse
	if err := c.do(ctx, http.MethodPost, "/api/commit", req, &resp); err != nil {
		return "", err
	}
	return resp.Hash, nil
}

func (c *Client) Revert(ctx context.Context, paths []string) error {
	return c.do(ctx, http.MethodPost, "/api/revert", validation.PathsRequest{Paths: paths}, nil)
}

func (c *Client) Push(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/push", nil, nil)
}

func (c *Client) Pull(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/pull", nil, nil)
}

func (c *Client) Journal(ctx context.Context, limit int) ([]journal.Entry, error) {
	var entries []journal.Entry
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/journal?limit=%d", limit), nil, &entries)
	return entries, err
}

// Events subscribes to vault change notifications. The channel closes
// when ctx is done or the server ends the stream.
func (c *Client) Events(ctx context.Context) (<-chan api.ChangeEvent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/events", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	// the stream outlives the request timeout of httpClient
	stream := &http.Client{Transport: c.httpClient.Transport}
	resp, err := stream.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status: %s", resp.Status)
	}

	out := make(chan api.ChangeEvent)
	go func() {
		defer close(out)
		defer resp.Body.Close()
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			data, ok := strings.CutPrefix(scanner.Text(), "data: ")
			if !ok {
				continue
			}
			var e api.ChangeEvent
			if err := json.Unmarshal([]byte(data), &e); err != nil {
				continue
			}
			select {
			case out <- e:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// do sends body as JSON and decodes the response into out. Error
// responses come back as *errors.Error when the server sent one.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var appErr errors.Error
		if err := json.NewDecoder(resp.Body).Decode(&appErr); err == nil && appErr.Type != "" {
			appErr.Code = resp.StatusCode
			return &appErr
		}
		return fmt.Errorf("unexpected status: %s", resp.Status)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
