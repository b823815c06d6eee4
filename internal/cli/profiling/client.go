// Package profiling implements the client commands that drive a running
// daemon over its control API.
package profiling

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// DefaultServerURL is where the daemon listens unless overridden.
const DefaultServerURL = "http://127.0.0.1:9720"

// RegisterCommands registers the profiling client commands on root.
func RegisterCommands(root *cobra.Command) {
	root.AddCommand(
		newStartCmd(),
		newStartConfigCmd(),
		newStopCmd(),
		newStatusCmd(),
		newDumpCmd(),
	)
}

// client is a thin wrapper over the daemon's control API.
type client struct {
	baseURL string
	http    *http.Client
}

func newClient(serverURL string) *client {
	return &client{
		baseURL: strings.TrimRight(serverURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// post sends a request and surfaces the server's error text on failure.
func (c *client) post(path string, body io.Reader, contentType string) error {
	resp, err := c.http.Post(c.baseURL+path, contentType, body)
	if err != nil {
		return fmt.Errorf("contact daemon: %w\n\nIs profiled running?", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("daemon returned status %d: %s", resp.StatusCode, readErrorText(resp.Body))
	}
	return nil
}

func (c *client) get(path string) ([]byte, error) {
	resp, err := c.http.Get(c.baseURL + path)
	if err != nil {
		return nil, fmt.Errorf("contact daemon: %w\n\nIs profiled running?", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("daemon returned status %d: %s", resp.StatusCode, readErrorText(resp.Body))
	}
	return io.ReadAll(resp.Body)
}

func (c *client) postJSON(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.post(path, bytes.NewReader(data), "application/json")
}

// readErrorText extracts the error field from a JSON error response, falling
// back to the raw body.
func readErrorText(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, 1024))

	var errResp struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &errResp); err == nil && errResp.Error != "" {
		return errResp.Error
	}
	return strings.TrimSpace(string(data))
}
