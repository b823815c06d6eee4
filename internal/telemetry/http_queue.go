package telemetry

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const defaultSubmitTimeout = 30 * time.Second

// HTTPQueue submits artifacts to a collector endpoint over HTTP. Payloads are
// POSTed as application/octet-stream with the tag carried as a query
// parameter.
type HTTPQueue struct {
	endpoint string
	client   *http.Client
	logger   zerolog.Logger
}

// NewHTTPQueue creates a queue posting to endpoint (e.g.
// "http://collector:9815"). A zero timeout falls back to a 30s default.
func NewHTTPQueue(endpoint string, timeout time.Duration, logger zerolog.Logger) *HTTPQueue {
	if timeout <= 0 {
		timeout = defaultSubmitTimeout
	}
	return &HTTPQueue{
		endpoint: strings.TrimRight(endpoint, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "telemetry_queue").Logger(),
	}
}

// SubmitBytes submits an in-memory payload.
func (q *HTTPQueue) SubmitBytes(tag string, data []byte) error {
	return q.submit(tag, bytes.NewReader(data), int64(len(data)))
}

// SubmitFile streams the contents of f. The handle's current offset is the
// start of the payload.
func (q *HTTPQueue) SubmitFile(tag string, f *os.File) error {
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat artifact file: %w", err)
	}
	return q.submit(tag, f, info.Size())
}

func (q *HTTPQueue) submit(tag string, body io.Reader, size int64) error {
	u := fmt.Sprintf("%s/v1/artifacts?tag=%s", q.endpoint, url.QueryEscape(tag))

	req, err := http.NewRequest(http.MethodPost, u, body)
	if err != nil {
		return fmt.Errorf("build submit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.ContentLength = size

	resp, err := q.client.Do(req)
	if err != nil {
		return fmt.Errorf("submit artifact: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("collector returned status %d: %s", resp.StatusCode, string(msg))
	}

	q.logger.Debug().Str("tag", tag).Int64("bytes", size).Msg("Artifact submitted")
	return nil
}
