// Package telemetry provides the queue used for centralized artifact
// ingestion, with an HTTP-backed implementation and an in-memory one for
// tests and collector-less deployments.
package telemetry

import (
	"io"
	"os"
	"sync"
)

// Queue is the telemetry sink for produced artifacts. Small payloads go
// through SubmitBytes; large ones cross a filesystem boundary and arrive as a
// read-only handle through SubmitFile.
type Queue interface {
	// SubmitBytes submits an in-memory payload under the given tag.
	SubmitBytes(tag string, data []byte) error

	// SubmitFile submits the contents of f under the given tag. f is a
	// read-only handle; the queue must not assume it has a filesystem path.
	SubmitFile(tag string, f *os.File) error
}

// Entry is one submission captured by MemQueue.
type Entry struct {
	Tag      string
	Data     []byte
	FromFile bool
}

// MemQueue buffers submissions in memory. It backs deployments with no
// collector endpoint configured, and doubles as a capture point in tests.
type MemQueue struct {
	mu      sync.Mutex
	entries []Entry
}

// NewMemQueue creates an empty in-memory queue.
func NewMemQueue() *MemQueue {
	return &MemQueue{}
}

// SubmitBytes stores a copy of data.
func (q *MemQueue) SubmitBytes(tag string, data []byte) error {
	cp := make([]byte, len(data))
	copy(cp, data)

	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = append(q.entries, Entry{Tag: tag, Data: cp})
	return nil
}

// SubmitFile reads and stores the full contents of f.
func (q *MemQueue) SubmitFile(tag string, f *os.File) error {
	data, err := io.ReadAll(f)
	if err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = append(q.entries, Entry{Tag: tag, Data: data, FromFile: true})
	return nil
}

// Entries returns a snapshot of everything submitted so far.
func (q *MemQueue) Entries() []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Entry, len(q.entries))
	copy(out, q.entries)
	return out
}
