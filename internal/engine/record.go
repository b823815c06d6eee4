// Package engine implements the sampling engine: an in-process CPU sampler
// that drives the session loop and produces opaque, serializable artifacts.
package engine

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/google/pprof/profile"
)

// Record is one produced artifact: a pprof profile plus collection metadata.
// Metadata is attached as profile comments at construction time so a single
// Marshal call captures everything.
type Record struct {
	Profile     *profile.Profile
	CollectedAt time.Time
}

// NewRecord wraps a collected profile and stamps collection metadata into it.
// cpuUtilization is attached only when non-negative.
func NewRecord(p *profile.Profile, host string, pid int, collectedAt time.Time, cpuUtilization float64) *Record {
	p.Comments = append(p.Comments,
		fmt.Sprintf("profiled.host=%s", host),
		fmt.Sprintf("profiled.pid=%d", pid),
		fmt.Sprintf("profiled.collected_at=%s", collectedAt.UTC().Format(time.RFC3339)),
	)
	if cpuUtilization >= 0 {
		p.Comments = append(p.Comments, fmt.Sprintf("profiled.cpu_utilization=%.2f", cpuUtilization))
	}
	return &Record{Profile: p, CollectedAt: collectedAt}
}

// Marshal produces the gzipped pprof wire encoding of the record.
func (r *Record) Marshal() ([]byte, error) {
	if r.Profile == nil {
		return nil, errors.New("record has no profile data")
	}
	var buf bytes.Buffer
	if err := r.Profile.Write(&buf); err != nil {
		return nil, fmt.Errorf("write pprof profile: %w", err)
	}
	return buf.Bytes(), nil
}
