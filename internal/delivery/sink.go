// Package delivery routes produced profiling artifacts to the telemetry
// queue or to sequenced local files, according to the active session
// configuration.
package delivery

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/profiled-project/profiled/internal/session"
	"github.com/profiled-project/profiled/internal/telemetry"
)

const (
	// inlineSubmitLimit is the queue's hard ceiling for in-memory payloads.
	// Artifacts at or above it must cross a filesystem boundary.
	inlineSubmitLimit = 1 << 20

	// submissionTag identifies this daemon's artifacts to the telemetry
	// queue.
	submissionTag = "profiled"

	// localBaseName is the base name for locally stored artifacts; the
	// sequence number is appended as ".encoded.<seq>".
	localBaseName = "profile.data"
)

// SerializationError wraps a failure to serialize an artifact.
type SerializationError struct {
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("serialize artifact: %v", e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

// DeliveryError wraps a failure in one of the delivery stages: local store,
// inline submit, temp file, or queue submit.
type DeliveryError struct {
	Stage string
	Err   error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver artifact (%s): %v", e.Stage, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Sink implements session.Sink. The sequence counter for local storage is
// monotonic across sessions within the process lifetime; only the single
// active execution goroutine touches it, so it carries no lock of its own.
type Sink struct {
	queue  telemetry.Queue
	logger zerolog.Logger
	seq    int
}

// NewSink creates a sink delivering telemetry-routed artifacts to queue.
func NewSink(queue telemetry.Queue, logger zerolog.Logger) *Sink {
	return &Sink{
		queue:  queue,
		logger: logger.With().Str("component", "delivery_sink").Logger(),
	}
}

// Deliver serializes the artifact and routes it. Failures are reported to the
// caller for logging but are never fatal to the session.
func (s *Sink) Deliver(a session.Artifact, cfg session.Config) error {
	data, err := a.Marshal()
	if err != nil {
		return &SerializationError{Err: err}
	}

	if !cfg.SendToTelemetry {
		return s.storeLocal(data, cfg)
	}

	if len(data) < inlineSubmitLimit {
		if err := s.queue.SubmitBytes(submissionTag, data); err != nil {
			return &DeliveryError{Stage: "inline submit", Err: err}
		}
		s.logger.Debug().Int("bytes", len(data)).Msg("Artifact submitted inline")
		return nil
	}

	return s.submitViaFile(data, cfg)
}

// storeLocal writes the artifact to the next sequence-numbered file. The
// counter only advances on a successful write.
func (s *Sink) storeLocal(data []byte, cfg session.Config) error {
	if cfg.MaxUnprocessedProfiles > 0 {
		n, err := s.countUnprocessed(cfg.DestinationDirectory)
		if err != nil {
			return &DeliveryError{Stage: "local store", Err: err}
		}
		if n >= int(cfg.MaxUnprocessedProfiles) {
			return &DeliveryError{
				Stage: "local store",
				Err:   fmt.Errorf("%d unprocessed profiles already stored (max %d)", n, cfg.MaxUnprocessedProfiles),
			}
		}
	}

	path := fmt.Sprintf("%s.encoded.%d", filepath.Join(cfg.DestinationDirectory, localBaseName), s.seq)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return &DeliveryError{Stage: "local store", Err: err}
	}
	s.seq++

	s.logger.Debug().Str("path", path).Int("bytes", len(data)).Msg("Artifact stored locally")
	return nil
}

func (s *Sink) countUnprocessed(dir string) (int, error) {
	matches, err := filepath.Glob(filepath.Join(dir, localBaseName+".encoded.*"))
	if err != nil {
		return 0, err
	}
	return len(matches), nil
}

// submitViaFile hands a large artifact to the queue through a private,
// unlinked temp file. The sequence is deliberate: create the file, unlink it
// by path so no other principal can read or tamper with it, write the
// payload, then reopen the still-live handle read-only — the queue rejects
// writable handles.
func (s *Sink) submitViaFile(data []byte, cfg session.Config) error {
	f, err := os.CreateTemp(cfg.DestinationDirectory, "profiled-*.tmp")
	if err != nil {
		return &DeliveryError{Stage: "temp file", Err: err}
	}
	defer func() { _ = f.Close() }()

	if err := os.Remove(f.Name()); err != nil {
		// The submission still works through the open handle, but the file
		// stays addressable by path until close.
		s.logger.Warn().Err(err).Str("path", f.Name()).Msg("Could not unlink artifact temp file")
	}

	if _, err := f.Write(data); err != nil {
		return &DeliveryError{Stage: "temp file", Err: err}
	}

	ro, err := reopenReadOnly(f)
	if err != nil {
		return &DeliveryError{Stage: "temp file", Err: err}
	}
	defer func() { _ = ro.Close() }()

	if err := s.queue.SubmitFile(submissionTag, ro); err != nil {
		return &DeliveryError{Stage: "queue submit", Err: err}
	}

	s.logger.Debug().Int("bytes", len(data)).Msg("Artifact submitted via file")
	return nil
}
