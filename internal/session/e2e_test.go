package session_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/profiled-project/profiled/internal/delivery"
	"github.com/profiled-project/profiled/internal/session"
	"github.com/profiled-project/profiled/internal/telemetry"
	"github.com/profiled-project/profiled/internal/testutil"
)

// fixedArtifact is an artifact with a fixed payload.
type fixedArtifact []byte

func (a fixedArtifact) Marshal() ([]byte, error) { return a, nil }

// countingEngine emits one fixed artifact per configured iteration.
type countingEngine struct {
	payload []byte
}

func (e *countingEngine) Run(cfg session.Config, tok *session.Token, deliver func(session.Artifact) bool) session.Outcome {
	for i := uint32(0); i < cfg.MainLoopIterations; i++ {
		if tok.ShouldStop() {
			return session.OutcomeInterrupted
		}
		deliver(fixedArtifact(e.payload))
		tok.Sleep(time.Duration(cfg.CollectionIntervalSecs) * time.Second)
	}
	return session.OutcomeCompleted
}

// TestLocalStorageEndToEnd drives the controller with a real sink: three
// sampling rounds routed to local storage must produce exactly three
// sequence-numbered files and leave the controller idle.
func TestLocalStorageEndToEnd(t *testing.T) {
	dir := t.TempDir()
	logger := testutil.NewTestLogger(t)

	base := session.DefaultConfig()
	base.DestinationDirectory = dir
	base.SendToTelemetry = false

	queue := telemetry.NewMemQueue()
	ctrl := session.NewController(
		&countingEngine{payload: []byte("0123456789")}, // 10 bytes each
		delivery.NewSink(queue, logger),
		base,
		logger,
	)

	require.NoError(t, ctrl.StartParams(10, 0, 3))
	require.Eventually(t, func() bool { return !ctrl.Status().Running }, 5*time.Second, 10*time.Millisecond)

	for seq := 0; seq < 3; seq++ {
		path := filepath.Join(dir, fmt.Sprintf("profile.data.encoded.%d", seq))
		data, err := os.ReadFile(path)
		require.NoError(t, err, "missing artifact %d", seq)
		assert.Equal(t, []byte("0123456789"), data)
	}

	// Nothing reached the telemetry queue.
	assert.Empty(t, queue.Entries())

	st := ctrl.Status()
	assert.False(t, st.Running)
	assert.Equal(t, "completed", st.LastOutcome)

	// A second session continues the sequence instead of restarting it.
	require.NoError(t, ctrl.StartParams(10, 0, 2))
	require.Eventually(t, func() bool { return !ctrl.Status().Running }, 5*time.Second, 10*time.Millisecond)

	for seq := 3; seq < 5; seq++ {
		path := filepath.Join(dir, fmt.Sprintf("profile.data.encoded.%d", seq))
		_, err := os.Stat(path)
		require.NoError(t, err, "missing artifact %d from second session", seq)
	}
}

// TestTelemetryRoutingEndToEnd routes small artifacts through the in-memory
// queue's byte-submission entry point.
func TestTelemetryRoutingEndToEnd(t *testing.T) {
	logger := testutil.NewTestLogger(t)

	base := session.DefaultConfig()
	base.DestinationDirectory = t.TempDir()
	require.True(t, base.SendToTelemetry)

	queue := telemetry.NewMemQueue()
	ctrl := session.NewController(
		&countingEngine{payload: []byte("tiny")},
		delivery.NewSink(queue, logger),
		base,
		logger,
	)

	require.NoError(t, ctrl.StartParams(1, 0, 2))
	require.Eventually(t, func() bool { return !ctrl.Status().Running }, 5*time.Second, 10*time.Millisecond)

	entries := queue.Entries()
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, "profiled", e.Tag)
		assert.Equal(t, []byte("tiny"), e.Data)
		assert.False(t, e.FromFile)
	}
}

// TestMalformedBlobEndToEnd verifies a decode failure starts nothing.
func TestMalformedBlobEndToEnd(t *testing.T) {
	logger := testutil.NewTestLogger(t)

	base := session.DefaultConfig()
	base.DestinationDirectory = t.TempDir()

	ctrl := session.NewController(
		&countingEngine{payload: []byte("x")},
		delivery.NewSink(telemetry.NewMemQueue(), logger),
		base,
		logger,
	)

	err := ctrl.StartEncoded([]byte("{not json"))
	require.Error(t, err)
	assert.False(t, ctrl.Status().Running)
}
