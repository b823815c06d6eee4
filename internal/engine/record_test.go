package engine

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/pprof/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func emptyProfile() *profile.Profile {
	return &profile.Profile{
		PeriodType: &profile.ValueType{Type: "cpu", Unit: "nanoseconds"},
		Period:     10 * 1000 * 1000,
		SampleType: []*profile.ValueType{
			{Type: "samples", Unit: "count"},
			{Type: "cpu", Unit: "nanoseconds"},
		},
	}
}

func TestNewRecordAttachesMetadata(t *testing.T) {
	at := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	rec := NewRecord(emptyProfile(), "host-1", 4242, at, 37.5)

	assert.Contains(t, rec.Profile.Comments, "profiled.host=host-1")
	assert.Contains(t, rec.Profile.Comments, "profiled.pid=4242")
	assert.Contains(t, rec.Profile.Comments, "profiled.collected_at=2026-08-26T12:00:00Z")
	assert.Contains(t, rec.Profile.Comments, "profiled.cpu_utilization=37.50")
}

func TestNewRecordSkipsNegativeUtilization(t *testing.T) {
	rec := NewRecord(emptyProfile(), "h", 1, time.Now(), -1)
	for _, c := range rec.Profile.Comments {
		assert.NotContains(t, c, "cpu_utilization")
	}
}

func TestRecordMarshalRoundTrip(t *testing.T) {
	rec := NewRecord(emptyProfile(), "host-1", 1, time.Now(), -1)

	data, err := rec.Marshal()
	require.NoError(t, err)
	require.NotEmpty(t, data)

	parsed, err := profile.Parse(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Contains(t, parsed.Comments, "profiled.host=host-1")
}

func TestRecordMarshalWithoutProfileFails(t *testing.T) {
	rec := &Record{}
	_, err := rec.Marshal()
	require.Error(t, err)
}
