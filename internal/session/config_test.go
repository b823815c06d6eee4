package session

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.True(t, cfg.SendToTelemetry)
	assert.EqualValues(t, -1, cfg.ProcessPID)
	assert.Zero(t, cfg.MainLoopIterations)
	assert.NotEmpty(t, cfg.DestinationDirectory)
}

func TestConfigFromParamsOverridesExactlyThreeFields(t *testing.T) {
	base := DefaultConfig()
	cfg := ConfigFromParams(base, 10, 2, 3)

	assert.EqualValues(t, 10, cfg.SampleDurationSecs)
	assert.EqualValues(t, 2, cfg.CollectionIntervalSecs)
	assert.EqualValues(t, 3, cfg.MainLoopIterations)

	// Everything else matches the base exactly.
	expected := base
	expected.SampleDurationSecs = 10
	expected.CollectionIntervalSecs = 2
	expected.MainLoopIterations = 3
	assert.Equal(t, expected, cfg)
}

func TestConfigFromParamsPassesThroughExtremes(t *testing.T) {
	// No range validation in the configuration layer.
	cfg := ConfigFromParams(DefaultConfig(), 0, 0, 0)
	assert.Zero(t, cfg.SampleDurationSecs)
	assert.Zero(t, cfg.CollectionIntervalSecs)
	assert.Zero(t, cfg.MainLoopIterations)
}

func TestDecodeConfigMergesOnlyPresentFields(t *testing.T) {
	base := DefaultConfig()

	cfg, err := DecodeConfig(base, []byte(`{"destination_directory": "/tmp/out"}`))
	require.NoError(t, err)

	expected := base
	expected.DestinationDirectory = "/tmp/out"
	assert.Equal(t, expected, cfg)
}

func TestDecodeConfigPresentZeroValueOverridesDefault(t *testing.T) {
	base := DefaultConfig()
	require.True(t, base.SendToTelemetry)

	// Explicitly setting a field to its zero value is distinguishable from
	// omitting it.
	cfg, err := DecodeConfig(base, []byte(`{"send_to_telemetry": false}`))
	require.NoError(t, err)
	assert.False(t, cfg.SendToTelemetry)

	cfg, err = DecodeConfig(base, []byte(`{}`))
	require.NoError(t, err)
	assert.True(t, cfg.SendToTelemetry)
}

func TestDecodeConfigAllFields(t *testing.T) {
	blob := []byte(`{
		"collection_interval_secs": 30,
		"main_loop_iterations": 4,
		"sample_duration_secs": 7,
		"sampling_frequency_hz": 199,
		"use_fixed_seed": true,
		"destination_directory": "/data/profiles",
		"process_pid": 1234,
		"stack_profile": true,
		"collect_cpu_utilization": true,
		"max_unprocessed_profiles": 2,
		"send_to_telemetry": false
	}`)

	cfg, err := DecodeConfig(DefaultConfig(), blob)
	require.NoError(t, err)

	assert.Equal(t, Config{
		CollectionIntervalSecs: 30,
		MainLoopIterations:     4,
		SampleDurationSecs:     7,
		SamplingFrequencyHz:    199,
		UseFixedSeed:           true,
		DestinationDirectory:   "/data/profiles",
		ProcessPID:             1234,
		StackProfile:           true,
		CollectCPUUtilization:  true,
		MaxUnprocessedProfiles: 2,
		SendToTelemetry:        false,
	}, cfg)
}

func TestDecodeConfigMalformed(t *testing.T) {
	cases := map[string][]byte{
		"not json":       []byte("??not-a-config??"),
		"wrong type":     []byte(`{"sample_duration_secs": "five"}`),
		"truncated":      []byte(`{"sample_duration_secs": 5`),
		"trailing bytes": []byte(`{"sample_duration_secs": 5} extra`),
	}

	for name, blob := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeConfig(DefaultConfig(), blob)
			require.Error(t, err)

			var decodeErr *DecodeError
			assert.True(t, errors.As(err, &decodeErr), "expected DecodeError, got %T", err)
		})
	}
}

func TestDecodeConfigIgnoresUnknownFields(t *testing.T) {
	cfg, err := DecodeConfig(DefaultConfig(), []byte(`{"future_field": 1, "sample_duration_secs": 9}`))
	require.NoError(t, err)
	assert.EqualValues(t, 9, cfg.SampleDurationSecs)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	original := DefaultConfig()
	original.SampleDurationSecs = 42
	original.SendToTelemetry = false
	original.DestinationDirectory = "/somewhere/else"

	blob, err := EncodeConfig(original)
	require.NoError(t, err)

	// The round trip reproduces the configuration regardless of the base it
	// is merged over, because every field is explicitly present.
	other := DefaultConfig()
	other.CollectionIntervalSecs = 999

	decoded, err := DecodeConfig(other, blob)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}
