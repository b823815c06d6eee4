package session

import (
	"bytes"
	"encoding/json"
	"errors"
)

// Config is the canonical configuration for one profiling session. Every
// field has an independent default; the two construction paths (simple
// parameter triple, encoded blob) both start from a fresh default and never
// inherit state from a previous session.
type Config struct {
	// CollectionIntervalSecs is the pause between sampling rounds.
	CollectionIntervalSecs uint32

	// MainLoopIterations bounds the number of sampling rounds. Zero means
	// run until stopped.
	MainLoopIterations uint32

	// SampleDurationSecs is how long a single sampling round collects.
	SampleDurationSecs uint32

	// SamplingFrequencyHz is the requested sampling frequency. The engine
	// treats it as advisory.
	SamplingFrequencyHz uint32

	// UseFixedSeed makes the engine's collection jitter deterministic.
	UseFixedSeed bool

	// DestinationDirectory holds locally stored artifacts and the private
	// temp files used for large telemetry submissions.
	DestinationDirectory string

	// ProcessPID selects the sampling target. -1 means the daemon's own
	// process.
	ProcessPID int32

	// StackProfile requests call-stack samples rather than flat counters.
	StackProfile bool

	// CollectCPUUtilization attaches host CPU utilization to each artifact.
	CollectCPUUtilization bool

	// MaxUnprocessedProfiles caps the number of locally stored artifacts
	// awaiting pickup. Zero means no cap.
	MaxUnprocessedProfiles uint32

	// SendToTelemetry routes artifacts to the telemetry queue instead of
	// local storage.
	SendToTelemetry bool
}

// DefaultConfig returns the process defaults for a session.
func DefaultConfig() Config {
	return Config{
		CollectionIntervalSecs: 60,
		MainLoopIterations:     0,
		SampleDurationSecs:     5,
		SamplingFrequencyHz:    99,
		DestinationDirectory:   "/var/lib/profiled/profiles",
		ProcessPID:             -1,
		MaxUnprocessedProfiles: 10,
		SendToTelemetry:        true,
	}
}

// ConfigFromParams returns base with exactly the duration, interval and
// iteration fields overwritten. Values are passed through unvalidated; range
// checking is the engine's concern, not the controller's.
func ConfigFromParams(base Config, durationSecs, intervalSecs, iterations uint32) Config {
	cfg := base
	cfg.SampleDurationSecs = durationSecs
	cfg.CollectionIntervalSecs = intervalSecs
	cfg.MainLoopIterations = iterations
	return cfg
}

// configWire is the wire form of Config. Pointer fields distinguish
// explicitly-set values from absent ones, so a blob that sets a field to its
// zero value still overrides the default.
type configWire struct {
	CollectionIntervalSecs *uint32 `json:"collection_interval_secs,omitempty"`
	MainLoopIterations     *uint32 `json:"main_loop_iterations,omitempty"`
	SampleDurationSecs     *uint32 `json:"sample_duration_secs,omitempty"`
	SamplingFrequencyHz    *uint32 `json:"sampling_frequency_hz,omitempty"`
	UseFixedSeed           *bool   `json:"use_fixed_seed,omitempty"`
	DestinationDirectory   *string `json:"destination_directory,omitempty"`
	ProcessPID             *int32  `json:"process_pid,omitempty"`
	StackProfile           *bool   `json:"stack_profile,omitempty"`
	CollectCPUUtilization  *bool   `json:"collect_cpu_utilization,omitempty"`
	MaxUnprocessedProfiles *uint32 `json:"max_unprocessed_profiles,omitempty"`
	SendToTelemetry        *bool   `json:"send_to_telemetry,omitempty"`
}

// DecodeConfig decodes an encoded configuration blob and merges every
// explicitly-present field over base. Fields absent from the blob keep their
// defaults. Unknown fields are ignored, matching the tolerant-reader stance
// of the wire format.
func DecodeConfig(base Config, blob []byte) (Config, error) {
	var w configWire
	dec := json.NewDecoder(bytes.NewReader(blob))
	if err := dec.Decode(&w); err != nil {
		return Config{}, &DecodeError{Err: err}
	}
	if dec.More() {
		return Config{}, &DecodeError{Err: errors.New("trailing data after configuration object")}
	}

	cfg := base
	if w.CollectionIntervalSecs != nil {
		cfg.CollectionIntervalSecs = *w.CollectionIntervalSecs
	}
	if w.MainLoopIterations != nil {
		cfg.MainLoopIterations = *w.MainLoopIterations
	}
	if w.SampleDurationSecs != nil {
		cfg.SampleDurationSecs = *w.SampleDurationSecs
	}
	if w.SamplingFrequencyHz != nil {
		cfg.SamplingFrequencyHz = *w.SamplingFrequencyHz
	}
	if w.UseFixedSeed != nil {
		cfg.UseFixedSeed = *w.UseFixedSeed
	}
	if w.DestinationDirectory != nil {
		cfg.DestinationDirectory = *w.DestinationDirectory
	}
	if w.ProcessPID != nil {
		cfg.ProcessPID = *w.ProcessPID
	}
	if w.StackProfile != nil {
		cfg.StackProfile = *w.StackProfile
	}
	if w.CollectCPUUtilization != nil {
		cfg.CollectCPUUtilization = *w.CollectCPUUtilization
	}
	if w.MaxUnprocessedProfiles != nil {
		cfg.MaxUnprocessedProfiles = *w.MaxUnprocessedProfiles
	}
	if w.SendToTelemetry != nil {
		cfg.SendToTelemetry = *w.SendToTelemetry
	}
	return cfg, nil
}

// EncodeConfig encodes cfg with every field explicitly present, so that
// DecodeConfig(base, EncodeConfig(cfg)) reproduces cfg regardless of base.
func EncodeConfig(cfg Config) ([]byte, error) {
	w := configWire{
		CollectionIntervalSecs: &cfg.CollectionIntervalSecs,
		MainLoopIterations:     &cfg.MainLoopIterations,
		SampleDurationSecs:     &cfg.SampleDurationSecs,
		SamplingFrequencyHz:    &cfg.SamplingFrequencyHz,
		UseFixedSeed:           &cfg.UseFixedSeed,
		DestinationDirectory:   &cfg.DestinationDirectory,
		ProcessPID:             &cfg.ProcessPID,
		StackProfile:           &cfg.StackProfile,
		CollectCPUUtilization:  &cfg.CollectCPUUtilization,
		MaxUnprocessedProfiles: &cfg.MaxUnprocessedProfiles,
		SendToTelemetry:        &cfg.SendToTelemetry,
	}
	return json.Marshal(w)
}
