package engine

import (
	"bytes"
	"fmt"
	"math/rand"
	"os"
	"runtime/pprof"
	"time"

	"github.com/google/pprof/profile"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v4/cpu"

	"github.com/profiled-project/profiled/internal/session"
)

// fixedJitterSeed is the deterministic seed used when a session requests
// reproducible scheduling.
const fixedJitterSeed = 1

// CPUSampler implements session.Engine by collecting CPU profiles of the
// daemon's own process with the runtime profiler. It treats the configured
// sampling frequency as advisory: the runtime samples at its fixed rate, and
// the requested value is recorded in the artifact metadata.
type CPUSampler struct {
	logger zerolog.Logger
	host   string
}

// NewCPUSampler creates a sampler.
func NewCPUSampler(logger zerolog.Logger) *CPUSampler {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return &CPUSampler{
		logger: logger.With().Str("component", "cpu_sampler").Logger(),
		host:   host,
	}
}

// Run executes the session loop: collect one profile, hand it to deliver,
// sleep the collection interval, repeat. It checks the token before and after
// every round, so a stop request is observed within one Sleep wake-up.
func (s *CPUSampler) Run(cfg session.Config, tok *session.Token, deliver func(session.Artifact) bool) session.Outcome {
	if cfg.ProcessPID >= 0 && cfg.ProcessPID != int32(os.Getpid()) {
		s.logger.Error().
			Int32("requested_pid", cfg.ProcessPID).
			Int("own_pid", os.Getpid()).
			Msg("Out-of-process sampling is not supported by the in-process sampler")
		return session.OutcomeFailed
	}

	// Stagger the first round so a fleet of daemons started together does
	// not sample in lockstep. A fixed seed keeps scheduling reproducible.
	if jitter := startupJitter(cfg); jitter > 0 {
		s.logger.Debug().Dur("jitter", jitter).Msg("Delaying first sampling round")
		tok.Sleep(jitter)
	}

	for round := uint32(0); cfg.MainLoopIterations == 0 || round < cfg.MainLoopIterations; round++ {
		if tok.ShouldStop() {
			return session.OutcomeInterrupted
		}

		rec, err := s.collectOnce(cfg, tok)
		switch {
		case err != nil:
			// The runtime refuses concurrent CPU profiling; nothing will
			// succeed until the conflicting profiler stops, so give up.
			s.logger.Error().Err(err).Uint32("round", round).Msg("Sampling round failed")
			return session.OutcomeFailed
		default:
			if !deliver(rec) {
				s.logger.Debug().Uint32("round", round).Msg("Round artifact was not delivered")
			}
		}

		if tok.ShouldStop() {
			return session.OutcomeInterrupted
		}
		tok.Sleep(time.Duration(cfg.CollectionIntervalSecs) * time.Second)
	}

	return session.OutcomeCompleted
}

// collectOnce runs the runtime CPU profiler for the configured sample
// duration. The token paces the collection window, so a stop request ends the
// window early; the partial profile is still returned for delivery.
func (s *CPUSampler) collectOnce(cfg session.Config, tok *session.Token) (*Record, error) {
	var buf bytes.Buffer
	if err := pprof.StartCPUProfile(&buf); err != nil {
		return nil, fmt.Errorf("start cpu profile: %w", err)
	}

	start := time.Now()
	tok.Sleep(time.Duration(cfg.SampleDurationSecs) * time.Second)
	pprof.StopCPUProfile()

	p, err := profile.Parse(&buf)
	if err != nil {
		return nil, fmt.Errorf("parse collected profile: %w", err)
	}

	utilization := -1.0
	if cfg.CollectCPUUtilization {
		if percentages, err := cpu.Percent(0, false); err == nil && len(percentages) > 0 {
			utilization = percentages[0]
		} else if err != nil {
			s.logger.Warn().Err(err).Msg("Could not read CPU utilization")
		}
	}

	if cfg.SamplingFrequencyHz > 0 {
		p.Comments = append(p.Comments, fmt.Sprintf("profiled.requested_frequency_hz=%d", cfg.SamplingFrequencyHz))
	}

	return NewRecord(p, s.host, os.Getpid(), start, utilization), nil
}

// startupJitter returns the delay before the first sampling round: a random
// offset within one collection interval, deterministic under UseFixedSeed.
func startupJitter(cfg session.Config) time.Duration {
	if cfg.CollectionIntervalSecs == 0 {
		return 0
	}

	seed := time.Now().UnixNano()
	if cfg.UseFixedSeed {
		seed = fixedJitterSeed
	}
	rng := rand.New(rand.NewSource(seed))
	return time.Duration(rng.Int63n(int64(cfg.CollectionIntervalSecs))) * time.Second
}
