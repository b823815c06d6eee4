package session

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Artifact is one unit of sampling output. The controller never interprets
// its contents, only the fact that serialization can fail.
type Artifact interface {
	// Marshal serializes the artifact to its wire encoding.
	Marshal() ([]byte, error)
}

// Outcome is the final result of a session execution.
type Outcome int

const (
	// OutcomeCompleted means the engine exhausted its iterations.
	OutcomeCompleted Outcome = iota
	// OutcomeInterrupted means the engine observed a stop request.
	OutcomeInterrupted
	// OutcomeFailed means the engine hit a fatal condition and gave up.
	// The session still transitions to idle normally.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeInterrupted:
		return "interrupted"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Engine runs the sampling loop for one session. It must pass every produced
// artifact to deliver, pace itself with tok.Sleep, and honor tok.ShouldStop
// between rounds. deliver reports per-artifact delivery success; the engine
// may log it but must keep going either way.
type Engine interface {
	Run(cfg Config, tok *Token, deliver func(Artifact) bool) Outcome
}

// Sink hands a produced artifact off to telemetry or local storage according
// to the active configuration.
type Sink interface {
	Deliver(a Artifact, cfg Config) error
}

// Controller owns the single mutable session state and enforces the
// one-session-at-a-time invariant. All state transitions happen under its
// lock; the execution goroutine runs lock-free and re-acquires the lock only
// to clear the running flag as its last act.
type Controller struct {
	engine Engine
	sink   Sink
	base   Config
	logger zerolog.Logger

	mu          sync.Mutex
	running     bool
	cfg         Config
	token       *Token
	sessionID   string
	startedAt   time.Time
	lastOutcome string
}

// NewController creates a controller. base supplies the process defaults
// every new session configuration starts from.
func NewController(engine Engine, sink Sink, base Config, logger zerolog.Logger) *Controller {
	return &Controller{
		engine: engine,
		sink:   sink,
		base:   base,
		cfg:    base,
		token:  NewToken(),
		logger: logger.With().Str("component", "session_controller").Logger(),
	}
}

// StartParams starts a session from the simple parameter triple: everything
// else takes process defaults. Values are passed through unvalidated.
func (c *Controller) StartParams(durationSecs, intervalSecs, iterations uint32) error {
	return c.start(ConfigFromParams(c.base, durationSecs, intervalSecs, iterations))
}

// StartEncoded starts a session from an encoded configuration blob. A decode
// failure aborts before any state mutation, leaving the controller idle.
func (c *Controller) StartEncoded(blob []byte) error {
	cfg, err := DecodeConfig(c.base, blob)
	if err != nil {
		return err
	}
	return c.start(cfg)
}

func (c *Controller) start(cfg Config) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return ErrAlreadyRunning
	}

	// Replacing the configuration and resetting the token are inseparable:
	// a session must never observe a stale stop flag or a prior session's
	// fields.
	c.running = true
	c.token.Reset()
	c.cfg = cfg
	c.sessionID = uuid.NewString()
	c.startedAt = time.Now()

	go c.run(cfg, c.token, c.sessionID)

	c.logger.Info().
		Str("session_id", c.sessionID).
		Uint32("duration_secs", cfg.SampleDurationSecs).
		Uint32("interval_secs", cfg.CollectionIntervalSecs).
		Uint32("iterations", cfg.MainLoopIterations).
		Bool("send_to_telemetry", cfg.SendToTelemetry).
		Msg("Profiling session started")

	return nil
}

// run is the detached session execution. Per-artifact failures are logged and
// recovered here; they never reach the caller of start, which has already
// returned.
func (c *Controller) run(cfg Config, tok *Token, sessionID string) {
	logger := c.logger.With().Str("session_id", sessionID).Logger()

	delivered := 0
	failed := 0
	outcome := c.engine.Run(cfg, tok, func(a Artifact) bool {
		if err := c.sink.Deliver(a, cfg); err != nil {
			failed++
			logger.Warn().Err(err).Msg("Artifact delivery failed")
			return false
		}
		delivered++
		return true
	})

	c.mu.Lock()
	c.running = false
	c.lastOutcome = outcome.String()
	c.mu.Unlock()

	logger.Info().
		Stringer("outcome", outcome).
		Int("delivered", delivered).
		Int("failed", failed).
		Msg("Profiling session finished")
}

// Stop requests cooperative cancellation of the running session. The session
// transitions to idle only when its execution observes the stop and returns.
func (c *Controller) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return ErrNotRunning
	}

	c.token.RequestStop()
	c.logger.Info().Str("session_id", c.sessionID).Msg("Profiling stop requested")
	return nil
}

// Status is a point-in-time snapshot of the controller state. Diagnostic
// only; reading it never mutates state.
type Status struct {
	Running     bool      `json:"running"`
	SessionID   string    `json:"session_id,omitempty"`
	StartedAt   time.Time `json:"started_at,omitzero"`
	LastOutcome string    `json:"last_outcome,omitempty"`
	Config      Config    `json:"config"`
}

// Status returns a snapshot of the current session state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := Status{
		Running:     c.running,
		LastOutcome: c.lastOutcome,
		Config:      c.cfg,
	}
	if c.running {
		st.SessionID = c.sessionID
		st.StartedAt = c.startedAt
	}
	return st
}

// Dump renders a human-readable description of the controller state.
func (c *Controller) Dump() string {
	st := c.Status()

	var b strings.Builder
	if st.Running {
		fmt.Fprintf(&b, "state: running\nsession: %s\nstarted: %s\n",
			st.SessionID, st.StartedAt.Format(time.RFC3339))
	} else {
		b.WriteString("state: idle\n")
	}
	if st.LastOutcome != "" {
		fmt.Fprintf(&b, "last outcome: %s\n", st.LastOutcome)
	}
	fmt.Fprintf(&b, "interval: %ds\nduration: %ds\niterations: %d\nsend to telemetry: %t\ndestination: %s\n",
		st.Config.CollectionIntervalSecs,
		st.Config.SampleDurationSecs,
		st.Config.MainLoopIterations,
		st.Config.SendToTelemetry,
		st.Config.DestinationDirectory)
	return b.String()
}
