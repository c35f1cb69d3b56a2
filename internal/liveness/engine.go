package liveness

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
)

// markRetryInterval throttles ledger retries after a failed Mark.
const markRetryInterval = 5 * time.Second

// FaceResult is the engine's verdict for one detection in one frame.
type FaceResult struct {
	Identity string
	Distance float64
	Box      Box
	// Skipped is set when the detection could not be evaluated this frame
	// (empty crop). Nothing else in the result is meaningful then.
	Skipped bool

	Label   Label
	Texture float64
	Depth   *float64

	Blink     bool
	HeadMoved bool
	Direction Direction

	Outcome            ChallengeOutcome
	Challenge          *Challenge
	ChallengeRemaining time.Duration
	ChallengeFailed    bool
	ChallengePassed    bool

	// Marked is set on the frame attendance was recorded for the identity.
	Marked     bool
	MarkResult MarkResult
}

// FrameResult is the engine output for one frame.
type FrameResult struct {
	Time          time.Time
	Faces         []FaceResult
	Landmarks     bool
	EAR           float64
	Blink         bool
	DepthDegraded bool
}

// Engine runs the per-frame liveness fusion for every identity in view.
// All state is guarded by one mutex; ProcessFrame runs a whole frame under it.
// The ledger sees at most one successful Mark per identity per run. A Mark that
// returns an error is retried on a later REAL frame, so a failing ledger can be
// called more than once for the same identity.
type Engine struct {
	mu sync.Mutex

	cfg        Config
	sessions   *SessionStore
	behavior   *BehaviorDetector
	challenges *ChallengeManager
	fusion     FusionDecider

	ledger     Ledger
	marked     map[string]bool
	markFailed map[string]time.Time

	runID  uuid.UUID
	logger *slog.Logger
	rng    *rand.Rand
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the structured logger (default slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithRand sets the random source used to pick challenge types.
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) { e.rng = r }
}

// WithRunID overrides the generated run identifier.
func WithRunID(id uuid.UUID) Option {
	return func(e *Engine) { e.runID = id }
}

// NewEngine validates cfg and returns an engine that records attendance in ledger.
func NewEngine(cfg Config, ledger Ledger, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid liveness config: %w", err)
	}
	if ledger == nil {
		return nil, fmt.Errorf("attendance ledger is required")
	}

	e := &Engine{
		cfg:        cfg,
		sessions:   NewSessionStore(cfg.TextureWindow, cfg.DepthWindow),
		behavior:   NewBehaviorDetector(cfg),
		fusion:     NewFusionDecider(cfg),
		ledger:     ledger,
		marked:     make(map[string]bool),
		markFailed: make(map[string]time.Time),
		runID:      uuid.New(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}
	e.challenges = NewChallengeManager(cfg.ChallengeInterval, cfg.ChallengeTimeout, e.rng)
	e.logger = e.logger.With("run_id", e.runID.String())
	return e, nil
}

// RunID identifies this engine instance in logs and ledger rows.
func (e *Engine) RunID() uuid.UUID { return e.runID }

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.cfg }

// ProcessFrame evaluates every detection of one frame captured at now.
func (e *Engine) ProcessFrame(ctx context.Context, now time.Time, dets []Detection, sig SignalProvider) FrameResult {
	start := time.Now()
	defer func() { FrameDuration.Observe(time.Since(start).Seconds()) }()

	e.mu.Lock()
	defer e.mu.Unlock()

	FramesTotal.Inc()

	res := FrameResult{
		Time:          now,
		Faces:         make([]FaceResult, 0, len(dets)),
		DepthDegraded: !e.cfg.DepthEnabled,
	}

	lm, ok := sig.Landmarks()
	if !ok {
		lm = nil
	}
	res.Landmarks = lm != nil
	res.Blink, res.EAR = e.behavior.DetectBlink(lm, now)

	for _, det := range dets {
		res.Faces = append(res.Faces, e.processFace(ctx, now, det, lm, res.Blink, sig))
	}
	return res
}

func (e *Engine) processFace(ctx context.Context, now time.Time, det Detection, lm *LandmarkFrame, blink bool, sig SignalProvider) FaceResult {
	sess := e.sessions.Get(det.Identity, now)
	fr := FaceResult{
		Identity: det.Identity,
		Distance: det.Distance,
		Box:      det.Crop.Box,
		Label:    sess.Label,
	}

	if det.Crop.Box.Empty() {
		FacesTotal.WithLabelValues("skipped").Inc()
		e.logger.Debug("skipping empty face crop", "identity", det.Identity, "index", det.Crop.Index)
		fr.Skipped = true
		return fr
	}
	FacesTotal.WithLabelValues("processed").Inc()

	score := sig.TextureScore(det.Crop)
	sess.Texture.Push(score)
	fr.Texture = sess.Texture.Mean(score)

	if e.cfg.DepthEnabled {
		if dv, ok := sig.DepthVariation(det.Crop); ok {
			sess.Depth.Push(dv)
			mean := sess.Depth.Mean(dv)
			fr.Depth = &mean
		}
	}

	dir, nose := e.behavior.DetectTurn(lm, sess.NoseX)
	sess.NoseX = nose
	beh := Behavior{Blink: blink, HeadMoved: dir != DirectionNone, Direction: dir}
	fr.Blink, fr.HeadMoved, fr.Direction = beh.Blink, beh.HeadMoved, beh.Direction

	fr.Outcome = e.challenges.Step(sess, now, beh)
	observeChallenge(fr.Outcome)
	e.logChallenge(sess, fr.Outcome, now)

	label := e.fusion.Decide(FusionInput{
		Texture:      fr.Texture,
		Depth:        fr.Depth,
		BehavioralOK: sess.ChallengePassed || beh.Blink || beh.HeadMoved,
		Previous:     sess.Label,
	})
	if det.Identity == Unknown && label == LabelReal {
		label = sess.Label
	}
	if label != sess.Label {
		e.logger.Info("verdict changed",
			"identity", det.Identity,
			"from", string(sess.Label),
			"to", string(label),
			"texture", fr.Texture,
		)
	}
	sess.Label = label
	fr.Label = label
	VerdictsTotal.WithLabelValues(string(label)).Inc()

	if label == LabelReal && det.Identity != Unknown {
		fr.Marked, fr.MarkResult = e.markAttendance(ctx, det.Identity, now)
	}

	fr.ChallengePassed = sess.ChallengePassed
	if sess.Challenge != nil {
		ch := *sess.Challenge
		fr.Challenge = &ch
		fr.ChallengeRemaining = ch.Remaining(now, e.challenges.Timeout())
	} else if !sess.ChallengePassed && !sess.LastExpiredAt.IsZero() &&
		now.Sub(sess.LastExpiredAt) < e.challenges.Timeout() {
		fr.ChallengeFailed = true
	}
	return fr
}

// markAttendance calls the ledger at most once per identity per run. A failed
// call is retried on a later REAL frame after markRetryInterval.
func (e *Engine) markAttendance(ctx context.Context, name string, now time.Time) (bool, MarkResult) {
	if e.marked[name] {
		return false, Marked
	}
	if at, ok := e.markFailed[name]; ok && now.Sub(at) < markRetryInterval {
		return false, Marked
	}

	result, err := e.ledger.Mark(ctx, name, now)
	if err != nil {
		AttendanceMarksTotal.WithLabelValues("error").Inc()
		e.markFailed[name] = now
		e.logger.Error("attendance ledger failed", "identity", name, "error", err)
		return false, Marked
	}
	delete(e.markFailed, name)
	e.marked[name] = true
	AttendanceMarksTotal.WithLabelValues(result.String()).Inc()
	e.logger.Info("attendance recorded", "identity", name, "result", result.String())
	return true, result
}

func (e *Engine) logChallenge(s *Session, o ChallengeOutcome, now time.Time) {
	switch o {
	case ChallengeIssued:
		e.logger.Info("challenge issued", "identity", s.Identity, "type", string(s.Challenge.Type))
	case ChallengePassed:
		e.logger.Info("challenge passed", "identity", s.Identity)
	case ChallengeExpired:
		e.logger.Info("challenge expired", "identity", s.Identity, "at", now)
	}
}

// Marked reports whether attendance was recorded for name during this run.
func (e *Engine) Marked(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.marked[name]
}

// Summary returns a snapshot of every identity seen during the run.
func (e *Engine) Summary() []SessionSummary {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sessions.Summaries()
}
