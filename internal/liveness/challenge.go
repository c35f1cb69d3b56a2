package liveness

import (
	"math/rand/v2"
	"time"
)

// ChallengeType is the gesture an active challenge asks for.
type ChallengeType string

const (
	ChallengeBlink     ChallengeType = "BLINK"
	ChallengeTurnLeft  ChallengeType = "TURN_LEFT"
	ChallengeTurnRight ChallengeType = "TURN_RIGHT"
)

// ChallengeTypes is the set challenges are drawn from.
var ChallengeTypes = []ChallengeType{ChallengeBlink, ChallengeTurnLeft, ChallengeTurnRight}

// SatisfiedBy reports whether b contains the gesture t asks for.
func (t ChallengeType) SatisfiedBy(b Behavior) bool {
	switch t {
	case ChallengeBlink:
		return b.Blink
	case ChallengeTurnLeft:
		return b.HeadMoved && b.Direction == DirectionLeft
	case ChallengeTurnRight:
		return b.HeadMoved && b.Direction == DirectionRight
	}
	return false
}

// Challenge is an outstanding active-liveness prompt.
type Challenge struct {
	Type     ChallengeType
	IssuedAt time.Time
	Passed   bool
}

// Remaining returns the time left before the challenge expires, never negative.
func (c Challenge) Remaining(now time.Time, timeout time.Duration) time.Duration {
	left := timeout - now.Sub(c.IssuedAt)
	if left < 0 {
		return 0
	}
	return left
}

// ChallengeOutcome is what a ChallengeManager step did to a session.
type ChallengeOutcome int

const (
	ChallengeIdle ChallengeOutcome = iota
	ChallengeIssued
	ChallengePending
	ChallengePassed
	ChallengeExpired
)

func (o ChallengeOutcome) String() string {
	switch o {
	case ChallengeIssued:
		return "issued"
	case ChallengePending:
		return "pending"
	case ChallengePassed:
		return "passed"
	case ChallengeExpired:
		return "expired"
	default:
		return "idle"
	}
}

// ChallengeManager issues, times out and evaluates challenges.
// It keeps no per-identity state of its own; everything lives on the Session.
type ChallengeManager struct {
	interval time.Duration
	timeout  time.Duration
	rng      *rand.Rand
}

// NewChallengeManager returns a manager drawing challenge types from rng.
func NewChallengeManager(interval, timeout time.Duration, rng *rand.Rand) *ChallengeManager {
	return &ChallengeManager{interval: interval, timeout: timeout, rng: rng}
}

// Timeout returns the challenge expiry duration.
func (m *ChallengeManager) Timeout() time.Duration { return m.timeout }

// Due reports whether s should receive a new challenge at now.
func (m *ChallengeManager) Due(s *Session, now time.Time) bool {
	return s.Identity != Unknown &&
		s.Challenge == nil &&
		!s.ChallengePassed &&
		now.Sub(s.LastChallengeAt) > m.interval
}

// Issue puts a challenge of type t on s, starting a new epoch.
func (m *ChallengeManager) Issue(s *Session, now time.Time, t ChallengeType) {
	s.Challenge = &Challenge{Type: t, IssuedAt: now}
	s.LastChallengeAt = now
	s.ChallengePassed = false
}

// Step advances the challenge state machine of s for one frame.
//
// A due session gets a random challenge first. A pending challenge expires once
// timeout has elapsed since issue; otherwise a matching gesture observed after the
// issuing frame passes it.
func (m *ChallengeManager) Step(s *Session, now time.Time, b Behavior) ChallengeOutcome {
	issued := false
	if m.Due(s, now) {
		m.Issue(s, now, ChallengeTypes[m.rng.IntN(len(ChallengeTypes))])
		issued = true
	}

	ch := s.Challenge
	if ch == nil {
		return ChallengeIdle
	}

	if now.Sub(ch.IssuedAt) >= m.timeout {
		s.Challenge = nil
		s.ChallengePassed = false
		s.LastExpiredAt = now
		return ChallengeExpired
	}

	if now.After(ch.IssuedAt) && ch.Type.SatisfiedBy(b) {
		ch.Passed = true
		s.Challenge = nil
		s.ChallengePassed = true
		return ChallengePassed
	}

	if issued {
		return ChallengeIssued
	}
	return ChallengePending
}
