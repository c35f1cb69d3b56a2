package liveness

import (
	"sort"
	"time"
)

// Unknown is the shared identity bucket for every unrecognized face.
// Distinct unrecognized people alias onto the same session.
const Unknown = "UNKNOWN"

// Session is the mutable liveness state of one identity.
type Session struct {
	Identity string

	Texture *RollingWindow[float64]
	Depth   *RollingWindow[float64]

	Challenge       *Challenge
	ChallengePassed bool
	LastChallengeAt time.Time
	LastExpiredAt   time.Time

	NoseX *float64
	Label Label

	FirstSeen time.Time
	LastSeen  time.Time
}

// SessionSummary is a read-only copy of a session for reporting.
type SessionSummary struct {
	Identity        string
	Label           Label
	ChallengePassed bool
	Texture         float64
	Samples         int
	FirstSeen       time.Time
	LastSeen        time.Time
}

// SessionStore maps identities to their sessions for the lifetime of a run.
// Sessions are created on first sighting and never removed.
type SessionStore struct {
	sessions   map[string]*Session
	textureCap int
	depthCap   int
}

// NewSessionStore returns an empty store whose sessions use the given window capacities.
func NewSessionStore(textureCap, depthCap int) *SessionStore {
	return &SessionStore{
		sessions:   make(map[string]*Session),
		textureCap: textureCap,
		depthCap:   depthCap,
	}
}

// Get returns the session for identity, creating it on first sighting, and
// records now as the last time the identity was seen.
func (s *SessionStore) Get(identity string, now time.Time) *Session {
	sess, ok := s.sessions[identity]
	if !ok {
		sess = &Session{
			Identity:  identity,
			Texture:   NewRollingWindow[float64](s.textureCap),
			Depth:     NewRollingWindow[float64](s.depthCap),
			Label:     LabelSuspicious,
			FirstSeen: now,
		}
		s.sessions[identity] = sess
	}
	sess.LastSeen = now
	return sess
}

// Len returns the number of identities seen so far.
func (s *SessionStore) Len() int { return len(s.sessions) }

// Summaries returns a snapshot of every session sorted by identity.
func (s *SessionStore) Summaries() []SessionSummary {
	out := make([]SessionSummary, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, SessionSummary{
			Identity:        sess.Identity,
			Label:           sess.Label,
			ChallengePassed: sess.ChallengePassed,
			Texture:         sess.Texture.Mean(0),
			Samples:         sess.Texture.Len(),
			FirstSeen:       sess.FirstSeen,
			LastSeen:        sess.LastSeen,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identity < out[j].Identity })
	return out
}
