package liveness

import (
	"math"
	"time"
)

// Direction is the horizontal direction of a head turn.
type Direction int

const (
	DirectionNone Direction = iota
	DirectionLeft
	DirectionRight
)

func (d Direction) String() string {
	switch d {
	case DirectionLeft:
		return "LEFT"
	case DirectionRight:
		return "RIGHT"
	default:
		return "NONE"
	}
}

// Behavior is the set of behavioral events observed for one face in one frame.
type Behavior struct {
	Blink     bool
	HeadMoved bool
	Direction Direction
}

// BehaviorDetector derives blink and head-turn events from landmarks.
//
// Blinks are tracked process-wide: lastBlink starts at the zero time, so the
// first closed-eye frame always registers.
type BehaviorDetector struct {
	earThreshold  float64
	blinkInterval time.Duration
	turnDelta     float64

	lastBlink time.Time
}

// NewBehaviorDetector builds a detector from the blink and turn settings of cfg.
func NewBehaviorDetector(cfg Config) *BehaviorDetector {
	return &BehaviorDetector{
		earThreshold:  cfg.EARThreshold,
		blinkInterval: cfg.BlinkInterval,
		turnDelta:     cfg.TurnDelta,
	}
}

// EyeAspectRatio computes (|p2-p6| + |p3-p5|) / (2|p1-p4|).
// A degenerate eye with coincident corners is reported as open (1.0).
func EyeAspectRatio(eye [6]Point) float64 {
	a := dist(eye[1], eye[5])
	b := dist(eye[2], eye[4])
	c := dist(eye[0], eye[3])
	if c == 0 {
		return 1.0
	}
	return (a + b) / (2.0 * c)
}

func dist(p, q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// DetectBlink reports whether lm shows a blink at now, along with the averaged EAR.
// At most one blink is registered per refractory interval regardless of how many
// consecutive frames stay below the threshold.
func (d *BehaviorDetector) DetectBlink(lm *LandmarkFrame, now time.Time) (bool, float64) {
	if lm == nil {
		return false, 0
	}
	ear := (EyeAspectRatio(lm.LeftEye) + EyeAspectRatio(lm.RightEye)) / 2.0
	if ear >= d.earThreshold {
		return false, ear
	}
	if !d.lastBlink.IsZero() && now.Sub(d.lastBlink) < d.blinkInterval {
		return false, ear
	}
	d.lastBlink = now
	return true, ear
}

// DetectTurn compares the nose position in lm against prev and returns the turn
// direction together with the nose-x to store for the next frame.
// Without landmarks the previous value is returned unchanged.
func (d *BehaviorDetector) DetectTurn(lm *LandmarkFrame, prev *float64) (Direction, *float64) {
	if lm == nil {
		return DirectionNone, prev
	}
	x := lm.Nose.X
	if prev == nil {
		return DirectionNone, &x
	}
	dx := x - *prev
	switch {
	case dx < -d.turnDelta:
		return DirectionLeft, &x
	case dx > d.turnDelta:
		return DirectionRight, &x
	}
	return DirectionNone, &x
}

// LastBlink returns the time of the last registered blink (zero if none).
func (d *BehaviorDetector) LastBlink() time.Time { return d.lastBlink }
