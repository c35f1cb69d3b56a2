package liveness

import (
	"context"
	"time"
)

// TextureFailure is the texture score a SignalProvider reports when the classifier
// could not score a crop (unreadable image, inference error).
const TextureFailure = -10.0

// Point is a landmark coordinate normalized to [0,1] in frame space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// LandmarkFrame is the subset of a face mesh needed for blink and head-turn detection.
// Eye points are ordered p1..p6 as used by EyeAspectRatio: p1/p4 are the corners,
// p2/p3 the upper lid and p6/p5 the lower lid.
type LandmarkFrame struct {
	LeftEye  [6]Point `json:"left_eye"`
	RightEye [6]Point `json:"right_eye"`
	Nose     Point    `json:"nose"`
}

// Box is a face bounding box in pixel coordinates.
type Box struct {
	Top    int
	Right  int
	Bottom int
	Left   int
}

// Empty reports whether the box encloses no pixels.
func (b Box) Empty() bool {
	return b.Bottom <= b.Top || b.Right <= b.Left
}

// FaceCrop identifies one detected face region within the current frame.
type FaceCrop struct {
	Index int
	Box   Box
}

// SignalProvider exposes the black-box model outputs for a single frame.
//
// TextureScore returns TextureFailure when the crop cannot be scored.
// DepthVariation reports false when depth estimation is disabled or failed for the crop.
// Landmarks reports false when no face mesh resolved in the frame.
type SignalProvider interface {
	TextureScore(crop FaceCrop) float64
	DepthVariation(crop FaceCrop) (float64, bool)
	Landmarks() (*LandmarkFrame, bool)
}

// Detection is a face that has already been matched to an identity.
type Detection struct {
	Identity string
	Distance float64
	Crop     FaceCrop
}

// MarkResult is the answer of an attendance ledger.
type MarkResult int

const (
	Marked MarkResult = iota
	AlreadyMarkedToday
)

func (r MarkResult) String() string {
	if r == AlreadyMarkedToday {
		return "already_marked"
	}
	return "marked"
}

// Ledger is an idempotent per-day attendance sink keyed by identity name.
type Ledger interface {
	Mark(ctx context.Context, name string, at time.Time) (MarkResult, error)
}
