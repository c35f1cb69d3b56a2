package types

import (
	"time"

	"github.com/andresmejia3/livecheck/internal/liveness"
)

// FrameTask represents a single captured frame waiting for analysis
type FrameTask struct {
	Index int
	Time  time.Time
	Data  []byte
}

// FaceResult is one detected face as reported by the model worker
type FaceResult struct {
	Loc     []int     `json:"loc"`     // [top, right, bottom, left] at the detection scale
	Vec     []float64 `json:"vec"`     // 128-d face encoding
	Texture *float64  `json:"texture"` // anti-spoofing score, null on failure
	Depth   *float64  `json:"depth"`   // depth variation, null when disabled or failed
}

// Box scales the detection back to full-frame pixels and clamps it to the frame.
// A malformed location yields an empty box.
func (f FaceResult) Box(scale, width, height int) liveness.Box {
	if len(f.Loc) != 4 {
		return liveness.Box{}
	}
	if scale < 1 {
		scale = 1
	}
	b := liveness.Box{
		Top:    max(0, f.Loc[0]*scale),
		Right:  f.Loc[1] * scale,
		Bottom: f.Loc[2] * scale,
		Left:   max(0, f.Loc[3]*scale),
	}
	if width > 0 {
		b.Right = min(width-1, b.Right)
	}
	if height > 0 {
		b.Bottom = min(height-1, b.Bottom)
	}
	return b
}

// FrameAnalysis is the worker's answer for one frame
type FrameAnalysis struct {
	Width     int                     `json:"width"`
	Height    int                     `json:"height"`
	Scale     int                     `json:"scale"` // detection downscale factor
	Faces     []FaceResult            `json:"faces"`
	Landmarks *liveness.LandmarkFrame `json:"landmarks"` // null when no face mesh resolved
}

// EncodeResult carries the encodings found in an enrollment image
type EncodeResult struct {
	Vecs [][]float64 `json:"vecs"`
}

// HelloResult describes the models the worker managed to load
type HelloResult struct {
	TextureModel string `json:"texture_model"`
	DepthModel   string `json:"depth_model"`
	Depth        bool   `json:"depth"`
}

// ErrorResult captures the error object returned by the worker on failure
type ErrorResult struct {
	Error string `json:"error"`
}
