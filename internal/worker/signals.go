package worker

import (
	"github.com/andresmejia3/livecheck/internal/liveness"
	"github.com/andresmejia3/livecheck/internal/types"
)

// Signals serves one frame's worker analysis through liveness.SignalProvider.
type Signals struct {
	analysis *types.FrameAnalysis
}

// NewSignals binds a frame analysis. A nil analysis yields no landmarks and failed scores.
func NewSignals(a *types.FrameAnalysis) Signals {
	return Signals{analysis: a}
}

func (s Signals) face(crop liveness.FaceCrop) (types.FaceResult, bool) {
	if s.analysis == nil || crop.Index < 0 || crop.Index >= len(s.analysis.Faces) {
		return types.FaceResult{}, false
	}
	return s.analysis.Faces[crop.Index], true
}

func (s Signals) TextureScore(crop liveness.FaceCrop) float64 {
	f, ok := s.face(crop)
	if !ok || f.Texture == nil {
		return liveness.TextureFailure
	}
	return *f.Texture
}

func (s Signals) DepthVariation(crop liveness.FaceCrop) (float64, bool) {
	f, ok := s.face(crop)
	if !ok || f.Depth == nil {
		return 0, false
	}
	return *f.Depth, true
}

func (s Signals) Landmarks() (*liveness.LandmarkFrame, bool) {
	if s.analysis == nil || s.analysis.Landmarks == nil {
		return nil, false
	}
	return s.analysis.Landmarks, true
}
