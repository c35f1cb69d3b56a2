package liveness

// Label is the committed liveness verdict for an identity.
type Label string

const (
	LabelReal       Label = "REAL"
	LabelSuspicious Label = "SUSPICIOUS"
)

// FusionInput holds the per-frame evidence for one identity.
type FusionInput struct {
	Texture      float64  // rolling texture mean
	Depth        *float64 // rolling depth mean, nil when unavailable this frame
	BehavioralOK bool
	Previous     Label
}

// FusionDecider combines texture, depth and behavior into a label with hysteresis.
type FusionDecider struct {
	Upper          float64
	Lower          float64
	DepthThreshold float64
	DepthEnabled   bool
}

// NewFusionDecider builds a decider from the thresholds of cfg.
func NewFusionDecider(cfg Config) FusionDecider {
	return FusionDecider{
		Upper:          cfg.UpperThreshold,
		Lower:          cfg.LowerThreshold,
		DepthThreshold: cfg.DepthThreshold,
		DepthEnabled:   cfg.DepthEnabled,
	}
}

// DepthOK is true when depth is not part of this deployment, or when the
// rolling depth variation is present and above threshold.
func (f FusionDecider) DepthOK(depth *float64) bool {
	if !f.DepthEnabled {
		return true
	}
	return depth != nil && *depth > f.DepthThreshold
}

// Decide applies the rules in order: promote to REAL only when texture, behavior
// and depth all agree; demote to SUSPICIOUS on a strongly negative texture score;
// otherwise keep the previous label.
func (f FusionDecider) Decide(in FusionInput) Label {
	if in.Texture > f.Upper && in.BehavioralOK && f.DepthOK(in.Depth) {
		return LabelReal
	}
	if in.Texture < f.Lower {
		return LabelSuspicious
	}
	return in.Previous
}
