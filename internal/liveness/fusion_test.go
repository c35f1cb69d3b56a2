package liveness

import (
	"testing"
)

func TestFusionDecide(t *testing.T) {
	depth := func(v float64) *float64 { return &v }

	withDepth := NewFusionDecider(DefaultConfig())
	noDepthCfg := DefaultConfig()
	noDepthCfg.DepthEnabled = false
	noDepth := NewFusionDecider(noDepthCfg)

	tests := []struct {
		name    string
		decider FusionDecider
		in      FusionInput
		want    Label
	}{
		{
			name:    "All channels agree",
			decider: withDepth,
			in:      FusionInput{Texture: -0.5, Depth: depth(0.2), BehavioralOK: true, Previous: LabelSuspicious},
			want:    LabelReal,
		},
		{
			name:    "Depth disabled counts as ok",
			decider: noDepth,
			in:      FusionInput{Texture: -0.5, BehavioralOK: true, Previous: LabelSuspicious},
			want:    LabelReal,
		},
		{
			name:    "Depth enabled but missing blocks promotion",
			decider: withDepth,
			in:      FusionInput{Texture: -0.5, BehavioralOK: true, Previous: LabelSuspicious},
			want:    LabelSuspicious,
		},
		{
			name:    "Flat depth blocks promotion",
			decider: withDepth,
			in:      FusionInput{Texture: -0.5, Depth: depth(0.08), BehavioralOK: true, Previous: LabelSuspicious},
			want:    LabelSuspicious,
		},
		{
			name:    "No behavior blocks promotion",
			decider: noDepth,
			in:      FusionInput{Texture: -0.5, BehavioralOK: false, Previous: LabelSuspicious},
			want:    LabelSuspicious,
		},
		{
			name:    "Upper threshold is exclusive",
			decider: noDepth,
			in:      FusionInput{Texture: -1.0, BehavioralOK: true, Previous: LabelSuspicious},
			want:    LabelSuspicious,
		},
		{
			name:    "Middle band holds REAL",
			decider: noDepth,
			in:      FusionInput{Texture: -2.0, BehavioralOK: false, Previous: LabelReal},
			want:    LabelReal,
		},
		{
			name:    "Lower threshold is exclusive",
			decider: noDepth,
			in:      FusionInput{Texture: -3.0, BehavioralOK: false, Previous: LabelReal},
			want:    LabelReal,
		},
		{
			name:    "Strong spoof demotes regardless of behavior and depth",
			decider: withDepth,
			in:      FusionInput{Texture: -4.0, Depth: depth(0.5), BehavioralOK: true, Previous: LabelReal},
			want:    LabelSuspicious,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.decider.Decide(tt.in); got != tt.want {
				t.Errorf("Decide() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFusionHysteresis_NoFlicker(t *testing.T) {
	f := NewFusionDecider(DefaultConfig())
	label := LabelReal
	for _, tex := range []float64{-1.1, -2.9, -1.5, -2.2, -1.0} {
		label = f.Decide(FusionInput{Texture: tex, Previous: label})
		if label != LabelReal {
			t.Fatalf("texture %.1f flipped REAL to %s", tex, label)
		}
	}
	label = f.Decide(FusionInput{Texture: -3.01, Previous: label})
	if label != LabelSuspicious {
		t.Errorf("expected demotion below lower threshold, got %s", label)
	}
}
