package liveness

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// eye builds a six-point eye 0.1 wide whose lids are open by h.
func eye(cx, h float64) [6]Point {
	return [6]Point{
		{X: cx - 0.05, Y: 0.5},
		{X: cx - 0.02, Y: 0.5 - h/2},
		{X: cx + 0.02, Y: 0.5 - h/2},
		{X: cx + 0.05, Y: 0.5},
		{X: cx + 0.02, Y: 0.5 + h/2},
		{X: cx - 0.02, Y: 0.5 + h/2},
	}
}

func landmarks(eyeOpen, noseX float64) *LandmarkFrame {
	return &LandmarkFrame{
		LeftEye:  eye(0.4, eyeOpen),
		RightEye: eye(0.6, eyeOpen),
		Nose:     Point{X: noseX, Y: 0.6},
	}
}

const (
	openEye   = 0.04  // EAR 0.4
	closedEye = 0.005 // EAR 0.05
)

func TestEyeAspectRatio(t *testing.T) {
	tests := []struct {
		name string
		eye  [6]Point
		want float64
	}{
		{name: "Open eye", eye: eye(0.5, 0.04), want: 0.4},
		{name: "Closed eye", eye: eye(0.5, 0.005), want: 0.05},
		{name: "Degenerate corners", eye: [6]Point{}, want: 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EyeAspectRatio(tt.eye)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("EyeAspectRatio() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDetectBlink_Refractory(t *testing.T) {
	d := NewBehaviorDetector(DefaultConfig())
	t0 := time.Unix(1_700_000_000, 0)
	closed := landmarks(closedEye, 0.5)

	var blinks []time.Time
	// 30 fps with the eyes held shut for a full second.
	for i := 0; i < 30; i++ {
		now := t0.Add(time.Duration(i) * time.Second / 30)
		if ok, _ := d.DetectBlink(closed, now); ok {
			blinks = append(blinks, now)
		}
	}

	require.NotEmpty(t, blinks)
	assert.Equal(t, t0, blinks[0], "first closed frame registers")
	for i := 1; i < len(blinks); i++ {
		assert.GreaterOrEqual(t, blinks[i].Sub(blinks[i-1]), DefaultBlinkInterval)
	}
	assert.LessOrEqual(t, len(blinks), 4)
}

func TestDetectBlink_OpenEyesAndMissingLandmarks(t *testing.T) {
	d := NewBehaviorDetector(DefaultConfig())
	now := time.Unix(100, 0)

	ok, ear := d.DetectBlink(landmarks(openEye, 0.5), now)
	assert.False(t, ok)
	assert.InDelta(t, 0.4, ear, 1e-9)

	ok, _ = d.DetectBlink(nil, now)
	assert.False(t, ok)
	assert.True(t, d.LastBlink().IsZero())
}

func TestDetectTurn(t *testing.T) {
	d := NewBehaviorDetector(DefaultConfig())
	ptr := func(v float64) *float64 { return &v }

	tests := []struct {
		name     string
		lm       *LandmarkFrame
		prev     *float64
		wantDir  Direction
		wantNose *float64
	}{
		{name: "First sighting stores nose", lm: landmarks(openEye, 0.5), prev: nil, wantDir: DirectionNone, wantNose: ptr(0.5)},
		{name: "Left turn", lm: landmarks(openEye, 0.45), prev: ptr(0.5), wantDir: DirectionLeft, wantNose: ptr(0.45)},
		{name: "Right turn", lm: landmarks(openEye, 0.55), prev: ptr(0.5), wantDir: DirectionRight, wantNose: ptr(0.55)},
		{name: "Below delta", lm: landmarks(openEye, 0.51), prev: ptr(0.5), wantDir: DirectionNone, wantNose: ptr(0.51)},
		{name: "No landmarks keeps previous", lm: nil, prev: ptr(0.3), wantDir: DirectionNone, wantNose: ptr(0.3)},
		{name: "No landmarks on first sighting", lm: nil, prev: nil, wantDir: DirectionNone, wantNose: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir, nose := d.DetectTurn(tt.lm, tt.prev)
			assert.Equal(t, tt.wantDir, dir)
			if tt.wantNose == nil {
				assert.Nil(t, nose)
				return
			}
			require.NotNil(t, nose)
			assert.InDelta(t, *tt.wantNose, *nose, 1e-12)
		})
	}
}
