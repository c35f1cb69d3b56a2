package liveness

import (
	"errors"
	"fmt"
	"time"
)

// Default thresholds. Texture scores come from the anti-spoofing classifier
// (higher means genuine skin); depth variation is the std-dev of the
// normalized depth map over the face crop.
const (
	DefaultTextureWindow     = 7
	DefaultDepthWindow       = 5
	DefaultUpperThreshold    = -1.0
	DefaultLowerThreshold    = -3.0
	DefaultDepthThreshold    = 0.08
	DefaultEARThreshold      = 0.22
	DefaultBlinkInterval     = 250 * time.Millisecond
	DefaultTurnDelta         = 0.025
	DefaultChallengeInterval = 8 * time.Second
	DefaultChallengeTimeout  = 4 * time.Second
)

// Config holds the tunables of the fusion engine.
type Config struct {
	TextureWindow int
	DepthWindow   int

	UpperThreshold float64
	LowerThreshold float64
	DepthThreshold float64
	// DepthEnabled is false when the deployment has no depth estimator at all.
	DepthEnabled bool

	EARThreshold  float64
	BlinkInterval time.Duration
	TurnDelta     float64

	ChallengeInterval time.Duration
	ChallengeTimeout  time.Duration
}

// DefaultConfig returns the stock configuration with depth enabled.
func DefaultConfig() Config {
	return Config{
		TextureWindow:     DefaultTextureWindow,
		DepthWindow:       DefaultDepthWindow,
		UpperThreshold:    DefaultUpperThreshold,
		LowerThreshold:    DefaultLowerThreshold,
		DepthThreshold:    DefaultDepthThreshold,
		DepthEnabled:      true,
		EARThreshold:      DefaultEARThreshold,
		BlinkInterval:     DefaultBlinkInterval,
		TurnDelta:         DefaultTurnDelta,
		ChallengeInterval: DefaultChallengeInterval,
		ChallengeTimeout:  DefaultChallengeTimeout,
	}
}

// Validate reports every invalid setting in c.
func (c Config) Validate() error {
	var errs []error
	if c.TextureWindow < 1 {
		errs = append(errs, fmt.Errorf("texture window must be >= 1, got %d", c.TextureWindow))
	}
	if c.DepthWindow < 1 {
		errs = append(errs, fmt.Errorf("depth window must be >= 1, got %d", c.DepthWindow))
	}
	if c.LowerThreshold > c.UpperThreshold {
		errs = append(errs, fmt.Errorf("lower threshold %.2f is above upper threshold %.2f", c.LowerThreshold, c.UpperThreshold))
	}
	if c.EARThreshold <= 0 {
		errs = append(errs, fmt.Errorf("EAR threshold must be positive, got %.3f", c.EARThreshold))
	}
	if c.TurnDelta <= 0 {
		errs = append(errs, fmt.Errorf("turn delta must be positive, got %.3f", c.TurnDelta))
	}
	if c.BlinkInterval < 0 {
		errs = append(errs, fmt.Errorf("blink interval must not be negative, got %s", c.BlinkInterval))
	}
	if c.ChallengeInterval <= 0 {
		errs = append(errs, fmt.Errorf("challenge interval must be positive, got %s", c.ChallengeInterval))
	}
	if c.ChallengeTimeout <= 0 {
		errs = append(errs, fmt.Errorf("challenge timeout must be positive, got %s", c.ChallengeTimeout))
	}
	return errors.Join(errs...)
}
