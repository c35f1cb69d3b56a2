// Package config assembles runtime settings from the environment and an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/andresmejia3/livecheck/internal/liveness"
	"github.com/andresmejia3/livecheck/internal/matcher"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Liveness       liveness.Config
	MatchThreshold float64
	AttendanceCSV  string // CSV ledger location
	Worker         WorkerConfig
}

type WorkerConfig struct {
	Python string // defaults to python3
	Script string // defaults to python/worker.py
	Scale  int    // detection downscale factor, defaults to 4
}

// fileConfig mirrors the YAML layout. Nil fields keep the current value.
type fileConfig struct {
	Liveness struct {
		TextureWindow     *int     `yaml:"texture_window"`
		DepthWindow       *int     `yaml:"depth_window"`
		UpperThreshold    *float64 `yaml:"upper_threshold"`
		LowerThreshold    *float64 `yaml:"lower_threshold"`
		DepthThreshold    *float64 `yaml:"depth_threshold"`
		DepthEnabled      *bool    `yaml:"depth_enabled"`
		EARThreshold      *float64 `yaml:"ear_threshold"`
		BlinkInterval     *string  `yaml:"blink_interval"`
		TurnDelta         *float64 `yaml:"turn_delta"`
		ChallengeInterval *string  `yaml:"challenge_interval"`
		ChallengeTimeout  *string  `yaml:"challenge_timeout"`
	} `yaml:"liveness"`
	MatchThreshold *float64 `yaml:"match_threshold"`
	AttendanceCSV  *string  `yaml:"attendance_csv"`
	Worker         struct {
		Python *string `yaml:"python"`
		Script *string `yaml:"script"`
		Scale  *int    `yaml:"scale"`
	} `yaml:"worker"`
}

func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

// envSignedFloat accepts any finite value; texture scores and their thresholds are negative.
func envSignedFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return f
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// Default returns the stock settings with environment overrides applied.
func Default() *Config {
	l := liveness.DefaultConfig()
	l.UpperThreshold = envSignedFloat("LIVECHECK_UPPER_THRESHOLD", l.UpperThreshold)
	l.LowerThreshold = envSignedFloat("LIVECHECK_LOWER_THRESHOLD", l.LowerThreshold)
	l.DepthThreshold = envFloat("LIVECHECK_DEPTH_THRESHOLD", l.DepthThreshold)
	l.EARThreshold = envFloat("LIVECHECK_EAR_THRESHOLD", l.EARThreshold)
	l.TurnDelta = envFloat("LIVECHECK_TURN_DELTA", l.TurnDelta)

	return &Config{
		Liveness:       l,
		MatchThreshold: envFloat("LIVECHECK_MATCH_THRESHOLD", matcher.DefaultThreshold),
		AttendanceCSV:  envString("LIVECHECK_ATTENDANCE_CSV", "Attendance.csv"),
		Worker: WorkerConfig{
			Python: envString("LIVECHECK_PYTHON", "python3"),
			Script: envString("LIVECHECK_WORKER_SCRIPT", "python/worker.py"),
			Scale:  envInt("LIVECHECK_WORKER_SCALE", 4),
		},
	}
}

// Load returns Default overlaid with the YAML file at path. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := cfg.apply(data); err != nil {
			return nil, fmt.Errorf("invalid config %s: %w", path, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDuration(dst *time.Duration, name string, src *string) error {
	if src == nil {
		return nil
	}
	d, err := time.ParseDuration(*src)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*dst = d
	return nil
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func (c *Config) apply(data []byte) error {
	var f fileConfig
	if err := yaml.Unmarshal(data, &f); err != nil {
		return err
	}

	l := &c.Liveness
	set(&l.TextureWindow, f.Liveness.TextureWindow)
	set(&l.DepthWindow, f.Liveness.DepthWindow)
	set(&l.UpperThreshold, f.Liveness.UpperThreshold)
	set(&l.LowerThreshold, f.Liveness.LowerThreshold)
	set(&l.DepthThreshold, f.Liveness.DepthThreshold)
	set(&l.DepthEnabled, f.Liveness.DepthEnabled)
	set(&l.EARThreshold, f.Liveness.EARThreshold)
	set(&l.TurnDelta, f.Liveness.TurnDelta)
	set(&c.MatchThreshold, f.MatchThreshold)
	set(&c.AttendanceCSV, f.AttendanceCSV)
	set(&c.Worker.Python, f.Worker.Python)
	set(&c.Worker.Script, f.Worker.Script)
	set(&c.Worker.Scale, f.Worker.Scale)

	return errors.Join(
		setDuration(&l.BlinkInterval, "blink_interval", f.Liveness.BlinkInterval),
		setDuration(&l.ChallengeInterval, "challenge_interval", f.Liveness.ChallengeInterval),
		setDuration(&l.ChallengeTimeout, "challenge_timeout", f.Liveness.ChallengeTimeout),
	)
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	if err := c.Liveness.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.MatchThreshold <= 0 {
		errs = append(errs, fmt.Errorf("match threshold must be positive, got %.3f", c.MatchThreshold))
	}
	if c.AttendanceCSV == "" {
		errs = append(errs, errors.New("attendance csv path must not be empty"))
	}
	if c.Worker.Scale < 1 {
		errs = append(errs, fmt.Errorf("worker scale must be >= 1, got %d", c.Worker.Scale))
	}
	return errors.Join(errs...)
}
