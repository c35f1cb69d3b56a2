package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/andresmejia3/livecheck/internal/liveness"
	"github.com/andresmejia3/livecheck/internal/matcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "livecheck.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoad_NoFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, liveness.DefaultConfig(), cfg.Liveness)
	assert.Equal(t, matcher.DefaultThreshold, cfg.MatchThreshold)
	assert.Equal(t, "Attendance.csv", cfg.AttendanceCSV)
	assert.Equal(t, 4, cfg.Worker.Scale)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("LIVECHECK_MATCH_THRESHOLD", "0.4")
	t.Setenv("LIVECHECK_WORKER_SCALE", "2")
	t.Setenv("LIVECHECK_ATTENDANCE_CSV", "/tmp/att.csv")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 0.4, cfg.MatchThreshold)
	assert.Equal(t, 2, cfg.Worker.Scale)
	assert.Equal(t, "/tmp/att.csv", cfg.AttendanceCSV)
}

func TestLoad_InvalidEnvFallsBack(t *testing.T) {
	t.Setenv("LIVECHECK_WORKER_SCALE", "zero")
	t.Setenv("LIVECHECK_MATCH_THRESHOLD", "-1")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Worker.Scale)
	assert.Equal(t, matcher.DefaultThreshold, cfg.MatchThreshold)
}

func TestLoad_LivenessEnvOverrides(t *testing.T) {
	t.Setenv("LIVECHECK_UPPER_THRESHOLD", "-0.8")
	t.Setenv("LIVECHECK_LOWER_THRESHOLD", "-1.5")
	t.Setenv("LIVECHECK_DEPTH_THRESHOLD", "0.03")
	t.Setenv("LIVECHECK_EAR_THRESHOLD", "0.2")
	t.Setenv("LIVECHECK_TURN_DELTA", "0.05")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, -0.8, cfg.Liveness.UpperThreshold)
	assert.Equal(t, -1.5, cfg.Liveness.LowerThreshold)
	assert.Equal(t, 0.03, cfg.Liveness.DepthThreshold)
	assert.Equal(t, 0.2, cfg.Liveness.EARThreshold)
	assert.Equal(t, 0.05, cfg.Liveness.TurnDelta)
}

func TestLoad_InvalidLivenessEnvFallsBack(t *testing.T) {
	t.Setenv("LIVECHECK_UPPER_THRESHOLD", "NaN")
	t.Setenv("LIVECHECK_EAR_THRESHOLD", "-0.2")

	cfg, err := Load("")
	require.NoError(t, err)
	def := liveness.DefaultConfig()
	assert.Equal(t, def.UpperThreshold, cfg.Liveness.UpperThreshold)
	assert.Equal(t, def.EARThreshold, cfg.Liveness.EARThreshold)
}

func TestLoad_YAMLOverlay(t *testing.T) {
	path := writeConfig(t, `
liveness:
  texture_window: 9
  depth_enabled: false
  upper_threshold: -0.5
  blink_interval: 300ms
  challenge_timeout: 5s
match_threshold: 0.5
worker:
  script: /opt/livecheck/worker.py
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Liveness.TextureWindow)
	assert.False(t, cfg.Liveness.DepthEnabled)
	assert.Equal(t, -0.5, cfg.Liveness.UpperThreshold)
	assert.Equal(t, 300*time.Millisecond, cfg.Liveness.BlinkInterval)
	assert.Equal(t, 5*time.Second, cfg.Liveness.ChallengeTimeout)
	assert.Equal(t, 0.5, cfg.MatchThreshold)
	assert.Equal(t, "/opt/livecheck/worker.py", cfg.Worker.Script)

	// Untouched keys keep their defaults
	assert.Equal(t, liveness.DefaultDepthWindow, cfg.Liveness.DepthWindow)
	assert.Equal(t, liveness.DefaultChallengeInterval, cfg.Liveness.ChallengeInterval)
	assert.Equal(t, "python3", cfg.Worker.Python)
}

func TestLoad_BadDuration(t *testing.T) {
	path := writeConfig(t, "liveness:\n  challenge_interval: soon\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "challenge_interval")
}

func TestLoad_InvalidValues(t *testing.T) {
	path := writeConfig(t, `
liveness:
  texture_window: 0
  upper_threshold: -4
  lower_threshold: -3
worker:
  scale: 0
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "texture window")
	assert.Contains(t, err.Error(), "lower threshold")
	assert.Contains(t, err.Error(), "worker scale")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
