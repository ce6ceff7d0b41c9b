package network

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/station-sim/sim"
	"github.com/inference-sim/station-sim/sim/distribution"
)

func writeTempYAML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "network.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig_ValidYAML(t *testing.T) {
	path := writeTempYAML(t, `
seed: 7
duration: 500
delay_ms: 20
trace: decisions
arrival:
  station: reception
  distribution: negexp
  mean: 15
stations:
  - name: reception
    distribution: negexp
    mean: 3
    next: triage
  - name: triage
    distribution: constant
    mean: 5
    routes:
      - to: lab
        probability: 0.3
    fallback: ""
  - name: lab
    distribution: poisson
    mean: 10
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, int64(7), cfg.Seed)
	assert.Equal(t, 500.0, cfg.Duration)
	assert.Equal(t, int64(20), cfg.DelayMs)
	assert.Equal(t, "reception", cfg.Arrival.Station)
	assert.Equal(t, distribution.FamilyNegExp, cfg.Arrival.Family)
	assert.Equal(t, 15.0, cfg.Arrival.Mean)
	require.Len(t, cfg.Stations, 3)

	triage, ok := cfg.Station("triage")
	require.True(t, ok)
	assert.True(t, triage.IsDecision())
	assert.Equal(t, distribution.FamilyConstant, triage.Family)
	assert.Equal(t, []RouteConfig{{To: "lab", Probability: 0.3}}, triage.Routes)
	assert.Empty(t, triage.Fallback)

	lab, _ := cfg.Station("lab")
	assert.False(t, lab.IsDecision())
	assert.Empty(t, lab.Next)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	path := writeTempYAML(t, "stations: [name: {")
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfig_UnknownFieldRejected(t *testing.T) {
	path := writeTempYAML(t, `
duration: 100
arrival:
  station: desk
  distribution: negexp
  mean: 5
stations:
  - name: desk
    distribution: negexp
    mean: 2
    nxet: desk
`)
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestHealthCentre_IsValid(t *testing.T) {
	cfg := HealthCentre()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "check-in", cfg.Arrival.Station)
	assert.Equal(t, 15.0, cfg.Arrival.Mean)

	doctor, ok := cfg.Station("doctor")
	require.True(t, ok)
	assert.Equal(t, "treatment", doctor.Fallback)
	assert.Len(t, doctor.Routes, 2)
}

func TestConfig_Validate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"negative duration", func(c *Config) { c.Duration = -1 }},
		{"negative delay", func(c *Config) { c.DelayMs = -5 }},
		{"unknown trace level", func(c *Config) { c.Trace = "verbose" }},
		{"no stations", func(c *Config) { c.Stations = nil }},
		{"empty station name", func(c *Config) { c.Stations[0].Name = "" }},
		{"reserved station name", func(c *Config) { c.Stations[4].Name = ArrivalPoint }},
		{"duplicate station", func(c *Config) { c.Stations[4].Name = "lab" }},
		{"unknown arrival station", func(c *Config) { c.Arrival.Station = "lobby" }},
		{"zero arrival mean", func(c *Config) { c.Arrival.Mean = 0 }},
		{"unknown family", func(c *Config) { c.Stations[1].Family = "gamma" }},
		{"negative service mean", func(c *Config) { c.Stations[2].Mean = -3 }},
		{"unknown next", func(c *Config) { c.Stations[0].Next = "pharmacy" }},
		{"next and routes", func(c *Config) { c.Stations[1].Next = "lab" }},
		{"fallback without routes", func(c *Config) { c.Stations[2].Fallback = "treatment" }},
		{"unknown fallback", func(c *Config) { c.Stations[1].Fallback = "pharmacy" }},
		{"unknown branch", func(c *Config) { c.Stations[1].Routes[0].To = "pharmacy" }},
		{"duplicate branch", func(c *Config) { c.Stations[1].Routes[1].To = "lab" }},
		{"probability above one", func(c *Config) { c.Stations[1].Routes[0].Probability = 1.5 }},
		{"negative probability", func(c *Config) { c.Stations[1].Routes[0].Probability = -0.1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := HealthCentre()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), sim.ErrInvalidConfiguration)
		})
	}
}

func TestConfig_Validate_ZeroDurationAccepted(t *testing.T) {
	cfg := HealthCentre()
	cfg.Duration = 0
	assert.NoError(t, cfg.Validate())
}

func TestValidateProbabilities_PermissiveSums(t *testing.T) {
	// Sums above and below one are logged, not rejected.
	assert.NoError(t, ValidateProbabilities("d", []float64{0.7, 0.6}))
	assert.NoError(t, ValidateProbabilities("d", []float64{0.1, 0.1}))
	assert.NoError(t, ValidateProbabilities("d", []float64{0, 0}))
	assert.NoError(t, ValidateProbabilities("d", []float64{1}))
}
