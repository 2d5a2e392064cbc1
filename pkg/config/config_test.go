package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimal = `
scenario:
  datasets: [soyfutures, soycts]
`

func TestParseAppliesDefaults(t *testing.T) {
	c, err := Parse([]byte(minimal))
	require.NoError(t, err)

	assert.Equal(t, "development", c.Environment)
	assert.Equal(t, "data", c.Cache.Dir)
	assert.Equal(t, "local", c.Cache.Lock.Backend)
	assert.Equal(t, 4, c.Scenario.Workers)
	assert.Equal(t, 5*time.Minute, c.Scenario.RunTimeout)
	assert.InDelta(t, 0.1, c.Scenario.MissingTolerance, 1e-9)
	assert.Equal(t, "linear", c.Scenario.DefaultFill)
	assert.Equal(t, "QUANDL_API_KEY", c.Provider.CredentialName)
	assert.Equal(t, 3, c.Provider.MaxAttempts)
	assert.Equal(t, "none", c.Sink.Type)
	assert.Equal(t, []string{"soyfutures", "soycts"}, c.Scenario.Datasets)
}

func TestParseOverridesDefaults(t *testing.T) {
	c, err := Parse([]byte(`
environment: production
cache:
  dir: /var/cache/alphakit
provider:
  timeout: 5s
scenario:
  datasets: [soyoilfutures]
  start: 2020-01-01
  end: 2020-12-31
  fill_overrides:
    "soyoilfutures:Settle": none
`))
	require.NoError(t, err)
	assert.Equal(t, "production", c.Environment)
	assert.Equal(t, "/var/cache/alphakit", c.Cache.Dir)
	assert.Equal(t, 5*time.Second, c.Provider.Timeout)

	start, err := c.ScenarioStart()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, "none", c.Scenario.FillOverrides["soyoilfutures:Settle"])
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]string{
		"no datasets":   `scenario: {datasets: []}`,
		"bad fill":      "scenario: {datasets: [a], default_fill: cubic}",
		"start > end":   "scenario: {datasets: [a], start: 2021-01-01, end: 2020-01-01}",
		"bad date":      "scenario: {datasets: [a], start: yesterday}",
		"bad sink":      "scenario: {datasets: [a]}\nsink: {type: s3}",
		"kafka brokers": "scenario: {datasets: [a]}\nsink: {type: kafka}",
		"override key":  "scenario: {datasets: [a], fill_overrides: {Settle: none}}",
		"tolerance":     "scenario: {datasets: [a], missing_tolerance: 2}",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadWithEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimal), 0o644))

	t.Setenv("ALPHAKIT_DATASETS", "soyoilfutures, soyoilcts")
	t.Setenv("ALPHAKIT_CACHE_DIR", "/tmp/alpha")
	t.Setenv("ALPHAKIT_SINK", "kafka")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("ALPHAKIT_WORKERS", "8")
	t.Setenv("ALPHAKIT_HTTP_PORT", "not-a-port")

	c, err := LoadWithEnv(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"soyoilfutures", "soyoilcts"}, c.Scenario.Datasets)
	assert.Equal(t, "/tmp/alpha", c.Cache.Dir)
	assert.Equal(t, "kafka", c.Sink.Type)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	assert.Equal(t, 8, c.Scenario.Workers)
	assert.Equal(t, 8080, c.Server.Port, "unparsable port keeps the default")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadShippedConfig(t *testing.T) {
	c, err := Load("../../config/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, []string{"soyfutures", "soyoilfutures", "soycts", "soyoilcts"}, c.Scenario.Datasets)
	assert.Equal(t, "none", c.Sink.Type)
	assert.Equal(t, time.Hour, c.Cache.ReportTTL)
	assert.Equal(t, "carry_forward", c.Scenario.FillOverrides["soyoilcts:Open Interest"])
}
