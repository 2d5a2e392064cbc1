package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"AlphaKit/pkg/util"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`
	Log         struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" default:"console" validate:"oneof=json console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Server struct {
		Port            int           `yaml:"port" default:"8080" validate:"gt=0,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"120s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		CORSOrigins     []string      `yaml:"cors_origins"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Cache struct {
		Dir       string        `yaml:"dir" default:"data" validate:"required"`
		ReportTTL time.Duration `yaml:"report_ttl" default:"1h"`
		Lock      struct {
			Backend    string        `yaml:"backend" default:"local" validate:"oneof=local redis"`
			TTL        time.Duration `yaml:"ttl" default:"2m"`
			RetryEvery time.Duration `yaml:"retry_every" default:"200ms"`
		} `yaml:"lock"`
	} `yaml:"cache"`
	Redis struct {
		Addr     string `yaml:"addr" default:"localhost:6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix" default:"alphakit"`
	} `yaml:"redis"`
	Provider struct {
		QuandlURL      string        `yaml:"quandl_url" default:"https://www.quandl.com" validate:"required,url"`
		NasdaqURL      string        `yaml:"nasdaq_url" default:"https://data.nasdaq.com" validate:"required,url"`
		CredentialName string        `yaml:"credential_name" default:"QUANDL_API_KEY" validate:"required"`
		CredentialFile string        `yaml:"credential_file"`
		Timeout        time.Duration `yaml:"timeout" default:"30s"`
		MaxAttempts    int           `yaml:"max_attempts" default:"3" validate:"gte=1,lte=10"`
		Backoff        time.Duration `yaml:"backoff" default:"500ms"`
		RatePerSecond  float64       `yaml:"rate_per_second" default:"5" validate:"gt=0"`
		Burst          int           `yaml:"burst" default:"1" validate:"gte=1"`
	} `yaml:"provider"`
	Scenario struct {
		Datasets         []string          `yaml:"datasets" validate:"required,min=1,dive,required"`
		Start            string            `yaml:"start"`
		End              string            `yaml:"end"`
		Workers          int               `yaml:"workers" default:"4" validate:"gte=1,lte=64"`
		RunTimeout       time.Duration     `yaml:"run_timeout" default:"5m"`
		MissingTolerance float64           `yaml:"missing_tolerance" default:"0.1" validate:"gte=0,lte=1"`
		DefaultFill      string            `yaml:"default_fill" default:"linear" validate:"oneof=linear carry_forward none"`
		FillOverrides    map[string]string `yaml:"fill_overrides" validate:"dive,oneof=linear carry_forward none"`
	} `yaml:"scenario"`
	Sink struct {
		Type string `yaml:"type" default:"none" validate:"oneof=none kafka clickhouse"`
	} `yaml:"sink"`
	Kafka struct {
		Brokers      []string      `yaml:"brokers"`
		Topic        string        `yaml:"topic" default:"alphakit.reports"`
		RequiredAcks int           `yaml:"required_acks" default:"-1"`
		Compression  string        `yaml:"compression" default:"snappy"`
		MaxAttempts  int           `yaml:"max_attempts" default:"5"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host         string        `yaml:"host" default:"localhost"`
		Port         int           `yaml:"port" default:"9000"`
		Database     string        `yaml:"database" default:"alphakit"`
		User         string        `yaml:"user" default:"default"`
		Password     string        `yaml:"password"`
		Protocol     string        `yaml:"protocol" default:"native" validate:"oneof=native http"`
		AsyncInsert  bool          `yaml:"async_insert"`
		DialTimeout  time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"30s"`
		MaxExecTime  time.Duration `yaml:"max_execution_time" default:"60s"`
	} `yaml:"clickhouse"`
}

var validate = validator.New()

// Load reads and parses a YAML configuration file over the struct defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML bytes over the struct defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	c.applyEnv(os.Getenv)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("ALPHAKIT_DATASETS"); v != "" {
		c.Scenario.Datasets = util.SplitList(v)
	}
	if v := getenv("ALPHAKIT_CACHE_DIR"); v != "" {
		c.Cache.Dir = v
	}
	if v := getenv("ALPHAKIT_SINK"); v != "" {
		c.Sink.Type = v
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = util.SplitList(v)
	}
	if v := getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	c.Scenario.Workers = util.ParseIntDefault(getenv("ALPHAKIT_WORKERS"), c.Scenario.Workers)
	c.Server.Port = util.ParseIntDefault(getenv("ALPHAKIT_HTTP_PORT"), c.Server.Port)
}

// Validate checks tag rules and cross-field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	start, err := c.ScenarioStart()
	if err != nil {
		return err
	}
	end, err := c.ScenarioEnd()
	if err != nil {
		return err
	}
	if !start.IsZero() && !end.IsZero() && start.After(end) {
		return fmt.Errorf("scenario.start %s is after scenario.end %s", c.Scenario.Start, c.Scenario.End)
	}
	for col := range c.Scenario.FillOverrides {
		if !strings.Contains(col, ":") {
			return fmt.Errorf("scenario.fill_overrides key %q must be series:field", col)
		}
	}
	if c.Sink.Type == "kafka" && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required when sink.type is kafka")
	}
	if c.Cache.Lock.Backend == "redis" && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when cache.lock.backend is redis")
	}
	return nil
}

// ScenarioStart parses scenario.start; zero when unset.
func (c *Config) ScenarioStart() (time.Time, error) {
	return parseOptionalDate("scenario.start", c.Scenario.Start)
}

// ScenarioEnd parses scenario.end; zero when unset.
func (c *Config) ScenarioEnd() (time.Time, error) {
	return parseOptionalDate("scenario.end", c.Scenario.End)
}

func parseOptionalDate(name, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, ok := util.ParseDate(s)
	if !ok {
		return time.Time{}, fmt.Errorf("%s: invalid date %q", name, s)
	}
	return t, nil
}
