package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Durations travel through YAML as strings ("5s", "250ms") in the *Raw
// fields and are resolved into their typed twins by Load.
type Config struct {
	Environment string `yaml:"environment" default:"production" validate:"required"`
	Server      struct {
		Port               int    `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
		ReadTimeoutRaw     string `yaml:"read_timeout" default:"10s"`
		WriteTimeoutRaw    string `yaml:"write_timeout" default:"10s"`
		ShutdownTimeoutRaw string `yaml:"shutdown_timeout" default:"10s"`

		ReadTimeout     time.Duration `yaml:"-"`
		WriteTimeout    time.Duration `yaml:"-"`
		ShutdownTimeout time.Duration `yaml:"-"`
	} `yaml:"server"`
	Game struct {
		URL            string `yaml:"url" validate:"required,url"`
		PlayerID       string `yaml:"player_id" validate:"required"`
		Token          string `yaml:"token"`
		Alias          string `yaml:"alias" default:"gotrader" validate:"required"`
		Sessions       int    `yaml:"sessions" default:"10" validate:"gte=1,lte=64"`
		DialTimeoutRaw string `yaml:"dial_timeout" default:"10s"`
		ReadTimeoutRaw string `yaml:"read_timeout" default:"5s"`
		BackoffMinRaw  string `yaml:"backoff_min" default:"1s"`
		BackoffMaxRaw  string `yaml:"backoff_max" default:"3s"`

		DialTimeout time.Duration `yaml:"-"`
		ReadTimeout time.Duration `yaml:"-"`
		BackoffMin  time.Duration `yaml:"-"`
		BackoffMax  time.Duration `yaml:"-"`
	} `yaml:"game"`
	Strategy struct {
		MomentumWeight      float64 `yaml:"momentum_weight" default:"0.6" validate:"gte=0,lte=1"`
		ForecastWeight      float64 `yaml:"forecast_weight" default:"0.4" validate:"gte=0,lte=1"`
		AggressiveFactor    float64 `yaml:"aggressive_factor" default:"1.5" validate:"gte=1,lte=2"`
		HistorySize         int     `yaml:"history_size" default:"20" validate:"gte=1"`
		OptimizeIntervalRaw string  `yaml:"optimize_interval" default:"30s"`
		MinSamples          int     `yaml:"min_samples" default:"5" validate:"gte=1"`
		ProfitBar           float64 `yaml:"profit_bar" default:"5"`
		LossBar             float64 `yaml:"loss_bar" default:"-5"`

		OptimizeInterval time.Duration `yaml:"-"`
	} `yaml:"strategy"`
	Logging struct {
		Level      string `yaml:"level" default:"info" validate:"oneof=debug info warn error fatal panic"`
		Format     string `yaml:"format" default:"json" validate:"oneof=json console"`
		Output     string `yaml:"output" default:"stdout"`
		MaxSizeMB  int    `yaml:"max_size_mb" default:"100"`
		MaxBackups int    `yaml:"max_backups" default:"3"`
		MaxAgeDays int    `yaml:"max_age_days" default:"7"`
		Compress   bool   `yaml:"compress"`
	} `yaml:"logging"`
}

var validate = validator.New()

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	c, err := parse(path)
	if err != nil {
		return nil, err
	}
	if err := c.resolve(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment
// variables before validating.
func LoadWithEnv(path string) (*Config, error) {
	c, err := parse(path)
	if err != nil {
		return nil, err
	}
	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	if err := c.resolve(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func parse(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply config defaults: %w", err)
	}
	return &c, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("GAME_URL"); v != "" {
		c.Game.URL = v
	}
	if v := os.Getenv("GAME_PLAYER_ID"); v != "" {
		c.Game.PlayerID = v
	}
	if v := os.Getenv("GAME_TOKEN"); v != "" {
		c.Game.Token = v
	}
	if v := os.Getenv("GAME_ALIAS"); v != "" {
		c.Game.Alias = v
	}
	if v := os.Getenv("GAME_SESSIONS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("GAME_SESSIONS: %w", err)
		}
		c.Game.Sessions = n
	}
	if v := os.Getenv("GAME_READ_TIMEOUT"); v != "" {
		c.Game.ReadTimeoutRaw = v
	}
	if v := os.Getenv("GAME_BACKOFF_MIN"); v != "" {
		c.Game.BackoffMinRaw = v
	}
	if v := os.Getenv("GAME_BACKOFF_MAX"); v != "" {
		c.Game.BackoffMaxRaw = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SERVER_PORT: %w", err)
		}
		c.Server.Port = n
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("LOG_OUTPUT"); v != "" {
		c.Logging.Output = v
	}
	return nil
}

// resolve parses every *Raw duration string into its typed field.
func (c *Config) resolve() error {
	for _, d := range []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"server.read_timeout", c.Server.ReadTimeoutRaw, &c.Server.ReadTimeout},
		{"server.write_timeout", c.Server.WriteTimeoutRaw, &c.Server.WriteTimeout},
		{"server.shutdown_timeout", c.Server.ShutdownTimeoutRaw, &c.Server.ShutdownTimeout},
		{"game.dial_timeout", c.Game.DialTimeoutRaw, &c.Game.DialTimeout},
		{"game.read_timeout", c.Game.ReadTimeoutRaw, &c.Game.ReadTimeout},
		{"game.backoff_min", c.Game.BackoffMinRaw, &c.Game.BackoffMin},
		{"game.backoff_max", c.Game.BackoffMaxRaw, &c.Game.BackoffMax},
		{"strategy.optimize_interval", c.Strategy.OptimizeIntervalRaw, &c.Strategy.OptimizeInterval},
	} {
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("parse %s: %w", d.name, err)
		}
		if v <= 0 {
			return fmt.Errorf("parse %s: must be positive, got %s", d.name, v)
		}
		*d.dst = v
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Game.BackoffMax < c.Game.BackoffMin {
		return fmt.Errorf("game.backoff_max (%s) must be >= game.backoff_min (%s)",
			c.Game.BackoffMax, c.Game.BackoffMin)
	}
	if c.Strategy.LossBar >= c.Strategy.ProfitBar {
		return fmt.Errorf("strategy.loss_bar (%v) must be below strategy.profit_bar (%v)",
			c.Strategy.LossBar, c.Strategy.ProfitBar)
	}
	return nil
}
