// Package config loads process settings from CELLBLOCK_* environment
// variables.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/talgya/cellblock/internal/gang"
)

// Config holds everything cmd/yardsim needs to start.
type Config struct {
	DBPath   string        `env:"CELLBLOCK_DB_PATH" envDefault:"data/cellblock.db"`
	Seed     int64         `env:"CELLBLOCK_SEED" envDefault:"42"`
	Interval time.Duration `env:"CELLBLOCK_TICK_INTERVAL" envDefault:"1s"`
	Step     time.Duration `env:"CELLBLOCK_TICK_STEP" envDefault:"1h"`
	Speed    float64       `env:"CELLBLOCK_SPEED" envDefault:"1"`
	Climate  bool          `env:"CELLBLOCK_CLIMATE" envDefault:"true"`
	LogLevel string        `env:"CELLBLOCK_LOG_LEVEL" envDefault:"info"`

	APIPort       int    `env:"CELLBLOCK_API_PORT" envDefault:"8080"`
	AdminKey      string `env:"CELLBLOCK_ADMIN_KEY"`
	AnthropicKey  string `env:"ANTHROPIC_API_KEY"`
	NarrationRate int    `env:"CELLBLOCK_NARRATION_PER_MIN" envDefault:"5"`
	UseRandomOrg  bool   `env:"CELLBLOCK_RANDOM_ORG"`
	RandomOrgKey  string `env:"RANDOM_ORG_API_KEY"`

	Gameplay Gameplay
}

// Gameplay overrides gang.DefaultConfig. Unset variables keep the default.
type Gameplay struct {
	DeathEnabled         *bool    `env:"CELLBLOCK_DEATH"`
	WeaponsEnabled       *bool    `env:"CELLBLOCK_WEAPONS"`
	DrugEconomyEnabled   *bool    `env:"CELLBLOCK_DRUGS"`
	SolitaryEnabled      *bool    `env:"CELLBLOCK_SOLITARY"`
	TerritoryWarsEnabled *bool    `env:"CELLBLOCK_TERRITORY_WARS"`
	ViolenceFrequency    *float64 `env:"CELLBLOCK_VIOLENCE_FREQUENCY"`
	RecruitmentFrequency *float64 `env:"CELLBLOCK_RECRUITMENT_FREQUENCY"`
	BaseDeathChance      *float64 `env:"CELLBLOCK_BASE_DEATH_CHANCE"`
	RivalHostility       *float64 `env:"CELLBLOCK_RIVAL_HOSTILITY"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses and validates the process configuration.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.Interval <= 0 {
		return Config{}, fmt.Errorf("CELLBLOCK_TICK_INTERVAL must be positive, got %s", cfg.Interval)
	}
	if cfg.Step <= 0 {
		return Config{}, fmt.Errorf("CELLBLOCK_TICK_STEP must be positive, got %s", cfg.Step)
	}
	if cfg.Speed < 0 {
		return Config{}, fmt.Errorf("CELLBLOCK_SPEED must not be negative, got %g", cfg.Speed)
	}
	return cfg, nil
}

// Level maps LogLevel to a slog level. Unknown names fall back to info.
func (c Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Apply layers the overrides onto base.
func (g Gameplay) Apply(base gang.Config) gang.Config {
	setB := func(dst *bool, v *bool) {
		if v != nil {
			*dst = *v
		}
	}
	setF := func(dst *float64, v *float64) {
		if v != nil {
			*dst = *v
		}
	}
	setB(&base.DeathEnabled, g.DeathEnabled)
	setB(&base.WeaponsEnabled, g.WeaponsEnabled)
	setB(&base.DrugEconomyEnabled, g.DrugEconomyEnabled)
	setB(&base.SolitaryEnabled, g.SolitaryEnabled)
	setB(&base.TerritoryWarsEnabled, g.TerritoryWarsEnabled)
	setF(&base.ViolenceFrequency, g.ViolenceFrequency)
	setF(&base.RecruitmentFrequency, g.RecruitmentFrequency)
	setF(&base.BaseDeathChance, g.BaseDeathChance)
	setF(&base.RivalHostility, g.RivalHostility)
	return base
}

// Warden configures cmd/warden.
type Warden struct {
	APIURL       string        `env:"CELLBLOCK_API_URL" envDefault:"http://localhost:8080"`
	AdminKey     string        `env:"CELLBLOCK_ADMIN_KEY,required"`
	AnthropicKey string        `env:"ANTHROPIC_API_KEY"`
	Interval     time.Duration `env:"CELLBLOCK_WARDEN_INTERVAL" envDefault:"6h"`
	MemoryPath   string        `env:"CELLBLOCK_WARDEN_MEMORY" envDefault:"data/warden_memory.json"`
	LogLevel     string        `env:"CELLBLOCK_LOG_LEVEL" envDefault:"info"`
}

// LoadWarden parses and validates the warden configuration.
func LoadWarden() (Warden, error) {
	var cfg Warden
	if err := ParseEnv(&cfg); err != nil {
		return Warden{}, err
	}
	if cfg.Interval < time.Minute {
		return Warden{}, fmt.Errorf("CELLBLOCK_WARDEN_INTERVAL must be at least 1m, got %s", cfg.Interval)
	}
	return cfg, nil
}

// Level maps LogLevel to a slog level.
func (c Warden) Level() slog.Level {
	return Config{LogLevel: c.LogLevel}.Level()
}
