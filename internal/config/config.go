// Package config provides Viper-based configuration loading for Duelgrounds.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DatabaseConfig holds PostgreSQL connection settings for the progress store.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// SideConfig holds the base stats and growth factors for one combatant side.
type SideConfig struct {
	// Name is the display name used when no roster entry applies.
	Name                  string  `mapstructure:"name"`
	BaseHP                float64 `mapstructure:"base_hp"`
	HPGrowth              float64 `mapstructure:"hp_growth"`
	BaseAttack            float64 `mapstructure:"base_attack"`
	AttackGrowth          float64 `mapstructure:"attack_growth"`
	BaseSpeed             float64 `mapstructure:"base_speed"`
	SpeedGrowthPerLevel   float64 `mapstructure:"speed_growth_per_level"`
	BaseDefense           float64 `mapstructure:"base_defense"`
	DefenseGrowthPerLevel float64 `mapstructure:"defense_growth_per_level"`
}

// BalanceConfig holds every tunable of the action-resolution formulas.
type BalanceConfig struct {
	// HitBase is the baseline hit probability before the speed differential.
	HitBase float64 `mapstructure:"hit_base"`
	// HitSpeedFactor converts (attacker speed - defender speed) into a
	// hit-chance adjustment.
	HitSpeedFactor float64 `mapstructure:"hit_speed_factor"`
	// HitMin and HitMax clamp the final hit probability.
	HitMin float64 `mapstructure:"hit_min"`
	HitMax float64 `mapstructure:"hit_max"`

	// DamageMinMult and DamageMaxMult bound the damage roll as multiples
	// of the attacker's attack stat.
	DamageMinMult float64 `mapstructure:"damage_min_mult"`
	DamageMaxMult float64 `mapstructure:"damage_max_mult"`

	// CritChance is the independent critical probability in [0, 1];
	// CritMult scales the damage roll on a critical.
	CritChance float64 `mapstructure:"crit_chance"`
	CritMult   float64 `mapstructure:"crit_mult"`

	// HealMinMult and HealMaxMult bound the heal roll as multiples of the
	// healer's level.
	HealMinMult float64 `mapstructure:"heal_min_mult"`
	HealMaxMult float64 `mapstructure:"heal_max_mult"`
	// MinimumHealOne raises a computed heal of 0 to 1 when set.
	MinimumHealOne bool `mapstructure:"minimum_heal_one"`

	// DefenseConstant is the K in the mitigation formula K/(K+defense).
	DefenseConstant float64 `mapstructure:"defense_constant"`

	// EnemyOffsetMin and EnemyOffsetMax bound the inclusive random offset
	// added to the player level when spawning the enemy.
	EnemyOffsetMin int `mapstructure:"enemy_offset_min"`
	EnemyOffsetMax int `mapstructure:"enemy_offset_max"`

	// LevelUpAmount is how many levels the player gains on a win.
	LevelUpAmount int `mapstructure:"level_up_amount"`
}

// GameConfig groups the combat tunables for both sides.
type GameConfig struct {
	Player  SideConfig    `mapstructure:"player"`
	Enemy   SideConfig    `mapstructure:"enemy"`
	Balance BalanceConfig `mapstructure:"balance"`
	// RosterPath points at the opponent roster YAML; empty disables the roster.
	RosterPath string `mapstructure:"roster_path"`
}

// Config is the top-level application configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Game     GameConfig     `mapstructure:"game"`
}

// Validate checks all configuration invariants. Invalid combat tunables
// fail here, at load time, so the engine's formulas are total functions
// over validated inputs and never fail mid-match.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateDatabase(c.Database); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateSide("game.player", c.Game.Player); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateSide("game.enemy", c.Game.Enemy); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateBalance(c.Game.Balance); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

func validateSide(prefix string, s SideConfig) error {
	var errs []string
	if s.Name == "" {
		errs = append(errs, fmt.Sprintf("%s.name must not be empty", prefix))
	}
	if s.BaseHP <= 0 {
		errs = append(errs, fmt.Sprintf("%s.base_hp must be > 0, got %g", prefix, s.BaseHP))
	}
	if s.HPGrowth < 0 {
		errs = append(errs, fmt.Sprintf("%s.hp_growth must be >= 0, got %g", prefix, s.HPGrowth))
	}
	if s.BaseAttack <= 0 {
		errs = append(errs, fmt.Sprintf("%s.base_attack must be > 0, got %g", prefix, s.BaseAttack))
	}
	if s.AttackGrowth < 0 {
		errs = append(errs, fmt.Sprintf("%s.attack_growth must be >= 0, got %g", prefix, s.AttackGrowth))
	}
	if s.BaseSpeed <= 0 {
		errs = append(errs, fmt.Sprintf("%s.base_speed must be > 0, got %g", prefix, s.BaseSpeed))
	}
	if s.SpeedGrowthPerLevel < 0 {
		errs = append(errs, fmt.Sprintf("%s.speed_growth_per_level must be >= 0, got %g", prefix, s.SpeedGrowthPerLevel))
	}
	if s.BaseDefense < 0 {
		errs = append(errs, fmt.Sprintf("%s.base_defense must be >= 0, got %g", prefix, s.BaseDefense))
	}
	if s.DefenseGrowthPerLevel < 0 {
		errs = append(errs, fmt.Sprintf("%s.defense_growth_per_level must be >= 0, got %g", prefix, s.DefenseGrowthPerLevel))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateBalance(b BalanceConfig) error {
	var errs []string
	if b.HitBase < 0 || b.HitBase > 1 {
		errs = append(errs, fmt.Sprintf("game.balance.hit_base must be in [0, 1], got %g", b.HitBase))
	}
	if b.HitSpeedFactor < 0 {
		errs = append(errs, fmt.Sprintf("game.balance.hit_speed_factor must be >= 0, got %g", b.HitSpeedFactor))
	}
	if b.HitMin < 0 || b.HitMin > 1 {
		errs = append(errs, fmt.Sprintf("game.balance.hit_min must be in [0, 1], got %g", b.HitMin))
	}
	if b.HitMax < 0 || b.HitMax > 1 {
		errs = append(errs, fmt.Sprintf("game.balance.hit_max must be in [0, 1], got %g", b.HitMax))
	}
	if b.HitMin > b.HitMax {
		errs = append(errs, fmt.Sprintf("game.balance.hit_min (%g) must not exceed hit_max (%g)", b.HitMin, b.HitMax))
	}
	if b.DamageMinMult < 0 {
		errs = append(errs, fmt.Sprintf("game.balance.damage_min_mult must be >= 0, got %g", b.DamageMinMult))
	}
	if b.DamageMaxMult < b.DamageMinMult {
		errs = append(errs, fmt.Sprintf("game.balance.damage_max_mult (%g) must not be below damage_min_mult (%g)", b.DamageMaxMult, b.DamageMinMult))
	}
	if b.CritChance < 0 || b.CritChance > 1 {
		errs = append(errs, fmt.Sprintf("game.balance.crit_chance must be in [0, 1], got %g", b.CritChance))
	}
	if b.CritMult < 1 {
		errs = append(errs, fmt.Sprintf("game.balance.crit_mult must be >= 1, got %g", b.CritMult))
	}
	if b.HealMinMult < 0 {
		errs = append(errs, fmt.Sprintf("game.balance.heal_min_mult must be >= 0, got %g", b.HealMinMult))
	}
	if b.HealMaxMult < b.HealMinMult {
		errs = append(errs, fmt.Sprintf("game.balance.heal_max_mult (%g) must not be below heal_min_mult (%g)", b.HealMaxMult, b.HealMinMult))
	}
	if b.DefenseConstant <= 0 {
		errs = append(errs, fmt.Sprintf("game.balance.defense_constant must be > 0, got %g", b.DefenseConstant))
	}
	if b.EnemyOffsetMin > b.EnemyOffsetMax {
		errs = append(errs, fmt.Sprintf("game.balance.enemy_offset_min (%d) must not exceed enemy_offset_max (%d)", b.EnemyOffsetMin, b.EnemyOffsetMax))
	}
	if b.LevelUpAmount < 1 {
		errs = append(errs, fmt.Sprintf("game.balance.level_up_amount must be >= 1, got %d", b.LevelUpAmount))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// Load reads configuration from the given file path, applies environment
// variable overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with DUEL_ prefix
	v.SetEnvPrefix("DUEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "duel")
	v.SetDefault("database.password", "duel")
	v.SetDefault("database.name", "duel")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("game.player.name", "Duelist")
	v.SetDefault("game.player.base_hp", 20)
	v.SetDefault("game.player.hp_growth", 2.5)
	v.SetDefault("game.player.base_attack", 6)
	v.SetDefault("game.player.attack_growth", 1.2)
	v.SetDefault("game.player.base_speed", 10)
	v.SetDefault("game.player.speed_growth_per_level", 0.5)
	v.SetDefault("game.player.base_defense", 0)
	v.SetDefault("game.player.defense_growth_per_level", 0)

	v.SetDefault("game.enemy.name", "Challenger")
	v.SetDefault("game.enemy.base_hp", 18)
	v.SetDefault("game.enemy.hp_growth", 2.5)
	v.SetDefault("game.enemy.base_attack", 5)
	v.SetDefault("game.enemy.attack_growth", 1.2)
	v.SetDefault("game.enemy.base_speed", 9)
	v.SetDefault("game.enemy.speed_growth_per_level", 0.5)
	v.SetDefault("game.enemy.base_defense", 0)
	v.SetDefault("game.enemy.defense_growth_per_level", 0)

	v.SetDefault("game.balance.hit_base", 0.85)
	v.SetDefault("game.balance.hit_speed_factor", 0.01)
	v.SetDefault("game.balance.hit_min", 0.5)
	v.SetDefault("game.balance.hit_max", 0.99)
	v.SetDefault("game.balance.damage_min_mult", 0.8)
	v.SetDefault("game.balance.damage_max_mult", 1.2)
	v.SetDefault("game.balance.crit_chance", 0.1)
	v.SetDefault("game.balance.crit_mult", 1.5)
	v.SetDefault("game.balance.heal_min_mult", 2.0)
	v.SetDefault("game.balance.heal_max_mult", 3.0)
	v.SetDefault("game.balance.minimum_heal_one", false)
	v.SetDefault("game.balance.defense_constant", 100)
	v.SetDefault("game.balance.enemy_offset_min", -1)
	v.SetDefault("game.balance.enemy_offset_max", 2)
	v.SetDefault("game.balance.level_up_amount", 1)
	v.SetDefault("game.roster_path", "content/opponents.yaml")
}
