// Package config provides configuration management using viper.
// It supports loading from YAML files, a .env file and environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Bot       BotConfig       `mapstructure:"bot"`
	Economy   EconomyConfig   `mapstructure:"economy"`
	Spin      SpinConfig      `mapstructure:"spin"`
	Activity  ActivityConfig  `mapstructure:"activity"`
	Profile   ProfileConfig   `mapstructure:"profile"`
	Games     GamesConfig     `mapstructure:"games"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// ServerConfig holds HTTP listener configuration.
type ServerConfig struct {
	Addr           string        `mapstructure:"addr"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	// RateLimit is the sustained requests per second allowed per caller. Zero disables limiting.
	RateLimit float64 `mapstructure:"rate_limit"`
	RateBurst int     `mapstructure:"rate_burst"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// RedisConfig holds the leaderboard cache connection. An empty Addr disables the cache.
type RedisConfig struct {
	Addr string        `mapstructure:"addr"`
	TTL  time.Duration `mapstructure:"ttl"`
}

// AuthConfig holds identity token verification settings.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

// AdminConfig lists the principals allowed to call admin-only operations.
type AdminConfig struct {
	Principals []string `mapstructure:"principals"`
}

// BotConfig holds the Telegram admin console configuration.
// An empty Token disables the bot.
type BotConfig struct {
	Token          string  `mapstructure:"token"`
	AdminUserIDs   []int64 `mapstructure:"admin_user_ids"`
	AdminChatIDs   []int64 `mapstructure:"admin_chat_ids"`
	AdminPrincipal string  `mapstructure:"admin_principal"`
}

// EconomyConfig holds trophy economy settings.
type EconomyConfig struct {
	InitialTrophies     int64         `mapstructure:"initial_trophies"`
	GameCost            int64         `mapstructure:"game_cost"`
	WelcomeBackReward   int64         `mapstructure:"welcome_back_reward"`
	WelcomeBackInterval time.Duration `mapstructure:"welcome_back_interval"`
}

// SpinConfig holds spin wheel settings.
type SpinConfig struct {
	Cooldown time.Duration `mapstructure:"cooldown"`
	Suspense time.Duration `mapstructure:"suspense"`
}

// ActivityConfig holds activity feed settings.
type ActivityConfig struct {
	DefaultLimit int           `mapstructure:"default_limit"`
	MaxLimit     int           `mapstructure:"max_limit"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// ProfileConfig holds defaults applied at profile setup.
type ProfileConfig struct {
	MinAge               int    `mapstructure:"min_age"`
	MaxAge               int    `mapstructure:"max_age"`
	DefaultScreenTime    int    `mapstructure:"default_screen_time"`
	DefaultContentFilter string `mapstructure:"default_content_filter"`
	DefaultPetName       string `mapstructure:"default_pet_name"`
}

// GamesConfig holds game catalog settings.
type GamesConfig struct {
	AllowUnknown bool `mapstructure:"allow_unknown"`
}

// SchedulerConfig holds background job intervals.
type SchedulerConfig struct {
	PendingDigestInterval time.Duration `mapstructure:"pending_digest_interval"`
	LeaderboardWarmup     time.Duration `mapstructure:"leaderboard_warmup"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// Load reads configuration from file and environment variables.
// A .env file in the working directory is applied to the environment first.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// e.g. DATABASE_HOST, AUTH_JWT_SECRET, ECONOMY_GAME_COST
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.rate_limit", 20)
	v.SetDefault("server.rate_burst", 40)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "kidzone")
	v.SetDefault("database.name", "kidzone")
	v.SetDefault("database.pool_size", 20)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	// Keys without a usable default still need registering so that
	// AutomaticEnv can override them during Unmarshal.
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.ttl", "30s")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "kidzone")

	v.SetDefault("admin.principals", []string{})

	v.SetDefault("bot.token", "")
	v.SetDefault("bot.admin_principal", "")
	v.SetDefault("bot.admin_user_ids", []int64{})
	v.SetDefault("bot.admin_chat_ids", []int64{})

	v.SetDefault("games.allow_unknown", false)

	v.SetDefault("economy.initial_trophies", 70)
	v.SetDefault("economy.game_cost", 10)
	v.SetDefault("economy.welcome_back_reward", 20)
	v.SetDefault("economy.welcome_back_interval", "24h")

	v.SetDefault("spin.cooldown", "20m")
	v.SetDefault("spin.suspense", "3s")

	v.SetDefault("activity.default_limit", 20)
	v.SetDefault("activity.max_limit", 200)
	v.SetDefault("activity.poll_interval", "5s")

	v.SetDefault("profile.min_age", 5)
	v.SetDefault("profile.max_age", 12)
	v.SetDefault("profile.default_screen_time", 120)
	v.SetDefault("profile.default_content_filter", "medium")
	v.SetDefault("profile.default_pet_name", "Buddy")

	v.SetDefault("scheduler.pending_digest_interval", "30m")
	v.SetDefault("scheduler.leaderboard_warmup", "5m")
}

// Validate checks settings that have no safe default.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}
	if c.Economy.InitialTrophies < 0 || c.Economy.GameCost < 0 || c.Economy.WelcomeBackReward < 0 {
		return errors.New("economy amounts must not be negative")
	}
	if c.Profile.MinAge > c.Profile.MaxAge {
		return fmt.Errorf("profile.min_age %d exceeds profile.max_age %d", c.Profile.MinAge, c.Profile.MaxAge)
	}
	return nil
}

// IsAdmin checks if a principal is in the admin list.
func (c *Config) IsAdmin(principal string) bool {
	principal = strings.TrimSpace(principal)
	if principal == "" {
		return false
	}
	for _, p := range c.Admin.Principals {
		if strings.TrimSpace(p) == principal {
			return true
		}
	}
	return false
}

// IsBotAdmin checks if a Telegram user ID may use the admin console.
func (c *Config) IsBotAdmin(userID int64) bool {
	for _, id := range c.Bot.AdminUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}
