package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment override, e.g. CLINIC_DATABASE_HOST.
const EnvPrefix = "CLINIC"

type Config struct {
	Server        ServerConfig        `mapstructure:"server" split_words:"true"`
	Database      DatabaseConfig      `mapstructure:"database" split_words:"true"`
	Redis         RedisConfig         `mapstructure:"redis" split_words:"true"`
	Schedule      ScheduleConfig      `mapstructure:"schedule" split_words:"true"`
	Calendar      CalendarConfig      `mapstructure:"calendar" split_words:"true"`
	RateLimit     RateLimitConfig     `mapstructure:"rate_limit" split_words:"true"`
	CORS          CORSConfig          `mapstructure:"cors" split_words:"true"`
	Logging       LoggingConfig       `mapstructure:"logging" split_words:"true"`
	Notifications NotificationsConfig `mapstructure:"notifications" split_words:"true"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port" split_words:"true"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout" split_words:"true"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout" split_words:"true"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" split_words:"true"`
	Mode           string        `mapstructure:"mode" split_words:"true"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host" split_words:"true"`
	Port            int           `mapstructure:"port" split_words:"true"`
	User            string        `mapstructure:"user" split_words:"true"`
	Password        string        `mapstructure:"password" split_words:"true"`
	Name            string        `mapstructure:"name" split_words:"true"`
	SSLMode         string        `mapstructure:"sslmode" split_words:"true"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" split_words:"true"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" split_words:"true"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" split_words:"true"`
}

type RedisConfig struct {
	URL          string        `mapstructure:"url" split_words:"true"`
	MaxRetries   int           `mapstructure:"max_retries" split_words:"true"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff" split_words:"true"`
	PoolSize     int           `mapstructure:"pool_size" split_words:"true"`
	MinIdleConns int           `mapstructure:"min_idle_conns" split_words:"true"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl" split_words:"true"`
}

// ScheduleConfig drives the editing sessions and the retry worker.
type ScheduleConfig struct {
	Debounce      time.Duration `mapstructure:"debounce" split_words:"true"`
	SessionTTL    time.Duration `mapstructure:"session_ttl" split_words:"true"`
	RetryInterval time.Duration `mapstructure:"retry_interval" split_words:"true"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout" split_words:"true"`
}

// CalendarConfig is the default geometry of the week view.
type CalendarConfig struct {
	StartHour     int `mapstructure:"start_hour" split_words:"true"`
	EndHour       int `mapstructure:"end_hour" split_words:"true"`
	SlotMinutes   int `mapstructure:"slot_minutes" split_words:"true"`
	SlotHeightPx  int `mapstructure:"slot_height_px" split_words:"true"`
	DraftDuration int `mapstructure:"draft_duration" split_words:"true"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled" split_words:"true"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" split_words:"true"`
	Burst             int     `mapstructure:"burst" split_words:"true"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins" split_words:"true"`
	AllowedMethods []string `mapstructure:"allowed_methods" split_words:"true"`
	AllowedHeaders []string `mapstructure:"allowed_headers" split_words:"true"`
}

type LoggingConfig struct {
	Level   string `mapstructure:"level" split_words:"true"`
	Console bool   `mapstructure:"console" split_words:"true"`
}

// NotificationsConfig selects the sinks save results are sent to.
type NotificationsConfig struct {
	Channel string `mapstructure:"channel" split_words:"true"`
	Broker  bool   `mapstructure:"broker" split_words:"true"`
}

// Default returns the values used when neither the file nor the environment set them.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:           8080,
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   15 * time.Second,
			RequestTimeout: 10 * time.Second,
			Mode:           "release",
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			User:            "postgres",
			Name:            "clinic",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			URL:          "redis://localhost:6379/0",
			MaxRetries:   3,
			RetryBackoff: 100 * time.Millisecond,
			PoolSize:     10,
			MinIdleConns: 2,
			CacheTTL:     10 * time.Minute,
		},
		Schedule: ScheduleConfig{
			Debounce:      700 * time.Millisecond,
			SessionTTL:    30 * time.Minute,
			RetryInterval: 30 * time.Second,
			WriteTimeout:  5 * time.Second,
		},
		Calendar: CalendarConfig{
			StartHour:     8,
			EndHour:       18,
			SlotMinutes:   15,
			SlotHeightPx:  20,
			DraftDuration: 15,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerSecond: 20,
			Burst:             40,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		},
		Logging: LoggingConfig{Level: "info"},
		Notifications: NotificationsConfig{
			Channel: "clinic-schedule:notices",
		},
	}
}

// LoadConfig reads config.yml from the usual locations, then applies
// CLINIC_* environment overrides. A missing file is not an error.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/app/config")

	config := Default()
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := envconfig.Process(EnvPrefix, &config); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate rejects configurations the calendar and the sessions cannot work with.
func (c *Config) Validate() error {
	cal := c.Calendar
	if cal.StartHour < 0 || cal.EndHour > 24 || cal.StartHour >= cal.EndHour {
		return fmt.Errorf("invalid calendar hours %d-%d", cal.StartHour, cal.EndHour)
	}
	if cal.SlotMinutes <= 0 || cal.SlotHeightPx <= 0 {
		return fmt.Errorf("calendar slot_minutes and slot_height_px must be positive")
	}
	if c.Schedule.Debounce < 0 {
		return fmt.Errorf("schedule debounce must not be negative")
	}
	return nil
}

// DSN is the lib/pq connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}
