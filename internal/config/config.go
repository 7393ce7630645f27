// Package config loads the service configuration from BOOKING_* environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pawprint-grooming/service-booking/internal/domain/schedule"
	"github.com/pawprint-grooming/service-booking/internal/events"
	"github.com/pawprint-grooming/service-booking/internal/platform/database"
)

// Storage drivers.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// JWTConfig holds the token settings for the operator surface.
type JWTConfig struct {
	Secret   string
	Issuer   string
	TokenTTL time.Duration
}

// KafkaConfig holds broker settings. When disabled, notifications are discarded.
type KafkaConfig struct {
	Enabled bool
	Brokers []string
	GroupID string
}

// RedisConfig holds availability cache settings. An empty Addr disables the cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// ServiceConfig holds all configuration for the booking service.
type ServiceConfig struct {
	Port          string
	AppEnv        string
	StorageDriver string
	CORSOrigins   []string

	DBConfig    database.PostgresConfig
	JWTConfig   JWTConfig
	KafkaConfig KafkaConfig
	RedisConfig RedisConfig
	Dispatcher  events.DispatcherConfig
	Hours       schedule.OperatingRules
}

// IsDevelopment reports whether the service runs in the development environment.
func (c *ServiceConfig) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVICE_PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("STORAGE_DRIVER", StoragePostgres)
	v.SetDefault("CORS_ORIGINS", "")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "grooming_booking")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", 5*time.Minute)

	v.SetDefault("JWT_SECRET", "change-me-in-production")
	v.SetDefault("JWT_ISSUER", "service-booking")
	v.SetDefault("JWT_TTL", 12*time.Hour)

	v.SetDefault("KAFKA_ENABLED", true)
	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("KAFKA_GROUP_ID", "booking-service")

	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("AVAILABILITY_CACHE_TTL", 5*time.Minute)

	v.SetDefault("HOURS_OPEN", "08:00")
	v.SetDefault("HOURS_CLOSE", "17:00")
	v.SetDefault("HOURS_SLOT_MINUTES", 30)
	v.SetDefault("HOURS_CLOSED_DAYS", "sunday,monday")

	v.SetDefault("NOTIFY_QUEUE_SIZE", 256)
	v.SetDefault("NOTIFY_WORKERS", 2)
	v.SetDefault("NOTIFY_MAX_RETRIES", 5)
	v.SetDefault("NOTIFY_INITIAL_INTERVAL", 200*time.Millisecond)
	v.SetDefault("NOTIFY_MAX_INTERVAL", 5*time.Second)
	v.SetDefault("NOTIFY_PUBLISH_TIMEOUT", 10*time.Second)
}

// Load reads configuration from environment variables.
func Load() (*ServiceConfig, error) {
	v := viper.New()
	v.SetEnvPrefix("BOOKING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return fromViper(v)
}

func fromViper(v *viper.Viper) (*ServiceConfig, error) {
	cfg := &ServiceConfig{
		Port:          ":" + strings.TrimPrefix(v.GetString("SERVICE_PORT"), ":"),
		AppEnv:        v.GetString("APP_ENV"),
		StorageDriver: strings.ToLower(v.GetString("STORAGE_DRIVER")),
		CORSOrigins:   splitList(v.GetString("CORS_ORIGINS")),
		DBConfig: database.PostgresConfig{
			Host:            v.GetString("DB_HOST"),
			Port:            v.GetInt("DB_PORT"),
			User:            v.GetString("DB_USER"),
			Password:        v.GetString("DB_PASSWORD"),
			DBName:          v.GetString("DB_NAME"),
			SSLMode:         v.GetString("DB_SSLMODE"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
		},
		JWTConfig: JWTConfig{
			Secret:   v.GetString("JWT_SECRET"),
			Issuer:   v.GetString("JWT_ISSUER"),
			TokenTTL: v.GetDuration("JWT_TTL"),
		},
		KafkaConfig: KafkaConfig{
			Enabled: v.GetBool("KAFKA_ENABLED"),
			Brokers: splitList(v.GetString("KAFKA_BROKERS")),
			GroupID: v.GetString("KAFKA_GROUP_ID"),
		},
		RedisConfig: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
			TTL:      v.GetDuration("AVAILABILITY_CACHE_TTL"),
		},
		Dispatcher: events.DispatcherConfig{
			QueueSize:       v.GetInt("NOTIFY_QUEUE_SIZE"),
			Workers:         v.GetInt("NOTIFY_WORKERS"),
			MaxRetries:      v.GetUint64("NOTIFY_MAX_RETRIES"),
			InitialInterval: v.GetDuration("NOTIFY_INITIAL_INTERVAL"),
			MaxInterval:     v.GetDuration("NOTIFY_MAX_INTERVAL"),
			PublishTimeout:  v.GetDuration("NOTIFY_PUBLISH_TIMEOUT"),
		},
	}

	switch cfg.StorageDriver {
	case StoragePostgres, StorageMemory:
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}

	if cfg.KafkaConfig.Enabled && len(cfg.KafkaConfig.Brokers) == 0 {
		return nil, fmt.Errorf("kafka is enabled but no brokers are configured")
	}

	hours, err := loadHours(v)
	if err != nil {
		return nil, err
	}
	cfg.Hours = hours

	return cfg, nil
}

func loadHours(v *viper.Viper) (schedule.OperatingRules, error) {
	open, err := schedule.ParseTimeOfDay(v.GetString("HOURS_OPEN"))
	if err != nil {
		return schedule.OperatingRules{}, fmt.Errorf("BOOKING_HOURS_OPEN: %w", err)
	}
	closeAt, err := schedule.ParseTimeOfDay(v.GetString("HOURS_CLOSE"))
	if err != nil {
		return schedule.OperatingRules{}, fmt.Errorf("BOOKING_HOURS_CLOSE: %w", err)
	}

	var closed []time.Weekday
	for _, name := range splitList(v.GetString("HOURS_CLOSED_DAYS")) {
		wd, err := parseWeekday(name)
		if err != nil {
			return schedule.OperatingRules{}, fmt.Errorf("BOOKING_HOURS_CLOSED_DAYS: %w", err)
		}
		closed = append(closed, wd)
	}

	rules := schedule.OperatingRules{
		Open:           open,
		Close:          closeAt,
		SlotMinutes:    v.GetInt("HOURS_SLOT_MINUTES"),
		ClosedWeekdays: closed,
	}
	if err := rules.Validate(); err != nil {
		return schedule.OperatingRules{}, fmt.Errorf("invalid business hours: %w", err)
	}
	return rules, nil
}

func parseWeekday(s string) (time.Weekday, error) {
	s = strings.ToLower(s)
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if s == name || s == name[:3] {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}

// splitList splits a comma-separated value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
