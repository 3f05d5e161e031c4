package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server      ServerConfig
	Postgres    PostgresConfig
	Redis       RedisConfig
	RabbitMQ    RabbitMQConfig
	Auth        AuthConfig
	Restaurant  RestaurantConfig
	Log         LogConfig
	Bootstrap   BootstrapConfig
	MigrateOnUp bool
}

type ServerConfig struct {
	Host string
	Port int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type PostgresConfig struct {
	User     string
	Password string
	Name     string
	Host     string
	Port     int
	SSLMode  string
	MaxConns int32
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Name,
		c.SSLMode,
	)
}

// RabbitMQConfig is optional; an empty URL disables event publishing.
type RabbitMQConfig struct {
	URL string
}

type AuthConfig struct {
	JWTSecret string
	JWTTTL    time.Duration
}

type RestaurantConfig struct {
	Location *time.Location
	// ReservationSlot is zero for calendar-day slots.
	ReservationSlot time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

type BootstrapConfig struct {
	AdminLogin    string
	AdminPassword string
}

func New() (*Config, error) {
	const op = "config.New"

	_ = godotenv.Load()

	serverPort, err := intEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	serverCfg := ServerConfig{
		Host: envOr("SERVER_HOST", "localhost"),
		Port: serverPort,
	}

	postgresPort, err := intEnv("POSTGRES_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	postgresUser := os.Getenv("POSTGRES_USER")
	if postgresUser == "" {
		return nil, fmt.Errorf("%s: missing POSTGRES_USER", op)
	}

	postgresPassword := os.Getenv("POSTGRES_PASSWORD")
	if postgresPassword == "" {
		return nil, fmt.Errorf("%s: missing POSTGRES_PASSWORD", op)
	}

	postgresDB := os.Getenv("POSTGRES_DB")
	if postgresDB == "" {
		return nil, fmt.Errorf("%s: missing POSTGRES_DB", op)
	}

	maxConns, err := intEnv("POSTGRES_MAX_CONNS", 0)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	postgresCfg := PostgresConfig{
		User:     postgresUser,
		Password: postgresPassword,
		Name:     postgresDB,
		Host:     envOr("POSTGRES_HOST", "localhost"),
		Port:     postgresPort,
		SSLMode:  envOr("POSTGRES_SSLMODE", "disable"),
		MaxConns: int32(maxConns),
	}

	redisDB, err := intEnv("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	redisCfg := RedisConfig{
		Addr:     envOr("REDIS_ADDR", "localhost:6379"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       redisDB,
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("%s: missing JWT_SECRET", op)
	}

	jwtTTL, err := durationEnv("JWT_TTL", 12*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	loc, err := time.LoadLocation(envOr("RESTAURANT_TZ", "Local"))
	if err != nil {
		return nil, fmt.Errorf("%s: invalid RESTAURANT_TZ: %w", op, err)
	}

	slot, err := ParseSlot(os.Getenv("RESERVATION_SLOT"))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	migrate, err := boolEnv("MIGRATE_ON_START", true)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Config{
		Server:   serverCfg,
		Postgres: postgresCfg,
		Redis:    redisCfg,
		RabbitMQ: RabbitMQConfig{URL: os.Getenv("RABBITMQ_URL")},
		Auth: AuthConfig{
			JWTSecret: jwtSecret,
			JWTTTL:    jwtTTL,
		},
		Restaurant: RestaurantConfig{
			Location:        loc,
			ReservationSlot: slot,
		},
		Log: LogConfig{
			Level:  strings.ToLower(envOr("LOG_LEVEL", "info")),
			Format: strings.ToLower(envOr("LOG_FORMAT", "text")),
		},
		Bootstrap: BootstrapConfig{
			AdminLogin:    os.Getenv("BOOTSTRAP_ADMIN_LOGIN"),
			AdminPassword: os.Getenv("BOOTSTRAP_ADMIN_PASSWORD"),
		},
		MigrateOnUp: migrate,
	}, nil
}

// ParseSlot reads RESERVATION_SLOT: empty or "day" selects calendar-day slots,
// anything else must be a positive Go duration.
func ParseSlot(s string) (time.Duration, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" || s == "day" {
		return 0, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid RESERVATION_SLOT: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid RESERVATION_SLOT: must be positive")
	}

	return d, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}

	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}

	v, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func boolEnv(key string, def bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}

	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}
