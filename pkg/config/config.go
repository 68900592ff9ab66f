package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Environment string
	LogLevel    string
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Postcodes   PostcodesConfig
	Routing     RoutingConfig
	Business    BusinessConfig
	Booking     BookingConfig
	OTEL        OTELConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowedOrigins []string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// PostcodesConfig holds postcode lookup configuration
type PostcodesConfig struct {
	// Provider is "postcodesio" or "mock"
	Provider string
	BaseURL  string
	Timeout  time.Duration
}

// RoutingConfig holds driving route provider configuration
type RoutingConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// BusinessConfig holds the scheduling constants
type BusinessConfig struct {
	OfficePostcode             string
	DefaultTravelSpeedKmh      float64
	AppointmentDurationMinutes int
	MinimumTravelMinutes       int
	RoadDetourFactor           float64
	Timezone                   string
}

// BookingConfig controls serialization of concurrent bookings
type BookingConfig struct {
	LockEnabled bool
	LockTTL     time.Duration
	LockWait    time.Duration
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", ""),
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnvAsInt("DB_PORT", 5432),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", ""),
			Database:     getEnv("DB_NAME", "viewing_scheduler"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Postcodes: PostcodesConfig{
			Provider: getEnv("POSTCODE_PROVIDER", "postcodesio"),
			BaseURL:  getEnv("POSTCODES_API_URL", "https://api.postcodes.io"),
			Timeout:  getEnvAsDuration("POSTCODES_API_TIMEOUT", 5*time.Second),
		},
		Routing: RoutingConfig{
			BaseURL: getEnv("OPENROUTE_API_URL", "https://api.openrouteservice.org"),
			APIKey:  getEnv("OPENROUTE_API_KEY", ""),
			Timeout: getEnvAsDuration("OPENROUTE_API_TIMEOUT", 10*time.Second),
		},
		Business: BusinessConfig{
			OfficePostcode:             getEnv("OFFICE_POSTCODE", "SW1A 1AA"),
			DefaultTravelSpeedKmh:      getEnvAsFloat("DEFAULT_TRAVEL_SPEED_KMH", 30),
			AppointmentDurationMinutes: getEnvAsInt("APPOINTMENT_DURATION_MINUTES", 60),
			MinimumTravelMinutes:       getEnvAsInt("MINIMUM_TRAVEL_MINUTES", 5),
			RoadDetourFactor:           getEnvAsFloat("ROAD_DETOUR_FACTOR", 1.3),
			Timezone:                   getEnv("BUSINESS_TIMEZONE", "Europe/London"),
		},
		Booking: BookingConfig{
			LockEnabled: getEnvAsBool("BOOKING_LOCK_ENABLED", true),
			LockTTL:     getEnvAsDuration("BOOKING_LOCK_TTL", 10*time.Second),
			LockWait:    getEnvAsDuration("BOOKING_LOCK_WAIT", 3*time.Second),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "viewing-scheduler"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would make scheduling meaningless.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Business.OfficePostcode) == "" {
		return fmt.Errorf("OFFICE_POSTCODE must be set")
	}
	if c.Business.DefaultTravelSpeedKmh <= 0 {
		return fmt.Errorf("DEFAULT_TRAVEL_SPEED_KMH must be positive, got %v", c.Business.DefaultTravelSpeedKmh)
	}
	if c.Business.AppointmentDurationMinutes <= 0 {
		return fmt.Errorf("APPOINTMENT_DURATION_MINUTES must be positive, got %d", c.Business.AppointmentDurationMinutes)
	}
	if c.Business.MinimumTravelMinutes < 0 {
		return fmt.Errorf("MINIMUM_TRAVEL_MINUTES must not be negative, got %d", c.Business.MinimumTravelMinutes)
	}
	if c.Business.RoadDetourFactor < 1 {
		return fmt.Errorf("ROAD_DETOUR_FACTOR must be at least 1, got %v", c.Business.RoadDetourFactor)
	}
	if _, err := time.LoadLocation(c.Business.Timezone); err != nil {
		return fmt.Errorf("BUSINESS_TIMEZONE %q: %w", c.Business.Timezone, err)
	}
	switch c.Postcodes.Provider {
	case "postcodesio", "mock":
	default:
		return fmt.Errorf("POSTCODE_PROVIDER must be postcodesio or mock, got %q", c.Postcodes.Provider)
	}
	return nil
}

// Location returns the business timezone, falling back to UTC.
func (c *BusinessConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// AppointmentDuration returns the on-site duration of a viewing
func (c *BusinessConfig) AppointmentDuration() time.Duration {
	return time.Duration(c.AppointmentDurationMinutes) * time.Minute
}

// IsDevelopment reports whether the service runs in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("5s") or a bare number of milliseconds.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(value); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
