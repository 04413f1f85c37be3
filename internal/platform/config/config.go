package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config agrupa toda la configuración del servicio.
// Cada campo se puede setear por env (mismo nombre) o por config.yaml.
type Config struct {
	Port      string `mapstructure:"PORT"`
	AppName   string `mapstructure:"APP_NAME"`
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	DBDSN       string `mapstructure:"DB_DSN"`
	AutoMigrate bool   `mapstructure:"DB_AUTO_MIGRATE"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	JWTSecret string        `mapstructure:"JWT_SECRET"`
	TokenTTL  time.Duration `mapstructure:"TOKEN_TTL"`

	OdinBaseURL string `mapstructure:"ODIN_BASE_URL"`
	OdinAPIKey  string `mapstructure:"ODIN_API_KEY"`

	PlansBaseURL         string `mapstructure:"PLANS_BASE_URL"`
	PlansAPIKey          string `mapstructure:"PLANS_API_KEY"`
	AllowAllCapabilities bool   `mapstructure:"ALLOW_ALL_CAPABILITIES"`

	RoomBaseURL        string `mapstructure:"ROOM_BASE_URL"`
	ClinicTimezone     string `mapstructure:"CLINIC_TIMEZONE"`
	BookingHorizonDays int    `mapstructure:"BOOKING_HORIZON_DAYS"`
	DefaultProviderID  string `mapstructure:"DEFAULT_PROVIDER_ID"`

	RequestTimeout     time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	RateLimitPerMinute int           `mapstructure:"RATE_LIMIT_PER_MINUTE"`
	IdempotencyTTL     time.Duration `mapstructure:"IDEMPOTENCY_TTL"`

	AdminAPIKey string `mapstructure:"ADMIN_API_KEY"`
}

var defaults = map[string]any{
	"PORT":       "8080",
	"APP_NAME":   "furrchum-vet",
	"LOG_LEVEL":  "info",
	"LOG_FORMAT": "text",

	"DB_DSN":          "",
	"DB_AUTO_MIGRATE": true,

	"REDIS_ADDR":     "",
	"REDIS_PASSWORD": "",
	"REDIS_DB":       0,

	"JWT_SECRET": "",
	"TOKEN_TTL":  "24h",

	"ODIN_BASE_URL": "",
	"ODIN_API_KEY":  "",

	"PLANS_BASE_URL":         "",
	"PLANS_API_KEY":          "",
	"ALLOW_ALL_CAPABILITIES": false,

	"ROOM_BASE_URL":        "https://meet.furrchum.com",
	"CLINIC_TIMEZONE":      "UTC",
	"BOOKING_HORIZON_DAYS": 14,
	"DEFAULT_PROVIDER_ID":  "1",

	"REQUEST_TIMEOUT":       "10s",
	"RATE_LIMIT_PER_MINUTE": 120,
	"IDEMPOTENCY_TTL":       "24h",

	"ADMIN_API_KEY": "",
}

// Load lee .env (si existe), config.yaml (si existe) y variables de entorno.
// Prioridad: env > config.yaml > defaults.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()

	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("config: read file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Default devuelve la configuración por defecto sin leer env ni archivos.
// Pensado para tests y modo dev in-memory.
func Default() Config {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return cfg
}

func (c Config) Validate() error {
	if c.BookingHorizonDays <= 0 {
		return errors.New("config: BOOKING_HORIZON_DAYS must be > 0")
	}
	if _, err := time.LoadLocation(c.ClinicTimezone); err != nil {
		return fmt.Errorf("config: invalid CLINIC_TIMEZONE %q: %w", c.ClinicTimezone, err)
	}
	u, err := url.Parse(strings.TrimSpace(c.RoomBaseURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("config: ROOM_BASE_URL must be an absolute url, got %q", c.RoomBaseURL)
	}
	if c.RequestTimeout <= 0 {
		return errors.New("config: REQUEST_TIMEOUT must be > 0")
	}
	return nil
}

// Location devuelve la zona horaria de la clínica (UTC si no carga).
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.ClinicTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c Config) Addr() string {
	p := strings.TrimSpace(c.Port)
	if p == "" {
		p = "8080"
	}
	return ":" + strings.TrimPrefix(p, ":")
}
