package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"trainer-scheduler/internal/scheduling"
)

type Config struct {
	Environment string
	Port        string

	TrainerEmail string
	CalendarID   string
	Timezone     string
	Location     *time.Location

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	CredentialsFile    string

	DatabaseURL string

	RedisURL string
	HoldTTL  time.Duration

	KafkaBrokers string
	KafkaTopic   string

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	JWTSecret    string
	StaticTokens []string

	ServicesFile string
	Services     []scheduling.Service
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	// a missing .env is fine
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment:        String("ENV", "development"),
		Port:               String("PORT", "8080"),
		TrainerEmail:       strings.TrimSpace(os.Getenv("TRAINER_EMAIL")),
		CalendarID:         String("GOOGLE_CALENDAR_ID", "primary"),
		Timezone:           String("SCHEDULING_TIMEZONE", "Asia/Jerusalem"),
		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURL:  os.Getenv("GOOGLE_REDIRECT_URL"),
		CredentialsFile:    String("CREDENTIALS_FILE", "google-tokens.json"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisURL:           os.Getenv("REDIS_URL"),
		KafkaBrokers:       os.Getenv("KAFKA_BROKERS"),
		KafkaTopic:         String("KAFKA_NOTIFICATIONS_TOPIC", "booking.notifications"),
		SMTPHost:           os.Getenv("SMTP_HOST"),
		SMTPPort:           String("SMTP_PORT", "587"),
		SMTPUsername:       os.Getenv("SMTP_USERNAME"),
		SMTPPassword:       os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:           os.Getenv("SMTP_FROM"),
		JWTSecret:          strings.TrimSpace(os.Getenv("JWT_HMAC_SECRET")),
		ServicesFile:       os.Getenv("SERVICES_FILE"),
	}

	for _, t := range strings.Split(os.Getenv("STATIC_TOKENS"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			cfg.StaticTokens = append(cfg.StaticTokens, t)
		}
	}

	p, err := strconv.Atoi(cfg.Port)
	if err != nil || p < 1 || p > 65535 {
		return nil, fmt.Errorf("PORT must be a valid TCP port (got %q)", cfg.Port)
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("SCHEDULING_TIMEZONE: %w", err)
	}
	cfg.Location = loc

	cfg.HoldTTL = 10 * time.Minute
	if v := os.Getenv("SLOT_HOLD_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("SLOT_HOLD_TTL must be a positive duration (got %q)", v)
		}
		cfg.HoldTTL = d
	}

	cfg.Services = scheduling.DefaultServices
	if cfg.ServicesFile != "" {
		services, err := LoadServices(cfg.ServicesFile)
		if err != nil {
			return nil, err
		}
		cfg.Services = services
	}
	return cfg, nil
}

type servicesFile struct {
	Services []scheduling.Service `yaml:"services"`
}

// LoadServices reads a YAML services catalog.
func LoadServices(path string) ([]scheduling.Service, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read services file: %w", err)
	}
	var f servicesFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse services file: %w", err)
	}
	if len(f.Services) == 0 {
		return nil, fmt.Errorf("services file %s defines no services", path)
	}
	if _, err := scheduling.NewCatalog(f.Services); err != nil {
		return nil, fmt.Errorf("services file %s: %w", path, err)
	}
	return f.Services, nil
}

func String(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}
