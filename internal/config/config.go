package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr    string
	DatabaseURL string
	Environment string

	JWTSecret string
	JWTExpiry time.Duration

	SendgridAPIKey    string
	SendgridFromEmail string
	SendgridFromName  string

	SMTPHost string
	SMTPPort string
	SMTPUser string
	SMTPPass string

	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string

	SwishBaseURL       string
	SwishPayeeAlias    string
	SwishCallbackURL   string
	QliroBaseURL       string
	QliroAPIKey        string
	QliroAPISecret     string
	QliroCallbackURL   string
	TempBookingTimeout time.Duration
	SettingsCacheTTL   time.Duration
	MigrationsDir      string
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Environment: getenv("ENV", "development"),

		JWTSecret: getenv("JWT_SECRET", "dev-secret"),
		JWTExpiry: getenvDuration("JWT_EXPIRY", 24*time.Hour),

		SendgridAPIKey:    os.Getenv("SENDGRID_API_KEY"),
		SendgridFromEmail: os.Getenv("SENDGRID_FROM_EMAIL"),
		SendgridFromName:  getenv("SENDGRID_FROM_NAME", "Din Trafikskola"),

		SMTPHost: os.Getenv("SMTP_HOST"),
		SMTPPort: getenv("SMTP_PORT", "587"),
		SMTPUser: os.Getenv("SMTP_USER"),
		SMTPPass: os.Getenv("SMTP_PASS"),

		TwilioAccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFromNumber: os.Getenv("TWILIO_FROM_NUMBER"),

		SwishBaseURL:     getenv("SWISH_BASE_URL", "https://mss.cpc.getswish.net/swish-cpcapi/api/v2"),
		SwishPayeeAlias:  os.Getenv("SWISH_PAYEE_ALIAS"),
		SwishCallbackURL: os.Getenv("SWISH_CALLBACK_URL"),
		QliroBaseURL:     getenv("QLIRO_BASE_URL", "https://pago.qit.nu"),
		QliroAPIKey:      os.Getenv("QLIRO_API_KEY"),
		QliroAPISecret:   os.Getenv("QLIRO_API_SECRET"),
		QliroCallbackURL: os.Getenv("QLIRO_CALLBACK_URL"),

		TempBookingTimeout: getenvDuration("TEMP_BOOKING_TIMEOUT", 15*time.Minute),
		SettingsCacheTTL:   getenvDuration("SETTINGS_CACHE_TTL", 5*time.Minute),
		MigrationsDir:      getenv("MIGRATIONS_DIR", "migrations"),
	}

	if cfg.DatabaseURL == "" {
		return nil, errMissing("DATABASE_URL")
	}
	return cfg, nil
}

type missingVarError string

func (e missingVarError) Error() string { return string(e) + " is required but not set" }

func errMissing(name string) error { return missingVarError(name) }

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}
