// Package config loads process settings from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	// Used only when ADMIN_PASSWORD is unset outside production.
	FallbackAdminPassword = "admin123"
)

type Config struct {
	Env  string `env:"APP_ENV,default=development"`
	Port string `env:"PORT,default=3000"`

	DBDriver    string `env:"DB_DRIVER"`
	DatabaseURL string `env:"DATABASE_URL"`
	SQLitePath  string `env:"SQLITE_PATH,default=clinic.db"`

	JWTSecret     string `env:"JWT_SECRET"`
	AdminUsername string `env:"ADMIN_USERNAME,default=admin"`
	AdminPassword string `env:"ADMIN_PASSWORD"`

	EmailUser string `env:"EMAIL_USER"`
	EmailPass string `env:"EMAIL_PASS"`
	SMTPHost  string `env:"SMTP_HOST,default=smtp.gmail.com"`
	SMTPPort  int    `env:"SMTP_PORT,default=587"`

	ClinicName     string `env:"CLINIC_NAME,default=Dr. Vanshika Physiotherapy"`
	ClinicLocation string `env:"CLINIC_LOCATION,default=Hadapsar Physiotherapy Clinic / Medizen Clinic"`
	ClinicDoctor   string `env:"CLINIC_DOCTOR,default=Dr. Vanshika Naik"`

	StaticDir   string  `env:"STATIC_DIR"`
	CORSOrigins string  `env:"CORS_ORIGINS,default=*"`
	LoginRate   float64 `env:"LOGIN_RATE,default=5"`
	LoginBurst  int     `env:"LOGIN_BURST,default=10"`
	// public booking form, kept apart from the admin login budget
	BookingRate  float64 `env:"BOOKING_RATE,default=1"`
	BookingBurst int     `env:"BOOKING_BURST,default=5"`

	ReminderCron string `env:"REMINDER_CRON"`
	GRPCPort     string `env:"GRPC_PORT"`

	LogLevel  string `env:"LOG_LEVEL,default=info"`
	LogFormat string `env:"LOG_FORMAT,default=text"`

	// set by Load when AdminPassword was empty
	AdminPasswordDefaulted bool
	// set by Load when DBDriver was inferred from DATABASE_URL
	DBDriverInferred bool
}

// Load reads .env (if present) and the environment. The backend driver is
// resolved here, once, and never re-evaluated.
func Load(envFiles ...string) (*Config, error) {
	_ = godotenv.Load(envFiles...)

	c := &Config{}
	if err := envdecode.Decode(c); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("config: %w", err)
	}

	c.DBDriver = strings.ToLower(strings.TrimSpace(c.DBDriver))
	if c.DBDriver == "" {
		c.DBDriverInferred = true
		if c.DatabaseURL != "" {
			c.DBDriver = DriverPostgres
		} else {
			c.DBDriver = DriverSQLite
		}
	}
	if c.AdminPassword == "" {
		c.AdminPassword = FallbackAdminPassword
		c.AdminPasswordDefaulted = true
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) Production() bool {
	return strings.EqualFold(c.Env, "production")
}

func (c *Config) MailConfigured() bool {
	return c.EmailUser != "" && c.EmailPass != ""
}

// Origins splits CORS_ORIGINS on commas.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func (c *Config) Validate() error {
	switch c.DBDriver {
	case DriverSQLite:
		if c.SQLitePath == "" {
			return errors.New("config: SQLITE_PATH is empty")
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("config: DB_DRIVER=postgres requires DATABASE_URL")
		}
	default:
		return fmt.Errorf("config: unknown DB_DRIVER %q", c.DBDriver)
	}
	if c.Production() {
		if c.JWTSecret == "" {
			return errors.New("config: JWT_SECRET is required in production")
		}
		if c.AdminPasswordDefaulted {
			return errors.New("config: ADMIN_PASSWORD is required in production")
		}
	}
	if c.LoginRate <= 0 || c.LoginBurst <= 0 {
		return errors.New("config: LOGIN_RATE and LOGIN_BURST must be positive")
	}
	if c.BookingRate <= 0 || c.BookingBurst <= 0 {
		return errors.New("config: BOOKING_RATE and BOOKING_BURST must be positive")
	}
	return nil
}
