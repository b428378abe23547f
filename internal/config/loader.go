// Package config loads service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Prefix is prepended to every environment variable the loader reads.
const Prefix = "BOOKING_"

// DefaultEnvFiles are consulted, in order, when Load is called without paths.
var DefaultEnvFiles = []string{".env.local", ".env"}

// SMTPConfig describes the mail relay and the optional system mailbox.
type SMTPConfig struct {
	Host       string
	Port       int
	User       string
	Pass       string
	Timeout    time.Duration
	SkipVerify bool
}

// Config captures environment driven configuration values for the booking service.
type Config struct {
	HTTPPort        int
	SQLitePath      string
	Location        *time.Location
	LogLevel        slog.Level
	CredentialKey   string
	RedisURL        string
	AMQPURL         string
	AMQPExchange    string
	SMTP            SMTPConfig
	LockTTL         time.Duration
	AvailabilityTTL time.Duration
}

// Load reads configuration from the process environment after seeding it
// from the given dotenv files. Variables already present in the environment
// win over file values, and missing files are skipped. With no paths,
// DefaultEnvFiles are used.
//
// Every missing and invalid key is reported in a single error.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = DefaultEnvFiles
	}
	for _, path := range envFiles {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	cfg := Config{
		HTTPPort:     8080,
		SQLitePath:   "booking.db",
		LogLevel:     slog.LevelInfo,
		AMQPExchange: "booking.events",
		SMTP: SMTPConfig{
			Host:    "smtp.139.com",
			Port:    465,
			Timeout: 10 * time.Second,
		},
		LockTTL:         10 * time.Second,
		AvailabilityTTL: time.Minute,
	}

	var missing, invalid []string

	if v := lookup("HTTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, Prefix+"HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if v := lookup("SQLITE_PATH"); v != "" {
		cfg.SQLitePath = v
	}

	timezone := "Asia/Shanghai"
	if v := lookup("TIMEZONE"); v != "" {
		timezone = v
	}
	if loc, err := time.LoadLocation(timezone); err != nil {
		if timezone == "Asia/Shanghai" {
			// Hosts without tzdata still get the fixed UTC+8 locale.
			cfg.Location = time.FixedZone("CST", 8*60*60)
		} else {
			invalid = append(invalid, Prefix+"TIMEZONE")
		}
	} else {
		cfg.Location = loc
	}

	if v := lookup("LOG_LEVEL"); v != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			invalid = append(invalid, Prefix+"LOG_LEVEL")
		}
	}

	if v := lookup("CREDENTIAL_KEY"); v == "" {
		missing = append(missing, Prefix+"CREDENTIAL_KEY")
	} else {
		cfg.CredentialKey = v
	}

	cfg.RedisURL = lookup("REDIS_URL")
	cfg.AMQPURL = lookup("AMQP_URL")
	if v := lookup("AMQP_EXCHANGE"); v != "" {
		cfg.AMQPExchange = v
	}

	if v := lookup("SMTP_HOST"); v != "" {
		cfg.SMTP.Host = v
	}
	if v := lookup("SMTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, Prefix+"SMTP_PORT")
		} else {
			cfg.SMTP.Port = port
		}
	}
	cfg.SMTP.User = lookup("SMTP_USER")
	cfg.SMTP.Pass = os.Getenv(Prefix + "SMTP_PASS")
	if v := lookup("SMTP_SKIP_VERIFY"); v != "" {
		skip, err := strconv.ParseBool(v)
		if err != nil {
			invalid = append(invalid, Prefix+"SMTP_SKIP_VERIFY")
		} else {
			cfg.SMTP.SkipVerify = skip
		}
	}

	parseDuration := func(key string, target *time.Duration) {
		v := lookup(key)
		if v == "" {
			return
		}
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			invalid = append(invalid, Prefix+key)
			return
		}
		*target = d
	}
	parseDuration("SMTP_TIMEOUT", &cfg.SMTP.Timeout)
	parseDuration("LOCK_TTL", &cfg.LockTTL)
	parseDuration("AVAILABILITY_TTL", &cfg.AvailabilityTTL)

	var problems []string
	if len(missing) > 0 {
		problems = append(problems, "missing required variables: "+strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		problems = append(problems, "invalid values: "+strings.Join(invalid, ", "))
	}
	if len(problems) > 0 {
		return Config{}, fmt.Errorf("config: %s", strings.Join(problems, "; "))
	}

	return cfg, nil
}

func lookup(key string) string {
	return strings.TrimSpace(os.Getenv(Prefix + key))
}
