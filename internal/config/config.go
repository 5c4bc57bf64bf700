// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/jason-s-yu/oldskool/internal/auth"
	"github.com/jason-s-yu/oldskool/internal/cache"
	"github.com/sirupsen/logrus"
)

// Config is everything the server and historian read from the environment.
type Config struct {
	Port     string
	LogLevel logrus.Level

	Postgres  Postgres
	DisableDB bool

	RedisAddr    string
	RedisDB      int
	DisableRedis bool

	QueueName         string
	BatchSize         int
	FlushInterval     time.Duration
	InactivityTimeout time.Duration

	// JWT key files; both empty means a fresh key pair per process.
	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	TokenTTL          time.Duration
	TurnTimerSec      int
}

// Postgres holds the connection settings for the pool.
type Postgres struct {
	User     string
	Password string
	Host     string
	Port     string
	Database string
}

// DSN renders a postgres:// connection string.
func (p Postgres) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(p.User, p.Password),
		Host:   p.Host + ":" + p.Port,
		Path:   "/" + p.Database,
	}
	return u.String()
}

// Load reads the environment, applying defaults for anything unset. A value that is set but
// malformed is an error.
func Load() (Config, error) {
	var errs []error
	intVar := func(key string, def int) int {
		v, err := getEnvInt(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}
	boolVar := func(key string) bool {
		v, err := getEnvBool(key)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}

	cfg := Config{
		Port: getEnv("PORT", "8080"),
		Postgres: Postgres{
			User:     getEnv("POSTGRES_USER", "postgres"),
			Password: getEnv("POSTGRES_PASSWORD", ""),
			Host:     getEnv("PG_HOST", "localhost"),
			Port:     getEnv("PG_PORT", "5432"),
			Database: getEnv("PG_DATABASE", "oldskool"),
		},
		DisableDB:         boolVar("DISABLE_DB"),
		RedisAddr:         getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:           intVar("REDIS_DB", 0),
		DisableRedis:      boolVar("DISABLE_REDIS"),
		QueueName:         getEnv("HISTORIAN_QUEUE_NAME", cache.DefaultQueueName),
		BatchSize:         intVar("HISTORIAN_BATCH_SIZE", 20),
		FlushInterval:     time.Duration(intVar("HISTORIAN_FLUSH_MS", 500)) * time.Millisecond,
		InactivityTimeout: time.Duration(intVar("MATCH_INACTIVITY_TIMEOUT_SEC", 600)) * time.Second,
		TurnTimerSec:      intVar("TURN_TIMER_SEC", 30),
		JWTPrivateKeyPath: os.Getenv("JWT_PRIVATE_KEY_PATH"),
		JWTPublicKeyPath:  os.Getenv("JWT_PUBLIC_KEY_PATH"),
	}

	level, err := logrus.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		errs = append(errs, err)
	}
	cfg.LogLevel = level

	cfg.TokenTTL, err = auth.ParseTokenTTL(os.Getenv("TOKEN_EXPIRE_TIME"))
	if err != nil {
		errs = append(errs, err)
	}

	if cfg.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("HISTORIAN_BATCH_SIZE must be positive"))
	}
	if (cfg.JWTPrivateKeyPath == "") != (cfg.JWTPublicKeyPath == "") {
		errs = append(errs, fmt.Errorf("JWT_PRIVATE_KEY_PATH and JWT_PUBLIC_KEY_PATH must be set together"))
	}
	if cfg.TurnTimerSec < 0 {
		errs = append(errs, fmt.Errorf("TURN_TIMER_SEC must not be negative"))
	}

	if len(errs) > 0 {
		return cfg, fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return cfg, nil
}

// getEnv retrieves an environment variable's value or returns a default.
func getEnv(key, defVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defVal
}

func getEnvInt(key string, defVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defVal, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defVal, fmt.Errorf("%s: %w", key, err)
	}
	return i, nil
}

func getEnvBool(key string) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}
