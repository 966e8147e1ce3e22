package main

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/Alekaz94/catholic-daily-companion/internal/logger"
)

const (
	defaultListenAddr   = "localhost:8000"
	defaultLoggingLevel = logger.LevelInfo
	defaultEnvironment  = logger.EnvProduction
	defaultGoogleIssuer = "https://accounts.google.com"
)

type Config struct {
	// Default logging level
	LogLevel string

	// Address on which the companion service will be run
	ListenAddr string

	// Database to connect to
	DatabaseDSN string

	// Secret key
	// Access tokens are signed symmetrically, so this key is used for that purpose
	SecretKey string

	// Environment
	Environment string

	// Access and refresh token lifetimes. Zero means service defaults
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// Federated login. Google login is disabled when the client id is empty
	GoogleIssuer   string
	GoogleClientID string

	// Rate limiter tiers. Zero means limiter defaults
	AuthRateCapacity      int
	AuthRatePerMinute     float64
	StandardRateCapacity  int
	StandardRatePerMinute float64
	SweepInterval         time.Duration
	SweepHighWater        float64
}

func NewConfig() *Config {
	return &Config{
		LogLevel:     defaultLoggingLevel,
		ListenAddr:   defaultListenAddr,
		Environment:  defaultEnvironment,
		GoogleIssuer: defaultGoogleIssuer,
	}
}

// Load variable from '.env' file (should be located at working directory)
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		c.LoadEnv(func(key string) string {
			return envMap[key]
		})
		return nil
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) {
	// Set option to value if it not empty
	setString := func(o *string) func(value string) {
		return func(value string) {
			if value != "" {
				*o = value
			}
		}
	}
	setDuration := func(o *time.Duration) func(value string) {
		return func(value string) {
			if d, err := time.ParseDuration(value); err == nil {
				*o = d
			}
		}
	}
	setFloat := func(o *float64) func(value string) {
		return func(value string) {
			if f, err := strconv.ParseFloat(value, 64); err == nil {
				*o = f
			}
		}
	}
	setInt := func(o *int) func(value string) {
		return func(value string) {
			if n, err := strconv.Atoi(value); err == nil {
				*o = n
			}
		}
	}

	envMap := map[string]func(string){
		"RUN_ADDRESS":              setString(&c.ListenAddr),
		"DATABASE_URI":             setString(&c.DatabaseDSN),
		"SECRET_KEY":               setString(&c.SecretKey),
		"LOG_LEVEL":                setString(&c.LogLevel),
		"ENVIRONMENT":              setString(&c.Environment),
		"ACCESS_TOKEN_TTL":         setDuration(&c.AccessTokenTTL),
		"REFRESH_TOKEN_TTL":        setDuration(&c.RefreshTokenTTL),
		"GOOGLE_ISSUER":            setString(&c.GoogleIssuer),
		"GOOGLE_CLIENT_ID":         setString(&c.GoogleClientID),
		"RATE_AUTH_CAPACITY":       setInt(&c.AuthRateCapacity),
		"RATE_AUTH_PER_MINUTE":     setFloat(&c.AuthRatePerMinute),
		"RATE_STANDARD_CAPACITY":   setInt(&c.StandardRateCapacity),
		"RATE_STANDARD_PER_MINUTE": setFloat(&c.StandardRatePerMinute),
		"RATE_SWEEP_INTERVAL":      setDuration(&c.SweepInterval),
		"RATE_SWEEP_HIGH_WATER":    setFloat(&c.SweepHighWater),
	}

	for key, parseFn := range envMap {
		parseFn(getenv(key))
	}
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("companion", pflag.ContinueOnError)

	fs.StringVarP(&c.ListenAddr, "address", "a", c.ListenAddr, "Server listen address")
	fs.StringVarP(&c.DatabaseDSN, "database", "d", c.DatabaseDSN, "Database connection string")
	fs.StringVarP(&c.SecretKey, "secret-key", "s", c.SecretKey, "Secret key")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, prod)")
	fs.DurationVar(&c.AccessTokenTTL, "access-ttl", c.AccessTokenTTL, "Access token lifetime")
	fs.DurationVar(&c.RefreshTokenTTL, "refresh-ttl", c.RefreshTokenTTL, "Refresh token lifetime")
	fs.StringVar(&c.GoogleIssuer, "google-issuer", c.GoogleIssuer, "Google OIDC issuer")
	fs.StringVar(&c.GoogleClientID, "google-client-id", c.GoogleClientID, "Google OAuth client id")

	return fs.Parse(args)
}
