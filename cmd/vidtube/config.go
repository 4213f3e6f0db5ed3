package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/nkiryanov/vidtube/internal/logger"
)

const (
	defaultListenAddr   = "localhost:8000"
	defaultLoggingLevel = logger.LevelInfo
	defaultEnvironment  = logger.EnvProduction
	defaultAccessTTL    = 15 * time.Minute
	defaultRefreshTTL   = 10 * 24 * time.Hour
	defaultMediaRegion  = "us-east-1"
	defaultMediaPrefix  = "users"
)

type Config struct {
	// Default logging level
	LogLevel string

	// Address on which the vidtube service will be run
	ListenAddr string

	// Database to connect to
	DatabaseDSN string

	// Environment: dev or prod
	Environment string

	// Tokens are signed with different keys, so refresh token can't be used as access one
	AccessTokenSecret  string
	AccessTokenExpiry  time.Duration
	RefreshTokenSecret string
	RefreshTokenExpiry time.Duration

	// Drop 'Secure' cookie attribute. Never enable it in production
	CookieInsecure bool

	// S3 compatible media host
	MediaEndpoint  string
	MediaRegion    string
	MediaBucket    string
	MediaAccessKey string
	MediaSecretKey string
	MediaPublicURL string
	MediaPrefix    string
}

func NewConfig() *Config {
	return &Config{
		LogLevel:           defaultLoggingLevel,
		ListenAddr:         defaultListenAddr,
		Environment:        defaultEnvironment,
		AccessTokenExpiry:  defaultAccessTTL,
		RefreshTokenExpiry: defaultRefreshTTL,
		MediaRegion:        defaultMediaRegion,
		MediaPrefix:        defaultMediaPrefix,
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
		return c.LoadEnv(func(key string) string {
			return envMap[key]
		})
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) error {
	// Set option to value if it not empty
	setString := func(o *string) func(value string) error {
		return func(value string) error {
			if value != "" {
				*o = value
			}
			return nil
		}
	}
	setDuration := func(o *time.Duration) func(value string) error {
		return func(value string) error {
			if value == "" {
				return nil
			}
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			*o = d
			return nil
		}
	}
	setBool := func(o *bool) func(value string) error {
		return func(value string) error {
			if value == "" {
				return nil
			}
			b, err := strconv.ParseBool(value)
			if err != nil {
				return err
			}
			*o = b
			return nil
		}
	}

	envMap := map[string]func(string) error{
		"RUN_ADDRESS":          setString(&c.ListenAddr),
		"DATABASE_URI":         setString(&c.DatabaseDSN),
		"LOG_LEVEL":            setString(&c.LogLevel),
		"ENVIRONMENT":          setString(&c.Environment),
		"ACCESS_TOKEN_SECRET":  setString(&c.AccessTokenSecret),
		"ACCESS_TOKEN_EXPIRY":  setDuration(&c.AccessTokenExpiry),
		"REFRESH_TOKEN_SECRET": setString(&c.RefreshTokenSecret),
		"REFRESH_TOKEN_EXPIRY": setDuration(&c.RefreshTokenExpiry),
		"COOKIE_INSECURE":      setBool(&c.CookieInsecure),
		"MEDIA_ENDPOINT":       setString(&c.MediaEndpoint),
		"MEDIA_REGION":         setString(&c.MediaRegion),
		"MEDIA_BUCKET":         setString(&c.MediaBucket),
		"MEDIA_ACCESS_KEY":     setString(&c.MediaAccessKey),
		"MEDIA_SECRET_KEY":     setString(&c.MediaSecretKey),
		"MEDIA_PUBLIC_URL":     setString(&c.MediaPublicURL),
	}

	var errs []error
	for key, parseFn := range envMap {
		if err := parseFn(getenv(key)); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
	}

	return errors.Join(errs...)
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("vidtube", pflag.ContinueOnError)

	fs.StringVarP(&c.ListenAddr, "address", "a", c.ListenAddr, "Server listen address")
	fs.StringVarP(&c.DatabaseDSN, "database", "d", c.DatabaseDSN, "Database connection string")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, prod)")
	fs.StringVar(&c.AccessTokenSecret, "access-secret", c.AccessTokenSecret, "Access token signing secret")
	fs.DurationVar(&c.AccessTokenExpiry, "access-expiry", c.AccessTokenExpiry, "Access token lifetime")
	fs.StringVar(&c.RefreshTokenSecret, "refresh-secret", c.RefreshTokenSecret, "Refresh token signing secret")
	fs.DurationVar(&c.RefreshTokenExpiry, "refresh-expiry", c.RefreshTokenExpiry, "Refresh token lifetime")
	fs.BoolVar(&c.CookieInsecure, "cookie-insecure", c.CookieInsecure, "Send auth cookies over plain http (development only)")
	fs.StringVar(&c.MediaEndpoint, "media-endpoint", c.MediaEndpoint, "S3 compatible media host endpoint")
	fs.StringVar(&c.MediaRegion, "media-region", c.MediaRegion, "Media host region")
	fs.StringVar(&c.MediaBucket, "media-bucket", c.MediaBucket, "Media bucket")
	fs.StringVar(&c.MediaAccessKey, "media-access-key", c.MediaAccessKey, "Media host access key")
	fs.StringVar(&c.MediaSecretKey, "media-secret-key", c.MediaSecretKey, "Media host secret key")
	fs.StringVar(&c.MediaPublicURL, "media-public-url", c.MediaPublicURL, "Base URL media assets are served from")

	return fs.Parse(args)
}

func (c *Config) Validate() error {
	switch {
	case c.AccessTokenSecret == "" || c.RefreshTokenSecret == "":
		return errors.New("access and refresh token secrets must be set")
	case c.AccessTokenSecret == c.RefreshTokenSecret:
		return errors.New("access and refresh token secrets must differ")
	case c.AccessTokenExpiry <= 0 || c.RefreshTokenExpiry <= 0:
		return errors.New("token expiry must be positive")
	case c.DatabaseDSN == "":
		return errors.New("database DSN must be set")
	case c.MediaEndpoint == "" || c.MediaBucket == "":
		return errors.New("media endpoint and bucket must be set")
	}
	return nil
}
