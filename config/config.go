// Package config loads server settings from defaults, the environment and
// command-line flags, in that order.
package config

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/freekieb7/docserve/http"
)

const ServiceName = "docserve"

var (
	ErrInvalidPort     = errors.New("config: port must be between 1 and 65535")
	ErrInvalidLimit    = errors.New("config: limits must be positive")
	ErrInvalidTimeout  = errors.New("config: timeouts must be positive")
	ErrEmptyDocRoot    = errors.New("config: document root must not be empty")
	ErrInvalidLogLevel = errors.New("config: unknown log level")
)

type Config struct {
	Host    string
	Port    int
	DocRoot string

	MaxHeaderBytes int
	MaxBodyBytes   int64
	HeaderTimeout  time.Duration
	BodyTimeout    time.Duration
	ReusePort      bool

	GracePeriod time.Duration
	LogLevel    string

	OTLPEndpoint string
	OTLPInsecure bool
}

func Default() Config {
	return Config{
		Host:           "0.0.0.0",
		Port:           8080,
		DocRoot:        "./public",
		MaxHeaderBytes: http.DefaultMaxHeaderBytes,
		HeaderTimeout:  http.DefaultHeaderTimeout,
		BodyTimeout:    http.DefaultBodyTimeout,
		GracePeriod:    10 * time.Second,
		LogLevel:       "info",
	}
}

// Load reads the environment through getenv and then parses args (without
// the program name). Flags win over the environment.
func Load(args []string, getenv func(string) string) (Config, error) {
	cfg := Default()
	if err := cfg.fromEnv(getenv); err != nil {
		return Config{}, err
	}

	fs := flag.NewFlagSet(ServiceName, flag.ContinueOnError)
	fs.StringVar(&cfg.Host, "host", cfg.Host, "interface to listen on")
	fs.IntVar(&cfg.Port, "port", cfg.Port, "port to listen on")
	fs.StringVar(&cfg.DocRoot, "root", cfg.DocRoot, "document root")
	fs.IntVar(&cfg.MaxHeaderBytes, "max-header-bytes", cfg.MaxHeaderBytes, "header section cap in bytes")
	fs.Int64Var(&cfg.MaxBodyBytes, "max-body-bytes", cfg.MaxBodyBytes, "declared body cap in bytes, 0 for no cap")
	fs.Var(durationValue{&cfg.HeaderTimeout}, "header-timeout", "time allowed for the header section")
	fs.Var(durationValue{&cfg.BodyTimeout}, "body-timeout", "time allowed for the body")
	fs.Var(durationValue{&cfg.GracePeriod}, "grace-period", "time allowed for in-flight connections on shutdown")
	fs.BoolVar(&cfg.ReusePort, "reuse-port", cfg.ReusePort, "set SO_REUSEPORT on the listener")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	fs.StringVar(&cfg.OTLPEndpoint, "otlp-endpoint", cfg.OTLPEndpoint, "OTLP gRPC endpoint, empty to disable export")
	fs.BoolVar(&cfg.OTLPInsecure, "otlp-insecure", cfg.OTLPInsecure, "disable TLS for OTLP export")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	return cfg, cfg.Validate()
}

func (cfg *Config) fromEnv(getenv func(string) string) error {
	if getenv == nil {
		return nil
	}

	if v := getenv("SERVER_HOST"); v != "" {
		cfg.Host = v
	}
	if v := getenv("DOC_ROOT"); v != "" {
		cfg.DocRoot = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		cfg.OTLPEndpoint = v
	}

	var err error
	if v := getenv("SERVER_PORT"); v != "" {
		if cfg.Port, err = strconv.Atoi(v); err != nil {
			return fmt.Errorf("config: SERVER_PORT: %w", err)
		}
	}
	if v := getenv("MAX_HEADER_BYTES"); v != "" {
		if cfg.MaxHeaderBytes, err = strconv.Atoi(v); err != nil {
			return fmt.Errorf("config: MAX_HEADER_BYTES: %w", err)
		}
	}
	if v := getenv("MAX_BODY_BYTES"); v != "" {
		if cfg.MaxBodyBytes, err = strconv.ParseInt(v, 10, 64); err != nil {
			return fmt.Errorf("config: MAX_BODY_BYTES: %w", err)
		}
	}
	if v := getenv("HEADER_TIMEOUT"); v != "" {
		if cfg.HeaderTimeout, err = ParseDuration(v); err != nil {
			return fmt.Errorf("config: HEADER_TIMEOUT: %w", err)
		}
	}
	if v := getenv("BODY_TIMEOUT"); v != "" {
		if cfg.BodyTimeout, err = ParseDuration(v); err != nil {
			return fmt.Errorf("config: BODY_TIMEOUT: %w", err)
		}
	}
	if v := getenv("SERVER_REUSE_PORT"); v != "" {
		if cfg.ReusePort, err = strconv.ParseBool(v); err != nil {
			return fmt.Errorf("config: SERVER_REUSE_PORT: %w", err)
		}
	}
	if v := getenv("OTEL_EXPORTER_OTLP_INSECURE"); v != "" {
		if cfg.OTLPInsecure, err = strconv.ParseBool(v); err != nil {
			return fmt.Errorf("config: OTEL_EXPORTER_OTLP_INSECURE: %w", err)
		}
	}
	return nil
}

func (cfg Config) Validate() error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return ErrInvalidPort
	}
	if strings.TrimSpace(cfg.DocRoot) == "" {
		return ErrEmptyDocRoot
	}
	if cfg.MaxHeaderBytes <= 0 || cfg.MaxBodyBytes < 0 {
		return ErrInvalidLimit
	}
	if cfg.HeaderTimeout <= 0 || cfg.BodyTimeout <= 0 || cfg.GracePeriod <= 0 {
		return ErrInvalidTimeout
	}
	if _, err := cfg.Level(); err != nil {
		return err
	}
	return nil
}

func (cfg Config) Addr() string {
	return net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
}

func (cfg Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidLogLevel, cfg.LogLevel)
	}
	return level, nil
}

// ParseDuration accepts Go durations ("3s", "250ms") and plain seconds
// ("3", "0.5").
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if seconds, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(seconds * float64(time.Second)), nil
	}
	return time.ParseDuration(s)
}

type durationValue struct {
	d *time.Duration
}

func (v durationValue) String() string {
	if v.d == nil {
		return ""
	}
	return v.d.String()
}

func (v durationValue) Set(s string) error {
	d, err := ParseDuration(s)
	if err != nil {
		return err
	}
	*v.d = d
	return nil
}
