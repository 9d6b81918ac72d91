package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Configuration defaults.
const (
	DefaultLogLevel        = "warn"
	DefaultLogFormat       = "text"
	DefaultTTL             = 3600
	DefaultTimeout         = 10 * time.Second
	DefaultPort            = 53
	DefaultSSHPort         = 22
	DefaultSSHTimeout      = 30 * time.Second
	DefaultAuditMaxSizeMB  = 10
	DefaultAuditMaxBackups = 5
	DefaultAuditMaxAgeDays = 90
	DefaultConfigPath      = "/etc/dnsupd/config.yaml"
)

// Config holds the runtime configuration of a single invocation.
// It is built once at startup and never mutated afterwards.
type Config struct {
	// Path is the configuration file that was loaded ("" if none).
	Path string

	// Logging configuration
	LogLevel  string // debug, info, warn, error
	LogFormat string // json, text
	Audit     AuditConfig

	// DNS transport
	Timeout time.Duration
	UseTCP  bool
	Port    int

	// DefaultTTL is the TTL used by set when --ttl is not given.
	DefaultTTL int

	// MetricsTextfile is where metrics are written at exit ("" disables).
	MetricsTextfile string

	// SSH settings for ssh:// key-file references.
	SSH SSHConfig

	// Store holds the zone, server and key mappings.
	Store *Store
}

// AuditConfig configures the rotated audit log.
type AuditConfig struct {
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Enabled reports whether an audit file is configured.
func (a AuditConfig) Enabled() bool {
	return a.File != ""
}

// SSHConfig holds defaults for remote key-file access.
type SSHConfig struct {
	User       string
	Port       int
	KeyFile    string
	Password   string
	KnownHosts string
	Timeout    time.Duration

	InsecureIgnoreHostKey bool
}

// defaultConfig returns a Config populated with built-in defaults.
func defaultConfig() *Config {
	return &Config{
		LogLevel:  DefaultLogLevel,
		LogFormat: DefaultLogFormat,
		Audit: AuditConfig{
			MaxSizeMB:  DefaultAuditMaxSizeMB,
			MaxBackups: DefaultAuditMaxBackups,
			MaxAgeDays: DefaultAuditMaxAgeDays,
			Compress:   true,
		},
		Timeout:    DefaultTimeout,
		Port:       DefaultPort,
		DefaultTTL: DefaultTTL,
		SSH: SSHConfig{
			Port:    DefaultSSHPort,
			Timeout: DefaultSSHTimeout,
		},
		Store: NewStore(nil, nil, nil),
	}
}

// ToConfig converts file config to a runtime Config, applying defaults.
// Values from the file take precedence over defaults; env vars override later.
func (c *FileConfig) ToConfig() (*Config, []string) {
	cfg := defaultConfig()
	var errs []string

	if c.Logging != nil {
		if c.Logging.Level != "" {
			cfg.LogLevel = c.Logging.Level
		}
		if c.Logging.Format != "" {
			cfg.LogFormat = c.Logging.Format
		}
		cfg.Audit.File = c.Logging.AuditFile
		if c.Logging.AuditMaxSizeMB > 0 {
			cfg.Audit.MaxSizeMB = c.Logging.AuditMaxSizeMB
		}
		if c.Logging.AuditMaxBackups > 0 {
			cfg.Audit.MaxBackups = c.Logging.AuditMaxBackups
		}
		if c.Logging.AuditMaxAgeDays > 0 {
			cfg.Audit.MaxAgeDays = c.Logging.AuditMaxAgeDays
		}
		if c.Logging.AuditCompression != nil {
			cfg.Audit.Compress = *c.Logging.AuditCompression
		}
	}

	if c.Transport != nil {
		if c.Transport.Timeout != "" {
			timeout, err := time.ParseDuration(c.Transport.Timeout)
			if err != nil || timeout <= 0 {
				errs = append(errs, fmt.Sprintf("transport.timeout: invalid duration %q (use format like 10s)", c.Transport.Timeout))
			} else {
				cfg.Timeout = timeout
			}
		}
		if c.Transport.UseTCP != nil {
			cfg.UseTCP = *c.Transport.UseTCP
		}
		if c.Transport.Port > 0 {
			cfg.Port = c.Transport.Port
		}
	}

	if c.Defaults != nil && c.Defaults.TTL > 0 {
		cfg.DefaultTTL = c.Defaults.TTL
	}

	if c.SSH != nil {
		cfg.SSH.User = c.SSH.User
		cfg.SSH.KeyFile = c.SSH.KeyFile
		cfg.SSH.Password = c.SSH.Password
		cfg.SSH.KnownHosts = c.SSH.KnownHosts
		cfg.SSH.InsecureIgnoreHostKey = c.SSH.InsecureIgnoreHostKey
		if c.SSH.Port > 0 {
			cfg.SSH.Port = c.SSH.Port
		}
		if c.SSH.Timeout != "" {
			timeout, err := time.ParseDuration(c.SSH.Timeout)
			if err != nil || timeout <= 0 {
				errs = append(errs, fmt.Sprintf("ssh.timeout: invalid duration %q", c.SSH.Timeout))
			} else {
				cfg.SSH.Timeout = timeout
			}
		}
	}

	if c.Metrics != nil {
		cfg.MetricsTextfile = c.Metrics.Textfile
	}

	cfg.Store = NewStore(c.Servers, c.ZoneKeys, c.ServerKeys)

	return cfg, errs
}

// applyEnvOverrides merges DNSUPD_* environment variables into cfg.
// Environment variables always take precedence over file config.
func applyEnvOverrides(cfg *Config) []string {
	var errs []string

	if v := getEnv("DNSUPD_LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
		switch cfg.LogLevel {
		case "debug", "info", "warn", "error":
			// Valid
		default:
			errs = append(errs, fmt.Sprintf("DNSUPD_LOG_LEVEL: invalid value %q (must be debug, info, warn, or error)", v))
		}
	}

	if v := getEnv("DNSUPD_LOG_FORMAT"); v != "" {
		cfg.LogFormat = strings.ToLower(v)
		switch cfg.LogFormat {
		case "json", "text":
			// Valid
		default:
			errs = append(errs, fmt.Sprintf("DNSUPD_LOG_FORMAT: invalid value %q (must be json or text)", v))
		}
	}

	if v := getEnv("DNSUPD_TIMEOUT"); v != "" {
		timeout, err := time.ParseDuration(v)
		if err != nil || timeout <= 0 {
			errs = append(errs, fmt.Sprintf("DNSUPD_TIMEOUT: invalid duration %q (use format like 10s)", v))
		} else {
			cfg.Timeout = timeout
		}
	}

	if v := getEnv("DNSUPD_USE_TCP"); v != "" {
		cfg.UseTCP = parseBool(v, cfg.UseTCP)
	}

	if v := getEnv("DNSUPD_DEFAULT_TTL"); v != "" {
		ttl, err := strconv.Atoi(v)
		if err != nil || ttl < 1 {
			errs = append(errs, fmt.Sprintf("DNSUPD_DEFAULT_TTL: invalid TTL %q (must be a positive integer)", v))
		} else {
			cfg.DefaultTTL = ttl
		}
	}

	if v := getEnv("DNSUPD_METRICS_TEXTFILE"); v != "" {
		cfg.MetricsTextfile = v
	}

	if v := getEnvOrFile("DNSUPD_SSH_PASSWORD", "DNSUPD_SSH_PASSWORD_FILE"); v != "" {
		cfg.SSH.Password = v
	}

	return errs
}
