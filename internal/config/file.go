// Package config handles loading and validation of dnsupd configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// FileConfig represents the configuration file structure.
// The same structure is read from YAML or TOML.
type FileConfig struct {
	// Logging configuration
	Logging *FileLoggingConfig `yaml:"logging,omitempty" toml:"logging"`

	// DNS transport settings
	Transport *FileTransportConfig `yaml:"transport,omitempty" toml:"transport"`

	// Command defaults
	Defaults *FileDefaultsConfig `yaml:"defaults,omitempty" toml:"defaults"`

	// Servers maps zone names to update servers. The "default" entry is used
	// when no zone matches.
	Servers map[string]string `yaml:"servers,omitempty" toml:"servers" validate:"omitempty,dive,keys,required,endkeys,required"`

	// ZoneKeys maps zone names to key references.
	ZoneKeys map[string]string `yaml:"zone_keys,omitempty" toml:"zone_keys" validate:"omitempty,dive,keys,required,endkeys,required"`

	// ServerKeys maps server names to key references.
	ServerKeys map[string]string `yaml:"server_keys,omitempty" toml:"server_keys" validate:"omitempty,dive,keys,required,endkeys,required"`

	// SSH settings for ssh:// key-file references
	SSH *FileSSHConfig `yaml:"ssh,omitempty" toml:"ssh"`

	// Metrics export
	Metrics *FileMetricsConfig `yaml:"metrics,omitempty" toml:"metrics"`
}

// FileLoggingConfig holds logging settings.
type FileLoggingConfig struct {
	Level            string `yaml:"level,omitempty" toml:"level" validate:"omitempty,oneof=debug info warn error"` // debug, info, warn, error
	Format           string `yaml:"format,omitempty" toml:"format" validate:"omitempty,oneof=json text"`          // json, text
	AuditFile        string `yaml:"audit_file,omitempty" toml:"audit_file"`                                       // Rotated JSON log of every operation
	AuditMaxSizeMB   int    `yaml:"audit_max_size_mb,omitempty" toml:"audit_max_size_mb" validate:"gte=0"`
	AuditMaxBackups  int    `yaml:"audit_max_backups,omitempty" toml:"audit_max_backups" validate:"gte=0"`
	AuditMaxAgeDays  int    `yaml:"audit_max_age_days,omitempty" toml:"audit_max_age_days" validate:"gte=0"`
	AuditCompression *bool  `yaml:"audit_compress,omitempty" toml:"audit_compress"`
}

// FileTransportConfig holds DNS transport settings.
type FileTransportConfig struct {
	Timeout string `yaml:"timeout,omitempty" toml:"timeout"` // Go duration format (e.g., "10s")
	UseTCP  *bool  `yaml:"use_tcp,omitempty" toml:"use_tcp"`
	Port    int    `yaml:"port,omitempty" toml:"port" validate:"omitempty,min=1,max=65535"`
}

// FileDefaultsConfig holds command defaults.
type FileDefaultsConfig struct {
	TTL int `yaml:"ttl,omitempty" toml:"ttl" validate:"omitempty,min=1,max=2147483647"`
}

// FileSSHConfig holds the SSH settings used to read remote key files.
type FileSSHConfig struct {
	User       string `yaml:"user,omitempty" toml:"user"`
	Port       int    `yaml:"port,omitempty" toml:"port" validate:"omitempty,min=1,max=65535"`
	KeyFile    string `yaml:"key_file,omitempty" toml:"key_file"`
	Password   string `yaml:"password,omitempty" toml:"password"`
	KnownHosts string `yaml:"known_hosts,omitempty" toml:"known_hosts"`
	Timeout    string `yaml:"timeout,omitempty" toml:"timeout"`

	// InsecureIgnoreHostKey accepts any host key when no known_hosts file exists.
	InsecureIgnoreHostKey bool `yaml:"insecure_ignore_host_key,omitempty" toml:"insecure_ignore_host_key"`
}

// FileMetricsConfig holds metrics export settings.
type FileMetricsConfig struct {
	Textfile string `yaml:"textfile,omitempty" toml:"textfile"` // node_exporter textfile collector path
}

// envVarPattern matches ${VAR} or ${VAR:-default} syntax.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// InterpolateEnvVars replaces ${VAR} patterns with environment variable values.
// Supports ${VAR:-default} syntax for default values.
func InterpolateEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultValue := ""
		if len(groups) >= 3 {
			defaultValue = groups[2]
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}
		return defaultValue
	})
}

// interpolateMap interpolates every value of m in place.
func interpolateMap(m map[string]string) {
	for k, v := range m {
		m[k] = InterpolateEnvVars(v)
	}
}

// interpolateEnvVars interpolates environment variables in all string
// fields of the config structure.
func (c *FileConfig) interpolateEnvVars() {
	if c.Logging != nil {
		c.Logging.Level = strings.ToLower(InterpolateEnvVars(c.Logging.Level))
		c.Logging.Format = strings.ToLower(InterpolateEnvVars(c.Logging.Format))
		c.Logging.AuditFile = InterpolateEnvVars(c.Logging.AuditFile)
	}

	if c.Transport != nil {
		c.Transport.Timeout = InterpolateEnvVars(c.Transport.Timeout)
	}

	if c.SSH != nil {
		c.SSH.User = InterpolateEnvVars(c.SSH.User)
		c.SSH.KeyFile = InterpolateEnvVars(c.SSH.KeyFile)
		c.SSH.Password = InterpolateEnvVars(c.SSH.Password)
		c.SSH.KnownHosts = InterpolateEnvVars(c.SSH.KnownHosts)
		c.SSH.Timeout = InterpolateEnvVars(c.SSH.Timeout)
	}

	if c.Metrics != nil {
		c.Metrics.Textfile = InterpolateEnvVars(c.Metrics.Textfile)
	}

	interpolateMap(c.Servers)
	interpolateMap(c.ZoneKeys)
	interpolateMap(c.ServerKeys)
}

// LoadFile reads and parses a configuration file. Files ending in .toml are
// parsed as TOML, everything else as YAML. Environment variables in ${VAR}
// format are interpolated.
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg FileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing TOML config: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing YAML config: %w", err)
		}
	}

	cfg.interpolateEnvVars()

	return &cfg, nil
}
