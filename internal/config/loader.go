package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/joho/godotenv"
)

// LoadOptions selects where configuration is read from.
type LoadOptions struct {
	// Path is the configuration file given on the command line.
	// Empty means $DNSUPD_CONFIG, then DefaultConfigPath.
	Path string

	// EnvFile is a dotenv file loaded before anything else is read.
	EnvFile string
}

// LoadEnvFile loads a dotenv file into the process environment. Variables
// that are already set are not overridden.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading env file %s: %w", path, err)
	}
	return nil
}

// configPath returns the file to load and whether it was requested
// explicitly. A missing implicit default file is not an error.
func configPath(flagPath string) (string, bool) {
	if flagPath != "" {
		return flagPath, true
	}
	if p := getEnv("DNSUPD_CONFIG"); p != "" {
		return p, true
	}
	return DefaultConfigPath, false
}

// Load builds the runtime configuration: env file, then config file, then
// DNSUPD_* overrides. All validation errors are collected and returned
// together as a *ValidationError.
func Load(opts LoadOptions) (*Config, error) {
	if opts.EnvFile != "" {
		if err := LoadEnvFile(opts.EnvFile); err != nil {
			return nil, err
		}
	}

	path, explicit := configPath(opts.Path)

	fileCfg, err := LoadFile(path)
	switch {
	case err == nil:
		slog.Debug("loaded configuration from file", slog.String("path", path))
	case !explicit && errors.Is(err, fs.ErrNotExist):
		fileCfg = &FileConfig{}
		path = ""
	default:
		return nil, err
	}

	errs := fileCfg.validate()

	cfg, convErrs := fileCfg.ToConfig()
	errs = append(errs, convErrs...)
	errs = append(errs, applyEnvOverrides(cfg)...)

	if len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}

	cfg.Path = path
	return cfg, nil
}
