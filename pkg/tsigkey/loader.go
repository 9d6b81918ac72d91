package tsigkey

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/patrickmn/go-cache"
)

// Default cache settings for parsed key files.
const (
	DefaultCacheTTL      = 5 * time.Minute
	DefaultCleanupPeriod = 10 * time.Minute
	remoteCacheKeyPrefix = "remote:"
	localCacheKeyPrefix  = "file:"
)

// FileSystem is the local file access the Loader needs.
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
	Stat(path string) (fs.FileInfo, error)
}

// RemoteReadFunc reads a key file from another host.
type RemoteReadFunc func(ctx context.Context, loc RemoteLocation) ([]byte, error)

type osFileSystem struct{}

func (osFileSystem) ReadFile(path string) ([]byte, error) { return os.ReadFile(path) }

func (osFileSystem) Stat(path string) (fs.FileInfo, error) { return os.Stat(path) }

// Loader resolves key references into Material, parsing each key file at
// most once per cache period.
type Loader struct {
	fs     FileSystem
	remote RemoteReadFunc
	cache  *cache.Cache
	logger *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		l.logger = logger
	}
}

// WithFileSystem replaces the local file system.
func WithFileSystem(fsys FileSystem) Option {
	return func(l *Loader) {
		l.fs = fsys
	}
}

// WithRemoteReader enables ssh:// references.
func WithRemoteReader(fn RemoteReadFunc) Option {
	return func(l *Loader) {
		l.remote = fn
	}
}

// WithCacheTTL sets how long parsed key files are kept.
func WithCacheTTL(ttl time.Duration) Option {
	return func(l *Loader) {
		l.cache = cache.New(ttl, DefaultCleanupPeriod)
	}
}

// NewLoader creates a Loader reading from the local file system.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		fs:     osFileSystem{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.cache == nil {
		l.cache = cache.New(DefaultCacheTTL, DefaultCleanupPeriod)
	}
	return l
}

// Parse parses ref, checking the local file system for "file:keyname" forms.
func (l *Loader) Parse(ref string) (Reference, error) {
	return ParseReference(ref, l.isFile)
}

func (l *Loader) isFile(path string) bool {
	if path == "" {
		return false
	}
	fi, err := l.fs.Stat(path)
	return err == nil && !fi.IsDir()
}

// Load resolves ref into validated key material.
func (l *Loader) Load(ctx context.Context, ref string) (*Material, error) {
	parsed, err := l.Parse(ref)
	if err != nil {
		return nil, err
	}
	return l.LoadReference(ctx, parsed)
}

// LoadReference resolves an already parsed reference.
func (l *Loader) LoadReference(ctx context.Context, ref Reference) (*Material, error) {
	var (
		key    Material
		source string
	)

	switch ref.Kind {
	case KindInline:
		key = ref.Key
		source = "inline"

	case KindFile:
		keys, err := l.keyFile(localCacheKeyPrefix+ref.File, func() ([]byte, error) {
			return l.fs.ReadFile(ref.File)
		})
		if err != nil {
			return nil, fmt.Errorf("reading key file %s: %w", ref.File, err)
		}
		found, ok := FindKey(keys, ref.KeyName)
		if !ok {
			return nil, &KeyNotFoundInFileError{File: ref.File, Name: ref.KeyName}
		}
		key = found
		source = ref.File

	case KindRemote:
		if l.remote == nil {
			return nil, fmt.Errorf("%w: remote key files are not enabled", ErrInvalidReference)
		}
		location := ref.Remote.String()
		keys, err := l.keyFile(remoteCacheKeyPrefix+location, func() ([]byte, error) {
			return l.remote(ctx, ref.Remote)
		})
		if err != nil {
			return nil, fmt.Errorf("reading remote key file %s: %w", location, err)
		}
		found, ok := FindKey(keys, ref.KeyName)
		if !ok {
			return nil, &KeyNotFoundInFileError{File: location, Name: ref.KeyName}
		}
		key = found
		source = location

	default:
		return nil, fmt.Errorf("%w: unknown kind %d", ErrInvalidReference, ref.Kind)
	}

	if err := key.Validate(); err != nil {
		return nil, err
	}

	l.logger.Debug("loaded TSIG key",
		slog.String("key", key.Name),
		slog.String("algorithm", key.Algorithm),
		slog.String("source", source),
	)
	return &key, nil
}

// keyFile returns the parsed keys cached under cacheKey, reading and
// parsing them on a miss.
func (l *Loader) keyFile(cacheKey string, read func() ([]byte, error)) ([]Material, error) {
	if cached, ok := l.cache.Get(cacheKey); ok {
		if keys, ok := cached.([]Material); ok {
			return keys, nil
		}
	}

	data, err := read()
	if err != nil {
		return nil, err
	}
	keys, err := ParseKeyFile(data)
	if err != nil {
		return nil, err
	}
	l.cache.Set(cacheKey, keys, cache.DefaultExpiration)
	return keys, nil
}
