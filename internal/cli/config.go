package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/pglocktrace/pkg/archive"
	pgerrors "github.com/matzehuels/pglocktrace/pkg/errors"
	"github.com/matzehuels/pglocktrace/pkg/frame"
	"github.com/matzehuels/pglocktrace/pkg/label"
)

const configFile = "config.toml"

// Config holds persistent defaults. Command-line flags override it.
//
//	[trace]
//	json = false
//	statistics = true
//
//	[resolvers]
//	1234 = "postgres://localhost/app"
//
//	[cache]
//	backend = "redis"        # file, redis or none
//	redis_addr = "localhost:6379"
//	ttl = "24h"
//
//	[animate]
//	max_run = 20
//	delay = "500ms"
//	duration = "1.5s"
//	engine = "circo"
//
//	[archive]
//	mongo_uri = "mongodb://localhost:27017"
//	dir = "/var/lib/pglocktrace"
type Config struct {
	Trace     TraceConfig       `toml:"trace"`
	Resolvers map[string]string `toml:"resolvers"`
	Cache     CacheConfig       `toml:"cache"`
	Animate   AnimateConfig     `toml:"animate"`
	Archive   ArchiveConfig     `toml:"archive"`
}

type TraceConfig struct {
	JSON       bool `toml:"json"`
	Statistics bool `toml:"statistics"`
}

type CacheConfig struct {
	Backend   string   `toml:"backend"`
	RedisAddr string   `toml:"redis_addr"`
	TTL       Duration `toml:"ttl"`
	KeyPrefix string   `toml:"key_prefix"` // scopes keys in a shared Redis
}

type AnimateConfig struct {
	MaxRun   int      `toml:"max_run"`
	Delay    Duration `toml:"delay"`
	Duration Duration `toml:"duration"`
	Engine   string   `toml:"engine"`
}

type ArchiveConfig struct {
	MongoURI   string `toml:"mongo_uri"`
	Database   string `toml:"database"`
	Collection string `toml:"collection"`
	Dir        string `toml:"dir"`
}

// Duration is a time.Duration written as a Go duration string in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func defaultConfig() Config {
	return Config{
		Cache: CacheConfig{
			Backend:   cacheBackendFile,
			RedisAddr: "localhost:6379",
			TTL:       Duration{24 * time.Hour},
		},
		Animate: AnimateConfig{
			MaxRun:   label.DefaultMaxRun,
			Delay:    Duration{frame.DefaultDelay},
			Duration: Duration{frame.DefaultDuration},
			Engine:   frame.DefaultEngine,
		},
		Archive: ArchiveConfig{
			Database:   archive.DefaultDatabase,
			Collection: archive.DefaultCollection,
		},
	}
}

// loadConfig reads the config file at path on top of the defaults. An empty
// path uses the default location, which may be absent.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	explicit := path != ""
	if !explicit {
		dir, err := configDir()
		if err != nil {
			return cfg, nil
		}
		path = filepath.Join(dir, configFile)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if explicit {
			return cfg, pgerrors.New(pgerrors.ErrCodeFileNotFound, "config file does not exist %s", path)
		}
		return cfg, nil
	}

	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return cfg, pgerrors.Wrap(pgerrors.ErrCodeInvalidFormat, err, "parse config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return cfg, pgerrors.New(pgerrors.ErrCodeInvalidFormat, "unknown config key %s in %s", undecoded[0], path)
	}
	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Cache.Backend {
	case cacheBackendFile, cacheBackendRedis, cacheBackendNone:
	default:
		return pgerrors.New(pgerrors.ErrCodeInvalidInput, "cache backend must be file, redis or none, got %q", c.Cache.Backend)
	}
	for pid := range c.Resolvers {
		if _, err := strconv.Atoi(pid); err != nil {
			return pgerrors.New(pgerrors.ErrCodeInvalidResolver, "resolver key %q is not a pid", pid)
		}
	}
	if c.Animate.MaxRun < 0 {
		return pgerrors.New(pgerrors.ErrCodeInvalidInput, "animate max_run must not be negative")
	}
	return nil
}

// resolverSpecs merges configured resolvers with flag values given as
// PID:URL. A flag replaces the configured resolver of the same pid.
// Configured resolvers for pids outside a non-empty traced list are
// skipped; flags are returned as given and checked by the caller.
func (c Config) resolverSpecs(flags []string, traced []int) []string {
	override := make(map[string]bool, len(flags))
	for _, f := range flags {
		if pid, _, ok := strings.Cut(f, ":"); ok {
			override[pid] = true
		}
	}

	specs := make([]string, 0, len(c.Resolvers)+len(flags))
	for pid, url := range c.Resolvers {
		if override[pid] {
			continue
		}
		if n, err := strconv.Atoi(pid); err == nil && len(traced) > 0 && !slices.Contains(traced, n) {
			continue
		}
		specs = append(specs, pid+":"+url)
	}
	slices.Sort(specs)
	return append(specs, flags...)
}
