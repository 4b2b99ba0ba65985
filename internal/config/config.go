// Package config loads the infographics configuration file and applies
// environment overrides.
//
// The file is TOML, by default at $XDG_CONFIG_HOME/infographics/config.toml:
//
//	default_profile = "work"
//
//	[profiles.work]
//	portal_url = "https://gis.example.com/portal"
//	username   = "analyst"
//
//	[profiles.online]
//	portal_url = "https://www.arcgis.com"
//	api_key    = "AAPK..."
//
//	[cache]
//	backend = "redis"
//	ttl     = "12h"
//	redis_addr = "localhost:6379"
//
// A missing file is not an error; every setting has a default.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/infographics/pkg/errors"
)

// Environment variables that override the file.
const (
	EnvPortalURL = "INFOGRAPHICS_PORTAL_URL"
	EnvAPIKey    = "INFOGRAPHICS_API_KEY"
	EnvToken     = "INFOGRAPHICS_TOKEN"
	EnvProfile   = "INFOGRAPHICS_PROFILE"
	EnvPassword  = "INFOGRAPHICS_PASSWORD"
	EnvCache     = "INFOGRAPHICS_CACHE"
	EnvRedisAddr = "INFOGRAPHICS_REDIS_ADDR"
	EnvRedisDB   = "INFOGRAPHICS_REDIS_DB"
	EnvMongoURI  = "INFOGRAPHICS_MONGO_URI"
)

const (
	appName = "infographics"

	// DefaultPortalURL is ArcGIS Online.
	DefaultPortalURL = "https://www.arcgis.com"

	// DefaultProfile is used when neither the file nor the environment
	// selects one.
	DefaultProfile = "default"
)

// Cache backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendMongo = "mongo"
	BackendNone  = "none"
)

// Config is the parsed configuration file.
type Config struct {
	DefaultProfile string             `toml:"default_profile"`
	Profiles       map[string]Profile `toml:"profiles"`
	Cache          CacheConfig        `toml:"cache"`
}

// Profile describes one portal to sign in to.
type Profile struct {
	PortalURL string `toml:"portal_url"`
	APIKey    string `toml:"api_key"`
	Username  string `toml:"username"`
	Referer   string `toml:"referer"`
}

// CacheConfig selects and configures the country table cache.
type CacheConfig struct {
	Backend string        `toml:"backend"` // file|redis|mongo|none
	TTL     time.Duration `toml:"ttl"`
	Dir     string        `toml:"dir"`

	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`

	MongoURI        string `toml:"mongo_uri"`
	MongoDatabase   string `toml:"mongo_database"`
	MongoCollection string `toml:"mongo_collection"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		DefaultProfile: DefaultProfile,
		Profiles:       map[string]Profile{},
		Cache: CacheConfig{
			Backend:         BackendFile,
			TTL:             24 * time.Hour,
			RedisAddr:       "localhost:6379",
			MongoURI:        "mongodb://localhost:27017",
			MongoDatabase:   appName,
			MongoCollection: "cache",
		},
	}
}

// Load reads the file at path over [Default] and applies environment
// overrides. An empty path uses [Path]. A missing file yields the
// defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		p, err := Path()
		if err != nil {
			return cfg, nil
		}
		path = p
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return Config{}, errors.Wrap(errors.ErrCodeConfiguration, err, "read config %s", path)
	default:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, errors.Wrap(errors.ErrCodeConfiguration, err, "parse config %s", path)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.DefaultProfile = envOr(EnvProfile, c.DefaultProfile)
	c.Cache.Backend = envOr(EnvCache, c.Cache.Backend)
	c.Cache.RedisAddr = envOr(EnvRedisAddr, c.Cache.RedisAddr)
	c.Cache.RedisDB = envOrInt(EnvRedisDB, c.Cache.RedisDB)
	c.Cache.MongoURI = envOr(EnvMongoURI, c.Cache.MongoURI)
	if c.Profiles == nil {
		c.Profiles = map[string]Profile{}
	}
}

// Validate checks the cache backend and the profile URLs.
func (c Config) Validate() error {
	switch c.Cache.Backend {
	case BackendFile, BackendRedis, BackendMongo, BackendNone:
	default:
		return errors.New(errors.ErrCodeConfiguration,
			"unknown cache backend %q (must be file, redis, mongo or none)", c.Cache.Backend)
	}
	if c.Cache.TTL < 0 {
		return errors.New(errors.ErrCodeConfiguration, "cache ttl cannot be negative")
	}
	for name, p := range c.Profiles {
		if p.PortalURL == "" {
			continue
		}
		if err := errors.ValidateURL(p.PortalURL); err != nil {
			return errors.Wrap(errors.ErrCodeConfiguration, err, "profile %q", name)
		}
	}
	return nil
}

// Resolved is the effective portal and credentials for one run.
type Resolved struct {
	Profile   string
	PortalURL string
	APIKey    string
	Token     string
	Username  string
	Referer   string
}

// Resolve selects a profile and layers the environment over it. An empty
// name uses the configured default. An unknown name is an error unless it
// is the default profile, which may be left undeclared.
func (c Config) Resolve(name string) (Resolved, error) {
	if name == "" {
		name = c.DefaultProfile
	}
	if name == "" {
		name = DefaultProfile
	}

	p, ok := c.Profiles[name]
	if !ok && name != DefaultProfile && name != c.DefaultProfile {
		return Resolved{}, errors.New(errors.ErrCodeConfiguration, "unknown profile %q", name)
	}

	r := Resolved{
		Profile:   name,
		PortalURL: envOr(EnvPortalURL, p.PortalURL),
		APIKey:    envOr(EnvAPIKey, p.APIKey),
		Token:     os.Getenv(EnvToken),
		Username:  p.Username,
		Referer:   p.Referer,
	}
	if r.PortalURL == "" {
		r.PortalURL = DefaultPortalURL
	}
	return r, nil
}

// Path returns the default config file location.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Dir returns the config directory using XDG standard (~/.config/infographics/).
func Dir() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName), nil
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envOrInt(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
