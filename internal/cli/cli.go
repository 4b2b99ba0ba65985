package cli

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/infographics/internal/config"
	"github.com/matzehuels/infographics/pkg/arcgis"
	"github.com/matzehuels/infographics/pkg/buildinfo"
	"github.com/matzehuels/infographics/pkg/cache"
	"github.com/matzehuels/infographics/pkg/errors"
	"github.com/matzehuels/infographics/pkg/infographics"
	"github.com/matzehuels/infographics/pkg/session"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "infographics"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// HTTPClient overrides the portal client's transport. Tests point it at
	// a fake portal.
	HTTPClient *http.Client

	// SessionDir overrides the session store location.
	SessionDir string

	flags globalFlags
}

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	verbose    bool
	configPath string
	profile    string
	portal     string
	token      string
	noCache    bool
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Discover and generate geoenrichment infographics",
		Long: `infographics lists the standard and organization infographics available on an
ArcGIS portal and renders them for study areas as PDF, Excel or HTML files.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := LogInfo
			if c.flags.verbose {
				level = LogDebug
				registerDebugHooks(c.Logger)
			}
			c.SetLogLevel(level)
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	pf := root.PersistentFlags()
	pf.BoolVarP(&c.flags.verbose, "verbose", "v", false, "enable verbose logging")
	pf.StringVar(&c.flags.configPath, "config", "", "config file (default ~/.config/infographics/config.toml)")
	pf.StringVar(&c.flags.profile, "profile", "", "config profile to use (env "+config.EnvProfile+")")
	pf.StringVar(&c.flags.portal, "portal", "", "portal URL, overrides the profile (env "+config.EnvPortalURL+")")
	pf.StringVar(&c.flags.token, "token", "", "access token, overrides the stored session (env "+config.EnvToken+")")
	pf.BoolVar(&c.flags.noCache, "no-cache", false, "do not read or write the country cache")

	// Register all subcommands
	root.AddCommand(c.countriesCommand())
	root.AddCommand(c.standardCommand())
	root.AddCommand(c.customCommand())
	root.AddCommand(c.createCommand())
	root.AddCommand(c.loginCommand())
	root.AddCommand(c.logoutCommand())
	root.AddCommand(c.whoamiCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Session & Catalog Factory
// =============================================================================

// loadConfig reads the config file selected by --config.
func (c *CLI) loadConfig() (config.Config, error) {
	return config.Load(c.flags.configPath)
}

// resolve returns the effective portal settings with flags applied.
func (c *CLI) resolve(cfg config.Config) (config.Resolved, error) {
	r, err := cfg.Resolve(c.flags.profile)
	if err != nil {
		return r, err
	}
	if c.flags.portal != "" {
		r.PortalURL = c.flags.portal
	}
	if c.flags.token != "" {
		r.Token = c.flags.token
	}
	return r, nil
}

// sessionStore opens the session store for the resolved profile.
func (c *CLI) sessionStore(profile string) (*session.CLIStore, error) {
	dir := c.SessionDir
	if dir == "" {
		d, err := sessionDir()
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeConfiguration, err, "locate session directory")
		}
		dir = d
	}
	return session.NewCLIStore(dir, profile)
}

// newClient builds the portal client. The token comes from --token or the
// environment, then from the stored session for the profile, then from the
// profile's API key. Without any, the client is anonymous.
func (c *CLI) newClient(ctx context.Context, r config.Resolved) (*arcgis.Client, error) {
	opts := arcgis.Options{
		Token:      r.Token,
		APIKey:     r.APIKey,
		Referer:    r.Referer,
		HTTPClient: c.HTTPClient,
		Logger:     c.Logger,
	}

	if opts.Token == "" {
		store, err := c.sessionStore(r.Profile)
		if err != nil {
			return nil, err
		}
		sess, err := store.GetSession(ctx)
		if err != nil {
			c.Logger.Warn("ignoring unreadable session", "path", store.Path(), "err", err)
		}
		if sess != nil && samePortal(sess.PortalURL, r.PortalURL) {
			c.Logger.Debug("using stored session", "user", sess.Username, "expires", sess.ExpiresAt)
			opts.Token = sess.Token
			if sess.Referer != "" {
				opts.Referer = sess.Referer
			}
		}
	}

	return arcgis.NewClient(r.PortalURL, opts)
}

// newCatalog builds a catalog bound to a fresh client and the configured
// cache. The returned cleanup closes the cache.
func (c *CLI) newCatalog(ctx context.Context) (*infographics.Catalog, func(), error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	r, err := c.resolve(cfg)
	if err != nil {
		return nil, nil, err
	}
	client, err := c.newClient(ctx, r)
	if err != nil {
		return nil, nil, err
	}

	cc := c.newCache(ctx, cfg.Cache)
	cat := infographics.NewCatalog(client, infographics.Options{
		Cache:        cc,
		CountriesTTL: cfg.Cache.TTL,
		Logger:       c.Logger,
	})
	return cat, func() { _ = cc.Close() }, nil
}

// newCache opens the configured cache backend. A backend that cannot be
// reached is logged and replaced by a null cache.
func (c *CLI) newCache(ctx context.Context, cfg config.CacheConfig) cache.Cache {
	if c.flags.noCache {
		return cache.NewNullCache()
	}
	cc, err := openCache(ctx, cfg)
	if err != nil {
		c.Logger.Warn("cache unavailable, continuing without it", "backend", cfg.Backend, "err", err)
		return cache.NewNullCache()
	}
	return cc
}

func openCache(ctx context.Context, cfg config.CacheConfig) (cache.Cache, error) {
	switch cfg.Backend {
	case config.BackendNone:
		return cache.NewNullCache(), nil
	case config.BackendRedis:
		return cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	case config.BackendMongo:
		return cache.NewMongoCache(ctx, cache.MongoConfig{
			URI:        cfg.MongoURI,
			Database:   cfg.MongoDatabase,
			Collection: cfg.MongoCollection,
		})
	default:
		dir := cfg.Dir
		if dir == "" {
			d, err := cacheDir()
			if err != nil {
				return nil, err
			}
			dir = d
		}
		return cache.NewFileCache(dir)
	}
}

func samePortal(a, b string) bool {
	norm := func(s string) string {
		s = strings.TrimRight(strings.TrimSpace(s), "/")
		return strings.ToLower(strings.TrimSuffix(s, "/sharing/rest"))
	}
	return norm(a) == norm(b)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/infographics/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// sessionDir returns the session directory under the config directory.
func sessionDir() (string, error) {
	dir, err := config.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "sessions"), nil
}
