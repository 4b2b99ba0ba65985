package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/infographics/internal/config"
	"github.com/matzehuels/infographics/pkg/cache"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the country table cache",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached entries from the configured backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}

			cc, err := openCache(ctx, cfg.Cache)
			if err != nil {
				return fmt.Errorf("open cache: %w", err)
			}
			defer cc.Close()

			clearer, ok := cc.(cache.Clearer)
			if !ok {
				printInfo("Cache is disabled")
				return nil
			}
			count, err := clearer.Clear(ctx)
			if err != nil {
				return fmt.Errorf("clear cache: %w", err)
			}

			printSuccess("Cleared %d cached entries", count)
			printDetail("Backend: %s", describeCache(cfg.Cache))
			return nil
		},
	}
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print where cached entries are stored",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), describeCache(cfg.Cache))
			return nil
		},
	}
}

// describeCache names the storage location of a cache backend.
func describeCache(cfg config.CacheConfig) string {
	switch cfg.Backend {
	case config.BackendNone:
		return "none"
	case config.BackendRedis:
		return "redis://" + cfg.RedisAddr
	case config.BackendMongo:
		return fmt.Sprintf("%s (%s.%s)", cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection)
	default:
		if cfg.Dir != "" {
			return cfg.Dir
		}
		dir, err := cacheDir()
		if err != nil {
			return "unknown"
		}
		return dir
	}
}
