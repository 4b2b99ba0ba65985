package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/matzehuels/infographics/internal/config"
	"github.com/matzehuels/infographics/pkg/arcgis"
	"github.com/matzehuels/infographics/pkg/errors"
	"github.com/matzehuels/infographics/pkg/session"
)

// loginCommand creates the login command.
func (c *CLI) loginCommand() *cobra.Command {
	var (
		username   string
		expiration time.Duration
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to a portal with a built-in account",
		Long: `Sign in to an ArcGIS portal and store the token for later commands.

The password is read from ` + config.EnvPassword + ` or prompted for.
Sessions are stored per profile in ~/.config/infographics/sessions/`,
		Example: `  infographics login --portal https://gis.example.com/portal -u analyst
  infographics --profile online login`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			r, err := c.resolve(cfg)
			if err != nil {
				return err
			}
			if username == "" {
				username = r.Username
			}
			if username == "" {
				return errors.New(errors.ErrCodeInvalidInput, "--username is required")
			}

			password, err := readPassword(cmd.InOrStdin())
			if err != nil {
				return err
			}

			sess, err := c.runLogin(ctx, r, username, password, expiration)
			if err != nil {
				return err
			}

			printSuccess("Signed in as %s", StyleHighlight.Render(sess.Username))
			printKeyValue("Portal", sess.PortalURL)
			printKeyValue("Profile", r.Profile)
			printKeyValue("Expires", sess.ExpiresAt.Format(time.DateTime))
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "portal username (default: the profile's username)")
	cmd.Flags().DurationVar(&expiration, "expiration", session.DefaultTTL, "requested token lifetime")
	return cmd
}

// logoutCommand creates the logout command.
func (c *CLI) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored session for the profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			r, err := c.resolve(cfg)
			if err != nil {
				return err
			}
			store, err := c.sessionStore(r.Profile)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if err := store.DeleteSession(ctx); err != nil {
				return fmt.Errorf("delete session: %w", err)
			}
			printSuccess("Logged out")

			n, err := store.Prune(ctx)
			if err != nil {
				c.Logger.Warn("could not prune expired sessions", "err", err)
			} else if n > 0 {
				printDetail("Removed %d expired session(s) of other profiles", n)
			}
			return nil
		},
	}
}

// whoamiCommand creates the whoami command.
func (c *CLI) whoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in portal user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			r, err := c.resolve(cfg)
			if err != nil {
				return err
			}
			client, err := c.newClient(ctx, r)
			if err != nil {
				return err
			}
			if !client.Authenticated() {
				return errors.New(errors.ErrCodeSessionNotFound,
					"not signed in to %s (run 'infographics login' first)", r.PortalURL)
			}

			ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()

			spinner := newSpinnerWithContext(ctx, "Verifying session...")
			var user *arcgis.User
			err = spinner.run(func() (err error) {
				user, err = client.Self(ctx)
				return err
			})
			if err != nil {
				if errors.Is(err, errors.ErrCodeUnauthorized) {
					return errors.Wrap(errors.ErrCodeSessionExpired, err, "session is no longer valid (run 'infographics login')")
				}
				return err
			}

			printSuccess("Portal Session")
			printKeyValue("Portal", client.PortalURL())
			printKeyValue("Username", user.Username)
			if user.FullName != "" {
				printKeyValue("Name", user.FullName)
			}
			if user.Email != "" {
				printKeyValue("Email", user.Email)
			}
			if user.Role != "" {
				printKeyValue("Role", user.Role)
			}
			if store, err := c.sessionStore(r.Profile); err == nil {
				if sess, _ := store.GetSession(ctx); sess != nil {
					printKeyValue("Logged in", sess.CreatedAt.Format("Jan 2, 2006"))
					printKeyValue("Expires", sess.ExpiresAt.Format("Jan 2, 2006 15:04"))
				}
			}
			return nil
		},
	}
}

// =============================================================================
// Session Management
// =============================================================================

// runLogin exchanges credentials for a token and stores the session.
func (c *CLI) runLogin(ctx context.Context, r config.Resolved, username, password string, expiration time.Duration) (*session.Session, error) {
	client, err := arcgis.NewClient(r.PortalURL, arcgis.Options{
		Referer:    r.Referer,
		HTTPClient: c.HTTPClient,
		Logger:     c.Logger,
	})
	if err != nil {
		return nil, err
	}

	tok, err := client.GenerateToken(ctx, username, password, expiration)
	if err != nil {
		return nil, err
	}

	sess, err := session.New(client.PortalURL(), username, tok.Value, tok.Expires)
	if err != nil {
		return nil, err
	}
	sess.Referer = r.Referer
	if sess.Referer == "" {
		sess.Referer = client.PortalURL()
	}

	store, err := c.sessionStore(r.Profile)
	if err != nil {
		return nil, err
	}
	if err := store.SaveSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	c.Logger.Debug("session saved", "path", store.Path())
	if n, err := store.Prune(ctx); err != nil {
		c.Logger.Debug("session prune failed", "err", err)
	} else if n > 0 {
		c.Logger.Debug("pruned expired sessions", "count", n)
	}
	return sess, nil
}

// readPassword returns the password from the environment, a terminal
// prompt without echo, or the first line of in.
func readPassword(in io.Reader) (string, error) {
	if pw := os.Getenv(config.EnvPassword); pw != "" {
		return pw, nil
	}

	if f, ok := in.(*os.File); ok && term.IsTerminal(f.Fd()) {
		printInline("Password: ")
		pw, err := term.ReadPassword(f.Fd())
		printNewline()
		if err != nil {
			return "", errors.Wrap(errors.ErrCodeInvalidInput, err, "read password")
		}
		return string(pw), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return "", errors.New(errors.ErrCodeInvalidInput, "no password given (set %s or pipe it on stdin)", config.EnvPassword)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
