// Package climatectl implements the admin CLI. It drives the same
// session manager and route guard decisions the server uses, talking
// to a running climate centre over its HTTP API.
package climatectl

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"climatecentre/internal/client"
	"climatecentre/internal/session"
)

var (
	serverURL string
	tokenPath string
	verbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "climatectl",
	Short: "Administer a climate information centre server",
	Long: `climatectl manages the content of a climate information centre:
articles, blog posts, gallery items, and external data sources.

Sign in first; admin commands need an account listed in the admin
registry. The bearer token is kept on disk between invocations.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("CIC_SERVER", "http://localhost:8080"), "server base URL")
	rootCmd.PersistentFlags().StringVar(&tokenPath, "token-file", defaultTokenPath(), "file holding the bearer token")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log client activity")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func defaultTokenPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".climatecentre-token"
	}
	return filepath.Join(home, ".climatecentre", "token")
}

func cliLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func newAPIClient() *client.Client {
	return client.New(serverURL, tokenPath, cliLogger())
}

// newManager builds an initialized session manager over the API
// client. The client doubles as the admin checker.
func newManager(ctx context.Context) (*session.Manager, *client.Client, error) {
	c := newAPIClient()
	mgr := session.New(c, c, cliLogger())
	if err := mgr.Initialize(ctx); err != nil {
		return nil, nil, err
	}
	return mgr, c, nil
}

// adminClient returns an API client whose session grants admin access,
// or an error explaining what is missing.
func adminClient(ctx context.Context) (*client.Client, error) {
	mgr, c, err := newManager(ctx)
	if err != nil {
		return nil, err
	}
	defer mgr.Close()

	switch session.Evaluate(mgr.State()) {
	case session.StatusGranted:
		return c, nil
	case session.StatusForbidden:
		return nil, fmt.Errorf("signed in as %s, but that account is not an admin", mgr.State().User.Email)
	default:
		return nil, fmt.Errorf("not signed in; run 'climatectl login' first")
	}
}
