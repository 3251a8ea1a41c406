// Package main is the hub command: a terminal client for a ResourceHub
// server, and the launcher for its local web front.
//
//	hub login                 store a session token
//	hub feed                  public feed
//	hub show 12               one resource with comments
//	hub like 12               toggle your like
//	hub serve                 web front on http://localhost:3000
//
// Configuration comes from, lowest to highest precedence: built-in
// defaults, .env / .env.local, the YAML file named by --config, HUB_*
// environment variables, and flags.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sakif/resourcehub/internal/app"
	"github.com/sakif/resourcehub/internal/apperror"
	"github.com/sakif/resourcehub/internal/config"
)

// cli carries the persistent flags and the streams every command writes to.
type cli struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	configPath string
	apiURL     string
	dbPath     string
	verbose    bool
	ephemeral  bool

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd(in io.Reader, out, errOut io.Writer) *cobra.Command {
	c := &cli{in: in, out: out, errOut: errOut}

	root := &cobra.Command{
		Use:           "hub",
		Short:         "Browse and share resources on a ResourceHub server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.loadConfig(cmd)
		},
	}
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "hub.yaml", "YAML config file")
	root.PersistentFlags().StringVar(&c.apiURL, "api", "", "ResourceHub API base URL (or set HUB_API_URL)")
	root.PersistentFlags().StringVar(&c.dbPath, "db", "", "session database path (or set HUB_DB_PATH)")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().BoolVar(&c.ephemeral, "ephemeral", false, "keep the session in memory only")

	root.AddCommand(
		c.loginCmd(),
		c.logoutCmd(),
		c.registerCmd(),
		c.whoamiCmd(),
		c.feedCmd(),
		c.mineCmd(),
		c.showCmd(),
		c.likeCmd(),
		c.commentCmd(),
		c.uncommentCmd(),
		c.createCmd(),
		c.deleteCmd(),
		c.serveCmd(),
	)
	return root
}

func (c *cli) loadConfig(cmd *cobra.Command) error {
	config.LoadDotEnv(".")

	path := c.configPath
	if !cmd.Flags().Changed("config") {
		if _, err := os.Stat(path); err != nil {
			path = ""
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	if c.apiURL != "" {
		cfg.APIURL = c.apiURL
	}
	if c.dbPath != "" {
		cfg.DBPath = c.dbPath
	}
	if c.ephemeral {
		cfg.Ephemeral = true
	}
	if c.verbose {
		cfg.LogLevel = "debug"
	}

	c.cfg = cfg
	c.logger = app.NewLogger(c.errOut, cfg.SlogLevel())
	return nil
}

// open builds the app for one command. The caller closes it.
func (c *cli) open(ctx context.Context) (*app.App, error) {
	a, err := app.New(ctx, c.cfg, c.logger)
	if err != nil {
		return nil, fmt.Errorf("starting hub: %w", err)
	}
	return a, nil
}

func main() {
	root := newRootCmd(os.Stdin, os.Stdout, os.Stderr)
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", errorText(err))
		os.Exit(1)
	}
}

// errorText is what the user sees for err: the message of the innermost
// AppError, without the layer prefixes the chain picked up on the way out.
func errorText(err error) string {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
