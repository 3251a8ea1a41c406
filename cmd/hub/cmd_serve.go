package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sakif/resourcehub/internal/server"
)

func (c *cli) serveCmd() *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local web front",
		Long: `Serve the feed page and a JSON API for resource views on localhost.

Stops cleanly on Ctrl+C or SIGTERM.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if port != "" {
				c.cfg.Port = port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := c.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			srv, err := server.New(a, c.logger)
			if err != nil {
				return err
			}
			return srv.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "listen port (or set HUB_PORT)")
	return cmd
}
