package main

import (
	"context"

	"github.com/spf13/cobra"

	corecmd "github.com/m3rciful/minerva/core/cmd"
	"github.com/m3rciful/minerva/internal/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and Telegram transports",
	Long: `Starts every configured transport: the JSON chat endpoint when http.listen is set
and the Telegram bot when telegram.token is set. Stops gracefully on SIGINT or SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		opts := runnerOptions()
		opts.LoadConfig = func(path string) (corecmd.ConfigCarrier, error) {
			cfg, err := app.Load(path)
			if err != nil {
				return nil, err
			}
			if err := cfg.RequireTransport(); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		opts.Bootstrap = func(ctx context.Context, cfg corecmd.ConfigCarrier) (corecmd.Service, error) {
			return app.New(ctx, cfg.(*app.Config), app.Options{})
		}
		return corecmd.Run(cmd.Context(), opts)
	},
}
