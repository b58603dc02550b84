package main

import (
	"github.com/spf13/cobra"

	"github.com/vadimtrunov/marquee/internal/config"
	mcpserver "github.com/vadimtrunov/marquee/internal/mcp"
)

// newMCPServeCmd returns the hidden "mcp-serve" subcommand.
// It starts an MCP server over stdin/stdout so assistants can browse the
// catalog and manage favorites as tools.
func newMCPServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:    "mcp-serve",
		Short:  "Start MCP server over stdio",
		Hidden: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}

			// stdout carries the protocol; logs go to a file.
			logger := config.SetupLogger(cfg.App.LogLevel, config.LogWriter(cfg.App, true))

			svc, err := initServices(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			srv := mcpserver.NewServer(mcpserver.Deps{
				Catalog:   svc.loader,
				Trailers:  svc.resolver,
				Favorites: svc.favorites,
			}, version, logger)
			return srv.ServeStdio(cmd.Context())
		},
	}
}
