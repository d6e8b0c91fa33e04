package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sardine-ai/provider-registry/auth"
	"github.com/sardine-ai/provider-registry/registry"
	"github.com/sardine-ai/provider-registry/server"
	"github.com/sardine-ai/provider-registry/source"
)

func newServeCmd(opts *options) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the merged provider registry over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			if listen != "" {
				cfg.Server.Listen = listen
			}
			if len(cfg.Sources) == 0 {
				return fmt.Errorf("no sources configured")
			}

			ctx := cmd.Context()
			repos := make([]source.Repository, 0, len(cfg.Sources))
			for _, sc := range cfg.Sources {
				repo, err := source.NewRepository(ctx, sc)
				if err != nil {
					return fmt.Errorf("source %s: %w", sc.Name, err)
				}
				repos = append(repos, repo)
			}

			srv := server.NewServer(ctx, registry.New(repos...), cfg.Server.RefreshInterval)
			srv.AuthKey = cfg.Server.APIKey
			srv.Issuer = auth.NewIssuer(cfg.Server.Users, cfg.Server.TokenTTL)
			srv.Version = version
			logrus.WithFields(logrus.Fields{
				"sources": len(repos),
				"auth":    srv.Issuer.Enabled(),
			}).Info("registry loaded")
			return srv.Start(ctx, cfg.Server.Listen)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "address to listen on, overrides server.listen")
	return cmd
}
