package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/sardine-ai/provider-registry/bootstrap"
	"github.com/sardine-ai/provider-registry/runner"
)

func newBootstrapCmd(opts *options) *cobra.Command {
	var assumeYes bool
	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Install uv and breeze when they are missing",
		Long: `Checks that uv and breeze are on PATH. The first missing tool is offered for
installation; after installing, restart your shell and run bootstrap again.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg.Bootstrap
			prompter := bootstrap.NewPrompter(assumeYes || cfg.AssumeYes, os.Stdin, opts.out.Out)
			b := bootstrap.New(cfg.BreezeDir, prompter, opts.out)
			for i, tool := range b.Tools {
				b.Tools[i].MinVersion = cfg.MinVersions[tool.Name]
			}
			opts.out.Muted("Checkout at commit %s", runner.CommitSHA("."))
			return b.Run(cmd.Context())
		},
	}
	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "install missing tools without asking")
	return cmd
}
