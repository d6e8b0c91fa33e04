package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sardine-ai/provider-registry/source"
)

func newValidateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file or directory>...",
		Short: "Validate provider manifests",
		Long:  `Parses and validates provider manifests. A directory is searched for provider.yaml files.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := 0
			for _, path := range args {
				repo := &source.FileRepository{Name: path, Path: path}
				if err := repo.Refresh(cmd.Context()); err != nil {
					opts.out.Error("%s: %v", path, err)
					failed++
					continue
				}
				opts.out.Success("%s: %d providers OK", path, len(repo.GetProviders()))
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d paths failed validation", failed, len(args))
			}
			return nil
		},
	}
}
