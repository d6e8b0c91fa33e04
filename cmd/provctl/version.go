package main

import (
	"github.com/spf13/cobra"

	"github.com/sardine-ai/provider-registry/client"
)

func newVersionCmd(opts *options) *cobra.Command {
	var remote bool
	flags := &apiFlags{}
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the provctl version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.out.Println("provctl " + version)
			if !remote {
				return nil
			}
			c, err := flags.client()
			if err != nil {
				return err
			}
			v, err := c.Version(cmd.Context())
			if err != nil {
				return err
			}
			opts.out.Println("server " + v.Version)
			return nil
		},
	}
	cmd.Flags().BoolVar(&remote, "remote", false, "also print the server version")
	flags.register(cmd)
	return cmd
}

func init() {
	client.Version = version
}
