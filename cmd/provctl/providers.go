package main

import (
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

func newProvidersCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "providers",
		Short: "Query providers",
	}
	cmd.AddCommand(newProvidersListCmd(opts), newProvidersGetCmd(opts))
	return cmd
}

func newProvidersListCmd(opts *options) *cobra.Command {
	flags := &apiFlags{}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List providers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := flags.client()
			if err != nil {
				return err
			}
			providers, err := c.Providers().List(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(providers.Providers))
			for _, p := range providers.Providers {
				rows = append(rows, []string{p.PackageName, p.Name, p.Version, p.State})
			}
			return flags.print(opts, providers, []string{"PACKAGE", "NAME", "VERSION", "STATE"}, rows)
		},
	}
	flags.register(cmd)
	return cmd
}

func newProvidersGetCmd(opts *options) *cobra.Command {
	flags := &apiFlags{}
	cmd := &cobra.Command{
		Use:   "get <package-name>",
		Short: "Show one provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := flags.client()
			if err != nil {
				return err
			}
			p, err := c.Providers().Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			connTypes := make([]string, 0, len(p.ConnectionTypes))
			for _, ct := range p.ConnectionTypes {
				connTypes = append(connTypes, ct.ConnectionType)
			}
			sections := make([]string, 0, len(p.Config))
			for s := range p.Config {
				sections = append(sections, s)
			}
			sort.Strings(sections)
			rows := [][]string{
				{"package", p.PackageName},
				{"name", p.Name},
				{"state", p.State},
				{"versions", strings.Join(p.Versions, ", ")},
				{"integrations", strings.Join(p.IntegrationNames(), ", ")},
				{"connection types", strings.Join(connTypes, ", ")},
				{"executors", strings.Join(p.Executors, ", ")},
				{"config sections", strings.Join(sections, ", ")},
			}
			return flags.print(opts, p, []string{"FIELD", "VALUE"}, rows)
		},
	}
	flags.register(cmd)
	return cmd
}

func newConnectionTypesCmd(opts *options) *cobra.Command {
	flags := &apiFlags{}
	cmd := &cobra.Command{
		Use:   "connection-types [type]",
		Short: "List connection types and the hooks serving them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := flags.client()
			if err != nil {
				return err
			}
			headers := []string{"CONNECTION TYPE", "HOOK", "PACKAGE"}
			if len(args) == 1 {
				hook, err := c.ConnectionType(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return flags.print(opts, hook, headers, [][]string{{hook.ConnectionType, hook.HookClassName, hook.PackageName}})
			}
			hooks, err := c.ConnectionTypes(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(hooks.ConnectionTypes))
			for _, h := range hooks.ConnectionTypes {
				rows = append(rows, []string{h.ConnectionType, h.HookClassName, h.PackageName})
			}
			return flags.print(opts, hooks, headers, rows)
		},
	}
	flags.register(cmd)
	return cmd
}

func newExecutorsCmd(opts *options) *cobra.Command {
	flags := &apiFlags{}
	cmd := &cobra.Command{
		Use:   "executors",
		Short: "List executors of active providers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := flags.client()
			if err != nil {
				return err
			}
			executors, err := c.Executors(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(executors.Executors))
			for _, e := range executors.Executors {
				rows = append(rows, []string{e.ClassName, e.PackageName})
			}
			return flags.print(opts, executors, []string{"EXECUTOR", "PACKAGE"}, rows)
		},
	}
	flags.register(cmd)
	return cmd
}

func newConfigCmd(opts *options) *cobra.Command {
	flags := &apiFlags{}
	cmd := &cobra.Command{
		Use:   "config [section option]",
		Short: "Show configuration defaults, or one option",
		Args:  cobra.MatchAll(cobra.MaximumNArgs(2), func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return cobra.ExactArgs(2)(cmd, args)
			}
			return nil
		}),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := flags.client()
			if err != nil {
				return err
			}
			if len(args) == 2 {
				opt, err := c.ConfigOption(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				value := ""
				if opt.Option.Default != nil {
					value = *opt.Option.Default
				}
				return flags.print(opts, opt, []string{"SECTION", "OPTION", "TYPE", "DEFAULT", "PACKAGE"},
					[][]string{{opt.Section, opt.Name, opt.Option.Type, value, opt.PackageName}})
			}
			cfg, err := c.Config(cmd.Context())
			if err != nil {
				return err
			}
			var rows [][]string
			sections := make([]string, 0, len(cfg.Sections))
			for s := range cfg.Sections {
				sections = append(sections, s)
			}
			sort.Strings(sections)
			for _, s := range sections {
				names := make([]string, 0, len(cfg.Sections[s]))
				for n := range cfg.Sections[s] {
					names = append(names, n)
				}
				sort.Strings(names)
				for _, n := range names {
					rows = append(rows, []string{s, n, cfg.Sections[s][n]})
				}
			}
			return flags.print(opts, cfg, []string{"SECTION", "OPTION", "DEFAULT"}, rows)
		},
	}
	flags.register(cmd)
	return cmd
}

func newConflictsCmd(opts *options) *cobra.Command {
	flags := &apiFlags{}
	cmd := &cobra.Command{
		Use:   "conflicts",
		Short: "List definitions ignored because another source declared them first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := flags.client()
			if err != nil {
				return err
			}
			conflicts, err := c.Conflicts(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(conflicts.Conflicts))
			for _, cf := range conflicts.Conflicts {
				rows = append(rows, []string{cf.Kind, cf.Name, cf.Winner, cf.Loser})
			}
			return flags.print(opts, conflicts, []string{"KIND", "NAME", "KEPT", "IGNORED"}, rows)
		},
	}
	flags.register(cmd)
	return cmd
}
