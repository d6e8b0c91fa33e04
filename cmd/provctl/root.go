package main

import (
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sardine-ai/provider-registry/config"
	"github.com/sardine-ai/provider-registry/console"
)

var version = "dev"

type options struct {
	configPath string
	logLevel   string
	cfg        *config.Config
	out        *console.Console
}

func newRootCmd(out *console.Console) *cobra.Command {
	opts := &options{out: out}
	cmd := &cobra.Command{
		Use:           "provctl",
		Short:         "Serve, validate and query provider manifests",
		Long:          `provctl serves a registry of provider manifests merged from local, git, HTTP and object store sources, and bootstraps the tools a development checkout needs.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if opts.logLevel != "" {
				cfg.Log.Level = opts.logLevel
			}
			if err := setupLogging(cfg.Log); err != nil {
				return err
			}
			opts.cfg = cfg
			return nil
		},
	}
	cmd.SetOut(out.Out)
	cmd.SetErr(out.Out)
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to the provctl configuration file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	cmd.AddCommand(
		newServeCmd(opts),
		newValidateCmd(opts),
		newBootstrapCmd(opts),
		newAuthCmd(opts),
		newProvidersCmd(opts),
		newConnectionTypesCmd(opts),
		newExecutorsCmd(opts),
		newConfigCmd(opts),
		newConflictsCmd(opts),
		newHashPasswordCmd(opts),
		newVersionCmd(opts),
	)
	return cmd
}

func setupLogging(cfg config.LogConfig) error {
	level := logrus.InfoLevel
	if cfg.Level != "" {
		parsed, err := logrus.ParseLevel(cfg.Level)
		if err != nil {
			return err
		}
		level = parsed
	}
	logrus.SetLevel(level)
	if strings.EqualFold(cfg.Format, "json") {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}
