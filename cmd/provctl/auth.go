package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sardine-ai/provider-registry/auth"
	"github.com/sardine-ai/provider-registry/client"
)

func newAuthCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage API credentials",
	}
	cmd.AddCommand(newLoginCmd(opts))
	return cmd
}

func newLoginCmd(opts *options) *cobra.Command {
	var apiURL, username, password, env string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Get a token from the server and save it",
		Long: `Exchanges a username and password for a token with POST /auth/token and saves
the API URL and token under $AIRFLOW_HOME for the selected environment.
The password can also be given with PROVCTL_PASSWORD.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("PROVCTL_PASSWORD")
			}
			if username == "" || password == "" {
				return errors.New("--username and --password are required")
			}
			token, err := client.New(apiURL, "", client.KindAuth).Login(cmd.Context(), username, password)
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			creds := client.NewCredentials(apiURL, token.AccessToken, client.KindCLI)
			if env != "" {
				creds.Environment = env
			}
			if err := creds.Save(); err != nil {
				return err
			}
			opts.out.Success("Logged in to %s as %s (environment %s, token expires %s)",
				apiURL, username, creds.Environment, token.ExpiresAt.Format("2006-01-02 15:04:05"))
			return nil
		},
	}
	cmd.Flags().StringVar(&apiURL, "api-url", "http://localhost:8080", "API server URL")
	cmd.Flags().StringVarP(&username, "username", "u", "", "user name")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password")
	cmd.Flags().StringVarP(&env, "env", "e", "", "credentials environment, defaults to $"+client.EnvironmentVariable+" or "+client.DefaultEnvironment)
	return cmd
}

func newHashPasswordCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password <password>",
		Short: "Print the bcrypt hash of a password for server.users",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := auth.HashPassword(args[0])
			if err != nil {
				return err
			}
			opts.out.Println(hash)
			return nil
		},
	}
}
