package main

import (
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/sardine-ai/provider-registry/client"
)

// apiFlags select the server an API command talks to. Without --api-url the
// credentials saved by "auth login" are used.
type apiFlags struct {
	url    string
	token  string
	output string
}

func (f *apiFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.url, "api-url", "", "API server URL, defaults to the saved credentials")
	cmd.Flags().StringVar(&f.token, "api-token", "", "API token used with --api-url")
	cmd.Flags().StringVarP(&f.output, "output", "o", "table", "output format (table, json)")
}

func (f *apiFlags) client() (*client.Client, error) {
	if f.url != "" {
		return client.New(f.url, f.token, client.KindCLI), nil
	}
	return client.FromCredentials(client.KindCLI)
}

// print writes v as JSON, or the table built by rows.
func (f *apiFlags) print(opts *options, v interface{}, headers []string, rows [][]string) error {
	switch f.output {
	case "json":
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		opts.out.Println(string(data))
		return nil
	case "table", "":
		opts.out.Println(renderTable(headers, rows))
		return nil
	default:
		return fmt.Errorf("unknown output format %q", f.output)
	}
}

func renderTable(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		String()
}
