package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// DefaultEnvironment is used when AIRFLOW_CLI_ENVIRONMENT is not set.
const DefaultEnvironment = "production"

// EnvironmentVariable selects the credentials environment.
const EnvironmentVariable = "AIRFLOW_CLI_ENVIRONMENT"

// ErrCredentialsNotFound is returned when no credentials were saved for the
// environment, or when a CLI client has no token to save.
var ErrCredentialsNotFound = errors.New("credentials not found")

// Credentials are the API URL and token of one environment. The URL is kept
// in <dir>/<environment>.json and the token next to it in
// <dir>/<environment>.token, readable only by the owner.
type Credentials struct {
	APIURL      string
	APIToken    string
	Environment string
	Kind        Kind
}

type credentialsFile struct {
	APIURL string `json:"api_url"`
}

// NewCredentials returns credentials for the environment named by
// AIRFLOW_CLI_ENVIRONMENT, or DefaultEnvironment.
func NewCredentials(apiURL, apiToken string, kind Kind) *Credentials {
	env := os.Getenv(EnvironmentVariable)
	if env == "" {
		env = DefaultEnvironment
	}
	return &Credentials{APIURL: apiURL, APIToken: apiToken, Environment: env, Kind: kind}
}

// ConfigDir is $AIRFLOW_HOME, or ~/airflow.
func ConfigDir() string {
	if dir := os.Getenv("AIRFLOW_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "airflow"
	}
	return filepath.Join(home, "airflow")
}

func (c *Credentials) configPath() string {
	return filepath.Join(ConfigDir(), c.Environment+".json")
}

func (c *Credentials) tokenPath() string {
	return filepath.Join(ConfigDir(), c.Environment+".token")
}

// Save writes the API URL and, when set, the token.
func (c *Credentials) Save() error {
	if c.APIToken == "" && c.Kind == KindCLI {
		return fmt.Errorf("%w: no API token found, please login first", ErrCredentialsNotFound)
	}
	if err := os.MkdirAll(ConfigDir(), 0o755); err != nil {
		return err
	}
	data, err := json.Marshal(credentialsFile{APIURL: c.APIURL})
	if err != nil {
		return err
	}
	if err := os.WriteFile(c.configPath(), data, 0o644); err != nil {
		return err
	}
	if c.APIToken == "" {
		return nil
	}
	logrus.WithField("environment", c.Environment).Debug("saving API token")
	return os.WriteFile(c.tokenPath(), []byte(c.APIToken), 0o600)
}

// Load reads the saved URL and token. When nothing was saved yet an auth
// client saves what it has, while a CLI client gets ErrCredentialsNotFound.
func (c *Credentials) Load() error {
	data, err := os.ReadFile(c.configPath())
	if errors.Is(err, fs.ErrNotExist) {
		switch c.Kind {
		case KindAuth:
			return c.Save()
		case KindCLI:
			return fmt.Errorf("%w in %s for environment %s", ErrCredentialsNotFound, ConfigDir(), c.Environment)
		default:
			return fmt.Errorf("unknown client kind %q", c.Kind)
		}
	}
	if err != nil {
		return err
	}

	var file credentialsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing %s: %w", c.configPath(), err)
	}
	c.APIURL = file.APIURL

	token, err := os.ReadFile(c.tokenPath())
	switch {
	case errors.Is(err, fs.ErrNotExist):
		c.APIToken = ""
	case err != nil:
		return err
	default:
		c.APIToken = strings.TrimSpace(string(token))
	}
	return nil
}
