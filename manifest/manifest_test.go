package manifest

import (
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readTestdata(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile("testdata/" + name)
	require.NoError(t, err)
	return data
}

func TestParseSingleManifest(t *testing.T) {
	providers, err := Parse(readTestdata(t, "redis.yaml"))
	require.NoError(t, err)
	require.Len(t, providers, 1)

	p := providers[0]
	assert.Equal(t, "apache-airflow-providers-redis", p.PackageName)
	assert.Equal(t, "Redis", p.Name)
	assert.Equal(t, "4.0.1", p.LatestVersion())
	assert.Equal(t, int64(1741509647), p.SourceDateEpoch)
	assert.True(t, p.IsActive())
	require.Len(t, p.ConnectionTypes, 1)
	assert.Equal(t, "redis", p.ConnectionTypes[0].ConnectionType)
	assert.Len(t, p.Sensors[0].PythonModules, 2)
	assert.Nil(t, p.Config["redis"].Options["ssl"].Default)
	assert.NoError(t, Validate(p))
}

func TestParseBundle(t *testing.T) {
	data := Bundle(readTestdata(t, "redis.yaml"), []byte("\n\n"), readTestdata(t, "celery.yaml"))
	providers, err := Parse(data)
	require.NoError(t, err)
	require.Len(t, providers, 2)
	assert.Equal(t, "apache-airflow-providers-celery", providers[1].PackageName)
	assert.Equal(t, StateReady, providers[1].State)
	assert.Len(t, providers[1].Executors, 2)
}

func TestBundleStripsDirectives(t *testing.T) {
	withDirective := append([]byte("# generated\n%YAML 1.2\n%TAG ! tag:example.com,2024:\n"), readTestdata(t, "redis.yaml")...)
	data := Bundle(withDirective, readTestdata(t, "celery.yaml"))
	assert.NotContains(t, string(data), "%YAML")

	providers, err := Parse(data)
	require.NoError(t, err)
	require.Len(t, providers, 2)
	assert.Equal(t, "apache-airflow-providers-celery", providers[1].PackageName)
}

func TestParseEmpty(t *testing.T) {
	_, err := Parse([]byte("---\n---\n"))
	assert.ErrorIs(t, err, ErrNoProviders)
}

func TestParseInvalidYAML(t *testing.T) {
	_, err := Parse([]byte("package-name: [unterminated"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "document 0")
}

func TestParseUnknownKeysTolerated(t *testing.T) {
	providers, err := Parse([]byte("package-name: x\nname: X\nversions: [1.0.0]\nlogging: [a.b]\n"))
	require.NoError(t, err)
	assert.NoError(t, Validate(providers[0]))
}

func TestConfigDefaults(t *testing.T) {
	providers, err := Parse(readTestdata(t, "redis.yaml"))
	require.NoError(t, err)
	p := providers[0]

	defaults := p.ConfigDefaults()
	assert.Equal(t, map[string]string{"socket_timeout": "30", "password": "changeme"}, defaults["redis"])

	redacted := p.RedactedConfig()
	assert.Equal(t, RedactedValue, redacted["redis"]["password"])
	assert.Equal(t, "30", redacted["redis"]["socket_timeout"])
}

func TestValidateCollectsProblems(t *testing.T) {
	raw := `
package-name: Not_Valid
versions: [1.0.0, 2.0.0, 2.0.0, banana]
integrations:
  - integration-name: Redis
    external-doc-url: not a url
hooks:
  - integration-name: Postgres
    python-modules: [a.b]
connection-types:
  - hook-class-name: a.b.Hook
    connection-type: dup
  - hook-class-name: a.b.Other
    connection-type: dup
config:
  core:
    options:
      workers:
        type: integer
        default: "many"
      mode:
        type: enum
        default: ~
`
	providers, err := Parse([]byte(raw))
	require.NoError(t, err)

	err = Validate(providers[0])
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "Not_Valid", verr.PackageName)

	joined := strings.Join(verr.Problems, "\n")
	for _, want := range []string{
		"package-name \"Not_Valid\" must be lowercase",
		"name is required",
		"integrations[0].external-doc-url",
		"newest first",
		"\"2.0.0\" is listed twice",
		"\"banana\" is not a release version",
		"hooks[0] references undeclared integration \"Postgres\"",
		"connection-types[1] \"dup\" is declared twice",
		"config.core.options.workers.default \"many\" is not a valid integer",
		"config.core.options.mode.type \"enum\" is not supported",
	} {
		assert.Contains(t, joined, want)
	}
}

func TestValidateRejectsLeadingZeros(t *testing.T) {
	err := Validate(&Provider{PackageName: "p", Name: "P", Versions: []string{"1.10.0", "1.9.0", "1.09.0"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `versions[2] "1.09.0" is not a release version`)
	assert.NotContains(t, err.Error(), "listed twice")
}

func TestIsReleaseVersion(t *testing.T) {
	for _, v := range []string{"0.1.0", "1.10.0", "2.0.0rc1", "2.0.0.dev0", "10.0.0b2"} {
		assert.True(t, IsReleaseVersion(v), v)
	}
	for _, v := range []string{"1.09.0", "01.0.0", "1.0.00", "2.0.0rc01", "2.0.0.dev01", "1.0", "v1.0.0"} {
		assert.False(t, IsReleaseVersion(v), v)
	}
}

func TestValidateMissingVersions(t *testing.T) {
	err := Validate(&Provider{PackageName: "p", Name: "P", Versions: []string{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "versions needs at least 1 entries")
}

func TestValidateNil(t *testing.T) {
	assert.Error(t, Validate(nil))
}

func TestParseAndValidate(t *testing.T) {
	_, err := ParseAndValidate([]byte("package-name: ok\nname: Ok\nversions: [1.0.0]\n---\npackage-name: bad\nversions: [x]\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider bad")
	assert.NotContains(t, err.Error(), "provider ok")
}

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.0.0", "1.0.0", 0},
		{"1.0.1", "1.0.0", 1},
		{"1.10.0", "1.9.0", 1},
		{"2.0.0rc1", "2.0.0", -1},
		{"2.0.0b1", "2.0.0rc1", -1},
		{"2.0.0a1", "2.0.0b1", -1},
		{"2.0.0.dev1", "2.0.0a1", -1},
		{"2.0.0rc2", "2.0.0rc1", 1},
	}
	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, CompareVersions(tt.a, tt.b))
		})
	}
}

func TestRedacted(t *testing.T) {
	providers, err := Parse(readTestdata(t, "redis.yaml"))
	require.NoError(t, err)
	p := providers[0]

	r := p.Redacted()
	assert.Equal(t, RedactedValue, *r.Config["redis"].Options["password"].Default)
	assert.Equal(t, "changeme", *p.Config["redis"].Options["password"].Default, "original must be untouched")
	assert.Equal(t, "30", *r.Config["redis"].Options["socket_timeout"].Default)
	assert.Equal(t, p.PackageName, r.PackageName)
}
