package registry

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sardine-ai/provider-registry/manifest"
)

// mockRepository is a thread-safe in-memory source.
type mockRepository struct {
	mu           sync.RWMutex
	name         string
	providers    []*manifest.Provider
	refreshCount int
	err          error
}

func (m *mockRepository) GetName() string { return m.name }

func (m *mockRepository) GetProviders() []*manifest.Provider {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.providers
}

func (m *mockRepository) GetProvider(name string) (*manifest.Provider, bool) {
	for _, p := range m.GetProviders() {
		if p.PackageName == name {
			return p, true
		}
	}
	return nil, false
}

func (m *mockRepository) GetRawData() []byte { return nil }

func (m *mockRepository) Refresh(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshCount++
	return m.err
}

func provider(name string, connTypes ...string) *manifest.Provider {
	p := &manifest.Provider{PackageName: name, Name: name, Versions: []string{"1.0.0"}, State: manifest.StateReady}
	for _, ct := range connTypes {
		p.ConnectionTypes = append(p.ConnectionTypes, manifest.ConnectionType{
			ConnectionType: ct,
			HookClassName:  name + ".hooks.Hook",
		})
	}
	return p
}

func str(s string) *string { return &s }

func TestRegistryMergesSources(t *testing.T) {
	a := &mockRepository{name: "a", providers: []*manifest.Provider{provider("redis", "redis"), provider("celery")}}
	b := &mockRepository{name: "b", providers: []*manifest.Provider{provider("opsgenie", "opsgenie"), provider("redis", "redis")}}

	reg := New(a, b)
	require.NoError(t, reg.Refresh(context.Background()))

	var names []string
	for _, p := range reg.Providers() {
		names = append(names, p.PackageName)
	}
	assert.Equal(t, []string{"celery", "opsgenie", "redis"}, names)

	conflicts := reg.Conflicts()
	require.Len(t, conflicts, 1)
	assert.Equal(t, Conflict{Kind: "package", Name: "redis", Winner: "a", Loser: "b"}, conflicts[0])

	hook, ok := reg.ConnectionType("opsgenie")
	require.True(t, ok)
	assert.Equal(t, "opsgenie", hook.PackageName)
	assert.Len(t, reg.ConnectionTypes(), 2)

	_, ok = reg.Provider("celery")
	assert.True(t, ok)
	_, ok = reg.Provider("salesforce")
	assert.False(t, ok)
}

func TestRegistryConnectionTypeConflict(t *testing.T) {
	a := &mockRepository{name: "a", providers: []*manifest.Provider{provider("alpha", "http"), provider("beta", "http")}}
	reg := New(a)
	require.NoError(t, reg.Refresh(context.Background()))

	hook, ok := reg.ConnectionType("http")
	require.True(t, ok)
	assert.Equal(t, "alpha", hook.PackageName)
	assert.Equal(t, []Conflict{{Kind: "connection-type", Name: "http", Winner: "alpha", Loser: "beta"}}, reg.Conflicts())
}

func TestRegistryStatus(t *testing.T) {
	good := &mockRepository{name: "good", providers: []*manifest.Provider{provider("redis")}}
	bad := &mockRepository{name: "bad", err: errors.New("bucket unreachable")}

	reg := New(good, bad)
	assert.False(t, reg.Ready())

	err := reg.Refresh(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source bad: bucket unreachable")

	assert.True(t, reg.Ready())
	assert.False(t, reg.Healthy())
	status := reg.Status()
	require.Len(t, status, 2)
	assert.Equal(t, "good", status[0].Name)
	assert.True(t, status[0].Healthy())
	assert.Equal(t, 1, status[0].Providers)
	assert.Equal(t, "bucket unreachable", status[1].LastError)

	// the healthy source still contributes
	_, ok := reg.Provider("redis")
	assert.True(t, ok)

	bad.mu.Lock()
	bad.err = nil
	bad.mu.Unlock()
	require.NoError(t, reg.Refresh(context.Background()))
	assert.True(t, reg.Healthy())
	assert.Equal(t, 2, bad.refreshCount)
}

func TestRegistryRefreshJoinsEveryFailure(t *testing.T) {
	good := &mockRepository{name: "good", providers: []*manifest.Provider{provider("redis")}}
	first := &mockRepository{name: "first", err: errors.New("bucket unreachable")}
	second := &mockRepository{name: "second", err: errors.New("clone failed")}

	reg := New(first, good, second)
	err := reg.Refresh(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source first: bucket unreachable")
	assert.Contains(t, err.Error(), "source second: clone failed")
	assert.NotContains(t, err.Error(), "source good")

	assert.Equal(t, 1, good.refreshCount)
	_, ok := reg.Provider("redis")
	assert.True(t, ok)
}

func TestRegistryStatusBeforeRefresh(t *testing.T) {
	reg := New(&mockRepository{name: "a", providers: []*manifest.Provider{provider("redis")}})

	status := reg.Status()
	require.Len(t, status, 1)
	assert.Nil(t, status[0].LastRefresh)
	data, err := json.Marshal(status[0])
	require.NoError(t, err)
	assert.NotContains(t, string(data), "last_refresh")

	require.NoError(t, reg.Refresh(context.Background()))
	status = reg.Status()
	require.NotNil(t, status[0].LastRefresh)
	assert.False(t, status[0].LastRefresh.IsZero())
	data, err = json.Marshal(status[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "last_refresh")
}

func TestRegistryExecutors(t *testing.T) {
	celery := provider("celery")
	celery.Executors = []string{"celery.CeleryExecutor", "celery.CeleryKubernetesExecutor"}
	removed := provider("old")
	removed.State = manifest.StateRemoved
	removed.Executors = []string{"old.Executor"}

	reg := New(&mockRepository{name: "a", providers: []*manifest.Provider{celery, removed}})
	require.NoError(t, reg.Refresh(context.Background()))

	assert.Equal(t, []Executor{
		{ClassName: "celery.CeleryExecutor", PackageName: "celery"},
		{ClassName: "celery.CeleryKubernetesExecutor", PackageName: "celery"},
	}, reg.Executors())
}

func TestRegistryConfig(t *testing.T) {
	redis := provider("redis")
	redis.Config = map[string]manifest.ConfigSection{
		"redis": {Options: map[string]manifest.ConfigOption{
			"timeout":  {Type: manifest.TypeInteger, Default: str("30")},
			"password": {Type: manifest.TypeString, Default: str("hunter2"), Sensitive: true},
		}},
	}
	reg := New(&mockRepository{name: "a", providers: []*manifest.Provider{redis}})
	require.NoError(t, reg.Refresh(context.Background()))

	opt, err := reg.ConfigOption("redis", "timeout")
	require.NoError(t, err)
	assert.Equal(t, "redis", opt.PackageName)
	assert.Equal(t, "30", *opt.Option.Default)

	_, err = reg.ConfigOption("redis", "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	cfg := reg.Config()
	assert.Equal(t, manifest.RedactedValue, cfg["redis"]["password"])
	assert.Equal(t, "30", cfg["redis"]["timeout"])
}
