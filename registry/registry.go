// Package registry merges the manifests of several sources into one view and
// indexes connection types, executors and configuration options.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/sardine-ai/provider-registry/manifest"
	"github.com/sardine-ai/provider-registry/source"
)

// ErrNotFound is returned by lookups that match nothing.
var ErrNotFound = errors.New("not found")

// Hook is the hook class serving a connection type.
type Hook struct {
	ConnectionType string `json:"connection_type"`
	HookClassName  string `json:"hook_class_name"`
	PackageName    string `json:"package_name"`
}

// Executor is an executor class and the provider shipping it.
type Executor struct {
	ClassName   string `json:"class_name"`
	PackageName string `json:"package_name"`
}

// Option is a configuration option resolved across providers.
type Option struct {
	Section     string                `json:"section"`
	Name        string                `json:"name"`
	PackageName string                `json:"package_name"`
	Option      manifest.ConfigOption `json:"option"`
}

// Conflict records a name claimed by more than one provider or source.
// The first claimant (configuration order) wins.
type Conflict struct {
	Kind   string `json:"kind"` // "package" or "connection-type"
	Name   string `json:"name"`
	Winner string `json:"winner"`
	Loser  string `json:"loser"`
}

// SourceStatus is the refresh state of one source.
type SourceStatus struct {
	Name        string     `json:"name"`
	Providers   int        `json:"providers"`
	LastRefresh *time.Time `json:"last_refresh,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
	Refreshed   bool       `json:"refreshed"`
}

// Healthy reports whether the last refresh of the source succeeded.
func (s SourceStatus) Healthy() bool {
	return s.Refreshed && s.LastError == ""
}

// Registry is safe for concurrent use.
type Registry struct {
	repos []source.Repository

	mu        sync.RWMutex
	status    map[string]*SourceStatus
	providers []*manifest.Provider
	byPackage map[string]*manifest.Provider
	hooks     map[string]Hook
	conflicts []Conflict
}

// New creates a registry over repos. Earlier repositories win conflicts.
func New(repos ...source.Repository) *Registry {
	r := &Registry{
		repos:     repos,
		status:    make(map[string]*SourceStatus, len(repos)),
		byPackage: make(map[string]*manifest.Provider),
		hooks:     make(map[string]Hook),
	}
	for _, repo := range repos {
		r.status[repo.GetName()] = &SourceStatus{Name: repo.GetName()}
	}
	return r
}

// Repositories returns the underlying sources in configuration order.
func (r *Registry) Repositories() []source.Repository {
	return r.repos
}

// Refresh refreshes every source concurrently and rebuilds the merged view.
// A failing source keeps contributing the manifests of its last good refresh.
// The returned error joins the failures of all sources.
func (r *Registry) Refresh(ctx context.Context) error {
	errs := make([]error, len(r.repos))
	var g errgroup.Group
	for i, repo := range r.repos {
		i, repo := i, repo
		g.Go(func() error {
			err := repo.Refresh(ctx)
			if err != nil {
				logrus.WithError(err).WithField("source", repo.GetName()).Error("error refreshing repository")
				errs[i] = fmt.Errorf("source %s: %w", repo.GetName(), err)
			}
			r.recordRefresh(repo, err)
			return errs[i]
		})
	}
	// The group has no context, so a failing source never stops the others.
	// Wait only reports the first failure; the joined error carries them all.
	failed := g.Wait()

	r.rebuild()
	if failed == nil {
		return nil
	}
	return errors.Join(errs...)
}

func (r *Registry) recordRefresh(repo source.Repository, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.status[repo.GetName()]
	st.Refreshed = true
	now := time.Now()
	st.LastRefresh = &now
	st.Providers = len(repo.GetProviders())
	st.LastError = ""
	if err != nil {
		st.LastError = err.Error()
	}
}

func (r *Registry) rebuild() {
	byPackage := make(map[string]*manifest.Provider)
	owner := make(map[string]string)
	hooks := make(map[string]Hook)
	var providers []*manifest.Provider
	var conflicts []Conflict

	for _, repo := range r.repos {
		for _, p := range repo.GetProviders() {
			if prev, ok := owner[p.PackageName]; ok {
				conflicts = append(conflicts, Conflict{
					Kind:   "package",
					Name:   p.PackageName,
					Winner: prev,
					Loser:  repo.GetName(),
				})
				continue
			}
			owner[p.PackageName] = repo.GetName()
			byPackage[p.PackageName] = p
			providers = append(providers, p)
		}
	}
	sort.Slice(providers, func(i, j int) bool {
		return providers[i].PackageName < providers[j].PackageName
	})

	for _, p := range providers {
		for _, ct := range p.ConnectionTypes {
			if prev, ok := hooks[ct.ConnectionType]; ok {
				conflicts = append(conflicts, Conflict{
					Kind:   "connection-type",
					Name:   ct.ConnectionType,
					Winner: prev.PackageName,
					Loser:  p.PackageName,
				})
				continue
			}
			hooks[ct.ConnectionType] = Hook{
				ConnectionType: ct.ConnectionType,
				HookClassName:  ct.HookClassName,
				PackageName:    p.PackageName,
			}
		}
	}
	for _, c := range conflicts {
		logrus.WithFields(logrus.Fields{
			"kind":   c.Kind,
			"name":   c.Name,
			"winner": c.Winner,
			"loser":  c.Loser,
		}).Warn("conflicting definition ignored")
	}

	r.mu.Lock()
	r.providers = providers
	r.byPackage = byPackage
	r.hooks = hooks
	r.conflicts = conflicts
	r.mu.Unlock()
}

// Providers returns all providers sorted by package name.
func (r *Registry) Providers() []*manifest.Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*manifest.Provider, len(r.providers))
	copy(out, r.providers)
	return out
}

// Provider looks a provider up by package name.
func (r *Registry) Provider(packageName string) (*manifest.Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byPackage[packageName]
	return p, ok
}

// ConnectionType returns the hook serving connType.
func (r *Registry) ConnectionType(connType string) (Hook, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.hooks[connType]
	return h, ok
}

// ConnectionTypes returns every hook sorted by connection type.
func (r *Registry) ConnectionTypes() []Hook {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Hook, 0, len(r.hooks))
	for _, h := range r.hooks {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ConnectionType < out[j].ConnectionType })
	return out
}

// Executors lists the executor classes of active providers.
func (r *Registry) Executors() []Executor {
	var out []Executor
	for _, p := range r.Providers() {
		if !p.IsActive() {
			continue
		}
		for _, e := range p.Executors {
			out = append(out, Executor{ClassName: e, PackageName: p.PackageName})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClassName < out[j].ClassName })
	return out
}

// ConfigOption finds section.option across providers. The first provider in
// package order that declares it wins.
func (r *Registry) ConfigOption(section, option string) (Option, error) {
	for _, p := range r.Providers() {
		cs, ok := p.Config[section]
		if !ok {
			continue
		}
		if opt, ok := cs.Options[option]; ok {
			return Option{Section: section, Name: option, PackageName: p.PackageName, Option: opt}, nil
		}
	}
	return Option{}, fmt.Errorf("config option %s.%s: %w", section, option, ErrNotFound)
}

// Config returns every provider's configuration defaults merged by section,
// with sensitive values redacted.
func (r *Registry) Config() map[string]map[string]string {
	out := make(map[string]map[string]string)
	for _, p := range r.Providers() {
		for section, options := range p.RedactedConfig() {
			if out[section] == nil {
				out[section] = make(map[string]string)
			}
			for name, value := range options {
				if _, taken := out[section][name]; !taken {
					out[section][name] = value
				}
			}
		}
	}
	return out
}

// Conflicts returns the conflicts found by the last rebuild.
func (r *Registry) Conflicts() []Conflict {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Conflict, len(r.conflicts))
	copy(out, r.conflicts)
	return out
}

// Status returns the refresh state of every source in configuration order.
func (r *Registry) Status() []SourceStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]SourceStatus, 0, len(r.repos))
	for _, repo := range r.repos {
		out = append(out, *r.status[repo.GetName()])
	}
	return out
}

// Healthy reports whether every source refreshed successfully last time.
func (r *Registry) Healthy() bool {
	for _, st := range r.Status() {
		if !st.Healthy() {
			return false
		}
	}
	return true
}

// Ready reports whether every source has been refreshed at least once.
func (r *Registry) Ready() bool {
	for _, st := range r.Status() {
		if !st.Refreshed {
			return false
		}
	}
	return true
}
