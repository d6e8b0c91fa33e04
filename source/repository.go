package source

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sardine-ai/provider-registry/manifest"
)

// ManifestFileName is the file looked up when a source points at a
// directory or an object prefix.
const ManifestFileName = "provider.yaml"

// Repository is a named source of provider manifests.
type Repository interface {
	GetName() string
	GetProviders() []*manifest.Provider
	GetProvider(packageName string) (*manifest.Provider, bool)
	GetRawData() []byte
	Refresh(ctx context.Context) error
}

// store keeps the parsed manifests of a repository. Repositories embed it and
// call load with freshly fetched bytes.
type store struct {
	sync.RWMutex                               // RWMutex to synchronize access to data during refresh
	providers    []*manifest.Provider           // Providers sorted by package name
	index        map[string]*manifest.Provider // Providers by package name
	rawData      []byte                         // Raw YAML bundle
}

// GetProviders returns the providers of the last successful refresh.
func (s *store) GetProviders() []*manifest.Provider {
	s.RLock()
	defer s.RUnlock()
	out := make([]*manifest.Provider, len(s.providers))
	copy(out, s.providers)
	return out
}

// GetProvider looks a provider up by package name.
func (s *store) GetProvider(packageName string) (*manifest.Provider, bool) {
	s.RLock()
	defer s.RUnlock()
	p, ok := s.index[packageName]
	return p, ok
}

// GetRawData returns the raw YAML of the last successful refresh.
func (s *store) GetRawData() []byte {
	s.RLock()
	defer s.RUnlock()
	return s.rawData
}

// load parses and validates data outside the lock and only swaps on success,
// so a bad refresh keeps serving the previous manifests.
func (s *store) load(data []byte) error {
	providers, err := manifest.ParseAndValidate(data)
	if err != nil {
		return err
	}
	index := make(map[string]*manifest.Provider, len(providers))
	for _, p := range providers {
		if _, dup := index[p.PackageName]; dup {
			return fmt.Errorf("package %q is defined twice", p.PackageName)
		}
		index[p.PackageName] = p
	}
	sort.Slice(providers, func(i, j int) bool {
		return providers[i].PackageName < providers[j].PackageName
	})

	s.Lock()
	s.providers = providers
	s.index = index
	s.rawData = data
	s.Unlock()
	return nil
}
