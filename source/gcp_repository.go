package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"sync"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/sardine-ai/provider-registry/manifest"
)

// GcpStorageRepository is a struct that implements the Repository interface for
// manifests stored in a GCS bucket. Prefix handling matches AwsS3Repository.
type GcpStorageRepository struct {
	store
	Name          string                // Name of the manifest source
	BucketName    string                // Name of the GCS bucket
	ObjectName    string                // Object name or prefix
	ClientOptions []option.ClientOption // Options used when the client is built lazily
	Client        *storage.Client       // GCS client instance
	clientOnce    sync.Once             // Ensures client is initialized only once
	clientInitErr error                 // Stores error from client initialization
}

// GetName returns the name of the manifest source.
func (g *GcpStorageRepository) GetName() string {
	return g.Name
}

// Refresh reads the manifests from the bucket.
func (g *GcpStorageRepository) Refresh(ctx context.Context) error {
	// Thread-safe client initialization using sync.Once (only if client not pre-configured)
	if g.Client == nil {
		g.clientOnce.Do(func() {
			g.Client, g.clientInitErr = storage.NewClient(ctx, g.ClientOptions...)
		})
		if g.clientInitErr != nil {
			return g.clientInitErr
		}
	}

	bucket := g.Client.Bucket(g.BucketName)
	names := []string{g.ObjectName}
	if strings.HasSuffix(g.ObjectName, "/") {
		var err error
		names, err = listGCSManifests(ctx, bucket, g.ObjectName)
		if err != nil {
			return err
		}
	}

	docs := make([][]byte, 0, len(names))
	for _, name := range names {
		doc, err := readGCSObject(ctx, bucket, name)
		if err != nil {
			return fmt.Errorf("gs://%s/%s: %w", g.BucketName, name, err)
		}
		docs = append(docs, doc)
	}

	return g.load(manifest.Bundle(docs...))
}

func listGCSManifests(ctx context.Context, bucket *storage.BucketHandle, prefix string) ([]string, error) {
	var names []string
	it := bucket.Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		if path.Base(attrs.Name) == ManifestFileName {
			names = append(names, attrs.Name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func readGCSObject(ctx context.Context, bucket *storage.BucketHandle, name string) ([]byte, error) {
	reader, err := bucket.Object(name).NewReader(ctx)
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return io.ReadAll(reader)
}
