package source

import (
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/sardine-ai/provider-registry/manifest"
)

// AwsS3Repository is a struct that implements the Repository interface for
// manifests stored in an S3 bucket. An ObjectName ending in "/" is treated
// as a prefix and every provider.yaml below it is loaded.
type AwsS3Repository struct {
	store
	Name          string     // Name of the manifest source
	BucketName    string     // Name of the S3 bucket
	ObjectName    string     // Object key or prefix
	Region        string     // Region used when the client is built lazily
	Client        *s3.Client // S3 client instance
	clientOnce    sync.Once  // Ensures client is initialized only once
	clientInitErr error      // Stores error from client initialization
}

// GetName returns the name of the manifest source.
func (a *AwsS3Repository) GetName() string {
	return a.Name
}

// Refresh reads the manifests from the bucket.
func (a *AwsS3Repository) Refresh(ctx context.Context) error {
	// Thread-safe client initialization using sync.Once (only if client not pre-configured)
	if a.Client == nil {
		a.clientOnce.Do(func() {
			var opts []func(*config.LoadOptions) error
			if a.Region != "" {
				opts = append(opts, config.WithRegion(a.Region))
			}
			cfg, err := config.LoadDefaultConfig(ctx, opts...)
			if err != nil {
				a.clientInitErr = fmt.Errorf("failed to load AWS config: %w", err)
				return
			}
			a.Client = s3.NewFromConfig(cfg)
		})
		if a.clientInitErr != nil {
			return a.clientInitErr
		}
	}

	keys := []string{a.ObjectName}
	if strings.HasSuffix(a.ObjectName, "/") {
		var err error
		keys, err = a.listManifests(ctx)
		if err != nil {
			return err
		}
	}

	docs := make([][]byte, 0, len(keys))
	for _, key := range keys {
		doc, err := a.getObject(ctx, key)
		if err != nil {
			return fmt.Errorf("s3://%s/%s: %w", a.BucketName, key, err)
		}
		docs = append(docs, doc)
	}

	return a.load(manifest.Bundle(docs...))
}

func (a *AwsS3Repository) listManifests(ctx context.Context) ([]string, error) {
	var keys []string
	paginator := s3.NewListObjectsV2Paginator(a.Client, &s3.ListObjectsV2Input{
		Bucket: aws.String(a.BucketName),
		Prefix: aws.String(a.ObjectName),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if path.Base(key) == ManifestFileName {
				keys = append(keys, key)
			}
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (a *AwsS3Repository) getObject(ctx context.Context, key string) ([]byte, error) {
	result, err := a.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.BucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	defer result.Body.Close()
	return io.ReadAll(result.Body)
}
