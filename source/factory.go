package source

import (
	"context"
	"fmt"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"google.golang.org/api/option"

	"github.com/sardine-ai/provider-registry/config"
)

// NewRepository builds the repository described by cfg.
func NewRepository(ctx context.Context, cfg config.SourceConfig) (Repository, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("source %q: %w", cfg.Name, err)
	}
	switch cfg.Type {
	case config.SourceFile, "":
		return &FileRepository{Name: cfg.Name, Path: cfg.Path}, nil
	case config.SourceHTTP:
		u, err := url.Parse(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("source %q: %w", cfg.Name, err)
		}
		return &WebRepository{Name: cfg.Name, URL: u, APIKey: cfg.APIKey}, nil
	case config.SourceGit:
		u, err := url.Parse(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("source %q: %w", cfg.Name, err)
		}
		repo := &GitRepository{Name: cfg.Name, URL: u, Path: cfg.Path, Branch: cfg.Branch}
		if cfg.Username != "" || cfg.Password != "" {
			repo.Auth = &http.BasicAuth{Username: cfg.Username, Password: cfg.Password}
		}
		return repo, nil
	case config.SourceS3:
		repo := &AwsS3Repository{Name: cfg.Name, BucketName: cfg.Bucket, ObjectName: cfg.Object, Region: cfg.Region}
		if cfg.Endpoint != "" {
			client, err := newS3Client(ctx, cfg)
			if err != nil {
				return nil, fmt.Errorf("source %q: %w", cfg.Name, err)
			}
			repo.Client = client
		}
		return repo, nil
	case config.SourceGCS:
		repo := &GcpStorageRepository{Name: cfg.Name, BucketName: cfg.Bucket, ObjectName: cfg.Object}
		if cfg.Endpoint != "" {
			repo.ClientOptions = append(repo.ClientOptions, option.WithEndpoint(cfg.Endpoint), option.WithoutAuthentication())
		}
		return repo, nil
	}
	return nil, fmt.Errorf("source %q: unknown type %q", cfg.Name, cfg.Type)
}

// newS3Client targets an S3 compatible endpoint such as MinIO.
func newS3Client(ctx context.Context, cfg config.SourceConfig) (*s3.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true
	}), nil
}
