package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// fakeS3 serves path-style GetObject and ListObjectsV2 for a single bucket.
func fakeS3(t *testing.T, bucket string, objects map[string][]byte) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("list-type") == "2" {
			prefix := r.URL.Query().Get("prefix")
			var contents strings.Builder
			count := 0
			for key := range objects {
				if strings.HasPrefix(key, prefix) {
					fmt.Fprintf(&contents, "<Contents><Key>%s</Key><Size>%d</Size></Contents>", key, len(objects[key]))
					count++
				}
			}
			w.Header().Set("Content-Type", "application/xml")
			fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>
<ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/"><Name>%s</Name><Prefix>%s</Prefix><KeyCount>%d</KeyCount><MaxKeys>1000</MaxKeys><IsTruncated>false</IsTruncated>%s</ListBucketResult>`,
				bucket, prefix, count, contents.String())
			return
		}
		key := strings.TrimPrefix(r.URL.Path, "/"+bucket+"/")
		data, ok := objects[key]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>not found</Message></Error>`)
			return
		}
		w.Header().Set("Content-Length", fmt.Sprint(len(data)))
		w.Write(data)
	}))
}

func newTestS3Client(endpoint string) *s3.Client {
	return s3.New(s3.Options{
		Region:       "us-east-1",
		Credentials:  credentials.NewStaticCredentialsProvider("key", "secret", ""),
		BaseEndpoint: aws.String(endpoint),
		UsePathStyle: true,
	})
}

func TestAwsS3RepositorySingleObject(t *testing.T) {
	redis, err := os.ReadFile("testdata/providers/redis/provider.yaml")
	if err != nil {
		t.Fatal(err)
	}
	server := fakeS3(t, "manifests", map[string][]byte{"redis/provider.yaml": redis})
	defer server.Close()

	repo := &AwsS3Repository{
		Name:       "s3",
		BucketName: "manifests",
		ObjectName: "redis/provider.yaml",
		Client:     newTestS3Client(server.URL),
	}
	if err := repo.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, ok := repo.GetProvider(redisPackage); !ok {
		t.Fatalf("expected %s to be present", redisPackage)
	}
}

func TestAwsS3RepositoryPrefix(t *testing.T) {
	redis, _ := os.ReadFile("testdata/providers/redis/provider.yaml")
	celery, _ := os.ReadFile("testdata/providers/celery/provider.yaml")
	server := fakeS3(t, "manifests", map[string][]byte{
		"providers/redis/provider.yaml":  redis,
		"providers/celery/provider.yaml": celery,
		"providers/README.md":            []byte("ignored"),
	})
	defer server.Close()

	repo := &AwsS3Repository{
		Name:       "s3",
		BucketName: "manifests",
		ObjectName: "providers/",
		Client:     newTestS3Client(server.URL),
	}
	if err := repo.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(repo.GetProviders()) != 2 {
		t.Fatalf("expected 2 providers, got %d", len(repo.GetProviders()))
	}
}

func TestAwsS3RepositoryMissingObject(t *testing.T) {
	server := fakeS3(t, "manifests", map[string][]byte{})
	defer server.Close()

	repo := &AwsS3Repository{
		Name:       "s3",
		BucketName: "manifests",
		ObjectName: "missing.yaml",
		Client:     newTestS3Client(server.URL),
	}
	if err := repo.Refresh(context.Background()); err == nil {
		t.Fatal("expected error for missing object")
	}
}
