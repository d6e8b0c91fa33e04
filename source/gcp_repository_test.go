package source

import (
	"context"
	"os"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/fullstorydev/emulators/storage/gcsemu"
)

func uploadObject(t *testing.T, bucket *storage.BucketHandle, name, file string) {
	t.Helper()
	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatal(err)
	}
	w := bucket.Object(name).NewWriter(context.Background())
	if _, err := w.Write(data); err != nil {
		t.Fatalf("Failed to upload file: %v", err)
	}
	// Close the GCS writer, flushing any remaining data to GCS.
	if err := w.Close(); err != nil {
		t.Fatalf("Failed to close the GCS writer: %v", err)
	}
}

func TestGcpStorageRepository(t *testing.T) {
	// start an in-memory Storage test server
	svr, err := gcsemu.NewServer("127.0.0.1:9031", gcsemu.Options{})
	if err != nil {
		t.Fatalf("Error starting in-memory storage server: %s", err.Error())
	}
	defer svr.Close()
	t.Setenv("STORAGE_EMULATOR_HOST", "http://127.0.0.1:9031")

	ctx := context.Background()
	client, err := storage.NewClient(ctx)
	if err != nil {
		t.Fatalf("Error creating storage client: %s", err.Error())
	}
	defer client.Close()

	bucket := client.Bucket("provider-manifests")
	if err := bucket.Create(ctx, "test-project", nil); err != nil {
		t.Fatalf("Failed to create bucket: %v", err)
	}
	uploadObject(t, bucket, "providers/redis/provider.yaml", "testdata/providers/redis/provider.yaml")
	uploadObject(t, bucket, "providers/celery/provider.yaml", "testdata/providers/celery/provider.yaml")

	t.Run("single object", func(t *testing.T) {
		repo := &GcpStorageRepository{Name: "gcs", BucketName: "provider-manifests", ObjectName: "providers/redis/provider.yaml", Client: client}
		if err := repo.Refresh(ctx); err != nil {
			t.Fatal(err)
		}
		if _, ok := repo.GetProvider(redisPackage); !ok {
			t.Fatalf("expected %s to be present", redisPackage)
		}
	})

	t.Run("prefix", func(t *testing.T) {
		repo := &GcpStorageRepository{Name: "gcs", BucketName: "provider-manifests", ObjectName: "providers/", Client: client}
		if err := repo.Refresh(ctx); err != nil {
			t.Fatal(err)
		}
		if len(repo.GetProviders()) != 2 {
			t.Fatalf("expected 2 providers, got %d", len(repo.GetProviders()))
		}
	})

	t.Run("missing object", func(t *testing.T) {
		repo := &GcpStorageRepository{Name: "gcs", BucketName: "provider-manifests", ObjectName: "nope.yaml", Client: client}
		if err := repo.Refresh(ctx); err == nil {
			t.Fatal("expected error")
		}
	})
}
