package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

const redisPackage = "apache-airflow-providers-redis"
const celeryPackage = "apache-airflow-providers-celery"

func TestFileRepositorySingleFile(t *testing.T) {
	repo := &FileRepository{Name: "redis", Path: "testdata/providers/redis/provider.yaml"}
	if err := repo.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}

	providers := repo.GetProviders()
	if len(providers) != 1 {
		t.Fatalf("expected 1 provider, got %d", len(providers))
	}
	p, ok := repo.GetProvider(redisPackage)
	if !ok {
		t.Fatalf("expected %s to be present", redisPackage)
	}
	if p.LatestVersion() != "4.0.1" {
		t.Errorf("expected %q, got %q", "4.0.1", p.LatestVersion())
	}
	if len(repo.GetRawData()) == 0 {
		t.Error("raw data is empty")
	}
	if repo.GetName() != "redis" {
		t.Errorf("expected %q, got %q", "redis", repo.GetName())
	}
}

func TestFileRepositoryDirectory(t *testing.T) {
	repo := &FileRepository{Name: "all", Path: "testdata/providers"}
	if err := repo.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}

	providers := repo.GetProviders()
	if len(providers) != 2 {
		t.Fatalf("expected 2 providers, got %d", len(providers))
	}
	// sorted by package name
	if providers[0].PackageName != celeryPackage || providers[1].PackageName != redisPackage {
		t.Errorf("unexpected order: %s, %s", providers[0].PackageName, providers[1].PackageName)
	}
}

func TestFileRepositoryKeepsDataOnBadRefresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "provider.yaml")
	good, err := os.ReadFile("testdata/providers/celery/provider.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, good, 0o644); err != nil {
		t.Fatal(err)
	}

	repo := &FileRepository{Name: "tmp", Path: path}
	if err := repo.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(path, []byte("package-name: broken\nversions: [nope]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := repo.Refresh(context.Background()); err == nil {
		t.Fatal("expected validation error")
	}
	if _, ok := repo.GetProvider(celeryPackage); !ok {
		t.Error("previous manifests should survive a failed refresh")
	}
	if string(repo.GetRawData()) != string(good) {
		t.Error("raw data should not change on a failed refresh")
	}
}

func TestFileRepositoryDuplicatePackage(t *testing.T) {
	dir := t.TempDir()
	data, err := os.ReadFile("testdata/providers/redis/provider.yaml")
	if err != nil {
		t.Fatal(err)
	}
	for _, sub := range []string{"a", "b"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, sub, ManifestFileName), data, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	repo := &FileRepository{Name: "dup", Path: dir}
	if err := repo.Refresh(context.Background()); err == nil {
		t.Fatal("expected duplicate package error")
	}
}

func TestFileRepositoryMissing(t *testing.T) {
	repo := &FileRepository{Name: "missing", Path: "/tmp/does-not-exist/provider.yaml"}
	if err := repo.Refresh(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if len(repo.GetProviders()) != 0 {
		t.Error("expected no providers")
	}
}
