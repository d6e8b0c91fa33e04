package source

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/sardine-ai/provider-registry/manifest"
)

// FileRepository is a struct that implements the Repository interface for
// manifests stored on the local filesystem. Path is either a YAML file or a
// directory searched recursively for provider.yaml files.
type FileRepository struct {
	store
	Name string // Name of the manifest source
	Path string // File or directory path
}

// GetName returns the name of the manifest source.
func (f *FileRepository) GetName() string {
	return f.Name
}

// Refresh reads the manifests from disk.
func (f *FileRepository) Refresh(ctx context.Context) error {
	info, err := os.Stat(f.Path)
	if err != nil {
		logrus.WithContext(ctx).Debug("error reading file")
		return err
	}

	var data []byte
	if info.IsDir() {
		data, err = readManifestDir(f.Path)
	} else {
		data, err = os.ReadFile(f.Path)
	}
	if err != nil {
		logrus.WithContext(ctx).Debug("error reading file")
		return err
	}

	return f.load(data)
}

func readManifestDir(root string) ([]byte, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && d.Name() == ManifestFileName {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	docs := make([][]byte, 0, len(paths))
	for _, p := range paths {
		doc, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return manifest.Bundle(docs...), nil
}
