package source

import (
	"context"
	"errors"
	"io"
	"net/url"
	"os"
	"path"
	"sort"
	"sync"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/sirupsen/logrus"

	"github.com/sardine-ai/provider-registry/manifest"
)

// GitRepository is a struct that implements the Repository interface for
// manifests kept in a Git repository. The repository is cloned into memory
// once and pulled on every later refresh.
type GitRepository struct {
	store
	Name   string          // Name of the manifest source
	URL    *url.URL        // URL representing the Git repository URL
	Path   string          // File or directory inside the repository
	Branch string          // Branch to use when cloning the Git repository
	Auth   *http.BasicAuth // BasicAuth to use when cloning the Git repository

	mu            sync.Mutex
	gitRepository *git.Repository  // Go-Git repository instance for the in-memory clone
	fs            billy.Filesystem // Filesystem to store the in-memory clone of the repository
}

// GetName returns the name of the manifest source.
func (g *GitRepository) GetName() string {
	return g.Name
}

// Refresh clones or pulls the repository and reads the manifests at Path.
func (g *GitRepository) Refresh(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.gitRepository == nil {
		if err := g.clone(ctx); err != nil {
			return err
		}
	} else if err := g.pull(ctx); err != nil {
		return err
	}

	data, err := g.read()
	if err != nil {
		return err
	}
	return g.load(data)
}

func (g *GitRepository) clone(ctx context.Context) error {
	fs := memfs.New()
	logrus.Debugf("Cloning %s into memory", g.URL.Redacted())
	options := &git.CloneOptions{
		URL:  g.URL.String(),
		Auth: g.authMethod(),
	}
	if g.Branch != "" {
		options.ReferenceName = plumbing.NewBranchReferenceName(g.Branch)
		options.SingleBranch = true
	}
	r, err := git.CloneContext(ctx, memory.NewStorage(), fs, options)
	if err != nil {
		return err
	}
	logrus.Debug("Cloned")
	g.gitRepository = r
	g.fs = fs
	return nil
}

func (g *GitRepository) pull(ctx context.Context) error {
	w, err := g.gitRepository.Worktree()
	if err != nil {
		return err
	}
	logrus.Debug("Pulling")

	pullOptions := &git.PullOptions{
		Auth: g.authMethod(),
	}
	if g.Branch != "" {
		pullOptions.ReferenceName = plumbing.NewBranchReferenceName(g.Branch)
		pullOptions.SingleBranch = true
		pullOptions.Force = true
	}

	err = w.PullContext(ctx, pullOptions)
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		logrus.Debug("Already up to date")
		return nil
	}
	if err != nil {
		return err
	}
	logrus.Debug("Pulled")
	return nil
}

// authMethod avoids handing go-git a typed nil.
func (g *GitRepository) authMethod() transport.AuthMethod {
	if g.Auth == nil || (g.Auth.Username == "" && g.Auth.Password == "") {
		return nil
	}
	return g.Auth
}

func (g *GitRepository) read() ([]byte, error) {
	info, err := g.fs.Stat(g.Path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return readBillyFile(g.fs, g.Path)
	}

	var paths []string
	err = util.Walk(g.fs, g.Path, func(p string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !fi.IsDir() && path.Base(p) == ManifestFileName {
			paths = append(paths, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	docs := make([][]byte, 0, len(paths))
	for _, p := range paths {
		doc, err := readBillyFile(g.fs, p)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return manifest.Bundle(docs...), nil
}

func readBillyFile(fs billy.Filesystem, name string) ([]byte, error) {
	file, err := fs.Open(name)
	if err != nil {
		return nil, err
	}
	defer func(file billy.File) {
		err := file.Close()
		if err != nil {
			logrus.WithError(err).Error("error closing file")
		}
	}(file)
	return io.ReadAll(file)
}
