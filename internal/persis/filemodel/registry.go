// Package filemodel stores published models on the local filesystem.
//
// Layout:
//
//	<dir>/versions.json          index, newest first
//	<dir>/versions/<id>/...      artifacts of one version
//	<dir>/versions/<id>/version.json
package filemodel

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/churnlab/retrainer/internal/cmn/dirlock"
	"github.com/churnlab/retrainer/internal/cmn/fileutil"
	"github.com/churnlab/retrainer/internal/cmn/logger"
	"github.com/churnlab/retrainer/internal/cmn/logger/tag"
	"github.com/churnlab/retrainer/internal/core"
	"github.com/churnlab/retrainer/internal/core/exec"
)

const (
	indexFile       = "versions.json"
	versionsDir     = "versions"
	versionMetaFile = "version.json"

	// DefaultMaxVersions is the number of versions kept when none is configured.
	DefaultMaxVersions = 3

	// publishLockStale is how old a publish lock must be before another
	// process may break it. Copying large artifacts must fit within it.
	publishLockStale = 10 * time.Minute
)

// ErrVersionNotFound is returned by Get for an unknown version id.
var ErrVersionNotFound = errors.New("model version not found")

var _ exec.ModelRegistry = (*Registry)(nil)

// index is the content of versions.json.
type index struct {
	Latest   string              `json:"latest"`
	Sequence int                 `json:"sequence"`
	Versions []core.ModelVersion `json:"versions"`
}

// Registry is a versioned model registry. Publishing is serialized within
// the process and, through a directory lock, across processes sharing the
// directory. The index is swapped with an atomic rename so readers never
// see a partial write.
type Registry struct {
	dir         string
	maxVersions int
	now         func() time.Time
	cache       *fileutil.Cache[*index]
	lock        *dirlock.Lock
	mu          sync.Mutex
}

// Option configures a Registry.
type Option func(*Registry)

// WithMaxVersions sets how many versions are retained.
func WithMaxVersions(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.maxVersions = n
		}
	}
}

// WithClock overrides the clock used to stamp versions.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// New creates a registry rooted at dir, creating the directory if needed.
func New(dir string, opts ...Option) (*Registry, error) {
	if dir == "" {
		return nil, errors.New("models directory is required")
	}
	r := &Registry{
		dir:         dir,
		maxVersions: DefaultMaxVersions,
		now:         time.Now,
		cache:       fileutil.NewCache[*index]("model-index", 1, time.Minute),
		lock:        dirlock.New(dir, &dirlock.Options{StaleThreshold: publishLockStale}),
	}
	for _, opt := range opts {
		opt(r)
	}
	if err := os.MkdirAll(filepath.Join(dir, versionsDir), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create models directory %s: %w", dir, err)
	}
	return r, nil
}

// Dir returns the registry root.
func (r *Registry) Dir() string {
	return r.dir
}

// Publish copies the model artifacts into a new version directory and makes
// it the current version. When the index cannot be written the new
// directory is removed and the previous version stays current.
func (r *Registry) Publish(ctx context.Context, model *core.Model) (*core.ModelVersion, error) {
	if model == nil || len(model.Artifacts) == 0 {
		return nil, errors.New("model has no artifacts")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.lock.Lock(ctx); err != nil {
		return nil, fmt.Errorf("failed to lock models directory: %w", err)
	}
	defer func() {
		if err := r.lock.Unlock(); err != nil {
			logger.Warn(ctx, "Failed to unlock models directory", tag.Dir(r.dir), tag.Error(err))
		}
	}()

	idx, err := r.readIndex()
	if err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate version id: %w", err)
	}

	versionDir := filepath.Join(r.dir, versionsDir, id.String())
	if err := os.MkdirAll(versionDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create version directory: %w", err)
	}

	version := core.ModelVersion{
		ID:        id.String(),
		Sequence:  idx.Sequence + 1,
		CreatedAt: r.now().UTC().Truncate(time.Second),
		Artifacts: make(map[string]string, len(model.Artifacts)),
		Metrics:   model.Metrics,
		Info:      model.Info,
	}

	if err := r.writeVersion(versionDir, model, &version); err != nil {
		_ = os.RemoveAll(versionDir)
		return nil, err
	}

	next := &index{
		Latest:   version.ID,
		Sequence: version.Sequence,
		Versions: append([]core.ModelVersion{version}, idx.Versions...),
	}
	var pruned []core.ModelVersion
	if len(next.Versions) > r.maxVersions {
		pruned = next.Versions[r.maxVersions:]
		next.Versions = next.Versions[:r.maxVersions]
	}

	if err := fileutil.WriteJSONAtomic(r.indexPath(), next, 0o600); err != nil {
		_ = os.RemoveAll(versionDir)
		return nil, err
	}
	r.cache.Invalidate(r.indexPath())

	for _, old := range pruned {
		if err := os.RemoveAll(filepath.Join(r.dir, versionsDir, old.ID)); err != nil {
			logger.Warn(ctx, "Failed to remove old model version", tag.Version(old.ID), tag.Error(err))
			continue
		}
		logger.Debug(ctx, "Removed old model version", tag.Version(old.ID))
	}

	logger.Info(ctx, "Published model version",
		tag.Version(version.ID),
		tag.Count(version.Sequence),
		tag.Dir(versionDir),
	)
	return &version, nil
}

func (r *Registry) writeVersion(versionDir string, model *core.Model, version *core.ModelVersion) error {
	names := make([]string, 0, len(model.Artifacts))
	for name := range model.Artifacts {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if name == "" || name == versionMetaFile || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
			return fmt.Errorf("invalid artifact name %q", name)
		}
		dst := filepath.Join(versionDir, name)
		if err := fileutil.CopyFile(model.Artifacts[name], dst, 0o600); err != nil {
			return fmt.Errorf("failed to store artifact %s: %w", name, err)
		}
		version.Artifacts[name] = dst
	}
	return fileutil.WriteJSONAtomic(filepath.Join(versionDir, versionMetaFile), version, 0o600)
}

// Current returns the latest published version, or exec.ErrNoModel.
func (r *Registry) Current(_ context.Context) (*core.ModelVersion, error) {
	idx, err := r.loadIndex()
	if err != nil {
		return nil, err
	}
	if idx.Latest == "" {
		return nil, exec.ErrNoModel
	}
	for _, v := range idx.Versions {
		if v.ID == idx.Latest {
			return &v, nil
		}
	}
	return nil, fmt.Errorf("latest version %s missing from index: %w", idx.Latest, exec.ErrNoModel)
}

// List returns the retained versions, newest first.
func (r *Registry) List(_ context.Context) ([]core.ModelVersion, error) {
	idx, err := r.loadIndex()
	if err != nil {
		return nil, err
	}
	out := make([]core.ModelVersion, len(idx.Versions))
	copy(out, idx.Versions)
	return out, nil
}

// Get returns the version with the given id.
func (r *Registry) Get(_ context.Context, id string) (*core.ModelVersion, error) {
	idx, err := r.loadIndex()
	if err != nil {
		return nil, err
	}
	for _, v := range idx.Versions {
		if v.ID == id {
			return &v, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrVersionNotFound, id)
}

func (r *Registry) indexPath() string {
	return filepath.Join(r.dir, indexFile)
}

// loadIndex returns the index through the cache. The cached value is
// shared and must not be modified.
func (r *Registry) loadIndex() (*index, error) {
	idx, err := r.cache.LoadLatest(r.indexPath(), r.readIndex)
	if errors.Is(err, os.ErrNotExist) {
		return &index{}, nil
	}
	return idx, err
}

func (r *Registry) readIndex() (*index, error) {
	var idx index
	if err := fileutil.ReadJSON(r.indexPath(), &idx); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &index{}, nil
		}
		return nil, fmt.Errorf("failed to read model index: %w", err)
	}
	return &idx, nil
}
