// Package cache persists deduplicated datasets so repeat startups skip
// the workbook parse. Validity is decided by a source fingerprint
// (mtime + size) and a schema version tag; anything else is a miss.
package cache

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/itr-cli/internal/model"
)

// BuildFunc produces a fresh dataset from the source workbook. It runs
// only on cache misses and forced reloads.
type BuildFunc func(ctx context.Context) (*model.Dataset, error)

// Manager decides between serving a persisted dataset and rebuilding.
type Manager struct {
	store *Store
}

// NewManager wraps a Store.
func NewManager(store *Store) *Manager {
	return &Manager{store: store}
}

// LoadOrBuild returns the cached dataset for sourcePath when the entry
// is intact, schema-current, and fingerprint-matched; otherwise it
// invokes build and persists the result. A corrupt entry is logged and
// treated as a miss, never surfaced.
func (m *Manager) LoadOrBuild(ctx context.Context, sourcePath string, build BuildFunc) (*model.Dataset, error) {
	fp, err := Stat(sourcePath)
	if err == nil {
		entry, ds, getErr := m.store.Get(ctx, sourcePath)
		switch {
		case getErr != nil:
			zap.L().Warn("cache entry unreadable, rebuilding", zap.String("source", sourcePath), zap.Error(getErr))
		case entry == nil:
			zap.L().Debug("cache miss", zap.String("source", sourcePath))
		case entry.SchemaVersion != SchemaVersion:
			zap.L().Info("cache schema version changed, rebuilding",
				zap.String("source", sourcePath),
				zap.Int("cached", entry.SchemaVersion),
				zap.Int("current", SchemaVersion),
			)
		case entry.Fingerprint != fp:
			zap.L().Info("source changed since cache entry, rebuilding",
				zap.String("source", sourcePath),
				zap.Int64("cached_mtime_ns", entry.Fingerprint.MTimeUnixNano),
				zap.Int64("source_mtime_ns", fp.MTimeUnixNano),
				zap.Int64("cached_size", entry.Fingerprint.Size),
				zap.Int64("source_size", fp.Size),
			)
		default:
			zap.L().Info("dataset served from cache",
				zap.String("source", sourcePath),
				zap.Int("records", len(ds.Records)),
			)
			return ds, nil
		}
	}

	return m.rebuild(ctx, sourcePath, build)
}

// ForceReload unconditionally rebuilds the dataset and overwrites the
// cache entry. Used only on explicit administrative request.
func (m *Manager) ForceReload(ctx context.Context, sourcePath string, build BuildFunc) (*model.Dataset, error) {
	zap.L().Info("forced reload requested", zap.String("source", sourcePath))
	return m.rebuild(ctx, sourcePath, build)
}

func (m *Manager) rebuild(ctx context.Context, sourcePath string, build BuildFunc) (*model.Dataset, error) {
	ds, err := build(ctx)
	if err != nil {
		return nil, err
	}

	fp, statErr := Stat(ds.SourcePath)
	if statErr != nil {
		// The dataset may have been built from the fallback source;
		// fingerprint that file so the next load validates correctly.
		zap.L().Warn("fingerprint after build failed, caching skipped", zap.Error(statErr))
		return ds, nil
	}

	if err := m.store.Put(ctx, ds, fp); err != nil {
		// Cache write failures degrade to uncached operation.
		zap.L().Warn("cache write failed", zap.String("source", ds.SourcePath), zap.Error(err))
	} else {
		zap.L().Info("dataset cached",
			zap.String("source", ds.SourcePath),
			zap.Int("records", len(ds.Records)),
		)
	}

	return ds, nil
}

// Status reports cache existence, age, and validity for sourcePath
// without side effects.
func (m *Manager) Status(ctx context.Context, sourcePath string) (*model.CacheStatus, error) {
	entry, err := m.store.Meta(ctx, sourcePath)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return &model.CacheStatus{
			Action:      "status",
			CacheExists: false,
			Guidance:    "No cache exists - data will load fresh from the workbook on next query",
		}, nil
	}

	valid := entry.SchemaVersion == SchemaVersion
	if valid {
		fp, statErr := Stat(sourcePath)
		valid = statErr == nil && entry.Fingerprint == fp
	}

	status := &model.CacheStatus{
		Action:      "status",
		CacheExists: true,
		RecordCount: entry.RecordCount,
		AgeMinutes:  time.Since(entry.CachedAt).Minutes(),
		Valid:       valid,
	}
	if valid {
		status.Guidance = "Cache is current - fast queries enabled"
	} else {
		status.Guidance = "Cache outdated - data will reload from the workbook on next query"
	}
	return status, nil
}
