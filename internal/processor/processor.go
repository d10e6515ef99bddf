// Package processor is the query engine over the deduplicated ITR
// dataset. One Processor instance is constructed at startup and
// injected into whatever issues queries (CLI commands, the HTTP
// surface, the chat agent).
package processor

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/sells-group/itr-cli/internal/cache"
	"github.com/sells-group/itr-cli/internal/dedupe"
	"github.com/sells-group/itr-cli/internal/loader"
	"github.com/sells-group/itr-cli/internal/model"
)

// Config locates the source workbook.
type Config struct {
	SourcePath   string
	FallbackPath string // substituted when SourcePath cannot be opened
	SheetName    string
	SheetIndex   int
}

// Processor holds the current dataset snapshot. Queries read the
// snapshot without locking; reloads swap in a complete replacement.
type Processor struct {
	cfg     Config
	cache   *cache.Manager
	current atomic.Pointer[model.Dataset]
	loading singleflight.Group
}

// New constructs a Processor. The dataset loads lazily on first use.
func New(cfg Config, cacheMgr *cache.Manager) *Processor {
	return &Processor{cfg: cfg, cache: cacheMgr}
}

// NotFoundError reports a subsystem with no records, carrying
// suggested near-matches. It is a normal result variant for callers
// that present it to an operator or a model, not a failure.
type NotFoundError struct {
	SubsystemID string
	Suggestions []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no ITRs found for subsystem %s", e.SubsystemID)
}

// ErrUnknownAction is returned by ManageCache for unsupported actions.
var ErrUnknownAction = errors.New("unknown cache action (use \"status\" or \"reload\")")

const maxSuggestions = 5

// dataset returns the current snapshot, performing the initial
// load-dedupe-cache pass exactly once even under concurrent callers.
func (p *Processor) dataset(ctx context.Context) (*model.Dataset, error) {
	if ds := p.current.Load(); ds != nil {
		return ds, nil
	}

	v, err, _ := p.loading.Do("load", func() (any, error) {
		if ds := p.current.Load(); ds != nil {
			return ds, nil
		}
		ds, err := p.cache.LoadOrBuild(ctx, p.cacheKeyPath(), p.build)
		if err != nil {
			return nil, err
		}
		p.current.Store(ds)
		return ds, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.Dataset), nil
}

// build runs the loader and deduplicator against the configured
// source, falling back to the alternate workbook when the primary is
// missing.
func (p *Processor) build(ctx context.Context) (*model.Dataset, error) {
	path := p.cfg.SourcePath
	opts := loader.Options{SheetName: p.cfg.SheetName, SheetIndex: p.cfg.SheetIndex}

	table, err := loader.Load(path, opts)
	if errors.Is(err, loader.ErrSourceUnavailable) && p.cfg.FallbackPath != "" {
		zap.L().Warn("primary source unavailable, using fallback",
			zap.String("primary", path),
			zap.String("fallback", p.cfg.FallbackPath),
		)
		path = p.cfg.FallbackPath
		table, err = loader.Load(path, opts)
	}
	if err != nil {
		return nil, err
	}

	kept, removed := dedupe.Deduplicate(table.Records, table.HasDedupColumns)

	return &model.Dataset{
		Records:         kept,
		HasDedupColumns: table.HasDedupColumns,
		SourcePath:      path,
		RemovedCount:    removed,
		BuiltAt:         nowUTC(),
	}, nil
}

// GetITRStatus computes the full status breakdown for one subsystem.
// Subsystem ids are matched exactly, matching the source convention.
func (p *Processor) GetITRStatus(ctx context.Context, subsystemID string) (*model.StatusBreakdown, error) {
	ds, err := p.dataset(ctx)
	if err != nil {
		return nil, err
	}

	var matched []model.Record
	for _, rec := range ds.Records {
		if rec.SubsystemID == subsystemID {
			matched = append(matched, rec)
		}
	}

	if len(matched) == 0 {
		return nil, &NotFoundError{
			SubsystemID: subsystemID,
			Suggestions: p.suggestSubsystems(ds, subsystemID),
		}
	}

	breakdown := summarize(matched)
	breakdown.SubsystemID = subsystemID
	breakdown.SubsystemDescr = matched[0].SubsystemDescr
	breakdown.SystemID = matched[0].SystemID
	breakdown.Guidance = guidance(breakdown)
	return breakdown, nil
}

// suggestSubsystems finds near-matches for an unknown id by matching
// progressively shorter prefixes of it against the known ids.
func (p *Processor) suggestSubsystems(ds *model.Dataset, subsystemID string) []string {
	for _, pattern := range suggestionPatterns(subsystemID) {
		ids := matchSubsystemIDPrefix(ds, pattern)
		if len(ids) == 0 {
			continue
		}
		if len(ids) > maxSuggestions {
			ids = ids[:maxSuggestions]
		}
		return ids
	}
	return nil
}

// suggestionPatterns yields the id followed by its shorter prefixes,
// each strictly shorter than the one before so no pattern is retried.
func suggestionPatterns(id string) []string {
	patterns := []string{id}
	for _, n := range []int{6, 3, 1} {
		if n < len(patterns[len(patterns)-1]) {
			patterns = append(patterns, id[:n])
		}
	}
	return patterns
}

// ManageCache handles the cache administration surface.
func (p *Processor) ManageCache(ctx context.Context, action string) (*model.CacheStatus, error) {
	switch action {
	case "status":
		return p.cache.Status(ctx, p.activeSourcePath())
	case "reload":
		return p.reload(ctx)
	default:
		return nil, fmt.Errorf("%q: %w", action, ErrUnknownAction)
	}
}

// reload rebuilds unconditionally and swaps the snapshot. On failure
// the previous dataset stays servable and only the reload caller sees
// the error.
func (p *Processor) reload(ctx context.Context) (*model.CacheStatus, error) {
	ds, err := p.cache.ForceReload(ctx, p.cacheKeyPath(), p.build)
	if err != nil {
		zap.L().Error("reload failed, keeping previous dataset", zap.Error(err))
		return nil, err
	}
	p.current.Store(ds)

	return &model.CacheStatus{
		Action:      "reload",
		CacheExists: true,
		RecordCount: len(ds.Records),
		Valid:       true,
		Reloaded:    true,
		Guidance:    "Data reloaded successfully - all queries now use fresh data",
	}, nil
}

// activeSourcePath is the workbook the current snapshot actually came
// from, which differs from the configured path after a fallback.
func (p *Processor) activeSourcePath() string {
	if ds := p.current.Load(); ds != nil {
		return ds.SourcePath
	}
	return p.cacheKeyPath()
}

// cacheKeyPath is the workbook a build would read right now. Cache
// lookups use it so entries written after a fallback are found again
// on the next start.
func (p *Processor) cacheKeyPath() string {
	if _, err := cache.Stat(p.cfg.SourcePath); err != nil && p.cfg.FallbackPath != "" {
		return p.cfg.FallbackPath
	}
	return p.cfg.SourcePath
}
