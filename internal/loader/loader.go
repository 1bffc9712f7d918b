// Package loader coordinates reading, caching, and parsing of env
// files across a bounded worker pool. It is the entry point callers
// use: give it paths, get back per-file variables and per-file
// errors.
package loader

import (
	"context"
	"maps"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"envlens/internal/cache"
	"envlens/internal/fsio"
	"envlens/internal/parser"
	"envlens/internal/textutil"
	"envlens/internal/worker"
)

// DefaultWorkers bounds the fan-out when the caller does not choose.
const DefaultWorkers = 8

// Loader owns the parse cache and drives concurrent file loads. Build
// one per process and share it; concurrent ParseFiles calls are safe.
type Loader struct {
	source  fsio.Source
	cache   *cache.Cache
	workers int

	files  atomic.Int64
	hits   atomic.Int64
	parses atomic.Int64
}

// Stats counts loader activity since construction or the last Reset.
type Stats struct {
	Files  int64 // paths handled, cached or parsed
	Hits   int64 // served from cache
	Parses int64 // parsed fresh
	Cached int   // entries currently cached
}

// New builds a Loader over source. workers bounds the concurrent
// fetches; anything below one falls back to DefaultWorkers.
func New(source fsio.Source, workers int) *Loader {
	if workers < 1 {
		workers = DefaultWorkers
	}
	return &Loader{
		source:  source,
		cache:   cache.New(),
		workers: workers,
	}
}

// ParseFiles loads every path concurrently and returns variables and
// errors keyed by path. A path appears in exactly one of the two
// maps; a failing file never disturbs its siblings. Empty paths yield
// two empty maps. Files whose modification time and content digest
// match the cache are served from it without re-parsing.
func (l *Loader) ParseFiles(ctx context.Context, paths []string, opts parser.Options) (map[string]map[string]parser.Variable, map[string]error) {
	results := make(map[string]map[string]parser.Variable, len(paths))
	errs := make(map[string]error)
	if len(paths) == 0 {
		return results, errs
	}

	fp := opts.Fingerprint()
	l.cache.EnsureConfig(fp)
	p := parser.New(opts)

	outcomes := worker.Map(ctx, l.workers, paths, func(ctx context.Context, path string) (map[string]parser.Variable, error) {
		return l.loadOne(ctx, p, fp, path)
	})
	for i, out := range outcomes {
		if out.Err != nil {
			log.Warn().Err(out.Err).Str("path", paths[i]).Msg("Failed to load env file")
			errs[paths[i]] = out.Err
			continue
		}
		results[paths[i]] = out.Value
	}

	log.Debug().
		Int("files", len(paths)).
		Int("errors", len(errs)).
		Msg("Parsed env files")
	return results, errs
}

// loadOne fetches one file and either serves its cached variables or
// parses it fresh. Fetch failures leave any cached entry in place, so
// a transient error does not lose previously good data.
func (l *Loader) loadOne(ctx context.Context, p *parser.Parser, fp, path string) (map[string]parser.Variable, error) {
	l.files.Add(1)

	mtime, err := l.source.ModTime(ctx, path)
	if err != nil {
		return nil, err
	}
	lines, err := l.source.ReadLines(ctx, path)
	if err != nil {
		return nil, err
	}
	sum := textutil.Hash(strings.Join(lines, "\n"))

	if entry, ok := l.cache.Get(path); ok &&
		entry.Config == fp && entry.ModTime.Equal(mtime) && entry.Sum == sum {
		l.hits.Add(1)
		return maps.Clone(entry.Variables), nil
	}

	vars := p.Parse(path, lines)
	l.parses.Add(1)
	l.cache.Put(path, cache.Entry{
		ModTime:   mtime,
		Sum:       sum,
		Config:    fp,
		Variables: vars,
	})
	// Hand out a clone; the cached map stays private.
	return maps.Clone(vars), nil
}

// Invalidate drops path's cache entry; the next load re-parses it.
func (l *Loader) Invalidate(path string) {
	l.cache.Invalidate(path)
}

// Reset clears the cache and zeroes the counters.
func (l *Loader) Reset() {
	l.cache.Clear()
	l.files.Store(0)
	l.hits.Store(0)
	l.parses.Store(0)
}

// Stats reports loader activity.
func (l *Loader) Stats() Stats {
	return Stats{
		Files:  l.files.Load(),
		Hits:   l.hits.Load(),
		Parses: l.parses.Load(),
		Cached: l.cache.Len(),
	}
}
