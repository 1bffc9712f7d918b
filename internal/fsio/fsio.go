// Package fsio abstracts file access for the load pipeline. Source is
// the seam callers and tests inject; FS backs it with any afero
// filesystem.
package fsio

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/afero"

	"envlens/internal/worker"
)

// Source provides file content and modification times. Both calls
// honor ctx and report per-path failures as errors; neither retries.
type Source interface {
	ReadLines(ctx context.Context, path string) ([]string, error)
	ModTime(ctx context.Context, path string) (time.Time, error)
}

// FS is a Source over an afero filesystem.
type FS struct {
	fs afero.Fs
}

// NewFS wraps an afero filesystem as a Source.
func NewFS(fs afero.Fs) *FS {
	return &FS{fs: fs}
}

// NewOS returns a Source over the host filesystem.
func NewOS() *FS {
	return &FS{fs: afero.NewOsFs()}
}

// maxLineSize bounds a single line; files with longer lines fail to
// read rather than silently truncate.
const maxLineSize = 1024 * 1024

// ReadLines returns the file's lines with line endings stripped.
// CRLF endings are handled.
func (f *FS) ReadLines(ctx context.Context, path string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(f.fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning %s: %w", path, err)
	}
	return lines, nil
}

// ModTime returns the file's modification timestamp.
func (f *FS) ModTime(ctx context.Context, path string) (time.Time, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, err
	}
	info, err := f.fs.Stat(path)
	if err != nil {
		return time.Time{}, fmt.Errorf("stating %s: %w", path, err)
	}
	return info.ModTime(), nil
}

// ReadMany reads several files concurrently on a bounded pool.
// Content and failures are keyed by path; a failed path appears only
// in the error map and never disturbs its siblings.
func ReadMany(ctx context.Context, src Source, paths []string, workers int) (map[string][]string, map[string]error) {
	lines := make(map[string][]string, len(paths))
	errs := make(map[string]error)

	results := worker.Map(ctx, workers, paths, func(ctx context.Context, path string) ([]string, error) {
		return src.ReadLines(ctx, path)
	})
	for i, res := range results {
		if res.Err != nil {
			errs[paths[i]] = res.Err
			continue
		}
		lines[paths[i]] = res.Value
	}
	return lines, errs
}

// FindEnvFiles lists the .env-style files directly inside dir,
// ordered by convention: ".env" first, then ".env.local", then other
// ".env.*" variants, then "*.env" files, ties broken by name.
func FindEnvFiles(fs afero.Fs, dir string) ([]string, error) {
	infos, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}

	var names []string
	for _, info := range infos {
		if info.IsDir() {
			continue
		}
		if envFileRank(info.Name()) >= 0 {
			names = append(names, info.Name())
		}
	}
	sort.Slice(names, func(i, j int) bool {
		ri, rj := envFileRank(names[i]), envFileRank(names[j])
		if ri != rj {
			return ri < rj
		}
		return names[i] < names[j]
	})

	paths := make([]string, len(names))
	for i, name := range names {
		paths[i] = filepath.Join(dir, name)
	}
	return paths, nil
}

// envFileRank orders conventional .env names; -1 means not an env
// file at all.
func envFileRank(name string) int {
	switch {
	case name == ".env":
		return 0
	case name == ".env.local":
		return 1
	case strings.HasPrefix(name, ".env."):
		return 2
	case strings.HasSuffix(name, ".env"):
		return 3
	}
	return -1
}
