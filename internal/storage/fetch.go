package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Fetcher downloads many objects in parallel into a local directory,
// skipping any object already present there.
type Fetcher struct {
	storage     ObjectStorage
	concurrency int
	dir         string
}

// FetchResult reports where each object landed.
type FetchResult struct {
	LocalPaths map[string]string
	Errors     map[string]error
	Skipped    int
	Downloaded int
}

// NewFetcher creates a fetcher writing into dir with at most concurrency
// downloads in flight.
func NewFetcher(storage ObjectStorage, concurrency int, dir string) *Fetcher {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Fetcher{storage: storage, concurrency: concurrency, dir: dir}
}

// Fetch downloads objectPaths. Per-object failures are collected in the
// result; the returned error is non-nil only when ctx ends early.
func (f *Fetcher) Fetch(ctx context.Context, objectPaths []string) (*FetchResult, error) {
	result := &FetchResult{
		LocalPaths: make(map[string]string),
		Errors:     make(map[string]error),
	}
	if err := os.MkdirAll(f.dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create fetch directory: %w", err)
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)

	for _, objectPath := range objectPaths {
		local := f.localPath(objectPath)
		if _, err := os.Stat(local); err == nil {
			mu.Lock()
			result.LocalPaths[objectPath] = local
			result.Skipped++
			mu.Unlock()
			continue
		}

		g.Go(func() error {
			err := f.storage.Download(gctx, objectPath, local)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Errors[objectPath] = err
				return nil
			}
			result.LocalPaths[objectPath] = local
			result.Downloaded++
			return nil
		})
	}

	g.Wait()
	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// localPath flattens an object path into a single file name under dir.
func (f *Fetcher) localPath(objectPath string) string {
	name := strings.ReplaceAll(strings.Trim(objectPath, "/"), "/", "_")
	return filepath.Join(f.dir, name)
}
