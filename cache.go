package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
)

// DedupCache is the persisted set of video IDs that have been summarized.
// It is loaded once at startup and rewritten in full on every Add.
type DedupCache struct {
	path string
	ids  map[string]struct{}
}

// LoadDedupCache reads the cache file. A missing file yields an empty cache;
// a corrupt file yields an empty cache and a warning.
func LoadDedupCache(path string) (*DedupCache, error) {
	cache := &DedupCache{path: path, ids: make(map[string]struct{})}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		debugLog("Cache file %s not found, starting empty", path)
		return cache, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cache %s: %w", path, err)
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		log.Printf("⚠ Cache %s is corrupt, starting empty: %v", path, err)
		return cache, nil
	}

	for _, id := range ids {
		if id != "" {
			cache.ids[id] = struct{}{}
		}
	}
	debugLog("Loaded %d processed IDs from %s", len(cache.ids), path)
	return cache, nil
}

// Contains reports whether id has already been processed
func (c *DedupCache) Contains(id string) bool {
	_, ok := c.ids[id]
	return ok
}

// Add inserts id and flushes the whole set to disk. The in-memory set keeps
// the id even when the flush fails.
func (c *DedupCache) Add(id string) error {
	c.ids[id] = struct{}{}
	return c.Save()
}

// Len returns the number of cached IDs
func (c *DedupCache) Len() int {
	return len(c.ids)
}

// IDs returns the cached IDs in sorted order
func (c *DedupCache) IDs() []string {
	ids := make([]string, 0, len(c.ids))
	for id := range c.ids {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Save writes the set as a sorted JSON array, atomically replacing the file
func (c *DedupCache) Save() error {
	data, err := json.MarshalIndent(c.IDs(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling cache: %w", err)
	}

	w, err := newAtomicWriter(c.path)
	if err != nil {
		return fmt.Errorf("saving cache %s: %w", c.path, err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		w.Abort()
		return fmt.Errorf("saving cache %s: %w", c.path, err)
	}
	if err := w.Commit(); err != nil {
		return fmt.Errorf("saving cache %s: %w", c.path, err)
	}

	debugLog("Saved %d processed IDs to %s", len(c.ids), c.path)
	return nil
}

// atomicWriter writes to a temp file next to the target and renames it
// into place on Commit, so the target is never partially written.
type atomicWriter struct {
	path    string
	tmpPath string
	file    *os.File
}

func newAtomicWriter(path string) (*atomicWriter, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, ".tube-letter-*.tmp")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}

	// CreateTemp uses 0600; keep the target's mode
	mode := os.FileMode(0644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := tmpFile.Chmod(mode); err != nil {
		tmpFile.Close()
		os.Remove(tmpFile.Name())
		return nil, fmt.Errorf("chmod temp file: %w", err)
	}

	return &atomicWriter{path: path, tmpPath: tmpFile.Name(), file: tmpFile}, nil
}

func (w *atomicWriter) Write(p []byte) (int, error) {
	return w.file.Write(p)
}

func (w *atomicWriter) Commit() error {
	if err := w.file.Sync(); err != nil {
		w.Abort()
		return fmt.Errorf("sync: %w", err)
	}
	if err := w.file.Close(); err != nil {
		os.Remove(w.tmpPath)
		return fmt.Errorf("close: %w", err)
	}
	if err := os.Rename(w.tmpPath, w.path); err != nil {
		os.Remove(w.tmpPath)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

func (w *atomicWriter) Abort() {
	w.file.Close()
	os.Remove(w.tmpPath)
}
