package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// ErrInvalidEntry is returned by Put for an entry without a name.
var ErrInvalidEntry = errors.New("discovery: entry has no name")

// Directory is a JSON-file backed table of services. With an empty path it
// keeps entries in memory only.
type Directory struct {
	mu      sync.RWMutex
	path    string
	entries map[string]Entry
}

// OpenDirectory loads the directory stored at path. A missing file yields an
// empty directory and is created on the first write.
func OpenDirectory(path string) (*Directory, error) {
	d := &Directory{path: path, entries: make(map[string]Entry)}
	if err := d.Load(); err != nil {
		return nil, err
	}
	return d, nil
}

// Load replaces the in-memory table with the file contents.
func (d *Directory) Load() error {
	if d.path == "" {
		return nil
	}
	data, err := os.ReadFile(d.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	var list []Entry
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("parse %s: %w", d.path, err)
	}
	entries := make(map[string]Entry, len(list))
	for _, e := range list {
		if e.Name == "" {
			continue
		}
		entries[e.Name] = e
	}

	d.mu.Lock()
	d.entries = entries
	d.mu.Unlock()
	return nil
}

// Save writes the table to disk.
func (d *Directory) Save() error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.write(d.entries)
}

func (d *Directory) write(entries map[string]Entry) error {
	if d.path == "" {
		return nil
	}
	data, err := json.MarshalIndent(sorted(entries), "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(d.path), ".directory-*.json")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), d.path)
}

// Put adds or replaces an entry and persists the table. The table is left
// unchanged when the write fails.
func (d *Directory) Put(e Entry) error {
	if e.Name == "" {
		return ErrInvalidEntry
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	next := maps.Clone(d.entries)
	next[e.Name] = e.clone()
	return d.commit(next)
}

// Remove deletes the named entry and persists the table.
func (d *Directory) Remove(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.entries[name]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownService, name)
	}
	next := maps.Clone(d.entries)
	delete(next, name)
	return d.commit(next)
}

func (d *Directory) commit(next map[string]Entry) error {
	if err := d.write(next); err != nil {
		return err
	}
	d.entries = next
	return nil
}

// Lookup returns the named entry.
func (d *Directory) Lookup(name string) (Entry, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.entries[name]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s", ErrUnknownService, name)
	}
	return e.clone(), nil
}

// List returns all entries ordered by name.
func (d *Directory) List() []Entry {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return sorted(d.entries)
}

func sorted(entries map[string]Entry) []Entry {
	list := make([]Entry, 0, len(entries))
	for _, e := range entries {
		list = append(list, e.clone())
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}

// Backends lets a Directory be used directly as a resolver.
func (d *Directory) Backends(_ context.Context, name string) ([]string, error) {
	e, err := d.Lookup(name)
	if err != nil {
		return nil, err
	}
	return e.IPs, nil
}
