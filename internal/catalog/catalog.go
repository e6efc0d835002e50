// Package catalog keeps the set of served projects, loads them with a
// bounded worker pool and reloads them when their files change.
package catalog

import (
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/dgallion1/docnav/internal/loader"
	"github.com/dgallion1/docnav/internal/validate"
)

// Target is a project that can be loaded. Dir is set for projects read
// from disk and is what the watcher observes.
type Target struct {
	Name   string
	Source loader.Source
	Dir    string
}

// Entry is a loaded project with the report of its last check.
type Entry struct {
	Project  *loader.Project
	Report   *validate.Report
	LoadedAt time.Time
	Took     time.Duration
}

// Summary is the list view of one target.
type Summary struct {
	Name      string    `json:"name"`
	Source    string    `json:"source"`
	Loaded    bool      `json:"loaded"`
	Title     string    `json:"title,omitempty"`
	Shards    int       `json:"shards"`
	Errors    int       `json:"errors"`
	Warnings  int       `json:"warnings"`
	LoadedAt  time.Time `json:"loaded_at,omitzero"`
	LastError string    `json:"last_error,omitempty"`
}

// Catalog maps project names to targets and loaded entries. Entries are
// replaced whole, so readers never see a half-loaded project.
type Catalog struct {
	mu      sync.RWMutex
	targets map[string]Target
	entries map[string]*Entry
	errs    map[string]string
}

func New() *Catalog {
	return &Catalog{
		targets: make(map[string]Target),
		entries: make(map[string]*Entry),
		errs:    make(map[string]string),
	}
}

func (c *Catalog) AddTarget(t Target) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.targets[t.Name] = t
}

// RemoveTarget forgets a project and its loaded entry.
func (c *Catalog) RemoveTarget(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.targets, name)
	delete(c.entries, name)
	delete(c.errs, name)
}

func (c *Catalog) Target(name string) (Target, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.targets[name]
	return t, ok
}

// Targets returns every target sorted by name.
func (c *Catalog) Targets() []Target {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Target, 0, len(c.targets))
	for _, t := range c.targets {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// TargetForDir finds the on-disk target whose directory is dir.
func (c *Catalog) TargetForDir(dir string) (Target, bool) {
	dir = filepath.Clean(dir)
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, t := range c.targets {
		if t.Dir != "" && filepath.Clean(t.Dir) == dir {
			return t, true
		}
	}
	return Target{}, false
}

// Put replaces the entry for name and clears its last error.
func (c *Catalog) Put(name string, e *Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[name] = e
	delete(c.errs, name)
}

// SetError records a failed load. A previously loaded entry keeps being
// served.
func (c *Catalog) SetError(name string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs[name] = err.Error()
}

func (c *Catalog) Get(name string) (*Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[name]
	return e, ok
}

// Len returns the number of loaded projects.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Catalog) List() []Summary {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Summary, 0, len(c.targets))
	for name, t := range c.targets {
		s := Summary{Name: name, Source: t.Source.String(), LastError: c.errs[name]}
		if e, ok := c.entries[name]; ok {
			s.Loaded = true
			s.Title = e.Project.Tree().ProjectName()
			s.Shards = e.Project.Tree().Index().Len()
			s.LoadedAt = e.LoadedAt
			if e.Report != nil {
				s.Errors = e.Report.Errors()
				s.Warnings = e.Report.Warnings()
			}
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
