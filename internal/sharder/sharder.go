// Package sharder rebuilds the NAVTREEINDEX shard files from a navigation
// tree.
package sharder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/dgallion1/docnav/internal/jsdata"
	"github.com/dgallion1/docnav/internal/loader"
	"github.com/dgallion1/docnav/internal/navtree"
)

// DefaultShardSize is the number of entries Doxygen puts in each
// navtreeindex file.
const DefaultShardSize = 250

// Config controls sharding.
type Config struct {
	ShardSize int // Maximum entries per shard file.
}

// DefaultConfig returns Doxygen's layout.
func DefaultConfig() Config {
	return Config{ShardSize: DefaultShardSize}
}

// Result is a built index: Index.At(i) is the first key of Shards[i].
type Result struct {
	Index  navtree.Index
	Shards []*navtree.Shard
}

// Entries maps page-fragment identifiers to breadcrumb positions below the
// root node.
type Entries map[string][]int

// Build sorts the entries and splits them into shards of at most
// cfg.ShardSize keys.
func Build(entries Entries, cfg Config) *Result {
	if cfg.ShardSize <= 0 {
		cfg.ShardSize = DefaultShardSize
	}

	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	res := &Result{}
	var first []string
	for start := 0; start < len(keys); start += cfg.ShardSize {
		end := min(start+cfg.ShardSize, len(keys))
		part := keys[start:end]
		paths := make(map[string][]int, len(part))
		for _, k := range part {
			paths[k] = entries[k]
		}
		res.Shards = append(res.Shards, navtree.NewShard(part, paths))
		first = append(first, part[0])
	}
	res.Index = navtree.NewIndex(first)
	return res
}

// Collection is everything Collect read from a project.
type Collection struct {
	Entries Entries
	Lazy    map[string][]*navtree.Node // lazy child lists by ref
}

// Collect walks the root node depth-first, expanding lazy children, and
// records every target with its breadcrumb. The first occurrence of a
// target wins.
func Collect(ctx context.Context, p *loader.Project) (*Collection, error) {
	c := &Collection{
		Entries: make(Entries),
		Lazy:    make(map[string][]*navtree.Node),
	}
	if err := c.walk(ctx, p, p.Tree().Root(), nil, nil); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Collection) walk(ctx context.Context, p *loader.Project, n *navtree.Node, crumbs []int, stack []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t := n.Target(); t != "" {
		if _, ok := c.Entries[t]; !ok {
			c.Entries[t] = copyCrumbs(crumbs)
		}
	}

	if n.Kind() == navtree.Lazy {
		for _, ref := range stack {
			if ref == n.Ref() {
				return fmt.Errorf("%s: child file includes itself", navtree.LazyFile(ref))
			}
		}
		stack = append(stack, n.Ref())
	}
	kids, err := p.Children(ctx, n)
	if err != nil {
		return err
	}
	if n.Kind() == navtree.Lazy {
		c.Lazy[n.Ref()] = kids
	}
	for i, k := range kids {
		next := append(copyCrumbs(crumbs), i)
		if err := c.walk(ctx, p, k, next, stack); err != nil {
			return err
		}
	}
	return nil
}

// Write stores a complete navigation set in dir: navtreedata.js with the
// new index, every shard file and the given lazy child files.
func Write(dir string, tree *navtree.Tree, lazy map[string][]*navtree.Node, res *Result) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	out, err := navtree.New(tree.Roots(), res.Index, tree.Sync())
	if err != nil {
		return err
	}
	if err := writeFile(dir, navtree.DataFile, func(f *os.File) error {
		return jsdata.EncodeScript(f, navtree.ToScript(out))
	}); err != nil {
		return err
	}
	for i, s := range res.Shards {
		if err := writeFile(dir, navtree.ShardFile(i), func(f *os.File) error {
			return jsdata.Encode(f, navtree.ShardVar(i), navtree.ShardToValue(s))
		}); err != nil {
			return err
		}
	}
	refs := make([]string, 0, len(lazy))
	for ref := range lazy {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	for _, ref := range refs {
		nodes := lazy[ref]
		if err := writeFile(dir, navtree.LazyFile(ref), func(f *os.File) error {
			return jsdata.Encode(f, ref, navtree.ToValue(nodes))
		}); err != nil {
			return err
		}
	}
	return nil
}

// Reshard collects p, rebuilds its shards and writes the result to dir.
func Reshard(ctx context.Context, p *loader.Project, dir string, cfg Config) (*Result, error) {
	col, err := Collect(ctx, p)
	if err != nil {
		return nil, err
	}
	res := Build(col.Entries, cfg)
	if err := Write(dir, p.Tree(), col.Lazy, res); err != nil {
		return nil, err
	}
	return res, nil
}

func writeFile(dir, name string, fn func(*os.File) error) error {
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := fn(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func copyCrumbs(c []int) []int {
	out := make([]int, len(c))
	copy(out, c)
	return out
}
