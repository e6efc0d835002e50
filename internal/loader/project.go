// Package loader reads a project's generated navigation scripts from a
// Source and serves lazy child lists, shards and URL resolution on top of
// the immutable navtree model.
package loader

import (
	"context"
	"fmt"
	"sync"

	"github.com/dgallion1/docnav/internal/jsdata"
	"github.com/dgallion1/docnav/internal/navtree"
)

// Project is one loaded documentation project. The tree never changes;
// lazily loaded child lists and shards are cached after the first read and
// the cache is safe for concurrent use.
type Project struct {
	name string
	src  Source
	tree *navtree.Tree

	mu     sync.Mutex
	lazy   map[string][]*navtree.Node
	shards map[int]*navtree.Shard
}

// Load reads navtreedata.js from src. An empty name defaults to the label
// of the tree's root node.
func Load(ctx context.Context, name string, src Source) (*Project, error) {
	script, err := readScript(ctx, src, navtree.DataFile)
	if err != nil {
		return nil, err
	}
	tree, err := navtree.FromScript(script)
	if err != nil {
		return nil, fmt.Errorf("%s/%s: %w", src, navtree.DataFile, err)
	}
	return NewProject(name, src, tree), nil
}

// NewProject wraps an already built tree.
func NewProject(name string, src Source, tree *navtree.Tree) *Project {
	if name == "" {
		name = tree.ProjectName()
	}
	return &Project{
		name:   name,
		src:    src,
		tree:   tree,
		lazy:   make(map[string][]*navtree.Node),
		shards: make(map[int]*navtree.Shard),
	}
}

func (p *Project) Name() string { return p.name }
func (p *Project) Source() Source { return p.src }
func (p *Project) Tree() *navtree.Tree { return p.tree }

// Children returns n's children, reading LazyFile(n.Ref()) on first use.
func (p *Project) Children(ctx context.Context, n *navtree.Node) ([]*navtree.Node, error) {
	switch n.Kind() {
	case navtree.Leaf:
		return nil, nil
	case navtree.Inline:
		return n.Children(), nil
	}

	ref := n.Ref()
	p.mu.Lock()
	nodes, ok := p.lazy[ref]
	p.mu.Unlock()
	if ok {
		return copyNodes(nodes), nil
	}

	file := navtree.LazyFile(ref)
	script, err := readScript(ctx, p.src, file)
	if err != nil {
		return nil, err
	}
	v, ok := script.Lookup(ref)
	if !ok {
		return nil, fmt.Errorf("%s/%s: variable %s not defined", p.src, file, ref)
	}
	nodes, err = navtree.NodesFromValue(v)
	if err != nil {
		return nil, fmt.Errorf("%s/%s: %w", p.src, file, err)
	}

	p.mu.Lock()
	if cached, ok := p.lazy[ref]; ok {
		nodes = cached
	} else {
		p.lazy[ref] = nodes
	}
	p.mu.Unlock()
	return copyNodes(nodes), nil
}

// Shard returns shard i, reading ShardFile(i) on first use.
func (p *Project) Shard(ctx context.Context, i int) (*navtree.Shard, error) {
	if i < 0 || i >= p.tree.Index().Len() {
		return nil, fmt.Errorf("shard %d: out of range [0,%d)", i, p.tree.Index().Len())
	}
	p.mu.Lock()
	s, ok := p.shards[i]
	p.mu.Unlock()
	if ok {
		return s, nil
	}

	file := navtree.ShardFile(i)
	script, err := readScript(ctx, p.src, file)
	if err != nil {
		return nil, err
	}
	v, ok := script.Lookup(navtree.ShardVar(i))
	if !ok {
		return nil, fmt.Errorf("%s/%s: variable %s not defined", p.src, file, navtree.ShardVar(i))
	}
	s, err = navtree.ShardFromValue(v)
	if err != nil {
		return nil, fmt.Errorf("%s/%s: %w", p.src, file, err)
	}

	p.mu.Lock()
	if cached, ok := p.shards[i]; ok {
		s = cached
	} else {
		p.shards[i] = s
	}
	p.mu.Unlock()
	return s, nil
}

// NodeAt follows path from the top-level entries, expanding lazy children.
func (p *Project) NodeAt(ctx context.Context, path []int) ([]*navtree.Node, error) {
	roots := p.tree.Roots()
	if len(path) == 0 {
		return nil, fmt.Errorf("empty path: %w", ErrNoSuchNode)
	}
	if path[0] < 0 || path[0] >= len(roots) {
		return nil, fmt.Errorf("path %v: root position %d: %w", path, path[0], ErrNoSuchNode)
	}
	trail := []*navtree.Node{roots[path[0]]}
	n := roots[path[0]]
	for depth, pos := range path[1:] {
		kids, err := p.Children(ctx, n)
		if err != nil {
			return trail, err
		}
		if pos < 0 || pos >= len(kids) {
			return trail, fmt.Errorf("path %v: position %d at depth %d of %d children: %w", path, pos, depth+1, len(kids), ErrNoSuchNode)
		}
		n = kids[pos]
		trail = append(trail, n)
	}
	return trail, nil
}

// CachedCounts reports how many lazy files and shards have been read.
func (p *Project) CachedCounts() (lazy, shards int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.lazy), len(p.shards)
}

func readScript(ctx context.Context, src Source, name string) (*jsdata.Script, error) {
	rc, err := src.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	script, err := jsdata.Decode(rc)
	if err != nil {
		return nil, fmt.Errorf("%s/%s: %w", src, name, err)
	}
	return script, nil
}

func copyNodes(nodes []*navtree.Node) []*navtree.Node {
	out := make([]*navtree.Node, len(nodes))
	copy(out, nodes)
	return out
}
