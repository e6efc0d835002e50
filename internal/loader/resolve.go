package loader

import (
	"context"
	"strings"
)

// Crumb is one step of a resolved breadcrumb trail.
type Crumb struct {
	Label  string `json:"label"`
	Target string `json:"target"`
}

// Location is where a page sits in the navigation tree.
type Location struct {
	URL      string  `json:"url"`
	Shard    int     `json:"shard"`
	Key      string  `json:"key,omitempty"`
	Path     []int   `json:"path"`
	Trail    []Crumb `json:"trail"`
	Fallback bool    `json:"fallback"`
}

// Resolve locates url the way the documentation sidebar does: pick the shard
// with ShardFor, look up the full URL and then the URL without its fragment,
// and fall back to the root page when neither is indexed. Path starts with
// the top-level position (always 0).
func (p *Project) Resolve(ctx context.Context, url string) (*Location, error) {
	rootPage := p.tree.RootTarget()
	loc := &Location{URL: url}

	page, hash := splitFragment(url)
	shard, ok := p.tree.Index().ShardFor(url)
	if !ok {
		loc.Fallback = true
		page = rootPage
	}
	loc.Shard = shard

	var crumbs []int
	found := false
	if !p.tree.Index().IsEmpty() {
		s, err := p.Shard(ctx, shard)
		if err != nil {
			return nil, err
		}
		if crumbs, found = s.Lookup(page + hash); found {
			loc.Key = page + hash
		} else if crumbs, found = s.Lookup(page); found {
			loc.Key = page
		}
	}

	if !found && page != rootPage {
		fb, err := p.Resolve(ctx, rootPage)
		if err != nil {
			return nil, err
		}
		fb.URL = url
		fb.Fallback = true
		return fb, nil
	}
	if !found {
		loc.Fallback = true
	}

	loc.Path = append([]int{0}, crumbs...)
	nodes, err := p.NodeAt(ctx, loc.Path)
	if err != nil {
		return nil, err
	}
	loc.Trail = make([]Crumb, len(nodes))
	for i, n := range nodes {
		loc.Trail[i] = Crumb{Label: n.Label(), Target: n.Target()}
	}
	return loc, nil
}

func splitFragment(url string) (page, hash string) {
	if i := strings.IndexByte(url, '#'); i >= 0 {
		return url[:i], url[i:]
	}
	return url, ""
}
