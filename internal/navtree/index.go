package navtree

// Index is the flat NAVTREEINDEX list: entry i is the first page-fragment
// identifier stored in ShardFile(i). Duplicates are allowed.
type Index struct {
	keys []string
}

// NewIndex copies keys into an Index.
func NewIndex(keys []string) Index {
	k := make([]string, len(keys))
	copy(k, keys)
	return Index{keys: k}
}

func (x Index) Len() int { return len(x.keys) }
func (x Index) At(i int) string { return x.keys[i] }
func (x Index) IsEmpty() bool { return len(x.keys) == 0 }

// Keys returns a copy of the entries.
func (x Index) Keys() []string {
	k := make([]string, len(x.keys))
	copy(k, x.keys)
	return k
}

// ShardFor picks the shard file to fetch for id. It scans forward while the
// next entry is <= id and returns the last such position. When not even the
// first entry is <= id, ok is false and the caller should fall back to the
// project's root page, which lives in shard 0.
func (x Index) ShardFor(id string) (shard int, ok bool) {
	i := -1
	for i+1 < len(x.keys) && x.keys[i+1] <= id {
		i++
	}
	if i < 0 {
		return 0, false
	}
	return i, true
}

// Shard maps page-fragment identifiers to breadcrumb positions below the
// top-level node.
type Shard struct {
	keys  []string
	paths map[string][]int
}

// NewShard builds a shard keeping keys in the given order. Keys missing from
// paths get an empty breadcrumb.
func NewShard(keys []string, paths map[string][]int) *Shard {
	s := &Shard{keys: make([]string, 0, len(keys)), paths: make(map[string][]int, len(keys))}
	for _, k := range keys {
		if _, dup := s.paths[k]; dup {
			continue
		}
		p := make([]int, len(paths[k]))
		copy(p, paths[k])
		s.keys = append(s.keys, k)
		s.paths[k] = p
	}
	return s
}

func (s *Shard) Len() int { return len(s.keys) }

// Keys returns the identifiers in file order.
func (s *Shard) Keys() []string {
	k := make([]string, len(s.keys))
	copy(k, s.keys)
	return k
}

// Lookup returns a copy of the breadcrumb stored for id.
func (s *Shard) Lookup(id string) ([]int, bool) {
	p, ok := s.paths[id]
	if !ok {
		return nil, false
	}
	out := make([]int, len(p))
	copy(out, p)
	return out, true
}

// First returns the first key in file order.
func (s *Shard) First() string {
	if len(s.keys) == 0 {
		return ""
	}
	return s.keys[0]
}
