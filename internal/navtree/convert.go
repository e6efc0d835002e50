package navtree

import (
	"fmt"
	"math"

	"github.com/dgallion1/docnav/internal/jsdata"
)

// FromScript builds a Tree from a decoded navtreedata.js. NAVTREE is
// required; a missing index or sync message yields an empty value.
func FromScript(s *jsdata.Script) (*Tree, error) {
	raw, ok := s.Lookup(TreeVar)
	if !ok {
		return nil, fmt.Errorf("navtree: %s not defined", TreeVar)
	}
	roots, err := NodesFromValue(raw)
	if err != nil {
		return nil, fmt.Errorf("navtree: %s: %w", TreeVar, err)
	}

	var index Index
	if rawIdx, ok := s.Lookup(IndexVar); ok {
		keys, err := stringList(rawIdx)
		if err != nil {
			return nil, fmt.Errorf("navtree: %s: %w", IndexVar, err)
		}
		index = NewIndex(keys)
	}

	var sync SyncMessages
	sync.On, _ = s.LookupString(SyncOnVar)
	sync.Off, _ = s.LookupString(SyncOffVar)

	return New(roots, index, sync)
}

// NodesFromValue converts a JS array of `[label, target, children]`
// entries, as found in NAVTREE and in lazy child files.
func NodesFromValue(v any) ([]*Node, error) {
	arr, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected array of entries, got %s", typeName(v))
	}
	nodes := make([]*Node, 0, len(arr))
	for i, el := range arr {
		n, err := nodeFromValue(el)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func nodeFromValue(v any) (*Node, error) {
	entry, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected [label, target, children], got %s", typeName(v))
	}
	if len(entry) < 2 {
		return nil, fmt.Errorf("expected at least label and target, got %d fields", len(entry))
	}
	label, ok := entry[0].(string)
	if !ok {
		return nil, fmt.Errorf("label: expected string, got %s", typeName(entry[0]))
	}
	var target string
	switch t := entry[1].(type) {
	case string:
		target = t
	case nil:
	default:
		return nil, fmt.Errorf("%q: target: expected string or null, got %s", label, typeName(t))
	}

	var children any
	if len(entry) > 2 {
		children = entry[2]
	}
	switch c := children.(type) {
	case nil:
		return NewLeaf(label, target), nil
	case string:
		return NewLazy(label, target, c), nil
	case []any:
		kids, err := NodesFromValue(c)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", label, err)
		}
		return NewBranch(label, target, kids), nil
	default:
		return nil, fmt.Errorf("%q: children: expected array, string or null, got %s", label, typeName(c))
	}
}

// ShardFromValue converts a NAVTREEINDEX<i> object.
func ShardFromValue(v any) (*Shard, error) {
	obj, ok := v.(*jsdata.Object)
	if !ok {
		return nil, fmt.Errorf("expected object, got %s", typeName(v))
	}
	paths := make(map[string][]int, len(obj.Keys))
	for _, k := range obj.Keys {
		raw, ok := obj.Fields[k].([]any)
		if !ok {
			return nil, fmt.Errorf("%q: expected array of positions, got %s", k, typeName(obj.Fields[k]))
		}
		p := make([]int, len(raw))
		for i, x := range raw {
			f, ok := x.(float64)
			if !ok || f < 0 || f != math.Trunc(f) {
				return nil, fmt.Errorf("%q: position %d: expected non-negative integer, got %v", k, i, x)
			}
			p[i] = int(f)
		}
		paths[k] = p
	}
	return NewShard(obj.Keys, paths), nil
}

// ToValue converts nodes back into the JS array layout.
func ToValue(nodes []*Node) []any {
	out := make([]any, len(nodes))
	for i, n := range nodes {
		var children any
		switch n.kind {
		case Inline:
			children = ToValue(n.children)
		case Lazy:
			children = n.ref
		}
		var target any
		if n.target != "" {
			target = n.target
		}
		out[i] = []any{n.label, target, children}
	}
	return out
}

// ShardToValue converts a shard back into a JS object.
func ShardToValue(s *Shard) *jsdata.Object {
	obj := jsdata.NewObject()
	for _, k := range s.keys {
		obj.Set(k, s.paths[k])
	}
	return obj
}

// ToScript renders the tree as the content of navtreedata.js.
func ToScript(t *Tree) *jsdata.Script {
	keys := make([]any, t.index.Len())
	for i, k := range t.index.keys {
		keys[i] = k
	}
	return &jsdata.Script{Vars: []jsdata.Var{
		{Name: TreeVar, Value: ToValue(t.roots)},
		{Name: IndexVar, Value: keys},
		{Name: SyncOnVar, Value: t.sync.On},
		{Name: SyncOffVar, Value: t.sync.Off},
	}}
}

func stringList(v any) ([]string, error) {
	arr, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected array of strings, got %s", typeName(v))
	}
	out := make([]string, len(arr))
	for i, x := range arr {
		s, ok := x.(string)
		if !ok {
			return nil, fmt.Errorf("entry %d: expected string, got %s", i, typeName(x))
		}
		out[i] = s
	}
	return out, nil
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case *jsdata.Object:
		return "object"
	}
	return fmt.Sprintf("%T", v)
}
