// Package validate runs structural checks over a loaded navigation project.
package validate

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/dgallion1/docnav/internal/loader"
	"github.com/dgallion1/docnav/internal/navtree"
	"github.com/dgallion1/docnav/internal/pages"
)

// Severity of an Issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue codes.
const (
	CodeMultipleRoots  = "multiple-roots"
	CodeSharedNode     = "shared-node"
	CodeEmptyLabel     = "empty-label"
	CodeEmptyChildren  = "empty-children"
	CodeEmptyRef       = "empty-ref"
	CodeLazyCycle      = "lazy-cycle"
	CodeLazyLoad       = "lazy-load"
	CodeInvalidTarget  = "invalid-target"
	CodeEmptyIndex     = "empty-index"
	CodeInvalidEntry   = "invalid-index-entry"
	CodeUnsortedIndex  = "unsorted-index"
	CodeDuplicateEntry = "duplicate-index-entry"
	CodeShardLoad      = "shard-load"
	CodeShardFirstKey  = "shard-first-key"
	CodeMisplacedKey   = "misplaced-key"
	CodeInvalidKey     = "invalid-shard-key"
	CodeDanglingCrumb  = "dangling-breadcrumb"
	CodeMissingPage    = "missing-page"
	CodeMissingAnchor  = "missing-anchor"
	CodeSchema         = "schema"
)

// Issue is one finding. Path is a dotted node position ("0.1.3") or a file
// name, depending on what the check looked at.
type Issue struct {
	Severity Severity `json:"severity" yaml:"severity"`
	Code     string   `json:"code" yaml:"code"`
	Path     string   `json:"path,omitempty" yaml:"path,omitempty"`
	Message  string   `json:"message" yaml:"message"`
}

func (i Issue) String() string {
	if i.Path == "" {
		return fmt.Sprintf("%s %s: %s", i.Severity, i.Code, i.Message)
	}
	return fmt.Sprintf("%s %s %s: %s", i.Severity, i.Code, i.Path, i.Message)
}

// Options selects the optional, I/O heavy checks.
type Options struct {
	// Deep loads every lazy child file and shard file and cross-checks
	// breadcrumbs against the tree.
	Deep bool
	// Pages opens every target page and checks its fragment anchor.
	Pages bool
}

// Report is the outcome of Check.
type Report struct {
	Project      string  `json:"project" yaml:"project"`
	Nodes        int     `json:"nodes" yaml:"nodes"`
	LazyFiles    int     `json:"lazy_files" yaml:"lazy_files"`
	Shards       int     `json:"shards" yaml:"shards"`
	ShardKeys    int     `json:"shard_keys" yaml:"shard_keys"`
	PagesChecked int     `json:"pages_checked" yaml:"pages_checked"`
	Issues       []Issue `json:"issues" yaml:"issues"`
}

// OK reports whether the project has no errors. Warnings do not count.
func (r *Report) OK() bool { return r.Errors() == 0 }

func (r *Report) Errors() int { return r.count(SeverityError) }
func (r *Report) Warnings() int { return r.count(SeverityWarning) }

func (r *Report) count(s Severity) int {
	n := 0
	for _, i := range r.Issues {
		if i.Severity == s {
			n++
		}
	}
	return n
}

// Err returns nil when the report has no errors, otherwise an error listing
// the first few.
func (r *Report) Err() error {
	var msgs []string
	for _, i := range r.Issues {
		if i.Severity == SeverityError {
			msgs = append(msgs, i.String())
		}
	}
	if len(msgs) == 0 {
		return nil
	}
	if len(msgs) > 3 {
		msgs = append(msgs[:3], fmt.Sprintf("and %d more", len(msgs)-3))
	}
	return fmt.Errorf("%s: %d errors: %s", r.Project, r.Errors(), strings.Join(msgs, "; "))
}

func (r *Report) add(sev Severity, code, path, format string, args ...any) {
	r.Issues = append(r.Issues, Issue{Severity: sev, Code: code, Path: path, Message: fmt.Sprintf(format, args...)})
}

// Check runs every structural check on p. Only context cancellation
// aborts the run; everything else becomes an Issue.
func Check(ctx context.Context, p *loader.Project, opts Options) (*Report, error) {
	r := &Report{Project: p.Name()}
	c := &checker{
		ctx:    ctx,
		p:      p,
		opts:   opts,
		r:      r,
		seen:   make(map[*navtree.Node]string),
		refs:   make(map[string]bool),
		pages:  make(map[string]*pages.Page),
		failed: make(map[string]bool),
	}

	c.checkSchema()
	if err := c.checkTree(); err != nil {
		return nil, err
	}
	c.checkIndex()
	if opts.Deep {
		if err := c.checkShards(); err != nil {
			return nil, err
		}
	}
	r.PagesChecked = len(c.pages) + len(c.failed)
	return r, nil
}

type checker struct {
	ctx  context.Context
	p    *loader.Project
	opts Options
	r    *Report

	seen   map[*navtree.Node]string // node -> first path
	refs   map[string]bool          // lazy refs already expanded
	pages  map[string]*pages.Page
	failed map[string]bool
}

//go:embed schema.json
var schemaJSON []byte

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("load tree schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile tree schema: %w", err)
	}
	return schema, nil
})

// ValidateJSON checks a tree export against the embedded schema.
func ValidateJSON(data []byte) error {
	schema, err := compiledSchema()
	if err != nil {
		return err
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decode tree JSON: %w", err)
	}
	return schema.Validate(doc)
}

func (c *checker) checkSchema() {
	data, err := json.Marshal(c.p.Tree())
	if err != nil {
		c.r.add(SeverityError, CodeSchema, "", "marshal tree: %v", err)
		return
	}
	if err := ValidateJSON(data); err != nil {
		var ve *jsonschema.ValidationError
		if !errors.As(err, &ve) {
			c.r.add(SeverityError, CodeSchema, "", "%v", err)
			return
		}
		for _, leaf := range leafCauses(ve) {
			c.r.add(SeverityError, CodeSchema, leaf.InstanceLocation, "%s", leaf.Message)
		}
	}
}

func leafCauses(ve *jsonschema.ValidationError) []*jsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return []*jsonschema.ValidationError{ve}
	}
	var out []*jsonschema.ValidationError
	for _, c := range ve.Causes {
		out = append(out, leafCauses(c)...)
	}
	return out
}

func (c *checker) checkTree() error {
	roots := c.p.Tree().Roots()
	if len(roots) > 1 {
		c.r.add(SeverityWarning, CodeMultipleRoots, "", "%d top-level entries; only the first is the project root", len(roots))
	}
	for i, n := range roots {
		if err := c.visit([]int{i}, n, nil); err != nil {
			return err
		}
	}
	return nil
}

// visit checks n and descends. stack holds the lazy refs being expanded
// above n.
func (c *checker) visit(path []int, n *navtree.Node, stack []string) error {
	if err := c.ctx.Err(); err != nil {
		return err
	}
	where := pathString(path)
	if first, dup := c.seen[n]; dup {
		c.r.add(SeverityError, CodeSharedNode, where, "node %q already reached at %s", n.Label(), first)
		return nil
	}
	c.seen[n] = where
	c.r.Nodes++

	if strings.TrimSpace(n.Label()) == "" {
		c.r.add(SeverityWarning, CodeEmptyLabel, where, "entry has no label")
	}
	if err := CheckTarget(n.Target()); err != nil {
		c.r.add(SeverityError, CodeInvalidTarget, where, "target %q: %v", n.Target(), err)
	} else if c.opts.Pages && n.Target() != "" {
		if err := c.checkPage(where, n.Target()); err != nil {
			return err
		}
	}

	var kids []*navtree.Node
	switch n.Kind() {
	case navtree.Leaf:
		return nil
	case navtree.Inline:
		kids = n.Children()
		if len(kids) == 0 {
			c.r.add(SeverityWarning, CodeEmptyChildren, where, "%q has an empty child list", n.Label())
		}
	case navtree.Lazy:
		ref := n.Ref()
		if ref == "" {
			c.r.add(SeverityError, CodeEmptyRef, where, "%q has an empty child file reference", n.Label())
			return nil
		}
		for _, s := range stack {
			if s == ref {
				c.r.add(SeverityError, CodeLazyCycle, where, "%s is expanded inside itself (%s)", ref, strings.Join(append(stack, ref), " > "))
				return nil
			}
		}
		if !c.opts.Deep || c.refs[ref] {
			return nil
		}
		c.refs[ref] = true
		loaded, err := c.p.Children(c.ctx, n)
		if err != nil {
			if c.ctx.Err() != nil {
				return c.ctx.Err()
			}
			c.r.add(SeverityError, CodeLazyLoad, navtree.LazyFile(ref), "%v", err)
			return nil
		}
		c.r.LazyFiles++
		if len(loaded) == 0 {
			c.r.add(SeverityWarning, CodeEmptyChildren, where, "%s defines no entries", navtree.LazyFile(ref))
		}
		kids = loaded
		stack = append(stack, ref)
	}

	for i, k := range kids {
		child := make([]int, len(path)+1)
		copy(child, path)
		child[len(path)] = i
		if err := c.visit(child, k, stack); err != nil {
			return err
		}
	}
	return nil
}

func (c *checker) checkIndex() {
	idx := c.p.Tree().Index()
	if idx.IsEmpty() {
		c.r.add(SeverityError, CodeEmptyIndex, navtree.DataFile, "%s is missing or empty", navtree.IndexVar)
		return
	}
	seen := make(map[string]int, idx.Len())
	for i := 0; i < idx.Len(); i++ {
		key := idx.At(i)
		where := fmt.Sprintf("%s[%d]", navtree.IndexVar, i)
		if err := CheckFragment(key); err != nil {
			c.r.add(SeverityError, CodeInvalidEntry, where, "%q: %v", key, err)
		}
		if prev, dup := seen[key]; dup {
			c.r.add(SeverityWarning, CodeDuplicateEntry, where, "%q repeats entry %d", key, prev)
		} else {
			seen[key] = i
		}
		if i > 0 && key < idx.At(i-1) {
			c.r.add(SeverityWarning, CodeUnsortedIndex, where, "%q sorts before %q; lookups past this point stop early", key, idx.At(i-1))
		}
	}
}

func (c *checker) checkShards() error {
	idx := c.p.Tree().Index()
	for i := 0; i < idx.Len(); i++ {
		if err := c.ctx.Err(); err != nil {
			return err
		}
		file := navtree.ShardFile(i)
		s, err := c.p.Shard(c.ctx, i)
		if err != nil {
			if c.ctx.Err() != nil {
				return c.ctx.Err()
			}
			c.r.add(SeverityError, CodeShardLoad, file, "%v", err)
			continue
		}
		c.r.Shards++
		c.r.ShardKeys += s.Len()
		if s.First() != idx.At(i) {
			c.r.add(SeverityWarning, CodeShardFirstKey, file, "first key %q does not match index entry %q", s.First(), idx.At(i))
		}
		for _, key := range s.Keys() {
			if err := CheckFragment(key); err != nil {
				c.r.add(SeverityError, CodeInvalidKey, file, "%q: %v", key, err)
				continue
			}
			if got, _ := idx.ShardFor(key); got != i {
				c.r.add(SeverityWarning, CodeMisplacedKey, file, "%q is looked up in %s", key, navtree.ShardFile(got))
			}
			crumbs, _ := s.Lookup(key)
			if _, err := c.p.NodeAt(c.ctx, append([]int{0}, crumbs...)); err != nil {
				if c.ctx.Err() != nil {
					return c.ctx.Err()
				}
				c.r.add(SeverityError, CodeDanglingCrumb, file, "%q: %v", key, err)
			}
		}
	}
	return nil
}

func (c *checker) checkPage(where, target string) error {
	file, fragment := splitTarget(target)
	if file == "" || c.failed[file] {
		return nil
	}
	page, ok := c.pages[file]
	if !ok {
		rc, err := c.p.Source().Open(c.ctx, file)
		if err == nil {
			page, err = pages.Extract(rc)
			rc.Close()
		}
		if err != nil {
			if c.ctx.Err() != nil {
				return c.ctx.Err()
			}
			c.failed[file] = true
			c.r.add(SeverityError, CodeMissingPage, where, "%s: %v", file, err)
			return nil
		}
		c.pages[file] = page
	}
	if fragment != "" && !page.HasAnchor(fragment) {
		c.r.add(SeverityWarning, CodeMissingAnchor, where, "%s has no anchor %q", file, fragment)
	}
	return nil
}

func pathString(path []int) string {
	parts := make([]string, len(path))
	for i, p := range path {
		parts[i] = strconv.Itoa(p)
	}
	return strings.Join(parts, ".")
}

// SortIssues orders issues errors first, then by code and path.
func SortIssues(issues []Issue) {
	sort.SliceStable(issues, func(i, j int) bool {
		if issues[i].Severity != issues[j].Severity {
			return issues[i].Severity == SeverityError
		}
		if issues[i].Code != issues[j].Code {
			return issues[i].Code < issues[j].Code
		}
		return issues[i].Path < issues[j].Path
	})
}
