// Package outline renders a project's navigation tree as a Markdown list
// and as HTML.
package outline

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/yuin/goldmark"

	"github.com/dgallion1/docnav/internal/loader"
	"github.com/dgallion1/docnav/internal/navtree"
)

// Options controls how much of the tree is rendered.
type Options struct {
	// Depth limits the number of list levels; 0 renders everything.
	Depth int
	// SkipLazy leaves lazily loaded child lists collapsed.
	SkipLazy bool
}

// Markdown renders p as a heading followed by a nested list of links.
func Markdown(ctx context.Context, p *loader.Project, opts Options) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", escape(p.Name()))
	for _, root := range p.Tree().Roots() {
		if err := writeNode(ctx, &b, p, root, 0, nil, opts); err != nil {
			return "", err
		}
	}
	return b.String(), nil
}

// HTML renders the Markdown outline with goldmark.
func HTML(ctx context.Context, p *loader.Project, opts Options) ([]byte, error) {
	src, err := Markdown(ctx, p, opts)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := goldmark.New().Convert([]byte(src), &buf); err != nil {
		return nil, fmt.Errorf("render outline: %w", err)
	}
	return buf.Bytes(), nil
}

// writeNode renders n and its children. stack holds the lazy refs being
// expanded above n; a ref that is already open is rendered collapsed.
func writeNode(ctx context.Context, b *strings.Builder, p *loader.Project, n *navtree.Node, depth int, stack []string, opts Options) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.WriteString(strings.Repeat("  ", depth))
	b.WriteString("- ")
	if n.Target() != "" {
		fmt.Fprintf(b, "[%s](%s)\n", escape(n.Label()), n.Target())
	} else {
		b.WriteString(escape(n.Label()) + "\n")
	}

	if opts.Depth > 0 && depth+1 >= opts.Depth {
		return nil
	}
	if n.Kind() == navtree.Lazy {
		if opts.SkipLazy || slices.Contains(stack, n.Ref()) {
			return nil
		}
		stack = append(stack, n.Ref())
	}
	kids, err := p.Children(ctx, n)
	if err != nil {
		return err
	}
	for _, k := range kids {
		if err := writeNode(ctx, b, p, k, depth+1, stack, opts); err != nil {
			return err
		}
	}
	return nil
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"`", "\\`",
	"*", `\*`,
	"_", `\_`,
	"[", `\[`,
	"]", `\]`,
	"<", `\<`,
	">", `\>`,
	"#", `\#`,
)

func escape(s string) string {
	return markdownEscaper.Replace(s)
}
