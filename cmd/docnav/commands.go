package main

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docnav/internal/loader"
	"github.com/dgallion1/docnav/internal/navtree"
	"github.com/dgallion1/docnav/internal/outline"
	"github.com/dgallion1/docnav/internal/sharder"
	"github.com/dgallion1/docnav/internal/validate"
)

var errIssues = errors.New("validation found errors")

func (c *cli) validateCmd() *cobra.Command {
	var opts validate.Options
	cmd := &cobra.Command{
		Use:   "validate DIR",
		Short: "Check a project's tree, index and shards",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := c.load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			report, err := validate.Check(cmd.Context(), p, opts)
			if err != nil {
				return err
			}
			validate.SortIssues(report.Issues)
			if err := c.print(cmd.OutOrStdout(), report); err != nil {
				return err
			}
			c.log.Info("validated", "project", p.Name(), "errors", report.Errors(), "warnings", report.Warnings())
			if !report.OK() {
				return fmt.Errorf("%s: %d errors: %w", p.Name(), report.Errors(), errIssues)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&opts.Deep, "deep", true, "expand lazy files and check every shard")
	cmd.Flags().BoolVar(&opts.Pages, "pages", false, "check that targets exist and carry their anchors")
	return cmd
}

type shardResult struct {
	ID       string `json:"id" yaml:"id"`
	Shard    int    `json:"shard" yaml:"shard"`
	File     string `json:"file" yaml:"file"`
	Fallback bool   `json:"fallback" yaml:"fallback"`
}

func (c *cli) shardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shard DIR ID",
		Short: "Show which NAVTREEINDEX file covers an identifier",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := c.load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			idx := p.Tree().Index()
			if idx.IsEmpty() {
				return fmt.Errorf("%s has no shard index", p.Name())
			}
			shard, found := idx.ShardFor(args[1])
			return c.print(cmd.OutOrStdout(), shardResult{
				ID:       args[1],
				Shard:    shard,
				File:     navtree.ShardFile(shard),
				Fallback: !found,
			})
		},
	}
}

type crumbView struct {
	Label  string `json:"label" yaml:"label"`
	Target string `json:"target" yaml:"target"`
}

type locationView struct {
	URL      string      `json:"url" yaml:"url"`
	Shard    int         `json:"shard" yaml:"shard"`
	Key      string      `json:"key,omitempty" yaml:"key,omitempty"`
	Path     []int       `json:"path" yaml:"path,flow"`
	Trail    []crumbView `json:"trail" yaml:"trail"`
	Fallback bool        `json:"fallback" yaml:"fallback"`
}

func newLocationView(loc *loader.Location) locationView {
	v := locationView{URL: loc.URL, Shard: loc.Shard, Key: loc.Key, Path: loc.Path, Fallback: loc.Fallback}
	for _, cr := range loc.Trail {
		v.Trail = append(v.Trail, crumbView{Label: cr.Label, Target: cr.Target})
	}
	return v
}

func (c *cli) resolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve DIR URL",
		Short: "Find the breadcrumb trail for a page URL",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := c.load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			loc, err := p.Resolve(cmd.Context(), args[1])
			if err != nil {
				return err
			}
			return c.print(cmd.OutOrStdout(), newLocationView(loc))
		},
	}
}

type nodeView struct {
	Label    string      `json:"label" yaml:"label"`
	Target   string      `json:"target,omitempty" yaml:"target,omitempty"`
	Lazy     string      `json:"lazy,omitempty" yaml:"lazy,omitempty"`
	Children []*nodeView `json:"children,omitempty" yaml:"children,omitempty"`
}

type treeView struct {
	Project string               `json:"project" yaml:"project"`
	Roots   []*nodeView          `json:"roots" yaml:"roots"`
	Index   []string             `json:"index" yaml:"index"`
	Sync    navtree.SyncMessages `json:"sync" yaml:"sync"`
}

// buildView copies n; with expand set, lazy children are loaded and inlined.
// A ref already being expanded above n is left collapsed.
func buildView(ctx context.Context, p *loader.Project, n *navtree.Node, expand bool, stack []string) (*nodeView, error) {
	v := &nodeView{Label: n.Label(), Target: n.Target()}
	kids := n.Children()
	if n.Kind() == navtree.Lazy {
		if !expand || slices.Contains(stack, n.Ref()) {
			v.Lazy = n.Ref()
			return v, nil
		}
		stack = append(stack, n.Ref())
		var err error
		if kids, err = p.Children(ctx, n); err != nil {
			return nil, err
		}
	}
	for _, k := range kids {
		kv, err := buildView(ctx, p, k, expand, stack)
		if err != nil {
			return nil, err
		}
		v.Children = append(v.Children, kv)
	}
	return v, nil
}

func (c *cli) treeCmd() *cobra.Command {
	var expand bool
	cmd := &cobra.Command{
		Use:   "tree DIR",
		Short: "Print the navigation tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := c.load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			tv := treeView{Project: p.Name(), Index: p.Tree().Index().Keys(), Sync: p.Tree().Sync()}
			for _, root := range p.Tree().Roots() {
				v, err := buildView(cmd.Context(), p, root, expand, nil)
				if err != nil {
					return err
				}
				tv.Roots = append(tv.Roots, v)
			}
			return c.print(cmd.OutOrStdout(), tv)
		},
	}
	cmd.Flags().BoolVar(&expand, "expand", false, "load lazy child files and inline them")
	return cmd
}

func (c *cli) outlineCmd() *cobra.Command {
	var (
		opts   outline.Options
		asHTML bool
	)
	cmd := &cobra.Command{
		Use:   "outline DIR",
		Short: "Render the tree as a Markdown or HTML list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Depth < 0 {
				return fmt.Errorf("--depth must not be negative")
			}
			p, err := c.load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asHTML {
				out, err := outline.HTML(cmd.Context(), p, opts)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(out)
				return err
			}
			md, err := outline.Markdown(cmd.Context(), p, opts)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), md)
			return err
		},
	}
	cmd.Flags().IntVar(&opts.Depth, "depth", 0, "maximum list depth (0 for all)")
	cmd.Flags().BoolVar(&opts.SkipLazy, "skip-lazy", false, "leave lazily loaded lists collapsed")
	cmd.Flags().BoolVar(&asHTML, "html", false, "render HTML instead of Markdown")
	return cmd
}

type reshardResult struct {
	Project string   `json:"project" yaml:"project"`
	Dir     string   `json:"dir" yaml:"dir"`
	Shards  int      `json:"shards" yaml:"shards"`
	Keys    int      `json:"keys" yaml:"keys"`
	Index   []string `json:"index" yaml:"index"`
}

func (c *cli) reshardCmd() *cobra.Command {
	cfg := sharder.DefaultConfig()
	cmd := &cobra.Command{
		Use:   "reshard DIR OUT",
		Short: "Rebuild NAVTREEINDEX shards into another directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.ShardSize <= 0 {
				return fmt.Errorf("--size must be positive")
			}
			p, err := c.load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			res, err := sharder.Reshard(cmd.Context(), p, args[1], cfg)
			if err != nil {
				return err
			}
			keys := 0
			for _, s := range res.Shards {
				keys += s.Len()
			}
			c.log.Info("resharded", "project", p.Name(), "dir", args[1], "shards", len(res.Shards))
			return c.print(cmd.OutOrStdout(), reshardResult{
				Project: p.Name(),
				Dir:     args[1],
				Shards:  len(res.Shards),
				Keys:    keys,
				Index:   res.Index.Keys(),
			})
		},
	}
	cmd.Flags().IntVar(&cfg.ShardSize, "size", sharder.DefaultShardSize, "maximum keys per shard file")
	return cmd
}
