package main

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docnav/internal/loader"
)

// cli holds the persistent flags shared by every subcommand.
type cli struct {
	output  string
	verbose bool
	name    string
	apiKey  string
	retries uint
	log     *slog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "docnav",
		Short: "Inspect Doxygen navigation indexes",
		Long: `docnav reads the navtreedata.js tree and NAVTREEINDEX shards that
Doxygen writes next to its HTML output.

DIR is either an output directory on disk or an http(s) URL serving one.

Examples:
  docnav validate ./html --pages   # check tree, shards and anchors
  docnav resolve ./html led_8c.html#a4d27
  docnav reshard ./html ./out --size 500`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if _, err := parseFormat(c.output); err != nil {
				return err
			}
			level := slog.LevelWarn
			if c.verbose {
				level = slog.LevelDebug
			}
			c.log = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&c.output, "output", "o", "yaml", "output format: yaml or json")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "log loads and lookups to stderr")
	root.PersistentFlags().StringVar(&c.name, "name", "", "project name (default: directory base name)")
	root.PersistentFlags().StringVar(&c.apiKey, "api-key", "", "bearer token for http(s) sources")
	root.PersistentFlags().UintVar(&c.retries, "retries", 3, "attempts per file for http(s) sources")

	root.AddCommand(
		c.validateCmd(),
		c.shardCmd(),
		c.resolveCmd(),
		c.treeCmd(),
		c.outlineCmd(),
		c.reshardCmd(),
	)
	return root
}

// load opens the project at dir, which may be a local path or an http(s) URL.
func (c *cli) load(ctx context.Context, dir string) (*loader.Project, error) {
	var (
		src  loader.Source
		name = c.name
	)
	if strings.HasPrefix(dir, "http://") || strings.HasPrefix(dir, "https://") {
		src = loader.NewHTTPSource(dir, loader.WithAPIKey(c.apiKey), loader.WithRetry(c.retries, time.Second))
		if name == "" {
			name = path.Base(strings.TrimRight(dir, "/"))
		}
	} else {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", dir, err)
		}
		src = loader.NewDirSource(abs)
		if name == "" {
			name = filepath.Base(abs)
		}
	}

	start := time.Now()
	p, err := loader.Load(ctx, name, src)
	if err != nil {
		return nil, err
	}
	c.log.Debug("project loaded", "project", name, "source", src.String(),
		"shards", p.Tree().Index().Len(), "duration_ms", time.Since(start).Milliseconds())
	return p, nil
}
