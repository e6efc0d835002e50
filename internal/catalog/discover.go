package catalog

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docnav/internal/loader"
	"github.com/dgallion1/docnav/internal/navtree"
)

// Discover finds every directory under root that holds a navtreedata.js.
// A project under projects/<name>/ is called <name>; otherwise the first
// directory below root names it. Clashing names get a numeric suffix.
func Discover(root string) ([]Target, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", root, err)
	}

	var targets []Target
	used := make(map[string]int)
	err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != abs && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() != navtree.DataFile {
			return nil
		}
		dir := filepath.Dir(path)
		rel, err := filepath.Rel(abs, dir)
		if err != nil {
			return err
		}
		name := uniqueName(used, projectName(abs, rel))
		targets = append(targets, Target{Name: name, Source: loader.NewDirSource(dir), Dir: dir})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discover %s: %w", root, err)
	}
	return targets, nil
}

// uniqueName returns base, or base-N for the lowest N >= 2 not taken yet,
// and marks the result as used.
func uniqueName(used map[string]int, base string) string {
	name := base
	for n := 2; used[name] > 0; n++ {
		name = fmt.Sprintf("%s-%d", base, n)
	}
	used[name]++
	return name
}

func projectName(root, rel string) string {
	if rel == "." {
		return filepath.Base(root)
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	for i, p := range parts {
		if p == "projects" && i+1 < len(parts) {
			return parts[i+1]
		}
	}
	return parts[0]
}
