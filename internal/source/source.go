// Package source loads SQL migration pairs from disk or an embedded
// filesystem and turns them into the defined-migration list the reconciler
// consumes. Files follow the <version>_<name>.up.sql / .down.sql convention;
// the numeric version becomes the migration ID.
package source

import (
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"sort"
	"strconv"

	"github.com/mirajehossain/goreconcilex/reconcile"
)

var fileRe = regexp.MustCompile(`^(\d+)_([a-zA-Z0-9_\-]+)\.(up|down)\.sql$`)

type pair struct {
	id   int64
	name string
	up   string
	down string
	has  [2]bool // up, down
}

// Dir loads migration pairs from a directory on disk.
func Dir(dir string) ([]reconcile.Migration[string], error) {
	return load(os.DirFS(dir), ".")
}

// FS loads migration pairs from root inside fsys, typically an embed.FS.
func FS(fsys fs.FS, root string) ([]reconcile.Migration[string], error) {
	return load(fsys, root)
}

func load(fsys fs.FS, root string) ([]reconcile.Migration[string], error) {
	entries, err := fs.ReadDir(fsys, root)
	if err != nil {
		return nil, err
	}
	pairs := map[int64]*pair{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := fileRe.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		id, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("version %q in %s does not fit an id: %w", m[1], e.Name(), err)
		}
		p := pairs[id]
		if p == nil {
			p = &pair{id: id, name: m[2]}
			pairs[id] = p
		}
		if p.name != m[2] {
			return nil, fmt.Errorf("version %d used by both %q and %q", id, p.name, m[2])
		}
		body, err := fs.ReadFile(fsys, joined(root, e.Name()))
		if err != nil {
			return nil, err
		}
		switch m[3] {
		case "up":
			if p.has[0] {
				return nil, fmt.Errorf("duplicate up file for version %d", id)
			}
			p.up, p.has[0] = string(body), true
		case "down":
			if p.has[1] {
				return nil, fmt.Errorf("duplicate down file for version %d", id)
			}
			p.down, p.has[1] = string(body), true
		}
	}

	out := make([]reconcile.Migration[string], 0, len(pairs))
	for _, p := range pairs {
		if !p.has[0] || !p.has[1] {
			return nil, fmt.Errorf("incomplete pair for version %d (%s)", p.id, p.name)
		}
		out = append(out, reconcile.Migration[string]{
			ID:   p.id,
			Name: p.name,
			Up:   p.up,
			Down: p.down,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func joined(root, name string) string {
	if root == "." {
		return name
	}
	return root + "/" + name
}
