// Package lake locates the bronze, silver, and gold layers under an explicit
// root and reads and writes the artifacts stored in them.
package lake

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/sells-group/medallion-cli/internal/config"
)

// Layer names one of the three medallion layers.
type Layer string

const (
	Bronze Layer = "bronze"
	Silver Layer = "silver"
	Gold   Layer = "gold"
)

// Artifact file names.
const (
	SalesTable       = "sales.parquet"
	ReviewsTable     = "reviews.parquet"
	PerformanceTable = "product_performance.parquet"
	PerformanceCSV   = "product_performance.csv"
	StatsFile        = "global_stats.json"
	DashboardFile    = "dashboard_performance.png"
)

// Lake resolves layer directories under one root. It carries no other state.
type Lake struct {
	root string
	dirs map[Layer]string
}

// New creates a Lake rooted at root. Empty layer dirs fall back to the layer
// name; relative ones are joined to root.
func New(root, bronze, silver, gold string) *Lake {
	l := &Lake{root: root, dirs: make(map[Layer]string, 3)}
	for layer, dir := range map[Layer]string{Bronze: bronze, Silver: silver, Gold: gold} {
		if dir == "" {
			dir = string(layer)
		}
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(root, dir)
		}
		l.dirs[layer] = dir
	}
	return l
}

// FromConfig creates a Lake from the lake configuration section.
func FromConfig(cfg config.LakeConfig) *Lake {
	return New(cfg.Root, cfg.BronzeDir, cfg.SilverDir, cfg.GoldDir)
}

// Root returns the lake root.
func (l *Lake) Root() string { return l.root }

// Dir returns the directory of a layer.
func (l *Lake) Dir(layer Layer) string { return l.dirs[layer] }

// Path returns the path of a named artifact in a layer.
func (l *Lake) Path(layer Layer, name string) string {
	return filepath.Join(l.dirs[layer], name)
}

// Ensure creates every layer directory.
func (l *Lake) Ensure() error {
	for _, layer := range []Layer{Bronze, Silver, Gold} {
		if err := os.MkdirAll(l.dirs[layer], 0o755); err != nil {
			return eris.Wrapf(err, "lake: create %s dir", layer)
		}
	}
	return nil
}

// List returns the file names in a layer, sorted. A missing layer dir is
// reported as empty.
func (l *Lake) List(layer Layer) ([]string, error) {
	entries, err := os.ReadDir(l.dirs[layer])
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "lake: list %s", layer)
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Glob returns the sorted paths in a layer whose base name matches pattern.
func (l *Lake) Glob(layer Layer, pattern string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(l.dirs[layer], pattern))
	if err != nil {
		return nil, eris.Wrapf(err, "lake: glob %s/%s", layer, pattern)
	}
	sort.Strings(matches)
	return matches, nil
}

// Clear removes every regular file in a layer. Sub-directories are kept.
func (l *Lake) Clear(layer Layer) (int, error) {
	names, err := l.List(layer)
	if err != nil {
		return 0, err
	}
	for _, name := range names {
		if err := os.Remove(filepath.Join(l.dirs[layer], name)); err != nil {
			return 0, eris.Wrapf(err, "lake: remove %s", name)
		}
	}
	return len(names), nil
}
