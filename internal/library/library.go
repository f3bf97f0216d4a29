// ABOUTME: Score library - discovers score files in a directory
// ABOUTME: Loads entries on demand so a bad file only skips itself
package library

import (
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/clavier-project/clavier-go/internal/score"
)

// Library is the ordered set of discovered score files.
type Library struct {
	paths []string
}

// Scan discovers *.yaml / *.yml score files in dir, sorted by name.
// An unreadable directory yields an empty library, not an error: the
// player stays up and simply has nothing to play.
func Scan(dir string) *Library {
	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Printf("library: cannot read %s: %v", dir, err)
		return &Library{}
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)

	log.Printf("library: discovered %d scores in %s", len(paths), dir)
	return &Library{paths: paths}
}

// FromPaths builds a library from an explicit file list.
func FromPaths(paths []string) *Library {
	return &Library{paths: append([]string(nil), paths...)}
}

func (l *Library) Len() int { return len(l.paths) }

// Path returns the file path at index i.
func (l *Library) Path(i int) string { return l.paths[i] }

// Name returns a display name for index i.
func (l *Library) Name(i int) string {
	base := filepath.Base(l.paths[i])
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Load parses the score at index i. Failures come back as a
// *score.ParseError for the caller's skip policy.
func (l *Library) Load(i int) (*score.Score, error) {
	return score.Load(l.paths[i])
}
