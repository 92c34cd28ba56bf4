package dropbox

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// ExpandDirs expands directory paths and glob patterns into a sorted,
// deduplicated list of DropBox directories. Matches that are not
// directories are dropped. A pattern matching no directory is kept as-is
// so that opening it later reports a useful error.
func ExpandDirs(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var result []string

	add := func(p string) {
		p = filepath.Clean(p)
		if !seen[p] {
			seen[p] = true
			result = append(result, p)
		}
	}

	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
		}

		found := false
		for _, match := range matches {
			info, err := os.Stat(match)
			if err != nil || !info.IsDir() {
				continue
			}
			add(match)
			found = true
		}
		if !found {
			add(pattern)
		}
	}

	sort.Strings(result)

	return result, nil
}
