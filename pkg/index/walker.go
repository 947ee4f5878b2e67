package index

import (
	"io/fs"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/thomascherickal/bloop.ai/pkg/log"
)

// walk produces the absolute paths of every indexable file under root,
// honoring the ignore globs (matched against the slash-separated path
// relative to root). The order of the result is not meaningful and
// callers must not rely on it.
func walk(root string, ignoreGlobs []string) ([]string, error) {
	logger := log.WithComponent("index")

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Warn().Err(err).Str("path", path).Msg("access failure; skipping")
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if ignored(rel, d.IsDir(), ignoreGlobs) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return files, nil
}

func ignored(rel string, isDir bool, globs []string) bool {
	if rel == "." {
		return false
	}

	for _, glob := range globs {
		if ok, _ := doublestar.Match(glob, rel); ok {
			return true
		}
		// Patterns like "**/.git/**" name a directory's contents;
		// prune the directory itself when its entries would match.
		if isDir {
			if ok, _ := doublestar.Match(glob, rel+"/_"); ok {
				return true
			}
		}
	}
	return false
}
