package manifest

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/hornetworks/aspcache/asp/fragment"
)

// IgnoreFileName is consulted at the root of a fragment directory. It
// uses gitignore pattern syntax against slash-separated relative paths.
const IgnoreFileName = ".aspignore"

// programExtensions lists the file suffixes loaded as fragments.
var programExtensions = map[string]bool{
	".mg": true,
	".lp": true,
}

// LoadDir registers every program file under dir. The fragment key is
// the slash-separated relative path without its extension, and each
// directory segment on that path becomes a category tag, so a query can
// reference a whole subtree by directory name. Files matched by a root
// .aspignore and hidden directories are skipped. Returns the number of
// fragments registered.
func LoadDir(dir string, store *fragment.Store) (int, error) {
	matcher, err := loadIgnoreFile(filepath.Join(dir, IgnoreFileName))
	if err != nil {
		return 0, err
	}

	count := 0
	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		ext := filepath.Ext(path)
		if !programExtensions[ext] {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if matcher != nil && matcher.MatchesPath(rel) {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read fragment file %s: %w", path, err)
		}

		key := strings.TrimSuffix(rel, ext)
		if err := store.SetFragment(key, string(content), pathCategories(rel)); err != nil {
			return fmt.Errorf("failed to register fragment %q: %w", key, err)
		}
		count++
		return nil
	})
	if walkErr != nil {
		return 0, fmt.Errorf("failed to load fragment directory %s: %w", dir, walkErr)
	}
	return count, nil
}

// pathCategories returns the directory segments of a slash-separated
// relative path. A file at the directory root has no categories.
func pathCategories(rel string) []string {
	segments := strings.Split(rel, "/")
	if len(segments) < 2 {
		return nil
	}
	return segments[: len(segments)-1 : len(segments)-1]
}

// loadIgnoreFile compiles the ignore file at path. A missing file means
// nothing is ignored.
func loadIgnoreFile(path string) (*ignore.GitIgnore, error) {
	matcher, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", IgnoreFileName, err)
	}
	return matcher, nil
}
