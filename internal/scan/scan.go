// Package scan locates input text files for a batch run.
package scan

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FindTextFiles returns every .txt file reachable from path. A file path
// returns itself when it carries the extension, a directory is walked
// recursively. The extension check ignores case.
func FindTextFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		if isTextFile(path) {
			return []string{path}, nil
		}
		return nil, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && isTextFile(p) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func isTextFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".txt")
}
