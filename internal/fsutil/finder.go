// Package fsutil provides file system utility functions.
package fsutil

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// NetworkExtension is the suffix of network definition files.
const NetworkExtension = ".hcl"

// FindFilesByExtension recursively searches root for files ending with
// extension and returns their paths in lexical order. Directories whose name
// starts with a dot are skipped.
func FindFilesByExtension(root string, extension string) ([]string, error) {
	if extension == "" {
		panic("extension must not be empty")
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(d.Name(), extension) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

// FindNetworkFiles returns every network definition file under root.
func FindNetworkFiles(root string) ([]string, error) {
	return FindFilesByExtension(root, NetworkExtension)
}
