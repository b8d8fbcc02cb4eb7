// Package fsutil resolves user-supplied configuration paths into concrete
// file lists for the pipeline loader.
package fsutil

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FindFilesByExtension resolves a pipeline path into the definition files it
// names. A directory is walked recursively and every file with the given
// extension is collected in lexical walk order; a path naming a single file
// is returned as-is when its name matches the extension and rejected
// otherwise, so a typo'd file argument fails loudly instead of loading an
// empty pipeline.
func FindFilesByExtension(root string, extension string) ([]string, error) {
	if extension == "" {
		return nil, fmt.Errorf("extension must not be empty")
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("resolving pipeline path %s: %w", root, err)
	}
	if !info.IsDir() {
		if !strings.HasSuffix(info.Name(), extension) {
			return nil, fmt.Errorf("pipeline file %s does not have extension %q", root, extension)
		}
		return []string{root}, nil
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), extension) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking pipeline path %s: %w", root, err)
	}
	return files, nil
}
