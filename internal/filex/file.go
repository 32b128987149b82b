package filex

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnsureParentDir creates the directory a file path lives in, if it does
// not exist yet, and returns the cleaned directory path.
func EnsureParentDir(path string) (string, error) {
	dir := filepath.Dir(filepath.Clean(path))

	if err := os.MkdirAll(dir, 0o770); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}

	return dir, nil
}
