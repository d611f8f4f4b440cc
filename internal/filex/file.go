package filex

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnsureParentDir creates the directory that will hold path, including
// missing parents, and returns it.
func EnsureParentDir(path string) (string, error) {
	dir := filepath.Dir(path)
	if dir == "." {
		return dir, nil
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}

	return dir, nil
}
