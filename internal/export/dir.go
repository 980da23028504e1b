package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// DirDestination writes daily exports into a local directory.
type DirDestination struct {
	dir string
}

// NewDirDestination creates a directory destination. The directory is
// created on first write if it does not exist.
func NewDirDestination(dir string) *DirDestination {
	return &DirDestination{dir: dir}
}

func (d *DirDestination) Name() string {
	return d.dir
}

// Write replaces dir/name atomically via a temp file and rename.
func (d *DirDestination) Write(ctx context.Context, name string, data []byte) error {
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(d.dir, "."+name+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close file: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(d.dir, name)); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
