package store

import (
	"io"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
)

// writeAtomic streams the new file into a pending sibling and renames it over
// path, so readers see either the old dataset or the new one. A new file gets
// 0644; an existing file keeps its mode.
func writeAtomic(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	pf, err := renameio.NewPendingFile(path,
		renameio.WithTempDir(dir),
		renameio.WithPermissions(0o644),
		renameio.WithExistingPermissions(),
	)
	if err != nil {
		return err
	}
	defer pf.Cleanup()

	if err := write(pf); err != nil {
		return err
	}
	return pf.CloseAtomicallyReplace()
}
