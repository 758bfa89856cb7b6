//go:build windows

package ops

import "os"

// openFileNoFollow opens an export file. Windows has no O_NOFOLLOW;
// ValidateExportPath rejects symlinks before this point.
func openFileNoFollow(path string, flag int, perm os.FileMode) (*os.File, error) {
	return os.OpenFile(path, flag, perm)
}
