// Package diskspaceutil reports free space and utilization on an arbitrary
// mounted filesystem via statvfs, generalized from a single hardcoded mount
// point to whatever path the caller is interested in (the disk engine's
// configured download directory, in practice).
package diskspaceutil

import "golang.org/x/sys/unix"

// FileSystemUtil returns the percentage of disk space currently in use at
// path, in the range [0, 100].
func FileSystemUtil(path string) (float64, error) {
	var s unix.Statfs_t
	if err := unix.Statfs(path, &s); err != nil {
		return 0, err
	}
	if s.Blocks == 0 {
		return 0, nil
	}
	used := s.Blocks - s.Bfree
	return float64(used) / float64(s.Blocks) * 100, nil
}

// FileSystemSize returns the total size of the filesystem backing path, in
// bytes.
func FileSystemSize(path string) (uint64, error) {
	var s unix.Statfs_t
	if err := unix.Statfs(path, &s); err != nil {
		return 0, err
	}
	return uint64(s.Bsize) * s.Blocks, nil
}

// FreeSpace returns the number of bytes available to an unprivileged user on
// the filesystem backing path (Bsize * Bavail, not Bfree: Bavail excludes
// blocks reserved for root).
func FreeSpace(path string) (uint64, error) {
	var s unix.Statfs_t
	if err := unix.Statfs(path, &s); err != nil {
		return 0, err
	}
	return uint64(s.Bsize) * uint64(s.Bavail), nil
}
