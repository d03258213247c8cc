//go:build !unix

package diskio

import "os"

// fallocate is unavailable on this platform; callers fall back to Truncate.
func fallocate(f *os.File, size int64) error {
	return errUnsupported
}

func isNoSpace(err error) bool {
	return os.IsNotExist(err) == false && err != nil && err.Error() == "no space left on device"
}

// mmapFile is unavailable on this platform; reads fall back to positional I/O.
func mmapFile(f *os.File, size int64) ([]byte, error) {
	return nil, errUnsupported
}

func munmap(b []byte) error {
	return nil
}

func statfsFreeSpace(path string) (uint64, error) {
	return 0, errUnsupported
}
