//go:build unix

package diskio

import (
	"errors"
	"os"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/kraken-torrent/diskd/utils/diskspaceutil"
)

// fallocFlags is a fallback ladder of flag combinations tried in order;
// once one combination returns ENOTSUP/EOPNOTSUPP for this process, later
// calls skip straight past it.
var (
	fallocFlags      = [...]uint32{0, unix.FALLOC_FL_KEEP_SIZE}
	fallocFlagsIndex int32
)

// fallocate preallocates size bytes for f, retrying interrupted syscalls and
// falling back through fallocFlags when a combination is unsupported by the
// underlying filesystem.
func fallocate(f *os.File, size int64) error {
	index := atomic.LoadInt32(&fallocFlagsIndex)
	for {
		if int(index) >= len(fallocFlags) {
			return errUnsupported
		}
		err := unix.Fallocate(int(f.Fd()), fallocFlags[index], 0, size)
		if err == unix.EINTR {
			continue
		}
		if err == unix.ENOTSUP || err == unix.EOPNOTSUPP {
			index++
			atomic.StoreInt32(&fallocFlagsIndex, index)
			continue
		}
		return err
	}
}

func isNoSpace(err error) bool {
	return errors.Is(err, unix.ENOSPC)
}

func mmapFile(f *os.File, size int64) ([]byte, error) {
	return unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
}

func munmap(b []byte) error {
	return unix.Munmap(b)
}

func statfsFreeSpace(path string) (uint64, error) {
	bytes, err := diskspaceutil.FreeSpace(path)
	if err != nil {
		return 0, newStatErr(err)
	}
	return bytes, nil
}
