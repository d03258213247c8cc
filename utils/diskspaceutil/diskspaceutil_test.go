package diskspaceutil_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kraken-torrent/diskd/utils/diskspaceutil"
)

func TestFileSystemUtil(t *testing.T) {
	require := require.New(t)
	fsUtil, err := diskspaceutil.FileSystemUtil("/")
	require.NoError(err)

	require.Equal(true, fsUtil >= 0)
	require.Equal(true, fsUtil < 100)
}

func TestFileSystemSize(t *testing.T) {
	require := require.New(t)
	fsSize, err := diskspaceutil.FileSystemSize("/")
	require.NoError(err)

	require.Equal(true, fsSize > 0)
}

func TestFreeSpace(t *testing.T) {
	require := require.New(t)
	free, err := diskspaceutil.FreeSpace("/")
	require.NoError(err)

	require.Equal(true, free > 0)
}
