package diskio

import (
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func header(r *DownloadRequest) string {
	return string(r.buf[:r.bufMax])
}

func TestNewDownloadRequestUnrangedHeader(t *testing.T) {
	req := NewDownloadRequest(nil, "/torrents/movie.mp4", nil, false, 1024)
	h := header(req)
	require.True(t, strings.HasPrefix(h, "HTTP/1.1 200 OK\r\n"))
	require.Contains(t, h, "Content-Length: 1024")
	require.Contains(t, h, `Content-Disposition: attachment; filename="movie.mp4"`)
	require.False(t, req.Ranged)
}

func TestNewDownloadRequestSingleRangeHeader(t *testing.T) {
	ranges := []HTTPRange{{Start: 100, Length: 50}}
	req := NewDownloadRequest(nil, "/torrents/movie.mp4", ranges, true, 1024)
	h := header(req)
	require.True(t, strings.HasPrefix(h, "HTTP/1.1 206 Partial Content\r\n"))
	require.Contains(t, h, "Content-Range: bytes 100-149/1024")
	require.Contains(t, h, "Content-Length: 50")
	require.False(t, req.Ranged, "single range never uses the multipart encoding")
	require.Len(t, req.ranges, 1)
}

func TestNewDownloadRequestMultipartHeader(t *testing.T) {
	ranges := []HTTPRange{{Start: 0, Length: 10}, {Start: 100, Length: 10}}
	req := NewDownloadRequest(nil, "/torrents/movie.mp4", ranges, true, 1024)
	h := header(req)
	require.True(t, strings.HasPrefix(h, "HTTP/1.1 206 Partial Content\r\n"))
	require.Contains(t, h, "multipart/byteranges; boundary="+boundary)
	require.True(t, req.Ranged)
	// Sentinel zero-length range prepended ahead of the two real ranges.
	require.Len(t, req.ranges, 3)
	require.Equal(t, int64(0), req.ranges[0].Length)
}

func TestDownloadRequestConcurrent(t *testing.T) {
	var req DownloadRequest
	require.True(t, req.Concurrent())
}

// socketPair returns two ends of a real loopback TCP connection, since
// nbio.Socket requires a SyscallConn a net.Pipe cannot provide.
func socketPair(t *testing.T) (net.Conn, net.Conn) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	var server net.Conn
	accepted := make(chan struct{})
	go func() {
		server, _ = ln.Accept()
		close(accepted)
	}()

	client, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	<-accepted
	require.NotNil(t, server)
	return client, server
}

func TestDownloadRequestExecuteWritesUnrangedHeader(t *testing.T) {
	client, server := socketPair(t)
	defer client.Close()
	defer server.Close()

	e, cleanup := newTestExecutor(t)
	defer cleanup()

	req := NewDownloadRequest(server, "missing-file", nil, false, 0)
	result, err := req.execute(e)
	require.NoError(t, err)
	require.True(t, result.IsDone())

	buf := make([]byte, 512)
	n, err := client.Read(buf)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(buf[:n]), "HTTP/1.1 200 OK\r\n"))
}
