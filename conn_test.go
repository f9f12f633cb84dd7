package mcpool

import (
	"errors"
	"io"
	"net"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPipeConn(t *testing.T) (*Conn, net.Conn) {
	t.Helper()
	client, server := net.Pipe()
	t.Cleanup(func() {
		_ = client.Close()
		_ = server.Close()
	})
	return newConn(client), server
}

func TestReaderRecordsEOF(t *testing.T) {
	conn, server := newPipeConn(t)

	go func() {
		_, _ = server.Write([]byte("END\r\n"))
		_ = server.Close()
	}()

	line, err := conn.Reader.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "END\r\n", string(line))
	assert.False(t, conn.Reader.AtEOF())

	_, err = conn.Reader.ReadLine()
	require.ErrorIs(t, err, io.EOF)
	assert.True(t, conn.Reader.AtEOF())
	assert.NoError(t, conn.Reader.Err())
}

func TestReaderRecordsError(t *testing.T) {
	conn, _ := newPipeConn(t)

	require.NoError(t, conn.SetDeadline(time.Now().Add(-time.Second)))
	_, err := conn.Reader.Peek(1)
	require.Error(t, err)

	assert.False(t, conn.Reader.AtEOF())
	assert.True(t, errors.Is(conn.Reader.Err(), os.ErrDeadlineExceeded))
}

func TestReaderFeedEOF(t *testing.T) {
	conn, _ := newPipeConn(t)
	h := &connHandler{}

	require.NoError(t, h.check(conn))
	conn.Reader.FeedEOF()
	assert.True(t, conn.Reader.AtEOF())
	assert.ErrorIs(t, h.check(conn), errConnEOF)
}

func TestWriterClose(t *testing.T) {
	conn, _ := newPipeConn(t)
	h := &connHandler{}

	require.NoError(t, conn.Writer.Close())
	require.NoError(t, conn.Writer.Close(), "second close is a no-op")
	assert.True(t, conn.Writer.Closed())
	assert.ErrorIs(t, h.check(conn), errWriterClosed)
}

func TestWriterRecordsError(t *testing.T) {
	conn, server := newPipeConn(t)
	require.NoError(t, server.Close())

	_, err := conn.Writer.Write([]byte("get foo\r\n"))
	require.NoError(t, err, "bytes stay buffered until Flush")
	require.Error(t, conn.Writer.Flush())
	assert.Error(t, conn.Writer.Err())
	assert.False(t, conn.Writer.Closed())
}

func TestHandlerClose(t *testing.T) {
	conn, _ := newPipeConn(t)
	h := &connHandler{}

	require.NoError(t, h.close(conn))
	assert.True(t, conn.Reader.AtEOF())
	assert.True(t, conn.Writer.Closed())
}
