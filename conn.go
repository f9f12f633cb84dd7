package mcpool

import (
	"bufio"
	"errors"
	"io"
	"net"
	"sync"
	"time"
)

// Conn pairs a Reader and a Writer bound to the same transport session.
// A Conn belongs to exactly one caller between Acquire and Release.
type Conn struct {
	Reader *Reader
	Writer *Writer

	nc net.Conn
}

func newConn(nc net.Conn) *Conn {
	return &Conn{
		Reader: &Reader{br: bufio.NewReader(nc)},
		Writer: &Writer{bw: bufio.NewWriter(nc), nc: nc},
		nc:     nc,
	}
}

func (c *Conn) RemoteAddr() net.Addr {
	return c.nc.RemoteAddr()
}

func (c *Conn) SetDeadline(t time.Time) error {
	return c.nc.SetDeadline(t)
}

// Reader is the readable half of a Conn. It remembers whether the stream has
// reached EOF and the last non-EOF error any read returned.
type Reader struct {
	br *bufio.Reader

	mu  sync.Mutex
	eof bool
	err error
}

func (r *Reader) Read(p []byte) (int, error) {
	n, err := r.br.Read(p)
	r.record(err)
	return n, err
}

// ReadLine reads up to and including the next '\n'.
func (r *Reader) ReadLine() ([]byte, error) {
	line, err := r.br.ReadBytes('\n')
	r.record(err)
	return line, err
}

func (r *Reader) Peek(n int) ([]byte, error) {
	b, err := r.br.Peek(n)
	if errors.Is(err, bufio.ErrBufferFull) {
		return b, err
	}
	r.record(err)
	return b, err
}

// Buffered returns the number of bytes already read from the socket but not
// yet consumed.
func (r *Reader) Buffered() int {
	return r.br.Buffered()
}

func (r *Reader) AtEOF() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.eof
}

func (r *Reader) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// FeedEOF marks the stream as finished. Later health checks treat the
// connection as unusable.
func (r *Reader) FeedEOF() {
	r.mu.Lock()
	r.eof = true
	r.mu.Unlock()
}

func (r *Reader) record(err error) {
	if err == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		r.eof = true
		return
	}
	r.err = err
}

// Writer is the writable half of a Conn. Writes are buffered until Flush.
type Writer struct {
	bw *bufio.Writer
	nc net.Conn

	mu     sync.Mutex
	closed bool
	err    error
}

func (w *Writer) Write(p []byte) (int, error) {
	n, err := w.bw.Write(p)
	w.record(err)
	return n, err
}

func (w *Writer) WriteString(s string) (int, error) {
	n, err := w.bw.WriteString(s)
	w.record(err)
	return n, err
}

func (w *Writer) Flush() error {
	err := w.bw.Flush()
	w.record(err)
	return err
}

// Close closes the underlying transport session. It is safe to call more
// than once.
func (w *Writer) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()
	return w.nc.Close()
}

func (w *Writer) Closed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

func (w *Writer) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

func (w *Writer) record(err error) {
	if err == nil {
		return
	}
	w.mu.Lock()
	w.err = err
	w.mu.Unlock()
}
