package mcpool

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
)

const network = "tcp"

var (
	errConnEOF      = errors.New("reader reached end of stream")
	errWriterClosed = errors.New("writer is closed")
)

// Dialer is the transport-connect capability the pool consumes. *net.Dialer
// satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

type DialerFunc func(ctx context.Context, network, address string) (net.Conn, error)

func (f DialerFunc) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	return f(ctx, network, address)
}

type connHandler struct {
	dialer  Dialer
	address string
	timeout time.Duration
}

func newConnHandler(config *Config) *connHandler {
	return &connHandler{
		dialer:  config.Dialer,
		address: config.Address(),
		timeout: config.DialTimeout,
	}
}

func (h *connHandler) Validate() error {
	if h.dialer == nil {
		return ErrInvalidDialer
	}
	return nil
}

func (h *connHandler) create(ctx context.Context) (*Conn, error) {
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}
	nc, err := h.dialer.DialContext(ctx, network, h.address)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", h.address, err)
	}
	if nc == nil {
		return nil, fmt.Errorf("dial %s: %w", h.address, ErrConnNil)
	}
	return newConn(nc), nil
}

func (h *connHandler) close(c *Conn) error {
	c.Reader.FeedEOF()
	return c.Writer.Close()
}

// check reports why c can no longer be handed out, or nil if it is healthy.
// Nothing is written to or read from the socket.
func (h *connHandler) check(c *Conn) error {
	if c.Reader.AtEOF() {
		return errConnEOF
	}
	if err := c.Reader.Err(); err != nil {
		return err
	}
	if c.Writer.Closed() {
		return errWriterClosed
	}
	return c.Writer.Err()
}

func joinHostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
