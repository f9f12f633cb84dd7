package mcpool

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// MemcachePool keeps reusable connections to a single memcache server.
//
// Idle connections wait in a FIFO of capacity MaxSize; the longest idle one is
// handed out first. MaxSize bounds only the idle queue: Acquire dials past it
// when every connection is checked out, and Release closes whatever does not
// fit back. Set MaxActive to make the bound hard.
//
// A connection is unhealthy when its Reader saw EOF or recorded an error, and
// also when its Writer was closed or recorded a write error. Unhealthy
// connections are closed instead of reused.
type MemcachePool struct {
	*Config
	handler *connHandler
	logger  *slog.Logger

	mu        sync.Mutex
	idleConns chan *Conn
	inUse     map[*Conn]struct{}

	active  *semaphore.Weighted
	closing context.Context // canceled by Close
	cancel  context.CancelFunc
	stats   counters
	closed  int32 // 1 means closed, 0 means open
}

// NewPool builds a pool for host:port from DefaultConfig and options.
func NewPool(host string, port int, options ...Option) (*MemcachePool, error) {
	config := LoadConfig(append([]Option{WithAddress(host, port)}, options...)...)
	return NewPoolWithConfig(config)
}

// NewPoolWithConfig builds a pool from a complete Config. No connection is
// opened until the first Acquire.
func NewPoolWithConfig(config *Config) (*MemcachePool, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	handler := newConnHandler(config)
	if err := handler.Validate(); err != nil {
		return nil, err
	}

	logger := config.Logger
	if logger == nil {
		logger = discardLogger
	}

	pool := &MemcachePool{
		Config:    config,
		handler:   handler,
		logger:    logger.With(slog.String("addr", config.Address())),
		idleConns: make(chan *Conn, config.MaxSize),
		inUse:     make(map[*Conn]struct{}),
	}
	pool.closing, pool.cancel = context.WithCancel(context.Background())
	if config.MaxActive > 0 {
		pool.active = semaphore.NewWeighted(int64(config.MaxActive))
	}
	return pool, nil
}

// Acquire returns a healthy connection owned by the caller until Release.
//
// The first call fills the pool up to MinSize. Idle connections found
// unhealthy are closed and skipped; when none is left a new one is dialed.
// Dial errors are returned as is, without retry. A connection whose dial
// finishes after ctx is done goes to the idle queue, not to the caller.
func (pool *MemcachePool) Acquire(ctx context.Context) (*Conn, error) {
	if pool.IsClosed() {
		return nil, ErrPoolClosed
	}

	if err := pool.warmUp(ctx); err != nil {
		return nil, err
	}

	if pool.active != nil {
		if err := pool.acquireSlot(ctx); err != nil {
			return nil, err
		}
	}

	conn, err := pool.get(ctx)
	if err != nil {
		if pool.active != nil {
			pool.active.Release(1)
		}
		return nil, err
	}
	return conn, nil
}

// acquireSlot waits for a MaxActive slot. Close wakes every waiter.
func (pool *MemcachePool) acquireSlot(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(pool.closing, cancel)
	defer stop()

	if err := pool.active.Acquire(ctx, 1); err != nil {
		if pool.IsClosed() {
			return ErrPoolClosed
		}
		return err
	}
	if pool.IsClosed() {
		pool.active.Release(1)
		return ErrPoolClosed
	}
	return nil
}

func (pool *MemcachePool) warmUp(ctx context.Context) error {
	for pool.Size() < pool.MinSize {
		if pool.IsClosed() {
			return ErrPoolClosed
		}
		conn, err := pool.createConn(ctx)
		if err != nil {
			return err
		}
		if !pool.putIdle(conn) {
			// another caller filled the queue meanwhile
			pool.discard(conn, "idle queue full during warm-up")
			return nil
		}
	}
	return nil
}

func (pool *MemcachePool) get(ctx context.Context) (*Conn, error) {
	conn, stale, err := pool.takeIdle()
	for _, c := range stale {
		pool.discard(c, "stale idle connection", slog.Any("reason", pool.handler.check(c)))
	}
	if err != nil {
		return nil, err
	}
	if conn != nil {
		pool.stats.reused.Add(1)
		return conn, nil
	}

	conn, err = pool.createConn(ctx)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		if !pool.putIdle(conn) {
			pool.discard(conn, "idle queue full after canceled acquire")
		}
		return nil, err
	}
	if err := pool.checkout(conn); err != nil {
		return nil, err
	}
	return conn, nil
}

// takeIdle moves the first healthy idle connection into the in-use set. The
// unhealthy ones popped on the way are returned for closing outside the lock.
func (pool *MemcachePool) takeIdle() (*Conn, []*Conn, error) {
	pool.mu.Lock()
	defer pool.mu.Unlock()
	if pool.IsClosed() {
		return nil, nil, ErrPoolClosed
	}
	var stale []*Conn
	for {
		select {
		case conn := <-pool.idleConns:
			if pool.handler.check(conn) != nil {
				stale = append(stale, conn)
				continue
			}
			pool.inUse[conn] = struct{}{}
			return conn, stale, nil
		default:
			return nil, stale, nil
		}
	}
}

func (pool *MemcachePool) createConn(ctx context.Context) (*Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	conn, err := pool.handler.create(ctx)
	if err != nil {
		pool.logger.Debug("dial failed", slog.Any("error", err))
		return nil, err
	}
	pool.stats.dialed.Add(1)
	pool.logger.Debug("dialed new connection")
	return conn, nil
}

// checkout records a freshly dialed conn as held by a caller.
func (pool *MemcachePool) checkout(conn *Conn) error {
	pool.mu.Lock()
	if pool.IsClosed() {
		pool.mu.Unlock()
		pool.discard(conn, "pool closed")
		return ErrPoolClosed
	}
	pool.inUse[conn] = struct{}{}
	pool.mu.Unlock()
	return nil
}

// putIdle enqueues conn without blocking and reports whether it fit.
func (pool *MemcachePool) putIdle(conn *Conn) bool {
	pool.mu.Lock()
	defer pool.mu.Unlock()
	if pool.IsClosed() {
		return false
	}
	select {
	case pool.idleConns <- conn:
		return true
	default:
		return false
	}
}

// Release hands conn back. Unhealthy connections, and healthy ones that do
// not fit in the idle queue, are closed. Release never blocks.
func (pool *MemcachePool) Release(conn *Conn) error {
	if conn == nil {
		return ErrConnNil
	}

	pool.mu.Lock()
	if _, ok := pool.inUse[conn]; !ok {
		pool.mu.Unlock()
		return ErrNotCheckedOut
	}
	delete(pool.inUse, conn)
	pool.mu.Unlock()

	if pool.active != nil {
		defer pool.active.Release(1)
	}

	if err := pool.handler.check(conn); err != nil {
		pool.discard(conn, "unhealthy connection released", slog.Any("reason", err))
		return nil
	}
	if !pool.putIdle(conn) {
		pool.discard(conn, "idle queue full or pool closed")
	}
	return nil
}

// Clear closes every idle connection. Checked-out connections are left to
// their holders.
func (pool *MemcachePool) Clear() {
	pool.mu.Lock()
	conns := make([]*Conn, 0, len(pool.idleConns))
	for len(pool.idleConns) > 0 {
		conns = append(conns, <-pool.idleConns)
	}
	pool.mu.Unlock()

	for _, conn := range conns {
		pool.closeConn(conn)
	}
	if len(conns) > 0 {
		pool.logger.Debug("cleared idle connections", slog.Int("count", len(conns)))
	}
}

// Size returns checked-out plus idle connections. The value is stale as soon
// as it is returned.
func (pool *MemcachePool) Size() int {
	pool.mu.Lock()
	defer pool.mu.Unlock()
	return len(pool.inUse) + len(pool.idleConns)
}

// Len returns the number of idle connections.
func (pool *MemcachePool) Len() int {
	pool.mu.Lock()
	defer pool.mu.Unlock()
	return len(pool.idleConns)
}

// With acquires a connection, runs fn with it and releases it whatever fn
// returns.
func (pool *MemcachePool) With(ctx context.Context, fn func(conn *Conn) error) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := pool.Release(conn); err != nil {
			pool.logger.Warn("release failed", slog.Any("error", err))
		}
	}()
	return fn(conn)
}

func (pool *MemcachePool) Stats() Stats {
	pool.mu.Lock()
	idle, inUse := len(pool.idleConns), len(pool.inUse)
	pool.mu.Unlock()
	return Stats{
		Dialed:    pool.stats.dialed.Load(),
		Reused:    pool.stats.reused.Load(),
		Discarded: pool.stats.discarded.Load(),
		Closed:    pool.stats.closed.Load(),
		Idle:      idle,
		InUse:     inUse,
	}
}

func (pool *MemcachePool) IsClosed() bool {
	return atomic.LoadInt32(&pool.closed) == 1
}

// Close clears the pool and refuses further Acquire calls, including those
// waiting for a MaxActive slot. Connections still checked out are closed when
// they are released.
func (pool *MemcachePool) Close() {
	if !atomic.CompareAndSwapInt32(&pool.closed, 0, 1) {
		return
	}
	pool.cancel()
	pool.Clear()
}

func (pool *MemcachePool) discard(conn *Conn, msg string, attrs ...any) {
	pool.stats.discarded.Add(1)
	pool.logger.Debug(msg, attrs...)
	pool.closeConn(conn)
}

func (pool *MemcachePool) closeConn(conn *Conn) {
	if err := pool.handler.close(conn); err != nil {
		pool.logger.Warn("close connection failed", slog.Any("error", err))
	}
	pool.stats.closed.Add(1)
}

func (pool *MemcachePool) String() string {
	return fmt.Sprintf("MemcachePool(%s, min=%d, max=%d)", pool.Address(), pool.MinSize, pool.MaxSize)
}
