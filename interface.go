package mcpool

import "context"

type Pool interface {
	Acquire(ctx context.Context) (*Conn, error)
	Release(conn *Conn) error
	Clear()
	Size() int
}

var _ Pool = (*MemcachePool)(nil)
