package mcpool

import "sync/atomic"

type counters struct {
	dialed    atomic.Int64
	reused    atomic.Int64
	discarded atomic.Int64
	closed    atomic.Int64
}

// Stats is a point-in-time view of the pool. Dialed - Closed is the number
// of transport sessions still open, and is never below Idle + InUse.
type Stats struct {
	Dialed    int64 // connections created by the dialer
	Reused    int64 // acquires served from the idle queue
	Discarded int64 // connections dropped as unhealthy or surplus
	Closed    int64 // connections whose transport was closed
	Idle      int
	InUse     int
}

func (s Stats) Size() int {
	return s.Idle + s.InUse
}
