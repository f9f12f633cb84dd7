package mcpool

import "errors"

var (
	ErrInvalidDialer   = errors.New("invalid dialer settings")
	ErrInvalidAddress  = errors.New("invalid server address")
	ErrInvalidTimeout  = errors.New("invalid dial timeout")
	ErrCapacitySetting = errors.New("invalid capacity settings")
	ErrConnNil         = errors.New("connection is nil. rejecting")
	ErrNotCheckedOut   = errors.New("connection is not checked out from this pool")
	ErrPoolClosed      = errors.New("pool is closed")
)
