package exception

import (
	"errors"
	"fmt"
)

var (
	ErrNoMarketData      = newKind(ErrTransientIO, "order: no market data")
	ErrSymbolUnavailable = newKind(ErrTransientIO, "order: symbol unavailable")
	ErrBrokerUnreachable = newKind(ErrTransientIO, "order: broker unreachable")
	ErrInvalidVolume     = newKind(ErrInvalidArgument, "order: invalid volume")
	ErrPositionNotFound  = errors.New("order: position not found")
)

// OrderRejectedError carries the broker return code of a refused order.
type OrderRejectedError struct {
	Code    int
	Comment string
}

func (e *OrderRejectedError) Error() string {
	if e.Comment == "" {
		return fmt.Sprintf("order rejected (retcode=%d)", e.Code)
	}
	return fmt.Sprintf("order rejected: %s (retcode=%d)", e.Comment, e.Code)
}

func (e *OrderRejectedError) Unwrap() error { return ErrOrderRejected }
