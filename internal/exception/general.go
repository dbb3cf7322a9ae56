package exception

import "errors"

// Error kinds. Every concrete error in the module wraps exactly one of these.
var (
	ErrTransientIO     = errors.New("transient io failure")
	ErrOrderRejected   = errors.New("order rejected")
	ErrConfiguration   = errors.New("configuration error")
	ErrPersistence     = errors.New("persistence failure")
	ErrInvalidArgument = errors.New("invalid argument")
)

type Kind string

const (
	KindTransientIO   Kind = "transient_io"
	KindOrderRejected Kind = "order_rejected"
	KindConfiguration Kind = "configuration"
	KindPersistence   Kind = "persistence"
	KindUnknown       Kind = "unknown"
)

func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrOrderRejected):
		return KindOrderRejected
	case errors.Is(err, ErrTransientIO):
		return KindTransientIO
	case errors.Is(err, ErrConfiguration), errors.Is(err, ErrInvalidArgument):
		return KindConfiguration
	case errors.Is(err, ErrPersistence):
		return KindPersistence
	default:
		return KindUnknown
	}
}

// kindError lets a sentinel match both itself and its kind with errors.Is.
type kindError struct {
	msg  string
	kind error
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

func newKind(kind error, msg string) error {
	return &kindError{msg: msg, kind: kind}
}
