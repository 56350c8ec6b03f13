package manifest

import (
	"errors"
	"fmt"
)

// Kind identifies which stage of a fetch failed.
type Kind int

// Fetch failure kinds. The set is closed.
const (
	KindAuthentication Kind = iota + 1
	KindConnection
	KindRead
	KindFormat
)

// Sentinels matched by errors.Is against an *Error of the same kind.
var (
	ErrAuthentication = errors.New("authentication error")
	ErrConnection     = errors.New("connection error")
	ErrRead           = errors.New("read error")
	ErrFormat         = errors.New("format error")
)

func (k Kind) String() string {
	switch k {
	case KindAuthentication:
		return "authentication"
	case KindConnection:
		return "connection"
	case KindRead:
		return "read"
	case KindFormat:
		return "format"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindAuthentication:
		return ErrAuthentication
	case KindConnection:
		return ErrConnection
	case KindRead:
		return ErrRead
	case KindFormat:
		return ErrFormat
	default:
		return nil
	}
}

// Error is returned by Fetch. Its message is meant for end users; the provider
// failure that caused it is kept as Err.
type Error struct {
	Kind   Kind
	Object string
	Err    error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindAuthentication:
		return "Invalid credentials. Please provide valid principal authentication or storage connection string"
	case KindConnection:
		return "Invalid connection details. Please check your host, container, and blob names."
	case KindRead:
		return fmt.Sprintf("Unable to read the data contained in the object `%s`", e.Object)
	case KindFormat:
		return fmt.Sprintf("The object `%s` does not contain valid JSON.", e.Object)
	default:
		return fmt.Sprintf("fetch the object `%s`", e.Object)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel of e's kind.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// KindOf returns the kind of a fetch error, or zero when err does not come from Fetch.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	return 0
}
