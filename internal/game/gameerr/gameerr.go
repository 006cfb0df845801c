// Package gameerr classifies game-layer failures into the small set of kinds
// the dispatcher maps to protocol error codes. Callers branch on Kind via
// errors.Is against the exported sentinels, never on message text.
package gameerr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindNotFound Kind = iota + 1
	KindNoSpace
	KindInvalidOperation
	KindUnimplemented
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindNoSpace:
		return "no space"
	case KindInvalidOperation:
		return "invalid operation"
	case KindUnimplemented:
		return "unimplemented"
	}
	return "unknown"
}

// Sentinels for errors.Is. Every Error matches exactly one of them.
var (
	ErrNotFound         = &Error{kind: KindNotFound, msg: "not found"}
	ErrNoSpace          = &Error{kind: KindNoSpace, msg: "no space"}
	ErrInvalidOperation = &Error{kind: KindInvalidOperation, msg: "invalid operation"}
	ErrUnimplemented    = &Error{kind: KindUnimplemented, msg: "unimplemented"}
)

type Error struct {
	kind Kind
	msg  string
}

func (e *Error) Error() string { return e.msg }

func (e *Error) Kind() Kind { return e.kind }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.kind == e.kind
}

func NotFound(format string, args ...any) error {
	return &Error{kind: KindNotFound, msg: fmt.Sprintf(format, args...)}
}

func NoSpace(format string, args ...any) error {
	return &Error{kind: KindNoSpace, msg: fmt.Sprintf(format, args...)}
}

func InvalidOperation(format string, args ...any) error {
	return &Error{kind: KindInvalidOperation, msg: fmt.Sprintf(format, args...)}
}

func Unimplemented(format string, args ...any) error {
	return &Error{kind: KindUnimplemented, msg: fmt.Sprintf(format, args...)}
}

// KindOf reports the kind of err, or 0 when err carries no game kind.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.kind
	}
	return 0
}
