// Package flowerr defines the error taxonomy shared by the network, operator,
// worker pool and scheduler layers.
//
// Every error produced by the engine is either one of the sentinel kinds below
// or an *Error wrapping one of them, so callers can classify failures with
// errors.Is regardless of how much context was attached on the way up.
package flowerr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidNode means a node index is outside the graph.
	ErrInvalidNode = errors.New("invalid node")
	// ErrInvalidPinAssignment means a port index or port type does not match
	// the operator's declared signature.
	ErrInvalidPinAssignment = errors.New("invalid pin assignment")
	// ErrResourceExhaustion means a bounded channel could not accept a submission.
	ErrResourceExhaustion = errors.New("resource exhaustion")
	// ErrDuplicateWiring means an input slot was wired twice.
	ErrDuplicateWiring = errors.New("duplicate wiring")
	// ErrCycle means the edges would create a cyclic dependency.
	ErrCycle = errors.New("cycle detected")
	// ErrOperator wraps a failure raised by an operator's Execute.
	ErrOperator = errors.New("operator failed")
	// ErrDeadlock means the scheduler ran out of ready work before every node finished.
	ErrDeadlock = errors.New("scheduler deadlock")
	// ErrPoolClosed means a task was submitted after Shutdown.
	ErrPoolClosed = errors.New("worker pool is closed")
)

// NoNode and NoPort mark an Error that does not refer to a node or port.
const (
	NoNode = -1
	NoPort = -1
)

// Error attaches node/port context to one of the sentinel kinds.
type Error struct {
	Kind error
	Node int
	Port int
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Node != NoNode {
		fmt.Fprintf(&b, " (node %d", e.Node)
		if e.Port != NoPort {
			fmt.Fprintf(&b, ", port %d", e.Port)
		}
		b.WriteString(")")
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind and the underlying cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// New builds an *Error of the given kind.
func New(kind error, node, port int, format string, args ...any) *Error {
	return &Error{Kind: kind, Node: node, Port: port, Msg: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error of the given kind around cause.
func Wrap(kind error, node int, cause error) *Error {
	return &Error{Kind: kind, Node: node, Port: NoPort, Err: cause}
}

// InvalidPin is shorthand for the most common construction-time error.
func InvalidPin(node, port int, format string, args ...any) *Error {
	return New(ErrInvalidPinAssignment, node, port, format, args...)
}

// NodeOf reports the node index carried by err, if any.
func NodeOf(err error) (int, bool) {
	var fe *Error
	if errors.As(err, &fe) && fe.Node != NoNode {
		return fe.Node, true
	}
	return NoNode, false
}
