package proto

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mickamy/orientgo/wire"
)

// ErrClosed is returned to every queued caller when the session has no live
// socket (spec.md §7, "Closed").
var ErrClosed = errors.New("proto: connection closed")

// ErrTimeout is returned when a call's deadline elapses before its response
// arrives; the pending slot is drained, not removed (spec.md §4.4,
// "Cancellation and timeouts").
var ErrTimeout = errors.New("proto: call timed out")

// ErrWrongScope is returned synchronously, without touching the wire, when
// an operation is invoked against a session of the wrong scope.
var ErrWrongScope = errors.New("proto: operation not permitted in current session scope")

// UnsupportedProtocolError is returned when the server's handshake protocol
// number is below the configured minimum.
type UnsupportedProtocolError struct {
	Server  int16
	Minimum int16
}

func (e *UnsupportedProtocolError) Error() string {
	return fmt.Sprintf("proto: server protocol %d below configured minimum %d", e.Server, e.Minimum)
}

// AuthError reports a handshake rejected by the server.
type AuthError struct {
	Class   string
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("proto: auth failed: %s: %s", e.Class, e.Message)
}

// ServerError reports an operation that reached the server and came back
// with status 1, carrying one or more (class, message) pairs (spec.md §4.3,
// "Response framing").
type ServerError struct {
	Errors []ServerErrorEntry
}

type ServerErrorEntry struct {
	Class   string
	Message string
}

func (e *ServerError) Error() string {
	if len(e.Errors) == 0 {
		return "proto: server error"
	}
	parts := make([]string, len(e.Errors))
	for i, ent := range e.Errors {
		parts[i] = fmt.Sprintf("%s: %s", ent.Class, ent.Message)
	}
	return "proto: server error: " + strings.Join(parts, "; ")
}

// MalformedResponseError reports bytes that could not be parsed against an
// operation's response grammar.
type MalformedResponseError struct {
	Op  Op
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("proto: malformed response for op %d: %v", e.Op, e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// TransportError wraps an underlying I/O failure. A TransportError always
// disconnects the session (spec.md §7, "Propagation").
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("proto: transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// decodeServerError parses the (class, message)* zero-terminated sequence
// that follows a status-1 response.
func decodeServerError(b []byte) (*ServerError, []byte, error) {
	var entries []ServerErrorEntry
	for {
		more, rest, err := wire.DecodeBool(b)
		if err != nil {
			return nil, b, err
		}
		b = rest
		if !more {
			break
		}
		class, rest, err := wire.DecodeString(b)
		if err != nil {
			return nil, b, err
		}
		b = rest
		msg, rest, err := wire.DecodeString(b)
		if err != nil {
			return nil, b, err
		}
		b = rest
		entries = append(entries, ServerErrorEntry{Class: class, Message: msg})
	}

	// An optional serialized exception blob (a length-prefixed byte string)
	// may follow; present but not interpreted by this core.
	if len(b) > 0 {
		_, rest, err := wire.DecodeBytes(b)
		if err == nil {
			b = rest
		}
	}

	return &ServerError{Errors: entries}, b, nil
}
