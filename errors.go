package orientgo

import (
	"errors"

	"github.com/mickamy/orientgo/proto"
)

// errNoRID is returned when an operation that requires an existing RID
// (e.g. RecordUpdate) is given a document whose RID is nil. RecordLoad sets
// a document's RID; RecordCreate returns the new RID without storing it on
// the document.
var errNoRID = errors.New("orientgo: document has no RID")

// Error kinds surfaced to callers (spec.md §7). Most are aliases of the
// proto package's sentinels/types so callers only need to import one
// package's error values.
var (
	ErrClosed    = proto.ErrClosed
	ErrTimeout   = proto.ErrTimeout
	ErrWrongScope = proto.ErrWrongScope
)

type (
	UnsupportedProtocolError = proto.UnsupportedProtocolError
	AuthError                = proto.AuthError
	ServerError               = proto.ServerError
	MalformedResponseError    = proto.MalformedResponseError
	TransportError            = proto.TransportError
)
