package proto

import (
	"github.com/mickamy/orientgo/wire"
)

// RecordSerializerName is the only record serializer this driver speaks.
const RecordSerializerName = "ORecordSerializerBinary"

// DecodeProtocolVersion reads the two bytes the server writes immediately
// after accepting a TCP connection, before any request is sent (spec.md
// §4.3, "Handshake").
func DecodeProtocolVersion(b []byte) (int16, []byte, error) {
	return wire.DecodeInt16(b)
}

// EncodeConnect builds a server-scope "connect" request (spec.md §4.3).
func EncodeConnect(clientName, driverVersion string, protocolVersion int16, clientID, user, password string) []byte {
	args := []Arg{
		String(clientName),
		String(driverVersion),
		Short(protocolVersion),
		String(clientID),
		String(RecordSerializerName),
		Bool(false),
		String(user),
		String(password),
	}
	return EncodeRequest(OpConnect, -1, args)
}

// DatabaseKind selects the kind of database a db_open targets.
type DatabaseKind string

const (
	DatabaseGraph    DatabaseKind = "graph"
	DatabaseDocument DatabaseKind = "document"
)

// EncodeDBOpen builds a db-scope "db_open" request.
func EncodeDBOpen(clientName, driverVersion string, protocolVersion int16, clientID, dbName string, dbKind DatabaseKind, user, password string) []byte {
	args := []Arg{
		String(clientName),
		String(driverVersion),
		Short(protocolVersion),
		String(clientID),
		String(RecordSerializerName),
		Bool(false),
		String(dbName),
		String(string(dbKind)),
		String(user),
		String(password),
	}
	return EncodeRequest(OpDBOpen, -1, args)
}

// HandshakeResult is the successful payload of either connect or db_open.
type HandshakeResult struct {
	SessionID int32
	Token     []byte
	Clusters  []ClusterInfo // db_open only; empty for connect
	Release   string        // db_open only
}

// ClusterInfo is one entry of the cluster metadata db_open returns. It is
// parsed so the response frame is fully consumed, and handed back to the
// caller, but the core connection state machine does not otherwise use it
// (spec.md §4.3).
type ClusterInfo struct {
	Name string
	ID   int16
}

// DecodeConnectResponse parses a connect response: status || session_id ||
// ... || token.
func DecodeConnectResponse(b []byte) (*HandshakeResult, []byte, error) {
	return decodeHandshakeResponse(b, false)
}

// DecodeDBOpenResponse parses a db_open response: status || session_id ||
// ... || token || cluster-count || (name, id)* || release.
func DecodeDBOpenResponse(b []byte) (*HandshakeResult, []byte, error) {
	return decodeHandshakeResponse(b, true)
}

func decodeHandshakeResponse(b []byte, withClusters bool) (*HandshakeResult, []byte, error) {
	status, sessionID, rest, err := decodeResponseHeader(b)
	if err != nil {
		return nil, b, err
	}
	if status == statusError {
		serr, rest, err := decodeServerError(rest)
		if err != nil {
			return nil, b, err
		}
		return nil, rest, &AuthError{Class: firstClass(serr), Message: serr.Error()}
	}

	token, rest, err := wire.DecodeBytes(rest)
	if err != nil {
		return nil, b, err
	}

	res := &HandshakeResult{SessionID: sessionID, Token: token}
	if !withClusters {
		return res, rest, nil
	}

	count, rest2, err := wire.DecodeInt16(rest)
	if err != nil {
		return nil, b, err
	}
	rest = rest2
	for i := int16(0); i < count; i++ {
		name, r, err := wire.DecodeString(rest)
		if err != nil {
			return nil, b, err
		}
		rest = r
		id, r, err := wire.DecodeInt16(rest)
		if err != nil {
			return nil, b, err
		}
		rest = r
		res.Clusters = append(res.Clusters, ClusterInfo{Name: name, ID: id})
	}

	release, rest3, err := wire.DecodeString(rest)
	if err != nil {
		return nil, b, err
	}
	res.Release = release

	return res, rest3, nil
}

func firstClass(e *ServerError) string {
	if len(e.Errors) == 0 {
		return ""
	}
	return e.Errors[0].Class
}

// decodeResponseHeader reads status (u8) || session_id (i32), the prefix
// common to every response (spec.md §4.3, "Response framing"). Push
// notifications (status == 3) are transparently skipped here: spec.md §4.3
// says they are "out of scope for this core — skip and continue", so every
// caller only ever observes the status/session pair of the next real
// response, never a push frame's own status byte.
func decodeResponseHeader(b []byte) (status byte, sessionID int32, rest []byte, err error) {
	orig := b
	for {
		if len(b) < 1 {
			return 0, 0, orig, wire.ErrNeedMore
		}
		status = b[0]
		sessionID, rest, err = wire.DecodeInt32(b[1:])
		if err != nil {
			return 0, 0, orig, err
		}
		if status != statusPush {
			return status, sessionID, rest, nil
		}
		rest, err = skipPushNotification(rest)
		if err != nil {
			return 0, 0, orig, err
		}
		b = rest
	}
}

// skipPushNotification discards one push-notification payload: a single
// push-command byte followed by a length-prefixed content blob. This core
// has no use for push/live-query content (spec.md's explicit non-goal),
// so the blob is consumed but never interpreted.
func skipPushNotification(b []byte) ([]byte, error) {
	if len(b) < 1 {
		return b, wire.ErrNeedMore
	}
	_, rest, err := wire.DecodeBytes(b[1:])
	if err != nil {
		return b, err
	}
	return rest, nil
}
