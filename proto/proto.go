// Package proto implements the OrientDB binary protocol's request encoders
// and response decoders: op codes, the tagged argument stream, the
// connect/db_open handshake, and the per-operation response grammars keyed
// on the leading status byte (spec.md §4.3).
package proto

import (
	"fmt"

	"github.com/mickamy/orientgo/wire"
)

// Op identifies a single wire operation and the session scope it requires.
type Op byte

// Op codes, assigned the way OrientDB's network protocol does: one byte,
// stable across protocol versions ≥ 28.
const (
	OpShutdown Op = 1
	OpConnect  Op = 2
	OpDBOpen   Op = 3
	OpDBCreate Op = 4
	OpDBClose  Op = 5
	OpDBExist  Op = 6
	OpDBDrop   Op = 7
	OpDBSize   Op = 8
	OpDBCountRecords Op = 9

	OpRecordLoad                     Op = 30
	OpRecordCreate                   Op = 31
	OpRecordUpdate                   Op = 32
	OpRecordDelete                   Op = 33
	OpRecordLoadIfVersionNotLatest   Op = 78

	OpCommand Op = 41
	OpTxCommit Op = 60

	OpDBReload Op = 73
	OpDBList   Op = 74
)

// Scope is the kind of session an Op may run on.
type Scope int

const (
	ScopeServer Scope = iota
	ScopeDatabase
)

// ScopeOf reports which session scope an operation belongs to (spec.md
// §4.3, "Operations, partitioned by scope").
func ScopeOf(op Op) (Scope, bool) {
	switch op {
	case OpShutdown, OpConnect, OpDBCreate, OpDBExist, OpDBDrop, OpDBList:
		return ScopeServer, true
	case OpDBOpen, OpDBClose, OpDBSize, OpDBCountRecords, OpDBReload,
		OpRecordLoad, OpRecordCreate, OpRecordUpdate, OpRecordDelete,
		OpRecordLoadIfVersionNotLatest, OpCommand, OpTxCommit:
		return ScopeDatabase, true
	}
	return 0, false
}

// Arg is one element of a request's tagged argument stream (spec.md §4.3).
// Exactly one constructor should be used to build each value; encodeArg
// dispatches on its kind.
type Arg struct {
	kind argKind
	raw  []byte
	i16  int16
	i32  int32
	i64  int64
	b    bool
	str  string
}

type argKind int

const (
	argRaw argKind = iota
	argShort
	argInt
	argLong
	argBool
	argString
	argBytes
	argRID
	argRecord
)

func Raw(b []byte) Arg         { return Arg{kind: argRaw, raw: b} }
func Short(v int16) Arg        { return Arg{kind: argShort, i16: v} }
func Int(v int32) Arg          { return Arg{kind: argInt, i32: v} }
func Long(v int64) Arg         { return Arg{kind: argLong, i64: v} }
func Bool(v bool) Arg          { return Arg{kind: argBool, b: v} }
func String(v string) Arg      { return Arg{kind: argString, str: v} }
func Bytes(v []byte) Arg       { return Arg{kind: argBytes, raw: v} }
func Record(v []byte) Arg      { return Arg{kind: argRecord, raw: v} }

// RID encodes a record identifier as a request argument: a fixed i16
// cluster id followed by a fixed i64 position. This is the protocol's
// argument-framing shape; values embedded inside a serialized record use a
// more compact i16+varint form instead (see the record package).
func RID(cluster int16, position int64) Arg {
	return Arg{kind: argRID, i16: cluster, i64: position}
}

// EncodeRequest writes op_code || session_id || args to a fresh buffer
// (spec.md §4.3, "Request framing").
func EncodeRequest(op Op, sessionID int32, args []Arg) []byte {
	buf := []byte{byte(op)}
	buf = append(buf, wire.EncodeInt32(sessionID)...)
	for _, a := range args {
		buf = append(buf, encodeArg(a)...)
	}
	return buf
}

func encodeArg(a Arg) []byte {
	switch a.kind {
	case argRaw:
		return a.raw
	case argShort:
		return wire.EncodeInt16(a.i16)
	case argInt:
		return wire.EncodeInt32(a.i32)
	case argLong:
		return wire.EncodeInt64(a.i64)
	case argBool:
		return wire.EncodeBool(a.b)
	case argString:
		return wire.EncodeString(a.str)
	case argBytes:
		return wire.EncodeBytes(a.raw)
	case argRID:
		buf := wire.EncodeInt16(a.i16)
		return append(buf, wire.EncodeInt64(a.i64)...)
	case argRecord:
		return wire.EncodeBytes(a.raw)
	}
	panic(fmt.Sprintf("proto: unhandled arg kind %d", a.kind))
}

const (
	statusOK    byte = 0
	statusError byte = 1
	statusPush  byte = 3
)
