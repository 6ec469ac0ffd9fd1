package orientgo

import (
	"context"

	"github.com/mickamy/orientgo/proto"
	"github.com/mickamy/orientgo/record"
)

// DBSize returns the total size, in bytes, of the database's storage
// (spec.md §8, scenario (b)).
func (c *Connection) DBSize(ctx context.Context) (int64, error) {
	frame := proto.EncodeDBSize(c.sessionID.Load())
	decode := func(tail []byte) (any, []byte, error) {
		return wrapDecode3(proto.DecodeDBSizeResponse(tail))
	}
	v, err := c.do(proto.OpDBSize, frame, decode, 0)
	return as[int64](v), err
}

// DBCountRecords returns the total number of records across all clusters.
func (c *Connection) DBCountRecords(ctx context.Context) (int64, error) {
	frame := proto.EncodeDBCountRecords(c.sessionID.Load())
	decode := func(tail []byte) (any, []byte, error) {
		return wrapDecode3(proto.DecodeDBCountRecordsResponse(tail))
	}
	v, err := c.do(proto.OpDBCountRecords, frame, decode, 0)
	return as[int64](v), err
}

// DBReload refreshes cluster metadata.
func (c *Connection) DBReload(ctx context.Context) ([]proto.ClusterInfo, error) {
	frame := proto.EncodeDBReload(c.sessionID.Load())
	decode := func(tail []byte) (any, []byte, error) {
		return wrapDecode3(proto.DecodeDBReloadResponse(tail))
	}
	v, err := c.do(proto.OpDBReload, frame, decode, 0)
	return as[[]proto.ClusterInfo](v), err
}

// DBClose ends the database session. It is a no_response_operation: the
// server does not reply.
func (c *Connection) DBClose() error {
	return c.doNoReply(proto.OpDBClose, proto.EncodeDBClose(c.sessionID.Load()))
}

// Shutdown requests the server to shut down. It is a no_response_operation.
func (c *Connection) Shutdown(user, password string) error {
	return c.doNoReply(proto.OpShutdown, proto.EncodeShutdown(c.sessionID.Load(), user, password))
}

// DBExist reports whether a database exists on the server.
func (c *Connection) DBExist(ctx context.Context, name, storageType string) (bool, error) {
	frame := proto.EncodeDBExist(c.sessionID.Load(), name, storageType)
	decode := func(tail []byte) (any, []byte, error) {
		return wrapDecode3(proto.DecodeDBExistResponse(tail))
	}
	v, err := c.do(proto.OpDBExist, frame, decode, 0)
	return as[bool](v), err
}

// DBCreate creates a new database.
func (c *Connection) DBCreate(ctx context.Context, name string, kind DatabaseKind, storageType string) error {
	var pk proto.DatabaseKind
	if kind == KindGraph {
		pk = proto.DatabaseGraph
	} else {
		pk = proto.DatabaseDocument
	}
	frame := proto.EncodeDBCreate(c.sessionID.Load(), name, pk, storageType)
	decode := func(tail []byte) (any, []byte, error) {
		rest, err := proto.DecodeDBCreateResponse(tail)
		return nil, rest, err
	}
	_, err := c.do(proto.OpDBCreate, frame, decode, 0)
	return err
}

// DBDrop deletes a database.
func (c *Connection) DBDrop(ctx context.Context, name, storageType string) error {
	frame := proto.EncodeDBDrop(c.sessionID.Load(), name, storageType)
	decode := func(tail []byte) (any, []byte, error) {
		rest, err := proto.DecodeDBDropResponse(tail)
		return nil, rest, err
	}
	_, err := c.do(proto.OpDBDrop, frame, decode, 0)
	return err
}

// DBList returns the document describing every database the server knows
// about (name -> path).
func (c *Connection) DBList(ctx context.Context) (*record.Document, error) {
	frame := proto.EncodeDBList(c.sessionID.Load())
	decode := func(tail []byte) (any, []byte, error) {
		return wrapDecode3(proto.DecodeDBListResponse(tail, nil))
	}
	v, err := c.do(proto.OpDBList, frame, decode, 0)
	return as[*record.Document](v), err
}

// RecordLoad loads a single record by RID (spec.md §8, scenario (c)).
// It returns (nil, nil) if the record does not exist.
func (c *Connection) RecordLoad(ctx context.Context, rid record.RID, fetchPlan string, ignoreCache, loadTombstones bool) (*record.Document, error) {
	frame := proto.EncodeRecordLoad(c.sessionID.Load(), rid, fetchPlan, ignoreCache, loadTombstones)
	schema := c.Schema()
	decode := func(tail []byte) (any, []byte, error) {
		return wrapDecode3(proto.DecodeRecordLoadResponse(tail, schema))
	}
	v, err := c.do(proto.OpRecordLoad, frame, decode, 0)
	if err != nil {
		return nil, err
	}
	res := as[*proto.RecordResult](v)
	if res == nil || res.Doc == nil {
		return nil, nil
	}
	res.Doc.RID = &record.RID{Cluster: rid.Cluster, Position: rid.Position}
	return res.Doc, nil
}

// RecordLoadIfVersionNotLatest loads a record only if the server's copy is
// newer than version; unchanged reports that the server sent no record
// because the client's copy is already current (doc is then nil).
func (c *Connection) RecordLoadIfVersionNotLatest(ctx context.Context, rid record.RID, version int32, fetchPlan string, ignoreCache bool) (doc *record.Document, unchanged bool, err error) {
	frame := proto.EncodeRecordLoadIfVersionNotLatest(c.sessionID.Load(), rid, version, fetchPlan, ignoreCache)
	schema := c.Schema()
	decode := func(tail []byte) (any, []byte, error) {
		return wrapDecode3(proto.DecodeRecordLoadIfVersionNotLatestResponse(tail, schema))
	}
	v, err := c.do(proto.OpRecordLoadIfVersionNotLatest, frame, decode, 0)
	if err != nil {
		return nil, false, err
	}
	res := as[*proto.RecordResult](v)
	if res == nil {
		return nil, false, nil
	}
	if res.Unchanged {
		return nil, true, nil
	}
	if res.Doc != nil {
		res.Doc.RID = &record.RID{Cluster: rid.Cluster, Position: rid.Position}
	}
	return res.Doc, false, nil
}

// RecordCreate creates a new record on the given cluster.
func (c *Connection) RecordCreate(ctx context.Context, clusterID int16, doc *record.Document) (record.RID, int32, error) {
	content, err := record.Encode(doc, c.Schema())
	if err != nil {
		return record.RID{}, 0, err
	}
	frame := proto.EncodeRecordCreate(c.sessionID.Load(), clusterID, content, 'd', 0)
	decode := func(tail []byte) (any, []byte, error) {
		return wrapDecode3(proto.DecodeRecordCreateResponse(tail, clusterID))
	}
	v, err := c.do(proto.OpRecordCreate, frame, decode, 0)
	if err != nil {
		return record.RID{}, 0, err
	}
	res := as[*proto.RecordCreateResult](v)
	return res.RID, res.Version, nil
}

// RecordUpdate overwrites a record's content and bumps its version.
func (c *Connection) RecordUpdate(ctx context.Context, doc *record.Document) (int32, error) {
	if doc.RID == nil {
		return 0, errNoRID
	}
	content, err := record.Encode(doc, c.Schema())
	if err != nil {
		return 0, err
	}
	frame := proto.EncodeRecordUpdate(c.sessionID.Load(), *doc.RID, true, content, doc.Version, 'd', 0)
	decode := func(tail []byte) (any, []byte, error) {
		return wrapDecode3(proto.DecodeRecordUpdateResponse(tail))
	}
	v, err := c.do(proto.OpRecordUpdate, frame, decode, 0)
	return as[int32](v), err
}

// RecordDelete deletes a record at the given version.
func (c *Connection) RecordDelete(ctx context.Context, rid record.RID, version int32) (bool, error) {
	frame := proto.EncodeRecordDelete(c.sessionID.Load(), rid, version, 0)
	decode := func(tail []byte) (any, []byte, error) {
		return wrapDecode3(proto.DecodeRecordDeleteResponse(tail))
	}
	v, err := c.do(proto.OpRecordDelete, frame, decode, 0)
	return as[bool](v), err
}

// Command runs an SQL-style command or query and returns its result
// documents.
func (c *Connection) Command(ctx context.Context, kind proto.CommandKind, payload []byte) ([]*record.Document, error) {
	frame := proto.EncodeCommand(c.sessionID.Load(), kind, payload)
	schema := c.Schema()
	decode := func(tail []byte) (any, []byte, error) {
		return wrapDecode3(proto.DecodeCommandResponse(tail, schema))
	}
	v, err := c.do(proto.OpCommand, frame, decode, 0)
	if err != nil {
		return nil, err
	}
	res := as[*proto.CommandResult](v)
	if res == nil {
		return nil, nil
	}
	return res.Docs, nil
}

// TxCommit commits a transaction, allocating a fresh, strictly monotonic
// transaction id from the session counter (spec.md §4.4, "Send path",
// step 2; spec.md §8, property 5).
func (c *Connection) TxCommit(ctx context.Context, usingTxLog bool, operations []byte) (*proto.TxCommitResult, error) {
	txID := c.txCounter.Add(1) - 1
	frame := proto.EncodeTxCommit(c.sessionID.Load(), txID, usingTxLog, operations)
	decode := func(tail []byte) (any, []byte, error) {
		return wrapDecode3(proto.DecodeTxCommitResponse(tail))
	}
	v, err := c.do(proto.OpTxCommit, frame, decode, 0)
	return as[*proto.TxCommitResult](v), err
}

// wrapDecode3 adapts a (T, []byte, error)-shaped proto decoder to the
// connection's (any, []byte, error) decodeFunc signature.
func wrapDecode3[T any](v T, rest []byte, err error) (any, []byte, error) {
	return v, rest, err
}

// as extracts a typed value from a decodeFunc result, returning the zero
// value if v is nil (the error path).
func as[T any](v any) T {
	if v == nil {
		var zero T
		return zero
	}
	return v.(T)
}
