package proto

import (
	"github.com/mickamy/orientgo/record"
	"github.com/mickamy/orientgo/wire"
)

// EncodeDBClose builds a db_close request. It is a no_response_operation:
// the server does not reply (spec.md §6).
func EncodeDBClose(sessionID int32) []byte {
	return EncodeRequest(OpDBClose, sessionID, nil)
}

// EncodeShutdown builds a shutdown request; also a no_response_operation.
func EncodeShutdown(sessionID int32, user, password string) []byte {
	return EncodeRequest(OpShutdown, sessionID, []Arg{String(user), String(password)})
}

// EncodeDBExist builds a db_exist request.
func EncodeDBExist(sessionID int32, dbName string, storageType string) []byte {
	return EncodeRequest(OpDBExist, sessionID, []Arg{String(dbName), String(storageType)})
}

// DecodeDBExistResponse decodes a boolean result.
func DecodeDBExistResponse(b []byte) (bool, []byte, error) {
	status, _, rest, err := decodeResponseHeader(b)
	if err != nil {
		return false, b, err
	}
	if status == statusError {
		return decodeAsServerError[bool](b, rest)
	}
	v, rest, err := wire.DecodeBool(rest)
	if err != nil {
		return false, b, err
	}
	return v, rest, nil
}

// EncodeDBCreate builds a db_create request.
func EncodeDBCreate(sessionID int32, dbName string, dbKind DatabaseKind, storageType string) []byte {
	return EncodeRequest(OpDBCreate, sessionID, []Arg{
		String(dbName), String(string(dbKind)), String(storageType),
	})
}

// DecodeDBCreateResponse decodes an empty success payload.
func DecodeDBCreateResponse(b []byte) ([]byte, error) {
	status, _, rest, err := decodeResponseHeader(b)
	if err != nil {
		return b, err
	}
	if status == statusError {
		_, rest, err := decodeAsServerError[struct{}](b, rest)
		return rest, err
	}
	return rest, nil
}

// EncodeDBDrop builds a db_drop request.
func EncodeDBDrop(sessionID int32, dbName string, storageType string) []byte {
	return EncodeRequest(OpDBDrop, sessionID, []Arg{String(dbName), String(storageType)})
}

// DecodeDBDropResponse decodes an empty success payload.
func DecodeDBDropResponse(b []byte) ([]byte, error) {
	return DecodeDBCreateResponse(b)
}

// EncodeDBList builds a db_list request.
func EncodeDBList(sessionID int32) []byte {
	return EncodeRequest(OpDBList, sessionID, nil)
}

// DecodeDBListResponse decodes the database-name -> path document that
// db_list returns, as a decoded record rather than a raw map (the server
// serializes it the same way as any other document).
func DecodeDBListResponse(b []byte, schema *record.Schema) (*record.Document, []byte, error) {
	status, _, rest, err := decodeResponseHeader(b)
	if err != nil {
		return nil, b, err
	}
	if status == statusError {
		return decodeAsServerError[*record.Document](b, rest)
	}
	payload, rest, err := wire.DecodeBytes(rest)
	if err != nil {
		return nil, b, err
	}
	doc, docRest, err := record.Decode(payload, schema)
	if err != nil {
		return nil, b, err
	}
	_ = docRest
	return doc, rest, nil
}

// EncodeDBSize builds a db_size request (spec.md §8, scenario b).
func EncodeDBSize(sessionID int32) []byte {
	return EncodeRequest(OpDBSize, sessionID, nil)
}

// DecodeDBSizeResponse decodes a long result.
func DecodeDBSizeResponse(b []byte) (int64, []byte, error) {
	return decodeLongResult(OpDBSize, b)
}

// EncodeDBCountRecords builds a db_countrecords request.
func EncodeDBCountRecords(sessionID int32) []byte {
	return EncodeRequest(OpDBCountRecords, sessionID, nil)
}

// DecodeDBCountRecordsResponse decodes a long result.
func DecodeDBCountRecordsResponse(b []byte) (int64, []byte, error) {
	return decodeLongResult(OpDBCountRecords, b)
}

func decodeLongResult(op Op, b []byte) (int64, []byte, error) {
	status, _, rest, err := decodeResponseHeader(b)
	if err != nil {
		return 0, b, err
	}
	if status == statusError {
		return decodeAsServerError[int64](b, rest)
	}
	v, rest, err := wire.DecodeInt64(rest)
	if err != nil {
		return 0, b, err
	}
	return v, rest, nil
}

// EncodeDBReload builds a db_reload request.
func EncodeDBReload(sessionID int32) []byte {
	return EncodeRequest(OpDBReload, sessionID, nil)
}

// DecodeDBReloadResponse decodes the cluster list db_open carries (count,
// then (name, id) pairs), without db_open's session id / token prefix or
// its trailing release string.
func DecodeDBReloadResponse(b []byte) ([]ClusterInfo, []byte, error) {
	status, _, rest, err := decodeResponseHeader(b)
	if err != nil {
		return nil, b, err
	}
	if status == statusError {
		return decodeAsServerError[[]ClusterInfo](b, rest)
	}

	count, rest, err := wire.DecodeInt16(rest)
	if err != nil {
		return nil, b, err
	}
	var clusters []ClusterInfo
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
		clusters = append(clusters, ClusterInfo{Name: name, ID: id})
	}
	return clusters, rest, nil
}

// RecordResult is the payload of a successful record_load (or
// record_load_if_version_not_latest) response.
type RecordResult struct {
	Doc      *record.Document
	Version  int32
	Unchanged bool // record_load_if_version_not_latest: true if client's copy was already current
}

// EncodeRecordLoad builds a record_load request. fetchPlan selects which
// related records the server should prefetch ("*:-1" fetches everything one
// level deep); ignoreCache and loadTombstones are passed through verbatim.
func EncodeRecordLoad(sessionID int32, rid record.RID, fetchPlan string, ignoreCache, loadTombstones bool) []byte {
	return EncodeRequest(OpRecordLoad, sessionID, []Arg{
		RID(rid.Cluster, rid.Position),
		String(fetchPlan),
		Bool(ignoreCache),
		Bool(loadTombstones),
	})
}

// DecodeRecordLoadResponse decodes the payload scenario (c) describes: a
// "more records follow" byte (0 when none), record type, version, content,
// repeated until the terminator.
func DecodeRecordLoadResponse(b []byte, schema *record.Schema) (*RecordResult, []byte, error) {
	status, _, rest, err := decodeResponseHeader(b)
	if err != nil {
		return nil, b, err
	}
	if status == statusError {
		return decodeAsServerError[*RecordResult](b, rest)
	}

	more, rest, err := wire.DecodeBool(rest)
	if err != nil {
		return nil, b, err
	}
	if !more {
		return nil, rest, nil // record not found; caller sees a nil result
	}

	_, rest, err = wire.DecodeBool(rest) // record type: 'd' document, 'f' flat, 'b' raw bytes; unused by this core
	if err != nil {
		return nil, b, err
	}
	version, rest, err := wire.DecodeInt32(rest)
	if err != nil {
		return nil, b, err
	}
	content, rest, err := wire.DecodeBytes(rest)
	if err != nil {
		return nil, b, err
	}

	doc, docRest, err := record.Decode(content, schema)
	if err != nil {
		return nil, rest, err
	}
	_ = docRest
	if doc != nil {
		doc.Version = version // RID is not echoed on the wire; the connection layer fills it in from the request
	}

	// Drain any further "more" entries the server appends (supplementary
	// records from the fetch plan); this core does not resolve them.
	for {
		again, r, err := wire.DecodeBool(rest)
		if err != nil {
			return nil, b, err
		}
		rest = r
		if !again {
			break
		}
		if _, r, err := wire.DecodeBool(rest); err == nil {
			rest = r
		}
		if _, r, err := wire.DecodeInt32(rest); err == nil {
			rest = r
		}
		if _, r, err := wire.DecodeBytes(rest); err == nil {
			rest = r
		}
	}

	return &RecordResult{Doc: doc, Version: version}, rest, nil
}

// EncodeRecordLoadIfVersionNotLatest builds the conditional-load variant.
func EncodeRecordLoadIfVersionNotLatest(sessionID int32, rid record.RID, version int32, fetchPlan string, ignoreCache bool) []byte {
	return EncodeRequest(OpRecordLoadIfVersionNotLatest, sessionID, []Arg{
		RID(rid.Cluster, rid.Position),
		Int(version),
		String(fetchPlan),
		Bool(ignoreCache),
	})
}

// DecodeRecordLoadIfVersionNotLatestResponse mirrors DecodeRecordLoadResponse
// but an empty "more" means the caller's cached copy is already current.
func DecodeRecordLoadIfVersionNotLatestResponse(b []byte, schema *record.Schema) (*RecordResult, []byte, error) {
	res, rest, err := DecodeRecordLoadResponse(b, schema)
	if err != nil {
		return res, rest, err
	}
	if res == nil {
		return &RecordResult{Unchanged: true}, rest, nil
	}
	return res, rest, nil
}

// EncodeRecordCreate builds a record_create request.
func EncodeRecordCreate(sessionID int32, clusterID int16, content []byte, recordType byte, mode byte) []byte {
	return EncodeRequest(OpRecordCreate, sessionID, []Arg{
		Short(clusterID),
		Record(content),
		Raw([]byte{recordType}),
		Raw([]byte{mode}),
	})
}

// RecordCreateResult is the server-assigned identity of a newly created
// record.
type RecordCreateResult struct {
	RID     record.RID
	Version int32
}

// DecodeRecordCreateResponse decodes the new cluster position and version.
func DecodeRecordCreateResponse(b []byte, cluster int16) (*RecordCreateResult, []byte, error) {
	status, _, rest, err := decodeResponseHeader(b)
	if err != nil {
		return nil, b, err
	}
	if status == statusError {
		return decodeAsServerError[*RecordCreateResult](b, rest)
	}
	position, rest, err := wire.DecodeInt64(rest)
	if err != nil {
		return nil, b, err
	}
	version, rest, err := wire.DecodeInt32(rest)
	if err != nil {
		return nil, b, err
	}
	// Trailing collection-change entries are a pre-3.0 RidBag artifact; this
	// core has no RidBag support, so the count is always read and discarded.
	count, rest, err := wire.DecodeInt32(rest)
	if err != nil {
		return nil, b, err
	}
	for i := int32(0); i < count; i++ {
		if _, r, err := wire.DecodeInt64(rest); err == nil {
			rest = r
		}
		if _, r, err := wire.DecodeInt64(rest); err == nil {
			rest = r
		}
		if _, r, err := wire.DecodeInt32(rest); err == nil {
			rest = r
		}
	}
	return &RecordCreateResult{RID: record.RID{Cluster: cluster, Position: position}, Version: version}, rest, nil
}

// EncodeRecordUpdate builds a record_update request.
func EncodeRecordUpdate(sessionID int32, rid record.RID, updateContent bool, content []byte, version int32, recordType byte, mode byte) []byte {
	return EncodeRequest(OpRecordUpdate, sessionID, []Arg{
		RID(rid.Cluster, rid.Position),
		Bool(updateContent),
		Record(content),
		Int(version),
		Raw([]byte{recordType}),
		Raw([]byte{mode}),
	})
}

// DecodeRecordUpdateResponse decodes the record's new version.
func DecodeRecordUpdateResponse(b []byte) (int32, []byte, error) {
	status, _, rest, err := decodeResponseHeader(b)
	if err != nil {
		return 0, b, err
	}
	if status == statusError {
		return decodeAsServerError[int32](b, rest)
	}
	version, rest, err := wire.DecodeInt32(rest)
	if err != nil {
		return 0, b, err
	}
	count, rest, err := wire.DecodeInt32(rest)
	if err == nil {
		for i := int32(0); i < count; i++ {
			if _, r, err := wire.DecodeInt64(rest); err == nil {
				rest = r
			}
			if _, r, err := wire.DecodeInt64(rest); err == nil {
				rest = r
			}
			if _, r, err := wire.DecodeInt32(rest); err == nil {
				rest = r
			}
		}
	}
	return version, rest, nil
}

// EncodeRecordDelete builds a record_delete request.
func EncodeRecordDelete(sessionID int32, rid record.RID, version int32, mode byte) []byte {
	return EncodeRequest(OpRecordDelete, sessionID, []Arg{
		RID(rid.Cluster, rid.Position),
		Int(version),
		Raw([]byte{mode}),
	})
}

// DecodeRecordDeleteResponse decodes whether the delete actually removed a
// record (the server returns false for an already-missing RID rather than
// an error).
func DecodeRecordDeleteResponse(b []byte) (bool, []byte, error) {
	status, _, rest, err := decodeResponseHeader(b)
	if err != nil {
		return false, b, err
	}
	if status == statusError {
		return decodeAsServerError[bool](b, rest)
	}
	v, rest, err := wire.DecodeBool(rest)
	if err != nil {
		return false, b, err
	}
	return v, rest, nil
}

// CommandKind selects between an idempotent query and a general command
// (spec.md's class byte for the command payload: 'q' or 'c').
type CommandKind byte

const (
	CommandQuery   CommandKind = 'q'
	CommandGeneral CommandKind = 'c'
)

// EncodeCommand builds a command request. payload is the pre-serialized,
// command-class-specific argument blob (e.g. an SQL text + bound
// parameters record for CommandKind); this core treats it opaquely.
func EncodeCommand(sessionID int32, kind CommandKind, payload []byte) []byte {
	body := append([]byte{byte(kind)}, wire.EncodeBytes(payload)...)
	return EncodeRequest(OpCommand, sessionID, []Arg{
		Bool(true), // synchronous mode
		Raw(body),
	})
}

// CommandResult is the list of documents a command returns, in server order.
type CommandResult struct {
	Docs []*record.Document
}

// DecodeCommandResponse decodes a synchronous command's result set: a
// sequence of (marker byte, record) pairs terminated by marker 0, where
// marker 1 introduces a document record and marker 2 a collection wrapper
// this core flattens.
func DecodeCommandResponse(b []byte, schema *record.Schema) (*CommandResult, []byte, error) {
	status, _, rest, err := decodeResponseHeader(b)
	if err != nil {
		return nil, b, err
	}
	if status == statusError {
		return decodeAsServerError[*CommandResult](b, rest)
	}

	result := &CommandResult{}
	for {
		if len(rest) < 1 {
			return nil, b, wire.ErrNeedMore
		}
		marker := rest[0]
		rest = rest[1:]
		if marker == 0 {
			break
		}

		_, rest2, err := wire.DecodeBool(rest) // record type byte folded into one read; see DecodeRecordLoadResponse
		if err != nil {
			return nil, b, err
		}
		rest = rest2
		_, rest2, err = wire.DecodeInt32(rest) // cluster/version bookkeeping, unused
		if err != nil {
			return nil, b, err
		}
		rest = rest2
		content, rest2, err := wire.DecodeBytes(rest)
		if err != nil {
			return nil, b, err
		}
		rest = rest2

		doc, _, err := record.Decode(content, schema)
		if err != nil {
			return nil, rest, err
		}
		result.Docs = append(result.Docs, doc)
	}
	return result, rest, nil
}

// EncodeTxCommit builds a tx_commit request. txID must be freshly allocated
// from the session's monotonic counter by the connection layer (spec.md
// §4.4, "allocate a fresh transaction id... substitute it for the
// placeholder argument"); operations is the pre-serialized sequence of
// record create/update/delete entries within the transaction.
func EncodeTxCommit(sessionID int32, txID int32, usingTxLog bool, operations []byte) []byte {
	return EncodeRequest(OpTxCommit, sessionID, []Arg{
		Int(txID),
		Bool(usingTxLog),
		Raw(operations),
		Raw([]byte{0}), // terminator: no further operation entries beyond the pre-serialized blob
	})
}

// TxCommitResult is the set of cluster-assigned ids the server generated
// for temporary (negative) RIDs used during the transaction.
type TxCommitResult struct {
	Created map[record.RID]record.RID // client-side temp RID -> server-assigned RID
}

// DecodeTxCommitResponse decodes the created-id mapping.
func DecodeTxCommitResponse(b []byte) (*TxCommitResult, []byte, error) {
	status, _, rest, err := decodeResponseHeader(b)
	if err != nil {
		return nil, b, err
	}
	if status == statusError {
		return decodeAsServerError[*TxCommitResult](b, rest)
	}

	count, rest, err := wire.DecodeInt32(rest)
	if err != nil {
		return nil, b, err
	}
	created := make(map[record.RID]record.RID, count)
	for i := int32(0); i < count; i++ {
		clientCluster, r, err := wire.DecodeInt16(rest)
		if err != nil {
			return nil, b, err
		}
		rest = r
		clientPos, r, err := wire.DecodeInt64(rest)
		if err != nil {
			return nil, b, err
		}
		rest = r
		serverCluster, r, err := wire.DecodeInt16(rest)
		if err != nil {
			return nil, b, err
		}
		rest = r
		serverPos, r, err := wire.DecodeInt64(rest)
		if err != nil {
			return nil, b, err
		}
		rest = r
		created[record.RID{Cluster: clientCluster, Position: clientPos}] = record.RID{Cluster: serverCluster, Position: serverPos}
	}
	return &TxCommitResult{Created: created}, rest, nil
}

// decodeAsServerError parses the status-1 error payload and returns it as
// a *ServerError, using T's zero value for the (unreachable) ok branch so
// every decode function can share one error path via generics.
func decodeAsServerError[T any](orig, rest []byte) (T, []byte, error) {
	var zero T
	serr, rest, err := decodeServerError(rest)
	if err != nil {
		return zero, orig, err
	}
	return zero, rest, serr
}
