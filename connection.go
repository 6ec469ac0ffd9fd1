// Package orientgo is a client-side driver for OrientDB's binary network
// protocol (version >= 28). It owns a single TCP session per Connection,
// authenticates against either the server or a specific database, and
// exposes a pipelined request/reply API on top of a streaming wire codec
// (see the record and proto subpackages).
package orientgo

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/mickamy/orientgo/proto"
	"github.com/mickamy/orientgo/record"
	"github.com/mickamy/orientgo/wire"
)

// State is the Connection's lifecycle state (spec.md §4.4, "States").
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateAuthenticated
	StateReady
	StateDraining
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateAuthenticated:
		return "authenticated"
	case StateReady:
		return "ready"
	case StateDraining:
		return "draining"
	}
	return "unknown"
}

// decodeFunc adapts one operation's response decoder to a shape the
// connection's single dispatch loop can call without knowing the payload
// type (spec.md §4.3, "Each operation's decoder is a function (bytes,
// schema) -> Incomplete | Ok(value, rest) | Err(kind, rest)").
type decodeFunc func(tail []byte) (value any, rest []byte, err error)

// call is one in-flight request, queued in FIFO order alongside its reply
// channel (spec.md §3, "queue").
type call struct {
	op        proto.Op
	frame     []byte
	decode    decodeFunc // nil for no_response_operation calls
	reply     chan callResult
	abandoned atomic.Bool
}

type callResult struct {
	value any
	err   error
}

// Connection is a single authenticated session against an OrientDB server
// or database. It is safe for concurrent use: all internal state is owned
// by one loop goroutine, and callers interact with it only through channels
// (spec.md §4.4, "Concurrency contract").
type Connection struct {
	id     uuid.UUID
	cfg    Config
	scope  proto.Scope
	logger *log.Logger

	state atomic.Int32

	requests chan *call
	noReply  chan []byte
	stop     chan chan struct{}
	closed   chan struct{}

	sessionID atomic.Int32
	txCounter atomic.Int32

	schemaMu atomic.Pointer[record.Schema]
}

// Dial opens a TCP connection, performs the handshake appropriate to
// cfg.Target, fetches the schema when targeting a database, and starts the
// session's dispatch loop.
func Dial(ctx context.Context, cfg Config) (*Connection, error) {
	cfg = cfg.withDefaults()

	nc, err := dialTCP(ctx, cfg)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	return newConnection(nc, cfg)
}

// newConnection drives the handshake and schema fetch over an
// already-open net.Conn and starts the dispatch loop. Split out from Dial
// so tests can supply a net.Pipe() endpoint instead of a real socket.
func newConnection(nc net.Conn, cfg Config) (*Connection, error) {
	cfg = cfg.withDefaults()

	c := &Connection{
		id:       uuid.New(),
		cfg:      cfg,
		requests: make(chan *call),
		noReply:  make(chan []byte),
		stop:     make(chan chan struct{}),
		closed:   make(chan struct{}),
		logger:   log.Default(),
	}
	c.state.Store(int32(StateConnecting))
	c.sessionID.Store(-1)
	c.txCounter.Store(1)

	if err := c.handshake(nc); err != nil {
		_ = nc.Close()
		return nil, err
	}
	c.state.Store(int32(StateAuthenticated))

	if !cfg.Target.IsServer() {
		c.scope = proto.ScopeDatabase
		if err := c.fetchSchemaSync(nc); err != nil {
			_ = nc.Close()
			return nil, err
		}
	} else {
		c.scope = proto.ScopeServer
	}
	c.state.Store(int32(StateReady))

	chunks := make(chan []byte)
	go readLoop(nc, chunks)
	go c.run(nc, chunks)

	return c, nil
}

func dialTCP(ctx context.Context, cfg Config) (net.Conn, error) {
	d := net.Dialer{}
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	nc, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	if tc, ok := nc.(*net.TCPConn); ok {
		if cfg.SocketOpts.SendBufferSize > 0 {
			_ = tc.SetWriteBuffer(cfg.SocketOpts.SendBufferSize)
		}
		if cfg.SocketOpts.RecvBufferSize > 0 {
			_ = tc.SetReadBuffer(cfg.SocketOpts.RecvBufferSize)
		}
	}
	return nc, nil
}

// handshake performs the protocol-version read and connect/db_open exchange
// synchronously, before the dispatch loop exists (spec.md §4.3,
// "Handshake").
func (c *Connection) handshake(nc net.Conn) error {
	versionBuf, err := readExact(nc, 2)
	if err != nil {
		return &TransportError{Err: err}
	}
	version, _, err := proto.DecodeProtocolVersion(versionBuf)
	if err != nil {
		return &TransportError{Err: err}
	}
	if version < c.cfg.MinProtocol {
		c.logger.Printf("orientgo[%s]: server protocol version %d below minimum %d", c.id, version, c.cfg.MinProtocol)
		return &UnsupportedProtocolError{Server: version, Minimum: c.cfg.MinProtocol}
	}

	var frame []byte
	if c.cfg.Target.IsServer() {
		frame = proto.EncodeConnect(c.cfg.ClientName, c.cfg.DriverVersion, c.cfg.MinProtocol, c.cfg.ClientID, c.cfg.User, c.cfg.Password)
	} else {
		var kind proto.DatabaseKind
		switch c.cfg.Target.Kind {
		case KindGraph:
			kind = proto.DatabaseGraph
		default:
			kind = proto.DatabaseDocument
		}
		frame = proto.EncodeDBOpen(c.cfg.ClientName, c.cfg.DriverVersion, c.cfg.MinProtocol, c.cfg.ClientID, c.cfg.Target.Database, kind, c.cfg.User, c.cfg.Password)
	}
	if _, err := nc.Write(frame); err != nil {
		return &TransportError{Err: err}
	}

	var res *proto.HandshakeResult
	err = readUntilComplete(nc, func(buf []byte) ([]byte, error) {
		var e error
		if c.cfg.Target.IsServer() {
			res, buf, e = proto.DecodeConnectResponse(buf)
		} else {
			res, buf, e = proto.DecodeDBOpenResponse(buf)
		}
		return buf, e
	})
	if err != nil {
		c.logger.Printf("orientgo[%s]: auth failed: %v", c.id, err)
		return err
	}

	c.sessionID.Store(res.SessionID)
	c.logger.Printf("orientgo[%s]: authenticated, session %d", c.id, res.SessionID)
	return nil
}

// fetchSchemaSync issues the internal record_load at #0:1 (spec.md §4.4,
// "Schema fetch") before the dispatch loop starts.
func (c *Connection) fetchSchemaSync(nc net.Conn) error {
	rid := record.RID{Cluster: 0, Position: 1}
	frame := proto.EncodeRecordLoad(c.sessionID.Load(), rid, "*:-1", true, false)
	if _, err := nc.Write(frame); err != nil {
		return &TransportError{Err: err}
	}

	var res *proto.RecordResult
	err := readUntilComplete(nc, func(buf []byte) ([]byte, error) {
		var e error
		res, buf, e = proto.DecodeRecordLoadResponse(buf, nil)
		return buf, e
	})
	if err != nil {
		c.logger.Printf("orientgo[%s]: schema fetch failed: %v", c.id, err)
		return &TransportError{Err: fmt.Errorf("schema fetch: %w", err)}
	}
	if res == nil || res.Doc == nil {
		c.logger.Printf("orientgo[%s]: schema fetch failed: record #0:1 not found", c.id)
		return &TransportError{Err: errors.New("schema fetch: record #0:1 not found")}
	}

	schema, err := record.FromSchemaDocument(res.Doc)
	if err != nil {
		c.logger.Printf("orientgo[%s]: schema fetch failed: %v", c.id, err)
		return &TransportError{Err: fmt.Errorf("schema fetch: %w", err)}
	}
	c.schemaMu.Store(schema)
	c.logger.Printf("orientgo[%s]: schema fetched, %d global properties", c.id, schema.Len())
	return nil
}

func readExact(r net.Conn, n int) ([]byte, error) {
	buf := make([]byte, n)
	got := 0
	for got < n {
		k, err := r.Read(buf[got:])
		if err != nil {
			return nil, err
		}
		got += k
	}
	return buf, nil
}

// readUntilComplete reads chunks from nc and calls decode with the
// accumulated tail until decode stops reporting wire.ErrNeedMore.
func readUntilComplete(nc net.Conn, decode func(tail []byte) ([]byte, error)) error {
	var tail []byte
	buf := make([]byte, 4096)
	for {
		rest, err := decode(tail)
		if err == nil {
			return nil
		}
		if !isNeedMore(err) {
			return err
		}
		n, rerr := nc.Read(buf)
		if rerr != nil {
			return &TransportError{Err: rerr}
		}
		tail = append(rest, buf[:n]...)
	}
}

func readLoop(nc net.Conn, out chan<- []byte) {
	defer close(out)
	buf := make([]byte, 4096)
	for {
		n, err := nc.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			out <- chunk
		}
		if err != nil {
			return
		}
	}
}

// run is the single-threaded cooperative dispatch loop: it owns the
// socket, the pending-request queue, and the unparsed tail buffer, and is
// the only goroutine that mutates any of them (spec.md §5).
func (c *Connection) run(nc net.Conn, chunks <-chan []byte) {
	var queue []*call
	var tail []byte

	disconnectAll := func(err error) {
		c.logger.Printf("orientgo[%s]: disconnecting, %d request(s) in flight: %v", c.id, len(queue), err)
		for _, entry := range queue {
			if !entry.abandoned.Load() && entry.reply != nil {
				entry.reply <- callResult{err: err}
			}
		}
		queue = nil
		c.sessionID.Store(-1)
		c.txCounter.Store(1)
		c.state.Store(int32(StateDisconnected))
		_ = nc.Close()
		close(c.closed)
	}

	for {
		select {
		case chunk, ok := <-chunks:
			if !ok {
				disconnectAll(fmt.Errorf("orientgo: connection closed by peer: %w", ErrClosed))
				return
			}
			tail = append(tail, chunk...)
			for len(queue) > 0 {
				head := queue[0]
				val, rest, err := head.decode(tail)
				if isNeedMore(err) {
					break
				}
				queue = queue[1:]
				tail = rest
				if !head.abandoned.Load() {
					head.reply <- callResult{value: val, err: err}
				}
			}

		case req := <-c.requests:
			if err := c.send(nc, req); err != nil {
				req.reply <- callResult{err: err}
				disconnectAll(err)
				return
			}
			queue = append(queue, req)

		case frame := <-c.noReply:
			if _, err := nc.Write(frame); err != nil {
				disconnectAll(&TransportError{Err: err})
				return
			}

		case replyTo := <-c.stop:
			c.state.Store(int32(StateDraining))
			disconnectAll(ErrClosed)
			close(replyTo)
			return
		}
	}
}

// send writes one call's frame to the socket. The queue is not mutated
// until after the write succeeds (spec.md §5, "the write step must not
// mutate queue until the write succeeds"); the caller appends to queue.
func (c *Connection) send(nc net.Conn, call *call) error {
	if _, err := nc.Write(call.frame); err != nil {
		c.logger.Printf("orientgo[%s]: transport error writing op %d: %v", c.id, call.op, err)
		return &TransportError{Err: err}
	}
	return nil
}

func isNeedMore(err error) bool {
	return errors.Is(err, wire.ErrNeedMore)
}

// do sends a request and blocks for its reply or the configured deadline.
func (c *Connection) do(op proto.Op, frame []byte, decode decodeFunc, timeout time.Duration) (any, error) {
	scope, ok := proto.ScopeOf(op)
	if !ok {
		return nil, fmt.Errorf("orientgo: unknown op %d", op)
	}
	if scope != c.scope {
		return nil, ErrWrongScope
	}

	reply := make(chan callResult, 1)
	req := &call{op: op, frame: frame, decode: decode, reply: reply}

	select {
	case c.requests <- req:
	case <-c.closed:
		return nil, ErrClosed
	}

	if timeout <= 0 {
		timeout = c.cfg.Timeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-reply:
		return res.value, res.err
	case <-timer.C:
		req.abandoned.Store(true)
		return nil, ErrTimeout
	case <-c.closed:
		return nil, ErrClosed
	}
}

// doNoReply sends a fire-and-forget request (spec.md §6,
// "no_response_operation").
func (c *Connection) doNoReply(op proto.Op, frame []byte) error {
	scope, ok := proto.ScopeOf(op)
	if !ok {
		return fmt.Errorf("orientgo: unknown op %d", op)
	}
	if scope != c.scope {
		return ErrWrongScope
	}
	select {
	case c.noReply <- frame:
		return nil
	case <-c.closed:
		return ErrClosed
	}
}

// Stop transitions the connection to Draining: already-queued callers
// receive Closed, the socket is closed, and no further calls are accepted
// (spec.md §4.4, "Draining").
func (c *Connection) Stop() {
	if State(c.state.Load()) == StateDisconnected {
		return
	}
	done := make(chan struct{})
	select {
	case c.stop <- done:
		<-done
	case <-c.closed:
	}
}

// State reports the connection's current lifecycle state.
func (c *Connection) State() State { return State(c.state.Load()) }

// Schema returns the currently cached schema, or nil if none has been
// fetched (server-scope sessions never populate one).
func (c *Connection) Schema() *record.Schema { return c.schemaMu.Load() }

// FetchSchema re-fetches and replaces the cached schema (spec.md §6,
// "fetch_schema()").
func (c *Connection) FetchSchema(ctx context.Context) error {
	rid := record.RID{Cluster: 0, Position: 1}
	frame := proto.EncodeRecordLoad(c.sessionID.Load(), rid, "*:-1", true, false)

	schema := c.schemaMu.Load()
	decode := func(tail []byte) (any, []byte, error) {
		res, rest, err := proto.DecodeRecordLoadResponse(tail, schema)
		return res, rest, err
	}

	v, err := c.do(proto.OpRecordLoad, frame, decode, 0)
	if err != nil {
		c.logger.Printf("orientgo[%s]: schema refetch failed: %v", c.id, err)
		return err
	}
	res, _ := v.(*proto.RecordResult)
	if res == nil || res.Doc == nil {
		c.logger.Printf("orientgo[%s]: schema refetch failed: record #0:1 not found", c.id)
		return errors.New("orientgo: schema fetch: record #0:1 not found")
	}
	newSchema, err := record.FromSchemaDocument(res.Doc)
	if err != nil {
		c.logger.Printf("orientgo[%s]: schema refetch failed: %v", c.id, err)
		return err
	}
	c.schemaMu.Store(newSchema)
	c.logger.Printf("orientgo[%s]: schema refetched, %d global properties", c.id, newSchema.Len())
	return nil
}
