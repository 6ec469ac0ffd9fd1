package orientgo

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/mickamy/orientgo/record"
)

// dialServerScope writes the scripted protocol-version + connect
// response spec.md §8 (a) describes, then returns the connection and the
// server side of the pipe for further scripting.
func dialServerScope(t *testing.T) (*Connection, net.Conn) {
	t.Helper()
	client, server := net.Pipe()

	type dialResult struct {
		conn *Connection
		err  error
	}
	done := make(chan dialResult, 1)
	go func() {
		c, err := newConnection(client, Config{Host: "x", Port: 1, User: "root", Password: "root", Target: Target{}})
		done <- dialResult{c, err}
	}()

	// Protocol version.
	if _, err := server.Write([]byte{0x00, 0x1C}); err != nil {
		t.Fatalf("write version: %v", err)
	}
	// Drain the connect request (we don't assert its bytes here;
	// TestHandshakeScenario in the proto package checks its prefix).
	buf := make([]byte, 4096)
	n, err := server.Read(buf)
	if err != nil {
		t.Fatalf("read connect request: %v", err)
	}
	_ = n
	// Connect response: status 0, session id 42, null token.
	if _, err := server.Write([]byte{0x00, 0x00, 0x00, 0x00, 0x2A, 0xFF, 0xFF, 0xFF, 0xFF}); err != nil {
		t.Fatalf("write connect response: %v", err)
	}

	res := <-done
	if res.err != nil {
		t.Fatalf("newConnection: %v", res.err)
	}
	return res.conn, server
}

func TestHandshakeSetsSessionID(t *testing.T) {
	c, server := dialServerScope(t)
	defer server.Close()
	defer c.Stop()

	if got := c.sessionID.Load(); got != 42 {
		t.Fatalf("sessionID = %d, want 42", got)
	}
	if c.State() != StateReady {
		t.Fatalf("State = %v, want Ready", c.State())
	}
}

func TestDBSizeOnServerScopeIsWrongScope(t *testing.T) {
	c, server := dialServerScope(t)
	defer server.Close()
	defer c.Stop()

	// db_size isn't valid on a server-scope session; confirm WrongScope
	// fires synchronously without touching the wire.
	_, err := c.DBSize(context.Background())
	if !errors.Is(err, ErrWrongScope) {
		t.Fatalf("err = %v, want ErrWrongScope", err)
	}
}

func dialDBScope(t *testing.T) (*Connection, net.Conn) {
	t.Helper()
	client, server := net.Pipe()

	type dialResult struct {
		conn *Connection
		err  error
	}
	done := make(chan dialResult, 1)
	go func() {
		c, err := newConnection(client, Config{
			Host: "x", Port: 1, User: "root", Password: "root",
			Target: Target{Database: "test", Kind: KindDocument},
		})
		done <- dialResult{c, err}
	}()

	if _, err := server.Write([]byte{0x00, 0x1C}); err != nil {
		t.Fatalf("write version: %v", err)
	}
	buf := make([]byte, 4096)
	if _, err := server.Read(buf); err != nil {
		t.Fatalf("read db_open request: %v", err)
	}
	// db_open response: session 42, null token, zero clusters, empty release.
	resp := []byte{0x00, 0x00, 0x00, 0x00, 0x2A, 0xFF, 0xFF, 0xFF, 0xFF, 0x00, 0x00}
	resp = append(resp, 0xFF, 0xFF, 0xFF, 0xFF) // release string: null
	if _, err := server.Write(resp); err != nil {
		t.Fatalf("write db_open response: %v", err)
	}

	// Internal schema fetch: record_load #0:1. Respond with a schemaless
	// record carrying an empty globalProperties list.
	if _, err := server.Read(buf); err != nil {
		t.Fatalf("read schema fetch request: %v", err)
	}
	schemaDoc := record.New("")
	schemaDoc.Set("globalProperties", record.List(nil))
	content, err := record.Encode(schemaDoc, nil)
	if err != nil {
		t.Fatalf("encode schema doc: %v", err)
	}
	schemaResp := []byte{0x00, 0x00, 0x00, 0x00, 0x2A}
	schemaResp = append(schemaResp, 0x01)             // more=true
	schemaResp = append(schemaResp, 0x01)             // record type byte (unused)
	schemaResp = append(schemaResp, 0x00, 0x00, 0x00, 0x00) // version
	schemaResp = append(schemaResp, encodeLenPrefixed(content)...)
	schemaResp = append(schemaResp, 0x00) // no further "more" records
	if _, err := server.Write(schemaResp); err != nil {
		t.Fatalf("write schema response: %v", err)
	}

	res := <-done
	if res.err != nil {
		t.Fatalf("newConnection: %v", res.err)
	}
	return res.conn, server
}

func encodeLenPrefixed(b []byte) []byte {
	n := int32(len(b))
	return append([]byte{byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)}, b...)
}

func TestDBSizeOnDatabaseSession(t *testing.T) {
	c, server := dialDBScope(t)
	defer server.Close()
	defer c.Stop()

	resultCh := make(chan int64, 1)
	errCh := make(chan error, 1)
	go func() {
		v, err := c.DBSize(context.Background())
		resultCh <- v
		errCh <- err
	}()

	buf := make([]byte, 4096)
	if _, err := server.Read(buf); err != nil {
		t.Fatalf("read db_size request: %v", err)
	}
	resp := []byte{0x00, 0x00, 0x00, 0x00, 0x2A, 0x00, 0x00, 0x00, 0x00, 0x00, 0x10, 0x00, 0x00}
	if _, err := server.Write(resp); err != nil {
		t.Fatalf("write db_size response: %v", err)
	}

	if err := <-errCh; err != nil {
		t.Fatalf("DBSize: %v", err)
	}
	if got := <-resultCh; got != 1_048_576 {
		t.Fatalf("DBSize = %d, want 1048576", got)
	}
}

func TestPipelinedRepliesDeliveredInOrder(t *testing.T) {
	c, server := dialDBScope(t)
	defer server.Close()
	defer c.Stop()

	const n = 3
	type reply struct {
		idx int
		v   int64
		err error
	}
	replies := make(chan reply, n)

	// Issue the calls one at a time, waiting for each request to land
	// before starting the next, so call i is the i-th entry in the queue.
	// Then reply with one chunk carrying all three responses (spec.md §8,
	// scenario e).
	buf := make([]byte, 4096)
	got := 0
	for i := 0; i < n; i++ {
		go func(i int) {
			v, err := c.DBCountRecords(context.Background())
			replies <- reply{idx: i, v: v, err: err}
		}(i)
		for got < (i+1)*5 { // each db_countrecords request is 5 bytes (op + session id)
			k, err := server.Read(buf[got:])
			if err != nil {
				t.Fatalf("read requests: %v", err)
			}
			got += k
		}
	}

	var chunk []byte
	for i := int64(1); i <= 3; i++ {
		resp := []byte{0x00, 0x00, 0x00, 0x00, 0x2A}
		resp = append(resp, byte(i>>56), byte(i>>48), byte(i>>40), byte(i>>32), byte(i>>24), byte(i>>16), byte(i>>8), byte(i))
		chunk = append(chunk, resp...)
	}
	if _, err := server.Write(chunk); err != nil {
		t.Fatalf("write pipelined responses: %v", err)
	}

	sum := int64(0)
	for i := 0; i < n; i++ {
		r := <-replies
		if r.err != nil {
			t.Fatalf("DBCountRecords: %v", r.err)
		}
		if r.v != int64(r.idx+1) {
			t.Fatalf("call %d got reply %d, want %d", r.idx, r.v, r.idx+1)
		}
		sum += r.v
	}
	if sum != 1+2+3 {
		t.Fatalf("sum of replies = %d, want 6", sum)
	}
}

func TestAbruptCloseRepliesClosedToQueuedCallers(t *testing.T) {
	c, server := dialDBScope(t)

	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := c.DBSize(context.Background())
			errs <- err
		}()
	}

	buf := make([]byte, 4096)
	if _, err := server.Read(buf); err != nil {
		t.Fatalf("read request 1: %v", err)
	}
	if _, err := server.Read(buf); err != nil {
		t.Fatalf("read request 2: %v", err)
	}

	server.Close() // abrupt close mid-response

	for i := 0; i < 2; i++ {
		err := <-errs
		if !errors.Is(err, ErrClosed) {
			t.Fatalf("err = %v, want ErrClosed", err)
		}
	}

	select {
	case <-c.closed:
	case <-time.After(time.Second):
		t.Fatalf("connection never reached closed state")
	}
}

func TestTxCommitIDsAreMonotonic(t *testing.T) {
	c, server := dialDBScope(t)
	defer server.Close()
	defer c.Stop()

	seen := make(chan int32, 2)
	go func() {
		buf := make([]byte, 4096)
		for i := 0; i < 2; i++ {
			n, err := server.Read(buf)
			if err != nil {
				return
			}
			// op(1) + session(4) + txID(4): txID starts at offset 5.
			if n >= 9 {
				txID := int32(buf[5])<<24 | int32(buf[6])<<16 | int32(buf[7])<<8 | int32(buf[8])
				seen <- txID
			}
			resp := []byte{0x00, 0x00, 0x00, 0x00, 0x2A, 0x00, 0x00, 0x00, 0x00}
			_, _ = server.Write(resp)
		}
	}()

	if _, err := c.TxCommit(context.Background(), false, nil); err != nil {
		t.Fatalf("TxCommit 1: %v", err)
	}
	if _, err := c.TxCommit(context.Background(), false, nil); err != nil {
		t.Fatalf("TxCommit 2: %v", err)
	}

	first := <-seen
	second := <-seen
	if second <= first {
		t.Fatalf("txIDs not monotonic: %d then %d", first, second)
	}
}
