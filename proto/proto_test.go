package proto_test

import (
	"bytes"
	"testing"

	"github.com/mickamy/orientgo/proto"
)

// TestHandshakeScenario reproduces spec.md §8 scenario (a) literally.
func TestHandshakeScenario(t *testing.T) {
	req := proto.EncodeConnect("x", "0", 0x001C, "", "root", "root")

	wantPrefix := []byte{byte(proto.OpConnect), 0xFF, 0xFF, 0xFF, 0xFF}
	if !bytes.Equal(req[:5], wantPrefix) {
		t.Fatalf("request prefix = % x, want % x", req[:5], wantPrefix)
	}

	resp := []byte{0x00, 0x00, 0x00, 0x00, 0x2A, 0xFF, 0xFF, 0xFF, 0xFF}
	res, rest, err := proto.DecodeConnectResponse(resp)
	if err != nil {
		t.Fatalf("DecodeConnectResponse: %v", err)
	}
	if len(rest) != 0 {
		t.Fatalf("rest = %d bytes, want 0", len(rest))
	}
	if res.SessionID != 42 {
		t.Fatalf("SessionID = %d, want 42", res.SessionID)
	}
	if res.Token != nil {
		t.Fatalf("Token = %v, want nil", res.Token)
	}
}

// TestDBSizeScenario reproduces spec.md §8 scenario (b).
func TestDBSizeScenario(t *testing.T) {
	req := proto.EncodeDBSize(42)
	want := append([]byte{0x08}, 0x00, 0x00, 0x00, 0x2A)
	if !bytes.Equal(req, want) {
		t.Fatalf("request = % x, want % x", req, want)
	}

	resp := []byte{0x00, 0x00, 0x00, 0x00, 0x2A, 0x00, 0x00, 0x00, 0x00, 0x00, 0x10, 0x00, 0x00}
	got, rest, err := proto.DecodeDBSizeResponse(resp)
	if err != nil {
		t.Fatalf("DecodeDBSizeResponse: %v", err)
	}
	if len(rest) != 0 {
		t.Fatalf("rest = %d bytes, want 0", len(rest))
	}
	if got != 1_048_576 {
		t.Fatalf("got %d, want 1048576", got)
	}
}

func TestScopeOf(t *testing.T) {
	serverOps := []proto.Op{proto.OpShutdown, proto.OpConnect, proto.OpDBCreate, proto.OpDBExist, proto.OpDBDrop, proto.OpDBList}
	for _, op := range serverOps {
		scope, ok := proto.ScopeOf(op)
		if !ok || scope != proto.ScopeServer {
			t.Fatalf("ScopeOf(%d) = %v, %v; want ScopeServer, true", op, scope, ok)
		}
	}

	dbOps := []proto.Op{proto.OpDBOpen, proto.OpDBClose, proto.OpDBSize, proto.OpRecordLoad, proto.OpCommand, proto.OpTxCommit}
	for _, op := range dbOps {
		scope, ok := proto.ScopeOf(op)
		if !ok || scope != proto.ScopeDatabase {
			t.Fatalf("ScopeOf(%d) = %v, %v; want ScopeDatabase, true", op, scope, ok)
		}
	}
}
