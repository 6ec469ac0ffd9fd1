//go:build integration

package orientgo_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/mickamy/orientgo"
)

const (
	testUser     = "root"
	testPassword = "rootpwd"
)

// startOrientDB launches an OrientDB container and returns its host:port
// address. OrientDB has no first-party testcontainers module, so this uses
// testcontainers.GenericContainer directly.
func startOrientDB(t *testing.T) string {
	t.Helper()

	ctx := t.Context()
	req := testcontainers.ContainerRequest{
		Image:        "orientdb:3.2",
		ExposedPorts: []string{"2424/tcp"},
		Env: map[string]string{
			"ORIENTDB_ROOT_PASSWORD": testPassword,
		},
		WaitingFor: wait.ForListeningPort("2424/tcp").WithStartupTimeout(60 * time.Second),
	}
	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("start orientdb container: %v", err)
	}
	t.Cleanup(func() {
		if err := ctr.Terminate(context.Background()); err != nil {
			t.Logf("terminate orientdb container: %v", err)
		}
	})

	host, err := ctr.Host(ctx)
	if err != nil {
		t.Fatalf("get host: %v", err)
	}
	port, err := ctr.MappedPort(ctx, "2424/tcp")
	if err != nil {
		t.Fatalf("get port: %v", err)
	}
	return fmt.Sprintf("%s:%s", host, port.Port())
}

func dialTestServer(t *testing.T, addr string, target orientgo.Target) *orientgo.Connection {
	t.Helper()
	host, portStr := splitHostPort(t, addr)
	conn, err := orientgo.Dial(t.Context(), orientgo.Config{
		Host:     host,
		Port:     portStr,
		User:     testUser,
		Password: testPassword,
		Target:   target,
	})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(conn.Stop)
	return conn
}

func splitHostPort(t *testing.T, addr string) (string, int) {
	t.Helper()
	var host string
	var port int
	if _, err := fmt.Sscanf(addr, "%[^:]:%d", &host, &port); err != nil {
		t.Fatalf("split host:port %q: %v", addr, err)
	}
	return host, port
}

func TestServerScopeDBList(t *testing.T) {
	addr := startOrientDB(t)
	conn := dialTestServer(t, addr, orientgo.Target{})

	doc, err := conn.DBList(t.Context())
	if err != nil {
		t.Fatalf("DBList: %v", err)
	}
	if doc == nil {
		t.Fatalf("DBList returned nil document")
	}
}

func TestDatabaseLifecycleAndQuery(t *testing.T) {
	addr := startOrientDB(t)
	conn := dialTestServer(t, addr, orientgo.Target{})

	const dbName = "orientgo_it"
	if err := conn.DBCreate(t.Context(), dbName, orientgo.KindDocument, "plocal"); err != nil {
		t.Fatalf("DBCreate: %v", err)
	}
	t.Cleanup(func() {
		_ = conn.DBDrop(context.Background(), dbName, "plocal")
	})

	dbConn := dialTestServer(t, addr, orientgo.Target{Database: dbName, Kind: orientgo.KindDocument})

	size, err := dbConn.DBSize(t.Context())
	if err != nil {
		t.Fatalf("DBSize: %v", err)
	}
	if size < 0 {
		t.Fatalf("DBSize = %d, want >= 0", size)
	}

	docs, err := dbConn.Command(t.Context(), 'q', []byte("select from OUser limit 1"))
	if err != nil {
		t.Fatalf("Command: %v", err)
	}
	if len(docs) == 0 {
		t.Fatalf("expected at least one OUser document")
	}
}
