package orientgo

import "time"

// Target selects whether a Connection authenticates against the server
// itself or against a specific database (spec.md §3, "target = Server |
// Database(name, kind)").
type Target struct {
	Database string // empty means Server scope
	Kind     DatabaseKind
}

// DatabaseKind is the storage model a database was created with.
type DatabaseKind string

const (
	KindGraph    DatabaseKind = "graph"
	KindDocument DatabaseKind = "document"
)

// IsServer reports whether t selects the server scope.
func (t Target) IsServer() bool { return t.Database == "" }

// Config holds everything needed to dial and authenticate a Connection
// (spec.md §6, "Configuration options (exhaustive)").
type Config struct {
	Host string
	Port int

	User     string
	Password string

	Target Target

	// Timeout is the default per-call deadline; zero means 5s (spec.md §6).
	Timeout time.Duration

	// MinProtocol is the lowest server protocol version this client
	// accepts; zero means 28 (spec.md §6, "Environment").
	MinProtocol int16

	// ClientName, DriverVersion and ClientID are sent verbatim during the
	// handshake (spec.md §4.3).
	ClientName    string
	DriverVersion string
	ClientID      string

	// SocketOpts carries additional transport knobs (spec.md §6).
	SocketOpts SocketOpts
}

// SocketOpts are transport-level tuning knobs applied at connect time.
type SocketOpts struct {
	// SendBufferSize and RecvBufferSize, if non-zero, are requested as
	// given via SetWriteBuffer/SetReadBuffer on the underlying TCP
	// connection. They are not compared with the kernel's current buffer
	// sizes, and zero leaves the kernel defaults in place.
	SendBufferSize int
	RecvBufferSize int
}

const (
	defaultTimeout     = 5 * time.Second
	defaultMinProtocol = int16(28)
)

func (c Config) withDefaults() Config {
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
	if c.MinProtocol == 0 {
		c.MinProtocol = defaultMinProtocol
	}
	if c.ClientName == "" {
		c.ClientName = "orientgo"
	}
	if c.DriverVersion == "" {
		c.DriverVersion = "0"
	}
	return c
}
