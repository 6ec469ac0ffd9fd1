// Command orient-cli is an interactive OrientDB binary-protocol client: it
// connects to a server or database and lets the user run SQL commands
// against it through a terminal session browser.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mickamy/orientgo"
	"github.com/mickamy/orientgo/internal/tui"
)

var version = "dev"

func main() {
	fs := flag.NewFlagSet("orient-cli", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "orient-cli — interactive OrientDB binary-protocol client\n\nUsage:\n  orient-cli [flags]\n\nFlags:\n")
		fs.PrintDefaults()
	}

	host := fs.String("host", "127.0.0.1", "server host")
	port := fs.Int("port", 2424, "server port")
	user := fs.String("user", "root", "username")
	password := fs.String("password", "", "password")
	passwordEnv := fs.String("password-env", "ORIENTDB_PASSWORD", "environment variable holding the password, used if -password is empty")
	db := fs.String("db", "", "database name; empty connects at server scope")
	dbKind := fs.String("db-kind", "document", "database kind: document or graph")
	timeout := fs.Duration("timeout", 5*time.Second, "per-call timeout")
	minProtocol := fs.Int("min-protocol", 28, "minimum accepted server protocol version")
	showVersion := fs.Bool("version", false, "show version and exit")

	_ = fs.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("orient-cli %s\n", version)
		return
	}

	pw := *password
	if pw == "" {
		pw = os.Getenv(*passwordEnv)
	}

	var kind orientgo.DatabaseKind
	switch *dbKind {
	case "graph":
		kind = orientgo.KindGraph
	case "document":
		kind = orientgo.KindDocument
	default:
		fmt.Fprintf(os.Stderr, "orient-cli: unsupported -db-kind %q\n", *dbKind)
		os.Exit(1)
	}

	cfg := orientgo.Config{
		Host:        *host,
		Port:        *port,
		User:        *user,
		Password:    pw,
		Target:      orientgo.Target{Database: *db, Kind: kind},
		Timeout:     *timeout,
		MinProtocol: int16(*minProtocol),
	}

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "orient-cli: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg orientgo.Config) error {
	p := tea.NewProgram(tui.New(cfg), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
