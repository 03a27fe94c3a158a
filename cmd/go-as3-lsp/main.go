package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"strings"

	"github.com/sourcegraph/jsonrpc2"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/CWBudde/go-as3-lsp/internal/lsp"
	"github.com/CWBudde/go-as3-lsp/internal/server"
)

var (
	tcpMode  bool
	tcpPort  int
	logLevel string
	logFile  string
	indexDir string
	workers  int
)

var log = commonlog.GetLogger("as3-lsp.main")

func init() {
	// Command-line flags
	flag.BoolVar(&tcpMode, "tcp", false, "Run server in TCP mode (for debugging)")
	flag.IntVar(&tcpPort, "port", 8765, "TCP port to listen on (used with -tcp)")
	flag.StringVar(&logLevel, "log-level", "error", "Log level: debug, info, warn, error")
	flag.StringVar(&logFile, "log-file", "", "Log file path (default: stderr)")
	flag.StringVar(&indexDir, "index-dir", "", "Directory for the persistent symbol index (default: in memory)")
	flag.IntVar(&workers, "workers", 0, "Maximum number of requests handled in parallel (default: number of CPUs)")
	flag.Usage = usage
}

func usage() {
	fmt.Fprintf(os.Stderr, "go-as3-lsp version %s\n\n", lsp.Version)
	fmt.Fprintf(os.Stderr, "Usage: go-as3-lsp [options]\n\n")
	fmt.Fprintf(os.Stderr, "Language Server Protocol implementation for ActionScript 3 and MXML\n\n")
	fmt.Fprintf(os.Stderr, "Options:\n")
	flag.PrintDefaults()
}

func main() {
	flag.Parse()

	// Print version if requested
	if flag.NArg() > 0 && flag.Arg(0) == "version" {
		fmt.Printf("go-as3-lsp version %s\n", lsp.Version)
		os.Exit(0)
	}

	setupLogging()

	transport := "STDIO"
	if tcpMode {
		transport = fmt.Sprintf("TCP (port %d)", tcpPort)
	}

	log.Noticef("go-as3-lsp version %s starting, transport %s", lsp.Version, transport)

	if tcpMode {
		if err := serveTCP(fmt.Sprintf("127.0.0.1:%d", tcpPort)); err != nil {
			fmt.Fprintf(os.Stderr, "TCP server error: %v\n", err)
			os.Exit(1)
		}

		return
	}

	serve(stdio{})
}

// verbosity maps a -log-level name to a commonlog verbosity.
func verbosity(level string) int {
	switch strings.ToLower(level) {
	case "debug":
		return 2
	case "info":
		return 1
	case "warn", "warning":
		return -1
	}

	return -2
}

// setupLogging configures the logging system based on command-line flags.
func setupLogging() {
	var path *string

	if logFile != "" {
		// Fail early rather than losing the log.
		f, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
			os.Exit(1)
		}

		f.Close()

		path = &logFile
	}

	commonlog.Configure(verbosity(logLevel), path)
}

// newServer creates the server state for one client connection.
func newServer() *server.Server {
	srv := server.New()

	srv.UpdateConfig(func(cfg *server.Config) {
		if workers > 0 {
			cfg.Workers = workers
		}

		cfg.IndexDir = indexDir
	})

	return srv
}

// serve runs the language server on rwc until the client disconnects.
func serve(rwc io.ReadWriteCloser) {
	srv := newServer()
	lsp.SetServer(srv)

	dispatcher := lsp.NewDispatcher(lsp.Handler(), srv.Config().Workers)
	stream := jsonrpc2.NewBufferedStream(rwc, jsonrpc2.VSCodeObjectCodec{})
	conn := jsonrpc2.NewConn(context.Background(), stream, dispatcher)

	<-conn.DisconnectNotify()

	dispatcher.Wait()

	if err := srv.Workspace().Shutdown(); err != nil {
		log.Warningf("shutting down workspace: %s", err)
	}

	log.Info("client disconnected")
}

// serveTCP accepts one client at a time.
func serveTCP(address string) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return err
	}
	defer listener.Close()

	log.Noticef("listening on %s", address)

	for {
		conn, err := listener.Accept()
		if err != nil {
			return err
		}

		log.Infof("client connected from %s", conn.RemoteAddr())
		serve(conn)
	}
}

type stdio struct{}

func (stdio) Read(p []byte) (int, error) { return os.Stdin.Read(p) }

func (stdio) Write(p []byte) (int, error) { return os.Stdout.Write(p) }

func (stdio) Close() error {
	if err := os.Stdin.Close(); err != nil {
		return err
	}

	return os.Stdout.Close()
}
