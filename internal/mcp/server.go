package mcp

import (
	"context"
	"fmt"
	"log/slog"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/nvandessel/selfwatch/internal/host"
	"github.com/nvandessel/selfwatch/internal/logging"
	"github.com/nvandessel/selfwatch/internal/pathutil"
	"github.com/nvandessel/selfwatch/internal/ratelimit"
	"github.com/nvandessel/selfwatch/internal/shutdown"
	"github.com/nvandessel/selfwatch/internal/store"
)

// Server wraps the MCP SDK server and answers queries about a running engine.
type Server struct {
	server       *sdk.Server
	pub          *host.Publisher
	recorder     store.Recorder
	toolLimiters ratelimit.ToolLimiters
	auditLogger  *AuditLogger
	exportDirs   pathutil.Dirs
	logger       *slog.Logger
}

// Config holds server configuration.
type Config struct {
	Name    string // Server name (e.g., "selfwatch")
	Version string // Server version

	// Publisher supplies live snapshots. Required.
	Publisher *host.Publisher

	// Recorder serves recorded runs. Optional; the server does not close it.
	Recorder store.Recorder

	// AuditDir receives audit.jsonl. Empty disables auditing.
	AuditDir string

	// ExportDirs are the directories selfwatch_export may write to. Relative
	// file names resolve against the first. The tool needs a Recorder and at
	// least one directory.
	ExportDirs pathutil.Dirs

	Logger *slog.Logger
}

// NewServer creates a new MCP server with selfwatch tools.
func NewServer(cfg *Config) (*Server, error) {
	if cfg.Publisher == nil {
		return nil, fmt.Errorf("mcp server needs a publisher")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	mcpServer := sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, &sdk.ServerOptions{
		InitializedHandler: func(ctx context.Context, req *sdk.InitializedRequest) {
			logger.Debug("mcp client initialized")
		},
	})

	s := &Server{
		server:       mcpServer,
		pub:          cfg.Publisher,
		recorder:     cfg.Recorder,
		toolLimiters: ratelimit.NewToolLimiters(),
		exportDirs:   cfg.ExportDirs,
		logger:       logger,
	}
	if cfg.AuditDir != "" {
		s.auditLogger = NewAuditLogger(cfg.AuditDir)
	}

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Run starts the MCP server over stdio transport.
// This blocks until the client disconnects, the context is cancelled or
// the process receives an interrupt.
func (s *Server) Run(ctx context.Context) error {
	ctx, stop := shutdown.Context(ctx)
	defer stop()

	err := s.server.Run(ctx, &sdk.StdioTransport{})
	s.auditLogger.Close()
	return err
}

// Close releases the audit log.
func (s *Server) Close() error {
	return s.auditLogger.Close()
}
