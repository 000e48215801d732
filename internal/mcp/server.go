// Package mcp exposes the window index to MCP clients over stdio. Every tool
// is a thin call into the running daemon.
package mcp

import (
	"context"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/flashtoggle/flashtoggle/internal/ipc"
	"github.com/flashtoggle/flashtoggle/internal/pinned"
	"github.com/flashtoggle/flashtoggle/internal/platform"
	"github.com/flashtoggle/flashtoggle/internal/window"
)

const (
	ServerName    = "flashtoggle"
	ServerVersion = "0.1.0"
)

// Daemon is the subset of the IPC client the tools use.
type Daemon interface {
	List() ([]window.Record, error)
	Search(query string, limit int) (*ipc.SearchData, error)
	Activate(h platform.Handle) (bool, error)
	SetTags(h platform.Handle, tags string) error
	History() (*ipc.HistoryData, error)
	Back() (bool, error)
	Forward() (bool, error)
	PinList() ([]pinned.Window, error)
	PinToggle(h platform.Handle) (bool, error)
}

var _ Daemon = (*ipc.Client)(nil)

// Server is the MCP server for window switching.
type Server struct {
	mcpServer *mcpsdk.Server
	daemon    Daemon
	logger    *slog.Logger
}

// NewServer creates a server that forwards tool calls to daemon.
func NewServer(daemon Daemon, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{daemon: daemon, logger: logger}
	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)
	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_windows",
		Description: "List every switchable top-level window known to the flashtoggle daemon, in enumeration order. Optionally filter by process name.",
	}, s.handleListWindows)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "search_windows",
		Description: "Search windows by keywords. A window matches when at least one keyword appears in its title or tags, directly or via the pinyin of Chinese text. Results are ranked by number of matched keywords, then by most recent activation.",
	}, s.handleSearchWindows)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "activate_window",
		Description: "Bring a window to the foreground, switching virtual desktops if needed. The activation is recorded in the history.",
	}, s.handleActivateWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "set_window_tags",
		Description: "Replace the search tags of a window. Tags are remembered by process name and title and restored when the window reopens.",
	}, s.handleSetWindowTags)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_history",
		Description: "Return the activation history, oldest first, with the current cursor position.",
	}, s.handleGetHistory)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "history_back",
		Description: "Activate the previous window in the activation history. Closed windows are skipped and dropped.",
	}, s.handleHistoryBack)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "history_forward",
		Description: "Activate the next window in the activation history. Closed windows are skipped and dropped.",
	}, s.handleHistoryForward)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_pinned",
		Description: "List windows captured for quick hide/show toggling.",
	}, s.handleListPinned)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "toggle_pinned",
		Description: "Hide a visible pinned window, or show and activate a hidden one.",
	}, s.handleTogglePinned)
}
