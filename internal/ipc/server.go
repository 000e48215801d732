package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/flashtoggle/flashtoggle/internal/pinned"
	"github.com/flashtoggle/flashtoggle/internal/platform"
	"github.com/flashtoggle/flashtoggle/internal/search"
	"github.com/flashtoggle/flashtoggle/internal/window"
)

// Service is the daemon surface exposed over IPC.
type Service interface {
	Status() StatusData
	Reload() error

	List() []window.Record
	Search(query string, limit int) []search.Result
	Activate(h platform.Handle) bool
	SetTags(h platform.Handle, tags string) error

	History() HistoryData
	JumpToPrevious() bool
	JumpToNext() bool
	ClearHistory()
	RemoveHistory(h platform.Handle) bool
	JumpToHistory(i int) bool

	PinList() []pinned.Window
	PinCapture() (pinned.Window, error)
	PinToggle(h platform.Handle) (bool, error)
	// PinTopmost toggles h, or the foreground window when h is 0.
	PinTopmost(h platform.Handle) (platform.Handle, bool, error)
	PinHotkey(h platform.Handle, hotkey string) error
	PinRelease(h platform.Handle) bool
}

const readTimeout = 5 * time.Second

// Server handles IPC requests from clients
type Server struct {
	socketPath   string
	listener     net.Listener
	svc          Service
	logger       *slog.Logger
	wg           sync.WaitGroup
	shuttingDown bool
	shutdownMu   sync.Mutex
}

// NewServer creates a new IPC server bound to socketPath.
func NewServer(socketPath string, svc Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		socketPath: socketPath,
		svc:        svc,
		logger:     logger,
	}
}

// Start begins listening for IPC connections
func (s *Server) Start() error {
	// Remove a stale socket left by a crashed daemon.
	os.Remove(s.socketPath)

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	if err := os.Chmod(s.socketPath, 0600); err != nil {
		s.logger.Warn("failed to set socket permissions", "path", s.socketPath, "error", err)
	}

	s.logger.Info("IPC server listening", "path", s.socketPath)

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

// SocketPath returns the listening socket path.
func (s *Server) SocketPath() string {
	return s.socketPath
}

// acceptLoop accepts incoming connections
func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.shutdownMu.Lock()
			if s.shuttingDown {
				s.shutdownMu.Unlock()
				return
			}
			s.shutdownMu.Unlock()
			s.logger.Warn("IPC accept error", "error", err)
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConnection(conn)
		}()
	}
}

// handleConnection handles a single IPC connection
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(readTimeout))

	reader := bufio.NewReader(conn)

	// Read the request (expect JSON on a single line)
	data, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		s.logger.Warn("IPC read error", "error", err)
		return
	}

	req, err := ParseRequest(data)
	if err != nil {
		s.sendError(conn, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	resp := s.dispatch(req)

	respData, err := resp.Marshal()
	if err != nil {
		s.logger.Error("failed to marshal response", "command", req.Command, "error", err)
		return
	}

	respData = append(respData, '\n')
	if _, err := conn.Write(respData); err != nil {
		s.logger.Warn("failed to send response", "command", req.Command, "error", err)
	}
}

// dispatch runs one command, converting panics into error responses.
func (s *Server) dispatch(req *Request) (resp *Response) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("IPC handler panic recovered", "command", req.Command, "error", r)
			resp = NewErrorResponse(fmt.Sprintf("internal error handling %s", req.Command))
		}
	}()
	s.logger.Debug("IPC request", "command", req.Command)
	return s.handleCommand(req)
}

// handleCommand processes an IPC command and returns a response
func (s *Server) handleCommand(req *Request) *Response {
	switch req.Command {
	case CommandPing:
		return ok(nil)
	case CommandGetStatus:
		return ok(s.svc.Status())
	case CommandReload:
		return s.handleReload()
	case CommandList:
		return ok(WindowsData{Windows: s.svc.List()})
	case CommandSearch:
		return s.handleSearch(req.Payload)
	case CommandActivate:
		return s.handleActivate(req.Payload)
	case CommandSetTags:
		return s.handleSetTags(req.Payload)
	case CommandHistory:
		return ok(s.svc.History())
	case CommandHistoryBack:
		return ok(ResultData{OK: s.svc.JumpToPrevious()})
	case CommandHistoryForward:
		return ok(ResultData{OK: s.svc.JumpToNext()})
	case CommandHistoryClear:
		s.svc.ClearHistory()
		return ok(nil)
	case CommandHistoryRemove:
		return s.handleHistoryRemove(req.Payload)
	case CommandHistoryJump:
		return s.handleHistoryJump(req.Payload)
	case CommandPinList:
		return ok(PinnedData{Windows: s.svc.PinList()})
	case CommandPinCapture:
		return s.handlePinCapture()
	case CommandPinToggle:
		return s.handlePinToggle(req.Payload)
	case CommandPinTopmost:
		return s.handlePinTopmost(req.Payload)
	case CommandPinHotkey:
		return s.handlePinHotkey(req.Payload)
	case CommandPinRelease:
		return s.handlePinRelease(req.Payload)
	default:
		return NewErrorResponse(fmt.Sprintf("Unknown command: %s", req.Command))
	}
}

func ok(data interface{}) *Response {
	resp, err := NewOKResponse(data)
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	return resp
}

func decode(payload json.RawMessage, v interface{}) error {
	if len(payload) == 0 {
		return fmt.Errorf("missing payload")
	}
	return json.Unmarshal(payload, v)
}

func (s *Server) handleReload() *Response {
	s.logger.Info("IPC: received RELOAD command")
	if err := s.svc.Reload(); err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to reload config: %v", err))
	}
	return ok(nil)
}

func (s *Server) handleSearch(payload json.RawMessage) *Response {
	var req SearchPayload
	if err := decode(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid search payload: %v", err))
	}
	return ok(SearchData{Query: req.Query, Results: s.svc.Search(req.Query, req.Limit)})
}

func (s *Server) handleActivate(payload json.RawMessage) *Response {
	var req HandlePayload
	if err := decode(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid activate payload: %v", err))
	}
	if req.Handle == 0 {
		return NewErrorResponse("handle is required")
	}
	return ok(ResultData{OK: s.svc.Activate(req.Handle), Handle: req.Handle})
}

func (s *Server) handleSetTags(payload json.RawMessage) *Response {
	var req SetTagsPayload
	if err := decode(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid tags payload: %v", err))
	}
	if err := s.svc.SetTags(req.Handle, req.Tags); err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to set tags: %v", err))
	}
	return ok(nil)
}

func (s *Server) handleHistoryRemove(payload json.RawMessage) *Response {
	var req HandlePayload
	if err := decode(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid history payload: %v", err))
	}
	return ok(ResultData{OK: s.svc.RemoveHistory(req.Handle), Handle: req.Handle})
}

func (s *Server) handleHistoryJump(payload json.RawMessage) *Response {
	var req HistoryJumpPayload
	if err := decode(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid history payload: %v", err))
	}
	return ok(ResultData{OK: s.svc.JumpToHistory(req.Index)})
}

func (s *Server) handlePinCapture() *Response {
	w, err := s.svc.PinCapture()
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to capture window: %v", err))
	}
	return ok(w)
}

func (s *Server) handlePinToggle(payload json.RawMessage) *Response {
	var req HandlePayload
	if err := decode(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid pin payload: %v", err))
	}
	hidden, err := s.svc.PinToggle(req.Handle)
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to toggle window: %v", err))
	}
	return ok(ToggleData{Handle: req.Handle, State: hidden})
}

func (s *Server) handlePinTopmost(payload json.RawMessage) *Response {
	var req HandlePayload
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &req); err != nil {
			return NewErrorResponse(fmt.Sprintf("Invalid pin payload: %v", err))
		}
	}
	h, topmost, err := s.svc.PinTopmost(req.Handle)
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to toggle topmost: %v", err))
	}
	return ok(ToggleData{Handle: h, State: topmost})
}

func (s *Server) handlePinHotkey(payload json.RawMessage) *Response {
	var req PinHotkeyPayload
	if err := decode(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid pin payload: %v", err))
	}
	if err := s.svc.PinHotkey(req.Handle, req.Hotkey); err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to set hotkey: %v", err))
	}
	return ok(nil)
}

func (s *Server) handlePinRelease(payload json.RawMessage) *Response {
	var req HandlePayload
	if err := decode(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid pin payload: %v", err))
	}
	return ok(ResultData{OK: s.svc.PinRelease(req.Handle), Handle: req.Handle})
}

// sendError sends an error response
func (s *Server) sendError(conn net.Conn, errMsg string) {
	resp := NewErrorResponse(errMsg)
	data, _ := resp.Marshal()
	data = append(data, '\n')
	conn.Write(data)
}

// Stop closes the listener, waits for in-flight requests and removes the
// socket.
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}
	s.wg.Wait()
	os.Remove(s.socketPath)
}
