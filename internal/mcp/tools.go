package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/flashtoggle/flashtoggle/internal/platform"
	"github.com/flashtoggle/flashtoggle/internal/search"
	"github.com/flashtoggle/flashtoggle/internal/window"
)

func toWindowInfo(rec window.Record) WindowInfo {
	info := WindowInfo{
		Handle:      uint64(rec.Handle),
		Title:       rec.Title,
		ProcessName: rec.ProcessName,
		DesktopID:   rec.DesktopID,
		Minimized:   rec.IsMinimized,
		Tags:        rec.Tags,
	}
	if rec.ActiveEver() {
		info.LastActive = rec.LastActive.Format(time.RFC3339)
	}
	return info
}

func requireHandle(h uint64) (platform.Handle, error) {
	if h == 0 {
		return 0, fmt.Errorf("handle is required")
	}
	return platform.Handle(h), nil
}

func (s *Server) handleListWindows(_ context.Context, _ *mcpsdk.CallToolRequest, args ListWindowsInput) (*mcpsdk.CallToolResult, ListWindowsOutput, error) {
	records, err := s.daemon.List()
	if err != nil {
		return nil, ListWindowsOutput{}, err
	}

	filter := strings.ToLower(strings.TrimSpace(args.Process))
	out := ListWindowsOutput{Windows: make([]WindowInfo, 0, len(records))}
	for _, rec := range records {
		if filter != "" && !strings.Contains(strings.ToLower(rec.ProcessName), filter) {
			continue
		}
		out.Windows = append(out.Windows, toWindowInfo(rec))
	}
	return nil, out, nil
}

func (s *Server) handleSearchWindows(_ context.Context, _ *mcpsdk.CallToolRequest, args SearchWindowsInput) (*mcpsdk.CallToolResult, SearchWindowsOutput, error) {
	if len(search.ParseQuery(args.Query)) == 0 {
		return nil, SearchWindowsOutput{}, fmt.Errorf("query must contain at least one keyword")
	}
	if args.Limit < 0 {
		return nil, SearchWindowsOutput{}, fmt.Errorf("limit must be >= 0")
	}

	data, err := s.daemon.Search(args.Query, args.Limit)
	if err != nil {
		return nil, SearchWindowsOutput{}, err
	}
	out := SearchWindowsOutput{Query: data.Query, Results: make([]WindowInfo, 0, len(data.Results))}
	for _, res := range data.Results {
		info := toWindowInfo(res.Record)
		info.MatchCount = res.MatchCount
		out.Results = append(out.Results, info)
	}
	return nil, out, nil
}

func (s *Server) handleActivateWindow(_ context.Context, _ *mcpsdk.CallToolRequest, args HandleInput) (*mcpsdk.CallToolResult, ActivateOutput, error) {
	h, err := requireHandle(args.Handle)
	if err != nil {
		return nil, ActivateOutput{}, err
	}
	ok, err := s.daemon.Activate(h)
	if err != nil {
		return nil, ActivateOutput{}, err
	}
	s.logger.Info("mcp activate", "handle", h, "activated", ok)
	return nil, ActivateOutput{Handle: args.Handle, Activated: ok}, nil
}

func (s *Server) handleSetWindowTags(_ context.Context, _ *mcpsdk.CallToolRequest, args SetTagsInput) (*mcpsdk.CallToolResult, SetTagsOutput, error) {
	h, err := requireHandle(args.Handle)
	if err != nil {
		return nil, SetTagsOutput{}, err
	}
	tags := strings.Join(strings.Fields(args.Tags), " ")
	if err := s.daemon.SetTags(h, tags); err != nil {
		return nil, SetTagsOutput{}, err
	}
	return nil, SetTagsOutput{Handle: args.Handle, Tags: tags}, nil
}

func (s *Server) handleGetHistory(_ context.Context, _ *mcpsdk.CallToolRequest, _ HistoryInput) (*mcpsdk.CallToolResult, HistoryOutput, error) {
	data, err := s.daemon.History()
	if err != nil {
		return nil, HistoryOutput{}, err
	}
	out := HistoryOutput{Cursor: data.Cursor, Entries: make([]HistoryItem, 0, len(data.Entries))}
	for _, e := range data.Entries {
		out.Entries = append(out.Entries, HistoryItem{
			Index:       e.Index,
			Handle:      uint64(e.Handle),
			Title:       e.Title,
			ProcessName: e.ProcessName,
			Current:     e.Current,
			Alive:       e.Alive,
		})
	}
	return nil, out, nil
}

func (s *Server) handleHistoryBack(_ context.Context, _ *mcpsdk.CallToolRequest, _ JumpInput) (*mcpsdk.CallToolResult, JumpOutput, error) {
	return s.jump(s.daemon.Back)
}

func (s *Server) handleHistoryForward(_ context.Context, _ *mcpsdk.CallToolRequest, _ JumpInput) (*mcpsdk.CallToolResult, JumpOutput, error) {
	return s.jump(s.daemon.Forward)
}

func (s *Server) jump(fn func() (bool, error)) (*mcpsdk.CallToolResult, JumpOutput, error) {
	moved, err := fn()
	if err != nil {
		return nil, JumpOutput{}, err
	}
	data, err := s.daemon.History()
	if err != nil {
		return nil, JumpOutput{}, err
	}
	return nil, JumpOutput{Moved: moved, Cursor: data.Cursor}, nil
}

func (s *Server) handleListPinned(_ context.Context, _ *mcpsdk.CallToolRequest, _ PinnedInput) (*mcpsdk.CallToolResult, PinnedOutput, error) {
	windows, err := s.daemon.PinList()
	if err != nil {
		return nil, PinnedOutput{}, err
	}
	out := PinnedOutput{Windows: make([]PinnedInfo, 0, len(windows))}
	for _, w := range windows {
		out.Windows = append(out.Windows, PinnedInfo{
			Handle:  uint64(w.Handle),
			Title:   w.Title,
			Process: w.Process,
			Hotkey:  w.Hotkey,
			Hidden:  w.Hidden,
			Topmost: w.Topmost,
		})
	}
	return nil, out, nil
}

func (s *Server) handleTogglePinned(_ context.Context, _ *mcpsdk.CallToolRequest, args HandleInput) (*mcpsdk.CallToolResult, TogglePinnedOutput, error) {
	h, err := requireHandle(args.Handle)
	if err != nil {
		return nil, TogglePinnedOutput{}, err
	}
	hidden, err := s.daemon.PinToggle(h)
	if err != nil {
		return nil, TogglePinnedOutput{}, err
	}
	return nil, TogglePinnedOutput{Handle: args.Handle, Hidden: hidden}, nil
}
