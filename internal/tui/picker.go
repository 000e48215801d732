// Package tui implements the interactive window picker.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbletea"

	"github.com/flashtoggle/flashtoggle/internal/config"
	"github.com/flashtoggle/flashtoggle/internal/ipc"
	"github.com/flashtoggle/flashtoggle/internal/platform"
	"github.com/flashtoggle/flashtoggle/internal/search"
	"github.com/flashtoggle/flashtoggle/internal/window"
)

// Client is the daemon surface the picker needs. *ipc.Client satisfies it.
type Client interface {
	List() ([]window.Record, error)
	Search(query string, limit int) (*ipc.SearchData, error)
	Activate(h platform.Handle) (bool, error)
	SetTags(h platform.Handle, tags string) error
}

// Options configures the picker.
type Options struct {
	// Delay debounces searches while typing.
	Delay      time.Duration
	MaxResults int
	Display    config.DisplayConfig
}

type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Activate key.Binding
	EditTags key.Binding
	Cancel   key.Binding
	Quit     key.Binding
}

var keys = keyMap{
	Up:       key.NewBinding(key.WithKeys("up", "ctrl+p", "ctrl+k")),
	Down:     key.NewBinding(key.WithKeys("down", "ctrl+n", "ctrl+j")),
	Activate: key.NewBinding(key.WithKeys("enter")),
	EditTags: key.NewBinding(key.WithKeys("ctrl+t")),
	Cancel:   key.NewBinding(key.WithKeys("esc")),
	Quit:     key.NewBinding(key.WithKeys("ctrl+c")),
}

// searchTickMsg fires when the debounce delay for query seq has elapsed.
type searchTickMsg struct{ seq int }

type resultsMsg struct {
	seq     int
	results []search.Result
	err     error
}

type activatedMsg struct {
	handle platform.Handle
	ok     bool
	err    error
}

type tagsSavedMsg struct {
	handle platform.Handle
	tags   string
	err    error
}

// model is the bubbletea model for the picker.
type model struct {
	client Client
	opts   Options

	query textinput.Model
	tags  textinput.Model

	// seq increments on every query edit; stale ticks and results are
	// dropped by comparing against it.
	seq     int
	results []search.Result
	cursor  int

	editing bool
	status  string
	err     error

	width  int
	height int
}

func newModel(client Client, opts Options) model {
	if opts.Delay < 0 {
		opts.Delay = 0
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = config.DefaultConfig().MaxResults
	}

	q := textinput.New()
	q.Prompt = "❯ "
	q.Placeholder = "type to search windows, pinyin works too"
	q.Focus()

	t := textinput.New()
	t.Prompt = "tags: "
	t.Placeholder = "space-separated tags"

	return model{client: client, opts: opts, query: q, tags: t}
}

// Init implements tea.Model.
func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.runSearch())
}

// Update implements tea.Model.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case searchTickMsg:
		if msg.seq != m.seq {
			return m, nil
		}
		return m, m.runSearch()

	case resultsMsg:
		if msg.seq != m.seq {
			return m, nil
		}
		m.err = msg.err
		if msg.err == nil {
			m.results = msg.results
		}
		if m.cursor >= len(m.results) {
			m.cursor = max(len(m.results)-1, 0)
		}
		return m, nil

	case activatedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		if !msg.ok {
			m.status = fmt.Sprintf("could not activate %s", msg.handle)
			return m, nil
		}
		return m, tea.Quit

	case tagsSavedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		for i := range m.results {
			if m.results[i].Handle == msg.handle {
				m.results[i].Tags = msg.tags
			}
		}
		m.status = "tags saved"
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			return m, tea.Quit
		}
		if m.editing {
			return m.updateTags(msg)
		}
		return m.updateQuery(msg)
	}

	return m, nil
}

func (m model) updateQuery(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Cancel):
		return m, tea.Quit
	case key.Matches(msg, keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case key.Matches(msg, keys.Down):
		if m.cursor < len(m.results)-1 {
			m.cursor++
		}
		return m, nil
	case key.Matches(msg, keys.Activate):
		sel, ok := m.selected()
		if !ok {
			return m, nil
		}
		return m, m.activate(sel.Handle)
	case key.Matches(msg, keys.EditTags):
		sel, ok := m.selected()
		if !ok {
			return m, nil
		}
		m.editing = true
		m.status = ""
		m.tags.SetValue(sel.Tags)
		m.tags.CursorEnd()
		m.query.Blur()
		return m, m.tags.Focus()
	}

	before := m.query.Value()
	var cmd tea.Cmd
	m.query, cmd = m.query.Update(msg)
	if m.query.Value() == before {
		return m, cmd
	}
	m.seq++
	m.cursor = 0
	m.status = ""
	return m, tea.Batch(cmd, m.debounce())
}

func (m model) updateTags(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Cancel):
		m.editing = false
		m.tags.Blur()
		return m, m.query.Focus()
	case key.Matches(msg, keys.Activate):
		sel, ok := m.selected()
		m.editing = false
		m.tags.Blur()
		m.query.Focus()
		if !ok {
			return m, nil
		}
		return m, m.saveTags(sel.Handle, m.tags.Value())
	}

	var cmd tea.Cmd
	m.tags, cmd = m.tags.Update(msg)
	return m, cmd
}

func (m model) selected() (search.Result, bool) {
	if m.cursor < 0 || m.cursor >= len(m.results) {
		return search.Result{}, false
	}
	return m.results[m.cursor], true
}

func (m model) debounce() tea.Cmd {
	seq := m.seq
	if m.opts.Delay == 0 {
		return func() tea.Msg { return searchTickMsg{seq: seq} }
	}
	return tea.Tick(m.opts.Delay, func(time.Time) tea.Msg {
		return searchTickMsg{seq: seq}
	})
}

// runSearch queries the daemon for the current input. An empty query lists
// every window.
func (m model) runSearch() tea.Cmd {
	seq := m.seq
	query := m.query.Value()
	client := m.client
	limit := m.opts.MaxResults
	return func() tea.Msg {
		if len(search.ParseQuery(query)) == 0 {
			records, err := client.List()
			if err != nil {
				return resultsMsg{seq: seq, err: err}
			}
			if len(records) > limit {
				records = records[:limit]
			}
			results := make([]search.Result, 0, len(records))
			for _, rec := range records {
				results = append(results, search.Result{Record: rec})
			}
			return resultsMsg{seq: seq, results: results}
		}
		data, err := client.Search(query, limit)
		if err != nil {
			return resultsMsg{seq: seq, err: err}
		}
		return resultsMsg{seq: seq, results: data.Results}
	}
}

func (m model) activate(h platform.Handle) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ok, err := client.Activate(h)
		return activatedMsg{handle: h, ok: ok, err: err}
	}
}

func (m model) saveTags(h platform.Handle, raw string) tea.Cmd {
	client := m.client
	tags := strings.Join(strings.Fields(raw), " ")
	return func() tea.Msg {
		return tagsSavedMsg{handle: h, tags: tags, err: client.SetTags(h, tags)}
	}
}

// Run shows the picker until a window is activated or the user quits.
func Run(client Client, opts Options) error {
	p := tea.NewProgram(newModel(client, opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
