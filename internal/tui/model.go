// Package tui is the terminal front end of the marketplace. It renders the
// server's state snapshots and turns key presses into API calls.
package tui

import (
	"context"
	"errors"
	"time"

	"ecoxchange/internal/client"
	"ecoxchange/structs"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

const requestTimeout = 2 * time.Minute

// API is the part of client.Client the terminal UI drives.
type API interface {
	SignIn(ctx context.Context) (structs.SignInResponse, error)
	State(ctx context.Context) (structs.StateResponse, error)
	ToggleView(ctx context.Context) (structs.StateResponse, error)
	UploadFile(ctx context.Context, path string) (structs.StateResponse, error)
	Submit(ctx context.Context) (structs.StateResponse, error)
	Search(ctx context.Context, query string) (structs.SearchResponse, error)
	Purchase(ctx context.Context, listingID string) (structs.PurchaseResponse, error)
}

var _ API = (*client.Client)(nil)

type (
	signedInMsg struct{ resp structs.SignInResponse }
	stateMsg    struct{ state structs.StateResponse }
	refreshMsg  struct{ state structs.StateResponse }
	searchMsg   struct{ resp structs.SearchResponse }
	purchaseMsg struct{ resp structs.PurchaseResponse }
	errMsg      struct{ err error }
)

// Model is the bubbletea model of the marketplace screen.
type Model struct {
	api    API
	styles Styles

	signedIn bool
	state    structs.StateResponse
	busy     bool
	alert    string
	notice   string

	fileInput   textinput.Model
	searchInput textinput.Model
	gauge       progress.Model
	width       int
}

func NewModel(api API) Model {
	file := textinput.New()
	file.Placeholder = "path/to/certificate.pdf"
	file.Prompt = "Document: "
	file.Cursor.SetMode(cursor.CursorStatic)

	search := textinput.New()
	search.Placeholder = "Search certificates..."
	search.Prompt = "> "
	search.Cursor.SetMode(cursor.CursorStatic)

	return Model{
		api:         api,
		styles:      DefaultStyles(),
		fileInput:   file,
		searchInput: search,
		gauge:       progress.New(progress.WithSolidFill(string(Green)), progress.WithWidth(40)),
		width:       80,
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.gauge.Width = max(10, min(msg.Width-8, 60))
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case signedInMsg:
		m.busy = false
		m.signedIn = true
		m.alert = ""
		m.applyState(msg.resp.State)
		return m, nil

	case stateMsg:
		m.busy = false
		m.alert = ""
		m.applyState(msg.state)
		return m, nil

	case refreshMsg:
		m.applyState(msg.state)
		return m, nil

	case searchMsg:
		m.busy = false
		m.alert = ""
		m.applyState(msg.resp.State)
		return m, nil

	case purchaseMsg:
		m.busy = false
		m.alert = ""
		m.notice = "Purchased " + msg.resp.Listing.Title + " for " + msg.resp.Listing.Price.String()
		m.applyState(msg.resp.State)
		return m, nil

	case errMsg:
		m.busy = false
		m.alert = errorText(msg.err)
		if m.signedIn {
			return m, m.refresh()
		}
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit
	}
	if m.busy {
		return m, nil
	}
	if !m.signedIn {
		if msg.String() == "enter" {
			m.busy = true
			return m, m.call(func(ctx context.Context) tea.Msg {
				resp, err := m.api.SignIn(ctx)
				if err != nil {
					return errMsg{err}
				}
				return signedInMsg{resp}
			})
		}
		return m, nil
	}

	switch msg.String() {
	case "tab":
		m.busy = true
		m.notice = ""
		return m, m.call(func(ctx context.Context) tea.Msg {
			st, err := m.api.ToggleView(ctx)
			if err != nil {
				return errMsg{err}
			}
			return stateMsg{st}
		})
	case "enter":
		m.busy = true
		m.notice = ""
		if m.buyer() {
			return m, m.search(m.searchInput.Value())
		}
		return m, m.submit(m.fileInput.Value())
	}

	if m.buyer() {
		if i, ok := listingKey(msg.String()); ok && m.searchInput.Value() == "" && i < len(m.state.Listings) {
			m.busy = true
			return m, m.purchase(m.state.Listings[i].ID)
		}
		var cmd tea.Cmd
		m.searchInput, cmd = m.searchInput.Update(msg)
		return m, cmd
	}
	var cmd tea.Cmd
	m.fileInput, cmd = m.fileInput.Update(msg)
	return m, cmd
}

func (m *Model) applyState(s structs.StateResponse) {
	m.state = s
	if m.buyer() {
		m.fileInput.Blur()
		m.searchInput.Focus()
	} else {
		m.searchInput.Blur()
		m.fileInput.Focus()
	}
}

func (m Model) buyer() bool {
	return m.state.View == "buyer"
}

func (m Model) call(fn func(ctx context.Context) tea.Msg) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return fn(ctx)
	}
}

// submit selects path first when one is typed; an empty path submits
// whatever the session already holds.
func (m Model) submit(path string) tea.Cmd {
	return m.call(func(ctx context.Context) tea.Msg {
		if path != "" {
			if _, err := m.api.UploadFile(ctx, path); err != nil {
				return errMsg{err}
			}
		}
		st, err := m.api.Submit(ctx)
		if err != nil {
			return errMsg{err}
		}
		return stateMsg{st}
	})
}

func (m Model) search(query string) tea.Cmd {
	return m.call(func(ctx context.Context) tea.Msg {
		resp, err := m.api.Search(ctx, query)
		if err != nil {
			return errMsg{err}
		}
		return searchMsg{resp}
	})
}

func (m Model) purchase(listingID string) tea.Cmd {
	return m.call(func(ctx context.Context) tea.Msg {
		resp, err := m.api.Purchase(ctx, listingID)
		if err != nil {
			return errMsg{err}
		}
		return purchaseMsg{resp}
	})
}

func (m Model) refresh() tea.Cmd {
	return m.call(func(ctx context.Context) tea.Msg {
		st, err := m.api.State(ctx)
		if err != nil {
			return nil
		}
		return refreshMsg{st}
	})
}

func listingKey(k string) (int, bool) {
	switch k {
	case "1":
		return 0, true
	case "2":
		return 1, true
	}
	return 0, false
}

func errorText(err error) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}
