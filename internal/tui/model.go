// Package tui is the interactive transaction browser: a sortable, searchable
// table where notes and tags are edited in place.
package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Veraticus/house-money/internal/model"
	"github.com/Veraticus/house-money/internal/service"
	"github.com/Veraticus/house-money/internal/tui/themes"
)

// State represents the current state of the TUI.
type State int

const (
	StateList State = iota
	StateSearch
	StateNote
	StateTags
)

// sortCycle is the order the sort key steps through columns.
var sortCycle = []service.SortColumn{service.ColumnDate, service.ColumnDescription, service.ColumnAmount}

// Model holds the main TUI state.
type Model struct {
	theme        themes.Theme
	lastError    error
	storage      service.Storage
	tagSelected  map[int64]bool
	status       string
	query        service.TransactionQuery
	keymap       KeyMap
	tags         []model.Tag
	transactions []model.Transaction
	help         help.Model
	input        textinput.Model
	table        table.Model
	tagCursor    int
	editingID    int64
	height       int
	width        int
	state        State
	quitting     bool
	ready        bool
}

// New creates a browser over store.
func New(store service.Storage, opts ...Option) Model {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	t := table.New(
		table.WithColumns(columnsFor(cfg.Width)),
		table.WithFocused(true),
		table.WithHeight(tableHeight(cfg.Height)),
	)
	s := table.DefaultStyles()
	s.Header = cfg.Theme.Header
	s.Selected = cfg.Theme.Selected
	t.SetStyles(s)

	input := textinput.New()
	input.CharLimit = 200

	query := cfg.Query
	if query.SortBy == "" {
		query.SortBy = service.ColumnDate
	}

	return Model{
		theme:       cfg.Theme,
		storage:     store,
		query:       query,
		keymap:      DefaultKeyMap(),
		help:        help.New(),
		input:       input,
		table:       t,
		tagSelected: make(map[int64]bool),
		width:       cfg.Width,
		height:      cfg.Height,
		state:       StateList,
	}
}

// Init loads the transactions and tags.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadTransactions(), m.loadTags())
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetColumns(columnsFor(m.width))
		m.table.SetHeight(tableHeight(m.height))
		m.help.Width = msg.Width
		return m, nil

	case transactionsLoadedMsg:
		m.ready = true
		if msg.err != nil {
			m.lastError = msg.err
			return m, nil
		}
		m.lastError = nil
		m.transactions = msg.transactions
		m.refreshRows()
		return m, nil

	case tagsLoadedMsg:
		if msg.err != nil {
			m.lastError = msg.err
			return m, nil
		}
		m.tags = msg.tags
		return m, nil

	case transactionSavedMsg:
		if msg.err != nil {
			m.lastError = msg.err
			return m, nil
		}
		m.lastError = nil
		m.replaceTransaction(*msg.transaction)
		m.status = fmt.Sprintf("Saved %s of transaction %d", msg.what, msg.transaction.ID)
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keymap.ForceQuit) {
			m.quitting = true
			return m, tea.Quit
		}
		switch m.state {
		case StateSearch, StateNote:
			return m.updateInput(msg)
		case StateTags:
			return m.updateTags(msg)
		default:
			return m.updateList(msg)
		}
	}

	return m, nil
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.status = ""

	switch {
	case key.Matches(msg, m.keymap.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keymap.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keymap.Search):
		m.state = StateSearch
		m.input.Placeholder = "Search " + string(m.searchColumn()) + "..."
		m.input.SetValue(m.query.SearchText)
		m.input.CursorEnd()
		cmd := m.input.Focus()
		return m, cmd

	case key.Matches(msg, m.keymap.ClearFind):
		if m.query.SearchText == "" {
			return m, nil
		}
		m.query.SearchText = ""
		return m, m.loadTransactions()

	case key.Matches(msg, m.keymap.Sort):
		m.query.SortBy = nextSort(m.query.SortBy)
		return m, m.loadTransactions()

	case key.Matches(msg, m.keymap.Order):
		m.query.Ascending = !m.query.Ascending
		return m, m.loadTransactions()

	case key.Matches(msg, m.keymap.Refresh):
		return m, tea.Batch(m.loadTransactions(), m.loadTags())

	case key.Matches(msg, m.keymap.Note):
		txn := m.selected()
		if txn == nil {
			return m, nil
		}
		m.state = StateNote
		m.editingID = txn.ID
		m.input.Placeholder = "Note"
		m.input.SetValue(txn.Notes)
		m.input.CursorEnd()
		cmd := m.input.Focus()
		return m, cmd

	case key.Matches(msg, m.keymap.Tags):
		txn := m.selected()
		if txn == nil || len(m.tags) == 0 {
			return m, nil
		}
		m.state = StateTags
		m.editingID = txn.ID
		m.tagCursor = 0
		m.tagSelected = make(map[int64]bool, len(txn.Tags))
		for _, tag := range m.tags {
			if txn.HasTag(tag.Name) {
				m.tagSelected[tag.ID] = true
			}
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.Cancel):
		m.state = StateList
		m.input.Blur()
		return m, nil

	case key.Matches(msg, m.keymap.Confirm):
		value := strings.TrimSpace(m.input.Value())
		state := m.state
		m.state = StateList
		m.input.Blur()

		if state == StateSearch {
			m.query.SearchText = value
			return m, m.loadTransactions()
		}
		return m, m.saveNote(m.editingID, value)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateTags(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.Cancel):
		m.state = StateList
		return m, nil

	case key.Matches(msg, m.keymap.Up):
		if m.tagCursor > 0 {
			m.tagCursor--
		}

	case key.Matches(msg, m.keymap.Down):
		if m.tagCursor < len(m.tags)-1 {
			m.tagCursor++
		}

	case key.Matches(msg, m.keymap.Toggle):
		id := m.tags[m.tagCursor].ID
		if m.tagSelected[id] {
			delete(m.tagSelected, id)
		} else {
			m.tagSelected[id] = true
		}

	case key.Matches(msg, m.keymap.Confirm):
		m.state = StateList
		ids := make([]int64, 0, len(m.tagSelected))
		for _, tag := range m.tags {
			if m.tagSelected[tag.ID] {
				ids = append(ids, tag.ID)
			}
		}
		return m, m.saveTags(m.editingID, ids)
	}

	return m, nil
}

// selected returns the transaction under the table cursor.
func (m Model) selected() *model.Transaction {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.transactions) {
		return nil
	}
	return &m.transactions[i]
}

func (m Model) searchColumn() service.SortColumn {
	if m.query.SearchOn == "" {
		return service.ColumnDescription
	}
	return m.query.SearchOn
}

// replaceTransaction swaps an edited transaction into the listing.
func (m *Model) replaceTransaction(txn model.Transaction) {
	for i := range m.transactions {
		if m.transactions[i].ID == txn.ID {
			m.transactions[i] = txn
			break
		}
	}
	m.refreshRows()
}

func (m *Model) refreshRows() {
	rows := make([]table.Row, 0, len(m.transactions))
	for i := range m.transactions {
		t := &m.transactions[i]
		rows = append(rows, table.Row{
			strconv.FormatInt(t.ID, 10),
			t.Date.Format("2006-01-02"),
			t.Description,
			t.Amount.StringFixed(2),
			strings.Join(t.Tags, ", "),
			t.Notes,
		})
	}
	m.table.SetRows(rows)
	if m.table.Cursor() >= len(rows) {
		m.table.SetCursor(max(len(rows)-1, 0))
	}
}

func nextSort(current service.SortColumn) service.SortColumn {
	for i, col := range sortCycle {
		if col == current {
			return sortCycle[(i+1)%len(sortCycle)]
		}
	}
	return service.ColumnDate
}

// columnsFor sizes the table to width, giving the slack to the description.
func columnsFor(width int) []table.Column {
	fixed := []table.Column{
		{Title: "ID", Width: 6},
		{Title: "Date", Width: 10},
		{Title: "Description", Width: 0},
		{Title: "Amount", Width: 11},
		{Title: "Tags", Width: 20},
		{Title: "Notes", Width: 20},
	}
	used := 0
	for _, c := range fixed {
		used += c.Width + 2
	}
	fixed[2].Width = max(width-used-2, 16)
	return fixed
}

func tableHeight(height int) int {
	// Title, status line and help take six rows.
	return max(height-6, 3)
}
