package main

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/gosuda/stplc/ast"
	"github.com/gosuda/stplc/modbusd"
	struntime "github.com/gosuda/stplc/runtime"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	borderStyle = lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type tickMsg struct{}

type pollMsg struct {
	values map[string]struntime.Value
	err    error
}

type writeMsg struct {
	name string
	err  error
}

type appModel struct {
	addr     string
	interval time.Duration
	client   *monClient
	entries  []modbusd.Entry

	tbl    table.Model
	values map[string]struntime.Value
	status string
	isErr  bool
}

func newAppModel(addr string, interval time.Duration, client *monClient, entries []modbusd.Entry) appModel {
	cols := []table.Column{
		{Title: "Addr", Width: 6},
		{Title: "Class", Width: 8},
		{Title: "Name", Width: 20},
		{Title: "Type", Width: 5},
		{Title: "Dir", Width: 10},
		{Title: "Value", Width: 12},
	}
	tbl := table.New(
		table.WithColumns(cols),
		table.WithHeight(len(entries)+1),
		table.WithFocused(true),
	)
	st := table.DefaultStyles()
	st.Header = st.Header.Bold(true).BorderStyle(lipgloss.NormalBorder()).BorderBottom(true)
	st.Selected = st.Selected.Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57"))
	tbl.SetStyles(st)

	return appModel{
		addr:     addr,
		interval: interval,
		client:   client,
		entries:  entries,
		tbl:      tbl,
		values:   map[string]struntime.Value{},
		status:   "connecting",
	}
}

func (m appModel) Init() tea.Cmd {
	return m.pollCmd()
}

func (m appModel) pollCmd() tea.Cmd {
	return func() tea.Msg {
		values, err := m.client.readAll(m.entries)
		return pollMsg{values: values, err: err}
	}
}

func (m appModel) writeCmd(e modbusd.Entry, v struntime.Value) tea.Cmd {
	return func() tea.Msg {
		return writeMsg{name: e.Name, err: m.client.write(e, v)}
	}
}

func (m appModel) selected() (modbusd.Entry, bool) {
	i := m.tbl.Cursor()
	if i < 0 || i >= len(m.entries) {
		return modbusd.Entry{}, false
	}
	return m.entries[i], true
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		return m, m.pollCmd()

	case pollMsg:
		next := tea.Tick(m.interval, func(time.Time) tea.Msg { return tickMsg{} })
		if msg.err != nil {
			m.status = msg.err.Error()
			m.isErr = true
			return m, next
		}
		m.values = msg.values
		m.status = fmt.Sprintf("polling %s every %s", m.addr, m.interval)
		m.isErr = false
		m.tbl.SetRows(m.rows())
		return m, next

	case writeMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("write %s: %v", msg.name, msg.err)
			m.isErr = true
		} else {
			m.status = fmt.Sprintf("wrote %s", msg.name)
			m.isErr = false
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "e":
			e, ok := m.selected()
			if ok && e.Direction == ast.DirInput && e.Type == ast.TypeBool {
				cur := m.values[e.Name]
				return m, m.writeCmd(e, struntime.Bool(!cur.Bool()))
			}
		case "+", "=":
			e, ok := m.selected()
			if ok && e.Direction == ast.DirInput && e.Type != ast.TypeBool {
				return m, m.writeCmd(e, nudged(m.values[e.Name], true))
			}
		case "-":
			e, ok := m.selected()
			if ok && e.Direction == ast.DirInput && e.Type != ast.TypeBool {
				return m, m.writeCmd(e, nudged(m.values[e.Name], false))
			}
		}
	}

	var cmd tea.Cmd
	m.tbl, cmd = m.tbl.Update(msg)
	return m, cmd
}

func (m appModel) rows() []table.Row {
	rows := make([]table.Row, 0, len(m.entries))
	for _, e := range m.entries {
		val := "-"
		if v, ok := m.values[e.Name]; ok {
			val = v.String()
		}
		rows = append(rows, table.Row{
			fmt.Sprintf("%d", e.Addr),
			e.Class.String(),
			e.Name,
			e.Type.String(),
			e.Direction.String(),
			val,
		})
	}
	return rows
}

func (m appModel) View() string {
	s := titleStyle.Render("plcmon "+m.addr) + "\n"
	s += borderStyle.Render(m.tbl.View()) + "\n"
	if m.isErr {
		s += errStyle.Render(m.status) + "\n"
	} else {
		s += statusStyle.Render(m.status) + "\n"
	}
	s += helpStyle.Render("↑/↓ select · e toggle BOOL input · +/- nudge numeric input · q quit")
	return s
}
