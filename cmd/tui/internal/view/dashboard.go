package view

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/playledger/internal/purchase"
	"github.com/MrJamesThe3rd/playledger/internal/session"
	ledgerview "github.com/MrJamesThe3rd/playledger/internal/view"
)

type dashState int

const (
	dashStateBrowse dashState = iota
	dashStateSearch
	dashStateAdd
	dashStateConfirmDelete
	dashStateConfirmReset
)

// Navigation requests handled by the root model.
type (
	OpenImportMsg struct{}
	OpenExportMsg struct{}
	SignOutMsg    struct{}
)

type addFields struct {
	name     string
	price    string
	category string
	date     string
}

type DashboardModel struct {
	CommonModel
	sess *session.Session

	state  dashState
	engine *ledgerview.Engine
	proj   ledgerview.Projection
	table  table.Model
	search textinput.Model

	form   *huh.Form
	fields *addFields

	status string
}

func NewDashboardModel(sess *session.Session) DashboardModel {
	columns := []table.Column{
		{Title: "Date", Width: 12},
		{Title: "Category", Width: 20},
		{Title: "Name", Width: 36},
		{Title: "Price", Width: 12},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	search := textinput.New()
	search.Prompt = "/ "
	search.Placeholder = "search by name"

	m := DashboardModel{
		sess:   sess,
		engine: ledgerview.NewEngine(),
		table:  t,
		search: search,
	}

	if ps, err := sess.Purchases(); err == nil {
		m.proj = m.engine.SetLedger(ps)
	}

	m.refreshTable()

	return m
}

func (m DashboardModel) Title() string { return "Purchases" }

func (m DashboardModel) ShortHelp() string {
	switch m.state {
	case dashStateSearch:
		return "Type to filter | Enter: done | Esc: clear"
	case dashStateAdd:
		return "Navigate form | Esc: cancel"
	case dashStateConfirmDelete, dashStateConfirmReset:
		return "y: confirm | any other key: cancel"
	}

	return "/: search | c: category | d: date sort | p: price sort | a: add | x: delete | i: import | e: export | R: reset | o: sign out | q: quit"
}

func (m DashboardModel) Init() tea.Cmd {
	return nil
}

// Projection is the projection currently on screen.
func (m DashboardModel) Projection() ledgerview.Projection {
	return m.proj
}

func (m DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case LedgerMsg:
		if m.engine == nil {
			return m, nil
		}

		m.proj = m.engine.SetLedger(msg.Purchases)
		m.refreshTable()

		return m, nil

	case ledgerOpMsg:
		if msg.err != nil {
			m.status = errorStyle(fmt.Sprintf("%s failed: %v", msg.action, msg.err))
		} else {
			m.status = msg.done
		}

		return m, nil

	case tea.WindowSizeMsg:
		m.Width, m.Height = msg.Width, msg.Height
		m.table.SetHeight(max(msg.Height-12, 5))

		return m, nil
	}

	switch m.state {
	case dashStateSearch:
		return m.updateSearch(msg)
	case dashStateAdd:
		return m.updateAdd(msg)
	case dashStateConfirmDelete, dashStateConfirmReset:
		return m.updateConfirm(msg)
	}

	return m.updateBrowse(msg)
}

func (m DashboardModel) updateBrowse(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if ok {
		switch keyMsg.String() {
		case "q":
			return m, tea.Quit
		case "/":
			m.state = dashStateSearch
			m.table.Blur()

			return m, m.search.Focus()
		case "c":
			m.proj = m.engine.CycleCategory()
			m.refreshTable()

			return m, nil
		case "d":
			m.proj = m.engine.ToggleSort(ledgerview.SortDate)
			m.refreshTable()

			return m, nil
		case "p":
			m.proj = m.engine.ToggleSort(ledgerview.SortPrice)
			m.refreshTable()

			return m, nil
		case "a":
			return m.enterAddMode()
		case "x":
			if _, ok := m.selected(); ok {
				m.state = dashStateConfirmDelete
			}

			return m, nil
		case "R":
			m.state = dashStateConfirmReset
			return m, nil
		case "i":
			return m, func() tea.Msg { return OpenImportMsg{} }
		case "e":
			return m, func() tea.Msg { return OpenExportMsg{} }
		case "o":
			return m, func() tea.Msg { return SignOutMsg{} }
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m DashboardModel) updateSearch(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.Type {
		case tea.KeyEsc:
			m.search.SetValue("")
			m.proj = m.engine.SetSearch("")
			m.refreshTable()

			fallthrough
		case tea.KeyEnter:
			m.state = dashStateBrowse
			m.search.Blur()
			m.table.Focus()

			return m, nil
		}
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.proj = m.engine.SetSearch(m.search.Value())
	m.refreshTable()

	return m, cmd
}

func (m DashboardModel) enterAddMode() (tea.Model, tea.Cmd) {
	m.fields = &addFields{category: string(purchase.CategoryApp)}

	categories := make([]string, 0, len(purchase.Categories))
	for _, c := range purchase.Categories {
		categories = append(categories, string(c))
	}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("name").
				Title("Name").
				Value(&m.fields.name).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("name cannot be empty")
					}
					return nil
				}),

			huh.NewInput().
				Key("price").
				Title("Price (JPY)").
				Placeholder("0").
				Value(&m.fields.price).
				Validate(func(s string) error {
					_, err := parsePrice(s)
					return err
				}),

			huh.NewSelect[string]().
				Key("category").
				Title("Category").
				Options(huh.NewOptions(categories...)...).
				Value(&m.fields.category),

			huh.NewInput().
				Key("date").
				Title("Date").
				Placeholder("2023-11-05 (empty for now)").
				Value(&m.fields.date).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return nil
					}

					if _, ok := purchase.ParseDate(s, time.Now()); !ok {
						return errors.New("unrecognized date")
					}
					return nil
				}),
		),
	).WithWidth(45).WithShowHelp(false)

	m.state = dashStateAdd
	m.table.Blur()

	return m, m.form.Init()
}

func parsePrice(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0, errors.New("price must be a whole number of at least 0")
	}

	return n, nil
}

func (m DashboardModel) updateAdd(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		return m.leaveForm(), nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	fields := *m.fields

	return m.leaveForm(), m.addCmd(fields)
}

func (m DashboardModel) leaveForm() DashboardModel {
	m.state = dashStateBrowse
	m.form = nil
	m.fields = nil
	m.table.Focus()

	return m
}

func (m DashboardModel) updateConfirm(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	state := m.state
	m.state = dashStateBrowse

	if keyMsg.String() != "y" {
		m.status = "Cancelled."
		return m, nil
	}

	if state == dashStateConfirmReset {
		return m, m.resetCmd()
	}

	p, ok := m.selected()
	if !ok {
		return m, nil
	}

	return m, m.deleteCmd(p)
}

func (m DashboardModel) selected() (purchase.Purchase, bool) {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.proj.Items) {
		return purchase.Purchase{}, false
	}

	return m.proj.Items[idx], true
}

func (m DashboardModel) View() string {
	profile, _ := m.sess.Profile()

	name := profile.DisplayName
	if name == "" {
		name = profile.ID
	}

	title := lipgloss.NewStyle().Bold(true).Render("PlayLedger") +
		fmt.Sprintf("  %s (%s)", name, m.sess.State())

	total := fmt.Sprintf("Total: %s  ·  %d purchases",
		activeStyle(ledgerview.FormatPrice(m.proj.Total, m.proj.Currency)), m.proj.Count)
	if m.proj.MixedCurrency {
		total += "  (mixed currencies)"
	}

	params := m.engine.Params()
	filters := fmt.Sprintf("[c] Category: %s | [d] %s | [p] %s",
		activeStyle(string(params.Category)),
		sortLabel("Date", ledgerview.SortDate, params),
		sortLabel("Price", ledgerview.SortPrice, params),
	)

	tableView := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		Render(m.table.View())

	if m.proj.Count == 0 {
		tableView += "\n" + lipgloss.NewStyle().Faint(true).Render("No purchases to show.")
	}

	parts := []string{title, total, filters}
	if m.state == dashStateSearch || m.search.Value() != "" {
		parts = append(parts, m.search.View())
	}

	parts = append(parts, tableView)

	switch m.state {
	case dashStateConfirmDelete:
		if p, ok := m.selected(); ok {
			parts = append(parts, errorStyle(fmt.Sprintf("Delete %q? (y/N)", p.Name)))
		}
	case dashStateConfirmReset:
		parts = append(parts, errorStyle("Delete every purchase in this ledger? (y/N)"))
	}

	if m.status != "" {
		parts = append(parts, lipgloss.NewStyle().Faint(true).Render(m.status))
	}

	parts = append(parts, lipgloss.NewStyle().Faint(true).Render(m.ShortHelp()))

	content := lipgloss.JoinVertical(lipgloss.Left, parts...)

	if m.state == dashStateAdd && m.form != nil {
		panel := lipgloss.NewStyle().
			Padding(1, 2).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Width(48).
			Render("Add Purchase\n\n" + m.form.View())

		content = lipgloss.JoinHorizontal(lipgloss.Top, content, panel)
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func sortLabel(label string, key ledgerview.SortKey, p ledgerview.Params) string {
	if p.Sort != key {
		return label
	}

	arrow := "↓"
	if p.Direction == ledgerview.Asc {
		arrow = "↑"
	}

	return activeStyle(label + " " + arrow)
}

func (m *DashboardModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.proj.Items))
	for _, p := range m.proj.Items {
		rows = append(rows, table.Row{
			ledgerview.FormatDate(p.Date),
			ledgerview.CategoryGlyph(p.Category) + " " + string(p.Category),
			p.Name,
			ledgerview.FormatPrice(p.Price, p.Currency),
		})
	}

	m.table.SetRows(rows)

	if m.table.Cursor() >= len(rows) {
		m.table.SetCursor(max(len(rows)-1, 0))
	}
}

// Messages

type ledgerOpMsg struct {
	action string
	done   string
	err    error
}

func (m DashboardModel) addCmd(f addFields) tea.Cmd {
	return func() tea.Msg {
		price, err := parsePrice(f.price)
		if err != nil {
			return ledgerOpMsg{action: "Add", err: err}
		}

		p := purchase.Purchase{
			Name:     f.name,
			Price:    price,
			Category: purchase.Category(f.category),
		}

		if strings.TrimSpace(f.date) != "" {
			p.Date, _ = purchase.ParseDate(f.date, time.Now())
		}

		ctx, cancel := OpCtx()
		defer cancel()

		stored, err := m.sess.Add(ctx, p)
		if err != nil {
			return ledgerOpMsg{action: "Add", err: err}
		}

		return ledgerOpMsg{action: "Add", done: fmt.Sprintf("Added %s.", stored.Name)}
	}
}

func (m DashboardModel) deleteCmd(p purchase.Purchase) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := OpCtx()
		defer cancel()

		if err := m.sess.Remove(ctx, p.ID); err != nil {
			return ledgerOpMsg{action: "Delete", err: err}
		}

		return ledgerOpMsg{action: "Delete", done: fmt.Sprintf("Deleted %s.", p.Name)}
	}
}

func (m DashboardModel) resetCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := OpCtx()
		defer cancel()

		result, err := m.sess.Clear(ctx)
		if err != nil {
			return ledgerOpMsg{action: "Reset", err: err}
		}

		return ledgerOpMsg{action: "Reset", done: fmt.Sprintf("Removed %d purchases.", result.Completed)}
	}
}
