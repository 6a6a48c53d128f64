package view

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/filepicker"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/playledger/internal/importer"
	"github.com/MrJamesThe3rd/playledger/internal/session"
)

const (
	importTimeout   = 2 * time.Minute
	maxShownWarning = 8
)

type importState int

const (
	importStateFormatSelect importState = iota
	importStateFilePick
	importStateImporting
	importStateResult
)

type formatOption struct {
	label  string
	format importer.Format
}

type ImportModel struct {
	CommonModel
	sess          *session.Session
	importService *importer.Service

	state        importState
	filePicker   filepicker.Model
	formats      []formatOption
	formatCursor int

	status   string
	warnings []string
	err      error
}

func NewImportModel(sess *session.Session, impSvc *importer.Service) ImportModel {
	fp := filepicker.New()
	fp.CurrentDirectory, _ = os.Getwd()
	fp.ShowHidden = false
	fp.DirAllowed = false
	fp.FileAllowed = true
	fp.AllowedTypes = []string{".csv", ".json"}
	fp.SetHeight(15)

	formats := []formatOption{{label: "Detect from file"}}
	for _, f := range importer.Formats {
		formats = append(formats, formatOption{label: string(f), format: f})
	}

	return ImportModel{
		sess:          sess,
		importService: impSvc,
		filePicker:    fp,
		formats:       formats,
	}
}

func (m ImportModel) Title() string { return "Import Purchases" }

func (m ImportModel) ShortHelp() string {
	if m.state == importStateResult {
		return "Esc: back"
	}

	return "Esc: back | Enter: select"
}

func (m ImportModel) Init() tea.Cmd {
	return m.filePicker.Init()
}

func (m ImportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyEsc {
			return m.handleEsc()
		}

		if m.state == importStateFormatSelect {
			return m.updateFormatSelect(msg)
		}

	case importResultMsg:
		m.state = importStateResult
		m.err = msg.err
		m.warnings = nil

		if msg.report != nil {
			for _, w := range msg.report.Warnings {
				m.warnings = append(m.warnings, w.String())
			}
		}

		switch {
		case msg.err != nil && msg.report != nil && msg.report.Result.Partial():
			m.status = fmt.Sprintf("Import stopped after %d of %d purchases: %v",
				msg.report.Result.Completed, msg.report.Result.Attempted, msg.err)
		case msg.err != nil:
			m.status = fmt.Sprintf("Error: %v", msg.err)
		default:
			m.status = fmt.Sprintf("Imported %d purchases (%s).", msg.report.Result.Completed, msg.report.Format)
		}

		return m, nil
	}

	if m.state != importStateFilePick {
		return m, nil
	}

	var cmd tea.Cmd
	m.filePicker, cmd = m.filePicker.Update(msg)

	if didSelect, path := m.filePicker.DidSelectFile(msg); didSelect {
		m.state = importStateImporting
		m.status = fmt.Sprintf("Importing from %s...", path)

		return m, m.importCmd(path, m.formats[m.formatCursor].format)
	}

	return m, cmd
}

func (m ImportModel) handleEsc() (tea.Model, tea.Cmd) {
	switch m.state {
	case importStateFilePick:
		m.state = importStateFormatSelect
		return m, nil
	case importStateImporting:
		return m, nil
	}

	return m, Back
}

func (m ImportModel) updateFormatSelect(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyUp:
		if m.formatCursor > 0 {
			m.formatCursor--
		}
	case tea.KeyDown:
		if m.formatCursor < len(m.formats)-1 {
			m.formatCursor++
		}
	case tea.KeyEnter:
		m.state = importStateFilePick
		return m, m.filePicker.Init()
	}

	return m, nil
}

func (m ImportModel) View() string {
	switch m.state {
	case importStateFormatSelect:
		return m.viewFormatSelect()
	case importStateFilePick:
		return lipgloss.NewStyle().Padding(1).Render(
			fmt.Sprintf("Select file to import (%s):\n\n%s", m.formats[m.formatCursor].label, m.filePicker.View()),
		)
	case importStateImporting:
		return lipgloss.NewStyle().Padding(2).Render(m.status)
	case importStateResult:
		return m.viewResult()
	}

	return ""
}

func (m ImportModel) viewFormatSelect() string {
	s := "Importing replaces purchases with the same id.\n\nSelect format:\n\n"

	for i, opt := range m.formats {
		cursor := " "
		if i == m.formatCursor {
			cursor = ">"
		}

		s += fmt.Sprintf("%s %s\n", cursor, opt.label)
	}

	return lipgloss.NewStyle().Padding(2).Render(s)
}

func (m ImportModel) viewResult() string {
	status := okStyle(m.status)
	if m.err != nil {
		status = errorStyle(m.status)
	}

	s := status

	if len(m.warnings) > 0 {
		s += fmt.Sprintf("\n\n%d warnings:\n", len(m.warnings))

		shown := m.warnings[:min(len(m.warnings), maxShownWarning)]
		s += "  " + strings.Join(shown, "\n  ")

		if rest := len(m.warnings) - len(shown); rest > 0 {
			s += fmt.Sprintf("\n  ...and %d more", rest)
		}
	}

	return lipgloss.NewStyle().Padding(2).Render(s + "\n\n(Esc to go back)")
}

// Messages

type importResultMsg struct {
	report *session.ImportReport
	err    error
}

func (m ImportModel) importCmd(path string, format importer.Format) tea.Cmd {
	return func() tea.Msg {
		f, err := os.Open(path)
		if err != nil {
			return importResultMsg{err: err}
		}
		defer f.Close()

		br := bufio.NewReader(f)

		if format == "" {
			head, _ := br.Peek(512)

			format, err = m.importService.Detect(path, head)
			if err != nil {
				return importResultMsg{err: err}
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), importTimeout)
		defer cancel()

		report, err := m.sess.Import(ctx, format, br)
		if errors.Is(err, session.ErrNoRecords) {
			return importResultMsg{report: report, err: fmt.Errorf("%s: %w", path, err)}
		}

		return importResultMsg{report: report, err: err}
	}
}
