package view

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/playledger/internal/purchase"
	"github.com/MrJamesThe3rd/playledger/internal/session"
)

type loginOption struct {
	label   string
	profile purchase.UserProfile
}

type LoginModel struct {
	CommonModel
	sess *session.Session

	options   []loginOption
	cursor    int
	signingIn bool
	err       error
}

// SignedInMsg reports the outcome of a sign-in started from the login screen.
type SignedInMsg struct {
	Profile purchase.UserProfile
	Err     error
}

// NewLoginModel offers demo mode, plus token sign-in when tokenProfile is set.
func NewLoginModel(sess *session.Session, tokenProfile *purchase.UserProfile) LoginModel {
	options := []loginOption{{label: "Try the demo (stored on this device)", profile: purchase.DemoProfile()}}

	if tokenProfile != nil {
		name := tokenProfile.DisplayName
		if name == "" {
			name = tokenProfile.ID
		}

		options = append(options, loginOption{
			label:   fmt.Sprintf("Sign in as %s (synced)", name),
			profile: *tokenProfile,
		})
	}

	return LoginModel{sess: sess, options: options}
}

func (m LoginModel) Title() string     { return "Sign In" }
func (m LoginModel) ShortHelp() string { return "↑/↓: choose | Enter: sign in | q: quit" }

func (m LoginModel) Init() tea.Cmd {
	return nil
}

func (m LoginModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case SignedInMsg:
		m.signingIn = false
		m.err = msg.Err

		return m, nil

	case tea.KeyMsg:
		if m.signingIn {
			return m, nil
		}

		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.options)-1 {
				m.cursor++
			}
		case "enter":
			m.signingIn = true
			m.err = nil

			return m, m.signInCmd(m.options[m.cursor].profile)
		}
	}

	return m, nil
}

func (m LoginModel) View() string {
	s := lipgloss.NewStyle().Bold(true).Render("PlayLedger") + "\n\n"

	for i, opt := range m.options {
		cursor := " "
		if i == m.cursor {
			cursor = ">"
		}

		s += fmt.Sprintf("%s %s\n", cursor, opt.label)
	}

	switch {
	case m.signingIn:
		s += "\nSigning in..."
	case m.err != nil:
		s += "\n" + errorStyle(fmt.Sprintf("Error: %v", m.err))
	}

	s += "\n\n" + lipgloss.NewStyle().Faint(true).Render(m.ShortHelp())

	return lipgloss.NewStyle().Padding(2).Render(s)
}

func (m LoginModel) signInCmd(profile purchase.UserProfile) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := OpCtx()
		defer cancel()

		return SignedInMsg{Profile: profile, Err: m.sess.SignIn(ctx, profile)}
	}
}
