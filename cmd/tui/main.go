package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/playledger/cmd/tui/internal/view"
	"github.com/MrJamesThe3rd/playledger/internal/config"
	"github.com/MrJamesThe3rd/playledger/internal/database"
	"github.com/MrJamesThe3rd/playledger/internal/export"
	"github.com/MrJamesThe3rd/playledger/internal/identity"
	"github.com/MrJamesThe3rd/playledger/internal/importer"
	"github.com/MrJamesThe3rd/playledger/internal/kv"
	"github.com/MrJamesThe3rd/playledger/internal/kv/sqlite"
	"github.com/MrJamesThe3rd/playledger/internal/ledger/remote"
	"github.com/MrJamesThe3rd/playledger/internal/ledger/remote/memstore"
	remoteStore "github.com/MrJamesThe3rd/playledger/internal/ledger/remote/store"
	"github.com/MrJamesThe3rd/playledger/internal/purchase"
	"github.com/MrJamesThe3rd/playledger/internal/session"
)

const tokenEnv = "PLAYLEDGER_TOKEN"

type model struct {
	sess          *session.Session
	feed          *view.LedgerFeed
	importService *importer.Service
	exportService *export.Service
	tokenProfile  *purchase.UserProfile

	currentView View
	width       int
	height      int

	loginView     view.LoginModel
	dashboardView view.DashboardModel
	importView    view.ImportModel
	exportView    view.ExportModel
}

type View int

const (
	ViewLogin     View = 0
	ViewDashboard View = 1
	ViewImport    View = 2
	ViewExport    View = 3
)

type signedOutMsg struct{}

// backends holds what main has to close once the program exits.
type backends struct {
	closers []func()
}

func (b *backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func initialModel(b *backends) model {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.DiscardHandler)
	if path := os.Getenv("PLAYLEDGER_LOG"); path != "" {
		f, err := tea.LogToFile(path, "playledger")
		if err != nil {
			slog.Error("failed to open log file", "error", err)
			os.Exit(1)
		}

		b.closers = append(b.closers, func() { f.Close() })
		logger = slog.New(slog.NewTextHandler(f, nil))
	}

	var localKV kv.Store = kv.NewMemory()
	if cfg.Local.Path != "" {
		store, err := sqlite.New(cfg.Local.Path)
		if err != nil {
			slog.Error("failed to open local store", "error", err)
			os.Exit(1)
		}

		b.closers = append(b.closers, func() { store.Close() })
		localKV = store
	}

	var (
		tokenProfile *purchase.UserProfile
		remoteKV     remote.RemoteStore
	)

	if token := os.Getenv(tokenEnv); token != "" {
		issuer, err := identity.NewIssuer(cfg.Auth.Secret, cfg.Auth.TokenTTL)
		if err != nil {
			slog.Error("failed to create token issuer", "error", err)
			os.Exit(1)
		}

		profile, err := issuer.Parse(token)
		if err != nil {
			slog.Error("invalid "+tokenEnv, "error", err)
			os.Exit(1)
		}

		remoteKV, err = openRemote(cfg, b)
		if err != nil {
			slog.Error("failed to open remote store", "error", err)
			os.Exit(1)
		}

		tokenProfile = &profile
	}

	feed := view.NewLedgerFeed()
	impSvc := importer.NewService()
	expSvc := export.NewService()

	sess := session.New(
		session.DefaultFactory{KV: localKV, Remote: remoteKV, Logger: logger},
		session.Options{
			SeedDemo: cfg.Demo.Seed,
			OnChange: feed.Push,
			Logger:   logger,
			Importer: impSvc,
			Exporter: expSvc,
		},
	)
	b.closers = append(b.closers, sess.SignOut)

	return model{
		sess:          sess,
		feed:          feed,
		importService: impSvc,
		exportService: expSvc,
		tokenProfile:  tokenProfile,
		currentView:   ViewLogin,
		loginView:     view.NewLoginModel(sess, tokenProfile),
	}
}

func openRemote(cfg *config.Config, b *backends) (remote.RemoteStore, error) {
	if cfg.Remote.Backend == config.BackendMemory {
		return memstore.New(), nil
	}

	db, err := database.New(context.Background(), cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	b.closers = append(b.closers, db.Close)

	return remoteStore.New(db), nil
}

func (m model) Init() tea.Cmd {
	return m.feed.Wait()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		if m.currentView == ViewLogin && msg.String() == "q" {
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height

	case view.LedgerMsg:
		var newModel tea.Model
		newModel, cmd = m.dashboardView.Update(msg)
		m.dashboardView = newModel.(view.DashboardModel)

		return m, tea.Batch(cmd, m.feed.Wait())

	case view.SignedInMsg:
		if msg.Err == nil {
			m.currentView = ViewDashboard
			m.dashboardView = view.NewDashboardModel(m.sess)
			newModel, _ := m.dashboardView.Update(tea.WindowSizeMsg{Width: m.width, Height: m.height})
			m.dashboardView = newModel.(view.DashboardModel)

			return m, nil
		}

	case view.OpenImportMsg:
		m.currentView = ViewImport
		m.importView = view.NewImportModel(m.sess, m.importService)

		return m, m.importView.Init()

	case view.OpenExportMsg:
		m.currentView = ViewExport
		m.exportView = view.NewExportModel(m.sess, m.exportService)

		return m, m.exportView.Init()

	case view.SignOutMsg:
		return m, func() tea.Msg {
			m.sess.SignOut()
			return signedOutMsg{}
		}

	case signedOutMsg:
		m.currentView = ViewLogin
		m.loginView = view.NewLoginModel(m.sess, m.tokenProfile)

		return m, nil

	case view.BackMsg:
		m.currentView = ViewDashboard
		return m, nil
	}

	switch m.currentView {
	case ViewLogin:
		var newModel tea.Model
		newModel, cmd = m.loginView.Update(msg)
		m.loginView = newModel.(view.LoginModel)
	case ViewDashboard:
		var newModel tea.Model
		newModel, cmd = m.dashboardView.Update(msg)
		m.dashboardView = newModel.(view.DashboardModel)
	case ViewImport:
		var newModel tea.Model
		newModel, cmd = m.importView.Update(msg)
		m.importView = newModel.(view.ImportModel)
	case ViewExport:
		var newModel tea.Model
		newModel, cmd = m.exportView.Update(msg)
		m.exportView = newModel.(view.ExportModel)
	}

	return m, cmd
}

func (m model) View() string {
	switch m.currentView {
	case ViewLogin:
		return m.loginView.View()
	case ViewDashboard:
		return m.dashboardView.View()
	case ViewImport:
		return m.importView.View()
	case ViewExport:
		return m.exportView.View()
	}

	return "Unknown View"
}

func main() {
	b := &backends{}
	defer b.Close()

	p := tea.NewProgram(initialModel(b), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		slog.Error("failed to run TUI", "error", err)
		b.Close()
		os.Exit(1)
	}
}
