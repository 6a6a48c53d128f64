package view

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/MrJamesThe3rd/playledger/internal/purchase"
)

type CommonModel struct {
	Width  int
	Height int
}

type BackMsg struct{}

func Back() tea.Msg {
	return BackMsg{}
}

// LedgerMsg carries a new ledger snapshot from the session.
type LedgerMsg struct {
	Purchases []purchase.Purchase
}

// LedgerFeed hands session snapshots to the UI loop. Push never blocks and
// only the latest snapshot is kept.
type LedgerFeed struct {
	ch chan []purchase.Purchase
}

func NewLedgerFeed() *LedgerFeed {
	return &LedgerFeed{ch: make(chan []purchase.Purchase, 1)}
}

// Push is meant for session.Options.OnChange, which has a single caller.
func (f *LedgerFeed) Push(ps []purchase.Purchase) {
	select {
	case <-f.ch:
	default:
	}

	select {
	case f.ch <- ps:
	default:
	}
}

// Wait returns a command resolving to the next snapshot. Re-issue it after
// every LedgerMsg.
func (f *LedgerFeed) Wait() tea.Cmd {
	return func() tea.Msg {
		return LedgerMsg{Purchases: <-f.ch}
	}
}
