package view

import (
	"fmt"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/playledger/internal/purchase"
)

// FormatPrice renders a whole-unit amount with the currency's symbol and
// grouping, e.g. 1200 JPY as "¥1,200".
func FormatPrice(amount int64, currency string) string {
	cur := money.GetCurrency(currency)
	if cur == nil {
		return fmt.Sprintf("%s %s", decimal.NewFromInt(amount).String(), currency)
	}

	minor := decimal.NewFromInt(amount).Shift(int32(cur.Fraction))

	return cur.Formatter().Format(minor.IntPart())
}

// FormatDate renders the purchase date as shown in lists.
func FormatDate(t time.Time) string {
	return t.Format("2006/01/02")
}

// CategoryGlyph stands in for a missing icon.
func CategoryGlyph(c purchase.Category) string {
	switch c {
	case purchase.CategoryGame:
		return "🎮"
	case purchase.CategoryInApp:
		return "⚡"
	case purchase.CategorySubscription:
		return "📅"
	default:
		return "🪟"
	}
}
