package purchase

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrInvalid = errors.New("invalid purchase")

// Category is the kind of storefront item a purchase refers to.
type Category string

const (
	CategoryApp          Category = "App"
	CategoryGame         Category = "Game"
	CategoryInApp        Category = "In-App-Purchase"
	CategorySubscription Category = "Subscription"
)

// Categories lists every category in display order.
var Categories = []Category{CategoryApp, CategoryGame, CategoryInApp, CategorySubscription}

// Valid reports whether c is a member of the fixed enumeration.
func (c Category) Valid() bool {
	switch c {
	case CategoryApp, CategoryGame, CategoryInApp, CategorySubscription:
		return true
	}

	return false
}

// ParseCategory maps free text onto a Category. Unknown text maps to
// CategoryApp with ok=false.
func ParseCategory(s string) (Category, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "app", "apps":
		return CategoryApp, true
	case "game", "games":
		return CategoryGame, true
	case "in-app-purchase", "in-app purchase", "in app purchase", "inapp", "iap":
		return CategoryInApp, true
	case "subscription", "subscriptions":
		return CategorySubscription, true
	}

	return CategoryApp, false
}

const (
	DefaultCurrency = "JPY"
	StoreGooglePlay = "Google Play"
)

// Purchase is one purchase event on the storefront.
type Purchase struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Icon     string    `json:"icon,omitempty"`
	Price    int64     `json:"price"` // whole units of Currency
	Currency string    `json:"currency"`
	Date     time.Time `json:"date"`
	Category Category  `json:"category"`
	Store    string    `json:"store"`
}

// Validate checks the invariants a stored purchase must hold.
func (p Purchase) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("%w: empty id", ErrInvalid)
	}

	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: empty name", ErrInvalid)
	}

	if p.Price < 0 {
		return fmt.Errorf("%w: negative price %d", ErrInvalid, p.Price)
	}

	if !p.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalid, p.Category)
	}

	return nil
}

// UserProfile describes the signed-in user. Ephemeral marks demo sessions
// whose ledger lives only in local storage.
type UserProfile struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name,omitempty"`
	Email       string `json:"email,omitempty"`
	PhotoURL    string `json:"photo_url,omitempty"`
	Ephemeral   bool   `json:"-"`
}

// NewID returns a fresh purchase identifier.
func NewID() string {
	return uuid.NewString()
}

// Index returns the position of id in ps, or -1.
func Index(ps []Purchase, id string) int {
	for i := range ps {
		if ps[i].ID == id {
			return i
		}
	}

	return -1
}

// Upsert replaces the purchase with the same id in place, or appends it.
// The input slice is not modified.
func Upsert(ps []Purchase, p Purchase) []Purchase {
	out := make([]Purchase, len(ps), len(ps)+1)
	copy(out, ps)

	if i := Index(out, p.ID); i >= 0 {
		out[i] = p
		return out
	}

	return append(out, p)
}

// Dedupe collapses purchases sharing an id; the last one wins but keeps the
// position of the first.
func Dedupe(ps []Purchase) []Purchase {
	out := make([]Purchase, 0, len(ps))
	pos := make(map[string]int, len(ps))

	for _, p := range ps {
		if i, ok := pos[p.ID]; ok {
			out[i] = p
			continue
		}

		pos[p.ID] = len(out)
		out = append(out, p)
	}

	return out
}
