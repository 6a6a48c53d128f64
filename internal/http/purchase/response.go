package purchase

import (
	"time"

	"github.com/MrJamesThe3rd/playledger/internal/ledger"
	"github.com/MrJamesThe3rd/playledger/internal/purchase"
	"github.com/MrJamesThe3rd/playledger/internal/view"
)

type purchaseResponse struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Icon         string            `json:"icon,omitempty"`
	Price        int64             `json:"price"`
	PriceDisplay string            `json:"price_display"`
	Currency     string            `json:"currency"`
	Date         time.Time         `json:"date"`
	DateDisplay  string            `json:"date_display"`
	Category     purchase.Category `json:"category"`
	Glyph        string            `json:"glyph"`
	Store        string            `json:"store"`
}

type paramsResponse struct {
	Search    string         `json:"search"`
	Category  view.Filter    `json:"category"`
	Sort      view.SortKey   `json:"sort"`
	Direction view.Direction `json:"dir"`
}

type listResponse struct {
	Items         []purchaseResponse `json:"items"`
	Count         int                `json:"count"`
	Total         int64              `json:"total"`
	TotalDisplay  string             `json:"total_display"`
	Currency      string             `json:"currency"`
	MixedCurrency bool               `json:"mixed_currency,omitempty"`
	Params        paramsResponse     `json:"params"`
}

type clearResponse struct {
	ledger.BulkResult
	Error string `json:"error,omitempty"`
}

func toResponse(p purchase.Purchase) purchaseResponse {
	return purchaseResponse{
		ID:           p.ID,
		Name:         p.Name,
		Icon:         p.Icon,
		Price:        p.Price,
		PriceDisplay: view.FormatPrice(p.Price, p.Currency),
		Currency:     p.Currency,
		Date:         p.Date,
		DateDisplay:  view.FormatDate(p.Date),
		Category:     p.Category,
		Glyph:        view.CategoryGlyph(p.Category),
		Store:        p.Store,
	}
}

func toListResponse(proj view.Projection, params view.Params) listResponse {
	items := make([]purchaseResponse, 0, len(proj.Items))
	for _, p := range proj.Items {
		items = append(items, toResponse(p))
	}

	return listResponse{
		Items:         items,
		Count:         proj.Count,
		Total:         proj.Total,
		TotalDisplay:  view.FormatPrice(proj.Total, proj.Currency),
		Currency:      proj.Currency,
		MixedCurrency: proj.MixedCurrency,
		Params: paramsResponse{
			Search:    params.Search,
			Category:  params.Category,
			Sort:      params.Sort,
			Direction: params.Direction,
		},
	}
}
