package purchase

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/playledger/internal/http/auth"
	"github.com/MrJamesThe3rd/playledger/internal/ledger"
	"github.com/MrJamesThe3rd/playledger/internal/purchase"
	"github.com/MrJamesThe3rd/playledger/internal/session"
	"github.com/MrJamesThe3rd/playledger/internal/view"
)

type Handler struct {
	now func() time.Time
}

func NewHandler() *Handler {
	return &Handler{now: time.Now}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Delete("/", h.clear)
	r.Delete("/{id}", h.delete)
}

type createPurchaseRequest struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Icon     string `json:"icon"`
	Price    int64  `json:"price"`
	Currency string `json:"currency"`
	Date     string `json:"date"`
	Category string `json:"category"`
	Store    string `json:"store"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	sess, ok := auth.Session(w, r)
	if !ok {
		return
	}

	params, err := parseParams(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ps, err := sess.Purchases()
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toListResponse(view.Project(ps, params), params)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func parseParams(r *http.Request) (view.Params, error) {
	q := r.URL.Query()
	params := view.DefaultParams()
	params.Search = q.Get("search")

	var ok bool

	if params.Category, ok = view.ParseFilter(q.Get("category")); !ok {
		return params, errors.New("unknown category " + q.Get("category"))
	}

	if s := q.Get("sort"); s != "" {
		if params.Sort, ok = view.ParseSortKey(s); !ok {
			return params, errors.New("sort must be date or price")
		}
	}

	if s := q.Get("dir"); s != "" {
		if params.Direction, ok = view.ParseDirection(s); !ok {
			return params, errors.New("dir must be asc or desc")
		}
	}

	return params, nil
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	sess, ok := auth.Session(w, r)
	if !ok {
		return
	}

	var req createPurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	p := purchase.Purchase{
		ID:       req.ID,
		Name:     req.Name,
		Icon:     req.Icon,
		Price:    req.Price,
		Currency: req.Currency,
		Category: purchase.Category(req.Category),
		Store:    req.Store,
	}

	if req.Date != "" {
		date, ok := purchase.ParseDate(req.Date, h.now())
		if !ok {
			http.Error(w, "unrecognized date "+req.Date, http.StatusBadRequest)
			return
		}

		p.Date = date
	}

	stored, err := sess.Add(r.Context(), p)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)

	if err := json.NewEncoder(w).Encode(toResponse(stored)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	sess, ok := auth.Session(w, r)
	if !ok {
		return
	}

	if err := sess.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) clear(w http.ResponseWriter, r *http.Request) {
	sess, ok := auth.Session(w, r)
	if !ok {
		return
	}

	result, err := sess.Clear(r.Context())

	var partial *ledger.PartialError
	if err != nil && !errors.As(err, &partial) {
		writeError(w, err)
		return
	}

	status := http.StatusOK
	resp := clearResponse{BulkResult: result}

	if partial != nil {
		slog.Error("clear stopped early", "error", err)

		status = http.StatusMultiStatus
		resp.Error = err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNoIdentity):
		http.Error(w, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, purchase.ErrInvalid):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		slog.Error("ledger operation failed", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
