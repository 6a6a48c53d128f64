package session

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/playledger/internal/http/auth"
	"github.com/MrJamesThe3rd/playledger/internal/identity"
	"github.com/MrJamesThe3rd/playledger/internal/purchase"
	"github.com/MrJamesThe3rd/playledger/internal/session"
)

type Handler struct {
	issuer   *identity.Issuer
	registry *session.Registry
}

func NewHandler(issuer *identity.Issuer, registry *session.Registry) *Handler {
	return &Handler{issuer: issuer, registry: registry}
}

// PublicRoutes are reachable without a token.
func (h *Handler) PublicRoutes(r chi.Router) {
	r.Post("/demo", h.demo)
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.get)
	r.Delete("/", h.signOut)
}

type tokenResponse struct {
	Token   string               `json:"token"`
	Profile purchase.UserProfile `json:"profile"`
}

type sessionResponse struct {
	Profile purchase.UserProfile `json:"profile"`
	State   string               `json:"state"`
}

// demo issues a token for a fresh demo profile. Each caller gets a ledger of
// their own.
func (h *Handler) demo(w http.ResponseWriter, r *http.Request) {
	profile := purchase.NewDemoProfile()

	token, err := h.issuer.Issue(profile)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)

	if err := json.NewEncoder(w).Encode(tokenResponse{Token: token, Profile: profile}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	sess, ok := auth.Session(w, r)
	if !ok {
		return
	}

	profile, ok := sess.Profile()
	if !ok {
		http.Error(w, session.ErrNoIdentity.Error(), http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	resp := sessionResponse{Profile: profile, State: sess.State().String()}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// signOut ends the server-side session. The token stays valid until it
// expires; the next request with it signs in again.
func (h *Handler) signOut(w http.ResponseWriter, r *http.Request) {
	profile, ok := identity.FromContext(r.Context())
	if !ok {
		http.Error(w, session.ErrNoIdentity.Error(), http.StatusUnauthorized)
		return
	}

	h.registry.Drop(profile.ID)

	w.WriteHeader(http.StatusNoContent)
}
