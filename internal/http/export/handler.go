package export

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/playledger/internal/export"
	"github.com/MrJamesThe3rd/playledger/internal/http/auth"
	"github.com/MrJamesThe3rd/playledger/internal/session"
)

type Handler struct {
	svc *export.Service
	now func() time.Time
}

func NewHandler(svc *export.Service) *Handler {
	return &Handler{svc: svc, now: time.Now}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.download)
	r.Get("/summary", h.summary)
}

// download sends the ledger as a CSV attachment. The file is built in
// memory first so a failed read still gets a proper error status.
func (h *Handler) download(w http.ResponseWriter, r *http.Request) {
	sess, ok := auth.Session(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := sess.Export(r.Context(), &buf); err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.FileName(h.now())+`"`)

	if _, err := buf.WriteTo(w); err != nil {
		slog.Error("failed to write export", "error", err)
	}
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	sess, ok := auth.Session(w, r)
	if !ok {
		return
	}

	ps, err := sess.Purchases()
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	if _, err := w.Write([]byte(h.svc.Summary(ps))); err != nil {
		slog.Error("failed to write summary", "error", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, session.ErrNoIdentity) {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	slog.Error("export failed", "error", err)
	http.Error(w, err.Error(), http.StatusInternalServerError)
}
