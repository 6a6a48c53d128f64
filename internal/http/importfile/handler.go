package importfile

import (
	"bufio"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/playledger/internal/http/auth"
	"github.com/MrJamesThe3rd/playledger/internal/importer"
	"github.com/MrJamesThe3rd/playledger/internal/ledger"
	"github.com/MrJamesThe3rd/playledger/internal/purchase"
	"github.com/MrJamesThe3rd/playledger/internal/session"
)

const maxUploadSize = 10 << 20

type Handler struct {
	importSvc *importer.Service
}

func NewHandler(importSvc *importer.Service) *Handler {
	return &Handler{importSvc: importSvc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.importFile)
}

type importResponse struct {
	*session.ImportReport
	Error string `json:"error,omitempty"`
}

func (h *Handler) importFile(w http.ResponseWriter, r *http.Request) {
	sess, ok := auth.Session(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		http.Error(w, "failed to parse form: "+err.Error(), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file field is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	br := bufio.NewReader(file)
	format := importer.Format(r.FormValue("format"))

	if format == "" {
		head, _ := br.Peek(512)

		format, err = h.importSvc.Detect(header.Filename, head)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	report, err := sess.Import(r.Context(), format, br)

	var partial *ledger.PartialError

	switch {
	case err == nil:
		writeReport(w, http.StatusCreated, report, nil)
	case errors.Is(err, session.ErrNoIdentity):
		http.Error(w, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, importer.ErrUnsupportedFormat),
		errors.Is(err, purchase.ErrEmptyFile),
		errors.Is(err, purchase.ErrMalformedFile):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, session.ErrNoRecords):
		writeReport(w, http.StatusBadRequest, report, err)
	case errors.As(err, &partial):
		slog.Error("import stopped early", "file", header.Filename, "error", err)
		writeReport(w, http.StatusMultiStatus, report, err)
	default:
		slog.Error("import failed", "file", header.Filename, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeReport(w http.ResponseWriter, status int, report *session.ImportReport, err error) {
	resp := importResponse{ImportReport: report}
	if err != nil {
		resp.Error = err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
