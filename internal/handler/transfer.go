package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/sakif/revision-tracker/internal/service"
)

// MaxImportBytes caps an import upload.
const MaxImportBytes = 5 << 20

// TransferHandler moves question sets in and out as JSON documents.
type TransferHandler struct {
	service *service.QuestionService
	logger  *slog.Logger
}

func NewTransferHandler(svc *service.QuestionService, logger *slog.Logger) *TransferHandler {
	return &TransferHandler{service: svc, logger: logger}
}

// HandleExport downloads every question as an interchange document.
//
// HTTP: GET /api/export
// Response: questions.json as an attachment
func (h *TransferHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	doc, err := h.service.Export(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="questions.json"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc); err != nil {
		h.logger.Warn("export write failed", slog.String("error", err.Error()))
	}
}

// HandleImport merges an uploaded document into the user's set.
//
// HTTP: POST /api/import (raw JSON body: an array of records or one record)
// Response: {"imported": n, "skipped": m}
//
// A document that is not a record list or a single record is rejected
// whole with 400 and nothing is stored.
func (h *TransferHandler) HandleImport(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxImportBytes))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{
				Error:   "too_large",
				Message: fmt.Sprintf("import must be %d bytes or less", MaxImportBytes),
			})
			return
		}
		writeError(w, err)
		return
	}

	summary, err := h.service.Import(r.Context(), userID, raw)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
