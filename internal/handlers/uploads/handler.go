// Package uploads is the HTTP controller for bulk product-and-landing
// files. Uploading only validates; the accepted subset is committed by a
// second, explicit request so the user always reviews the row outcomes
// first.
package uploads

import (
	"database/sql"
	"encoding/json"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"fes/internal/auth"
	"fes/internal/documents"
	"fes/internal/models"
	"fes/internal/response"
	"fes/internal/server"
	"fes/internal/session"
	"fes/internal/upload"
	"fes/internal/websocket"
	"fes/internal/workflow"
)

// Handler serves upload validation, commit and the row-error report.
type Handler struct {
	DB        *sql.DB
	Docs      *documents.Store
	Sessions  *session.Store
	CSRF      *auth.CSRF
	Validator *upload.Validator
	Hub       *websocket.Hub
	Log       zerolog.Logger
}

// Post validates an uploaded file and stores the resulting batch summary.
// Nothing is written to the document here.
func (h *Handler) Post(w http.ResponseWriter, r *http.Request, docID string) {
	userID, ok := server.UserID(r)
	if !ok {
		response.Err(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if h.forbidden(w, h.Docs.Authorize(docID, userID)) {
		return
	}

	if err := r.ParseMultipartForm(h.Validator.Limits.MaxUploadBytes + 4096); err != nil {
		response.Err(w, "Invalid upload", http.StatusBadRequest)
		return
	}
	if !h.CSRF.Validate(userID, r.FormValue("csrf")) {
		response.Err(w, "Forbidden", http.StatusForbidden)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		response.Err(w, "Missing upload file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	// Read one byte past the limit so oversized files trip the file-level
	// check instead of being silently truncated.
	data, err := io.ReadAll(io.LimitReader(file, h.Validator.Limits.MaxUploadBytes+1))
	if err != nil {
		response.Err(w, "Failed to read upload", http.StatusInternalServerError)
		return
	}

	summary := h.Validator.Validate(header.Filename, data)
	if err := h.saveBatch(docID, summary); err != nil {
		h.Log.Error().Err(err).Str("document", docID).Msg("failed to save upload batch")
		response.Err(w, "Failed to save upload", http.StatusInternalServerError)
		return
	}

	response.JSON(w, summary)
}

// Commit writes a validated batch's accepted rows to the document. The whole
// batch commits or none of it does; a document near its landing limit
// rejects the commit rather than taking a partial set.
func (h *Handler) Commit(w http.ResponseWriter, r *http.Request, docID, batchID string) {
	userID, ok := server.UserID(r)
	if !ok {
		response.Err(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if h.forbidden(w, h.Docs.Authorize(docID, userID)) {
		return
	}
	if err := r.ParseForm(); err != nil {
		response.Err(w, "Invalid form", http.StatusBadRequest)
		return
	}
	if !h.CSRF.Validate(userID, r.FormValue("csrf")) {
		response.Err(w, "Forbidden", http.StatusForbidden)
		return
	}

	summary, committed, err := h.loadBatch(docID, batchID)
	if err == sql.ErrNoRows {
		response.Err(w, "Upload batch not found", http.StatusNotFound)
		return
	}
	if err != nil {
		response.Err(w, "Failed to load upload batch", http.StatusInternalServerError)
		return
	}
	if committed {
		response.Err(w, "Upload batch already committed", http.StatusConflict)
		return
	}
	if summary.FileError != "" || summary.Accepted == 0 {
		response.Err(w, "Upload batch has no accepted rows", http.StatusBadRequest)
		return
	}

	count, err := h.Docs.LandingCount(docID)
	if err != nil {
		response.Err(w, "Failed to check landing count", http.StatusInternalServerError)
		return
	}
	if count+summary.Accepted > h.Validator.Limits.MaxLandingsPerDocument {
		response.Err(w, "Committing this upload would exceed the landing limit", http.StatusBadRequest)
		return
	}

	// All row inserts plus the committed flag go through one transaction:
	// a failure partway leaves the document untouched and the batch
	// retryable, and a replay can never see rows without the flag.
	tx, err := h.DB.Begin()
	if err != nil {
		response.Err(w, "Failed to commit upload", http.StatusInternalServerError)
		return
	}
	defer tx.Rollback()

	added := 0
	for _, row := range summary.Rows {
		if !row.Accepted || row.Landing == nil {
			continue
		}
		landing := *row.Landing
		landing.DocumentID = docID
		if _, err := h.Docs.AddLandingTx(tx, docID, landing); err != nil {
			h.Log.Error().Err(err).Str("document", docID).Int("row", row.Line).Msg("failed to commit upload row")
			response.Err(w, "Failed to commit upload", http.StatusInternalServerError)
			return
		}
		added++
	}
	if _, err := tx.Exec("UPDATE upload_batches SET committed=1 WHERE id=?", batchID); err != nil {
		response.Err(w, "Failed to commit upload", http.StatusInternalServerError)
		return
	}
	if err := tx.Commit(); err != nil {
		response.Err(w, "Failed to commit upload", http.StatusInternalServerError)
		return
	}

	if token, ok := h.Sessions.Token(r); ok {
		if st, err := h.Sessions.LoadState(token); err == nil {
			st.ActionExecuted = workflow.ActionUpload
			st.LandingExecuted = true
			h.Sessions.SaveState(token, st)
		}
	}

	if h.Hub != nil {
		h.Hub.BroadcastChange(docID, "landing", "uploaded", batchID)
	}
	response.JSON(w, map[string]interface{}{"committed": added, "batchId": batchID})
}

// Report streams the batch's row errors as a download, CSV by default.
func (h *Handler) Report(w http.ResponseWriter, r *http.Request, docID, batchID string) {
	userID, ok := server.UserID(r)
	if !ok {
		response.Err(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if h.forbidden(w, h.Docs.Authorize(docID, userID)) {
		return
	}

	summary, _, err := h.loadBatch(docID, batchID)
	if err == sql.ErrNoRows {
		response.Err(w, "Upload batch not found", http.StatusNotFound)
		return
	}
	if err != nil {
		response.Err(w, "Failed to load upload batch", http.StatusInternalServerError)
		return
	}

	if r.URL.Query().Get("format") == "xlsx" {
		upload.WriteReportExcel(w, summary)
		return
	}
	upload.WriteReportCSV(w, summary)
}

func (h *Handler) saveBatch(docID string, summary models.UploadSummary) error {
	raw, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	_, err = h.DB.Exec(`INSERT INTO upload_batches (id, document_id, summary, committed, created_at)
		VALUES (?, ?, ?, 0, CURRENT_TIMESTAMP)`,
		summary.BatchID, docID, string(raw))
	return err
}

func (h *Handler) loadBatch(docID, batchID string) (models.UploadSummary, bool, error) {
	var raw string
	var committed int
	err := h.DB.QueryRow(`SELECT summary, committed FROM upload_batches WHERE id=? AND document_id=?`,
		batchID, docID).Scan(&raw, &committed)
	if err != nil {
		return models.UploadSummary{}, false, err
	}
	var summary models.UploadSummary
	if err := json.Unmarshal([]byte(raw), &summary); err != nil {
		return models.UploadSummary{}, false, err
	}
	return summary, committed != 0, nil
}

func (h *Handler) forbidden(w http.ResponseWriter, err error) bool {
	if err == nil {
		return false
	}
	if ae, ok := err.(*documents.AuthError); ok {
		response.Forbidden(w, ae.SupportID)
		return true
	}
	response.Err(w, "Failed to check document access", http.StatusInternalServerError)
	return true
}
