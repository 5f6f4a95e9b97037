// Package docs is the HTTP controller for export documents themselves:
// creating a draft, listing a user's documents and managing products.
package docs

import (
	"database/sql"
	"net/http"

	"github.com/rs/zerolog"

	"fes/internal/documents"
	"fes/internal/models"
	"fes/internal/response"
	"fes/internal/server"
	"fes/internal/websocket"
)

// Handler serves document and product endpoints.
type Handler struct {
	DB   *sql.DB
	Docs *documents.Store
	Hub  *websocket.Hub
	Log  zerolog.Logger
}

// List returns the caller's documents, newest first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := server.UserID(r)
	if !ok {
		response.Err(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	docs, err := h.Docs.ListByOwner(userID)
	if err != nil {
		response.Err(w, "Failed to list documents", http.StatusInternalServerError)
		return
	}
	response.JSON(w, docs)
}

// Create opens a new draft document of the requested type.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := server.UserID(r)
	if !ok {
		response.Err(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	var req struct {
		Type string `json:"type"`
	}
	if err := response.DecodeBody(r, &req); err != nil {
		response.Err(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	switch req.Type {
	case models.DocCatchCertificate, models.DocProcessingStatement, models.DocStorageDocument:
	default:
		response.Err(w, "Unknown document type", http.StatusBadRequest)
		return
	}

	doc, err := h.Docs.Create(userID, req.Type)
	if err != nil {
		h.Log.Error().Err(err).Msg("failed to create document")
		response.Err(w, "Failed to create document", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
	response.JSON(w, doc)
}

// Get returns one document with its products and landings.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request, docID string) {
	userID, ok := server.UserID(r)
	if !ok {
		response.Err(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if h.forbidden(w, h.Docs.Authorize(docID, userID)) {
		return
	}
	doc, err := h.Docs.ByID(docID)
	if err != nil {
		response.Err(w, "Document not found", http.StatusNotFound)
		return
	}
	products, err := h.Docs.Products(docID)
	if err != nil {
		response.Err(w, "Failed to load products", http.StatusInternalServerError)
		return
	}
	landings, err := h.Docs.Landings(docID)
	if err != nil {
		response.Err(w, "Failed to load landings", http.StatusInternalServerError)
		return
	}
	response.JSON(w, map[string]interface{}{
		"document": doc,
		"products": products,
		"landings": landings,
	})
}

// AddProduct attaches a product entry to a document.
func (h *Handler) AddProduct(w http.ResponseWriter, r *http.Request, docID string) {
	userID, ok := server.UserID(r)
	if !ok {
		response.Err(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if h.forbidden(w, h.Docs.Authorize(docID, userID)) {
		return
	}
	var p models.Product
	if err := response.DecodeBody(r, &p); err != nil {
		response.Err(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if p.Species == "" {
		response.Err(w, "Species is required", http.StatusBadRequest)
		return
	}

	id, err := h.Docs.AddProduct(docID, p)
	if err != nil {
		h.Log.Error().Err(err).Str("document", docID).Msg("failed to add product")
		response.Err(w, "Failed to add product", http.StatusInternalServerError)
		return
	}
	if h.Hub != nil {
		h.Hub.BroadcastChange(docID, "product", "created", id)
	}
	w.WriteHeader(http.StatusCreated)
	response.JSON(w, map[string]string{"id": id})
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
