// Package landings is the HTTP controller for the landing entry form. It
// translates requests into workflow commands, runs the engine, persists the
// next session state and maps the outcome onto a response. All decisions
// live in the engine; this package only does transport.
package landings

import (
	"database/sql"
	"net/http"

	"github.com/rs/zerolog"

	"fes/internal/auth"
	"fes/internal/documents"
	"fes/internal/refdata"
	"fes/internal/response"
	"fes/internal/server"
	"fes/internal/session"
	"fes/internal/websocket"
	"fes/internal/workflow"
)

// Handler serves the landing entry workflow for one document.
type Handler struct {
	DB       *sql.DB
	Docs     *documents.Store
	Ref      *refdata.Service
	Sessions *session.Store
	CSRF     *auth.CSRF
	Engine   *workflow.Engine
	Hub      *websocket.Hub
	Log      zerolog.Logger
}

// Get renders the landing form: the saved session state with the one-shot
// action token consumed, cascading option sets, a fresh CSRF token, and the
// document's current products and landings.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request, docID string) {
	userID, ok := server.UserID(r)
	if !ok {
		response.Err(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if h.forbidden(w, h.Docs.Authorize(docID, userID)) {
		return
	}

	token, _ := h.Sessions.Token(r)
	st, err := h.Sessions.LoadState(token)
	if err != nil {
		response.Err(w, "Failed to load session", http.StatusInternalServerError)
		return
	}

	render := h.Engine.Render(st)

	// Tokens are single use: every render gets its own.
	csrf, err := h.CSRF.Issue(userID)
	if err != nil {
		response.Err(w, "Failed to issue token", http.StatusInternalServerError)
		return
	}
	render.State.CSRF = csrf

	if err := h.Sessions.SaveState(token, render.State); err != nil {
		response.Err(w, "Failed to save session", http.StatusInternalServerError)
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
	landingRows, err := h.Docs.Landings(docID)
	if err != nil {
		response.Err(w, "Failed to load landings", http.StatusInternalServerError)
		return
	}

	response.JSON(w, map[string]interface{}{
		"document": doc,
		"products": products,
		"landings": landingRows,
		"form":     render,
	})
}

// Post runs one workflow transition from the submitted form.
func (h *Handler) Post(w http.ResponseWriter, r *http.Request, docID string) {
	userID, ok := server.UserID(r)
	if !ok {
		response.Err(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if err := r.ParseForm(); err != nil {
		response.Err(w, "Invalid form", http.StatusBadRequest)
		return
	}

	token, _ := h.Sessions.Token(r)
	st, err := h.Sessions.LoadState(token)
	if err != nil {
		response.Err(w, "Failed to load session", http.StatusInternalServerError)
		return
	}

	cmd := workflow.ParseCommand(r.PostForm)
	out, err := h.Engine.Handle(docID, userID, st, cmd)
	if err != nil {
		h.Log.Error().Err(err).Str("document", docID).Msg("workflow transition failed")
		response.Err(w, "Failed to process action", http.StatusInternalServerError)
		return
	}

	// A submit that failed validation consumed its token on the way in. The
	// redisplayed form gets a fresh one so the corrected resubmit is not
	// rejected as forged.
	if out.Kind == workflow.OutcomeRedisplay {
		csrf, err := h.CSRF.Issue(userID)
		if err != nil {
			response.Err(w, "Failed to issue token", http.StatusInternalServerError)
			return
		}
		out.State.CSRF = csrf
	}

	if err := h.Sessions.SaveState(token, out.State); err != nil {
		response.Err(w, "Failed to save session", http.StatusInternalServerError)
		return
	}

	h.respond(w, r, docID, cmd, out)
}

// respond maps an engine outcome onto the HTTP response, broadcasting a
// change event for transitions that touched the store.
func (h *Handler) respond(w http.ResponseWriter, r *http.Request, docID string, cmd workflow.Command, out workflow.Outcome) {
	switch out.Kind {
	case workflow.OutcomeForbidden:
		target := "/forbidden"
		if out.SupportID != "" {
			target += "?supportId=" + out.SupportID
		}
		http.Redirect(w, r, target, http.StatusSeeOther)
	case workflow.OutcomeRedisplay:
		w.WriteHeader(http.StatusOK)
		response.JSON(w, map[string]interface{}{
			"state":   out.State,
			"errors":  out.Errors.Map(),
			"summary": out.Errors.Summary(),
			"grouped": out.Errors.Grouped(),
		})
	case workflow.OutcomeRedirectNext:
		h.broadcast(docID, cmd)
		http.Redirect(w, r, h.nextPath(docID, cmd), http.StatusSeeOther)
	default:
		h.broadcast(docID, cmd)
		http.Redirect(w, r, r.URL.Path, http.StatusSeeOther)
	}
}

// nextPath picks the forward target for transitions that leave the form.
func (h *Handler) nextPath(docID string, cmd workflow.Command) string {
	if _, ok := cmd.(workflow.SaveAsDraft); ok {
		return "/api/v1/documents"
	}
	if _, ok := cmd.(workflow.UploadProductAndLanding); ok {
		return "/api/v1/documents/" + docID + "/uploads"
	}
	return "/api/v1/documents/" + docID + "/summary"
}

// broadcast notifies open tabs about store mutations. Session-only
// transitions stay silent.
func (h *Handler) broadcast(docID string, cmd workflow.Command) {
	if h.Hub == nil {
		return
	}
	switch c := cmd.(type) {
	case workflow.SubmitLanding:
		h.Hub.BroadcastChange(docID, "landing", "saved", nil)
	case workflow.DeleteLanding:
		h.Hub.BroadcastChange(docID, "landing", "deleted", c.LandingID)
	case workflow.DeleteProduct:
		h.Hub.BroadcastChange(docID, "product", "deleted", c.ProductID)
	case workflow.SaveAsDraft, workflow.SaveAndContinue:
		h.Hub.BroadcastChange(docID, "document", "saved", nil)
	}
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
