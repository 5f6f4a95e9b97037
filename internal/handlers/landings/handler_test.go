package landings_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"fes/internal/auth"
	"fes/internal/config"
	"fes/internal/documents"
	"fes/internal/handlers/landings"
	"fes/internal/models"
	"fes/internal/refdata"
	"fes/internal/server"
	"fes/internal/session"
	"fes/internal/testutil"
	"fes/internal/workflow"
)

func newHandler(db *sql.DB) *landings.Handler {
	log := zerolog.Nop()
	docs := &documents.Store{DB: db}
	ref := &refdata.Service{DB: db, Log: log}
	csrf := &auth.CSRF{DB: db}
	return &landings.Handler{
		DB:       db,
		Docs:     docs,
		Ref:      ref,
		Sessions: &session.Store{DB: db},
		CSRF:     csrf,
		Engine: &workflow.Engine{
			Docs:   docs,
			Ref:    ref,
			CSRF:   csrf,
			Limits: config.Default().Limits,
		},
		Log: log,
	}
}

func withUser(req *http.Request, userID int) *http.Request {
	return req.WithContext(context.WithValue(req.Context(), server.CtxUserID, userID))
}

func landingForm(csrf string) url.Values {
	return url.Values{
		"_action":               {"submit"},
		"csrf":                  {csrf},
		"product":               {"PRD238"},
		"startDate":             {"01/01/2025"},
		"dateLanded":            {"02/01/2025"},
		"faoArea":               {"FAO27"},
		"highSeasArea":          {"No"},
		"exclusiveEconomicZone": {"United Kingdom"},
		"rfmo":                  {"NEAFC"},
		"vessel":                {"K373"},
		"weight":                {"1500.50"},
		"gearCategory":          {"Dredges"},
		"gearType":              {"Towed dredges (DRB)"},
	}
}

func postForm(h *landings.Handler, docID string, userID int, sessionToken string, form url.Values) *httptest.ResponseRecorder {
	req := testutil.AuthedFormRequest("/api/v1/documents/"+docID+"/landings", form.Encode(), sessionToken)
	req = withUser(req, userID)
	w := httptest.NewRecorder()
	h.Post(w, req, docID)
	return w
}

func TestGetIssuesFreshCSRFToken(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()
	h := newHandler(db)

	userID := testutil.CreateTestUser(t, db, "alice", "password", true)
	sess := testutil.CreateTestSession(t, db, userID)
	doc, _ := h.Docs.Create(userID, models.DocCatchCertificate)

	req := withUser(testutil.AuthedRequest("GET", "/api/v1/documents/"+doc.ID+"/landings", nil, sess), userID)
	w := httptest.NewRecorder()
	h.Get(w, req, doc.ID)
	testutil.AssertStatus(t, w, 200)

	var body struct {
		Form struct {
			State workflow.FormState `json:"state"`
		} `json:"form"`
	}
	testutil.DecodeEnvelope(t, w, &body)
	if body.Form.State.CSRF == "" {
		t.Fatal("render must issue a CSRF token")
	}

	// A second render issues a different token; the first is still saved
	// state until then.
	req = withUser(testutil.AuthedRequest("GET", "/api/v1/documents/"+doc.ID+"/landings", nil, sess), userID)
	w = httptest.NewRecorder()
	h.Get(w, req, doc.ID)
	var second struct {
		Form struct {
			State workflow.FormState `json:"state"`
		} `json:"form"`
	}
	testutil.DecodeEnvelope(t, w, &second)
	if second.Form.State.CSRF == body.Form.State.CSRF {
		t.Error("each render must issue its own token")
	}
}

func TestGetForbiddenForNonOwner(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()
	h := newHandler(db)

	owner := testutil.CreateTestUser(t, db, "alice", "password", true)
	intruder := testutil.CreateTestUser(t, db, "mallory", "password", true)
	sess := testutil.CreateTestSession(t, db, intruder)
	doc, _ := h.Docs.Create(owner, models.DocCatchCertificate)

	req := withUser(testutil.AuthedRequest("GET", "/api/v1/documents/"+doc.ID+"/landings", nil, sess), intruder)
	w := httptest.NewRecorder()
	h.Get(w, req, doc.ID)
	testutil.AssertStatus(t, w, 403)
	if !strings.Contains(w.Body.String(), "supportId") {
		t.Error("forbidden response must carry a support id")
	}
}

func TestPostSubmitPersistsLanding(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()
	h := newHandler(db)

	userID := testutil.CreateTestUser(t, db, "alice", "password", true)
	sess := testutil.CreateTestSession(t, db, userID)
	doc, _ := h.Docs.Create(userID, models.DocCatchCertificate)
	csrf := testutil.IssueCSRF(t, db, userID)

	w := postForm(h, doc.ID, userID, sess, landingForm(csrf))
	testutil.AssertStatus(t, w, http.StatusSeeOther)

	rows, err := h.Docs.Landings(doc.ID)
	if err != nil {
		t.Fatalf("list landings: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 landing, got %d", len(rows))
	}
	if rows[0].VesselName != "WIRON 5" || rows[0].GearCode != "DRB" {
		t.Errorf("unexpected landing %+v", rows[0])
	}

	// The one-shot submit marker is in the saved session state.
	st, _ := h.Sessions.LoadState(sess)
	if st.ActionExecuted != "submit" || !st.LandingExecuted {
		t.Errorf("expected submit markers in state, got %+v", st)
	}
}

func TestPostSubmitValidationErrorsRedisplay(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()
	h := newHandler(db)

	userID := testutil.CreateTestUser(t, db, "alice", "password", true)
	sess := testutil.CreateTestSession(t, db, userID)
	doc, _ := h.Docs.Create(userID, models.DocCatchCertificate)
	csrf := testutil.IssueCSRF(t, db, userID)

	form := url.Values{
		"_action": {"submit"},
		"csrf":    {csrf},
		"product": {"PRD238"},
	}
	w := postForm(h, doc.ID, userID, sess, form)
	testutil.AssertStatus(t, w, 200)

	var body struct {
		Summary []struct {
			Code string `json:"code"`
		} `json:"summary"`
	}
	testutil.DecodeEnvelope(t, w, &body)
	if len(body.Summary) != 3 {
		t.Fatalf("expected 3 errors, got %d: %s", len(body.Summary), w.Body.String())
	}
	codes := []string{body.Summary[0].Code, body.Summary[1].Code, body.Summary[2].Code}
	want := []string{"startDateMissing", "highSeasAreaUnset", "gearCategoryMissing"}
	for i := range want {
		if codes[i] != want[i] {
			t.Errorf("summary[%d] = %q, want %q", i, codes[i], want[i])
		}
	}

	if n, _ := (&documents.Store{DB: db}).LandingCount(doc.ID); n != 0 {
		t.Errorf("no landing must be written on validation failure, got %d", n)
	}
}

func TestValidationErrorRedisplayIssuesFreshToken(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()
	h := newHandler(db)

	userID := testutil.CreateTestUser(t, db, "alice", "password", true)
	sess := testutil.CreateTestSession(t, db, userID)
	doc, _ := h.Docs.Create(userID, models.DocCatchCertificate)
	csrf := testutil.IssueCSRF(t, db, userID)

	form := url.Values{"_action": {"submit"}, "csrf": {csrf}, "product": {"PRD238"}}
	w := postForm(h, doc.ID, userID, sess, form)
	testutil.AssertStatus(t, w, 200)

	var body struct {
		State workflow.FormState `json:"state"`
	}
	testutil.DecodeEnvelope(t, w, &body)
	if body.State.CSRF == "" {
		t.Fatal("redisplay must carry a token, the submitted one was consumed")
	}
	if body.State.CSRF == csrf {
		t.Fatal("redisplay must not reuse the consumed token")
	}

	// Correcting the fields and resubmitting with the redisplayed token
	// goes through.
	w = postForm(h, doc.ID, userID, sess, landingForm(body.State.CSRF))
	testutil.AssertStatus(t, w, http.StatusSeeOther)
	if loc := w.Header().Get("Location"); strings.HasPrefix(loc, "/forbidden") {
		t.Fatalf("corrected resubmit rejected as forged: %s", loc)
	}
	if n, _ := h.Docs.LandingCount(doc.ID); n != 1 {
		t.Errorf("expected 1 landing after corrected resubmit, got %d", n)
	}
}

func TestPostBadCSRFRedirectsForbidden(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()
	h := newHandler(db)

	userID := testutil.CreateTestUser(t, db, "alice", "password", true)
	sess := testutil.CreateTestSession(t, db, userID)
	doc, _ := h.Docs.Create(userID, models.DocCatchCertificate)

	w := postForm(h, doc.ID, userID, sess, landingForm("forged-token"))
	testutil.AssertStatus(t, w, http.StatusSeeOther)
	if loc := w.Header().Get("Location"); loc != "/forbidden" {
		t.Errorf("expected forbidden redirect, got %q", loc)
	}
}

func TestPostNonOwnerRedirectsForbiddenWithSupportID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()
	h := newHandler(db)

	owner := testutil.CreateTestUser(t, db, "alice", "password", true)
	intruder := testutil.CreateTestUser(t, db, "mallory", "password", true)
	sess := testutil.CreateTestSession(t, db, intruder)
	doc, _ := h.Docs.Create(owner, models.DocCatchCertificate)
	csrf := testutil.IssueCSRF(t, db, intruder)

	w := postForm(h, doc.ID, intruder, sess, landingForm(csrf))
	testutil.AssertStatus(t, w, http.StatusSeeOther)
	loc := w.Header().Get("Location")
	if !strings.HasPrefix(loc, "/forbidden?supportId=") {
		t.Errorf("expected supportId on forbidden redirect, got %q", loc)
	}

	// Ownership is checked before the token: the intruder's valid token
	// must not have been consumed.
	var n int
	db.QueryRow("SELECT COUNT(*) FROM csrf_tokens WHERE token = ?", csrf).Scan(&n)
	if n != 1 {
		t.Error("token consumed before authorization check")
	}
}

func TestPostPartialSubmitRedirectsBack(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()
	h := newHandler(db)

	userID := testutil.CreateTestUser(t, db, "alice", "password", true)
	sess := testutil.CreateTestSession(t, db, userID)
	doc, _ := h.Docs.Create(userID, models.DocCatchCertificate)

	form := url.Values{
		"_action":    {"add-dateLanded"},
		"dateLanded": {"02/01/2025"},
		"product":    {"PRD238"},
	}
	w := postForm(h, doc.ID, userID, sess, form)
	testutil.AssertStatus(t, w, http.StatusSeeOther)

	st, _ := h.Sessions.LoadState(sess)
	if st.SelectedDate != "02/01/2025" || st.ActionExecuted != "add-dateLanded" {
		t.Errorf("partial submit state not saved: %+v", st)
	}
}

func TestPostDeleteLanding(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()
	h := newHandler(db)

	userID := testutil.CreateTestUser(t, db, "alice", "password", true)
	sess := testutil.CreateTestSession(t, db, userID)
	doc, _ := h.Docs.Create(userID, models.DocCatchCertificate)
	landingID, _ := h.Docs.AddLanding(doc.ID, models.Landing{ProductID: "PRD238"})
	csrf := testutil.IssueCSRF(t, db, userID)

	form := url.Values{
		"_action":   {"delete-landing"},
		"csrf":      {csrf},
		"landingId": {landingID},
	}
	w := postForm(h, doc.ID, userID, sess, form)
	testutil.AssertStatus(t, w, http.StatusSeeOther)

	if n, _ := h.Docs.LandingCount(doc.ID); n != 0 {
		t.Errorf("expected landing deleted, got %d", n)
	}
}

func TestRedisplayPayloadShape(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()
	h := newHandler(db)

	userID := testutil.CreateTestUser(t, db, "alice", "password", true)
	sess := testutil.CreateTestSession(t, db, userID)
	doc, _ := h.Docs.Create(userID, models.DocCatchCertificate)
	csrf := testutil.IssueCSRF(t, db, userID)

	form := url.Values{"_action": {"submit"}, "csrf": {csrf}}
	w := postForm(h, doc.ID, userID, sess, form)

	var resp models.APIResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	data, ok := resp.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("unexpected payload %T", resp.Data)
	}
	for _, key := range []string{"state", "errors", "summary", "grouped"} {
		if _, ok := data[key]; !ok {
			t.Errorf("redisplay payload missing %q", key)
		}
	}
}
