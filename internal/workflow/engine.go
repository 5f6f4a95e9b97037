package workflow

import (
	"errors"
	"strconv"
	"time"

	"fes/internal/config"
	"fes/internal/documents"
	"fes/internal/models"
	"fes/internal/validation"
)

// DocumentStore is the document persistence surface the engine mutates.
// Every read is fresh per transition; the engine holds no document cache.
type DocumentStore interface {
	Authorize(docID string, userID int) error
	ByID(id string) (models.Document, error)
	AddLanding(docID string, l models.Landing) (string, error)
	UpdateLanding(docID string, l models.Landing) error
	DeleteLanding(docID, landingID string) error
	DeleteProduct(docID, productID string) error
	Landing(docID, landingID string) (models.Landing, error)
	LandingCount(docID string) (int, error)
	SetStatus(docID, status string) error
}

// Ref extends the validator lookups with the cascading option sets the form
// renders.
type Ref interface {
	validation.Ref
	GearCode(category, gearType string) (string, bool)
	GearCategories() []string
	VesselsForDate(date time.Time) []models.Vessel
	Countries() []string
}

// CSRFValidator checks a submitted token against the session's issued one.
type CSRFValidator interface {
	Validate(userID int, token string) bool
}

// OutcomeKind is the next state the controller must emit.
type OutcomeKind int

const (
	// OutcomeRedisplay re-renders the form immediately, usually with errors.
	OutcomeRedisplay OutcomeKind = iota
	// OutcomeRedirectSame redirects back to the same page (post/redirect/get).
	OutcomeRedirectSame
	// OutcomeRedirectNext redirects forward out of the landing form.
	OutcomeRedirectNext
	// OutcomeForbidden redirects to the forbidden page.
	OutcomeForbidden
)

// Outcome is a transition result: the next session state plus what the
// controller should do with the response.
type Outcome struct {
	Kind      OutcomeKind
	State     FormState
	Errors    *validation.ErrorList
	SupportID string
}

// RenderData is everything a GET of the landing form needs: the (token
// consumed) state plus cascading option sets derived from it.
type RenderData struct {
	State          FormState             `json:"state"`
	ConsumedAction string                `json:"consumed_action,omitempty"`
	GearCategories []string              `json:"gear_categories"`
	GearTypes      []string              `json:"gear_types"`
	Vessels        []models.Vessel       `json:"vessels"`
	Countries      []string              `json:"countries"`
	CanAddZone     bool                  `json:"can_add_zone"`
}

// Engine is the landing entry state machine.
type Engine struct {
	Docs   DocumentStore
	Ref    Ref
	CSRF   CSRFValidator
	Limits config.Limits
	Now    func() time.Time
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// Handle runs one transition. The ordering guarantees hold per command:
// authorization first on anything that touches the store, then CSRF on
// anything that mutates it, then field validation.
func (e *Engine) Handle(docID string, userID int, st FormState, cmd Command) (Outcome, error) {
	switch c := cmd.(type) {
	case AddDateLanded:
		return e.partial(st, c.Fields, ActionAddDateLanded), nil
	case AddGearCategory:
		st = e.partialState(st, c.Fields, ActionAddGearCategory)
		// A type left over from another category must not survive the switch.
		if !contains(e.Ref.GearTypesByCategory(st.GearCategory), st.GearType) {
			st.GearType = ""
		}
		return Outcome{Kind: OutcomeRedirectSame, State: st}, nil
	case AddZone:
		st = e.partialState(st, c.Fields, ActionAddZone)
		if len(st.SelectedEEZs) < e.Limits.MaxEEZPerLanding {
			st.SelectedEEZs = append(st.SelectedEEZs, "")
		}
		return Outcome{Kind: OutcomeRedirectSame, State: st}, nil
	case RemoveZone:
		st = e.partialState(st, c.Fields, ActionRemoveZone)
		if n := len(st.SelectedEEZs); n > 0 {
			st.SelectedEEZs = st.SelectedEEZs[:n-1]
		}
		return Outcome{Kind: OutcomeRedirectSame, State: st}, nil
	case SubmitLanding:
		return e.submit(docID, userID, st, c)
	case Cancel:
		return e.cancel(st, c), nil
	case EditLanding:
		return e.edit(docID, userID, st, c)
	case DeleteLanding:
		return e.mutate(docID, userID, st, c.CSRF, func() error {
			err := e.Docs.DeleteLanding(docID, c.LandingID)
			if errors.Is(err, documents.ErrNotFound) {
				// Repeat delivery of the same delete is a no-op.
				return nil
			}
			return err
		})
	case DeleteProduct:
		return e.mutate(docID, userID, st, c.CSRF, func() error {
			err := e.Docs.DeleteProduct(docID, c.ProductID)
			if errors.Is(err, documents.ErrNotFound) {
				return nil
			}
			return err
		})
	case SaveAsDraft:
		out, err := e.mutate(docID, userID, st, c.CSRF, func() error {
			return e.Docs.SetStatus(docID, models.StatusDraft)
		})
		if err == nil && out.Kind == OutcomeRedirectSame {
			out.Kind = OutcomeRedirectNext
		}
		return out, err
	case SaveAndContinue:
		out, err := e.mutate(docID, userID, st, c.CSRF, func() error {
			return e.Docs.SetStatus(docID, models.StatusDraft)
		})
		if err == nil && out.Kind == OutcomeRedirectSame {
			out.State.ClearLandingKeys()
			out.Kind = OutcomeRedirectNext
		}
		return out, err
	case UploadProductAndLanding, ClearAndForward:
		st.ClearLandingKeys()
		return Outcome{Kind: OutcomeRedirectNext, State: st}, nil
	default:
		st.ClearLandingKeys()
		return Outcome{Kind: OutcomeRedirectNext, State: st}, nil
	}
}

// Render prepares a GET of the form: consumes the one-shot action token and
// derives the cascading option sets from the current state. The caller must
// persist the returned state.
func (e *Engine) Render(st FormState) RenderData {
	action, _ := st.ConsumeAction()
	data := RenderData{
		State:          st,
		ConsumedAction: action,
		GearCategories: e.Ref.GearCategories(),
		Countries:      e.Ref.Countries(),
		CanAddZone:     len(st.SelectedEEZs) < e.Limits.MaxEEZPerLanding,
	}
	if st.GearCategory != "" {
		data.GearTypes = e.Ref.GearTypesByCategory(st.GearCategory)
	}
	if date, ok := validation.ParseDate(st.SelectedDate, e.Limits.DateFormats); ok {
		data.Vessels = e.Ref.VesselsForDate(date)
	}
	return data
}

func (e *Engine) partial(st FormState, f FormFields, action string) Outcome {
	return Outcome{Kind: OutcomeRedirectSame, State: e.partialState(st, f, action)}
}

func (e *Engine) partialState(st FormState, f FormFields, action string) FormState {
	st.capture(f)
	st.ActionExecuted = action
	st.HasLandingError = false
	return st
}

func (e *Engine) cancel(st FormState, c Cancel) Outcome {
	keepProduct := ""
	if c.SelectedProduct != "" && c.SelectedProduct != st.SelectedProduct {
		keepProduct = c.SelectedProduct
	}
	st.ClearLandingKeys()
	st.SelectedProduct = keepProduct
	return Outcome{Kind: OutcomeRedirectSame, State: st}
}

func (e *Engine) edit(docID string, userID int, st FormState, c EditLanding) (Outcome, error) {
	if out, err, done := e.authorize(docID, userID, st); done {
		return out, err
	}
	l, err := e.Docs.Landing(docID, c.LandingID)
	if err != nil {
		if errors.Is(err, documents.ErrNotFound) {
			return Outcome{Kind: OutcomeRedirectSame, State: st}, nil
		}
		return Outcome{}, err
	}
	st.ClearLandingKeys()
	st.SelectedProduct = l.ProductID
	st.SelectedStartDate = l.StartDate
	st.SelectedDate = l.DateLanded
	st.SelectedFaoArea = l.FaoArea
	st.SelectedHighSeasArea = yesNo(l.HighSeasArea)
	st.SelectedRfmo = l.RFMO
	st.SelectedWeight = formatWeight(l.ExportWeight)
	st.SelectedVessel = l.VesselPLN
	st.GearCategory = l.GearCategory
	st.GearType = l.GearType
	st.SelectedEEZs = append([]string(nil), l.EEZs...)
	st.LandingID = l.ID
	st.EditLanding = true
	st.ActionExecuted = ActionEditLanding
	return Outcome{Kind: OutcomeRedirectSame, State: st}, nil
}

func (e *Engine) submit(docID string, userID int, st FormState, c SubmitLanding) (Outcome, error) {
	if out, err, done := e.authorize(docID, userID, st); done {
		return out, err
	}
	if !e.CSRF.Validate(userID, c.CSRF) {
		return Outcome{Kind: OutcomeForbidden, State: st}, nil
	}

	doc, err := e.Docs.ByID(docID)
	if err != nil {
		return Outcome{}, err
	}

	el := e.validateSubmit(doc, st, c.Fields)
	if el.HasErrors() {
		st.capture(c.Fields)
		st.HasLandingError = true
		return Outcome{Kind: OutcomeRedisplay, State: st, Errors: el}, nil
	}

	landing, err := e.resolveLanding(docID, st, c.Fields)
	if err != nil {
		return Outcome{}, err
	}

	if st.EditLanding && st.LandingID != "" {
		landing.ID = st.LandingID
		err = e.Docs.UpdateLanding(docID, landing)
	} else {
		_, err = e.Docs.AddLanding(docID, landing)
	}
	if err != nil {
		return Outcome{}, err
	}

	next := FormState{CSRF: st.CSRF}
	next.ActionExecuted = ActionSubmit
	next.LandingExecuted = true
	return Outcome{Kind: OutcomeRedirectSame, State: next}, nil
}

// validateSubmit applies the manual-form rule set: start date, high seas
// flag and gear category are required; everything else validates only when
// supplied. The summary order is fixed by the aggregator, not by the order
// validators run here.
func (e *Engine) validateSubmit(doc models.Document, st FormState, f FormFields) *validation.ErrorList {
	el := &validation.ErrorList{}
	formats := e.Limits.DateFormats
	maxFuture := e.Limits.MaxFutureDaysDraft
	if doc.Status != models.StatusDraft {
		maxFuture = e.Limits.MaxFutureDaysFinal
	}

	validation.ValidateProduct(el, "product", f.Product, e.Ref, true)

	if f.StartDate == "" {
		el.Add("startDate", validation.CodeStartDateMissing, "enter the start date of the trip")
	} else {
		validation.ValidateDate(el, "startDate", f.StartDate, formats, -1, e.now())
	}
	validation.ValidateDate(el, "dateLanded", f.DateLanded, formats, maxFuture, e.now())
	validation.ValidateFaoArea(el, "faoArea", f.FaoArea, e.Ref)
	if f.HighSeasArea != "Yes" && f.HighSeasArea != "No" {
		el.Add("highSeasArea", validation.CodeHighSeasUnset, "select whether the catch was taken on the high seas")
	}
	validation.ValidateEEZs(el, "exclusiveEconomicZone", f.EEZs, e.Ref)
	validation.ValidateRFMO(el, "rfmo", f.RFMO, e.Ref)
	validation.ValidateVessel(el, "vessel", f.Vessel, f.DateLanded, formats, e.Ref, false)
	validation.ValidateWeight(el, "weight", f.Weight, false)
	validation.ValidateGearSelection(el, "gearCategory", "gearType", f.GearCategory, f.GearType, e.Ref)

	if !st.EditLanding {
		if n, err := e.Docs.LandingCount(doc.ID); err == nil && n >= e.Limits.MaxLandingsPerDocument {
			el.Add("product", validation.CodeLandingLimit, "this document already has the maximum number of landings")
		}
	}
	return el
}

// resolveLanding normalizes validated fields into a landing: vessel snapshot
// from the registry, gear code from the category/type pair, empty zone slots
// dropped. A registry miss while editing keeps the previously stored vessel
// snapshot.
func (e *Engine) resolveLanding(docID string, st FormState, f FormFields) (models.Landing, error) {
	l := models.Landing{
		DocumentID:   docID,
		ProductID:    f.Product,
		StartDate:    f.StartDate,
		DateLanded:   f.DateLanded,
		FaoArea:      f.FaoArea,
		HighSeasArea: f.HighSeasArea == "Yes",
		RFMO:         f.RFMO,
		GearCategory: f.GearCategory,
		GearType:     f.GearType,
	}

	for _, zone := range f.EEZs {
		if zone != "" {
			l.EEZs = append(l.EEZs, zone)
		}
	}

	if code, ok := e.Ref.GearCode(f.GearCategory, f.GearType); ok {
		l.GearCode = code
	}

	if f.Weight != "" {
		w, err := strconv.ParseFloat(f.Weight, 64)
		if err != nil {
			return models.Landing{}, err
		}
		l.ExportWeight = w
	}

	if f.Vessel != "" {
		l.VesselPLN = f.Vessel
		date, ok := validation.ParseDate(f.DateLanded, e.Limits.DateFormats)
		if v, found := e.Ref.VesselByPLN(f.Vessel, date); ok && found {
			l.VesselName = v.Name
		} else if st.EditLanding && st.LandingID != "" {
			// Registry unavailable mid-edit: carry the previous snapshot
			// forward rather than fail the commit.
			if prev, err := e.Docs.Landing(docID, st.LandingID); err == nil {
				l.VesselPLN = prev.VesselPLN
				l.VesselName = prev.VesselName
			}
		}
	}

	return l, nil
}

// mutate wraps the authorize-then-CSRF-then-act ordering shared by the
// direct backend mutations.
func (e *Engine) mutate(docID string, userID int, st FormState, csrf string, act func() error) (Outcome, error) {
	if out, err, done := e.authorize(docID, userID, st); done {
		return out, err
	}
	if !e.CSRF.Validate(userID, csrf) {
		return Outcome{Kind: OutcomeForbidden, State: st}, nil
	}
	if err := act(); err != nil {
		return Outcome{}, err
	}
	return Outcome{Kind: OutcomeRedirectSame, State: st}, nil
}

func (e *Engine) authorize(docID string, userID int, st FormState) (Outcome, error, bool) {
	err := e.Docs.Authorize(docID, userID)
	if err == nil {
		return Outcome{}, nil, false
	}
	var ae *documents.AuthError
	if errors.As(err, &ae) {
		return Outcome{Kind: OutcomeForbidden, State: st, SupportID: ae.SupportID}, nil, true
	}
	return Outcome{}, err, true
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func formatWeight(w float64) string {
	if w == 0 {
		return ""
	}
	return strconv.FormatFloat(w, 'f', -1, 64)
}
