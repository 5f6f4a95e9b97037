// Package workflow drives the landing entry lifecycle: a typed form state
// persisted per browser session, a closed set of commands parsed from the
// submitted action, and a transition engine that decides whether to
// redisplay with errors, commit, cancel or redirect.
package workflow

// FormState is the session-held draft of the landing form. It replaces the
// untyped session bag with an explicit struct; every transition takes the
// prior state and returns the next one.
type FormState struct {
	CSRF string `json:"csrf,omitempty"`

	SelectedProduct      string   `json:"selectedProduct,omitempty"`
	SelectedStartDate    string   `json:"selectedStartDate,omitempty"`
	SelectedDate         string   `json:"selectedDate,omitempty"`
	SelectedFaoArea      string   `json:"selectedFaoArea,omitempty"`
	SelectedHighSeasArea string   `json:"selectedHighSeasArea,omitempty"`
	SelectedRfmo         string   `json:"selectedRfmo,omitempty"`
	SelectedWeight       string   `json:"selectedWeight,omitempty"`
	SelectedVessel       string   `json:"selectedVessel,omitempty"`
	GearCategory         string   `json:"gearCategory,omitempty"`
	GearType             string   `json:"gearType,omitempty"`
	SelectedEEZs         []string `json:"selectedExclusiveEconomicZones,omitempty"`

	LandingID   string `json:"landingId,omitempty"`
	EditLanding bool   `json:"editLanding,omitempty"`

	// ActionExecuted is a one-shot token: set when an action completes, and
	// consumed exactly once by the next page load so a reload never re-applies
	// the action's side effects.
	ActionExecuted  string `json:"actionExecuted,omitempty"`
	LandingExecuted bool   `json:"landingExecuted,omitempty"`
	HasLandingError bool   `json:"hasLandingError,omitempty"`
}

// ClearLandingKeys resets the fixed landing key set so stale values never
// leak into the next entry. The CSRF token survives; it belongs to the
// session, not to one landing.
func (s *FormState) ClearLandingKeys() {
	s.SelectedProduct = ""
	s.SelectedStartDate = ""
	s.SelectedDate = ""
	s.SelectedFaoArea = ""
	s.SelectedHighSeasArea = ""
	s.SelectedRfmo = ""
	s.SelectedWeight = ""
	s.SelectedVessel = ""
	s.GearCategory = ""
	s.GearType = ""
	s.SelectedEEZs = nil
	s.LandingID = ""
	s.EditLanding = false
	s.ActionExecuted = ""
	s.LandingExecuted = false
	s.HasLandingError = false
}

// ConsumeAction returns and unsets the one-shot action token. Callers must
// persist the state afterwards so a second reload sees nothing.
func (s *FormState) ConsumeAction() (string, bool) {
	if s.ActionExecuted == "" {
		return "", false
	}
	action := s.ActionExecuted
	s.ActionExecuted = ""
	return action, true
}

// capture copies every submitted field value into the state as-is. Used by
// partial submits and by the error redisplay path, so the user never loses
// input.
func (s *FormState) capture(f FormFields) {
	s.SelectedProduct = f.Product
	s.SelectedStartDate = f.StartDate
	s.SelectedDate = f.DateLanded
	s.SelectedFaoArea = f.FaoArea
	s.SelectedHighSeasArea = f.HighSeasArea
	s.SelectedRfmo = f.RFMO
	s.SelectedWeight = f.Weight
	s.SelectedVessel = f.Vessel
	s.GearCategory = f.GearCategory
	s.GearType = f.GearType
	s.SelectedEEZs = append([]string(nil), f.EEZs...)
}
