package workflow

import "net/url"

// Action values recognized from the submitted form.
const (
	ActionAddDateLanded   = "add-dateLanded"
	ActionAddGearCategory = "addGearCategory"
	ActionAddZone         = "add-zone-button"
	ActionRemoveZone      = "remove-zone-button"
	ActionSubmit          = "submit"
	ActionCancel          = "cancel"
	ActionEditLanding     = "edit-landing"
	ActionDeleteLanding   = "delete-landing"
	ActionDeleteProduct   = "delete-product"
	ActionUpload          = "uploadProductAndLanding"
	ActionSaveAsDraft     = "saveAsDraft"
	ActionSaveAndContinue = "saveAndContinue"
)

// FormFields are the raw submitted landing field values, uninterpreted.
type FormFields struct {
	Product      string
	StartDate    string
	DateLanded   string
	FaoArea      string
	HighSeasArea string
	EEZs         []string
	RFMO         string
	Vessel       string
	Weight       string
	GearCategory string
	GearType     string
}

// Command is the closed set of workflow actions. The switch over commands in
// the engine is exhaustive; adding a variant without handling it is a
// compile-visible hole rather than a silently ignored string.
type Command interface {
	isCommand()
}

// Partial-submit commands: session-only, no CSRF required.
type AddDateLanded struct{ Fields FormFields }
type AddGearCategory struct{ Fields FormFields }
type AddZone struct{ Fields FormFields }
type RemoveZone struct{ Fields FormFields }

// SubmitLanding adds or updates a landing; CSRF-checked.
type SubmitLanding struct {
	Fields FormFields
	CSRF   string
}

// Cancel abandons the in-progress entry. A differently-selected product
// survives; everything else clears.
type Cancel struct{ SelectedProduct string }

// EditLanding loads a landing into session for editing.
type EditLanding struct{ LandingID string }

// DeleteLanding removes a landing directly; CSRF-checked.
type DeleteLanding struct {
	LandingID string
	CSRF      string
}

// DeleteProduct removes a product and its landings; CSRF-checked.
type DeleteProduct struct {
	ProductID string
	CSRF      string
}

// SaveAsDraft persists the document and leaves the workflow.
type SaveAsDraft struct{ CSRF string }

// SaveAndContinue persists the document and moves forward.
type SaveAndContinue struct{ CSRF string }

// UploadProductAndLanding hands off to the bulk upload path.
type UploadProductAndLanding struct{ CSRF string }

// ClearAndForward is the fallthrough for unrecognized actions: clear the
// landing session keys and redirect forward.
type ClearAndForward struct{}

func (AddDateLanded) isCommand()           {}
func (AddGearCategory) isCommand()         {}
func (AddZone) isCommand()                 {}
func (RemoveZone) isCommand()              {}
func (SubmitLanding) isCommand()           {}
func (Cancel) isCommand()                  {}
func (EditLanding) isCommand()             {}
func (DeleteLanding) isCommand()           {}
func (DeleteProduct) isCommand()           {}
func (SaveAsDraft) isCommand()             {}
func (SaveAndContinue) isCommand()         {}
func (UploadProductAndLanding) isCommand() {}
func (ClearAndForward) isCommand()         {}

// ParseCommand maps a submitted form onto a command variant carrying only
// the fields relevant to it.
func ParseCommand(form url.Values) Command {
	fields := FormFields{
		Product:      form.Get("product"),
		StartDate:    form.Get("startDate"),
		DateLanded:   form.Get("dateLanded"),
		FaoArea:      form.Get("faoArea"),
		HighSeasArea: form.Get("highSeasArea"),
		EEZs:         form["exclusiveEconomicZone"],
		RFMO:         form.Get("rfmo"),
		Vessel:       form.Get("vessel"),
		Weight:       form.Get("weight"),
		GearCategory: form.Get("gearCategory"),
		GearType:     form.Get("gearType"),
	}
	csrf := form.Get("csrf")

	switch form.Get("_action") {
	case ActionAddDateLanded:
		return AddDateLanded{Fields: fields}
	case ActionAddGearCategory:
		return AddGearCategory{Fields: fields}
	case ActionAddZone:
		return AddZone{Fields: fields}
	case ActionRemoveZone:
		return RemoveZone{Fields: fields}
	case ActionSubmit:
		return SubmitLanding{Fields: fields, CSRF: csrf}
	case ActionCancel:
		return Cancel{SelectedProduct: fields.Product}
	case ActionEditLanding:
		return EditLanding{LandingID: form.Get("landingId")}
	case ActionDeleteLanding:
		return DeleteLanding{LandingID: form.Get("landingId"), CSRF: csrf}
	case ActionDeleteProduct:
		return DeleteProduct{ProductID: form.Get("productId"), CSRF: csrf}
	case ActionSaveAsDraft:
		return SaveAsDraft{CSRF: csrf}
	case ActionSaveAndContinue:
		return SaveAndContinue{CSRF: csrf}
	case ActionUpload:
		return UploadProductAndLanding{CSRF: csrf}
	default:
		return ClearAndForward{}
	}
}
