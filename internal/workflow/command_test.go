package workflow

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommandVariants(t *testing.T) {
	tests := []struct {
		action string
		want   Command
	}{
		{"add-dateLanded", AddDateLanded{}},
		{"addGearCategory", AddGearCategory{}},
		{"add-zone-button", AddZone{}},
		{"remove-zone-button", RemoveZone{}},
		{"submit", SubmitLanding{}},
		{"cancel", Cancel{}},
		{"edit-landing", EditLanding{}},
		{"delete-landing", DeleteLanding{}},
		{"delete-product", DeleteProduct{}},
		{"saveAsDraft", SaveAsDraft{}},
		{"saveAndContinue", SaveAndContinue{}},
		{"uploadProductAndLanding", UploadProductAndLanding{}},
		{"", ClearAndForward{}},
		{"something-new", ClearAndForward{}},
	}
	for _, tt := range tests {
		got := ParseCommand(url.Values{"_action": {tt.action}})
		assert.IsType(t, tt.want, got, "action %q", tt.action)
	}
}

func TestParseCommandCarriesFields(t *testing.T) {
	form := url.Values{
		"_action":               {"submit"},
		"csrf":                  {"tok"},
		"product":               {"PRD238"},
		"startDate":             {"01/01/2025"},
		"dateLanded":            {"02/01/2025"},
		"highSeasArea":          {"No"},
		"exclusiveEconomicZone": {"United Kingdom", "Norway"},
		"vessel":                {"K373"},
		"weight":                {"1500.50"},
		"gearCategory":          {"Dredges"},
		"gearType":              {"Towed dredges (DRB)"},
	}
	cmd := ParseCommand(form)
	submit, ok := cmd.(SubmitLanding)
	require.True(t, ok)
	assert.Equal(t, "tok", submit.CSRF)
	assert.Equal(t, "PRD238", submit.Fields.Product)
	assert.Equal(t, []string{"United Kingdom", "Norway"}, submit.Fields.EEZs)
	assert.Equal(t, "Towed dredges (DRB)", submit.Fields.GearType)
}

func TestParseCommandTargetedActions(t *testing.T) {
	cmd := ParseCommand(url.Values{"_action": {"delete-landing"}, "landingId": {"L1"}, "csrf": {"tok"}})
	del, ok := cmd.(DeleteLanding)
	require.True(t, ok)
	assert.Equal(t, "L1", del.LandingID)
	assert.Equal(t, "tok", del.CSRF)

	cmd = ParseCommand(url.Values{"_action": {"delete-product"}, "productId": {"P1"}, "csrf": {"tok"}})
	delP, ok := cmd.(DeleteProduct)
	require.True(t, ok)
	assert.Equal(t, "P1", delP.ProductID)

	cmd = ParseCommand(url.Values{"_action": {"cancel"}, "product": {"PRD734"}})
	cancel, ok := cmd.(Cancel)
	require.True(t, ok)
	assert.Equal(t, "PRD734", cancel.SelectedProduct)
}

func TestClearLandingKeysPreservesCSRF(t *testing.T) {
	st := FormState{
		CSRF:            "tok",
		SelectedProduct: "PRD238",
		SelectedEEZs:    []string{"Norway"},
		LandingID:       "L1",
		EditLanding:     true,
		ActionExecuted:  "submit",
		LandingExecuted: true,
		HasLandingError: true,
	}
	st.ClearLandingKeys()
	assert.Equal(t, "tok", st.CSRF)
	assert.Empty(t, st.SelectedProduct)
	assert.Nil(t, st.SelectedEEZs)
	assert.Empty(t, st.LandingID)
	assert.False(t, st.EditLanding)
	assert.Empty(t, st.ActionExecuted)
	assert.False(t, st.LandingExecuted)
	assert.False(t, st.HasLandingError)
}
