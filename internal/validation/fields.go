package validation

import (
	"regexp"
	"strconv"
	"time"

	"fes/internal/models"
)

// Error codes form a closed enumeration; validators never invent codes.
const (
	CodeProductMissing    = "productIdMissing"
	CodeProductUnknown    = "productIdDoesNotExist"
	CodeProductWithdrawn  = "productWithdrawn"
	CodeProductRestricted = "productRestricted"

	CodeStartDateMissing   = "startDateMissing"
	CodeDateMissing        = "dateMissing"
	CodeDateInvalid        = "dateInvalidFormat"
	CodeDateTooFarInFuture = "dateTooFarInFuture"

	CodeFaoAreaUnknown = "faoAreaDoesNotExist"
	CodeHighSeasUnset  = "highSeasAreaUnset"
	CodeEEZUnknown     = "eezDoesNotExist"
	CodeEEZDuplicate   = "eezDuplicate"
	CodeRFMOUnknown    = "rfmoDoesNotExist"

	CodeVesselMissing    = "vesselPlnMissing"
	CodeVesselUnknown    = "vesselPlnDoesNotExist"
	CodeVesselUnlicensed = "vesselNotLicensedForDate"
	CodeVesselNotEnabled = "vesselNotYetEnabled"

	CodeWeightMissing = "weightMissing"
	CodeWeightInvalid = "weightNonNumeric"

	CodeGearCategoryMissing = "gearCategoryMissing"
	CodeGearTypeInvalid     = "gearTypeNotInCategory"
	CodeGearCodeUnknown     = "gearCodeDoesNotExist"

	CodeRowTooShort  = "rowTooShort"
	CodeLandingLimit = "landingLimitReached"
)

// Product statuses as reported by the reference data service.
const (
	ProductActive     = "active"
	ProductWithdrawn  = "withdrawn"
	ProductRestricted = "restricted"
)

// Ref is the narrow reference-data surface validators consume. Lookups that
// fail (service unavailable) report not-found/empty rather than erroring, so
// the caller still gets field-level errors instead of a failed request.
type Ref interface {
	ProductStatus(id string) (status string, found bool)
	VesselByPLN(pln string, date time.Time) (models.Vessel, bool)
	VesselExists(pln string) bool
	GearTypesByCategory(category string) []string
	GearCodeExists(code string) bool
	EEZExists(country string) bool
	FaoAreaExists(code string) bool
	RFMOExists(code string) bool
}

// weightPattern requires a positive decimal with at most two fractional
// digits. Anything else is invalid; no silent coercion.
var weightPattern = regexp.MustCompile(`^\d+(\.\d{1,2})?$`)

// ParseDate tries each accepted format exactly. Ambiguous input (two-digit
// years, impossible dates like 99/99/2020) matches no format and is invalid.
func ParseDate(value string, formats []string) (time.Time, bool) {
	for _, f := range formats {
		if t, err := time.Parse(f, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ValidateDate checks an optional date field: format, then the future-day
// ceiling. Empty values are the caller's concern.
func ValidateDate(el *ErrorList, field, value string, formats []string, maxFutureDays int, now time.Time) {
	if value == "" {
		return
	}
	t, ok := ParseDate(value, formats)
	if !ok {
		el.AddValue(field, CodeDateInvalid, "must be a real date in an accepted format", value)
		return
	}
	if maxFutureDays >= 0 {
		limit := now.AddDate(0, 0, maxFutureDays)
		if t.After(limit) {
			el.AddValue(field, CodeDateTooFarInFuture, "is too far in the future", value)
		}
	}
}

// ValidateWeight checks an export weight: positive decimal, at most two
// fractional digits.
func ValidateWeight(el *ErrorList, field, value string, required bool) {
	if value == "" {
		if required {
			el.Add(field, CodeWeightMissing, "enter the export weight")
		}
		return
	}
	if !weightPattern.MatchString(value) || value == "0" || allZero(value) {
		el.AddValue(field, CodeWeightInvalid, "must be a positive number with up to two decimal places", value)
	}
}

func allZero(value string) bool {
	seen := false
	for _, r := range value {
		switch r {
		case '0', '.':
			seen = true
		default:
			return false
		}
	}
	return seen
}

// ValidateVessel checks a vessel identifier against the registry as of the
// landing date. The date must be present and format-valid before a lookup is
// attempted: without one the vessel field is reported as not yet enabled,
// never looked up.
func ValidateVessel(el *ErrorList, field, pln, dateLanded string, formats []string, ref Ref, required bool) {
	if pln == "" {
		if required {
			el.Add(field, CodeVesselMissing, "enter the landing vessel")
		}
		return
	}
	date, ok := ParseDate(dateLanded, formats)
	if !ok {
		el.AddValue(field, CodeVesselNotEnabled, "enter a valid date landed before selecting a vessel", pln)
		return
	}
	if !ref.VesselExists(pln) {
		el.AddValue(field, CodeVesselUnknown, "is not a registered vessel", pln)
		return
	}
	if _, licensed := ref.VesselByPLN(pln, date); !licensed {
		el.AddValue(field, CodeVesselUnlicensed, "was not licensed on the date landed", pln)
	}
}

// ValidateProduct checks a product identifier against the live product list.
func ValidateProduct(el *ErrorList, field, id string, ref Ref, required bool) {
	if id == "" {
		if required {
			el.Add(field, CodeProductMissing, "select a product")
		}
		return
	}
	status, found := ref.ProductStatus(id)
	switch {
	case !found:
		el.AddValue(field, CodeProductUnknown, "is not a known product", id)
	case status == ProductWithdrawn:
		el.AddValue(field, CodeProductWithdrawn, "has been withdrawn", id)
	case status == ProductRestricted:
		el.AddValue(field, CodeProductRestricted, "is restricted for export", id)
	}
}

// ValidateGearSelection checks the dependent category/type pair. A type value
// inconsistent with the selected category is invalid, never coerced.
func ValidateGearSelection(el *ErrorList, catField, typeField, category, gearType string, ref Ref) {
	if category == "" {
		el.Add(catField, CodeGearCategoryMissing, "select a gear category")
		return
	}
	if gearType == "" {
		return
	}
	for _, t := range ref.GearTypesByCategory(category) {
		if t == gearType {
			return
		}
	}
	el.AddValue(typeField, CodeGearTypeInvalid, "is not a gear type in the selected category", gearType)
}

// ValidateGearCode checks a raw gear code (bulk upload path).
func ValidateGearCode(el *ErrorList, field, code string, ref Ref) {
	if code == "" {
		return
	}
	if !ref.GearCodeExists(code) {
		el.AddValue(field, CodeGearCodeUnknown, "is not a recognised gear code", code)
	}
}

// ValidateEEZs checks each selected zone and rejects duplicates. Empty slots
// (just-added zones) are skipped.
func ValidateEEZs(el *ErrorList, fieldPrefix string, zones []string, ref Ref) {
	seen := map[string]int{}
	for i, zone := range zones {
		if zone == "" {
			continue
		}
		field := fieldPrefix
		if len(zones) > 1 {
			field = fieldPrefix + "-" + strconv.Itoa(i)
		}
		if !ref.EEZExists(zone) {
			el.AddValue(field, CodeEEZUnknown, "is not a recognised exclusive economic zone", zone)
			continue
		}
		if _, dup := seen[zone]; dup {
			el.AddValue(field, CodeEEZDuplicate, "is already selected", zone)
			continue
		}
		seen[zone] = i
	}
}

// ValidateFaoArea checks an optional catch area code.
func ValidateFaoArea(el *ErrorList, field, code string, ref Ref) {
	if code == "" {
		return
	}
	if !ref.FaoAreaExists(code) {
		el.AddValue(field, CodeFaoAreaUnknown, "is not a recognised catch area", code)
	}
}

// ValidateRFMO checks an optional RFMO code.
func ValidateRFMO(el *ErrorList, field, code string, ref Ref) {
	if code == "" {
		return
	}
	if !ref.RFMOExists(code) {
		el.AddValue(field, CodeRFMOUnknown, "is not a recognised RFMO", code)
	}
}
