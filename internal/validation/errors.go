package validation

import (
	"sort"
	"strconv"
	"strings"
)

// FieldError is one validation failure, keyed by a field path that is unique
// within a repeating row (e.g. "catches-2-totalWeightLanded").
type FieldError struct {
	Field        string `json:"field"`
	Code         string `json:"code"`
	Message      string `json:"message"`
	DisplayValue string `json:"display_value,omitempty"`

	seq int
}

// GroupedError folds several entries sharing an error code into a single
// display entry while retaining every individual field key.
type GroupedError struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Fields  []string `json:"fields"`
}

// ErrorList accumulates field validation failures. It produces a map for
// inline display and a summary list in a fixed priority order so the summary
// is deterministic regardless of which validators ran first.
type ErrorList struct {
	errors []FieldError
}

// summaryOrder is the fixed priority sequence for summary display:
// product, then dates, then area, then vessel, then weight, then gear.
var summaryOrder = []string{
	"product",
	"startDate",
	"dateLanded",
	"faoArea",
	"highSeasArea",
	"exclusiveEconomicZone",
	"rfmo",
	"vessel",
	"weight",
	"totalWeightLanded",
	"gearCategory",
	"gearType",
	"gearCode",
}

func (el *ErrorList) Add(field, code, message string) {
	el.errors = append(el.errors, FieldError{Field: field, Code: code, Message: message, seq: len(el.errors)})
}

func (el *ErrorList) AddValue(field, code, message, displayValue string) {
	el.errors = append(el.errors, FieldError{Field: field, Code: code, Message: message, DisplayValue: displayValue, seq: len(el.errors)})
}

func (el *ErrorList) HasErrors() bool {
	return el != nil && len(el.errors) > 0
}

func (el *ErrorList) Len() int {
	if el == nil {
		return 0
	}
	return len(el.errors)
}

// Error implements error so an ErrorList can travel as one value where
// needed; validation failures are otherwise treated as data, not errors.
func (el *ErrorList) Error() string {
	msgs := make([]string, len(el.errors))
	for i, e := range el.errors {
		msgs[i] = e.Field + ": " + e.Message
	}
	return strings.Join(msgs, "; ")
}

// Map returns errors keyed by field path for inline display. The first error
// recorded for a field wins.
func (el *ErrorList) Map() map[string]FieldError {
	m := make(map[string]FieldError, len(el.errors))
	for _, e := range el.errors {
		if _, ok := m[e.Field]; !ok {
			m[e.Field] = e
		}
	}
	return m
}

// Summary returns all errors ordered by the fixed priority sequence, then by
// row index, then by insertion order.
func (el *ErrorList) Summary() []FieldError {
	out := make([]FieldError, len(el.errors))
	copy(out, el.errors)
	sort.SliceStable(out, func(i, j int) bool {
		ri, bi := splitFieldKey(out[i].Field)
		rj, bj := splitFieldKey(out[j].Field)
		pi, pj := fieldPriority(bi), fieldPriority(bj)
		if pi != pj {
			return pi < pj
		}
		if ri != rj {
			return ri < rj
		}
		return out[i].seq < out[j].seq
	})
	return out
}

// Grouped folds summary entries sharing an error code into one entry each,
// preserving the summary order of first occurrence.
func (el *ErrorList) Grouped() []GroupedError {
	var out []GroupedError
	index := map[string]int{}
	for _, e := range el.Summary() {
		if i, ok := index[e.Code]; ok {
			out[i].Fields = append(out[i].Fields, e.Field)
			continue
		}
		index[e.Code] = len(out)
		out = append(out, GroupedError{Code: e.Code, Message: e.Message, Fields: []string{e.Field}})
	}
	return out
}

// splitFieldKey pulls the row index and base field name out of a repeating
// key like "catches-2-totalWeightLanded". Simple keys have row index -1.
func splitFieldKey(key string) (row int, base string) {
	parts := strings.FieldsFunc(key, func(r rune) bool { return r == '-' || r == '.' })
	if len(parts) >= 3 {
		if n, err := strconv.Atoi(parts[1]); err == nil {
			return n, strings.Join(parts[2:], "-")
		}
	}
	return -1, key
}

func fieldPriority(base string) int {
	for i, name := range summaryOrder {
		if base == name || strings.HasPrefix(base, name) {
			return i
		}
	}
	return len(summaryOrder)
}
