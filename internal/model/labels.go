package model

import (
	"fmt"
	"strings"
)

// NoneLabel marks an explicit "nothing detected" event.
const NoneLabel = "none"

// Labels is the closed set of date categories the classifier can output,
// in classifier output order.
var Labels = []string{
	"alig",
	"bessra",
	"Deglet Nour dryer",
	"Deglet Nour oily",
	"Deglet Nour oily treated",
	"Deglet Nour semi-dryer",
	"Deglet Nour semi-dryer treated",
	"Deglet Nour semi-oily",
	"Deglet Nour semi-oily treated",
	"kenta",
	"kintichi",
}

var advice = map[string]string{
	"alig":                           "Traditional dry date, ideal for long storage",
	"bessra":                         "Very dry, suited to the food industry",
	"deglet nour dryer":              "Dry date, rehydrate before eating",
	"deglet nour oily":               "Very soft and rich, excellent for direct consumption",
	"deglet nour oily treated":       "Already treated, ready for packaging",
	"deglet nour semi-dryer":         "Intermediate texture, recommended for sale",
	"deglet nour semi-dryer treated": "Improved stability, keeps well",
	"deglet nour semi-oily":          "Premium quality, ideal for export",
	"deglet nour semi-oily treated":  "Optimal after treatment, ready to use",
	"kenta":                          "Artisanal date, recommended as a local product",
	"kintichi":                       "Rare variety, for specialised markets",
}

// IsKnownLabel reports whether label is a category or the none label.
func IsKnownLabel(label string) bool {
	if label == NoneLabel {
		return true
	}
	_, ok := advice[strings.ToLower(strings.TrimSpace(label))]
	return ok
}

// LabelAt returns the category for a classifier output index.
func LabelAt(idx int) (string, error) {
	if idx < 0 || idx >= len(Labels) {
		return "", fmt.Errorf("class index %d out of range [0,%d)", idx, len(Labels))
	}
	return Labels[idx], nil
}

// QualityNote is the short grading attached to published events.
func QualityNote(confidence float64) string {
	if confidence >= 0.85 {
		return "✅ Excellent quality — ready for market"
	}
	return "⚠️ Average quality — sorting recommended"
}

// Recommend builds the per-label advice shown for the latest detection.
// percent is the confidence expressed in 0..100.
func Recommend(label string, percent float64) string {
	if label == "" || label == NoneLabel {
		return "No date detected"
	}

	base, ok := advice[strings.ToLower(strings.TrimSpace(label))]
	if !ok {
		base = "Unknown category"
	}

	switch {
	case percent >= 90:
		return "✅ " + base
	case percent >= 75:
		return "⚠️ " + base + " — check quality"
	default:
		return "❌ " + base + " — risk of non-compliance"
	}
}
