package feed

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/Guizzs26/suya-queue/internal/models"
	"golang.org/x/text/cases"
)

// NormalizeSpice maps free-text pepper answers onto a SpiceLevel.
// "no" is matched as a word so that "Normal" stays normal.
func NormalizeSpice(raw string) models.SpiceLevel {
	folded := cases.Fold().String(raw)
	for _, w := range strings.FieldsFunc(folded, func(r rune) bool { return !unicode.IsLetter(r) }) {
		if w == "no" || w == "none" || w == "without" {
			return models.SpiceNone
		}
	}
	if strings.Contains(folded, "extra") {
		return models.SpiceExtra
	}
	return models.SpiceNormal
}

// NormalizePortion maps free-text portion answers onto a PortionType
func NormalizePortion(raw string) models.PortionType {
	folded := cases.Fold().String(raw)
	if strings.Contains(folded, "kid") || strings.Contains(folded, "child") {
		return models.PortionKids
	}
	return models.PortionRegular
}

// DateOrder is how the sheet's locale writes slash dates
type DateOrder string

const (
	DateMDY DateOrder = "MDY"
	DateDMY DateOrder = "DMY"
)

// ParseDateOrder reads SHEET_DATE_ORDER. Empty means month first, the form's default export.
func ParseDateOrder(raw string) (DateOrder, error) {
	switch DateOrder(strings.ToUpper(strings.TrimSpace(raw))) {
	case "", DateMDY:
		return DateMDY, nil
	case DateDMY:
		return DateDMY, nil
	}
	return DateMDY, fmt.Errorf("%w: unknown date order %q, expected MDY or DMY", models.ErrValidation, raw)
}

// TimestampFormat is how the responses tab writes its timestamp column
type TimestampFormat struct {
	Location *time.Location
	Order    DateOrder
}

var isoLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006/01/02 15:04:05",
	"2006-01-02",
}

var monthFirstLayouts = []string{
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006",
}

var dayFirstLayouts = []string{
	"2/1/2006 15:04:05",
	"2/1/2006 15:04",
	"2/1/2006",
	"2.1.2006 15:04:05",
	"2.1.2006 15:04",
}

// ParseTimestamp reads the form's timestamp column. Zones in the text win over f.Location.
// Slash dates are read only in f.Order: a day-first "05/12/2025" is never taken as May 12.
func ParseTimestamp(raw string, f TimestampFormat) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	loc := f.Location
	if loc == nil {
		loc = time.Local
	}
	local := monthFirstLayouts
	if f.Order == DateDMY {
		local = dayFirstLayouts
	}
	for _, layouts := range [][]string{isoLayouts, local} {
		for _, layout := range layouts {
			if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}
