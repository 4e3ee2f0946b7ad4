package common

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	numberRe     = regexp.MustCompile(`\d[\d.,]*`)
	groupedRe    = regexp.MustCompile(`^\d{1,3}([.,]\d{3})+$`)
	currencyRe   = regexp.MustCompile(`[€$£]|\bEUR\b|\bHRK\b|\bkn\b`)
)

// CleanText collapses runs of whitespace and trims the result.
func CleanText(text string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}

// ExtractNumber returns the first number in text, accepting "." or "," as
// thousands separators ("125.000", "125,000") and dropping any fraction.
func ExtractNumber(text string) int64 {
	match := strings.TrimRight(numberRe.FindString(text), ".,")
	if match == "" {
		return 0
	}
	lastDot, lastComma := strings.LastIndex(match, "."), strings.LastIndex(match, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastDot > lastComma {
			match = strings.ReplaceAll(match, ",", "")
		} else {
			match = strings.ReplaceAll(match, ".", "")
		}
	case groupedRe.MatchString(match):
		match = strings.NewReplacer(".", "", ",", "").Replace(match)
	}
	match = strings.ReplaceAll(match, ",", ".")
	if f, err := strconv.ParseFloat(match, 64); err == nil {
		return int64(f)
	}
	return 0
}

// ExtractPrice returns the price and currency symbol found in text.
func ExtractPrice(text string) (int64, string) {
	cleaned := CleanText(text)
	return ExtractNumber(cleaned), currencyRe.FindString(cleaned)
}

// Location is the geographic part of a listing title.
type Location struct {
	County       string
	Municipality string
	Place        string
}

// SplitTitle splits "TYPE - TRANSACTION - COUNTY - MUNICIPALITY - PLACE".
// Titles with fewer location parts fill what they can: two parts use the
// municipality as the place, one part is the place alone.
func SplitTitle(title string) (propertyType, transactionType string, loc Location) {
	raw := strings.Split(CleanText(title), " - ")
	parts := make([]string, 0, len(raw))
	for _, p := range raw {
		parts = append(parts, strings.TrimSpace(p))
	}
	if len(parts) < 3 {
		return "", "", Location{}
	}

	propertyType, transactionType = parts[0], parts[1]
	rest := parts[2:]
	switch {
	case len(rest) >= 3:
		loc = Location{County: rest[0], Municipality: rest[1], Place: rest[2]}
	case len(rest) == 2:
		loc = Location{County: rest[0], Municipality: rest[1], Place: rest[1]}
	case len(rest) == 1:
		loc = Location{Place: rest[0]}
	}
	return propertyType, transactionType, loc
}
