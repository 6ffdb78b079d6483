package models

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeTerm trims a raw search term, collapses internal whitespace runs and
// converts it to NFC so visually identical input maps to the same ranking key.
// Case is preserved.
func NormalizeTerm(raw string) string {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return ""
	}
	return norm.NFC.String(strings.Join(fields, " "))
}
