// Package normalize turns raw export records into typed values ready to be
// written to the target store.
//
// Every conversion is total: bad input yields an invalid (NULL) pgtype value,
// never an error. Blank strings, NULL and missing columns all collapse to the
// same absent value.
package normalize

import (
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/JonMunkholm/crmmigrate/internal/dump"
	"github.com/jackc/pgx/v5/pgtype"
)

// numericRegex validates a decimal literal before it is scanned into
// pgtype.Numeric.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// Location is applied to timestamps that carry no zone. The export writes
// server-local wall time without an offset.
var Location = time.UTC

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Clean trims s and reports whether anything is left.
func Clean(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != ""
}

// Text converts a value to pgtype.Text. NULL and blank strings are invalid.
func Text(v dump.Value) pgtype.Text {
	s, ok := Clean(v.Text())
	if !ok {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

// Numeric converts a value to pgtype.Numeric. Numbers keep their textual
// form so no precision is added on the way.
func Numeric(v dump.Value) pgtype.Numeric {
	s, ok := Clean(v.Text())
	if !ok || !numericRegex.MatchString(s) {
		return pgtype.Numeric{Valid: false}
	}

	if strings.ContainsAny(s, "eE") {
		plain, ok := expandExponent(s)
		if !ok {
			return pgtype.Numeric{Valid: false}
		}
		s = plain
	}

	var n pgtype.Numeric
	if err := n.Scan(s); err != nil {
		return pgtype.Numeric{Valid: false}
	}
	return n
}

// expandExponent rewrites "1.5e3" as "1500". pgtype.Numeric only scans
// plain decimal text.
func expandExponent(s string) (string, bool) {
	f, ok := new(big.Float).SetPrec(200).SetString(s)
	if !ok || f.IsInf() {
		return "", false
	}
	return f.Text('f', -1), true
}

// isZeroDate matches MySQL's "no date" placeholders in date or datetime form.
func isZeroDate(s string) bool {
	date, _, _ := strings.Cut(s, " ")
	return date == "0000-00-00"
}

// Timestamp converts a date or datetime value to pgtype.Timestamptz.
// Zero dates and anything that does not parse as a real calendar date
// are invalid.
func Timestamp(v dump.Value) pgtype.Timestamptz {
	if v.Kind != dump.KindString {
		return pgtype.Timestamptz{Valid: false}
	}

	s, ok := Clean(v.Str)
	if !ok || isZeroDate(s) {
		return pgtype.Timestamptz{Valid: false}
	}

	for _, layout := range timestampLayouts {
		t, err := time.ParseInLocation(layout, s, Location)
		if err == nil {
			return pgtype.Timestamptz{Time: t, Valid: true}
		}
	}

	return pgtype.Timestamptz{Valid: false}
}
