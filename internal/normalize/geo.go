package normalize

import (
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
)

// overseasPrefix marks French overseas postal codes, whose department
// code is three characters long.
const overseasPrefix = "97"

// Department derives the department code from a postal code.
func Department(cp string) pgtype.Text {
	cp = strings.TrimSpace(cp)
	r := []rune(cp)

	n := 2
	if strings.HasPrefix(cp, overseasPrefix) {
		n = 3
	}

	switch {
	case len(r) < 2:
		return pgtype.Text{Valid: false}
	case len(r) < n:
		n = len(r)
	}
	return pgtype.Text{String: string(r[:n]), Valid: true}
}
