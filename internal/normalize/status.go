package normalize

import (
	"strings"

	"github.com/JonMunkholm/crmmigrate/internal/dump"
	"github.com/JonMunkholm/crmmigrate/internal/store"
)

// DefaultStatus is assigned to unknown and NULL source codes.
const DefaultStatus = store.DevisStatusBrouillon

// statusTable maps every known legacy quote status onto the target vocabulary.
var statusTable = map[string]store.DevisStatus{
	"draft":               store.DevisStatusBrouillon,
	"awaiting_validation": store.DevisStatusBrouillon,

	"sent":    store.DevisStatusEnvoye,
	"expedie": store.DevisStatusEnvoye,
	"open":    store.DevisStatusEnvoye,
	"relance": store.DevisStatusEnvoye,
	"lu":      store.DevisStatusEnvoye,
	"clicked": store.DevisStatusEnvoye,

	"accepted":         store.DevisStatusAccepte,
	"done":             store.DevisStatusAccepte,
	"paid":             store.DevisStatusAccepte,
	"acompte":          store.DevisStatusAccepte,
	"billed":           store.DevisStatusAccepte,
	"partially_billed": store.DevisStatusAccepte,
	"partially_paid":   store.DevisStatusAccepte,
	"billing":          store.DevisStatusAccepte,

	"refused": store.DevisStatusRefuse,
	"expired": store.DevisStatusRefuse,

	"canceled":   store.DevisStatusAnnule,
	"error_sent": store.DevisStatusAnnule,
	"error":      store.DevisStatusAnnule,
	"spam":       store.DevisStatusAnnule,
	"blocked":    store.DevisStatusAnnule,
}

// StatusCodes returns the legacy codes with an explicit mapping.
func StatusCodes() []string {
	codes := make([]string, 0, len(statusTable))
	for code := range statusTable {
		codes = append(codes, code)
	}
	return codes
}

// StatusCode canonicalizes a legacy code: lower case, spaces as underscores.
func StatusCode(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	return strings.Join(strings.Fields(s), "_")
}

// MapStatus maps a legacy status value onto a target status.
func MapStatus(v dump.Value) store.DevisStatus {
	if v.IsNull() {
		return DefaultStatus
	}
	if status, ok := statusTable[StatusCode(v.Text())]; ok {
		return status
	}
	return DefaultStatus
}
