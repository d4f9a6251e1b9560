package normalize

import (
	"github.com/JonMunkholm/crmmigrate/internal/dump"
	"github.com/JonMunkholm/crmmigrate/internal/store"
)

// Devis is a normalized child (quote) record. Params.ClientID is resolved
// by the loader from ClientExternalID.
type Devis struct {
	ExternalID       string
	ClientExternalID string
	Params           store.CreateDevisRefParams
}

// NewDevis builds a quote from an exported row.
func NewDevis(rec dump.Record) Devis {
	extID, _ := Clean(rec.Text("id"))
	clientID, _ := Clean(rec.Text("client_id"))

	return Devis{
		ExternalID:       extID,
		ClientExternalID: clientID,
		Params: store.CreateDevisRefParams{
			IDDevisCrm:    extID,
			Indent:        Text(rec.Get("indent")),
			Objet:         Text(rec.Get("objet")),
			Status:        MapStatus(rec.Get("status")),
			TotalHt:       Numeric(rec.Get("total_ht")),
			TotalTtc:      Numeric(rec.Get("total_ttc")),
			TotalTva:      Numeric(rec.Get("total_tva")),
			DateCreation:  Timestamp(rec.Get("date_crea")),
			DateValidite:  Timestamp(rec.Get("date_validite")),
			DateSignature: Timestamp(rec.Get("date_sign_before")),
			CommercialNom: Text(rec.Get("ref_commercial_id")),
			Note:          Text(rec.Get("note")),
		},
	}
}
