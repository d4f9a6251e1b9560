package normalize

import (
	"github.com/JonMunkholm/crmmigrate/internal/dump"
	"github.com/JonMunkholm/crmmigrate/internal/store"
)

// DefaultClientName replaces a blank source name.
const DefaultClientName = "Sans nom"

// Client is a normalized parent record.
type Client struct {
	ExternalID string
	Deleted    bool
	Params     store.CreateClientParams
}

// NewClient builds a client from an exported row. Params.PaysID is left
// for the caller, which owns the country lookup.
func NewClient(rec dump.Record, defaultName string) Client {
	if defaultName == "" {
		defaultName = DefaultClientName
	}

	extID, _ := Clean(rec.Text("id"))
	nom, ok := Clean(rec.Text("nom"))
	if !ok {
		nom = defaultName
	}
	cp := Text(rec.Get("cp"))

	return Client{
		ExternalID: extID,
		Deleted:    isDeleted(rec.Get("deleted")),
		Params: store.CreateClientParams{
			IDClientCrm:    extID,
			ClientType:     clientType(rec.Text("client_type")),
			Nom:            nom,
			Prenom:         Text(rec.Get("prenom")),
			Enseigne:       Text(rec.Get("enseigne")),
			Email:          Text(rec.Get("email")),
			Telephone:      Text(rec.Get("telephone")),
			Mobile:         Text(rec.Get("mobile")),
			Adresse:        Text(rec.Get("adresse")),
			Cp:             cp,
			Ville:          Text(rec.Get("ville")),
			Departement:    Department(cp.String),
			TypeCommercial: typeCommercial(rec.Text("type_commercial")),
			CodeQuadra:     Text(rec.Get("code_quadra")),
			CreatedAt:      Timestamp(rec.Get("created")),
		},
	}
}

func clientType(s string) store.ClientType {
	if s, _ := Clean(s); s == string(store.ClientTypeCorporation) {
		return store.ClientTypeCorporation
	}
	return store.ClientTypePerson
}

func typeCommercial(s string) store.NullTypeCommercial {
	s, _ = Clean(s)
	switch s {
	case "client":
		return store.NullTypeCommercial{TypeCommercial: store.TypeCommercialClient, Valid: true}
	case "prospect", "futur_client":
		return store.NullTypeCommercial{TypeCommercial: store.TypeCommercialProspect, Valid: true}
	default:
		return store.NullTypeCommercial{}
	}
}

// isDeleted reads the soft-delete flag, exported as 0/1.
func isDeleted(v dump.Value) bool {
	switch v.Kind {
	case dump.KindInt:
		return v.Int == 1
	case dump.KindString:
		s, _ := Clean(v.Str)
		return s == "1"
	default:
		return false
	}
}
