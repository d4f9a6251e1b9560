package store

import (
	"database/sql/driver"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
)

type ClientType string

const (
	ClientTypePerson      ClientType = "person"
	ClientTypeCorporation ClientType = "corporation"
)

type TypeCommercial string

const (
	TypeCommercialClient   TypeCommercial = "client"
	TypeCommercialProspect TypeCommercial = "prospect"
)

// NullTypeCommercial is a nullable TypeCommercial column value.
type NullTypeCommercial struct {
	TypeCommercial TypeCommercial
	Valid          bool
}

// Value implements driver.Valuer so pgx can encode the enum.
func (ns NullTypeCommercial) Value() (driver.Value, error) {
	if !ns.Valid {
		return nil, nil
	}
	return string(ns.TypeCommercial), nil
}

// DevisStatus is the target vocabulary for quote status.
type DevisStatus string

const (
	DevisStatusBrouillon DevisStatus = "brouillon"
	DevisStatusEnvoye    DevisStatus = "envoye"
	DevisStatusAccepte   DevisStatus = "accepte"
	DevisStatusRefuse    DevisStatus = "refuse"
	DevisStatusAnnule    DevisStatus = "annule"
)

// AllDevisStatusValues lists every target status.
func AllDevisStatusValues() []DevisStatus {
	return []DevisStatus{
		DevisStatusBrouillon,
		DevisStatusEnvoye,
		DevisStatusAccepte,
		DevisStatusRefuse,
		DevisStatusAnnule,
	}
}

// Valid reports whether s is one of the target statuses.
func (s DevisStatus) Valid() bool {
	switch s {
	case DevisStatusBrouillon, DevisStatusEnvoye, DevisStatusAccepte, DevisStatusRefuse, DevisStatusAnnule:
		return true
	}
	return false
}

type CreateClientParams struct {
	IDClientCrm    string
	ClientType     ClientType
	Nom            string
	Prenom         pgtype.Text
	Enseigne       pgtype.Text
	Email          pgtype.Text
	Telephone      pgtype.Text
	Mobile         pgtype.Text
	Adresse        pgtype.Text
	Cp             pgtype.Text
	Ville          pgtype.Text
	Departement    pgtype.Text
	PaysID         int32
	TypeCommercial NullTypeCommercial
	CodeQuadra     pgtype.Text
	CreatedAt      pgtype.Timestamptz
}

type CreateDevisRefParams struct {
	IDDevisCrm    string
	ClientID      int32
	Indent        pgtype.Text
	Objet         pgtype.Text
	Status        DevisStatus
	TotalHt       pgtype.Numeric
	TotalTtc      pgtype.Numeric
	TotalTva      pgtype.Numeric
	DateCreation  pgtype.Timestamptz
	DateValidite  pgtype.Timestamptz
	DateSignature pgtype.Timestamptz
	CommercialNom pgtype.Text
	Note          pgtype.Text
}

// ExternalRef pairs a legacy identifier with the target row id.
type ExternalRef struct {
	IDClientCrm string `db:"id_client_crm"`
	ID          int32  `db:"id"`
}

// Counts is the verification snapshot reported after a migration.
type Counts struct {
	Clients             int64
	ClientsWithCrmID    int64
	ClientsWithoutCrmID int64
	DevisRefs           int64
}

func (c Counts) String() string {
	return fmt.Sprintf("clients=%d (crm id: %d, none: %d) devis=%d",
		c.Clients, c.ClientsWithCrmID, c.ClientsWithoutCrmID, c.DevisRefs)
}
