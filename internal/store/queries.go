package store

import (
	"context"

	"github.com/jackc/pgx/v5"
)

const countryIDByCode = `
SELECT id FROM countries
WHERE code = $1
LIMIT 1
`

func (q *Queries) CountryIDByCode(ctx context.Context, code string) (int32, error) {
	row := q.db.QueryRow(ctx, countryIDByCode, code)
	var id int32
	err := row.Scan(&id)
	return id, err
}

const createClient = `
INSERT INTO clients (
    id_client_crm, client_type, nom, prenom, enseigne, email, telephone, mobile,
    adresse, cp, ville, departement, pays_id, type_commercial, code_quadra, created_at
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8,
    $9, $10, $11, $12, $13, $14, $15, COALESCE($16, now())
)
RETURNING id
`

func (q *Queries) CreateClient(ctx context.Context, arg CreateClientParams) (int32, error) {
	row := q.db.QueryRow(ctx, createClient,
		arg.IDClientCrm,
		arg.ClientType,
		arg.Nom,
		arg.Prenom,
		arg.Enseigne,
		arg.Email,
		arg.Telephone,
		arg.Mobile,
		arg.Adresse,
		arg.Cp,
		arg.Ville,
		arg.Departement,
		arg.PaysID,
		arg.TypeCommercial,
		arg.CodeQuadra,
		arg.CreatedAt,
	)
	var id int32
	err := row.Scan(&id)
	return id, err
}

const createDevisRef = `
INSERT INTO devis_refs (
    id_devis_crm, client_id, indent, objet, status, total_ht, total_ttc, total_tva,
    date_creation, date_validite, date_signature, commercial_nom, note
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8,
    $9, $10, $11, $12, $13
)
RETURNING id
`

func (q *Queries) CreateDevisRef(ctx context.Context, arg CreateDevisRefParams) (int32, error) {
	row := q.db.QueryRow(ctx, createDevisRef,
		arg.IDDevisCrm,
		arg.ClientID,
		arg.Indent,
		arg.Objet,
		arg.Status,
		arg.TotalHt,
		arg.TotalTtc,
		arg.TotalTva,
		arg.DateCreation,
		arg.DateValidite,
		arg.DateSignature,
		arg.CommercialNom,
		arg.Note,
	)
	var id int32
	err := row.Scan(&id)
	return id, err
}

const listClientExternalRefs = `
SELECT id_client_crm, id FROM clients
WHERE id_client_crm IS NOT NULL
`

func (q *Queries) ListClientExternalRefs(ctx context.Context) ([]ExternalRef, error) {
	rows, err := q.db.Query(ctx, listClientExternalRefs)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[ExternalRef])
}

// DeleteAllFrom empties table. The name is quoted as an identifier;
// callers restrict it to known tables.
func (q *Queries) DeleteAllFrom(ctx context.Context, table string) (int64, error) {
	tag, err := q.db.Exec(ctx, "DELETE FROM "+pgx.Identifier{table}.Sanitize())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const countMigrated = `
SELECT
    count(*),
    count(id_client_crm),
    count(*) - count(id_client_crm),
    (SELECT count(*) FROM devis_refs)
FROM clients
`

func (q *Queries) CountMigrated(ctx context.Context) (Counts, error) {
	row := q.db.QueryRow(ctx, countMigrated)
	var c Counts
	err := row.Scan(&c.Clients, &c.ClientsWithCrmID, &c.ClientsWithoutCrmID, &c.DevisRefs)
	return c, err
}
