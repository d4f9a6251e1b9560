// Package store is the persistence layer the migration writes through.
//
// Two implementations satisfy [Store]: [Postgres], which talks to the
// target database through pgx, and [Memory], an in-process store used by
// tests and dry runs. Both report a unique-constraint violation on create
// as [ErrConflict] so callers can tell a duplicate from any other failure.
package store

import (
	"context"
	"errors"
	"slices"
)

var (
	// ErrConflict wraps unique-constraint violations on create.
	ErrConflict = errors.New("unique constraint violation")

	// ErrNotFound is returned by single-row lookups with no match.
	ErrNotFound = errors.New("not found")

	// ErrUnknownTable is returned by DeleteAll for tables outside WipeOrder.
	ErrUnknownTable = errors.New("unknown table")
)

// Target tables touched by a migration.
const (
	TableDevisRefs           = "devis_refs"
	TableOpportunityTagLinks = "opportunity_tag_links"
	TableOpportunityComments = "opportunity_comments"
	TableOpportunityTimeline = "opportunity_timelines"
	TablePipelineOrders      = "pipeline_orders"
	TableOpportunities       = "opportunities"
	TableClientContacts      = "client_contacts"
	TableCommentAttachments  = "comment_attachments"
	TableClientComments      = "client_comments"
	TableClientSectors       = "client_sectors"
	TableClientAddresses     = "client_addresses"
	TableClients             = "clients"
)

// WipeOrder lists every migrated table, deepest children first, so that
// deleting in this order never violates a foreign key.
var WipeOrder = []string{
	TableDevisRefs,
	TableOpportunityTagLinks,
	TableOpportunityComments,
	TableOpportunityTimeline,
	TablePipelineOrders,
	TableOpportunities,
	TableClientContacts,
	TableCommentAttachments,
	TableClientComments,
	TableClientSectors,
	TableClientAddresses,
	TableClients,
}

// parentOf records the foreign key each wiped table holds.
var parentOf = map[string]string{
	TableDevisRefs:           TableClients,
	TableOpportunityTagLinks: TableOpportunities,
	TableOpportunityComments: TableOpportunities,
	TableOpportunityTimeline: TableOpportunities,
	TablePipelineOrders:      TableOpportunities,
	TableOpportunities:       TableClients,
	TableClientContacts:      TableClients,
	TableCommentAttachments:  TableClientComments,
	TableClientComments:      TableClients,
	TableClientSectors:       TableClients,
	TableClientAddresses:     TableClients,
}

func knownTable(table string) bool {
	return slices.Contains(WipeOrder, table)
}

// Store is everything the migration needs from the target database.
type Store interface {
	// CountryID returns the id of the country with the given code,
	// or ErrNotFound.
	CountryID(ctx context.Context, code string) (int32, error)

	// DeleteAll removes every row of a table listed in WipeOrder.
	DeleteAll(ctx context.Context, table string) (int64, error)

	CreateClient(ctx context.Context, arg CreateClientParams) (int32, error)
	CreateDevisRef(ctx context.Context, arg CreateDevisRefParams) (int32, error)

	// ClientExternalRefs returns every client carrying a legacy id.
	ClientExternalRefs(ctx context.Context) ([]ExternalRef, error)

	Counts(ctx context.Context) (Counts, error)
}

// IsConflict reports whether err is a unique-constraint violation.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}
