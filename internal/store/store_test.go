package store

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ----------------------------------------------------------------------------
// classifyPgError Tests
// ----------------------------------------------------------------------------

func TestClassifyPgError(t *testing.T) {
	unique := &pgconn.PgError{Code: "23505", ConstraintName: "clients_id_client_crm_key"}
	fk := &pgconn.PgError{Code: "23503", ConstraintName: "devis_refs_client_id_fkey"}
	other := &pgconn.PgError{Code: "42P01"}

	tests := []struct {
		name         string
		err          error
		wantConflict bool
		wantNotFound bool
	}{
		{"unique violation", unique, true, false},
		{"wrapped unique violation", fmt.Errorf("insert: %w", unique), true, false},
		{"foreign key violation", fk, false, false},
		{"undefined table", other, false, false},
		{"no rows", pgx.ErrNoRows, false, true},
		{"plain error", errors.New("connection reset"), false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyPgError(tt.err)
			require.Error(t, got)
			assert.Equal(t, tt.wantConflict, IsConflict(got))
			assert.Equal(t, tt.wantNotFound, errors.Is(got, ErrNotFound))
			assert.ErrorIs(t, got, tt.err, "original error stays in the chain")
		})
	}

	assert.NoError(t, classifyPgError(nil))
}

func TestClassifyPgError_ConstraintInMessage(t *testing.T) {
	err := classifyPgError(&pgconn.PgError{Code: "23505", ConstraintName: "devis_refs_id_devis_crm_key"})
	assert.Contains(t, err.Error(), "devis_refs_id_devis_crm_key")
}

// ----------------------------------------------------------------------------
// WipeOrder Tests
// ----------------------------------------------------------------------------

func TestWipeOrder_ChildrenBeforeParents(t *testing.T) {
	pos := make(map[string]int, len(WipeOrder))
	for i, table := range WipeOrder {
		pos[table] = i
	}

	for child, parent := range parentOf {
		require.Contains(t, pos, child)
		require.Contains(t, pos, parent)
		assert.Less(t, pos[child], pos[parent], "%s must be wiped before %s", child, parent)
	}
	assert.Equal(t, TableClients, WipeOrder[len(WipeOrder)-1])
}

func TestPostgres_DeleteAllRejectsUnknownTable(t *testing.T) {
	p := NewPostgres(nil)
	_, err := p.DeleteAll(context.Background(), "users; DROP TABLE clients")
	assert.ErrorIs(t, err, ErrUnknownTable)
}

// ----------------------------------------------------------------------------
// Memory Tests
// ----------------------------------------------------------------------------

func TestMemory_CreateClientConflict(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	id, err := m.CreateClient(ctx, CreateClientParams{IDClientCrm: "101", Nom: "Dupont"})
	require.NoError(t, err)
	assert.NotZero(t, id)

	_, err = m.CreateClient(ctx, CreateClientParams{IDClientCrm: "101", Nom: "Dupont"})
	assert.True(t, IsConflict(err))
	assert.Equal(t, 2, m.ClientCreates)

	got, ok := m.Client("101")
	require.True(t, ok)
	assert.Equal(t, "Dupont", got.Nom)
}

func TestMemory_CreateDevisRequiresClient(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.CreateDevisRef(ctx, CreateDevisRefParams{IDDevisCrm: "1", ClientID: 42, Status: DevisStatusBrouillon})
	require.Error(t, err)
	assert.False(t, IsConflict(err))

	cid, err := m.CreateClient(ctx, CreateClientParams{IDClientCrm: "101"})
	require.NoError(t, err)

	_, err = m.CreateDevisRef(ctx, CreateDevisRefParams{IDDevisCrm: "1", ClientID: cid, Status: DevisStatusEnvoye})
	require.NoError(t, err)

	_, err = m.CreateDevisRef(ctx, CreateDevisRefParams{IDDevisCrm: "1", ClientID: cid, Status: DevisStatusEnvoye})
	assert.True(t, IsConflict(err))

	got, ok := m.DevisRef("1")
	require.True(t, ok)
	assert.Equal(t, DevisStatusEnvoye, got.Status)
}

func TestMemory_DeleteAllHonorsForeignKeys(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	cid, err := m.CreateClient(ctx, CreateClientParams{IDClientCrm: "101"})
	require.NoError(t, err)
	_, err = m.CreateDevisRef(ctx, CreateDevisRefParams{IDDevisCrm: "1", ClientID: cid})
	require.NoError(t, err)
	m.Seed(TableClientAddresses, 3)

	_, err = m.DeleteAll(ctx, TableClients)
	require.Error(t, err, "devis rows still reference clients")

	for _, table := range WipeOrder {
		_, err := m.DeleteAll(ctx, table)
		require.NoError(t, err, table)
	}

	counts, err := m.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, Counts{}, counts)
}

func TestMemory_DeleteAllReturnsRowCount(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.Seed(TableOpportunities, 7)

	n, err := m.DeleteAll(ctx, TableOpportunities)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)

	_, err = m.DeleteAll(ctx, "countries")
	assert.ErrorIs(t, err, ErrUnknownTable)
}

func TestMemory_CountryID(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.CountryID(ctx, "FR")
	assert.ErrorIs(t, err, ErrNotFound)

	want := m.AddCountry("FR")
	got, err := m.CountryID(ctx, "FR")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestMemory_ExternalRefsAndCounts(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	a, _ := m.CreateClient(ctx, CreateClientParams{IDClientCrm: "101"})
	b, _ := m.CreateClient(ctx, CreateClientParams{IDClientCrm: "102"})
	_, _ = m.CreateClient(ctx, CreateClientParams{})

	refs, err := m.ClientExternalRefs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []ExternalRef{
		{IDClientCrm: "101", ID: a},
		{IDClientCrm: "102", ID: b},
	}, refs)

	counts, err := m.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, Counts{Clients: 3, ClientsWithCrmID: 2, ClientsWithoutCrmID: 1}, counts)
}

func TestMemory_FailureInjection(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	boom := errors.New("boom")
	m.FailClient = func(arg CreateClientParams) error {
		if arg.IDClientCrm == "bad" {
			return boom
		}
		return nil
	}

	_, err := m.CreateClient(ctx, CreateClientParams{IDClientCrm: "bad"})
	assert.ErrorIs(t, err, boom)
	_, err = m.CreateClient(ctx, CreateClientParams{IDClientCrm: "good"})
	assert.NoError(t, err)
}
