package migrate

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/JonMunkholm/crmmigrate/internal/dump"
	"github.com/JonMunkholm/crmmigrate/internal/logging"
	"github.com/JonMunkholm/crmmigrate/internal/normalize"
	"github.com/JonMunkholm/crmmigrate/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const clientsExport = "-- clients export\n" +
	"INSERT INTO `clients` (`id`, `client_type`, `nom`, `prenom`, `cp`, `deleted`, `created`) VALUES\n" +
	"(101, 'corporation', 'Alpha SARL', NULL, '75001', 0, '2020-01-15 10:00:00'),\n" +
	"(102, 'person', 'Martin', 'Luc', '97400', 0, '0000-00-00 00:00:00'),\n" +
	"(103, 'person', 'Durand', NULL, '13008', 0, NULL);\n"

const devisExport = "INSERT INTO `devis` (`id`, `client_id`, `indent`, `status`, `total_ht`, `date_crea`) VALUES\n" +
	"(1, 101, 'D-1', 'sent', 100.00, '2021-01-01'),\n" +
	"(2, 102, 'D-2', 'paid', 250.50, '2021-02-01'),\n" +
	"(3, 102, 'D-3', NULL, NULL, '0000-00-00'),\n" +
	"(4, 999, 'D-4', 'refused', 10.00, '2021-03-01');\n"

func testInput() Input {
	return Input{
		Clients: dump.Parse(clientsExport, "clients"),
		Devis:   dump.Parse(devisExport, "devis"),
	}
}

func newTestStore() *store.Memory {
	m := store.NewMemory()
	m.AddCountry("FR")
	return m
}

// refsFailing makes the remap query fail.
type refsFailing struct {
	*store.Memory
}

func (refsFailing) ClientExternalRefs(context.Context) ([]store.ExternalRef, error) {
	return nil, errors.New("connection reset by peer")
}

// ----------------------------------------------------------------------------
// Run Tests
// ----------------------------------------------------------------------------

func TestRun_EndToEnd(t *testing.T) {
	ctx := logging.WithRunID(context.Background(), "run-e2e")
	m := newTestStore()
	l := NewLoader(m, Options{})

	rep, err := l.Run(ctx, testInput())
	require.NoError(t, err)

	assert.Equal(t, PhaseDone, l.Phase())
	assert.Equal(t, PhaseDone, rep.Phase)
	assert.Equal(t, "run-e2e", rep.RunID)

	assert.Equal(t, Stats{Seen: 3, Excluded: 1, Created: 2}, rep.Clients.Stats)
	assert.Equal(t, Stats{Seen: 4, Created: 3, SkippedNoParent: 1}, rep.Devis.Stats)
	assert.Equal(t, 2, rep.RemapSize)

	_, ok := m.Client("103")
	assert.False(t, ok, "unreferenced client is never imported")

	alpha, ok := m.Client("101")
	require.True(t, ok)
	assert.Equal(t, store.ClientTypeCorporation, alpha.ClientType)
	assert.Equal(t, "75", alpha.Departement.String)
	assert.NotZero(t, alpha.PaysID)

	d3, ok := m.DevisRef("3")
	require.True(t, ok)
	assert.Equal(t, store.DevisStatusBrouillon, d3.Status)
	assert.False(t, d3.DateCreation.Valid)

	_, ok = m.DevisRef("4")
	assert.False(t, ok)
	assert.Equal(t, 3, m.DevisCreates, "unresolved devis never reach the store")

	counts, err := Check(ctx, m)
	require.NoError(t, err)
	assert.Equal(t, store.Counts{Clients: 2, ClientsWithCrmID: 2, DevisRefs: 3}, counts)
}

func TestRun_WipesInDependencyOrder(t *testing.T) {
	m := newTestStore()
	m.Seed(store.TableOpportunities, 4)
	m.Seed(store.TablePipelineOrders, 2)
	m.Seed(store.TableClientAddresses, 1)

	rep, err := NewLoader(m, Options{}).Run(context.Background(), testInput())
	require.NoError(t, err)

	assert.Equal(t, store.WipeOrder, m.Deletes)
	require.Len(t, rep.Wiped, len(store.WipeOrder))
	for _, w := range rep.Wiped {
		assert.NoError(t, w.Err, w.Table)
	}
}

func TestRun_RerunReplacesPreviousData(t *testing.T) {
	ctx := context.Background()
	m := newTestStore()

	_, err := NewLoader(m, Options{}).Run(ctx, testInput())
	require.NoError(t, err)

	rep, err := NewLoader(m, Options{}).Run(ctx, testInput())
	require.NoError(t, err)

	assert.Equal(t, 2, rep.Clients.Stats.Created)
	assert.Equal(t, 3, rep.Devis.Stats.Created)
	assert.Equal(t, int64(3), rep.Wiped[0].Rows, "devis from the first run are wiped")
}

func TestRun_MissingCountryFailsBeforeWipe(t *testing.T) {
	m := store.NewMemory()
	m.Seed(store.TableOpportunities, 5)
	l := NewLoader(m, Options{})

	rep, err := l.Run(context.Background(), testInput())
	require.Error(t, err)

	assert.ErrorIs(t, err, ErrPreconditionMissing)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Equal(t, KindPrecondition, Classify(err))
	assert.Equal(t, PhaseFailed, l.Phase())
	assert.Equal(t, PhaseFailed, rep.Phase)
	assert.Empty(t, m.Deletes, "nothing is wiped")
	assert.Zero(t, m.ClientCreates)

	var pe *PreconditionError
	require.ErrorAs(t, err, &pe)
	assert.Contains(t, pe.What, "FR")
}

func TestRun_RequireOverlap(t *testing.T) {
	in := Input{
		Clients: dump.Parse(clientsExport, "clients"),
		Devis:   dump.Parse("INSERT INTO `devis` (`id`, `client_id`) VALUES (1, 500), (2, 501);", "devis"),
	}

	t.Run("enabled fails before wipe", func(t *testing.T) {
		m := newTestStore()
		l := NewLoader(m, Options{RequireOverlap: true})

		_, err := l.Run(context.Background(), in)
		assert.ErrorIs(t, err, ErrPreconditionMissing)
		assert.Empty(t, m.Deletes)
		assert.Equal(t, PhaseFailed, l.Phase())
	})

	t.Run("disabled runs with nothing to link", func(t *testing.T) {
		m := newTestStore()
		rep, err := NewLoader(m, Options{}).Run(context.Background(), in)
		require.NoError(t, err)
		assert.Equal(t, 0, rep.Clients.Stats.Created)
		assert.Equal(t, 2, rep.Devis.Stats.SkippedNoParent)
	})
}

func TestRun_RemapFailureIsFatal(t *testing.T) {
	m := newTestStore()
	l := NewLoader(refsFailing{m}, Options{})

	rep, err := l.Run(context.Background(), testInput())
	require.Error(t, err)

	assert.Equal(t, KindPersistence, Classify(err))
	assert.Equal(t, PhaseFailed, l.Phase())
	assert.Equal(t, 2, rep.Clients.Stats.Created)
	assert.Zero(t, m.DevisCreates)
}

func TestRun_RowErrorsAreCounted(t *testing.T) {
	m := newTestStore()
	m.FailClient = func(arg store.CreateClientParams) error {
		if arg.IDClientCrm == "102" {
			return errors.New("value too long for type character varying(50)")
		}
		return nil
	}
	m.FailDevis = func(arg store.CreateDevisRefParams) error {
		if arg.IDDevisCrm == "1" {
			return errors.New("check constraint violated")
		}
		return nil
	}

	rep, err := NewLoader(m, Options{}).Run(context.Background(), testInput())
	require.NoError(t, err, "row-level failures never fail the run")

	assert.Equal(t, Stats{Seen: 3, Excluded: 1, Created: 1, ErroredOther: 1}, rep.Clients.Stats)
	assert.Equal(t, Stats{Seen: 4, SkippedNoParent: 3, ErroredOther: 1}, rep.Devis.Stats)
}

func TestRun_DeletedClientNotImported(t *testing.T) {
	clients := "INSERT INTO `clients` (`id`, `nom`, `deleted`) VALUES (101, 'A', 1), (102, 'B', 0);"
	devis := "INSERT INTO `devis` (`id`, `client_id`) VALUES (1, 101), (2, 102);"

	m := newTestStore()
	rep, err := NewLoader(m, Options{}).Run(context.Background(), Input{
		Clients: dump.Parse(clients, "clients"),
		Devis:   dump.Parse(devis, "devis"),
	})
	require.NoError(t, err)

	assert.Equal(t, Stats{Seen: 2, Excluded: 1, Created: 1}, rep.Clients.Stats)
	assert.Equal(t, Stats{Seen: 2, Created: 1, SkippedNoParent: 1}, rep.Devis.Stats)
}

func TestRun_EmptyExports(t *testing.T) {
	m := newTestStore()
	rep, err := NewLoader(m, Options{}).Run(context.Background(), Input{
		Clients: dump.Parse("CREATE TABLE `clients` (`id` int(11));", "clients"),
		Devis:   dump.Parse("", "devis"),
	})
	require.NoError(t, err)

	assert.False(t, rep.Clients.Source.HeaderFound)
	assert.Equal(t, Stats{}, rep.Clients.Stats)
	assert.Equal(t, Stats{}, rep.Devis.Stats)
	assert.Equal(t, PhaseDone, rep.Phase)
}

func TestRun_Progress(t *testing.T) {
	var snapshots []Stats
	l := NewLoader(newTestStore(), Options{
		ProgressEvery: 2,
		OnProgress: func(entity string, s Stats) {
			if entity == EntityDevis {
				snapshots = append(snapshots, s)
			}
		},
	})

	_, err := l.Run(context.Background(), testInput())
	require.NoError(t, err)

	require.Len(t, snapshots, 2)
	assert.Equal(t, 2, snapshots[0].Processed())
	assert.Equal(t, 4, snapshots[1].Processed())
	assert.Equal(t, 1, snapshots[1].SkippedNoParent)
}

// ----------------------------------------------------------------------------
// Phase Tests
// ----------------------------------------------------------------------------

func TestLoadParents_Idempotent(t *testing.T) {
	ctx := context.Background()
	m := newTestStore()
	l := NewLoader(m, Options{})

	var clients []normalize.Client
	for _, rec := range dump.Parse(clientsExport, "clients").Records {
		clients = append(clients, normalize.NewClient(rec, ""))
	}

	first := l.LoadParents(ctx, clients, 1)
	second := l.LoadParents(ctx, clients, 1)

	assert.Equal(t, 3, first.Created)
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, first.Created, second.SkippedDuplicate)

	counts, err := m.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), counts.Clients)
}

func TestBuildRemap_IncludesPreexistingClients(t *testing.T) {
	ctx := context.Background()
	m := newTestStore()
	id, err := m.CreateClient(ctx, store.CreateClientParams{IDClientCrm: "102"})
	require.NoError(t, err)

	l := NewLoader(m, Options{})
	stats := l.LoadParents(ctx, []normalize.Client{
		{ExternalID: "102", Params: store.CreateClientParams{IDClientCrm: "102"}},
	}, 1)
	assert.Equal(t, 1, stats.SkippedDuplicate)

	remap, err := l.BuildRemap(ctx)
	require.NoError(t, err)
	got, ok := remap.Resolve("102")
	require.True(t, ok)
	assert.Equal(t, id, got)
}

func TestLoadChildren_UnresolvedNeverCreated(t *testing.T) {
	m := newTestStore()
	l := NewLoader(m, Options{})

	stats := l.LoadChildren(context.Background(), []normalize.Devis{
		{ExternalID: "1", ClientExternalID: "999"},
		{ExternalID: "2", ClientExternalID: ""},
	}, Remap{"101": 1})

	assert.Equal(t, Stats{SkippedNoParent: 2}, stats)
	assert.Zero(t, m.DevisCreates)
}

func TestLoadChildren_Duplicate(t *testing.T) {
	ctx := context.Background()
	m := newTestStore()
	cid, err := m.CreateClient(ctx, store.CreateClientParams{IDClientCrm: "101"})
	require.NoError(t, err)

	devis := []normalize.Devis{
		{ExternalID: "1", ClientExternalID: "101", Params: store.CreateDevisRefParams{IDDevisCrm: "1"}},
		{ExternalID: "1", ClientExternalID: "101", Params: store.CreateDevisRefParams{IDDevisCrm: "1"}},
	}
	stats := NewLoader(m, Options{}).LoadChildren(ctx, devis, Remap{"101": cid})
	assert.Equal(t, Stats{Created: 1, SkippedDuplicate: 1}, stats)
}

// ----------------------------------------------------------------------------
// Partial import Tests
// ----------------------------------------------------------------------------

func TestImportClientsThenDevis(t *testing.T) {
	ctx := context.Background()
	m := newTestStore()
	m.Seed(store.TableOpportunities, 1)
	l := NewLoader(m, Options{})

	rep, err := l.ImportClients(ctx, dump.Parse(clientsExport, "clients"))
	require.NoError(t, err)
	assert.Equal(t, Stats{Seen: 3, Created: 3}, rep.Clients.Stats)
	assert.Nil(t, rep.Devis)

	rep, err = l.ImportClients(ctx, dump.Parse(clientsExport, "clients"))
	require.NoError(t, err)
	assert.Equal(t, Stats{Seen: 3, SkippedDuplicate: 3}, rep.Clients.Stats)

	rep, err = l.ImportDevis(ctx, dump.Parse(devisExport, "devis"))
	require.NoError(t, err)
	assert.Equal(t, Stats{Seen: 4, Created: 3, SkippedNoParent: 1}, rep.Devis.Stats)
	assert.Equal(t, 3, rep.RemapSize)

	assert.Empty(t, m.Deletes, "partial imports never wipe")
}

func TestImportClients_MissingCountry(t *testing.T) {
	m := store.NewMemory()
	rep, err := NewLoader(m, Options{CountryCode: "BE"}).ImportClients(context.Background(), dump.Parse(clientsExport, "clients"))
	assert.ErrorIs(t, err, ErrPreconditionMissing)
	assert.Equal(t, PhaseFailed, rep.Phase)
	assert.Zero(t, m.ClientCreates)
}

func TestReadExport(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	path := filepath.Join(dir, "devis.sql")
	require.NoError(t, os.WriteFile(path, []byte(devisExport), 0o600))

	res, err := ReadExport(ctx, path, "devis", dump.ReadOptions{})
	require.NoError(t, err)
	assert.True(t, res.HeaderFound)
	assert.Len(t, res.Records, 4)

	res, err = ReadExport(ctx, path, "clients", dump.ReadOptions{})
	require.NoError(t, err, "missing header is not an error")
	assert.False(t, res.HeaderFound)

	_, err = ReadExport(ctx, filepath.Join(dir, "missing.sql"), "devis", dump.ReadOptions{})
	assert.ErrorIs(t, err, ErrPreconditionMissing)
	assert.Equal(t, KindPrecondition, Classify(err))

	_, err = ReadExport(ctx, path, "devis", dump.ReadOptions{MaxFileSize: 10})
	assert.ErrorIs(t, err, dump.ErrFileTooLarge)
	assert.Equal(t, KindPrecondition, Classify(err))
}

// ----------------------------------------------------------------------------
// Report Tests
// ----------------------------------------------------------------------------

func TestReport_WriteSummary(t *testing.T) {
	ctx := logging.WithRunID(context.Background(), "run-42")
	rep, err := NewLoader(newTestStore(), Options{}).Run(ctx, testInput())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, rep.WriteSummary(&buf))
	out := buf.String()

	assert.Contains(t, out, "run run-42: done")
	assert.Contains(t, out, "NO PARENT")
	assert.Contains(t, out, "TUPLES")
	assert.Regexp(t, `clients\s+3\s+0\s+3\s+1\s+2\s+0\s+0\s+0`, out)
	assert.Regexp(t, `devis\s+4\s+0\s+4\s+0\s+3\s+0\s+1\s+0`, out)
	assert.Regexp(t, `devis_refs\s+0`, out)
}

func TestReport_WriteSummaryCountsDroppedTuples(t *testing.T) {
	in := testInput()
	in.Devis = dump.Parse(devisExport+"INSERT INTO `devis` (`id`, `client_id`, `indent`, `status`, `total_ht`, `date_crea`) VALUES (5, 101);\n", "devis")
	require.Equal(t, 1, in.Devis.Dropped)

	rep, err := NewLoader(newTestStore(), Options{}).Run(context.Background(), in)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, rep.WriteSummary(&buf))
	assert.Regexp(t, `devis\s+5\s+1\s+4\s+0\s+3\s+0\s+1\s+0`, buf.String())
}

func TestReport_WriteSummaryFailure(t *testing.T) {
	rep, err := NewLoader(store.NewMemory(), Options{}).Run(context.Background(), testInput())
	require.Error(t, err)

	var buf bytes.Buffer
	require.NoError(t, rep.WriteSummary(&buf))
	assert.Contains(t, buf.String(), "failed")
	assert.Contains(t, buf.String(), "[MIG005]")
	assert.NotContains(t, buf.String(), "DELETED")
}

func TestWriteCounts(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCounts(&buf, store.Counts{Clients: 5, ClientsWithCrmID: 4, ClientsWithoutCrmID: 1, DevisRefs: 9}))
	assert.Regexp(t, `without crm id\s+1`, buf.String())
	assert.Regexp(t, `devis\s+9`, buf.String())
}
