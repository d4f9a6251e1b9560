package migrate

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/crmmigrate/internal/dump"
	"github.com/JonMunkholm/crmmigrate/internal/logging"
	"github.com/JonMunkholm/crmmigrate/internal/normalize"
)

// ReadExport reads and parses one export file. An unreadable file is a
// precondition failure; a file without an INSERT for table is not, and
// yields an empty result.
func ReadExport(ctx context.Context, path, table string, opts dump.ReadOptions) (dump.Result, error) {
	log := logging.WithFields(ctx, "file", path, "table", table)

	text, err := dump.ReadFile(path, opts)
	if err != nil {
		return dump.Result{Table: table}, precondition(fmt.Sprintf("export %s unreadable", path), err)
	}

	res := dump.Parse(text, table)
	if !res.HeaderFound {
		msg := Describe(KindMalformedHeader)
		log.Warn("no insert header in export", "code", msg.Code, "action", msg.Action)
		return res, nil
	}

	log.Info("export parsed",
		"columns", len(res.Columns),
		"tuples", res.Tuples,
		"records", len(res.Records),
		"dropped", res.Dropped,
	)
	if res.Dropped > 0 {
		log.Warn("tuples dropped", "count", res.Dropped, "code", Describe(KindRowArity).Code)
	}
	return res, nil
}

// ImportClients loads every non-deleted client of the export without
// wiping anything. Clients already present are counted as duplicates, so
// the import can be rerun.
func (l *Loader) ImportClients(ctx context.Context, res dump.Result) (*Report, error) {
	rep := newReport(ctx)
	rep.Clients = &EntityReport{Name: EntityClients, Source: summarize(res)}

	paysID, err := l.CountryID(ctx)
	if err != nil {
		rep.finish(PhaseFailed, err)
		return rep, err
	}

	pre := Stats{Seen: len(res.Records)}
	clients := make([]normalize.Client, 0, len(res.Records))
	for _, rec := range res.Records {
		c := normalize.NewClient(rec, l.opts.DefaultClientName)
		if c.ExternalID == "" || c.Deleted {
			pre.Excluded++
			continue
		}
		clients = append(clients, c)
	}

	rep.Clients.Stats = pre.Merge(l.LoadParents(ctx, clients, paysID))
	rep.finish(PhaseDone, nil)
	return rep, nil
}

// ImportDevis loads the devis export against the clients already in the
// store, without wiping anything.
func (l *Loader) ImportDevis(ctx context.Context, res dump.Result) (*Report, error) {
	rep := newReport(ctx)
	rep.Devis = &EntityReport{Name: EntityDevis, Source: summarize(res)}

	pre := Stats{Seen: len(res.Records)}
	devis := make([]normalize.Devis, 0, len(res.Records))
	for _, rec := range res.Records {
		d := normalize.NewDevis(rec)
		if d.ExternalID == "" {
			pre.Excluded++
			continue
		}
		devis = append(devis, d)
	}

	remap, err := l.BuildRemap(ctx)
	if err != nil {
		rep.Devis.Stats = pre
		rep.finish(PhaseFailed, err)
		return rep, err
	}
	rep.RemapSize = len(remap)

	rep.Devis.Stats = pre.Merge(l.LoadChildren(ctx, devis, remap))
	rep.finish(PhaseDone, nil)
	return rep, nil
}
