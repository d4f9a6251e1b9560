// Package migrate loads a legacy CRM export into the target store.
//
// A full run moves through a fixed sequence of phases:
//
//	Idle -> Wiping -> LoadingParents -> BuildingRemap -> LoadingChildren -> Done
//
// Preconditions are checked while Idle, so a run that ends in Failed
// because of them has not deleted anything. Row-level failures are counted
// in Stats and never abort a phase.
package migrate

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/crmmigrate/internal/dump"
	"github.com/JonMunkholm/crmmigrate/internal/logging"
	"github.com/JonMunkholm/crmmigrate/internal/normalize"
	"github.com/JonMunkholm/crmmigrate/internal/store"
)

const (
	DefaultCountryCode   = "FR"
	DefaultProgressEvery = 100
)

// Entity names used in logs and reports.
const (
	EntityClients = "clients"
	EntityDevis   = "devis"
)

// Options tune a Loader. Zero values fall back to the defaults.
type Options struct {
	CountryCode       string
	DefaultClientName string
	ProgressEvery     int

	// RequireOverlap fails the run before wiping when no client referenced
	// by the devis export is present in the clients export.
	RequireOverlap bool

	// OnProgress, when set, receives the running stats of an entity every
	// ProgressEvery processed records.
	OnProgress func(entity string, s Stats)
}

// Input is the parsed content of both exports.
type Input struct {
	Clients dump.Result
	Devis   dump.Result
}

// Remap maps a legacy client id to the target client id.
type Remap map[string]int32

// Resolve looks up a legacy id. The empty id never resolves.
func (r Remap) Resolve(extID string) (int32, bool) {
	if extID == "" {
		return 0, false
	}
	id, ok := r[extID]
	return id, ok
}

// Loader drives a migration against a Store. It is not safe for
// concurrent use.
type Loader struct {
	store store.Store
	opts  Options
	phase Phase
}

// NewLoader returns an idle loader.
func NewLoader(st store.Store, opts Options) *Loader {
	if opts.CountryCode == "" {
		opts.CountryCode = DefaultCountryCode
	}
	if opts.DefaultClientName == "" {
		opts.DefaultClientName = normalize.DefaultClientName
	}
	if opts.ProgressEvery <= 0 {
		opts.ProgressEvery = DefaultProgressEvery
	}
	return &Loader{store: st, opts: opts}
}

// Phase returns the current phase.
func (l *Loader) Phase() Phase {
	return l.phase
}

func (l *Loader) transition(ctx context.Context, to Phase) {
	if !l.phase.CanTransition(to) {
		panic(fmt.Sprintf("migrate: illegal transition %s -> %s", l.phase, to))
	}
	logging.FromContext(ctx).Info("phase changed", "from", l.phase.String(), "to", to.String())
	l.phase = to
}

func (l *Loader) fail(ctx context.Context, rep *Report, err error) error {
	l.transition(ctx, PhaseFailed)
	rep.finish(l.phase, err)

	msg := Describe(Classify(err))
	logging.FromContext(ctx).Error("migration failed", "error", err, "code", msg.Code, "action", msg.Action)
	return err
}

// plan holds the normalized records selected for a run.
type plan struct {
	clients     []normalize.Client
	devis       []normalize.Devis
	referenced  map[string]struct{}
	clientStats Stats
	devisStats  Stats
}

// prepare normalizes both exports. Only clients referenced by at least one
// devis and not deleted at the source are kept.
func (l *Loader) prepare(ctx context.Context, in Input) plan {
	log := logging.FromContext(ctx)
	p := plan{referenced: make(map[string]struct{})}

	p.devisStats.Seen = len(in.Devis.Records)
	for _, rec := range in.Devis.Records {
		d := normalize.NewDevis(rec)
		if d.ExternalID == "" {
			p.devisStats.Excluded++
			log.Warn("devis without id ignored", "client_source_id", d.ClientExternalID)
			continue
		}
		p.devis = append(p.devis, d)
		if d.ClientExternalID != "" {
			p.referenced[d.ClientExternalID] = struct{}{}
		}
	}

	p.clientStats.Seen = len(in.Clients.Records)
	for _, rec := range in.Clients.Records {
		c := normalize.NewClient(rec, l.opts.DefaultClientName)
		_, isReferenced := p.referenced[c.ExternalID]
		if c.ExternalID == "" || !isReferenced || c.Deleted {
			p.clientStats.Excluded++
			continue
		}
		p.clients = append(p.clients, c)
	}

	log.Info("exports normalized",
		"clients_seen", p.clientStats.Seen,
		"clients_referenced", len(p.clients),
		"devis_seen", p.devisStats.Seen,
		"distinct_client_refs", len(p.referenced),
	)
	return p
}

// Run executes a full migration: wipe every migrated table, load the
// referenced clients, rebuild the identity remap, then load the devis.
//
// The returned error is non-nil only when the run ends in PhaseFailed.
// The report is always returned.
func (l *Loader) Run(ctx context.Context, in Input) (*Report, error) {
	l.phase = PhaseIdle
	rep := newReport(ctx)
	rep.Clients = &EntityReport{Name: EntityClients, Source: summarize(in.Clients)}
	rep.Devis = &EntityReport{Name: EntityDevis, Source: summarize(in.Devis)}

	paysID, err := l.CountryID(ctx)
	if err != nil {
		return rep, l.fail(ctx, rep, err)
	}

	p := l.prepare(ctx, in)
	if l.opts.RequireOverlap && len(p.devis) > 0 && len(p.clients) == 0 {
		l.logOverlapSample(ctx, p, in)
		err := precondition("no client referenced by the devis export is present in the clients export", nil)
		return rep, l.fail(ctx, rep, err)
	}

	l.transition(ctx, PhaseWiping)
	rep.Wiped = l.Wipe(ctx)

	l.transition(ctx, PhaseLoadingParents)
	rep.Clients.Stats = p.clientStats.Merge(l.LoadParents(ctx, p.clients, paysID))

	l.transition(ctx, PhaseBuildingRemap)
	remap, err := l.BuildRemap(ctx)
	if err != nil {
		rep.Devis.Stats = p.devisStats
		return rep, l.fail(ctx, rep, err)
	}
	rep.RemapSize = len(remap)

	l.transition(ctx, PhaseLoadingChildren)
	rep.Devis.Stats = p.devisStats.Merge(l.LoadChildren(ctx, p.devis, remap))

	l.transition(ctx, PhaseDone)
	rep.finish(l.phase, nil)
	return rep, nil
}

func (l *Loader) logOverlapSample(ctx context.Context, p plan, in Input) {
	const sample = 10

	refs := make([]string, 0, sample)
	for id := range p.referenced {
		if len(refs) == sample {
			break
		}
		refs = append(refs, id)
	}

	ids := make([]string, 0, sample)
	for _, rec := range in.Clients.Records {
		if len(ids) == sample {
			break
		}
		ids = append(ids, rec.Text("id"))
	}

	logging.FromContext(ctx).Warn("clients and devis exports do not overlap",
		"devis_client_ids_sample", refs,
		"client_ids_sample", ids,
	)
}

// CountryID resolves the reference country every client is attached to.
// Any failure is a precondition failure.
func (l *Loader) CountryID(ctx context.Context) (int32, error) {
	id, err := l.store.CountryID(ctx, l.opts.CountryCode)
	if err != nil {
		return 0, precondition(fmt.Sprintf("country %s (seed the reference data first)", l.opts.CountryCode), err)
	}
	return id, nil
}

// Wipe deletes every migrated table in dependency order. A failed delete
// is logged and recorded, and the wipe moves on to the next table.
func (l *Loader) Wipe(ctx context.Context) []WipeResult {
	log := logging.FromContext(ctx)
	results := make([]WipeResult, 0, len(store.WipeOrder))

	for _, table := range store.WipeOrder {
		n, err := l.store.DeleteAll(ctx, table)
		results = append(results, WipeResult{Table: table, Rows: n, Err: err})
		if err != nil {
			log.Error("wipe failed", "table", table, "error", err, "code", Describe(KindPersistence).Code)
			continue
		}
		log.Info("table wiped", "table", table, "rows", n)
	}
	return results
}

// LoadParents creates one client per record. Duplicates and other
// failures are counted, never returned. Running it twice over the same
// records creates nothing the second time.
func (l *Loader) LoadParents(ctx context.Context, clients []normalize.Client, paysID int32) Stats {
	log := logging.WithFields(ctx, "entity", EntityClients)
	var s Stats

	for _, c := range clients {
		params := c.Params
		params.PaysID = paysID

		_, err := l.store.CreateClient(ctx, params)
		kind := Classify(err)
		s.count(kind)

		switch kind {
		case KindNone:
		case KindConflict:
			log.Debug("client already present", "source_id", c.ExternalID)
		default:
			log.Error("create client failed",
				"source_id", c.ExternalID,
				"nom", params.Nom,
				"error", err,
				"code", Describe(kind).Code,
			)
		}
		l.progress(ctx, EntityClients, s, len(clients))
	}

	log.Info("clients loaded", "stats", s)
	return s
}

// BuildRemap reads back every persisted client carrying a legacy id.
// Clients that already existed before this run are included.
func (l *Loader) BuildRemap(ctx context.Context) (Remap, error) {
	refs, err := l.store.ClientExternalRefs(ctx)
	if err != nil {
		return nil, fmt.Errorf("build identity remap: %w", err)
	}

	remap := make(Remap, len(refs))
	for _, ref := range refs {
		if ref.IDClientCrm == "" {
			continue
		}
		remap[ref.IDClientCrm] = ref.ID
	}

	logging.FromContext(ctx).Info("identity remap built", "clients", len(remap))
	return remap, nil
}

// LoadChildren creates one devis per record whose client resolves through
// remap. Unresolved records are counted and never reach the store.
func (l *Loader) LoadChildren(ctx context.Context, devis []normalize.Devis, remap Remap) Stats {
	log := logging.WithFields(ctx, "entity", EntityDevis)
	var s Stats

	for _, d := range devis {
		clientID, ok := remap.Resolve(d.ClientExternalID)
		if !ok {
			s.SkippedNoParent++
			log.Debug("devis client not migrated", "source_id", d.ExternalID, "client_source_id", d.ClientExternalID)
			l.progress(ctx, EntityDevis, s, len(devis))
			continue
		}

		params := d.Params
		params.ClientID = clientID

		_, err := l.store.CreateDevisRef(ctx, params)
		kind := Classify(err)
		s.count(kind)

		switch kind {
		case KindNone:
		case KindConflict:
			log.Debug("devis already present", "source_id", d.ExternalID)
		default:
			log.Error("create devis failed",
				"source_id", d.ExternalID,
				"client_source_id", d.ClientExternalID,
				"error", err,
				"code", Describe(kind).Code,
			)
		}
		l.progress(ctx, EntityDevis, s, len(devis))
	}

	log.Info("devis loaded", "stats", s)
	return s
}

func (l *Loader) progress(ctx context.Context, entity string, s Stats, total int) {
	n := s.Processed()
	if n == 0 || n%l.opts.ProgressEvery != 0 {
		return
	}

	logging.FromContext(ctx).Info("progress",
		"entity", entity,
		"processed", n,
		"total", total,
		"stats", s,
	)
	if l.opts.OnProgress != nil {
		l.opts.OnProgress(entity, s)
	}
}
