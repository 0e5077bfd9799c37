package reconcile

import (
	"context"
	"fmt"
)

// Engine runs reconciliation passes. It holds no per-pass state and may be shared
// by concurrent passes as long as each pass gets its own store view.
type Engine struct {
	cfg    Config
	source CanonicalSource
	sink   EventSink
}

// NewEngine creates an engine fetching entries from source and reporting to sink.
func NewEngine(cfg Config, source CanonicalSource, sink EventSink) *Engine {
	if sink == nil {
		sink = NopSink{}
	}
	return &Engine{cfg: cfg, source: source, sink: sink}
}

// withSink returns a copy of e reporting to sink.
func (e *Engine) withSink(sink EventSink) *Engine {
	c := *e
	c.sink = sink
	return &c
}

// RunAccession fetches the entry known under accession and reconciles the local
// records claiming it. When the entry no longer exists upstream those records are
// marked stale.
func (e *Engine) RunAccession(ctx context.Context, store RecordStore, accession string) (*Report, error) {
	canonical, err := e.source.Fetch(ctx, accession)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", accession, err)
	}
	if canonical == nil {
		return e.RunStale(ctx, store, accession)
	}
	return e.Run(ctx, store, canonical)
}

// Run reconciles the local records of one canonical entry. Non-fatal failures are
// collected in the report; a returned error means the store failed and the pass
// should be rolled back.
func (e *Engine) Run(ctx context.Context, store RecordStore, canonical *CanonicalRecord) (*Report, error) {
	report := &Report{Accession: canonical.PrimaryID, Found: true}
	p := e.newPass(store, report)

	// Collect candidates claiming the primary or a secondary id
	ids := append([]string{canonical.PrimaryID}, canonical.SecondaryIDs...)
	candidates, err := p.findByIdentity(ctx, ids...)
	if err != nil {
		return nil, err
	}

	var masters, transcripts []*LocalRecord
	for _, rec := range candidates {
		if !p.admit(rec) {
			continue
		}
		if rec.IsTranscript() {
			transcripts = append(transcripts, rec)
		} else {
			masters = append(masters, rec)
		}
	}

	// Transcripts are gathered before duplicates are merged away
	for _, m := range masters {
		children, err := p.findByParent(ctx, m.ID)
		if err != nil {
			return nil, err
		}
		transcripts = append(transcripts, children...)
	}
	descriptorIDs := make([]string, 0, len(canonical.Transcripts))
	for _, d := range canonical.Transcripts {
		descriptorIDs = append(descriptorIDs, d.ID)
	}
	claimed, err := p.findByIdentity(ctx, descriptorIDs...)
	if err != nil {
		return nil, err
	}
	transcripts = append(transcripts, claimed...)

	// Merge duplicate masters and move the survivor onto the canonical sequence
	master, conflicts, err := p.reconcileMasters(ctx, masters, canonical)
	if err != nil {
		return nil, err
	}

	// Repair parent references left dangling by merges. Rejected transcripts are
	// kept out of the sweep for manual follow-up.
	valid, rejected, err := p.parents.Check(ctx, p.admitAll(transcripts))
	if err != nil {
		return nil, err
	}
	for _, t := range rejected {
		p.ignore(t.ID)
	}

	if master != nil {
		own, err := p.reconcileTranscripts(ctx, master, valid, canonical)
		if err != nil {
			return nil, err
		}
		// Master conflicts are resolved last so that existing transcripts already
		// carry their canonical sequence when links move onto them
		if err := p.resolve(ctx, conflicts, canonical, master, own); err != nil {
			return nil, err
		}
	}

	// Sweep records left without links
	if _, err := p.orphans.Collect(ctx, p.batchRecords(), p.ignoredIDs()...); err != nil {
		return nil, err
	}
	return report, nil
}

// RunStale retires every record still claiming accession, an id the external
// database no longer knows. Transcripts of retired masters are retired as well.
func (e *Engine) RunStale(ctx context.Context, store RecordStore, accession string) (*Report, error) {
	report := &Report{Accession: accession}
	p := e.newPass(store, report)

	records, err := p.findByIdentity(ctx, accession)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if rec.Excluded() {
			p.ignore(rec.ID)
			continue
		}
		if err := p.stale.Handle(ctx, rec, accession); err != nil {
			return nil, err
		}
		p.track(rec)
		if rec.IsTranscript() {
			continue
		}

		children, err := p.findByParent(ctx, rec.ID)
		if err != nil {
			return nil, err
		}
		for _, c := range children {
			if c.Excluded() {
				p.ignore(c.ID)
				continue
			}
			if err := p.stale.Handle(ctx, c, c.Identity()); err != nil {
				return nil, err
			}
		}
	}

	if _, err := p.orphans.Collect(ctx, p.batchRecords(), p.ignoredIDs()...); err != nil {
		return nil, err
	}
	return report, nil
}

// pass holds the state of one Run.
type pass struct {
	cfg   Config
	store RecordStore
	rec   *recorder

	merger      *Merger
	transcripts *TranscriptReconciler
	parents     *ParentChecker
	stale       *StaleHandler
	orphans     *OrphanCollector

	// batch holds every record the pass touched, in first-seen order.
	batch map[RecordID]*LocalRecord
	order []RecordID
	// ignored records were rejected by the identity filter and are never swept.
	ignored map[RecordID]struct{}
}

func (e *Engine) newPass(store RecordStore, report *Report) *pass {
	rec := newRecorder(e.sink, report)
	return &pass{
		cfg:         e.cfg,
		store:       store,
		rec:         rec,
		merger:      newMerger(store, rec),
		transcripts: newTranscriptReconciler(store, rec, e.cfg.AllowDeprecated),
		parents:     newParentChecker(store, rec),
		stale:       newStaleHandler(store, rec),
		orphans:     newOrphanCollector(store, rec, e.cfg.SweepTranscripts),
		batch:       make(map[RecordID]*LocalRecord),
		ignored:     make(map[RecordID]struct{}),
	}
}

// track adds rec to the batch, returning the instance already tracked under its id.
func (p *pass) track(rec *LocalRecord) *LocalRecord {
	if existing, ok := p.batch[rec.ID]; ok {
		return existing
	}
	p.batch[rec.ID] = rec
	p.order = append(p.order, rec.ID)
	p.rec.report.Candidates = append(p.rec.report.Candidates, rec.ID)
	return rec
}

func (p *pass) forget(id RecordID) {
	delete(p.batch, id)
}

func (p *pass) ignore(id RecordID) {
	p.ignored[id] = struct{}{}
}

// ignoredIDs returns the records the orphan collector must leave alone.
func (p *pass) ignoredIDs() []RecordID {
	ids := make([]RecordID, 0, len(p.ignored))
	for id := range p.ignored {
		ids = append(ids, id)
	}
	return ids
}

// alive returns the records of list still present in the batch.
func (p *pass) alive(list []*LocalRecord) []*LocalRecord {
	var out []*LocalRecord
	for _, r := range list {
		if _, ok := p.batch[r.ID]; ok {
			out = append(out, r)
		}
	}
	return out
}

// batchRecords returns the records the orphan collector may sweep.
func (p *pass) batchRecords() []*LocalRecord {
	out := make([]*LocalRecord, 0, len(p.batch))
	for _, id := range p.order {
		if _, skip := p.ignored[id]; skip {
			continue
		}
		if rec, ok := p.batch[id]; ok {
			out = append(out, rec)
		}
	}
	return out
}

// findByIdentity loads the records claiming any of ids, deduplicated against the batch.
func (p *pass) findByIdentity(ctx context.Context, ids ...string) ([]*LocalRecord, error) {
	var out []*LocalRecord
	seen := make(map[RecordID]struct{})
	for _, id := range ids {
		recs, err := p.store.FindByXref(ctx, DatabaseUniProt, QualifierIdentity, id)
		if err != nil {
			return nil, fmt.Errorf("failed to find records claiming %s: %w", id, err)
		}
		for _, r := range recs {
			if _, ok := seen[r.ID]; ok {
				continue
			}
			seen[r.ID] = struct{}{}
			out = append(out, p.track(r))
		}
	}
	return sortByID(out), nil
}

func (p *pass) findByParent(ctx context.Context, id RecordID) ([]*LocalRecord, error) {
	recs, err := p.store.FindByParent(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find transcripts of %d: %w", id, err)
	}
	out := make([]*LocalRecord, len(recs))
	for i, r := range recs {
		out[i] = p.track(r)
	}
	return out, nil
}

// admit runs the identity filter and reports rejected records.
func (p *pass) admit(rec *LocalRecord) bool {
	id, perr := FilterIdentity(rec)
	if perr != nil {
		p.rec.failed(perr)
	}
	if id == "" {
		p.ignore(rec.ID)
		return false
	}
	return true
}

// admitAll filters and deduplicates transcripts. Records already rejected are
// skipped, so each is reported once.
func (p *pass) admitAll(records []*LocalRecord) []*LocalRecord {
	var out []*LocalRecord
	seen := make(map[RecordID]struct{})
	for _, r := range records {
		if _, ok := seen[r.ID]; ok {
			continue
		}
		seen[r.ID] = struct{}{}
		if _, alive := p.batch[r.ID]; !alive {
			continue
		}
		if _, rejected := p.ignored[r.ID]; rejected {
			continue
		}
		if p.admit(r) {
			out = append(out, r)
		}
	}
	return out
}

func (p *pass) reconcileMasters(ctx context.Context, masters []*LocalRecord, canonical *CanonicalRecord) (*LocalRecord, []Conflict, error) {
	if len(masters) == 0 {
		return nil, nil, nil
	}

	master := masters[0]
	prior := master.Sequence
	updated := false
	var conflicts []Conflict

	if g := DetectDuplicates(masters, canonical); g != nil {
		res, err := p.merger.Merge(ctx, g)
		if err != nil {
			return nil, nil, err
		}
		for _, id := range res.Deleted {
			p.forget(id)
		}
		master, prior, updated, conflicts = res.Reference, res.PriorSequence, res.SequenceUpdated, res.Conflicts
	}

	master.SetIdentity(canonical.PrimaryID)
	syncSecondaryAccessions(master, canonical.SecondaryIDs)
	if canonical.OrganismID != "" {
		master.OrganismID = canonical.OrganismID
	}
	if !updated {
		rr := Remap(prior, canonical.Sequence, master.Links)
		p.rec.remapped(rr)
		if len(rr.ToFix) > 0 {
			conflicts = append(conflicts, Conflict{Record: master, PriorSequence: prior, Links: rr.ToFix})
		}
		master.Sequence = canonical.Sequence
	}
	if err := p.store.Save(ctx, master); err != nil {
		return nil, nil, fmt.Errorf("failed to save master %d: %w", master.ID, err)
	}
	return master, conflicts, nil
}

// reconcileTranscripts brings the transcripts of master in line with the descriptors
// and returns the surviving ones.
func (p *pass) reconcileTranscripts(ctx context.Context, master *LocalRecord, transcripts []*LocalRecord, canonical *CanonicalRecord) ([]*LocalRecord, error) {
	var own []*LocalRecord
	for _, t := range transcripts {
		if t.Parents[0].Target == master.ID {
			own = append(own, t)
		}
	}

	var conflicts []Conflict
	keys, groups := PartitionTranscripts(own)
	for _, key := range keys {
		members := groups[key]
		d, ok := canonical.Descriptor(key.Identity)
		if !ok {
			for _, t := range members {
				if err := p.stale.Handle(ctx, t, key.Identity); err != nil {
					return nil, err
				}
			}
			continue
		}

		target := d.ResolvedSequence(canonical.Sequence)
		survivor := sortByID(members)[0]
		prior := survivor.Sequence
		updated := false

		if g := DetectTranscriptDuplicates(members, d, canonical.Sequence, canonical.OrganismID); g != nil {
			res, err := p.merger.Merge(ctx, g)
			if err != nil {
				return nil, err
			}
			for _, id := range res.Deleted {
				p.forget(id)
			}
			survivor, prior, updated = res.Reference, res.PriorSequence, res.SequenceUpdated
			conflicts = append(conflicts, res.Conflicts...)
		}

		if !updated && target != "" {
			rr := Remap(prior, target, survivor.Links)
			p.rec.remapped(rr)
			if len(rr.ToFix) > 0 {
				conflicts = append(conflicts, Conflict{Record: survivor, PriorSequence: prior, Links: rr.ToFix})
			}
			survivor.Sequence = target
		}
		if survivor.OrganismID == "" {
			survivor.OrganismID = canonical.OrganismID
		}
		if err := p.store.Save(ctx, survivor); err != nil {
			return nil, fmt.Errorf("failed to save transcript %d: %w", survivor.ID, err)
		}
	}

	own = p.alive(own)
	if err := p.resolve(ctx, conflicts, canonical, master, own); err != nil {
		return nil, err
	}
	return own, nil
}

// resolve hands every conflict to the transcript reconciler.
func (p *pass) resolve(ctx context.Context, conflicts []Conflict, canonical *CanonicalRecord, master *LocalRecord, known []*LocalRecord) error {
	for _, c := range conflicts {
		out, err := p.transcripts.Resolve(ctx, c, canonical, master, p.alive(known))
		if err != nil {
			return err
		}
		if out.Target != nil && out.Target != c.Record {
			p.track(out.Target)
		}
	}
	return nil
}

// syncSecondaryAccessions replaces the secondary accession cross references of rec.
func syncSecondaryAccessions(rec *LocalRecord, secondary []string) {
	xrefs := rec.Xrefs[:0:0]
	for _, x := range rec.Xrefs {
		if x.Database == DatabaseUniProt && x.Qualifier == QualifierSecondaryAC {
			continue
		}
		xrefs = append(xrefs, x)
	}
	rec.Xrefs = xrefs
	for _, id := range secondary {
		rec.AddXref(CrossRef{Database: DatabaseUniProt, Qualifier: QualifierSecondaryAC, Value: id})
	}
}
