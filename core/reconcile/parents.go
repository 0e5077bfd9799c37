package reconcile

import (
	"context"
	"errors"
	"fmt"
)

// ParentChecker validates the parent references of transcripts and repairs those
// pointing at records that were merged away.
type ParentChecker struct {
	store RecordStore
	rec   *recorder
}

func newParentChecker(store RecordStore, rec *recorder) *ParentChecker {
	return &ParentChecker{store: store, rec: rec}
}

// Check splits transcripts into those whose single parent reference resolves to a
// live record and the rejected ones. Rejected transcripts are reported and left
// untouched for manual follow-up.
func (p *ParentChecker) Check(ctx context.Context, transcripts []*LocalRecord) (valid, rejected []*LocalRecord, err error) {
	seen := make(map[RecordID]struct{}, len(transcripts))
	for _, t := range transcripts {
		if _, ok := seen[t.ID]; ok {
			continue
		}
		seen[t.ID] = struct{}{}

		ok, err := p.check(ctx, t)
		if err != nil {
			return nil, nil, err
		}
		if ok {
			valid = append(valid, t)
		} else {
			rejected = append(rejected, t)
		}
	}
	return valid, rejected, nil
}

func (p *ParentChecker) check(ctx context.Context, t *LocalRecord) (bool, error) {
	if perr := parentShape(t); perr != nil {
		p.rec.failed(perr)
		return false, nil
	}

	ref := t.Parents[0]
	_, err := p.store.Get(ctx, ref.Target)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return false, fmt.Errorf("failed to load parent %d of %s: %w", ref.Target, t.Label(), err)
	}

	heirs, err := p.store.FindByXref(ctx, DatabaseInternal, QualifierSecondaryIdentity, ref.Target.String())
	if err != nil {
		return false, fmt.Errorf("failed to look up heirs of record %d: %w", ref.Target, err)
	}
	heirs = without(heirs, t.ID)

	switch len(heirs) {
	case 0:
		p.rec.failed(newProcessError(KindDeadParent, t, "parent %d of %s no longer exists", ref.Target, t.Label()))
		return false, nil
	case 1:
		heir := heirs[0]
		t.Parents[0].Target = heir.ID
		if err := p.store.Save(ctx, t); err != nil {
			return false, fmt.Errorf("failed to save transcript %d: %w", t.ID, err)
		}
		p.rec.parentRemapped(ParentRemappedEvent{Transcript: t.ID, Kind: ref.Kind, From: ref.Target, To: heir.ID})
		return true, nil
	default:
		p.rec.failed(newProcessError(KindAmbiguousRemap, t, "%d records claim dead parent %d of %s", len(heirs), ref.Target, t.Label()))
		return false, nil
	}
}

// parentShape checks that t has exactly one parent reference.
func parentShape(t *LocalRecord) *ProcessError {
	if len(t.Parents) == 0 {
		return newProcessError(KindOrphanTranscript, t, "transcript %s has no parent", t.Label())
	}
	counts := make(map[ParentKind]int)
	for _, ref := range t.Parents {
		counts[ref.Kind]++
	}
	if len(counts) > 1 {
		return newProcessError(KindMixedParentKinds, t, "transcript %s has parents of %d kinds", t.Label(), len(counts))
	}
	if len(t.Parents) > 1 {
		return newProcessError(KindAmbiguousParent, t, "transcript %s has %d parents", t.Label(), len(t.Parents))
	}
	return nil
}

func without(records []*LocalRecord, id RecordID) []*LocalRecord {
	out := records[:0:0]
	for _, r := range records {
		if r.ID != id {
			out = append(out, r)
		}
	}
	return out
}
