package reconcile

// DeriveOverrides lists the fields a derived record does not inherit from its source.
type DeriveOverrides struct {
	Kind       RecordKind
	Identity   string
	Sequence   *string
	ShortLabel string
	Parent     *ParentRef
}

// Derive builds a new, unsaved record from source. Cross references, annotations,
// organism, label and sequence are copied; links and parent references are not.
// Exclusion markers the engine set on source are stripped.
// Secondary identities stay with the source so a merged id keeps a single heir.
func Derive(source *LocalRecord, o DeriveOverrides) *LocalRecord {
	rec := &LocalRecord{
		ShortLabel: source.ShortLabel,
		Kind:       source.Kind,
		Sequence:   source.Sequence,
		OrganismID: source.OrganismID,
	}
	for _, x := range source.Xrefs {
		if !x.IsSecondaryIdentity() {
			rec.Xrefs = append(rec.Xrefs, x)
		}
	}
	rec.Annotations = stripReconciliationMarkers(source.Annotations)
	if o.Kind != "" {
		rec.Kind = o.Kind
	}
	if o.ShortLabel != "" {
		rec.ShortLabel = o.ShortLabel
	}
	if o.Sequence != nil {
		rec.Sequence = *o.Sequence
	}
	if o.Identity != "" {
		rec.SetIdentity(o.Identity)
	}
	if o.Parent != nil {
		rec.Parents = []ParentRef{*o.Parent}
	}
	return rec
}

// CloneRecord returns a deep copy of rec, links included.
func CloneRecord(rec *LocalRecord) *LocalRecord {
	if rec == nil {
		return nil
	}
	out := *rec
	out.Xrefs = append([]CrossRef(nil), rec.Xrefs...)
	out.Annotations = append([]Annotation(nil), rec.Annotations...)
	out.Parents = append([]ParentRef(nil), rec.Parents...)
	out.Links = make([]*ActiveLink, len(rec.Links))
	for i, l := range rec.Links {
		out.Links[i] = CloneLink(l)
	}
	return &out
}

// CloneLink returns a deep copy of l.
func CloneLink(l *ActiveLink) *ActiveLink {
	out := *l
	out.Features = make([]*Feature, len(l.Features))
	for i, f := range l.Features {
		fc := *f
		fc.Annotations = append([]Annotation(nil), f.Annotations...)
		fc.Ranges = make([]*Range, len(f.Ranges))
		for j, r := range f.Ranges {
			rc := *r
			fc.Ranges[j] = &rc
		}
		out.Features[i] = &fc
	}
	return &out
}
