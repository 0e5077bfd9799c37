package reconcile

import (
	"strconv"
	"strings"
)

// RecordID is the internal identifier of a local record, assigned by the store.
// Zero means the record has not been saved yet.
type RecordID int64

// String returns the decimal form used in secondary-identity cross references.
func (id RecordID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// LinkID identifies an active link.
type LinkID int64

// FeatureID identifies a feature.
type FeatureID int64

// Well-known cross reference databases and qualifiers.
const (
	// DatabaseUniProt is the external authoritative sequence database.
	DatabaseUniProt = "uniprotkb"
	// DatabaseInternal marks cross references pointing at local records.
	DatabaseInternal = "intact"

	// QualifierIdentity marks the canonical identity of a record.
	QualifierIdentity = "identity"
	// QualifierSecondaryAC lists a secondary accession of the canonical entry.
	QualifierSecondaryAC = "secondary-ac"
	// QualifierRemoved replaces the identity qualifier of a record whose entry vanished.
	QualifierRemoved = "removed"
	// QualifierSecondaryIdentity records the internal id of a record merged into this one.
	QualifierSecondaryIdentity = "intact-secondary"
)

// Annotation topics written by the engine.
const (
	// TopicNoUniprotUpdate excludes a record from automatic reconciliation.
	TopicNoUniprotUpdate = "no-uniprot-update"
	// TopicCaution carries a free-text explanation for curators.
	TopicCaution = "caution"
	// TopicInvalidRange flags a feature whose range could not be placed on the sequence.
	TopicInvalidRange = "invalid-range"
)

// Caution texts used with the exclusion marker.
const (
	CautionObsolete         = "entry obsolete upstream"
	CautionFeatureConflicts = "feature conflicts"
	CautionMergeConflicts   = "duplicate with feature conflicts, excluded from merge"
)

// RecordKind distinguishes master proteins from their transcripts.
type RecordKind string

const (
	KindProtein    RecordKind = "protein"
	KindTranscript RecordKind = "transcript"
)

// TranscriptKind is the kind of a declared sub-entity of a canonical entry.
type TranscriptKind string

const (
	TranscriptIsoform TranscriptKind = "isoform"
	TranscriptChain   TranscriptKind = "chain"
)

// ParentKind is the kind of a transcript's parent reference.
type ParentKind string

const (
	ParentIsoform ParentKind = "isoform-parent"
	ParentChain   ParentKind = "chain-parent"
)

// ParentKindFor returns the parent reference kind matching a transcript kind.
func ParentKindFor(kind TranscriptKind) ParentKind {
	if kind == TranscriptChain {
		return ParentChain
	}
	return ParentIsoform
}

// TranscriptDescriptor is a splice variant or processed chain declared by a canonical entry.
type TranscriptDescriptor struct {
	Kind     TranscriptKind `json:"kind"`
	ID       string         `json:"id"`
	Sequence string         `json:"sequence,omitempty"`
	// Start and End locate a chain within the parent sequence (1-based, inclusive).
	// Zero when unknown.
	Start int `json:"start,omitempty"`
	End   int `json:"end,omitempty"`
}

// ResolvedSequence returns the descriptor sequence, falling back to the slice of the
// parent sequence delimited by Start and End.
func (d TranscriptDescriptor) ResolvedSequence(parent string) string {
	if d.Sequence != "" {
		return d.Sequence
	}
	if d.Start > 0 && d.End >= d.Start && d.End <= len(parent) {
		return parent[d.Start-1 : d.End]
	}
	return ""
}

// CanonicalRecord is an entry of the external database. It is read-only input to a pass.
type CanonicalRecord struct {
	PrimaryID    string                 `json:"primary_id"`
	SecondaryIDs []string               `json:"secondary_ids,omitempty"`
	Sequence     string                 `json:"sequence"`
	OrganismID   string                 `json:"organism_id,omitempty"`
	Transcripts  []TranscriptDescriptor `json:"transcripts,omitempty"`
}

// HasID reports whether id is the primary or one of the secondary ids.
func (c *CanonicalRecord) HasID(id string) bool {
	if c.PrimaryID == id {
		return true
	}
	for _, s := range c.SecondaryIDs {
		if s == id {
			return true
		}
	}
	return false
}

// Descriptor returns the transcript descriptor with the given id.
func (c *CanonicalRecord) Descriptor(id string) (TranscriptDescriptor, bool) {
	for _, d := range c.Transcripts {
		if d.ID == id {
			return d, true
		}
	}
	return TranscriptDescriptor{}, false
}

// CrossRef links a record to an entry of some database.
type CrossRef struct {
	Database  string `json:"database"`
	Qualifier string `json:"qualifier"`
	Value     string `json:"value"`
}

// IsIdentity reports whether the cross reference is a canonical identity.
func (x CrossRef) IsIdentity() bool {
	return x.Database == DatabaseUniProt && x.Qualifier == QualifierIdentity
}

// IsSecondaryIdentity reports whether the cross reference records a merged record.
func (x CrossRef) IsSecondaryIdentity() bool {
	return x.Database == DatabaseInternal && x.Qualifier == QualifierSecondaryIdentity
}

// Annotation is a free-text note attached to a record or a feature.
type Annotation struct {
	Topic string `json:"topic"`
	Text  string `json:"text,omitempty"`
}

// ParentRef points a transcript at its master record.
type ParentRef struct {
	Kind   ParentKind `json:"kind"`
	Target RecordID   `json:"target"`
}

// RangeStatus qualifies one endpoint of a range.
type RangeStatus string

const (
	StatusCertain      RangeStatus = "certain"
	StatusRange        RangeStatus = "range"
	StatusGreaterThan  RangeStatus = "greater-than"
	StatusLessThan     RangeStatus = "less-than"
	StatusUndetermined RangeStatus = "undetermined"
	StatusNTerminal    RangeStatus = "n-terminal"
	StatusCTerminal    RangeStatus = "c-terminal"
)

// Shiftable reports whether positions with this status follow sequence changes.
// Undetermined and terminus endpoints are re-resolved, never shifted.
func (s RangeStatus) Shiftable() bool {
	switch s {
	case StatusUndetermined, StatusNTerminal, StatusCTerminal:
		return false
	}
	return true
}

// Range is a pair of fuzzy endpoints on the owning record's sequence.
// Positions are 1-based and inclusive.
type Range struct {
	ID         int64       `json:"id"`
	FromStatus RangeStatus `json:"from_status"`
	FromStart  int         `json:"from_start"`
	FromEnd    int         `json:"from_end"`
	ToStatus   RangeStatus `json:"to_status"`
	ToStart    int         `json:"to_start"`
	ToEnd      int         `json:"to_end"`
	// Sequence caches the residues covered by the range.
	Sequence string `json:"sequence,omitempty"`
}

// Positions returns the four positions in from-start, from-end, to-start, to-end order.
func (r *Range) Positions() [4]int {
	return [4]int{r.FromStart, r.FromEnd, r.ToStart, r.ToEnd}
}

func (r *Range) String() string {
	return strconv.Itoa(r.FromStart) + ".." + strconv.Itoa(r.FromEnd) + "-" +
		strconv.Itoa(r.ToStart) + ".." + strconv.Itoa(r.ToEnd)
}

// Feature is a region of interest of a participant, made of one or more ranges.
type Feature struct {
	ID          FeatureID    `json:"id"`
	ShortLabel  string       `json:"short_label,omitempty"`
	Ranges      []*Range     `json:"ranges"`
	Annotations []Annotation `json:"annotations,omitempty"`
}

// ActiveLink is the participation of a record in an interaction.
// The link holds the owner id rather than a pointer, so moving it is an explicit owner change.
type ActiveLink struct {
	ID               LinkID     `json:"id"`
	InteractionID    string     `json:"interaction_id"`
	Owner            RecordID   `json:"owner"`
	ExperimentalRole string     `json:"experimental_role,omitempty"`
	BiologicalRole   string     `json:"biological_role,omitempty"`
	Features         []*Feature `json:"features,omitempty"`
}

// SameEndpoints reports whether two links describe the same participation.
func (l *ActiveLink) SameEndpoints(other *ActiveLink) bool {
	return l.InteractionID == other.InteractionID &&
		l.ExperimentalRole == other.ExperimentalRole &&
		l.BiologicalRole == other.BiologicalRole
}

// LocalRecord is a locally stored protein or transcript.
type LocalRecord struct {
	ID          RecordID      `json:"id"`
	ShortLabel  string        `json:"short_label"`
	Kind        RecordKind    `json:"kind"`
	Sequence    string        `json:"sequence,omitempty"`
	OrganismID  string        `json:"organism_id,omitempty"`
	Xrefs       []CrossRef    `json:"xrefs,omitempty"`
	Annotations []Annotation  `json:"annotations,omitempty"`
	Links       []*ActiveLink `json:"links,omitempty"`
	Parents     []ParentRef   `json:"parents,omitempty"`
}

// IsTranscript reports whether the record is a splice variant or chain.
func (r *LocalRecord) IsTranscript() bool {
	return r.Kind == KindTranscript
}

// Identities returns the values of all canonical identity cross references.
func (r *LocalRecord) Identities() []string {
	var ids []string
	for _, x := range r.Xrefs {
		if x.IsIdentity() {
			ids = append(ids, x.Value)
		}
	}
	return ids
}

// Identity returns the first canonical identity, or "".
func (r *LocalRecord) Identity() string {
	for _, x := range r.Xrefs {
		if x.IsIdentity() {
			return x.Value
		}
	}
	return ""
}

// SetIdentity replaces all canonical identity cross references with one pointing at id.
func (r *LocalRecord) SetIdentity(id string) {
	xrefs := r.Xrefs[:0:0]
	for _, x := range r.Xrefs {
		if !x.IsIdentity() {
			xrefs = append(xrefs, x)
		}
	}
	r.Xrefs = append([]CrossRef{{Database: DatabaseUniProt, Qualifier: QualifierIdentity, Value: id}}, xrefs...)
}

// AddXref appends x unless an equal cross reference is already present.
func (r *LocalRecord) AddXref(x CrossRef) bool {
	for _, existing := range r.Xrefs {
		if existing == x {
			return false
		}
	}
	r.Xrefs = append(r.Xrefs, x)
	return true
}

// HasXref reports whether the record carries the given cross reference.
func (r *LocalRecord) HasXref(database, qualifier, value string) bool {
	for _, x := range r.Xrefs {
		if x.Database == database && x.Qualifier == qualifier && x.Value == value {
			return true
		}
	}
	return false
}

// Excluded reports whether the record is excluded from automatic reconciliation.
func (r *LocalRecord) Excluded() bool {
	return hasTopic(r.Annotations, TopicNoUniprotUpdate)
}

// Link returns the owned link with the given id.
func (r *LocalRecord) Link(id LinkID) *ActiveLink {
	for _, l := range r.Links {
		if l.ID == id {
			return l
		}
	}
	return nil
}

// Label returns a human readable name for logs and reports.
func (r *LocalRecord) Label() string {
	if r.ShortLabel != "" {
		return r.ShortLabel
	}
	if id := r.Identity(); id != "" {
		return id
	}
	return "#" + r.ID.String()
}

// sameSequence compares two sequences ignoring case.
func sameSequence(a, b string) bool {
	return strings.EqualFold(a, b)
}
