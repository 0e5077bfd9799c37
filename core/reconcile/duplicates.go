package reconcile

import "sort"

// DuplicateGroup is a set of records claiming the same canonical identity.
type DuplicateGroup struct {
	Members []*LocalRecord
	// CanonicalSequence is the sequence the survivor must end up with.
	CanonicalSequence string
	// CanonicalSecondaryID is the identity the group was found under when it differs
	// from the primary id (records still carrying a secondary accession).
	CanonicalSecondaryID string
	// Accession is the identity the survivor will carry.
	Accession  string
	OrganismID string
}

// DetectDuplicates groups master records admitted for canonical. It returns nil when
// there is nothing to merge.
func DetectDuplicates(records []*LocalRecord, canonical *CanonicalRecord) *DuplicateGroup {
	if len(records) <= 1 {
		return nil
	}
	group := &DuplicateGroup{
		Members:           sortByID(records),
		CanonicalSequence: canonical.Sequence,
		Accession:         canonical.PrimaryID,
		OrganismID:        canonical.OrganismID,
	}
	for _, r := range group.Members {
		if id := r.Identity(); id != canonical.PrimaryID && canonical.HasID(id) {
			group.CanonicalSecondaryID = id
			break
		}
	}
	return group
}

// TranscriptKey identifies a transcript family: the transcript identity under one parent.
type TranscriptKey struct {
	Identity string
	Parent   RecordID
}

// PartitionTranscripts groups transcripts whose identity and single parent target are
// equal. Transcripts must have been through CheckParents so that their parent
// references resolve to surviving records. Keys are returned in a stable order.
func PartitionTranscripts(transcripts []*LocalRecord) ([]TranscriptKey, map[TranscriptKey][]*LocalRecord) {
	groups := make(map[TranscriptKey][]*LocalRecord)
	var keys []TranscriptKey
	for _, t := range transcripts {
		if len(t.Parents) != 1 {
			continue
		}
		key := TranscriptKey{Identity: t.Identity(), Parent: t.Parents[0].Target}
		if _, ok := groups[key]; !ok {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], t)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Parent != keys[j].Parent {
			return keys[i].Parent < keys[j].Parent
		}
		return keys[i].Identity < keys[j].Identity
	})
	return keys, groups
}

// DetectTranscriptDuplicates builds the duplicate group of one transcript family.
func DetectTranscriptDuplicates(members []*LocalRecord, d TranscriptDescriptor, parentSequence, organismID string) *DuplicateGroup {
	if len(members) <= 1 {
		return nil
	}
	return &DuplicateGroup{
		Members:           sortByID(members),
		CanonicalSequence: d.ResolvedSequence(parentSequence),
		Accession:         d.ID,
		OrganismID:        organismID,
	}
}

func sortByID(records []*LocalRecord) []*LocalRecord {
	out := append([]*LocalRecord(nil), records...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
