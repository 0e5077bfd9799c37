package reconcile

func hasTopic(annotations []Annotation, topic string) bool {
	for _, a := range annotations {
		if a.Topic == topic {
			return true
		}
	}
	return false
}

// addAnnotation appends a unless an annotation with the same topic and text exists.
func addAnnotation(annotations []Annotation, a Annotation) ([]Annotation, bool) {
	for _, existing := range annotations {
		if existing == a {
			return annotations, false
		}
	}
	return append(annotations, a), true
}

func removeTopics(annotations []Annotation, topics ...string) ([]Annotation, bool) {
	kept := annotations[:0:0]
	removed := false
	for _, a := range annotations {
		drop := false
		for _, t := range topics {
			if a.Topic == t {
				drop = true
				break
			}
		}
		if drop {
			removed = true
			continue
		}
		kept = append(kept, a)
	}
	return kept, removed
}

// Exclude tags the record with the exclusion marker and a caution carrying reason.
// Both annotations are added only if missing, so repeated calls are no-ops.
func Exclude(rec *LocalRecord, reason string) bool {
	var added1, added2 bool
	rec.Annotations, added1 = addAnnotation(rec.Annotations, Annotation{Topic: TopicNoUniprotUpdate})
	rec.Annotations, added2 = addAnnotation(rec.Annotations, Annotation{Topic: TopicCaution, Text: reason})
	return added1 || added2
}

// MarkInvalidRange tags the feature with the invalid-range marker and a caution
// carrying message, skipping annotations already present with identical text.
func MarkInvalidRange(f *Feature, message string) bool {
	var added1, added2 bool
	f.Annotations, added1 = addAnnotation(f.Annotations, Annotation{Topic: TopicInvalidRange, Text: message})
	f.Annotations, added2 = addAnnotation(f.Annotations, Annotation{Topic: TopicCaution, Text: message})
	return added1 || added2
}

// clearInvalidRange drops the markers written by MarkInvalidRange.
func clearInvalidRange(f *Feature) bool {
	var invalid []string
	for _, a := range f.Annotations {
		if a.Topic == TopicInvalidRange {
			invalid = append(invalid, a.Text)
		}
	}
	if len(invalid) == 0 {
		return false
	}
	kept := f.Annotations[:0:0]
	for _, a := range f.Annotations {
		if a.Topic == TopicInvalidRange {
			continue
		}
		if a.Topic == TopicCaution && containsString(invalid, a.Text) {
			continue
		}
		kept = append(kept, a)
	}
	f.Annotations = kept
	return true
}

// stripReconciliationMarkers returns annotations without exclusion markers and the
// cautions the engine writes alongside them.
func stripReconciliationMarkers(annotations []Annotation) []Annotation {
	kept := make([]Annotation, 0, len(annotations))
	for _, a := range annotations {
		if a.Topic == TopicNoUniprotUpdate {
			continue
		}
		if a.Topic == TopicCaution && isEngineCaution(a.Text) {
			continue
		}
		kept = append(kept, a)
	}
	return kept
}

func isEngineCaution(text string) bool {
	switch text {
	case CautionObsolete, CautionFeatureConflicts, CautionMergeConflicts:
		return true
	}
	return false
}

func containsString(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
