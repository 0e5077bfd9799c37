package reconcile

// FilterIdentity decides whether rec may be reconciled automatically.
// It returns the record's canonical identity when admitted. A nil error with an empty
// identity means the record is excluded by its own annotations.
func FilterIdentity(rec *LocalRecord) (string, *ProcessError) {
	if rec.Excluded() {
		return "", nil
	}
	ids := distinct(rec.Identities())
	switch len(ids) {
	case 0:
		return "", newProcessError(KindNoCanonicalIdentity, rec, "record %s has no canonical identity", rec.Label())
	case 1:
		return ids[0], nil
	}
	return "", newProcessError(KindMultipleCanonicalIdentities, rec, "record %s claims %d canonical identities %v", rec.Label(), len(ids), ids)
}

func distinct(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := values[:0:0]
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
