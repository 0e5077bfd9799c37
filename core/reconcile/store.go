package reconcile

import "context"

// RecordStore is the persistence collaborator of the engine.
// Implementations return copies: mutating a returned record has no effect until Save.
type RecordStore interface {
	// Get returns the record with the given id, or ErrNotFound.
	Get(ctx context.Context, id RecordID) (*LocalRecord, error)

	// FindByXref returns every record carrying the given cross reference.
	FindByXref(ctx context.Context, database, qualifier, value string) ([]*LocalRecord, error)

	// FindByParent returns every transcript with a parent reference to target.
	FindByParent(ctx context.Context, target RecordID) ([]*LocalRecord, error)

	// Save inserts or updates the record, its cross references, annotations,
	// parent references and owned links. New records get their id assigned in place.
	// Links present on the record are (re)assigned to it; links it no longer lists
	// are left to whichever record now owns them.
	Save(ctx context.Context, rec *LocalRecord) error

	// Delete removes a record. It fails with ErrRecordHasLinks if links still name it.
	Delete(ctx context.Context, id RecordID) error

	// DeleteLink removes a link and its features.
	DeleteLink(ctx context.Context, id LinkID) error

	// CountLinks returns the number of links owned by the record.
	CountLinks(ctx context.Context, id RecordID) (int, error)
}

// Transactor is implemented by stores that can run a pass as one unit of work.
type Transactor interface {
	// Transaction runs fn against a transactional view of the store. The work is
	// committed if fn returns nil and rolled back otherwise.
	Transaction(ctx context.Context, fn func(RecordStore) error) error
}

// CanonicalSource fetches entries of the external database.
type CanonicalSource interface {
	// Fetch returns the entry known under id (primary or secondary), or nil if the
	// external database no longer has it.
	Fetch(ctx context.Context, id string) (*CanonicalRecord, error)
}

// AccessionLister is implemented by stores that can enumerate the canonical
// identities claimed by their master records.
type AccessionLister interface {
	Accessions(ctx context.Context) ([]string, error)
}
