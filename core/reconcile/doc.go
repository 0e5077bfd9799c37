// Package reconcile keeps locally curated protein records consistent with the
// entries of an external canonical sequence database.
//
// A pass reconciles the local records of one canonical entry:
//
//  1. Candidates claiming the primary or a secondary id are loaded and run through
//     the identity filter. Excluded records and records with zero or several
//     identities are left alone.
//  2. Duplicate masters are merged into the record with the lowest internal id.
//     Links move onto the survivor; identical links are coalesced.
//  3. The survivor takes the canonical sequence. Feature ranges are relocated onto it;
//     links with a range that cannot be placed are held back as conflicts.
//  4. Transcript parents pointing at merged records are rewritten to the survivor,
//     then transcripts are merged and updated against their descriptors. Transcripts
//     no longer listed upstream are marked stale.
//  5. Conflicts move onto the transcript whose sequence equals the one their ranges
//     were computed against, onto a deprecated copy, or are reported as unresolved.
//  6. Records of the pass that no longer own links are deleted.
//
// Every step writes through a RecordStore and reports to an EventSink. The Report
// returned by Engine.Run collects the same events. A Runner executes passes for many
// accessions in parallel, each inside its own transaction when the store is a
// Transactor. Runner.DryRun performs a pass and rolls it back; Runner.Observe
// registers a PassObserver that hears about every finished pass.
// A Runner forwards events to the engine's sink only for committed passes; dry runs
// and rolled back passes leave them in the report alone.
package reconcile
