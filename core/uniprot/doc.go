// Package uniprot reads canonical protein entries from snapshots kept in object
// storage and archives pass reports next to them.
//
// Snapshots live under Config.CanonicalPrefix as one <accession>.json per entry,
// shaped like reconcile.CanonicalRecord. A single index.json maps secondary
// accessions to their primary one; Source caches it for Config.IndexTTLSeconds and
// rebuilds it once for concurrent callers.
//
// Archive writes each report to <report_prefix>/<run>/<accession>.json and a
// summary.json for the whole run. Runs lists the archived run ids and Remove
// deletes every object of one run.
package uniprot
