// Package proteins serves local protein records over HTTP and triggers
// reconciliation passes on demand.
//
// # Routes
//
//   - GET /proteins/:id returns one record with its links, features and ranges.
//   - GET /proteins?accession=P12345 lists the records claiming an accession.
//   - POST /reconcile/:accession runs a pass; dry_run=true rolls every write back.
//
// Committed passes are archived when an archive is configured.
package proteins
