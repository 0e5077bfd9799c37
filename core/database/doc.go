// Package database connects to the relational record database and stores local
// protein records in it.
//
// # Connect
//
// Connect opens a MySQL or SQLite database through GORM depending on Config.Driver.
// SQLite is intended for tests and local dry runs.
//
// # Store
//
// Store implements reconcile.RecordStore, reconcile.Transactor and
// reconcile.AccessionLister on top of the tables listed by Models. A record is
// spread over proteins, protein_xrefs, protein_annotations and protein_parents;
// its links live in active_links with their features and ranges.
//
// # Schema Inspection
//
// Migrate creates the tables. CheckSchema compares the live columns, read with
// GetTableColumns, against the models and reports what is missing.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    log.Fatal("Database connection failed", err)
//	}
//	store := database.NewStore(db)
package database
