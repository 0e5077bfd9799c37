package uniprot

// Config locates the entry snapshots and the report archive in the storage bucket.
type Config struct {
	// CanonicalPrefix is the folder holding one <accession>.json per entry and index.json.
	CanonicalPrefix string `mapstructure:"canonical_prefix" default:"uniprot"`
	// ReportPrefix is the folder pass reports are archived under.
	ReportPrefix string `mapstructure:"report_prefix" default:"reports"`
	// IndexTTLSeconds is how long the secondary accession index is cached. Zero disables caching.
	IndexTTLSeconds int `mapstructure:"index_ttl_seconds" default:"300"`
}
