package storage

// Config locates the object store holding entry snapshots and archived reports.
type Config struct {
	// Endpoint is host:port of the S3 compatible service. An https:// scheme enables TLS.
	Endpoint  string `mapstructure:"endpoint" default:"localhost:9000"`
	AccessKey string `mapstructure:"access_key" default:"minioadmin"`
	SecretKey string `mapstructure:"secret_key" default:"minioadmin"`
	UseSSL    bool   `mapstructure:"use_ssl" default:"false"`
	// Bucket holds both the snapshots and the report archive.
	Bucket string `mapstructure:"bucket" default:"proteins"`
	// Region is used for signing and when the bucket has to be created.
	Region string `mapstructure:"region" default:""`
	// TimeoutSeconds bounds connection setup and the wait for response headers.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
}
