package database

// Config selects the record database. The mysql driver uses every field; sqlite
// only reads Name.
type Config struct {
	// Driver is mysql or sqlite.
	Driver   string `mapstructure:"driver" default:"mysql"`
	Host     string `mapstructure:"host" default:"localhost"`
	Port     int    `mapstructure:"port" default:"3306"`
	User     string `mapstructure:"user" default:"root"`
	Password string `mapstructure:"password" default:""`
	// Name is the schema name, or the DSN for sqlite (a file path or ":memory:").
	Name string `mapstructure:"name" default:"proteins"`
	// TimeoutSeconds bounds connection setup, reads and writes.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
}
