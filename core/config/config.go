package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"

	"protein-updater/core/database"
	"protein-updater/core/logger"
	"protein-updater/core/reconcile"
	"protein-updater/core/server"
	"protein-updater/core/storage"
	"protein-updater/core/uniprot"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the complete service configuration, one section per package.
type Config struct {
	Server    server.Config    `mapstructure:"server"`
	Storage   storage.Config   `mapstructure:"storage"`
	Uniprot   uniprot.Config   `mapstructure:"uniprot"`
	Reconcile reconcile.Config `mapstructure:"reconcile"`
	Log       logger.Config    `mapstructure:"log"`
	Database  database.Config  `mapstructure:"database"`
}

// LoadConfig reads <path>/.env into the environment, then builds the
// configuration from environment variables over the tag defaults.
// The result is validated.
func LoadConfig(path string) (*Config, error) {
	// A missing .env is fine (e.g. production)
	_ = godotenv.Overload(filepath.Join(path, ".env"))

	v := viper.New()
	setDefaults(v, reflect.TypeOf(Config{}), "")

	// SECTION_KEY -> section.key
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if err := c.Server.Validate(); err != nil {
		errs = append(errs, err)
	}
	switch c.Database.Driver {
	case "mysql", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("unsupported database driver %q", c.Database.Driver))
	}
	if c.Reconcile.Workers < 1 {
		errs = append(errs, fmt.Errorf("reconcile workers must be at least 1, got %d", c.Reconcile.Workers))
	}
	if c.Uniprot.CanonicalPrefix == "" || c.Uniprot.ReportPrefix == "" {
		errs = append(errs, errors.New("uniprot canonical and report prefixes are required"))
	} else if c.Uniprot.CanonicalPrefix == c.Uniprot.ReportPrefix {
		errs = append(errs, errors.New("uniprot reports must not share the snapshot prefix"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// setDefaults registers every tagged field with viper so AutomaticEnv can see it,
// using the 'default' tag as value. Nested structs become dotted keys.
func setDefaults(v *viper.Viper, t reflect.Type, prefix string) {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")
		if tag == "" {
			continue
		}

		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		if field.Type.Kind() == reflect.Struct {
			setDefaults(v, field.Type, key)
			continue
		}
		v.SetDefault(key, field.Tag.Get("default"))
	}
}
