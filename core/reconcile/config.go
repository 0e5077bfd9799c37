package reconcile

// Config holds the policy switches of the reconciliation engine.
type Config struct {
	// SweepTranscripts deletes a link-less master together with its link-less
	// transcripts. When false such a master is retained while its transcripts go.
	SweepTranscripts bool `mapstructure:"sweep_transcripts" default:"true"`
	// AllowDeprecated lets conflicted links without a unique transcript match move
	// onto a deprecated copy of their record instead of staying unresolved.
	AllowDeprecated bool `mapstructure:"allow_deprecated" default:"true"`
	// Workers is the number of passes run in parallel by a Runner.
	Workers int `mapstructure:"workers" default:"4"`
}
