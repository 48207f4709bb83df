package server

// PluginServerConfig configures the pseudonymization pipeline plugins
type PluginServerConfig struct {
	// ReplaceTags is the comma-separated list of tag names to pseudonymize
	// in addition to the study/series/SOP identity tags. Required for the
	// outgoing plugin.
	ReplaceTags string `mapstructure:"replace_tags" yaml:"replace_tags"`

	// Registry keys of the plugins to construct at startup.
	Outgoing string `mapstructure:"outgoing" yaml:"outgoing"`
	Incoming string `mapstructure:"incoming" yaml:"incoming"`
}
