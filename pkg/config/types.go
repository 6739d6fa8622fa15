package config

// Config represents the persistent stacks configuration stored as config.toml
// in the .stacks/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version   int             `toml:"version"`
	Knowledge KnowledgeConfig `toml:"knowledge"`
	API       APIConfig       `toml:"api"`
	Events    EventsConfig    `toml:"events"`
}

// KnowledgeConfig holds settings for the remote knowledge base.
type KnowledgeConfig struct {
	URL    string `toml:"url,omitempty"`
	APIKey string `toml:"api_key,omitempty"`
}

// APIConfig holds API server settings. An empty LogFile keeps logs on the
// terminal only.
type APIConfig struct {
	Listen  string `toml:"listen,omitempty"`
	LogFile string `toml:"log_file,omitempty"`
}

// EventsConfig holds operation event publishing settings. Brokers is a
// comma-separated Kafka broker list; leaving it empty disables publishing.
type EventsConfig struct {
	Brokers string `toml:"brokers,omitempty"`
	Topic   string `toml:"topic,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"knowledge.url": {
		get: func(c *Config) string { return c.Knowledge.URL },
		set: func(c *Config, v string) error { c.Knowledge.URL = v; return nil },
	},
	"knowledge.api_key": {
		get: func(c *Config) string { return c.Knowledge.APIKey },
		set: func(c *Config, v string) error { c.Knowledge.APIKey = v; return nil },
	},
	"api.listen": {
		get: func(c *Config) string { return c.API.Listen },
		set: func(c *Config, v string) error { c.API.Listen = v; return nil },
	},
	"api.log_file": {
		get: func(c *Config) string { return c.API.LogFile },
		set: func(c *Config, v string) error { c.API.LogFile = v; return nil },
	},
	"events.brokers": {
		get: func(c *Config) string { return c.Events.Brokers },
		set: func(c *Config, v string) error { c.Events.Brokers = v; return nil },
	},
	"events.topic": {
		get: func(c *Config) string { return c.Events.Topic },
		set: func(c *Config, v string) error { c.Events.Topic = v; return nil },
	},
}
