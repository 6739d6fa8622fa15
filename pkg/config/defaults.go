package config

import (
	"github.com/papercomputeco/stacks/pkg/knowledge"
)

const (
	defaultKnowledgeURL = knowledge.DefaultBaseURL

	defaultAPIListen = ":8081"

	// defaultEventsBrokers stays empty so operation event publishing is off
	// until a broker list is configured.
	defaultEventsBrokers = ""
	defaultEventsTopic   = "stacks.operations"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Knowledge: KnowledgeConfig{
			URL: defaultKnowledgeURL,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		Events: EventsConfig{
			Brokers: defaultEventsBrokers,
			Topic:   defaultEventsTopic,
		},
	}
}
