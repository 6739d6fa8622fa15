package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/stacks/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the STACKS_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (STACKS_KNOWLEDGE_URL, STACKS_API_LISTEN, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	v.AddConfigPath(target)

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. Environment variables: STACKS_KNOWLEDGE_URL, STACKS_EVENTS_BROKERS, etc.
	v.SetEnvPrefix("STACKS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The knowledge base settings also honor the RAG_* environment names
	// used by existing deployments. The STACKS_ name wins when both are set.
	if err := v.BindEnv("knowledge.url", "STACKS_KNOWLEDGE_URL", "RAG_API_URL"); err != nil {
		return nil, fmt.Errorf("binding knowledge.url env: %w", err)
	}
	if err := v.BindEnv("knowledge.api_key", "STACKS_KNOWLEDGE_API_KEY", "RAG_API_KEY"); err != nil {
		return nil, fmt.Errorf("binding knowledge.api_key env: %w", err)
	}

	return v, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Knowledge base
	v.SetDefault("knowledge.url", d.Knowledge.URL)
	v.SetDefault("knowledge.api_key", d.Knowledge.APIKey)

	// API
	v.SetDefault("api.listen", d.API.Listen)
	v.SetDefault("api.log_file", d.API.LogFile)

	// Events
	v.SetDefault("events.brokers", d.Events.Brokers)
	v.SetDefault("events.topic", d.Events.Topic)
}
