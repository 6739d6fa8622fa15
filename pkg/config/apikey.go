package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/papercomputeco/stacks/pkg/credentials"
)

// ResolveKnowledgeAPIKey returns the knowledge base API key for a command.
// The viper chain (flag > env > config file) is consulted first; when it
// yields nothing the key stored by "stacks auth" in credentials.toml is used.
// An empty result means the knowledge base is called without authentication.
func ResolveKnowledgeAPIKey(v *viper.Viper, configDir string) (string, error) {
	if key := v.GetString("knowledge.api_key"); key != "" {
		return key, nil
	}

	mgr, err := credentials.NewManager(configDir)
	if err != nil {
		return "", fmt.Errorf("loading credentials: %w", err)
	}

	key, err := mgr.APIKey()
	if err != nil {
		return "", fmt.Errorf("loading credentials: %w", err)
	}

	return key, nil
}
