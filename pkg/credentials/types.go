package credentials

// Credentials represents the stored API credentials in credentials.toml.
type Credentials struct {
	Version   int                 `toml:"version"`
	Knowledge KnowledgeCredential `toml:"knowledge"`
}

// KnowledgeCredential holds the API key for the knowledge base.
type KnowledgeCredential struct {
	APIKey string `toml:"api_key"`
}
