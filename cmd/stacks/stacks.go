// Package stackscmder
package stackscmder

import (
	"github.com/spf13/cobra"

	authcmder "github.com/papercomputeco/stacks/cmd/stacks/auth"
	browsecmder "github.com/papercomputeco/stacks/cmd/stacks/browse"
	collectionscmder "github.com/papercomputeco/stacks/cmd/stacks/collections"
	configcmder "github.com/papercomputeco/stacks/cmd/stacks/config"
	documentcmder "github.com/papercomputeco/stacks/cmd/stacks/document"
	searchcmder "github.com/papercomputeco/stacks/cmd/stacks/search"
	servecmder "github.com/papercomputeco/stacks/cmd/stacks/serve"
	versioncmder "github.com/papercomputeco/stacks/cmd/version"
)

const stacksLongDesc string = `Stacks is a client for your team's knowledge base.

Query it directly:
  stacks search <query>   Search a collection
  stacks document <id>    Fetch a full document
  stacks collections      List available collections
  stacks browse           Browse interactively

Or expose it to agents:
  stacks serve            Run the MCP server over HTTP
  stacks serve stdio      Speak MCP over stdin/stdout`

const stacksShortDesc string = "Stacks - Knowledge Base Access"

func NewStacksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stacks",
		Short: stacksShortDesc,
		Long:  stacksLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .stacks/ config directory")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(searchcmder.NewSearchCmd())
	cmd.AddCommand(documentcmder.NewDocumentCmd())
	cmd.AddCommand(collectionscmder.NewCollectionsCmd())
	cmd.AddCommand(browsecmder.NewBrowseCmd())
	cmd.AddCommand(authcmder.NewAuthCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
