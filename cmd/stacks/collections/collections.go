// Package collectionscmder provides the collections command for listing the
// collections available on the knowledge base.
package collectionscmder

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/stacks/pkg/cliui"
	"github.com/papercomputeco/stacks/pkg/config"
	"github.com/papercomputeco/stacks/pkg/knowledge"
	"github.com/papercomputeco/stacks/pkg/logger"
)

type collectionsCommander struct {
	asJSON bool

	knowledgeURL string
	apiKey       string

	debug  bool
	logger *slog.Logger
}

const collectionsLongDesc string = `List the collections available on the knowledge base.

Example:
  stacks collections
  stacks collections --json | jq '.collections'`

const collectionsShortDesc string = "List knowledge base collections"

func NewCollectionsCmd() *cobra.Command {
	cmder := &collectionsCommander{}

	cmd := &cobra.Command{
		Use:   "collections",
		Short: collectionsShortDesc,
		Long:  collectionsLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, config.DefaultFlags, []string{
				config.FlagKnowledgeURL,
				config.FlagAPIKey,
			})

			cmder.knowledgeURL = v.GetString("knowledge.url")

			cmder.apiKey, err = config.ResolveKnowledgeAPIKey(v, configDir)
			if err != nil {
				return err
			}

			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run()
		},
	}

	cmd.Flags().BoolVar(&cmder.asJSON, "json", false, "Print the raw result envelope as JSON")
	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagKnowledgeURL, &cmder.knowledgeURL)
	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagAPIKey, &cmder.apiKey)

	return cmd
}

func (c *collectionsCommander) run() error {
	c.logger = logger.New(logger.WithDebug(c.debug), logger.WithPretty(true), logger.WithWriter(os.Stderr))

	client, err := knowledge.NewClient(knowledge.Config{
		URL:    c.knowledgeURL,
		APIKey: c.apiKey,
	}, c.logger)
	if err != nil {
		return fmt.Errorf("creating knowledge client: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	envelope := client.ListCollections(ctx)

	if c.asJSON {
		out, err := json.MarshalIndent(envelope, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding envelope: %w", err)
		}
		fmt.Println(string(out))
		return nil
	}

	if !envelope.Success {
		return fmt.Errorf("listing collections failed: %s", envelope.Error)
	}

	if envelope.Collections == nil || len(*envelope.Collections) == 0 {
		fmt.Println(cliui.WarnStyle.Render("No collections found."))
		return nil
	}

	fmt.Printf("\n%s\n\n", cliui.HeaderStyle.Render("Collections"))
	for _, raw := range *envelope.Collections {
		fmt.Printf("  %s\n", renderCollection(raw))
	}
	fmt.Println()

	return nil
}

// renderCollection formats one collection entry. Servers return either plain
// name strings or objects with a name field; anything else is shown raw.
func renderCollection(raw json.RawMessage) string {
	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		return cliui.NameStyle.Render(name)
	}

	var obj struct {
		Name  string `json:"name"`
		Count *int   `json:"count"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Name != "" {
		line := cliui.NameStyle.Render(obj.Name)
		if obj.Count != nil {
			line += "  " + cliui.DimStyle.Render(fmt.Sprintf("(%d documents)", *obj.Count))
		}
		return line
	}

	return cliui.DimStyle.Render(string(raw))
}
