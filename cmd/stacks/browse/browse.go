// Package browsecmder provides the browse command, a TUI for exploring the
// knowledge base.
package browsecmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/stacks/pkg/config"
	"github.com/papercomputeco/stacks/pkg/knowledge"
	"github.com/papercomputeco/stacks/pkg/logger"
)

const browseLongDesc string = `Browse the knowledge base interactively.

Pick a collection, type a query, and page through the results without leaving
the terminal. Navigation follows vi conventions: j/k to move, enter to drill
in, esc to go back, q to quit.

Examples:
  stacks browse
  stacks browse --collection runbooks
  stacks browse --top 10 --threshold 0.5`

const browseShortDesc string = "Browse the knowledge base interactively"

type browseCommander struct {
	collection string
	topK       int
	threshold  float64

	knowledgeURL string
	apiKey       string
}

func NewBrowseCmd() *cobra.Command {
	cmder := &browseCommander{}

	cmd := &cobra.Command{
		Use:   "browse",
		Short: browseShortDesc,
		Long:  browseLongDesc,
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
			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&cmder.collection, "collection", "c", "", "Skip collection selection and search this collection")
	cmd.Flags().IntVarP(&cmder.topK, "top", "n", knowledge.DefaultTopK, "Number of results per search (clamped to 1-20)")
	cmd.Flags().Float64VarP(&cmder.threshold, "threshold", "t", knowledge.DefaultScoreThreshold, "Minimum similarity score (clamped to 0.0-1.0)")
	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagKnowledgeURL, &cmder.knowledgeURL)
	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagAPIKey, &cmder.apiKey)

	return cmd
}

func (c *browseCommander) run(ctx context.Context) error {
	// The TUI owns the terminal; client logs would corrupt the display.
	client, err := knowledge.NewClient(knowledge.Config{
		URL:    c.knowledgeURL,
		APIKey: c.apiKey,
	}, logger.Nop())
	if err != nil {
		return fmt.Errorf("creating knowledge client: %w", err)
	}

	return runBrowseTUI(ctx, client, browseOptions{
		Collection:     c.collection,
		TopK:           c.topK,
		ScoreThreshold: c.threshold,
	})
}
