// Package searchcmder provides the search command for querying the knowledge base.
package searchcmder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/stacks/pkg/cliui"
	"github.com/papercomputeco/stacks/pkg/config"
	"github.com/papercomputeco/stacks/pkg/knowledge"
	"github.com/papercomputeco/stacks/pkg/logger"
	"github.com/papercomputeco/stacks/pkg/utils"
)

var (
	rankStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	scoreStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	idStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	previewStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type searchCommander struct {
	query      string
	collection string
	topK       int
	threshold  float64
	asJSON     bool

	knowledgeURL string
	apiKey       string

	debug  bool
	logger *slog.Logger
}

const searchLongDesc string = `Search the knowledge base.

Runs a vector similarity search against the configured knowledge base and
prints the most relevant documents. top_k is clamped to 1-20 and
score_threshold to 0.0-1.0.

Use --json to print the raw result envelope for piping into other tools.

Example:
  stacks search "how to configure logging"
  stacks search "error handling patterns" --collection runbooks
  stacks search "connection pools" --top 10 --threshold 0.5
  stacks search "deploy checklist" --json | jq '.results[0]'`

const searchShortDesc string = "Search the knowledge base"

func NewSearchCmd() *cobra.Command {
	cmder := &searchCommander{}

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: searchShortDesc,
		Long:  searchLongDesc,
		Args:  cobra.ExactArgs(1),
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
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.query = args[0]

			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run()
		},
	}

	cmd.Flags().StringVarP(&cmder.collection, "collection", "c", knowledge.DefaultCollection, "Collection to search")
	cmd.Flags().IntVarP(&cmder.topK, "top", "n", knowledge.DefaultTopK, "Number of results to return (clamped to 1-20)")
	cmd.Flags().Float64VarP(&cmder.threshold, "threshold", "t", knowledge.DefaultScoreThreshold, "Minimum similarity score (clamped to 0.0-1.0)")
	cmd.Flags().BoolVar(&cmder.asJSON, "json", false, "Print the raw result envelope as JSON")
	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagKnowledgeURL, &cmder.knowledgeURL)
	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagAPIKey, &cmder.apiKey)

	return cmd
}

func (c *searchCommander) run() error {
	// Logs go to stderr so styled results stay pipeable on stdout.
	c.logger = logger.New(logger.WithDebug(c.debug), logger.WithPretty(true), logger.WithWriter(os.Stderr))

	client, err := knowledge.NewClient(knowledge.Config{
		URL:    c.knowledgeURL,
		APIKey: c.apiKey,
	}, c.logger)
	if err != nil {
		return fmt.Errorf("creating knowledge client: %w", err)
	}

	// Ctrl+C cancels in-flight retries instead of waiting out the schedule.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	search := func() knowledge.SearchEnvelope {
		return client.Search(ctx, knowledge.SearchRequest{
			Query:          c.query,
			Collection:     c.collection,
			TopK:           c.topK,
			ScoreThreshold: c.threshold,
		})
	}

	if c.asJSON {
		return printJSON(search())
	}

	// Retries can take a while; show progress on stderr.
	var envelope knowledge.SearchEnvelope
	err = cliui.Step(os.Stderr, fmt.Sprintf("Searching %q", c.query), func() error {
		envelope = search()
		if !envelope.Success {
			return errors.New(envelope.Error)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("search failed: %s", envelope.Error)
	}

	if envelope.Count == nil || *envelope.Count == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Printf("\n%s %s  %s\n\n",
		headerStyle.Render("Search results for:"),
		idStyle.Render(fmt.Sprintf("%q", envelope.Query)),
		dimStyle.Render(fmt.Sprintf("(%d in %s)", *envelope.Count, envelope.Collection)),
	)

	for i, result := range *envelope.Results {
		printResult(i+1, result)
	}

	return nil
}

// printResult renders one search hit. Documents are free-form JSON, so the
// well-known fields are pulled out when present and the rest is shown raw.
func printResult(rank int, raw json.RawMessage) {
	var doc struct {
		ID      string   `json:"id"`
		Score   *float64 `json:"score"`
		Text    string   `json:"text"`
		Content string   `json:"content"`
	}

	if err := json.Unmarshal(raw, &doc); err != nil {
		fmt.Printf("  %s  %s\n\n",
			rankStyle.Render(fmt.Sprintf("#%d", rank)),
			dimStyle.Render(preview(string(raw))),
		)
		return
	}

	line := "  " + rankStyle.Render(fmt.Sprintf("#%d", rank))
	if doc.Score != nil {
		line += "  " + scoreStyle.Render(fmt.Sprintf("score: %.4f", *doc.Score))
	}
	if doc.ID != "" {
		line += "  " + idStyle.Render(doc.ID)
	}
	fmt.Println(line)

	text := doc.Text
	if text == "" {
		text = doc.Content
	}
	if text == "" {
		fmt.Printf("  %s\n\n", dimStyle.Render("(no text content)"))
		return
	}

	fmt.Printf("  %s\n\n", previewStyle.Render(preview(text)))
}

func preview(text string) string {
	return utils.Truncate(strings.ReplaceAll(text, "\n", " "), 77)
}

func printJSON(envelope any) error {
	out, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding envelope: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
