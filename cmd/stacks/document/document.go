// Package documentcmder provides the document command for fetching a single
// document from the knowledge base.
package documentcmder

import (
	"bytes"
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

type documentCommander struct {
	documentID string
	collection string
	asJSON     bool

	knowledgeURL string
	apiKey       string

	debug  bool
	logger *slog.Logger
}

const documentLongDesc string = `Fetch a document from the knowledge base by ID.

Documents with markdown content are rendered for the terminal; anything else
is printed as indented JSON. Use --json to print the raw result envelope
instead.

Example:
  stacks document runbook-042
  stacks document "release notes 1.2" --collection releases
  stacks document runbook-042 --json | jq '.document'`

const documentShortDesc string = "Fetch a document from the knowledge base"

func NewDocumentCmd() *cobra.Command {
	cmder := &documentCommander{}

	cmd := &cobra.Command{
		Use:   "document <id>",
		Short: documentShortDesc,
		Long:  documentLongDesc,
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
			cmder.documentID = args[0]

			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run()
		},
	}

	cmd.Flags().StringVarP(&cmder.collection, "collection", "c", knowledge.DefaultCollection, "Collection holding the document")
	cmd.Flags().BoolVar(&cmder.asJSON, "json", false, "Print the raw result envelope as JSON")
	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagKnowledgeURL, &cmder.knowledgeURL)
	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagAPIKey, &cmder.apiKey)

	return cmd
}

func (c *documentCommander) run() error {
	// Logs go to stderr so rendered output stays pipeable on stdout.
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

	envelope := client.GetDocument(ctx, knowledge.DocumentRequest{
		DocumentID: c.documentID,
		Collection: c.collection,
	})

	if c.asJSON {
		return printJSON(envelope)
	}

	if !envelope.Success {
		return fmt.Errorf("document fetch failed: %s", envelope.Error)
	}

	fmt.Printf("\n%s %s  %s\n\n",
		cliui.HeaderStyle.Render("Document:"),
		cliui.HashStyle.Render(c.documentID),
		cliui.DimStyle.Render(fmt.Sprintf("(collection %s)", c.collection)),
	)

	return c.printDocument(envelope.Document)
}

// printDocument renders the document body. Markdown-ish text content goes
// through glamour; documents without a text field are shown as indented JSON.
func (c *documentCommander) printDocument(raw json.RawMessage) error {
	var doc struct {
		Content string `json:"content"`
		Text    string `json:"text"`
	}

	if err := json.Unmarshal(raw, &doc); err == nil {
		text := doc.Content
		if text == "" {
			text = doc.Text
		}
		if text != "" {
			rendered, err := cliui.RenderMarkdown(text)
			if err != nil {
				c.logger.Debug("markdown render failed, printing raw text", "error", err)
			}
			fmt.Print(rendered)
			return nil
		}
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		fmt.Println(string(raw))
		return nil
	}
	fmt.Println(buf.String())

	return nil
}

func printJSON(envelope any) error {
	out, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding envelope: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
