// Package stdiocmder provides the stdio MCP server cobra command.
package stdiocmder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	apimcp "github.com/papercomputeco/stacks/api/mcp"
	"github.com/papercomputeco/stacks/pkg/config"
	"github.com/papercomputeco/stacks/pkg/knowledge"
	"github.com/papercomputeco/stacks/pkg/logger"
)

type stdioCommander struct {
	knowledgeURL string
	apiKey       string
	debug        bool
	logger       *slog.Logger
}

const stdioLongDesc string = `Run the MCP server on stdin/stdout.

Intended for agents that launch MCP servers as subprocesses. Stdout carries
the protocol, so all logging goes to stderr.

Example Claude Desktop entry:
  {"mcpServers": {"stacks": {"command": "stacks", "args": ["serve", "stdio"]}}}`

const stdioShortDesc string = "Run the MCP server on stdin/stdout"

func NewStdioCmd() *cobra.Command {
	cmder := &stdioCommander{}

	cmd := &cobra.Command{
		Use:   "stdio",
		Short: stdioShortDesc,
		Long:  stdioLongDesc,
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

	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagKnowledgeURL, &cmder.knowledgeURL)
	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagAPIKey, &cmder.apiKey)

	return cmd
}

func (c *stdioCommander) run() error {
	// Stdout carries the MCP protocol; logs go to stderr.
	c.logger = logger.New(logger.WithDebug(c.debug), logger.WithWriter(os.Stderr))

	client, err := knowledge.NewClient(knowledge.Config{
		URL:    c.knowledgeURL,
		APIKey: c.apiKey,
	}, c.logger)
	if err != nil {
		return fmt.Errorf("creating knowledge client: %w", err)
	}

	server, err := apimcp.NewServer(apimcp.Config{
		Knowledge: client,
		Logger:    c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c.logger.Info("starting MCP server on stdio",
		"knowledge_url", c.knowledgeURL,
	)

	return server.ServeStdio(ctx)
}
