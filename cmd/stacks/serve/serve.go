// Package servecmder provides the serve command with subcommands for running services.
package servecmder

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/stacks/api"
	stdiocmder "github.com/papercomputeco/stacks/cmd/stacks/serve/stdio"
	"github.com/papercomputeco/stacks/pkg/config"
	"github.com/papercomputeco/stacks/pkg/eventstream"
	"github.com/papercomputeco/stacks/pkg/eventstream/kafka"
	"github.com/papercomputeco/stacks/pkg/eventstream/nop"
	"github.com/papercomputeco/stacks/pkg/knowledge"
	"github.com/papercomputeco/stacks/pkg/logger"
)

type ServeCommander struct {
	listen        string
	logFile       string
	knowledgeURL  string
	apiKey        string
	eventsBrokers string
	eventsTopic   string
	debug         bool
	logger        *slog.Logger
}

const serveLongDesc string = `Run the stacks server.

Serves the knowledge base REST API and mounts the MCP endpoint at /mcp so
agents and HTTP clients share one port. Use the stdio subcommand for agents
that speak MCP over stdin/stdout:
  stacks serve          Run the HTTP API and MCP server
  stacks serve stdio    Run the MCP server on stdin/stdout`

const serveShortDesc string = "Run the stacks server"

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, config.DefaultFlags, []string{
				config.FlagListen,
				config.FlagLogFile,
				config.FlagKnowledgeURL,
				config.FlagAPIKey,
				config.FlagEventsBrokers,
				config.FlagEventsTopic,
			})

			cmder.listen = v.GetString("api.listen")
			cmder.logFile = v.GetString("api.log_file")
			cmder.knowledgeURL = v.GetString("knowledge.url")
			cmder.eventsBrokers = v.GetString("events.brokers")
			cmder.eventsTopic = v.GetString("events.topic")

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

	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagListen, &cmder.listen)
	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagLogFile, &cmder.logFile)
	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagKnowledgeURL, &cmder.knowledgeURL)
	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagAPIKey, &cmder.apiKey)
	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagEventsBrokers, &cmder.eventsBrokers)
	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagEventsTopic, &cmder.eventsTopic)

	cmd.AddCommand(stdiocmder.NewStdioCmd())

	return cmd
}

func (c *ServeCommander) run() error {
	closeLogs, err := c.initLogger()
	if err != nil {
		return err
	}
	defer closeLogs()

	events, err := c.newPublisher()
	if err != nil {
		return err
	}
	defer events.Close()

	client, err := knowledge.NewClient(knowledge.Config{
		URL:    c.knowledgeURL,
		APIKey: c.apiKey,
		Events: events,
	}, c.logger)
	if err != nil {
		return fmt.Errorf("creating knowledge client: %w", err)
	}

	server, err := api.NewServer(api.Config{ListenAddr: c.listen}, client, c.logger)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	c.logger.Info("starting stacks server",
		"listen", c.listen,
		"knowledge_url", c.knowledgeURL,
	)

	// Channel to capture errors from the server goroutine
	errChan := make(chan error, 1)

	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	// Wait for interrupt signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", "signal", sig.String())
		return server.Shutdown()
	}
}

// initLogger sets up the service logger. Without a log file that is a JSON
// handler on stdout. With one, the terminal gets pretty output and the file
// gets the JSON records.
func (c *ServeCommander) initLogger() (func(), error) {
	if c.logFile == "" {
		c.logger = logger.New(logger.WithDebug(c.debug), logger.WithJSON(true))
		return func() {}, nil
	}

	f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	c.logger = logger.Multi(
		logger.New(logger.WithDebug(c.debug), logger.WithPretty(true)),
		logger.New(logger.WithDebug(c.debug), logger.WithJSON(true), logger.WithWriter(f)),
	)

	return func() { _ = f.Close() }, nil
}

func (c *ServeCommander) newPublisher() (eventstream.Publisher, error) {
	brokers := config.BrokerList(c.eventsBrokers)
	if len(brokers) == 0 {
		c.logger.Debug("operation event publishing disabled")
		return nop.NewPublisher(), nil
	}

	pub, err := kafka.NewPublisher(kafka.Config{
		Brokers: brokers,
		Topic:   c.eventsTopic,
	}, c.logger)
	if err != nil {
		return nil, fmt.Errorf("creating kafka publisher: %w", err)
	}

	c.logger.Info("publishing operation events",
		"brokers", brokers,
		"topic", c.eventsTopic,
	)

	return pub, nil
}
