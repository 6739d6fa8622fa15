// Package configcmder provides the config command for managing persistent
// stacks configuration stored in the .stacks/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent stacks configuration.

Configuration is stored as config.toml in the .stacks/ directory and provides
default values for command flags. CLI flags and environment variables always
take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  knowledge.url, knowledge.api_key,
  api.listen, api.log_file,
  events.brokers, events.topic

Use subcommands to get, set, or list configuration values:
  stacks config set <key> <value>    Set a configuration value
  stacks config get <key>            Get a configuration value
  stacks config list                 List all configuration values

Examples:
  stacks config set knowledge.url https://kb.internal:8443
  stacks config set events.brokers kafka-1:9092,kafka-2:9092
  stacks config get knowledge.url
  stacks config list`

const configShortDesc string = "Manage persistent stacks configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
