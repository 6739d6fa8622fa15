// Package authcmder provides the auth command for storing the knowledge base
// API key.
package authcmder

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/stacks/pkg/cliui"
	"github.com/papercomputeco/stacks/pkg/credentials"
)

const authLongDesc string = `Store the knowledge base API key.

The key is stored in credentials.toml in the .stacks/ directory and sent as a
bearer token on every knowledge base request. Flags and the STACKS_KNOWLEDGE_API_KEY
or RAG_API_KEY environment variables take precedence over the stored key.

Examples:
  stacks auth                 Prompt for the API key
  echo $KEY | stacks auth     Pipe the API key from stdin
  stacks auth --show          Show where the key is stored
  stacks auth --remove        Remove the stored key`

const authShortDesc string = "Store the knowledge base API key"

func NewAuthCmd() *cobra.Command {
	var showFlag bool
	var removeFlag bool

	cmd := &cobra.Command{
		Use:   "auth",
		Short: authShortDesc,
		Long:  authLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")

			switch {
			case showFlag:
				return runShow(configDir)
			case removeFlag:
				return runRemove(configDir)
			default:
				return runAuth(cmd.InOrStdin(), configDir)
			}
		},
	}

	cmd.Flags().BoolVar(&showFlag, "show", false, "Show the stored API key (masked)")
	cmd.Flags().BoolVar(&removeFlag, "remove", false, "Remove the stored API key")

	return cmd
}

func runAuth(in io.Reader, configDir string) error {
	apiKey, err := readAPIKey(in)
	if err != nil {
		return err
	}

	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return errors.New("API key cannot be empty")
	}

	mgr, err := credentials.NewManager(configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	if err := mgr.SetAPIKey(apiKey); err != nil {
		return err
	}

	fmt.Printf("\n  %s Stored knowledge base API key %s\n\n",
		cliui.SuccessMark,
		cliui.DimStyle.Render("(sent as a bearer token)"),
	)

	return nil
}

func runShow(configDir string) error {
	mgr, err := credentials.NewManager(configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	key, err := mgr.APIKey()
	if err != nil {
		return err
	}

	if key == "" {
		fmt.Printf("\n  %s No stored API key.\n", cliui.DimStyle.Render("●"))
		fmt.Printf("  Use 'stacks auth' to store one.\n\n")
		return nil
	}

	fmt.Printf("\n  %s  %s  %s\n\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(maskKey(key)),
		cliui.DimStyle.Render(mgr.GetTarget()),
	)

	return nil
}

func runRemove(configDir string) error {
	mgr, err := credentials.NewManager(configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	if err := mgr.RemoveAPIKey(); err != nil {
		return err
	}

	fmt.Printf("\n  %s Removed stored API key.\n\n", cliui.SuccessMark)

	return nil
}

// readAPIKey reads an API key from in. Interactive terminals get a hidden
// prompt; pipes and test buffers are read line by line.
func readAPIKey(in io.Reader) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Print("Enter knowledge base API key: ")

		keyBytes, err := term.ReadPassword(int(f.Fd()))
		fmt.Println() // newline after hidden input
		if err != nil {
			return "", fmt.Errorf("reading API key: %w", err)
		}

		return string(keyBytes), nil
	}

	scanner := bufio.NewScanner(in)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}

	return "", errors.New("no input received on stdin")
}

// maskKey hides the middle of a key, leaving enough to recognize it.
func maskKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + "..." + key[len(key)-4:]
}
