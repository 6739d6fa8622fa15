package main

import (
	"fmt"
	"os"

	servecmder "github.com/papercomputeco/stacks/cmd/stacks/serve"
)

func main() {
	cmd := servecmder.NewServeCmd()

	cmd.Use = "stacksapi"
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .stacks/ config directory")

	err := cmd.Execute()
	if err != nil {
		fmt.Printf("Error executing root command: %v\n", err)
		os.Exit(1)
	}
}
