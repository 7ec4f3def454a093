package main

import (
	"fmt"
	"os"

	// Register completion providers for the generate command.
	_ "scenarioflow/internal/llm/claude"
	_ "scenarioflow/internal/llm/gemini"
	_ "scenarioflow/internal/llm/openai"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
