package cmd

import (
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "council",
	Short: "Multi-model consensus builder for small web apps",
	Long: `Council coordinates multiple LLMs through a fixed plan, code and verify
pipeline. One model proposes an approach, another reviews it, the plan is
executed step by step, and every participating model checks the result
before the session is marked complete.

Available commands:
  run      - Run a consensus session for a task and write the generated files
  serve    - Start the HTTP/websocket server backing the web UI
  models   - List the models available on the configured endpoint
  ping     - Check whether a single model is reachable
  version  - Print version information

A quick start: council run "Create a countdown timer"`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(pingCmd)
}
