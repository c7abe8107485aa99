package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alantheprice/council/pkg/config"
)

// pingCmd represents the ping command
var pingCmd = &cobra.Command{
	Use:   "ping <model>",
	Short: "Check whether a model is reachable",
	Long: `Ping sends one tiny completion to the model and reports whether it
answered. Useful before starting a session with an unfamiliar model id.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Get()
		if err != nil {
			return err
		}
		invoker := resolveClient(cfg, true)

		model := args[0]
		if err := invoker.Ping(cmd.Context(), model, ""); err != nil {
			fmt.Printf("❌ %s is unavailable: %v\n", model, err)
			return err
		}
		fmt.Printf("✅ %s is working\n", model)
		return nil
	},
	SilenceErrors: true,
}
