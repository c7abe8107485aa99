package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alantheprice/council/pkg/config"
)

// modelsCmd represents the models command
var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the models available on the configured endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Get()
		if err != nil {
			return err
		}
		invoker := resolveClient(cfg, true)

		raw, err := invoker.ListModels(cmd.Context(), "")
		if err != nil {
			return err
		}

		var catalog struct {
			Data []struct {
				ID   string `json:"id"`
				Name string `json:"name"`
			} `json:"data"`
		}
		if err := json.Unmarshal(raw, &catalog); err != nil || len(catalog.Data) == 0 {
			// Unknown catalog shape, show what the endpoint returned.
			fmt.Println(string(raw))
			return nil
		}

		for _, model := range catalog.Data {
			if model.Name != "" {
				fmt.Printf("%-48s %s\n", model.ID, model.Name)
			} else {
				fmt.Println(model.ID)
			}
		}
		fmt.Printf("\n%d models available on %s\n", len(catalog.Data), cfg.BaseURL)
		return nil
	},
}
