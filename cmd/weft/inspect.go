package main

import (
	"encoding/json"
	"fmt"

	"github.com/aretw0/weft/internal/cli"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <graph|definition.json>",
	Short: "Show the node, port and variable tables of a compiled graph",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		eng, err := cli.NewEngine(cfg, logger, nil)
		if err != nil {
			return err
		}
		defer eng.Close()

		def, err := cli.LoadDefinition(cmd.Context(), eng, args[0])
		if err != nil {
			return err
		}
		desc := cli.Describe(def)

		format, _ := cmd.Flags().GetString("output")
		switch format {
		case "yaml":
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(desc)
		case "json":
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(desc)
		}
		return fmt.Errorf("unknown output format %q (want yaml or json)", format)
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().StringP("output", "o", "yaml", "Output format (yaml, json)")
}
