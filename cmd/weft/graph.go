package main

import (
	"fmt"

	"github.com/aretw0/weft/internal/cli"
	"github.com/aretw0/weft/internal/presentation/graph"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph <graph|definition.json>",
	Short: "Export the graph visualization",
	Long:  `Compiles the graph and outputs a Mermaid diagram (graph TD) of its nodes, triggers and data flow.`,
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
		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(def, nil))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
