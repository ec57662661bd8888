package main

import (
	"fmt"

	"github.com/aretw0/weft/internal/cli"
	"github.com/aretw0/weft/pkg/domain"
	"github.com/spf13/cobra"
)

var hashCmd = &cobra.Command{
	Use:   "hash <graph|definition.json>...",
	Short: "Print the content hash of compiled graphs",
	Args:  cobra.MinimumNArgs(1),
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

		for _, path := range args {
			def, err := cli.LoadDefinition(cmd.Context(), eng, path)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", domain.FormatHash(def.Hash), path)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(hashCmd)
}
