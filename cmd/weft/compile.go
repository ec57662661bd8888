package main

import (
	"fmt"
	"os"

	"github.com/aretw0/weft/internal/cli"
	"github.com/aretw0/weft/pkg/domain"
	"github.com/spf13/cobra"
)

var compileCmd = &cobra.Command{
	Use:   "compile <graph>",
	Short: "Compile a graph into a definition",
	Long: `Compiles an authoring graph and writes the definition as JSON to the output
file (or stdout). With --save the definition is also stored under the graph name
in the configured store; it is only rewritten when its content hash changed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		if fold, _ := cmd.Flags().GetBool("fold"); fold {
			cfg.Compiler.ConstantFolding = true
		}
		eng, err := cli.NewEngine(cfg, logger, nil)
		if err != nil {
			return err
		}
		defer eng.Close()

		res, err := cli.Compile(cmd.Context(), eng, args[0])
		cli.PrintDiagnostics(res)
		if err != nil {
			return err
		}
		def := res.Definition

		if save, _ := cmd.Flags().GetBool("save"); save {
			if err := eng.Store().Save(cmd.Context(), cli.GraphKey(args[0]), def); err != nil {
				return err
			}
		}

		data, err := domain.MarshalDefinition(def)
		if err != nil {
			return err
		}
		out, _ := cmd.Flags().GetString("output")
		if out == "" || out == "-" {
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		}
		if err := os.WriteFile(out, data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", out, err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "compiled %s (%d nodes, hash %s) to %s\n",
			def.Name, def.NodeCount(), domain.FormatHash(def.Hash), out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(compileCmd)
	compileCmd.Flags().StringP("output", "o", "", "Output file for the compiled definition (default stdout)")
	compileCmd.Flags().Bool("fold", false, "Fold constant data sub-graphs")
	compileCmd.Flags().Bool("save", false, "Save the definition in the configured store")
}
