package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"

	"github.com/ast0815/likelihood-machine/core/tensor"
)

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Evaluate the log likelihood of a truth vector",
	Long: `Evaluate the log likelihood of the truth-expectation vector given in
the analysis file, after efficiency reduction and systematics collapse.`,
	RunE: runEval,
}

func init() {
	rootCmd.AddCommand(evalCmd)
}

func runEval(cmd *cobra.Command, args []string) error {
	analysis, err := LoadAnalysis(configPath)
	if err != nil {
		return err
	}
	if len(analysis.Truth) == 0 {
		return fmt.Errorf("analysis file defines no truth vector")
	}
	m, err := analysis.Machine()
	if err != nil {
		return err
	}
	syst, err := analysis.SystematicsMode()
	if err != nil {
		return err
	}

	ll, err := m.LogLikelihood(tensor.Vector(analysis.Truth), syst)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "efficient truth bins: %d\n", m.NumEfficientBins())
	if m.NumToys() > 1 {
		fmt.Fprintf(cmd.OutOrStdout(), "systematic instances: %d (%s)\n", m.NumToys(), syst)
	}
	if ll.IsScalar() {
		fmt.Fprintf(cmd.OutOrStdout(), "log likelihood: %g\n", ll.ScalarValue())
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "log likelihood per instance: %v\n", ll.Data)
		fmt.Fprintf(cmd.OutOrStdout(), "instance mean: %g, stddev: %g\n",
			stat.Mean(ll.Data, nil), stat.StdDev(ll.Data, nil))
	}
	return nil
}
