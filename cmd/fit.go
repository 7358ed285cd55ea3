package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

var fitAbsolute bool

var fitCmd = &cobra.Command{
	Use:   "fit",
	Short: "Maximize the likelihood of the template hypothesis",
	Long: `Fit the weights of the truth templates given in the analysis file by
maximizing the systematics-collapsed likelihood of the data. With --absolute
the unconstrained per-bin maximum is computed instead.`,
	RunE: runFit,
}

func init() {
	rootCmd.AddCommand(fitCmd)
	fitCmd.Flags().BoolVar(&fitAbsolute, "absolute", false, "fit every efficient truth bin freely")
}

func runFit(cmd *cobra.Command, args []string) error {
	analysis, err := LoadAnalysis(configPath)
	if err != nil {
		return err
	}
	m, err := analysis.Machine()
	if err != nil {
		return err
	}
	syst, err := analysis.SystematicsMode()
	if err != nil {
		return err
	}
	cfg, err := analysis.OptimizerConfig()
	if err != nil {
		return err
	}
	if verbose {
		cfg.Logger = slog.Default()
	}

	out := cmd.OutOrStdout()
	if fitAbsolute {
		res, err := m.AbsoluteMaxLogLikelihood(syst, cfg)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "absolute max log likelihood: %g (%d evaluations)\n", res.LogLikelihood, res.Evaluations)
		fmt.Fprintf(out, "truth expectation: %v\n", res.Parameters)
		return nil
	}

	hyp, err := analysis.Hypothesis()
	if err != nil {
		return err
	}
	res, err := m.MaxLogLikelihood(hyp, syst, cfg)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "max log likelihood: %g (%d evaluations)\n", res.LogLikelihood, res.Evaluations)
	for i, v := range res.Parameters {
		name := fmt.Sprintf("template %d", i)
		if i < len(hyp.ParameterNames) && hyp.ParameterNames[i] != "" {
			name = hyp.ParameterNames[i]
		}
		fmt.Fprintf(out, "  %s: %g\n", name, v)
	}
	if res.SystIndex != nil {
		fmt.Fprintf(out, "best systematic instance: %v\n", res.SystIndex)
	}
	return nil
}
