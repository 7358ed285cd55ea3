package cmd

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/spf13/cobra"

	"github.com/ast0815/likelihood-machine/core/likelihood"
	"github.com/ast0815/likelihood-machine/core/tensor"
)

var (
	pvalueTrials int
	pvalueMax    bool
)

var pvalueCmd = &cobra.Command{
	Use:   "pvalue",
	Short: "Estimate a Monte Carlo likelihood p-value",
	Long: `Estimate the probability of measuring data as unlikely as, or more
unlikely than, the actual data. By default the truth vector of the analysis
file is tested directly; with --max the best fit of the template hypothesis
is tested via the (much costlier) maximum-likelihood p-value.`,
	RunE: runPValue,
}

func init() {
	rootCmd.AddCommand(pvalueCmd)
	pvalueCmd.Flags().IntVarP(&pvalueTrials, "trials", "n", 0, "number of Monte Carlo trials (0 uses the analysis file or built-in default)")
	pvalueCmd.Flags().BoolVar(&pvalueMax, "max", false, "test the template hypothesis' best fit instead of a fixed truth vector")
}

func runPValue(cmd *cobra.Command, args []string) error {
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
	optCfg, err := analysis.OptimizerConfig()
	if err != nil {
		return err
	}
	if verbose {
		optCfg.Logger = slog.Default()
	}

	cfg := likelihood.PValueConfig{
		N:         analysis.PValue.N,
		Seed:      analysis.PValue.Seed,
		Optimizer: optCfg,
	}
	if pvalueTrials > 0 {
		cfg.N = pvalueTrials
	}

	var p float64
	switch {
	case pvalueMax:
		hyp, err := analysis.Hypothesis()
		if err != nil {
			return err
		}
		slog.Info("estimating maximum-likelihood p-value", "trials", cfg.N)
		p, err = m.MaxLikelihoodPValue(hyp, nil, syst, cfg)
		if err != nil {
			return err
		}
	default:
		if len(analysis.Truth) == 0 {
			return fmt.Errorf("analysis file defines no truth vector")
		}
		slog.Info("estimating likelihood p-value", "trials", cfg.N)
		p, err = m.LikelihoodPValue(tensor.Vector(analysis.Truth), syst, cfg)
		if err != nil {
			return err
		}
	}

	n := cfg.N
	if n <= 0 {
		if pvalueMax {
			n = 250
		} else {
			n = 2500
		}
	}
	sigma := math.Sqrt(p * (1 - p) / float64(n))
	fmt.Fprintf(cmd.OutOrStdout(), "p-value: %g (binomial uncertainty %.2g)\n", p, sigma)
	return nil
}
