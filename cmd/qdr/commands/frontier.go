package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aristath/qdr/internal/modules/optimization"
)

// frontierCmd represents the frontier command
var frontierCmd = &cobra.Command{
	Use:   "frontier",
	Short: "Sample random portfolios to sketch the efficient frontier",
	Long: `Scores random long-only portfolios and reports the best Sharpe and
lowest volatility samples.

Example:
  qdr frontier --tickers AAPL,MSFT,GOOGL --samples 500 --seed 1`,
	RunE: runFrontier,
}

var (
	// Frontier flags
	frontierTickers []string
	frontierPeriod  string
	frontierSamples int
	frontierSeed    uint64
)

func init() {
	rootCmd.AddCommand(frontierCmd)

	frontierCmd.Flags().StringSliceVarP(&frontierTickers, "tickers", "t", []string{"AAPL", "MSFT", "GOOGL", "AMZN", "BTC-USD"}, "comma separated ticker symbols")
	frontierCmd.Flags().StringVarP(&frontierPeriod, "period", "p", "1y", "history window (1mo, 3mo, 6mo, 1y, 2y, 5y)")
	frontierCmd.Flags().IntVarP(&frontierSamples, "samples", "n", optimization.DefaultFrontierSamples, "number of random portfolios")
	frontierCmd.Flags().Uint64Var(&frontierSeed, "seed", 0, "seed for reproducible sampling (unset = random)")
}

func runFrontier(cmd *cobra.Command, args []string) error {
	_, container, _, err := bootstrap()
	if err != nil {
		return err
	}
	defer container.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	dataset, err := container.MarketDataService.LoadSeries(ctx, frontierTickers, frontierPeriod)
	if err != nil {
		return fmt.Errorf("failed to load price history: %w", err)
	}

	stats, err := container.Optimizer.Statistics(dataset.Series)
	if err != nil {
		return err
	}

	var seed *uint64
	if cmd.Flags().Changed("seed") {
		s := frontierSeed
		seed = &s
	}

	frontier, err := optimization.RandomFrontier(stats, frontierSamples, seed, container.Optimizer.Settings().AnnualizationFactor)
	if err != nil {
		return err
	}

	w := os.Stdout
	printHeader(w, "Random Portfolio Frontier")
	fmt.Fprintf(w, "  Samples   : %d\n", len(frontier.Points))
	fmt.Fprintf(w, "  Seed      : %d\n", frontier.Seed)
	printRule(w)

	best := frontier.Points[frontier.MaxSharpe]
	fmt.Fprintln(w, "  Max Sharpe")
	printAllocation(w, best.Weights, nil)
	printMetrics(w, best.PortfolioMetrics)
	printRule(w)

	safest := frontier.Points[frontier.MinVolatility]
	fmt.Fprintln(w, "  Min Volatility")
	printAllocation(w, safest.Weights, nil)
	printMetrics(w, safest.PortfolioMetrics)
	printFooter(w)

	return nil
}
