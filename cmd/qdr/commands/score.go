package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aristath/qdr/internal/modules/optimization"
)

// scoreCmd represents the score command
var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score a given set of portfolio weights",
	Long: `Computes annualized volatility, expected return and Sharpe ratio of
an arbitrary weight mapping over the selected history window.

Example:
  qdr score --weights AAPL=0.5,MSFT=0.3,BTC-USD=0.2 --period 1y`,
	RunE: runScore,
}

var (
	// Score flags
	scoreWeights []string
	scorePeriod  string
)

func init() {
	rootCmd.AddCommand(scoreCmd)

	scoreCmd.Flags().StringSliceVarP(&scoreWeights, "weights", "w", nil, "SYMBOL=weight pairs")
	scoreCmd.Flags().StringVarP(&scorePeriod, "period", "p", "1y", "history window (1mo, 3mo, 6mo, 1y, 2y, 5y)")
	_ = scoreCmd.MarkFlagRequired("weights")
}

func runScore(cmd *cobra.Command, args []string) error {
	weights, err := parseWeights(scoreWeights)
	if err != nil {
		return err
	}

	_, container, _, err := bootstrap()
	if err != nil {
		return err
	}
	defer container.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	dataset, err := container.MarketDataService.LoadSeries(ctx, weights.Assets(), scorePeriod)
	if err != nil {
		return fmt.Errorf("failed to load price history: %w", err)
	}

	// Weights for tickers that could not be loaded are not scored
	scored := make(optimization.PortfolioWeights, len(weights))
	for _, asset := range dataset.Series.Assets() {
		scored[asset] = weights[asset]
	}

	metrics, err := container.Optimizer.Score(dataset.Series, scored, 0)
	if err != nil {
		return fmt.Errorf("scoring failed: %w", err)
	}

	w := os.Stdout
	printHeader(w, "Portfolio Score")
	printAllocation(w, scored, nil)
	printRule(w)
	printMetrics(w, metrics)
	if len(dataset.Missing) > 0 {
		fmt.Fprintf(w, "  Missing   : %v\n", dataset.Missing)
	}
	printFooter(w)

	return nil
}
