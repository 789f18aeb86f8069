package commands

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/aristath/qdr/internal/modules/marketdata"
	"github.com/aristath/qdr/internal/modules/optimization"
)

const (
	heavyRule = "═══════════════════════════════════════════════════════════"
	lightRule = "───────────────────────────────────────────────────────────"
)

func printHeader(w io.Writer, title string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, heavyRule)
	fmt.Fprintf(w, "  %s\n", title)
	fmt.Fprintln(w, lightRule)
}

func printRule(w io.Writer) {
	fmt.Fprintln(w, lightRule)
}

func printFooter(w io.Writer) {
	fmt.Fprintln(w, heavyRule)
}

// printAllocation prints weights sorted descending, ties by symbol.
// counts is optional.
func printAllocation(w io.Writer, weights optimization.PortfolioWeights, counts map[string]int) {
	assets := weights.Assets()
	sort.SliceStable(assets, func(i, j int) bool {
		return weights[assets[i]] > weights[assets[j]]
	})

	for _, asset := range assets {
		bar := strings.Repeat("█", int(weights[asset]*40+0.5))
		if counts != nil {
			fmt.Fprintf(w, "  %-10s %6.2f%%  (%2d) %s\n", asset, weights[asset]*100, counts[asset], bar)
		} else {
			fmt.Fprintf(w, "  %-10s %6.2f%%  %s\n", asset, weights[asset]*100, bar)
		}
	}
}

func printMetrics(w io.Writer, m optimization.PortfolioMetrics) {
	fmt.Fprintf(w, "  Volatility: %6.2f%%\n", m.Volatility*100)
	fmt.Fprintf(w, "  Return    : %6.2f%%\n", m.ExpectedReturn*100)
	fmt.Fprintf(w, "  Sharpe    : %6.3f\n", m.SharpeRatio)
}

// parseWeights reads SYMBOL=weight pairs. Symbols are normalized like API input.
func parseWeights(pairs []string) (optimization.PortfolioWeights, error) {
	weights := make(optimization.PortfolioWeights, len(pairs))
	for _, pair := range pairs {
		symbol, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid weight %q: expected SYMBOL=weight", pair)
		}
		normalized := marketdata.NormalizeSymbols([]string{symbol})
		if len(normalized) == 0 {
			return nil, fmt.Errorf("invalid weight %q: empty symbol", pair)
		}
		weight, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil || weight < 0 {
			return nil, fmt.Errorf("invalid weight %q: must be a number >= 0", pair)
		}
		weights[normalized[0]] += weight
	}
	if len(weights) == 0 {
		return nil, fmt.Errorf("no weights provided")
	}
	return weights, nil
}
