package rebalancing

import (
	"fmt"
	"strings"

	"github.com/aristath/qdr/internal/modules/optimization"
)

// RiskProfile names a preset risk-aversion level.
type RiskProfile string

const (
	ProfileConservative RiskProfile = "conservative"
	ProfileModerate     RiskProfile = "moderate"
	ProfileAggressive   RiskProfile = "aggressive"
)

var presets = map[RiskProfile]float64{
	ProfileConservative: 2.0,
	ProfileModerate:     1.0,
	ProfileAggressive:   0.1,
}

// RiskAversionFor returns the λ of a preset. Matching is case-insensitive.
func RiskAversionFor(profile RiskProfile) (float64, error) {
	lambda, ok := presets[RiskProfile(strings.ToLower(string(profile)))]
	if !ok {
		return 0, &optimization.InvalidInputError{
			Field:  "risk_profile",
			Reason: fmt.Sprintf("unknown profile %q, expected conservative, moderate or aggressive", profile),
		}
	}
	return lambda, nil
}
