package policy

import (
	"fmt"
	"math"

	"github.com/gokaycavdar/go-riskguard/pkg/models"
)

// TransactionSurcharge adds Points when a transaction amount is strictly
// greater than Threshold. Amounts are unit-agnostic.
type TransactionSurcharge struct {
	Threshold float64 `mapstructure:"transaction_threshold"`
	Points    int     `mapstructure:"transaction_points"`
}

func DefaultSurcharge() TransactionSurcharge {
	return TransactionSurcharge{Threshold: 50000, Points: 25}
}

// Apply returns the surcharge factor for amount, or false when none applies.
// A nil, NaN or infinite amount never applies.
func (s TransactionSurcharge) Apply(amount *float64) (models.RiskFactor, bool) {
	if amount == nil || math.IsNaN(*amount) || math.IsInf(*amount, 0) {
		return models.RiskFactor{}, false
	}
	if *amount <= s.Threshold || s.Points <= 0 {
		return models.RiskFactor{}, false
	}

	return models.RiskFactor{
		Name:        "High Transaction Amount",
		Description: fmt.Sprintf("Transaction amount ($%s) exceeds threshold", formatAmount(*amount)),
		Severity:    models.SeverityMedium,
		Weight:      s.Points,
	}, true
}

// formatAmount prints whole amounts without decimals and others with two.
func formatAmount(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}
