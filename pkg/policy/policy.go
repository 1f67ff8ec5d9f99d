// Package policy holds the band table that turns an accumulated risk score
// into a level and gate flags, and the transaction surcharge layered on top.
package policy

import (
	"fmt"

	"github.com/gokaycavdar/go-riskguard/pkg/apperr"
	"github.com/gokaycavdar/go-riskguard/pkg/models"
)

// MaxScore is the upper bound of a reported score.
const MaxScore = 100

// Bands are the lower bounds (inclusive) of the MEDIUM, HIGH and CRITICAL levels.
type Bands struct {
	Critical int `mapstructure:"critical"`
	High     int `mapstructure:"high"`
	Medium   int `mapstructure:"medium"`
}

// DefaultBands is the canonical table: CRITICAL >= 50, HIGH >= 35, MEDIUM >= 20.
func DefaultBands() Bands {
	return Bands{Critical: 50, High: 35, Medium: 20}
}

// Validate requires 0 < Medium < High < Critical.
func (b Bands) Validate() error {
	if b.Medium <= 0 || b.Medium >= b.High || b.High >= b.Critical {
		return apperr.InvalidInput("invalid band table", nil).
			WithDetails(fmt.Sprintf("want 0 < medium(%d) < high(%d) < critical(%d)", b.Medium, b.High, b.Critical))
	}
	return nil
}

// Verdict is what the band table forces for a score.
type Verdict struct {
	Level      models.RiskLevel
	RequireMFA bool
	Block      bool
}

// Classify maps an unclamped score onto a level. CRITICAL blocks, HIGH
// requires MFA, MEDIUM requires MFA only for LOW tolerance. The returned
// flags are meant to be ORed with the ones raised by rules.
func (b Bands) Classify(raw int, tol models.RiskTolerance) Verdict {
	switch {
	case raw >= b.Critical:
		return Verdict{Level: models.RiskCritical, Block: true}
	case raw >= b.High:
		return Verdict{Level: models.RiskHigh, RequireMFA: true}
	case raw >= b.Medium:
		return Verdict{Level: models.RiskMedium, RequireMFA: tol == models.ToleranceLow}
	}
	return Verdict{Level: models.RiskLow}
}

// Clamp bounds a score to [0,100].
func Clamp(score int) int {
	return max(0, min(score, MaxScore))
}
