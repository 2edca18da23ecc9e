package shared

import "github.com/shopspring/decimal"

// AmountScale is the number of decimal places stored for every monetary
// column (DECIMAL(18,4)). Amounts with more places are rejected rather than
// rounded, so a balance and its ledger entries always round the same way.
const AmountScale = 4

// WithinAmountScale reports whether d has no significant digits beyond
// AmountScale. Trailing zeros such as 1.50000 are accepted.
func WithinAmountScale(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(AmountScale))
}
