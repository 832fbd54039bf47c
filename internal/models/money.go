package models

import "github.com/shopspring/decimal"

// MoneyScale matches the NUMERIC(18, 2) money columns.
const MoneyScale = 2

// ValidAmount reports whether d is a positive amount the ledger can store
// exactly. Sub-cent amounts are rejected rather than rounded.
func ValidAmount(d decimal.Decimal) bool {
	return d.IsPositive() && d.Equal(d.Round(MoneyScale))
}
