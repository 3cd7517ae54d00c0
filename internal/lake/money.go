package lake

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/decimal128"
	"github.com/shopspring/decimal"
)

// MoneyScale is the number of fractional digits kept for monetary values.
const MoneyScale = 4

// MoneyType is the column type of monetary values in silver and gold tables.
var MoneyType = &arrow.Decimal128Type{Precision: 38, Scale: MoneyScale}

// ToMoney converts d to a MoneyType value, rounding half away from zero to
// MoneyScale places.
func ToMoney(d decimal.Decimal) decimal128.Num {
	return decimal128.FromBigInt(d.Round(MoneyScale).Shift(MoneyScale).BigInt())
}

// FromMoney converts a MoneyType value back to a decimal.
func FromMoney(n decimal128.Num) decimal.Decimal {
	return decimal.NewFromBigInt(n.BigInt(), -MoneyScale)
}
