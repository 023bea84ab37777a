package entity

import (
	"github.com/shopspring/decimal"
)

// MoneyScale is the number of decimal places stored for every amount.
const MoneyScale = 2

// MaxItemQuantity bounds the quantity of a single cart or order line.
const MaxItemQuantity = 10000

// MaxMoneyAmount is the largest amount a numeric(12,2) column holds.
var MaxMoneyAmount = decimal.RequireFromString("9999999999.99")

// HasMoneyScale reports whether amount has at most MoneyScale decimal places.
func HasMoneyScale(amount decimal.Decimal) bool {
	return amount.Equal(amount.Truncate(MoneyScale))
}

// FitsMoneyRange reports whether amount can be stored without overflow.
func FitsMoneyRange(amount decimal.Decimal) bool {
	return amount.Abs().LessThanOrEqual(MaxMoneyAmount)
}

// IsStorableMoney reports whether amount is stored exactly as given.
func IsStorableMoney(amount decimal.Decimal) bool {
	return HasMoneyScale(amount) && FitsMoneyRange(amount)
}

// IsValidQuantity reports whether qty is an allowed line quantity.
func IsValidQuantity(qty int) bool {
	return qty >= 1 && qty <= MaxItemQuantity
}
