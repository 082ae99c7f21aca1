package service

import (
	"parts-service/internal/apperr"

	"github.com/shopspring/decimal"
)

// moneyScale is the number of fractional digits stored for every amount column
const moneyScale = 2

// requireMoneyScale rejects amounts that would be rounded on storage.
// Trailing zeros are fine: "1.230" is accepted, "1.234" is not.
func requireMoneyScale(field string, amount decimal.Decimal) error {
	if !amount.Equal(amount.Truncate(moneyScale)) {
		return apperr.Validation("%s %s has more than %d decimal places", field, amount, moneyScale)
	}
	return nil
}
