package domain

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// MinorUnits is the number of fractional digits amounts may carry.
const MinorUnits = 2

// MaxBalance is the largest balance the account store can hold (NUMERIC(19,2)).
var MaxBalance = decimal.RequireFromString("99999999999999999.99")

var (
	ErrNonPositiveAmount      = errors.New("amount must be greater than zero")
	ErrAmountPrecision        = errors.New("amount has more than 2 decimal places")
	ErrAmountTooLarge         = errors.New("amount exceeds the maximum balance")
	ErrBalanceLimit           = errors.New("balance would exceed the maximum balance")
	ErrUnknownTransactionType = errors.New("unknown transaction type")
	ErrUnknownAccountType     = errors.New("unknown account type")
)

// ValidateAmount checks that amount is strictly positive and expressible in minor units.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrNonPositiveAmount
	}
	if !amount.Equal(amount.Truncate(MinorUnits)) {
		return ErrAmountPrecision
	}
	if amount.GreaterThan(MaxBalance) {
		return ErrAmountTooLarge
	}
	return nil
}

// SameCurrency compares ISO currency codes ignoring case.
func SameCurrency(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
