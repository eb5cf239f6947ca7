package token

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
	"github.com/whiteelite/tokenforge/internal/domain/entities"
)

// ToBaseUnits converts a human amount to base units: amount * 10^decimals.
// The conversion is exact; amounts that need rounding are rejected.
func ToBaseUnits(amount decimal.Decimal, decimals entities.Decimals) (entities.BaseUnits, error) {
	if amount.IsNegative() {
		return 0, fmt.Errorf("%w: %s is negative", ErrInvalidAmount, amount)
	}
	shifted := amount.Shift(int32(decimals))
	if !shifted.IsInteger() {
		return 0, fmt.Errorf("%w: %s has more than %d fractional digits", ErrInvalidAmount, amount, decimals)
	}
	units := shifted.BigInt()
	if !units.IsUint64() {
		return 0, fmt.Errorf("%w: %s overflows u64 at %d decimals", ErrInvalidAmount, amount, decimals)
	}
	return entities.BaseUnits(units.Uint64()), nil
}

// FromBaseUnits is the inverse of ToBaseUnits.
func FromBaseUnits(units entities.BaseUnits, decimals entities.Decimals) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(uint64(units)), -int32(decimals))
}

// ParseAmount parses a human amount such as "12.5".
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	return d, nil
}
