package id

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	clierr "github.com/ggonzalez94/swap-bridge-relayer/internal/errors"
)

// ParseFraction parses a decimal string such as "0.98" and checks it lies in
// (0, 1], or (0, 1) when inclusiveOne is false.
func ParseFraction(field, value string, inclusiveOne bool) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return decimal.Decimal{}, clierr.Wrap(clierr.CodeUsage, fmt.Sprintf("%s must be a decimal number", field), err)
	}
	one := decimal.NewFromInt(1)
	if !d.IsPositive() {
		return decimal.Decimal{}, clierr.New(clierr.CodeUsage, fmt.Sprintf("%s must be greater than 0", field))
	}
	if inclusiveOne && d.GreaterThan(one) {
		return decimal.Decimal{}, clierr.New(clierr.CodeUsage, fmt.Sprintf("%s must be at most 1", field))
	}
	if !inclusiveOne && !d.LessThan(one) {
		return decimal.Decimal{}, clierr.New(clierr.CodeUsage, fmt.Sprintf("%s must be less than 1", field))
	}
	return d, nil
}

// ApplySlippageFloor returns floor(amount * tolerance) computed exactly.
func ApplySlippageFloor(amount *big.Int, tolerance decimal.Decimal) *big.Int {
	if amount == nil || amount.Sign() <= 0 {
		return new(big.Int)
	}
	return decimal.NewFromBigInt(amount, 0).Mul(tolerance).Truncate(0).BigInt()
}

// ParseBaseUnits parses a non-negative base-unit integer string.
func ParseBaseUnits(field, value string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(strings.TrimSpace(value), 10)
	if !ok {
		return nil, clierr.New(clierr.CodeUsage, fmt.Sprintf("%s must be an integer string", field))
	}
	if n.Sign() < 0 {
		return nil, clierr.New(clierr.CodeUsage, fmt.Sprintf("%s must be non-negative", field))
	}
	return n, nil
}

// FormatDecimal converts a base-unit amount into a decimal string.
func FormatDecimal(amount *big.Int, decimals int) string {
	if amount == nil {
		return "0"
	}
	if decimals <= 0 {
		return amount.String()
	}
	s := new(big.Int).Abs(amount).String()
	if len(s) <= decimals {
		s = strings.Repeat("0", decimals-len(s)+1) + s
	}
	intPart := s[:len(s)-decimals]
	fracPart := strings.TrimRight(s[len(s)-decimals:], "0")
	sign := ""
	if amount.Sign() < 0 {
		sign = "-"
	}
	if fracPart == "" {
		return sign + intPart
	}
	return sign + intPart + "." + fracPart
}
