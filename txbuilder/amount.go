package txbuilder

import (
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	xerrors "github.com/dotbot/transfer-lib/common/errors"
	"github.com/dotbot/transfer-lib/common/types"
)

// NormalizePlanck converts a caller-supplied amount into the chain's smallest
// unit. A value without a decimal point is interpreted as whole native tokens
// and multiplied by 10^decimals; a decimal value is parsed against the chain's
// actual decimal count; a pre-converted value passes through unchanged. All
// arithmetic uses arbitrary-precision integers.
//
// Parameters:
// - amount: the caller-supplied amount.
// - decimals: the chain's native token decimal count.
//
// Returns:
// - *big.Int: the amount in smallest units, always positive.
// - error: an INVALID_AMOUNT error for zero, negative or unparseable input.
func NormalizePlanck(amount types.Amount, decimals int) (*big.Int, error) {
	if amount.IsPlanck() {
		planck := amount.Planck()
		if planck.Sign() <= 0 {
			return nil, xerrors.New(xerrors.CodeInvalidAmount, "amount must be positive").
				WithDetail("amount", planck.String())
		}
		return planck, nil
	}

	text := strings.TrimSpace(amount.Text())
	if text == "" {
		return nil, xerrors.New(xerrors.CodeInvalidAmount, "amount is empty")
	}

	if !strings.Contains(text, ".") {
		whole, ok := new(big.Int).SetString(text, 10)
		if !ok {
			return nil, xerrors.Newf(xerrors.CodeInvalidAmount, "amount %q is not a number", text).
				WithDetail("amount", text)
		}
		if whole.Sign() <= 0 {
			return nil, xerrors.New(xerrors.CodeInvalidAmount, "amount must be positive").
				WithDetail("amount", text)
		}
		return whole.Mul(whole, pow10(decimals)), nil
	}

	value, err := decimal.NewFromString(text)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeInvalidAmount, err, "amount is not a number").
			WithDetail("amount", text)
	}
	if value.Sign() <= 0 {
		return nil, xerrors.New(xerrors.CodeInvalidAmount, "amount must be positive").
			WithDetail("amount", text)
	}
	if fractional := -value.Exponent(); fractional > int32(decimals) {
		return nil, xerrors.Newf(xerrors.CodeInvalidAmount,
			"amount %q has more fractional digits than the chain supports (%d)", text, decimals).
			WithDetail("amount", text).
			WithDetail("decimals", decimals)
	}

	return value.Shift(int32(decimals)).BigInt(), nil
}

func pow10(decimals int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
}
