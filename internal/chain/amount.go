package chain

import (
	"errors"
	"math/big"
	"strings"
)

const decimals = 18

var (
	weiPerUnit       = new(big.Int).Exp(big.NewInt(10), big.NewInt(decimals), nil)
	errInvalidAmount = errors.New("amount must be a positive decimal")
)

// ToWei converts a decimal token amount to base units. Digits past the
// eighteenth decimal are truncated.
func ToWei(amount string) (*big.Int, error) {
	r, ok := new(big.Rat).SetString(strings.TrimSpace(amount))
	if !ok || r.Sign() <= 0 {
		return nil, errInvalidAmount
	}
	r.Mul(r, new(big.Rat).SetInt(weiPerUnit))
	wei := new(big.Int).Quo(r.Num(), r.Denom())
	if wei.Sign() <= 0 {
		return nil, errInvalidAmount
	}
	return wei, nil
}

// FromWei renders base units as a decimal with at most six places.
func FromWei(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	s := new(big.Rat).SetFrac(wei, weiPerUnit).FloatString(6)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
