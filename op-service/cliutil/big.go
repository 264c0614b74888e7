package cliutil

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
	"github.com/urfave/cli/v2"
)

var (
	ErrFlagBlank   = errors.New("cannot parse blank big int flag")
	ErrUint256Size = errors.New("value does not fit in 256 bits")
)

// ParseBigInt accepts a decimal number or a 0x prefixed hex number.
func ParseBigInt(intStr string) (*big.Int, error) {
	if intStr == "" {
		return nil, ErrFlagBlank
	}
	base := 10
	digits := intStr
	if strings.HasPrefix(digits, "0x") || strings.HasPrefix(digits, "0X") {
		base = 16
		digits = digits[2:]
	}
	out, ok := new(big.Int).SetString(digits, base)
	if !ok || out.Sign() < 0 {
		return nil, fmt.Errorf("error parsing bigint flag '%s'", intStr)
	}
	return out, nil
}

// ParseHexBigInt always reads base 16. The 0x prefix is optional.
func ParseHexBigInt(intStr string) (*big.Int, error) {
	digits := strings.TrimPrefix(strings.TrimPrefix(intStr, "0x"), "0X")
	if digits == "" {
		return nil, ErrFlagBlank
	}
	out, ok := new(big.Int).SetString(digits, 16)
	if !ok || out.Sign() < 0 {
		return nil, fmt.Errorf("error parsing hex bigint flag '%s'", intStr)
	}
	return out, nil
}

func BigIntFlag(cliCtx *cli.Context, flagName string) (*big.Int, error) {
	return ParseBigInt(cliCtx.String(flagName))
}

// ParseUint256 parses like ParseBigInt and rejects values wider than 256 bits.
func ParseUint256(intStr string) (*uint256.Int, error) {
	b, err := ParseBigInt(intStr)
	if err != nil {
		return nil, err
	}
	return toUint256(b, intStr)
}

// ParseHexUint256 parses like ParseHexBigInt and rejects values wider than 256 bits.
func ParseHexUint256(intStr string) (*uint256.Int, error) {
	b, err := ParseHexBigInt(intStr)
	if err != nil {
		return nil, err
	}
	return toUint256(b, intStr)
}

func toUint256(b *big.Int, intStr string) (*uint256.Int, error) {
	out, overflow := uint256.FromBig(b)
	if overflow {
		return nil, fmt.Errorf("%w: '%s'", ErrUint256Size, intStr)
	}
	return out, nil
}

func Uint256Flag(cliCtx *cli.Context, flagName string) (*uint256.Int, error) {
	return ParseUint256(cliCtx.String(flagName))
}
