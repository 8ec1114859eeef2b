package id

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"

	clierr "github.com/ggonzalez94/swap-bridge-relayer/internal/errors"
)

func TestParseChainVariants(t *testing.T) {
	chain, err := ParseChain("base")
	if err != nil {
		t.Fatalf("ParseChain(base) failed: %v", err)
	}
	if chain.EVMChainID != 8453 {
		t.Fatalf("unexpected chain id: %d", chain.EVMChainID)
	}

	chain, err = ParseChain("1")
	if err != nil {
		t.Fatalf("ParseChain(1) failed: %v", err)
	}
	if chain.Slug != "ethereum" {
		t.Fatalf("unexpected slug: %s", chain.Slug)
	}

	chain, err = ParseChain("eip155:999999")
	if err != nil {
		t.Fatalf("ParseChain(eip155:999999) failed: %v", err)
	}
	if chain.EVMChainID != 999999 || chain.CAIP2 != "eip155:999999" {
		t.Fatalf("unexpected chain: %+v", chain)
	}

	if _, err := ParseChain("solana"); err == nil {
		t.Fatal("expected error for non-evm chain")
	}
}

func TestParseAddressChecksum(t *testing.T) {
	addr, err := ParseAddress("usdc", "0x833589fcd6edb6e08f4c7c32d4f71b54bda02913")
	if err != nil {
		t.Fatalf("lowercase address rejected: %v", err)
	}
	if addr.Hex() != "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913" {
		t.Fatalf("unexpected checksum form: %s", addr.Hex())
	}

	if _, err := ParseAddress("usdc", "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"); err != nil {
		t.Fatalf("checksummed address rejected: %v", err)
	}

	_, err = ParseAddress("usdc", "0x833589FCD6eDb6E08f4c7C32D4f71b54bdA02913")
	if err == nil {
		t.Fatal("expected bad checksum error")
	}
	if !clierr.Is(err, clierr.CodeUsage) {
		t.Fatalf("expected usage code, got %v", err)
	}

	if _, err := ParseAddress("usdc", "0x1234"); err == nil {
		t.Fatal("expected short address error")
	}
	if _, err := ParseNonZeroAddress("target", "0x0000000000000000000000000000000000000000"); err == nil {
		t.Fatal("expected zero address error")
	}
}

func TestApplySlippageFloor(t *testing.T) {
	tolerance := decimal.RequireFromString("0.98")
	got := ApplySlippageFloor(big.NewInt(2_000_000), tolerance)
	if got.Cmp(big.NewInt(1_960_000)) != 0 {
		t.Fatalf("expected 1960000, got %s", got)
	}

	got = ApplySlippageFloor(big.NewInt(1_000_001), tolerance)
	if got.Cmp(big.NewInt(980_000)) != 0 {
		t.Fatalf("expected floor to 980000, got %s", got)
	}

	if ApplySlippageFloor(big.NewInt(0), tolerance).Sign() != 0 {
		t.Fatal("expected zero for zero amount")
	}

	// A floored result never exceeds the exact product.
	for _, raw := range []string{"1", "7", "999999", "123456789012345678901234567890"} {
		amount, _ := new(big.Int).SetString(raw, 10)
		for _, tol := range []string{"0.5", "0.98", "0.999", "1"} {
			d := decimal.RequireFromString(tol)
			floored := ApplySlippageFloor(amount, d)
			exact := decimal.NewFromBigInt(amount, 0).Mul(d)
			if decimal.NewFromBigInt(floored, 0).GreaterThan(exact) {
				t.Fatalf("floor %s exceeds exact %s", floored, exact)
			}
			if exact.Sub(decimal.NewFromBigInt(floored, 0)).GreaterThanOrEqual(decimal.NewFromInt(1)) {
				t.Fatalf("floor %s is more than one unit below %s", floored, exact)
			}
		}
	}
}

func TestParseFractionBounds(t *testing.T) {
	if _, err := ParseFraction("slippage_tolerance", "1", true); err != nil {
		t.Fatalf("expected 1 to be accepted: %v", err)
	}
	if _, err := ParseFraction("max_slippage", "1", false); err == nil {
		t.Fatal("expected 1 to be rejected for exclusive bound")
	}
	if _, err := ParseFraction("slippage_tolerance", "0", true); err == nil {
		t.Fatal("expected 0 to be rejected")
	}
	if _, err := ParseFraction("slippage_tolerance", "abc", true); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestFormatDecimal(t *testing.T) {
	cases := map[string]struct {
		amount   *big.Int
		decimals int
	}{
		"1.96":     {big.NewInt(1_960_000), 6},
		"0.000001": {big.NewInt(1), 6},
		"0":        {big.NewInt(0), 6},
		"42":       {big.NewInt(42), 0},
	}
	for want, tc := range cases {
		if got := FormatDecimal(tc.amount, tc.decimals); got != want {
			t.Fatalf("FormatDecimal(%s, %d) = %s, want %s", tc.amount, tc.decimals, got, want)
		}
	}
	if _, err := ParseBaseUnits("usdc_threshold", "-1"); err == nil {
		t.Fatal("expected negative amount error")
	}
}
