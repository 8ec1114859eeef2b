package id

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	clierr "github.com/ggonzalez94/swap-bridge-relayer/internal/errors"
)

var eip155ChainPattern = regexp.MustCompile(`^eip155:[0-9]+$`)

type Chain struct {
	Name       string
	Slug       string
	CAIP2      string
	EVMChainID int64
}

var chains = []Chain{
	{Name: "Ethereum", Slug: "ethereum", CAIP2: "eip155:1", EVMChainID: 1},
	{Name: "Optimism", Slug: "optimism", CAIP2: "eip155:10", EVMChainID: 10},
	{Name: "BSC", Slug: "bsc", CAIP2: "eip155:56", EVMChainID: 56},
	{Name: "Polygon", Slug: "polygon", CAIP2: "eip155:137", EVMChainID: 137},
	{Name: "Base", Slug: "base", CAIP2: "eip155:8453", EVMChainID: 8453},
	{Name: "Arbitrum", Slug: "arbitrum", CAIP2: "eip155:42161", EVMChainID: 42161},
	{Name: "Avalanche", Slug: "avalanche", CAIP2: "eip155:43114", EVMChainID: 43114},
}

var (
	chainBySlug = map[string]Chain{}
	chainByID   = map[int64]Chain{}
)

func init() {
	for _, c := range chains {
		chainBySlug[c.Slug] = c
		chainByID[c.EVMChainID] = c
	}
	chainBySlug["mainnet"] = chainByID[1]
	chainBySlug["eth"] = chainByID[1]
	chainBySlug["arb"] = chainByID[42161]
}

// ParseChain accepts a slug, a numeric chain id or an eip155 CAIP-2 identifier.
func ParseChain(input string) (Chain, error) {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return Chain{}, clierr.New(clierr.CodeUsage, "chain is required")
	}
	norm := strings.ToLower(raw)

	if chain, ok := chainBySlug[norm]; ok {
		return chain, nil
	}

	if eip155ChainPattern.MatchString(norm) {
		norm = strings.TrimPrefix(norm, "eip155:")
	}
	chainID, err := strconv.ParseInt(norm, 10, 64)
	if err != nil || chainID <= 0 {
		return Chain{}, clierr.New(clierr.CodeUsage, fmt.Sprintf("unsupported chain input: %s", input))
	}
	if chain, ok := chainByID[chainID]; ok {
		return chain, nil
	}
	return Chain{
		Name:       fmt.Sprintf("EVM-%d", chainID),
		Slug:       fmt.Sprintf("evm-%d", chainID),
		CAIP2:      fmt.Sprintf("eip155:%d", chainID),
		EVMChainID: chainID,
	}, nil
}
