package registry

// Canonical LiFi diamond deployment, identical across supported EVM chains.
const LiFiDiamondAddress = "0x1231DEB6f5749EF6cE6943a275A1D3E7486F4EaE"

// Native USDC deployments used as the settlement asset.
var usdcByChainID = map[int64]string{
	1:     "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
	10:    "0x0b2C639c533813f4Aa9D7837CAf62653d097Ff85",
	137:   "0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359",
	8453:  "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
	42161: "0xaf88d065e77c8cC2239327C5EDb3A432268e5831",
}

func USDCAddress(chainID int64) (string, bool) {
	value, ok := usdcByChainID[chainID]
	return value, ok
}

// NativeFundingBufferGas and NativeFundingBufferGasPrice size the native
// balance headroom the signer needs on top of the bridge call value.
const (
	NativeFundingBufferGas      = 1_000_000
	NativeFundingBufferGasPrice = 1_000_000_000
)
