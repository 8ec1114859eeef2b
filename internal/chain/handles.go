package chain

import (
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	clierr "github.com/ggonzalez94/swap-bridge-relayer/internal/errors"
	"github.com/ggonzalez94/swap-bridge-relayer/internal/registry"
)

var erc20ABI = mustERC20ABI(registry.ERC20MinimalABI)

// TokenHandle binds the ERC20 ABI to one token address.
type TokenHandle struct {
	address common.Address
	abi     *abi.ABI
}

func (h *TokenHandle) Address() common.Address { return h.address }

func (h *TokenHandle) packBalanceOf(owner common.Address) ([]byte, error) {
	data, err := h.abi.Pack("balanceOf", owner)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeInternal, "pack balanceOf calldata", err)
	}
	return data, nil
}

func (h *TokenHandle) packAllowance(owner, spender common.Address) ([]byte, error) {
	data, err := h.abi.Pack("allowance", owner, spender)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeInternal, "pack allowance calldata", err)
	}
	return data, nil
}

func (h *TokenHandle) unpackUint(method string, out []byte) (*big.Int, error) {
	decoded, err := h.abi.Unpack(method, out)
	if err != nil || len(decoded) == 0 {
		return nil, clierr.Wrap(clierr.CodeUnavailable, fmt.Sprintf("decode %s response from %s", method, h.address.Hex()), err)
	}
	value, ok := decoded[0].(*big.Int)
	if !ok {
		return nil, clierr.New(clierr.CodeUnavailable, fmt.Sprintf("invalid %s response from %s", method, h.address.Hex()))
	}
	return value, nil
}

type handleKey struct {
	connectionID string
	token        common.Address
}

// HandleCache reuses token handles per (connection, token). Entries hold no
// chain state, so sharing them never changes a read result.
type HandleCache struct {
	mu      sync.Mutex
	handles map[handleKey]*TokenHandle
}

func NewHandleCache() *HandleCache {
	return &HandleCache{handles: map[handleKey]*TokenHandle{}}
}

func (c *HandleCache) Get(connectionID string, token common.Address) *TokenHandle {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := handleKey{connectionID: connectionID, token: token}
	if h, ok := c.handles[key]; ok {
		return h
	}
	h := &TokenHandle{address: token, abi: &erc20ABI}
	c.handles[key] = h
	return h
}

func (c *HandleCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.handles)
}

func mustERC20ABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}
