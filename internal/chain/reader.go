package chain

import (
	"context"
	"fmt"
	"math/big"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	clierr "github.com/ggonzalez94/swap-bridge-relayer/internal/errors"
)

// Reader is the read-only chain surface the planner depends on.
type Reader interface {
	ChainID() int64
	BalanceOf(ctx context.Context, token, owner common.Address) (*big.Int, error)
	AllowanceOf(ctx context.Context, token, owner, spender common.Address) (*big.Int, error)
	NativeBalance(ctx context.Context, account common.Address) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

type Client struct {
	eth          *ethclient.Client
	chainID      int64
	connectionID string
	handles      *HandleCache
}

// Dial connects to rpcURL and fails fast when the node reports a chain id
// other than expectedChainID.
func Dial(ctx context.Context, rpcURL string, expectedChainID int64, connectionID string, handles *HandleCache) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeUnavailable, "connect rpc", err)
	}
	got, err := eth.ChainID(ctx)
	if err != nil {
		eth.Close()
		return nil, clierr.Wrap(clierr.CodeUnavailable, "read chain id", err)
	}
	if got.Int64() != expectedChainID {
		eth.Close()
		return nil, clierr.New(clierr.CodeUnavailable, fmt.Sprintf("rpc chain id mismatch: expected %d, got %s", expectedChainID, got))
	}
	if strings.TrimSpace(connectionID) == "" {
		connectionID = ConnectionID(expectedChainID, rpcURL)
	}
	if handles == nil {
		handles = NewHandleCache()
	}
	return &Client{eth: eth, chainID: expectedChainID, connectionID: connectionID, handles: handles}, nil
}

// ConnectionID is the default cache identity for a connection: chain id plus
// rpc host. It never depends on the client value itself.
func ConnectionID(chainID int64, rpcURL string) string {
	host := strings.TrimSpace(rpcURL)
	if parsed, err := url.Parse(host); err == nil && parsed.Host != "" {
		host = parsed.Host
	}
	return fmt.Sprintf("%d:%s", chainID, strings.ToLower(host))
}

func (c *Client) ChainID() int64 { return c.chainID }

func (c *Client) ConnectionID() string { return c.connectionID }

// Backend exposes the underlying client for transaction submission.
func (c *Client) Backend() *ethclient.Client { return c.eth }

func (c *Client) Close() { c.eth.Close() }

func (c *Client) BalanceOf(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	handle := c.handles.Get(c.connectionID, token)
	data, err := handle.packBalanceOf(owner)
	if err != nil {
		return nil, err
	}
	return c.callUint(ctx, handle, "balanceOf", data)
}

func (c *Client) AllowanceOf(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	handle := c.handles.Get(c.connectionID, token)
	data, err := handle.packAllowance(owner, spender)
	if err != nil {
		return nil, err
	}
	return c.callUint(ctx, handle, "allowance", data)
}

func (c *Client) NativeBalance(ctx context.Context, account common.Address) (*big.Int, error) {
	balance, err := c.eth.BalanceAt(ctx, account, nil)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeUnavailable, fmt.Sprintf("read native balance of %s", account.Hex()), err)
	}
	return balance, nil
}

func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	n, err := c.eth.BlockNumber(ctx)
	if err != nil {
		return 0, clierr.Wrap(clierr.CodeUnavailable, "read block number", err)
	}
	return n, nil
}

func (c *Client) callUint(ctx context.Context, handle *TokenHandle, method string, data []byte) (*big.Int, error) {
	token := handle.Address()
	out, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeUnavailable, fmt.Sprintf("call %s on %s", method, token.Hex()), err)
	}
	return handle.unpackUint(method, out)
}

// WithTimeout bounds every call made through r by d. A non-positive d
// returns r unchanged.
func WithTimeout(r Reader, d time.Duration) Reader {
	if d <= 0 {
		return r
	}
	return timeoutReader{inner: r, timeout: d}
}

type timeoutReader struct {
	inner   Reader
	timeout time.Duration
}

func (r timeoutReader) ChainID() int64 { return r.inner.ChainID() }

func (r timeoutReader) BalanceOf(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.inner.BalanceOf(ctx, token, owner)
}

func (r timeoutReader) AllowanceOf(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.inner.AllowanceOf(ctx, token, owner, spender)
}

func (r timeoutReader) NativeBalance(ctx context.Context, account common.Address) (*big.Int, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.inner.NativeBalance(ctx, account)
}

func (r timeoutReader) BlockNumber(ctx context.Context) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.inner.BlockNumber(ctx)
}
