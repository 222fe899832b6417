package chain

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// Client is a thin JSON-RPC client for the preflight checks done before a
// deployment.
type Client struct {
	base string
	eth  *ethclient.Client
}

// NewClient dials an HTTP(S) JSON-RPC endpoint. A nil httpClient uses the
// default client.
func NewClient(ctx context.Context, base string, httpClient *http.Client) (*Client, error) {
	base = strings.TrimRight(base, "/")
	opts := []rpc.ClientOption{}
	if httpClient != nil {
		opts = append(opts, rpc.WithHTTPClient(httpClient))
	}
	rc, err := rpc.DialOptions(ctx, base, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", base, err)
	}
	return &Client{base: base, eth: ethclient.NewClient(rc)}, nil
}

// Eth exposes the underlying client as a contract backend.
func (c *Client) Eth() *ethclient.Client { return c.eth }

func (c *Client) Close() { c.eth.Close() }

// ChainID returns the chain ID reported by the node.
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	id, err := c.eth.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("rpc chain id: %w", err)
	}
	return id, nil
}

// HasCode reports whether any contract code is deployed at addr at the latest block.
func (c *Client) HasCode(ctx context.Context, addr common.Address) (bool, error) {
	code, err := c.eth.CodeAt(ctx, addr, nil)
	if err != nil {
		return false, fmt.Errorf("rpc code at %s: %w", addr.Hex(), err)
	}
	return len(code) > 0, nil
}

// ExpectChainID fails when the node's chain ID differs from want.
func (c *Client) ExpectChainID(ctx context.Context, want int64) error {
	got, err := c.ChainID(ctx)
	if err != nil {
		return err
	}
	if got.Cmp(big.NewInt(want)) != 0 {
		return fmt.Errorf("rpc %s is chain %s, config expects %d", c.base, got, want)
	}
	return nil
}
