package chain

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"
)

// Options tunes retries and batching of a Client.
type Options struct {
	Multicall    common.Address
	MaxRetries   int
	RetryBackoff time.Duration
}

// Client wraps go-ethereum RPC and implements Reader.
type Client struct {
	rpcClient *rpc.Client
	ethClient *ethclient.Client
	opts      Options
	logger    *zap.Logger

	mu      sync.RWMutex
	tsCache map[uint64]uint64
}

// NewClient creates a new chain client from the RPC URL.
func NewClient(ctx context.Context, rpcURL string, opts Options, logger *zap.Logger) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Multicall == (common.Address{}) {
		opts.Multicall = DefaultMulticall
	}

	return &Client{
		rpcClient: rpcClient,
		ethClient: ethclient.NewClient(rpcClient),
		opts:      opts,
		logger:    logger,
		tsCache:   make(map[uint64]uint64),
	}, nil
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

// LatestBlockNumber returns the latest block number.
func (c *Client) LatestBlockNumber(ctx context.Context) (uint64, error) {
	var latest uint64
	err := c.retry(ctx, "block number", func(ctx context.Context) error {
		var err error
		latest, err = c.ethClient.BlockNumber(ctx)
		return err
	})
	return latest, err
}

// BlockTimestamp returns the block timestamp, using an in-memory cache.
func (c *Client) BlockTimestamp(ctx context.Context, number uint64) (uint64, error) {
	c.mu.RLock()
	ts, ok := c.tsCache[number]
	c.mu.RUnlock()
	if ok {
		return ts, nil
	}

	var header *types.Header
	err := c.retry(ctx, "header by number", func(ctx context.Context) error {
		var err error
		header, err = c.ethClient.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
		return err
	})
	if err != nil {
		return 0, err
	}

	ts = header.Time
	c.mu.Lock()
	c.tsCache[number] = ts
	c.mu.Unlock()

	return ts, nil
}

// Call packs the method, performs an eth_call and unpacks the outputs.
func (c *Client) Call(ctx context.Context, call Call, block *big.Int) ([]interface{}, error) {
	data, err := call.ABI.Pack(call.Method, call.Args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", call.Method, err)
	}

	var resp []byte
	err = c.retry(ctx, call.Method, func(ctx context.Context) error {
		var err error
		resp, err = c.ethClient.CallContract(ctx, ethereum.CallMsg{To: &call.Target, Data: data}, block)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", call.Method, err)
	}

	values, err := call.ABI.Unpack(call.Method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", call.Method, err)
	}
	return values, nil
}

// BatchCall executes all calls in a single Multicall3 eth_call. Any failed
// sub-call fails the whole batch.
func (c *Client) BatchCall(ctx context.Context, calls []Call, block *big.Int) ([][]interface{}, error) {
	if len(calls) == 0 {
		return nil, nil
	}

	mc, err := multicallABI()
	if err != nil {
		return nil, fmt.Errorf("parse multicall abi: %w", err)
	}

	packed, err := packCalls(calls)
	if err != nil {
		return nil, err
	}
	data, err := mc.Pack("aggregate3", packed)
	if err != nil {
		return nil, fmt.Errorf("pack aggregate3: %w", err)
	}

	var resp []byte
	err = c.retry(ctx, "aggregate3", func(ctx context.Context) error {
		var err error
		resp, err = c.ethClient.CallContract(ctx, ethereum.CallMsg{To: &c.opts.Multicall, Data: data}, block)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("call aggregate3: %w", err)
	}

	return unpackResults(mc, calls, resp)
}

// GetLogs returns the logs of one event emitted by contract in [fromBlock, toBlock].
func (c *Client) GetLogs(ctx context.Context, contract common.Address, event abi.Event, fromBlock, toBlock uint64) ([]types.Log, error) {
	var logs []types.Log
	err := c.retry(ctx, "filter logs", func(ctx context.Context) error {
		var err error
		logs, err = c.FilterLogs(ctx, fromBlock, toBlock, []common.Address{contract}, []common.Hash{event.ID})
		return err
	})
	return logs, err
}

// FilterLogs returns logs in the given range for addresses and topic0 filters.
func (c *Client) FilterLogs(
	ctx context.Context,
	fromBlock uint64,
	toBlock uint64,
	addresses []common.Address,
	topic0 []common.Hash,
) ([]types.Log, error) {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: addresses,
	}
	if len(topic0) > 0 {
		query.Topics = [][]common.Hash{topic0}
	}
	return c.ethClient.FilterLogs(ctx, query)
}

func (c *Client) retry(ctx context.Context, op string, fn func(context.Context) error) error {
	attempt := 0
	return withRetry(ctx, c.opts.MaxRetries, c.opts.RetryBackoff, func(ctx context.Context) error {
		attempt++
		err := fn(ctx)
		if err != nil {
			c.logger.Warn("rpc request failed", zap.String("op", op), zap.Int("attempt", attempt), zap.Error(err))
		}
		return err
	})
}
