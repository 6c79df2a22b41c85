// Package chaintest provides an in-memory chain.Reader for tests.
package chaintest

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"poolSim/internal/chain"
)

// Handler answers one contract method.
type Handler func(call chain.Call, block *big.Int) ([]interface{}, error)

// Reader serves calls from per-method handlers and logs from fixtures.
// It is safe for concurrent use.
type Reader struct {
	mu       sync.Mutex
	handlers map[string]Handler
	logs     []types.Log

	Calls   int
	Batches int
	// FailBatch, when set, is consulted before each batch.
	FailBatch func(calls []chain.Call) error
}

var _ chain.Reader = (*Reader)(nil)

func NewReader() *Reader {
	return &Reader{handlers: make(map[string]Handler)}
}

// Handle registers the handler for method.
func (r *Reader) Handle(method string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[method] = h
}

// AddLogs appends log fixtures.
func (r *Reader) AddLogs(logs ...types.Log) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, logs...)
}

func (r *Reader) Call(ctx context.Context, call chain.Call, block *big.Int) ([]interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.Calls++
	h, ok := r.handlers[call.Method]
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("no handler for %s", call.Method)
	}
	return h(call, block)
}

func (r *Reader) BatchCall(ctx context.Context, calls []chain.Call, block *big.Int) ([][]interface{}, error) {
	r.mu.Lock()
	r.Batches++
	fail := r.FailBatch
	r.mu.Unlock()
	if fail != nil {
		if err := fail(calls); err != nil {
			return nil, err
		}
	}

	out := make([][]interface{}, len(calls))
	for i, call := range calls {
		values, err := r.Call(ctx, call, block)
		if err != nil {
			return nil, fmt.Errorf("call %d %s: %w", i, call.Method, err)
		}
		out[i] = values
	}
	return out, nil
}

func (r *Reader) GetLogs(ctx context.Context, contract common.Address, event abi.Event, fromBlock, toBlock uint64) ([]types.Log, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []types.Log
	for _, lg := range r.logs {
		if lg.Address != contract || len(lg.Topics) == 0 || lg.Topics[0] != event.ID {
			continue
		}
		if lg.BlockNumber < fromBlock || lg.BlockNumber > toBlock {
			continue
		}
		out = append(out, lg)
	}
	return out, nil
}
