package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Call describes a read-only contract method invocation.
type Call struct {
	Target common.Address
	ABI    abi.ABI
	Method string
	Args   []interface{}
}

// Reader is the read-only view of the chain used by pools and factories.
// A nil block means latest.
type Reader interface {
	Call(ctx context.Context, call Call, block *big.Int) ([]interface{}, error)
	BatchCall(ctx context.Context, calls []Call, block *big.Int) ([][]interface{}, error)
	GetLogs(ctx context.Context, contract common.Address, event abi.Event, fromBlock, toBlock uint64) ([]types.Log, error)
}
