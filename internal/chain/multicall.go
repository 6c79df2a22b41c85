package chain

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// DefaultMulticall is the canonical Multicall3 deployment address.
var DefaultMulticall = common.HexToAddress("0xcA11bde05977b3631167028862bE2a173976CA11")

const multicallABIJSON = `[
  {
    "inputs": [
      {
        "components": [
          {"internalType": "address", "name": "target", "type": "address"},
          {"internalType": "bool", "name": "allowFailure", "type": "bool"},
          {"internalType": "bytes", "name": "callData", "type": "bytes"}
        ],
        "internalType": "struct Multicall3.Call3[]",
        "name": "calls",
        "type": "tuple[]"
      }
    ],
    "name": "aggregate3",
    "outputs": [
      {
        "components": [
          {"internalType": "bool", "name": "success", "type": "bool"},
          {"internalType": "bytes", "name": "returnData", "type": "bytes"}
        ],
        "internalType": "struct Multicall3.Result[]",
        "name": "returnData",
        "type": "tuple[]"
      }
    ],
    "stateMutability": "payable",
    "type": "function"
  }
]`

var (
	mcABI     abi.ABI
	mcABIOnce sync.Once
	mcABIErr  error
)

func multicallABI() (abi.ABI, error) {
	mcABIOnce.Do(func() {
		mcABI, mcABIErr = abi.JSON(strings.NewReader(multicallABIJSON))
	})
	return mcABI, mcABIErr
}

type call3 struct {
	Target       common.Address
	AllowFailure bool
	CallData     []byte
}

type result3 struct {
	Success    bool
	ReturnData []byte
}

func packCalls(calls []Call) ([]call3, error) {
	packed := make([]call3, 0, len(calls))
	for i, call := range calls {
		data, err := call.ABI.Pack(call.Method, call.Args...)
		if err != nil {
			return nil, fmt.Errorf("pack call %d %s: %w", i, call.Method, err)
		}
		packed = append(packed, call3{Target: call.Target, AllowFailure: true, CallData: data})
	}
	return packed, nil
}

func unpackResults(mc abi.ABI, calls []Call, resp []byte) ([][]interface{}, error) {
	values, err := mc.Unpack("aggregate3", resp)
	if err != nil {
		return nil, fmt.Errorf("unpack aggregate3: %w", err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("aggregate3 return size %d", len(values))
	}
	results := *abi.ConvertType(values[0], new([]result3)).(*[]result3)
	if len(results) != len(calls) {
		return nil, fmt.Errorf("aggregate3 returned %d results for %d calls", len(results), len(calls))
	}

	out := make([][]interface{}, len(calls))
	for i, res := range results {
		call := calls[i]
		if !res.Success {
			return nil, fmt.Errorf("call %d %s on %s reverted", i, call.Method, call.Target.Hex())
		}
		decoded, err := call.ABI.Unpack(call.Method, res.ReturnData)
		if err != nil {
			return nil, fmt.Errorf("unpack call %d %s: %w", i, call.Method, err)
		}
		out[i] = decoded
	}
	return out, nil
}
