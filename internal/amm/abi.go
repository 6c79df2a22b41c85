package amm

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const pairABIJSON = `[
  {"inputs": [], "name": "token0", "outputs": [{"internalType": "address", "name": "", "type": "address"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "token1", "outputs": [{"internalType": "address", "name": "", "type": "address"}], "stateMutability": "view", "type": "function"},
  {
    "inputs": [],
    "name": "getReserves",
    "outputs": [
      {"internalType": "uint112", "name": "reserve0", "type": "uint112"},
      {"internalType": "uint112", "name": "reserve1", "type": "uint112"},
      {"internalType": "uint32", "name": "blockTimestampLast", "type": "uint32"}
    ],
    "stateMutability": "view",
    "type": "function"
  }
]`

const hybridABIJSON = `[
  {
    "inputs": [],
    "name": "fees",
    "outputs": [
      {"internalType": "uint64", "name": "lpFeeVolatile", "type": "uint64"},
      {"internalType": "uint64", "name": "lpFeeStable", "type": "uint64"},
      {"internalType": "uint64", "name": "protocolFeeVolatile", "type": "uint64"},
      {"internalType": "uint64", "name": "protocolFeeStable", "type": "uint64"}
    ],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "address", "name": "token0", "type": "address"},
      {"internalType": "address", "name": "token1", "type": "address"},
      {"internalType": "bool", "name": "stable", "type": "bool"}
    ],
    "name": "poolMetadata",
    "outputs": [
      {"internalType": "uint64", "name": "reserve0", "type": "uint64"},
      {"internalType": "uint64", "name": "reserve1", "type": "uint64"},
      {"internalType": "uint64", "name": "liquidity", "type": "uint64"},
      {"internalType": "uint8", "name": "decimals0", "type": "uint8"},
      {"internalType": "uint8", "name": "decimals1", "type": "uint8"}
    ],
    "stateMutability": "view",
    "type": "function"
  }
]`

const erc20ABIJSON = `[
  {"inputs": [], "name": "decimals", "outputs": [{"type": "uint8"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "symbol", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"}
]`

var (
	pairABI     abi.ABI
	pairABIOnce sync.Once
	pairABIErr  error

	hybridABI     abi.ABI
	hybridABIOnce sync.Once
	hybridABIErr  error

	erc20ABI     abi.ABI
	erc20ABIOnce sync.Once
	erc20ABIErr  error
)

// PairABI returns the parsed constant-product pair ABI.
func PairABI() (abi.ABI, error) {
	pairABIOnce.Do(func() {
		pairABI, pairABIErr = abi.JSON(strings.NewReader(pairABIJSON))
	})
	return pairABI, pairABIErr
}

// HybridABI returns the parsed ABI of the hybrid AMM singleton.
func HybridABI() (abi.ABI, error) {
	hybridABIOnce.Do(func() {
		hybridABI, hybridABIErr = abi.JSON(strings.NewReader(hybridABIJSON))
	})
	return hybridABI, hybridABIErr
}

// ERC20ABI returns the parsed ERC20 metadata ABI.
func ERC20ABI() (abi.ABI, error) {
	erc20ABIOnce.Do(func() {
		erc20ABI, erc20ABIErr = abi.JSON(strings.NewReader(erc20ABIJSON))
	})
	return erc20ABI, erc20ABIErr
}
