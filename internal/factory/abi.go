package factory

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const pairFactoryABIJSON = `[
  {"inputs": [], "name": "allPairsLength", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "name": "allPairs", "outputs": [{"internalType": "address", "name": "", "type": "address"}], "stateMutability": "view", "type": "function"},
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "token0", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "token1", "type": "address"},
      {"indexed": false, "internalType": "address", "name": "pair", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "", "type": "uint256"}
    ],
    "name": "PairCreated",
    "type": "event"
  }
]`

const hybridAMMABIJSON = `[
  {"inputs": [], "name": "totalPools", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
  {
    "inputs": [{"internalType": "uint256", "name": "index", "type": "uint256"}],
    "name": "poolIdAt",
    "outputs": [
      {"internalType": "address", "name": "token0", "type": "address"},
      {"internalType": "address", "name": "token1", "type": "address"},
      {"internalType": "bool", "name": "stable", "type": "bool"}
    ],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "token0", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "token1", "type": "address"},
      {"indexed": false, "internalType": "bool", "name": "stable", "type": "bool"}
    ],
    "name": "PoolCreated",
    "type": "event"
  }
]`

var (
	pairFactoryABI     abi.ABI
	pairFactoryABIOnce sync.Once
	pairFactoryABIErr  error

	hybridAMMABI     abi.ABI
	hybridAMMABIOnce sync.Once
	hybridAMMABIErr  error
)

// PairFactoryABI returns the parsed Uniswap V2 style factory ABI.
func PairFactoryABI() (abi.ABI, error) {
	pairFactoryABIOnce.Do(func() {
		pairFactoryABI, pairFactoryABIErr = abi.JSON(strings.NewReader(pairFactoryABIJSON))
	})
	return pairFactoryABI, pairFactoryABIErr
}

// HybridAMMABI returns the parsed registry ABI of the hybrid AMM singleton.
func HybridAMMABI() (abi.ABI, error) {
	hybridAMMABIOnce.Do(func() {
		hybridAMMABI, hybridAMMABIErr = abi.JSON(strings.NewReader(hybridAMMABIJSON))
	})
	return hybridAMMABI, hybridAMMABIErr
}
