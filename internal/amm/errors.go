package amm

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"poolSim/internal/fixedpoint"
)

var (
	// ErrArithmetic is the parent of every pricing failure.
	ErrArithmetic = errors.New("arithmetic error")
	// ErrSwapSimulation is the parent of every swap simulation failure.
	ErrSwapSimulation = errors.New("swap simulation error")
)

var (
	ErrDivisionByZero = &kindError{parent: ErrArithmetic, cause: fixedpoint.ErrDivisionByZero}
	ErrRounding       = &kindError{parent: ErrArithmetic, cause: fixedpoint.ErrRounding}
	ErrYIsZero        = &kindError{parent: ErrArithmetic, cause: errors.New("y is zero")}
	ErrPriceOverflow  = &kindError{parent: ErrArithmetic, cause: errors.New("price overflow")}

	ErrOverflow           = &kindError{parent: ErrSwapSimulation, cause: errors.New("overflow")}
	ErrSwapDivisionByZero = &kindError{parent: ErrSwapSimulation, cause: errors.New("division by zero")}
)

// ErrReserveOutOfRange marks an on-chain reserve too wide for the cached
// uint64 representation.
var ErrReserveOutOfRange = errors.New("reserve out of range")

// kindError is a sentinel that matches both its parent class and its cause.
type kindError struct {
	parent error
	cause  error
}

func (e *kindError) Error() string {
	return e.parent.Error() + ": " + e.cause.Error()
}

func (e *kindError) Unwrap() []error {
	return []error{e.parent, e.cause}
}

// arithmeticError maps fixed-point engine failures onto pricing sentinels.
func arithmeticError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fixedpoint.ErrDivisionByZero):
		return ErrDivisionByZero
	case errors.Is(err, fixedpoint.ErrRounding):
		return ErrRounding
	default:
		return fmt.Errorf("%w: %w", ErrArithmetic, err)
	}
}

// ChainError wraps a failure of the chain reader: transport, revert or decoding.
type ChainError struct {
	Op       string
	Contract common.Address
	Err      error
}

func (e *ChainError) Error() string {
	if e.Contract == (common.Address{}) {
		return fmt.Sprintf("chain %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("chain %s on %s: %v", e.Op, e.Contract.Hex(), e.Err)
}

func (e *ChainError) Unwrap() error {
	return e.Err
}

// NewChainError wraps err as a *ChainError unless it already is one.
func NewChainError(op string, contract common.Address, err error) error {
	if err == nil {
		return nil
	}
	var ce *ChainError
	if errors.As(err, &ce) {
		return err
	}
	return &ChainError{Op: op, Contract: contract, Err: err}
}

// SkippedPool is a pool left out of a populate call because its own on-chain
// values cannot be cached. The rest of the batch is unaffected.
type SkippedPool struct {
	Address common.Address
	Err     error
}
