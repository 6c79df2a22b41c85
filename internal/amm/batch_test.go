package amm

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"poolSim/internal/chain"
	"poolSim/internal/chain/chaintest"
)

func pairReader() *chaintest.Reader {
	reader := chaintest.NewReader()
	reader.Handle("token0", func(chain.Call, *big.Int) ([]interface{}, error) {
		return []interface{}{tokenA}, nil
	})
	reader.Handle("token1", func(chain.Call, *big.Int) ([]interface{}, error) {
		return []interface{}{tokenB}, nil
	})
	reader.Handle("getReserves", func(chain.Call, *big.Int) ([]interface{}, error) {
		return []interface{}{big.NewInt(23_595_096), big.NewInt(15_466_423), uint32(1700000000)}, nil
	})
	reader.Handle("decimals", func(call chain.Call, _ *big.Int) ([]interface{}, error) {
		if call.Target == tokenA {
			return []interface{}{uint8(18)}, nil
		}
		return []interface{}{uint8(9)}, nil
	})
	return reader
}

func TestConstantProductPopulateData(t *testing.T) {
	reader := pairReader()
	pool := &ConstantProduct{PoolAddress: pairAB, Fee: 300}

	if err := pool.PopulateData(context.Background(), reader, nil); err != nil {
		t.Fatalf("populate: %v", err)
	}
	want := NewConstantProduct(pairAB, tokenA, 18, tokenB, 9, 23_595_096, 15_466_423, 300)
	if *pool != *want {
		t.Fatalf("populated pool = %+v, want %+v", *pool, *want)
	}
	if reader.Batches != 2 {
		t.Fatalf("expected 2 batched reads, got %d", reader.Batches)
	}
}

func TestConstantProductSync(t *testing.T) {
	reader := pairReader()
	pool := NewConstantProduct(pairAB, tokenA, 18, tokenB, 9, 1, 1, 300)

	if err := pool.Sync(context.Background(), reader, big.NewInt(100)); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if pool.Reserve0 != 23_595_096 || pool.Reserve1 != 15_466_423 {
		t.Fatalf("unexpected reserves %d %d", pool.Reserve0, pool.Reserve1)
	}
	if pool.Token0Decimals != 18 || pool.Fee != 300 {
		t.Fatalf("sync changed more than reserves: %+v", *pool)
	}
}

func TestPopulateConstantProductsNoPartialWrite(t *testing.T) {
	reader := pairReader()
	reader.Handle("decimals", func(chain.Call, *big.Int) ([]interface{}, error) {
		return nil, errors.New("execution reverted")
	})
	pool := NewConstantProduct(pairAB, tokenA, 6, tokenB, 6, 1, 2, 300)
	before := *pool

	err := pool.PopulateData(context.Background(), reader, nil)
	var chainErr *ChainError
	if !errors.As(err, &chainErr) {
		t.Fatalf("expected chain error, got %v", err)
	}
	if *pool != before {
		t.Fatalf("pool mutated on failure: %+v", *pool)
	}
}

func TestConstantProductReserveTooWide(t *testing.T) {
	reader := pairReader()
	reader.Handle("getReserves", func(chain.Call, *big.Int) ([]interface{}, error) {
		wide := new(big.Int).Lsh(big.NewInt(1), 100)
		return []interface{}{wide, big.NewInt(1), uint32(0)}, nil
	})
	pool := NewConstantProduct(pairAB, tokenA, 18, tokenB, 9, 1, 1, 300)
	if err := pool.Sync(context.Background(), reader, nil); !errors.Is(err, ErrReserveOutOfRange) {
		t.Fatalf("expected ErrReserveOutOfRange, got %v", err)
	}
	if err := pool.PopulateData(context.Background(), reader, nil); !errors.Is(err, ErrReserveOutOfRange) {
		t.Fatalf("expected ErrReserveOutOfRange from populate, got %v", err)
	}
	if pool.Reserve0 != 1 || pool.Token1Decimals != 9 {
		t.Fatalf("pool mutated: %+v", *pool)
	}
}

func TestPopulateConstantProductsSkipsWideReserves(t *testing.T) {
	pairWide := common.HexToAddress("0x00000000000000000000000000000000000000fe")
	reader := pairReader()
	reader.Handle("getReserves", func(call chain.Call, _ *big.Int) ([]interface{}, error) {
		if call.Target == pairWide {
			wide, _ := new(big.Int).SetString("20000000000000000000", 10)
			return []interface{}{wide, big.NewInt(5), uint32(0)}, nil
		}
		return []interface{}{big.NewInt(23_595_096), big.NewInt(15_466_423), uint32(0)}, nil
	})
	good := &ConstantProduct{PoolAddress: pairAB, Fee: 300}
	wide := &ConstantProduct{PoolAddress: pairWide, Fee: 300}

	skipped, err := PopulateConstantProducts(context.Background(), reader, []*ConstantProduct{wide, good}, nil)
	if err != nil {
		t.Fatalf("populate: %v", err)
	}
	if len(skipped) != 1 || skipped[0].Address != pairWide || !errors.Is(skipped[0].Err, ErrReserveOutOfRange) {
		t.Fatalf("unexpected skipped pools %+v", skipped)
	}
	if *wide != (ConstantProduct{PoolAddress: pairWide, Fee: 300}) {
		t.Fatalf("skipped pool mutated: %+v", *wide)
	}
	if good.Reserve0 != 23_595_096 || good.Token1Decimals != 9 {
		t.Fatalf("unexpected populated pool %+v", *good)
	}
}

func TestFetchConstantProductsLeavesPoolsUntouched(t *testing.T) {
	reader := pairReader()
	pool := &ConstantProduct{PoolAddress: pairAB, Fee: 300}

	fresh, skipped, err := FetchConstantProducts(context.Background(), reader, []*ConstantProduct{pool}, nil)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(skipped) != 0 || len(fresh) != 1 || fresh[0].Reserve0 != 23_595_096 {
		t.Fatalf("unexpected fetch result %+v %+v", fresh, skipped)
	}
	if pool.Reserve0 != 0 || pool.Token0 != (common.Address{}) {
		t.Fatalf("fetch wrote to the pool: %+v", *pool)
	}
}

func hybridReader(t *testing.T) *chaintest.Reader {
	reader := chaintest.NewReader()
	reader.Handle("poolMetadata", func(call chain.Call, _ *big.Int) ([]interface{}, error) {
		if call.Target != ammAddr {
			t.Fatalf("unexpected target %s", call.Target.Hex())
		}
		if stable, _ := call.Args[2].(bool); stable {
			return []interface{}{uint64(1_000_000), uint64(1_000_000), uint64(1_000), uint8(6), uint8(6)}, nil
		}
		return []interface{}{uint64(500), uint64(700), uint64(1_000), uint8(9), uint8(18)}, nil
	})
	reader.Handle("fees", func(chain.Call, *big.Int) ([]interface{}, error) {
		return []interface{}{uint64(30), uint64(5), uint64(0), uint64(0)}, nil
	})
	return reader
}

func TestPopulateHybrids(t *testing.T) {
	reader := hybridReader(t)
	stable := &Hybrid{AMM: ammAddr, ID: PoolID{Token0: tokenA, Token1: tokenB, Stable: true}}
	volatile := &Hybrid{AMM: ammAddr, ID: PoolID{Token0: tokenA, Token1: tokenB}}

	skipped, err := PopulateHybrids(context.Background(), reader, []*Hybrid{stable, volatile}, nil)
	if err != nil {
		t.Fatalf("populate hybrids: %v", err)
	}
	if len(skipped) != 0 {
		t.Fatalf("unexpected skipped pools %+v", skipped)
	}
	wantFees := Fees{LPFeeVolatile: 30, LPFeeStable: 5}
	if stable.Reserve0 != 1_000_000 || stable.Token0Decimals != 6 || stable.Fees != wantFees {
		t.Fatalf("unexpected stable pool %+v", *stable)
	}
	if volatile.Reserve1 != 700 || volatile.Token1Decimals != 18 || volatile.Fees != wantFees {
		t.Fatalf("unexpected volatile pool %+v", *volatile)
	}
	// one poolMetadata per pool plus a single fees read
	if reader.Calls != 3 || reader.Batches != 1 {
		t.Fatalf("expected 3 calls in 1 batch, got %d in %d", reader.Calls, reader.Batches)
	}
}

func TestSyncReservesMixedKinds(t *testing.T) {
	reader := hybridReader(t)
	pair := pairReader()
	reader.Handle("getReserves", func(call chain.Call, block *big.Int) ([]interface{}, error) {
		return pair.Call(context.Background(), call, block)
	})

	cp := NewConstantProduct(pairAB, tokenA, 18, tokenB, 9, 0, 0, 300)
	hy := NewHybrid(ammAddr, PoolID{Token0: tokenA, Token1: tokenB}, 9, 18, 0, 0, Fees{})
	if err := SyncReserves(context.Background(), reader, []Pool{cp, hy}, nil); err != nil {
		t.Fatalf("sync reserves: %v", err)
	}
	if cp.Reserve0 != 23_595_096 || hy.Reserve0 != 500 || hy.Reserve1 != 700 {
		t.Fatalf("unexpected reserves cp=%d/%d hybrid=%d/%d", cp.Reserve0, cp.Reserve1, hy.Reserve0, hy.Reserve1)
	}
	if IsUninitialized(cp) || IsUninitialized(hy) {
		t.Fatalf("pools should be initialized after sync")
	}
}

func TestHybridSyncWrapsChainError(t *testing.T) {
	reader := chaintest.NewReader()
	pool := NewHybrid(ammAddr, PoolID{Token0: tokenA, Token1: tokenB}, 9, 18, 1, 1, Fees{})
	err := pool.Sync(context.Background(), reader, nil)
	var chainErr *ChainError
	if !errors.As(err, &chainErr) || chainErr.Contract != ammAddr {
		t.Fatalf("expected chain error on %s, got %v", ammAddr.Hex(), err)
	}
}

func TestNewChainErrorDoesNotRewrap(t *testing.T) {
	if NewChainError("op", pairAB, nil) != nil {
		t.Fatalf("nil error should stay nil")
	}
	inner := NewChainError("getReserves", pairAB, errors.New("execution reverted"))
	outer := NewChainError("batch", common.Address{}, inner)
	if outer != inner {
		t.Fatalf("chain error rewrapped: %v", outer)
	}
	if inner.Error() != "chain getReserves on "+pairAB.Hex()+": execution reverted" {
		t.Fatalf("unexpected message %q", inner.Error())
	}
}
