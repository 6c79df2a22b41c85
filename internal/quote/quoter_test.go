package quote

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"poolSim/internal/amm"
	"poolSim/internal/chain"
	"poolSim/internal/chain/chaintest"
	"poolSim/internal/model"
)

var (
	usdc  = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	weth  = common.HexToAddress("0x00000000000000000000000000000000000000c2")
	pairA = common.HexToAddress("0x00000000000000000000000000000000000000e1")
	pairB = common.HexToAddress("0x00000000000000000000000000000000000000e2")
)

type memorySource []model.PoolRecord

func (m memorySource) LoadPools(context.Context) ([]model.PoolRecord, error) { return m, nil }

type memorySink struct {
	prices []model.PoolPrice
	calls  int
}

func (m *memorySink) PutPrices(_ context.Context, prices []model.PoolPrice) error {
	m.calls++
	m.prices = append(m.prices, prices...)
	return nil
}

type fixedHead struct{ block, ts uint64 }

func (h fixedHead) LatestBlockNumber(context.Context) (uint64, error) { return h.block, nil }

func (h fixedHead) BlockTimestamp(_ context.Context, number uint64) (uint64, error) {
	return h.ts + number - h.block, nil
}

func TestQuoterPricesBothDirections(t *testing.T) {
	source := memorySource{
		amm.ToRecord(amm.NewConstantProduct(pairA, usdc, 6, weth, 18, 5_000_000, 2_000_000_000_000_000_000, 300)),
		amm.ToRecord(amm.NewConstantProduct(pairB, usdc, 6, weth, 18, 0, 0, 300)),
	}
	sink := &memorySink{}
	q := NewQuoter(Config{BatchSize: 1}, source, nil, fixedHead{block: 500, ts: 1_700_000_000}, sink, nil)

	summary, err := q.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(500), summary.Block)
	require.Equal(t, 2, summary.Pools)
	require.Equal(t, 2, summary.Priced)
	require.Equal(t, 2, summary.Failed)

	require.Len(t, sink.prices, 2)
	first := sink.prices[0]
	require.Equal(t, pairA.Hex(), first.Pool)
	require.Equal(t, usdc.Hex(), first.BaseToken)
	require.Equal(t, weth.Hex(), first.QuoteToken)
	require.InDelta(t, 0.4, first.Price, 1e-12)
	require.Equal(t, "5", first.BaseReserve)
	require.Equal(t, "2", first.QuoteReserve)
	require.Equal(t, uint64(1_700_000_000), first.Timestamp)
	require.InDelta(t, 2.5, sink.prices[1].Price, 1e-12)
}

func TestQuoterSyncIsolatesFailingPool(t *testing.T) {
	reader := chaintest.NewReader()
	reader.Handle("getReserves", func(call chain.Call, _ *big.Int) ([]interface{}, error) {
		if call.Target == pairB {
			return nil, errors.New("execution reverted")
		}
		return []interface{}{big.NewInt(1_000_000), big.NewInt(1_000_000_000_000_000_000), uint32(0)}, nil
	})
	source := memorySource{
		amm.ToRecord(amm.NewConstantProduct(pairA, usdc, 6, weth, 18, 1, 1, 300)),
		amm.ToRecord(amm.NewConstantProduct(pairB, usdc, 6, weth, 18, 1, 1, 300)),
	}
	sink := &memorySink{}
	q := NewQuoter(Config{Block: 42, Sync: true}, source, reader, nil, sink, nil)

	summary, err := q.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, summary.Pools)
	require.Equal(t, 1, summary.Failed)
	require.Len(t, sink.prices, 2)
	require.Equal(t, uint64(42), sink.prices[0].BlockNumber)
	require.InDelta(t, 1.0, sink.prices[0].Price, 1e-12)
}

func TestQuoterSkipsInvalidRecords(t *testing.T) {
	bad := amm.ToRecord(amm.NewConstantProduct(pairA, usdc, 6, weth, 18, 1, 1, 300))
	bad.Kind = "concentrated"
	sink := &memorySink{}
	summary, err := NewQuoter(Config{}, memorySource{bad}, nil, nil, sink, nil).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, summary.Pools)
	require.Equal(t, 1, summary.Failed)
	require.Empty(t, sink.prices)
}

func TestFormatAndParseAmount(t *testing.T) {
	raw, err := ParseAmount("1.5", 18)
	require.NoError(t, err)
	require.Equal(t, "1500000000000000000", raw.ToBig().String())
	require.Equal(t, "1.5", FormatAmount(raw, 18))

	raw, err = ParseAmount("0.1234567", 6)
	require.NoError(t, err)
	require.Equal(t, uint64(123456), raw.Uint64())

	_, err = ParseAmount("-1", 6)
	require.Error(t, err)
	_, err = ParseAmount("abc", 6)
	require.Error(t, err)
}
