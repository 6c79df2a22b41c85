package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"poolSim/internal/model"
)

// Schema creates the tables used by Store.
const Schema = `
CREATE TABLE IF NOT EXISTS poolsim_pools (
	pool_address    TEXT PRIMARY KEY,
	kind            TEXT NOT NULL,
	factory         TEXT NOT NULL DEFAULT '',
	amm             TEXT NOT NULL DEFAULT '',
	token0          TEXT NOT NULL,
	token0_decimals SMALLINT NOT NULL,
	token1          TEXT NOT NULL,
	token1_decimals SMALLINT NOT NULL,
	reserve0        NUMERIC(20,0) NOT NULL,
	reserve1        NUMERIC(20,0) NOT NULL,
	fee             NUMERIC(20,0),
	lp_fee_volatile       NUMERIC(20,0),
	lp_fee_stable         NUMERIC(20,0),
	protocol_fee_volatile NUMERIC(20,0),
	protocol_fee_stable   NUMERIC(20,0),
	is_stable       BOOLEAN,
	block_number    BIGINT NOT NULL DEFAULT 0,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS poolsim_prices (
	pool_address  TEXT NOT NULL,
	base_token    TEXT NOT NULL,
	block_number  BIGINT NOT NULL,
	kind          TEXT NOT NULL,
	quote_token   TEXT NOT NULL,
	price         DOUBLE PRECISION NOT NULL,
	base_reserve  NUMERIC NOT NULL,
	quote_reserve NUMERIC NOT NULL,
	block_ts      BIGINT NOT NULL,
	priced_at     TEXT NOT NULL,
	PRIMARY KEY (pool_address, base_token, block_number)
);
CREATE TABLE IF NOT EXISTS poolsim_state (
	name       TEXT PRIMARY KEY,
	value      BIGINT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Store provides Postgres persistence for the pool catalog, prices and
// discovery state.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates missing tables.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, Schema)
	return err
}

// PutPools inserts or updates pool snapshots.
func (s *Store) PutPools(ctx context.Context, pools []model.PoolRecord) error {
	if len(pools) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, p := range pools {
		var lpVolatile, lpStable, protocolVolatile, protocolStable *string
		if p.Fees != nil {
			lpVolatile = numeric(p.Fees.LPFeeVolatile)
			lpStable = numeric(p.Fees.LPFeeStable)
			protocolVolatile = numeric(p.Fees.ProtocolFeeVolatile)
			protocolStable = numeric(p.Fees.ProtocolFeeStable)
		}
		var fee *string
		if p.Fee != nil {
			fee = numeric(*p.Fee)
		}
		batch.Queue(`
			INSERT INTO poolsim_pools (
				pool_address, kind, factory, amm, token0, token0_decimals, token1, token1_decimals,
				reserve0, reserve1, fee, lp_fee_volatile, lp_fee_stable, protocol_fee_volatile,
				protocol_fee_stable, is_stable, block_number, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9::numeric,$10::numeric,$11::numeric,$12::numeric,$13::numeric,$14::numeric,$15::numeric,$16,$17,now(),now())
			ON CONFLICT (pool_address)
			DO UPDATE SET
				kind = EXCLUDED.kind,
				factory = EXCLUDED.factory,
				amm = EXCLUDED.amm,
				token0 = EXCLUDED.token0,
				token0_decimals = EXCLUDED.token0_decimals,
				token1 = EXCLUDED.token1,
				token1_decimals = EXCLUDED.token1_decimals,
				reserve0 = EXCLUDED.reserve0,
				reserve1 = EXCLUDED.reserve1,
				fee = EXCLUDED.fee,
				lp_fee_volatile = EXCLUDED.lp_fee_volatile,
				lp_fee_stable = EXCLUDED.lp_fee_stable,
				protocol_fee_volatile = EXCLUDED.protocol_fee_volatile,
				protocol_fee_stable = EXCLUDED.protocol_fee_stable,
				is_stable = EXCLUDED.is_stable,
				block_number = EXCLUDED.block_number,
				updated_at = now()
		`,
			p.Address,
			p.Kind,
			p.Factory,
			p.AMM,
			p.Token0,
			int16(p.Token0Decimals),
			p.Token1,
			int16(p.Token1Decimals),
			*numeric(p.Reserve0),
			*numeric(p.Reserve1),
			fee,
			lpVolatile,
			lpStable,
			protocolVolatile,
			protocolStable,
			p.IsStable,
			int64(p.Block),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range pools {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LoadPools returns every stored pool snapshot ordered by address.
func (s *Store) LoadPools(ctx context.Context) ([]model.PoolRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT pool_address, kind, factory, amm, token0, token0_decimals, token1, token1_decimals,
			reserve0::text, reserve1::text, fee::text, lp_fee_volatile::text, lp_fee_stable::text,
			protocol_fee_volatile::text, protocol_fee_stable::text, is_stable, block_number
		FROM poolsim_pools
		ORDER BY pool_address
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.PoolRecord
	for rows.Next() {
		var (
			r                                              model.PoolRecord
			dec0, dec1                                     int16
			reserve0, reserve1                             string
			fee, lpVolatile, lpStable, protoVol, protoStab *string
			block                                          int64
		)
		if err := rows.Scan(
			&r.Address, &r.Kind, &r.Factory, &r.AMM, &r.Token0, &dec0, &r.Token1, &dec1,
			&reserve0, &reserve1, &fee, &lpVolatile, &lpStable, &protoVol, &protoStab, &r.IsStable, &block,
		); err != nil {
			return nil, err
		}
		r.Token0Decimals = uint8(dec0)
		r.Token1Decimals = uint8(dec1)
		r.Block = uint64(block)
		if r.Reserve0, err = strconv.ParseUint(reserve0, 10, 64); err != nil {
			return nil, fmt.Errorf("pool %s reserve0: %w", r.Address, err)
		}
		if r.Reserve1, err = strconv.ParseUint(reserve1, 10, 64); err != nil {
			return nil, fmt.Errorf("pool %s reserve1: %w", r.Address, err)
		}
		if fee != nil {
			v, err := strconv.ParseUint(*fee, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("pool %s fee: %w", r.Address, err)
			}
			r.Fee = &v
		}
		if lpVolatile != nil {
			fees, err := parseFees(*lpVolatile, deref(lpStable), deref(protoVol), deref(protoStab))
			if err != nil {
				return nil, fmt.Errorf("pool %s fees: %w", r.Address, err)
			}
			r.Fees = &fees
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// PutPrices inserts or updates price records.
func (s *Store) PutPrices(ctx context.Context, prices []model.PoolPrice) error {
	if len(prices) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, p := range prices {
		batch.Queue(`
			INSERT INTO poolsim_prices (
				pool_address, base_token, block_number, kind, quote_token, price,
				base_reserve, quote_reserve, block_ts, priced_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7::numeric,$8::numeric,$9,$10)
			ON CONFLICT (pool_address, base_token, block_number)
			DO UPDATE SET
				price = EXCLUDED.price,
				base_reserve = EXCLUDED.base_reserve,
				quote_reserve = EXCLUDED.quote_reserve,
				block_ts = EXCLUDED.block_ts,
				priced_at = EXCLUDED.priced_at
		`,
			p.Pool,
			p.BaseToken,
			int64(p.BlockNumber),
			p.Kind,
			p.QuoteToken,
			p.Price,
			p.BaseReserve,
			p.QuoteReserve,
			int64(p.Timestamp),
			p.PricedAt,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range prices {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LoadState returns the stored value for a name.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var value int64
	row := s.pool.QueryRow(ctx, `SELECT value FROM poolsim_state WHERE name=$1`, name)
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return uint64(value), true, nil
}

// SaveState upserts the value for a name.
func (s *Store) SaveState(ctx context.Context, name string, value uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO poolsim_state (name, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET value = EXCLUDED.value, updated_at = now()
	`, name, int64(value))
	return err
}

func numeric(v uint64) *string {
	s := strconv.FormatUint(v, 10)
	return &s
}

func deref(s *string) string {
	if s == nil {
		return "0"
	}
	return *s
}

func parseFees(lpVolatile, lpStable, protocolVolatile, protocolStable string) (model.HybridFees, error) {
	var fees model.HybridFees
	dst := []*uint64{&fees.LPFeeVolatile, &fees.LPFeeStable, &fees.ProtocolFeeVolatile, &fees.ProtocolFeeStable}
	for i, raw := range []string{lpVolatile, lpStable, protocolVolatile, protocolStable} {
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return fees, err
		}
		*dst[i] = v
	}
	return fees, nil
}
