package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"swapRouter/internal/model"
	"swapRouter/internal/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS router_state (
	name TEXT PRIMARY KEY,
	payload JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS pools (
	pool_address TEXT PRIMARY KEY,
	engine TEXT NOT NULL,
	token1 TEXT NOT NULL,
	token2 TEXT NOT NULL,
	reserve1 NUMERIC NOT NULL,
	reserve2 NUMERIC NOT NULL,
	total_supply NUMERIC NOT NULL,
	fee_divisor NUMERIC NOT NULL,
	fee_accum1 NUMERIC NOT NULL,
	fee_accum2 NUMERIC NOT NULL,
	forwarding BOOLEAN NOT NULL,
	paused BOOLEAN NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);`

// Store provides Postgres persistence for router checkpoints and pool
// snapshots.
type Store struct {
	pool *pgxpool.Pool
	name string
}

// NewStore connects to dsn. name keys the router checkpoint; empty means
// storage.DefaultStateName.
func NewStore(ctx context.Context, dsn, name string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	if name == "" {
		name = storage.DefaultStateName
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool, name: name}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the tables used by the store. It is the first round
// trip after NewStore, so it retries while the server comes up.
func (s *Store) EnsureSchema(ctx context.Context) error {
	err := schemaRetry.do(ctx, func(ctx context.Context) error {
		_, err := s.pool.Exec(ctx, schema)
		return err
	})
	if err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// UpsertPools inserts or updates pool snapshots.
func (s *Store) UpsertPools(ctx context.Context, pools []model.PoolSnapshot) error {
	if len(pools) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, pool := range pools {
		batch.Queue(`
			INSERT INTO pools (
				pool_address, engine, token1, token2, reserve1, reserve2, total_supply,
				fee_divisor, fee_accum1, fee_accum2, forwarding, paused, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7::numeric, $8::numeric, $9::numeric, $10::numeric, $11, $12, $13, $13)
			ON CONFLICT (pool_address)
			DO UPDATE SET
				engine = EXCLUDED.engine,
				reserve1 = EXCLUDED.reserve1,
				reserve2 = EXCLUDED.reserve2,
				total_supply = EXCLUDED.total_supply,
				fee_divisor = EXCLUDED.fee_divisor,
				fee_accum1 = EXCLUDED.fee_accum1,
				fee_accum2 = EXCLUDED.fee_accum2,
				forwarding = EXCLUDED.forwarding,
				paused = EXCLUDED.paused,
				updated_at = EXCLUDED.updated_at
		`,
			pool.Address.Hex(),
			pool.Engine,
			pool.Token1.String(),
			pool.Token2.String(),
			numeric(pool.Reserve1),
			numeric(pool.Reserve2),
			numeric(pool.TotalSupply),
			numeric(pool.FeeDivisor),
			numeric(pool.FeeAccum1),
			numeric(pool.FeeAccum2),
			pool.Forwarding,
			pool.Paused,
			pool.UpdatedAt,
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

// Load returns the router checkpoint.
func (s *Store) Load(ctx context.Context) (model.RouterState, bool, error) {
	var payload []byte
	row := s.pool.QueryRow(ctx, `SELECT payload FROM router_state WHERE name=$1`, s.name)
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.RouterState{}, false, nil
		}
		return model.RouterState{}, false, err
	}
	state, err := storage.DecodeState(payload)
	if err != nil {
		return model.RouterState{}, false, err
	}
	return state, true, nil
}

// Save upserts the router checkpoint.
func (s *Store) Save(ctx context.Context, state model.RouterState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal router state: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO router_state (name, payload, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET payload = EXCLUDED.payload, updated_at = now()
	`, s.name, payload)
	return err
}

func numeric(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
