package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"swapRouter/internal/model"
	"swapRouter/internal/storage"
)

// Store keeps router checkpoints and pool snapshots in a local SQLite file.
type Store struct {
	db   *sql.DB
	lock *flock.Flock
	name string
}

// Open creates the database and schema if needed. name keys the router
// checkpoint; empty means storage.DefaultStateName.
func Open(path, lockPath, name string) (*Store, error) {
	if lockPath == "" {
		lockPath = path + ".lock"
	}
	if name == "" {
		name = storage.DefaultStateName
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open state sqlite: %w", err)
	}

	queries := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		`CREATE TABLE IF NOT EXISTS router_state (
			name TEXT PRIMARY KEY,
			payload BLOB NOT NULL,
			updated_at INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS pools (
			pool_address TEXT PRIMARY KEY,
			engine TEXT NOT NULL,
			reserve1 TEXT NOT NULL,
			reserve2 TEXT NOT NULL,
			total_supply TEXT NOT NULL,
			updated_at INTEGER NOT NULL,
			payload BLOB NOT NULL
		);`,
	}
	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init state schema: %w", err)
		}
	}
	return &Store{db: db, lock: flock.New(lockPath), name: name}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Load(ctx context.Context) (model.RouterState, bool, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, "SELECT payload FROM router_state WHERE name = ?", s.name).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.RouterState{}, false, nil
		}
		return model.RouterState{}, false, fmt.Errorf("read router state: %w", err)
	}
	state, err := storage.DecodeState(payload)
	if err != nil {
		return model.RouterState{}, false, err
	}
	return state, true, nil
}

func (s *Store) Save(ctx context.Context, state model.RouterState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal router state: %w", err)
	}
	unlock, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO router_state (name, payload, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			payload=excluded.payload,
			updated_at=excluded.updated_at
	`, s.name, payload, time.Now().UTC().Unix())
	if err != nil {
		return fmt.Errorf("save router state: %w", err)
	}
	return nil
}

// UpsertPools writes every snapshot in one transaction.
func (s *Store) UpsertPools(ctx context.Context, pools []model.PoolSnapshot) error {
	if len(pools) == 0 {
		return nil
	}
	unlock, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin pool upsert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, pool := range pools {
		payload, err := json.Marshal(pool)
		if err != nil {
			return fmt.Errorf("marshal pool %s: %w", pool.Address.Hex(), err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO pools (pool_address, engine, reserve1, reserve2, total_supply, updated_at, payload)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(pool_address) DO UPDATE SET
				engine=excluded.engine,
				reserve1=excluded.reserve1,
				reserve2=excluded.reserve2,
				total_supply=excluded.total_supply,
				updated_at=excluded.updated_at,
				payload=excluded.payload
		`,
			pool.Address.Hex(),
			pool.Engine,
			intString(pool.Reserve1),
			intString(pool.Reserve2),
			intString(pool.TotalSupply),
			pool.UpdatedAt.UTC().Unix(),
			payload,
		)
		if err != nil {
			return fmt.Errorf("upsert pool %s: %w", pool.Address.Hex(), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit pool upsert: %w", err)
	}
	return nil
}

// Pools returns every stored snapshot ordered by address.
func (s *Store) Pools(ctx context.Context) ([]model.PoolSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT payload FROM pools ORDER BY pool_address")
	if err != nil {
		return nil, fmt.Errorf("list pools: %w", err)
	}
	defer rows.Close()

	pools := make([]model.PoolSnapshot, 0)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan pool row: %w", err)
		}
		var pool model.PoolSnapshot
		if err := json.Unmarshal(payload, &pool); err != nil {
			return nil, fmt.Errorf("decode pool row: %w", err)
		}
		pools = append(pools, pool)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pool rows: %w", err)
	}
	return pools, nil
}

func (s *Store) acquire(ctx context.Context) (func(), error) {
	lockCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	locked, err := s.lock.TryLockContext(lockCtx, 25*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("lock state store: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("lock state store: timeout acquiring lock")
	}
	return func() { _ = s.lock.Unlock() }, nil
}

func intString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
