package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"swapRouter/internal/model"
)

const lockRetryDelay = 25 * time.Millisecond

// FileStateStore keeps the router checkpoint in a single JSON file. Writes go
// to a temp file that is renamed over the target while holding a file lock.
type FileStateStore struct {
	path        string
	lock        *flock.Flock
	lockTimeout time.Duration
}

// NewFileStateStore uses lockPath, or path+".lock" when empty.
func NewFileStateStore(path, lockPath string) *FileStateStore {
	if lockPath == "" {
		lockPath = path + ".lock"
	}
	return &FileStateStore{
		path:        path,
		lock:        flock.New(lockPath),
		lockTimeout: 5 * time.Second,
	}
}

func (s *FileStateStore) Load(ctx context.Context) (model.RouterState, bool, error) {
	if err := ctx.Err(); err != nil {
		return model.RouterState{}, false, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return model.RouterState{}, false, nil
		}
		return model.RouterState{}, false, fmt.Errorf("read state file: %w", err)
	}
	state, err := DecodeState(data)
	if err != nil {
		return model.RouterState{}, false, err
	}
	return state, true, nil
}

func (s *FileStateStore) Save(ctx context.Context, state model.RouterState) error {
	payload, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal router state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.lock.Path()), 0o755); err != nil {
		return fmt.Errorf("create lock dir: %w", err)
	}

	unlock, err := acquire(ctx, s.lock, s.lockTimeout)
	if err != nil {
		return err
	}
	defer unlock()

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp state: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp state: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("sync temp state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp state: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}

// acquire takes lock, retrying until timeout or ctx expires.
func acquire(ctx context.Context, lock *flock.Flock, timeout time.Duration) (func(), error) {
	lockCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	locked, err := lock.TryLockContext(lockCtx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("lock state: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("lock state: timeout acquiring lock")
	}
	return func() { _ = lock.Unlock() }, nil
}

// DecodeState parses a checkpoint and fills nil maps.
func DecodeState(data []byte) (model.RouterState, error) {
	var state model.RouterState
	if err := json.Unmarshal(data, &state); err != nil {
		return model.RouterState{}, fmt.Errorf("decode router state: %w", err)
	}
	if state.Admins == nil {
		state.Admins = make(map[model.Address]bool)
	}
	if state.Exchanges == nil {
		state.Exchanges = make(map[model.Address]model.PairInfo)
	}
	return state, nil
}
