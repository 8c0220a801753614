// Package snapshot persists the durable subset of the credit-score flow under
// a single namespaced key. The storage medium is any KV implementation:
// memory, a JSON file, SQLite or the graph database.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"dario.cat/mergo"

	"github.com/vanshika/creditscore/internal/domain"
)

// DefaultKey is the namespace the flow writes to when none is configured.
const DefaultKey = "creditScoreFlow"

// KV is a durable key-value medium. Put overwrites the whole value for key.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Store is the persistence contract the flow depends on.
type Store interface {
	Load(ctx context.Context) (*domain.PersistedSnapshot, error)
	Save(ctx context.Context, partial domain.PersistedSnapshot) error
	Clear(ctx context.Context) error
}

// Adapter implements Store over a KV medium.
type Adapter struct {
	mu  sync.Mutex
	kv  KV
	key string
}

var _ Store = (*Adapter)(nil)

// ErrCorrupt marks a stored blob that cannot be decoded.
var ErrCorrupt = errors.New("snapshot: stored value is not a valid snapshot")

// New wraps kv, storing the snapshot under key (DefaultKey when empty).
func New(kv KV, key string) *Adapter {
	if key == "" {
		key = DefaultKey
	}
	return &Adapter{kv: kv, key: key}
}

// Key returns the namespace the adapter reads and writes.
func (a *Adapter) Key() string {
	return a.key
}

// Load returns the stored snapshot, or nil when nothing has been saved.
func (a *Adapter) Load(ctx context.Context) (*domain.PersistedSnapshot, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.load(ctx)
}

// Save shallow-merges partial into the stored snapshot: nil fields keep the
// stored value, set fields replace it wholesale.
func (a *Adapter) Save(ctx context.Context, partial domain.PersistedSnapshot) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	merged := domain.PersistedSnapshot{}
	existing, err := a.load(ctx)
	if err != nil && !errors.Is(err, ErrCorrupt) {
		return err
	}
	if existing != nil {
		merged = *existing
	}

	if err := mergo.Merge(&merged, partial, mergo.WithOverride, mergo.WithoutDereference); err != nil {
		return fmt.Errorf("merge snapshot: %w", err)
	}

	payload, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := a.kv.Put(ctx, a.key, payload); err != nil {
		return fmt.Errorf("write snapshot %s: %w", a.key, err)
	}
	return nil
}

// Clear removes the stored snapshot.
func (a *Adapter) Clear(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.kv.Delete(ctx, a.key); err != nil {
		return fmt.Errorf("delete snapshot %s: %w", a.key, err)
	}
	return nil
}

func (a *Adapter) load(ctx context.Context) (*domain.PersistedSnapshot, error) {
	raw, ok, err := a.kv.Get(ctx, a.key)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", a.key, err)
	}
	if !ok || len(raw) == 0 {
		return nil, nil
	}

	var snap domain.PersistedSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return &snap, nil
}
