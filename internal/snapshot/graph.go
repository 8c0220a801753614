package snapshot

import (
	"context"
	"time"

	"github.com/vanshika/creditscore/internal/graph"
)

const (
	getSnapshotCypher = `
MATCH (s:FlowSnapshot {key: $key})
RETURN s.payload AS payload`

	putSnapshotCypher = `
MERGE (s:FlowSnapshot {key: $key})
SET s.payload = $payload,
    s.updatedAt = $updatedAt`

	deleteSnapshotCypher = `
MATCH (s:FlowSnapshot {key: $key})
DETACH DELETE s`
)

// GraphKV stores values as FlowSnapshot nodes.
type GraphKV struct {
	client graph.Client
	nowFn  func() time.Time
}

// NewGraphKV wraps a graph client.
func NewGraphKV(client graph.Client) *GraphKV {
	return &GraphKV{client: client, nowFn: time.Now}
}

func (g *GraphKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	res, err := g.client.ExecuteRead(ctx, getSnapshotCypher, map[string]any{"key": key})
	if err != nil {
		return nil, false, err
	}
	rec, ok := res.First()
	if !ok {
		return nil, false, nil
	}
	payload := rec.String("payload")
	if payload == "" {
		return nil, false, nil
	}
	return []byte(payload), true, nil
}

func (g *GraphKV) Put(ctx context.Context, key string, value []byte) error {
	_, err := g.client.ExecuteWrite(ctx, putSnapshotCypher, map[string]any{
		"key":       key,
		"payload":   string(value),
		"updatedAt": g.nowFn().UTC().Format(time.RFC3339),
	})
	return err
}

func (g *GraphKV) Delete(ctx context.Context, key string) error {
	_, err := g.client.ExecuteWrite(ctx, deleteSnapshotCypher, map[string]any{"key": key})
	return err
}
