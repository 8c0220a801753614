package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanshika/creditscore/internal/config"
	"github.com/vanshika/creditscore/internal/domain"
	"github.com/vanshika/creditscore/internal/graph"
)

func intPtr(v int) *int { return &v }

// kvFactories yields every medium that can run without external services.
func kvFactories(t *testing.T) map[string]func(t *testing.T) KV {
	return map[string]func(t *testing.T) KV{
		"memory": func(t *testing.T) KV { return NewMemoryKV() },
		"file": func(t *testing.T) KV {
			return NewFileKV(filepath.Join(t.TempDir(), "state.json"))
		},
		"sqlite": func(t *testing.T) KV {
			kv, err := OpenSQLiteKV(context.Background(), filepath.Join(t.TempDir(), "state.db"))
			require.NoError(t, err)
			t.Cleanup(func() { _ = kv.Close() })
			return kv
		},
	}
}

func TestAdapterLoadEmpty(t *testing.T) {
	for name, factory := range kvFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := New(factory(t), "")
			snap, err := store.Load(context.Background())
			require.NoError(t, err)
			assert.Nil(t, snap)
		})
	}
}

func TestAdapterMergeWriteKeepsEarlierFields(t *testing.T) {
	for name, factory := range kvFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := New(factory(t), DefaultKey)

			require.NoError(t, store.Save(ctx, domain.PersistedSnapshot{Score: intPtr(700)}))
			require.NoError(t, store.Save(ctx, domain.PersistedSnapshot{
				Subscription: &domain.Subscription{PlanID: domain.PlanElite},
			}))

			got, err := store.Load(ctx)
			require.NoError(t, err)

			want := &domain.PersistedSnapshot{
				Score:        intPtr(700),
				Subscription: &domain.Subscription{PlanID: domain.PlanElite},
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAdapterSaveReplacesFieldWholesale(t *testing.T) {
	ctx := context.Background()
	store := New(NewMemoryKV(), "")

	require.NoError(t, store.Save(ctx, domain.PersistedSnapshot{
		Score:    intPtr(640),
		UserForm: &domain.UserForm{Name: "Asha", PAN: "ABCDE1234F", Mobile: "9876543210", DOB: "1990-01-01"},
	}))
	require.NoError(t, store.Save(ctx, domain.PersistedSnapshot{
		Score:    intPtr(702),
		UserForm: &domain.UserForm{Name: "Asha Rao"},
	}))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 702, *got.Score)
	assert.Equal(t, domain.UserForm{Name: "Asha Rao"}, *got.UserForm, "no deep merge of nested records")
}

func TestAdapterDoesNotTouchOtherKeys(t *testing.T) {
	ctx := context.Background()
	kv := NewFileKV(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, kv.Put(ctx, "theme", []byte(`"dark"`)))

	store := New(kv, "creditScoreFlow")
	require.NoError(t, store.Save(ctx, domain.PersistedSnapshot{Score: intPtr(755)}))
	require.NoError(t, store.Clear(ctx))

	theme, ok, err := kv.Get(ctx, "theme")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `"dark"`, string(theme))

	snap, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestAdapterCorruptBlob(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	require.NoError(t, kv.Put(ctx, DefaultKey, []byte("{not json")))

	store := New(kv, "")
	_, err := store.Load(ctx)
	assert.ErrorIs(t, err, ErrCorrupt)

	require.NoError(t, store.Save(ctx, domain.PersistedSnapshot{Score: intPtr(610)}), "corrupt blob is replaced")
	snap, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 610, *snap.Score)
}

func TestFileKVPersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "state.json")

	require.NoError(t, New(NewFileKV(path), "").Save(ctx, domain.PersistedSnapshot{Score: intPtr(742)}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	snap, err := New(NewFileKV(path), "").Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, domain.StepPlanSelection, snap.ResumeStep())
}

func TestGraphKV(t *testing.T) {
	ctx := context.Background()
	mem := graph.NewMemoryClient()
	store := New(NewGraphKV(mem), "creditScoreFlow")

	require.NoError(t, store.Save(ctx, domain.PersistedSnapshot{Score: intPtr(701)}))

	writes := mem.WriteCalls()
	require.Len(t, writes, 1)
	assert.Equal(t, putSnapshotCypher, writes[0].Query)
	assert.Equal(t, "creditScoreFlow", writes[0].Params["key"])
	assert.JSONEq(t, `{"score":701}`, writes[0].Params["payload"].(string))

	mem.StubRead("FlowSnapshot", graph.Result{Records: []graph.Record{{"payload": `{"score":701,"subscription":{"planId":"basic"}}`}}})
	snap, err := store.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, domain.StepReportReady, snap.ResumeStep())

	require.NoError(t, store.Clear(ctx))
	assert.Equal(t, deleteSnapshotCypher, mem.WriteCalls()[1].Query)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	for _, driver := range []string{"memory", "file", "sqlite"} {
		t.Run(driver, func(t *testing.T) {
			store, closeFn, err := Open(ctx, config.FlowConfig{
				StoreDriver: driver,
				StorePath:   filepath.Join(dir, driver+".state"),
				StorageKey:  "k",
			}, nil)
			require.NoError(t, err)
			defer closeFn()
			assert.Equal(t, "k", store.Key())
		})
	}

	_, _, err := Open(ctx, config.FlowConfig{StoreDriver: "graph"}, nil)
	assert.Error(t, err)
	_, _, err = Open(ctx, config.FlowConfig{StoreDriver: "etcd"}, nil)
	assert.Error(t, err)
}
