package idtable

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/treebridge/treebridge/internal/tree"
)

func tables(t *testing.T) map[string]Table {
	t.Helper()
	sqliteTable, err := OpenSQLite(filepath.Join(t.TempDir(), "idtable.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqliteTable.Close() })

	return map[string]Table{
		"memory": NewMemoryTable(),
		"sqlite": sqliteTable,
	}
}

func TestTableAddAndLookup(t *testing.T) {
	ctx := context.Background()
	for name, table := range tables(t) {
		t.Run(name, func(t *testing.T) {
			id, parent := tree.NewID(), tree.NewID()
			require.NoError(t, table.Add(ctx, Entry{Prefix: "people", Key: "a@x.com", ID: id, ParentID: parent}))

			entry, err := table.GetID(ctx, "people", "a@x.com")
			require.NoError(t, err)
			assert.Equal(t, id, entry.ID)
			assert.Equal(t, parent, entry.ParentID)

			keys, err := table.GetKeys(ctx, "people", id)
			require.NoError(t, err)
			require.Len(t, keys, 1)
			assert.Equal(t, "a@x.com", keys[0].Key)

			_, err = table.GetID(ctx, "other", "a@x.com")
			assert.ErrorIs(t, err, ErrNotFound)

			keys, err = table.GetKeys(ctx, "other", id)
			require.NoError(t, err)
			assert.Empty(t, keys)
		})
	}
}

func TestTableRejectsDuplicateKey(t *testing.T) {
	ctx := context.Background()
	for name, table := range tables(t) {
		t.Run(name, func(t *testing.T) {
			first := tree.NewID()
			require.NoError(t, table.Add(ctx, Entry{Prefix: "p", Key: "k", ID: first}))
			err := table.Add(ctx, Entry{Prefix: "p", Key: "k", ID: tree.NewID()})
			assert.ErrorIs(t, err, ErrDuplicate)

			entry, err := table.GetID(ctx, "p", "k")
			require.NoError(t, err)
			assert.Equal(t, first, entry.ID, "duplicate insert must not replace the original entry")
		})
	}
}

func TestTableRejectsInvalidEntry(t *testing.T) {
	ctx := context.Background()
	for name, table := range tables(t) {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, table.Add(ctx, Entry{Prefix: "p", ID: tree.NewID()}), ErrInvalidEntry)
			assert.ErrorIs(t, table.Add(ctx, Entry{Prefix: "p", Key: "k"}), ErrInvalidEntry)
		})
	}
}

func TestTableListKeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	for name, table := range tables(t) {
		t.Run(name, func(t *testing.T) {
			var ids []tree.ID
			for _, key := range []string{"c", "a", "b"} {
				id := tree.NewID()
				ids = append(ids, id)
				require.NoError(t, table.Add(ctx, Entry{Prefix: "p", Key: key, ID: id}))
			}
			require.NoError(t, table.Add(ctx, Entry{Prefix: "q", Key: "z", ID: tree.NewID()}))

			entries, err := table.List(ctx, "p")
			require.NoError(t, err)
			require.Len(t, entries, 3)
			for i, e := range entries {
				assert.Equal(t, ids[i], e.ID)
			}
		})
	}
}

func TestSQLiteTableSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "idtable.db")

	table, err := OpenSQLite(path)
	require.NoError(t, err)
	id := tree.NewID()
	require.NoError(t, table.Add(ctx, Entry{Prefix: "p", Key: "k", ID: id, ParentID: tree.NewID()}))
	require.NoError(t, table.Close())

	reopened, err := OpenSQLite(path)
	require.NoError(t, err)
	defer reopened.Close()

	entry, err := reopened.GetID(ctx, "p", "k")
	require.NoError(t, err)
	assert.Equal(t, id, entry.ID)
}

func TestMinterIsIdempotent(t *testing.T) {
	ctx := context.Background()
	for name, table := range tables(t) {
		t.Run(name, func(t *testing.T) {
			m := NewMinter(table)
			parent := tree.NewID()

			first, err := m.CreateOrGetID(ctx, "people", "a@x.com", parent)
			require.NoError(t, err)
			second, err := m.CreateOrGetID(ctx, "people", "a@x.com", tree.NewID())
			require.NoError(t, err)
			assert.Equal(t, first, second)

			entry, err := table.GetID(ctx, "people", "a@x.com")
			require.NoError(t, err)
			assert.Equal(t, parent, entry.ParentID, "declared parent is fixed at first sight")

			other, err := m.CreateOrGetID(ctx, "other", "a@x.com", parent)
			require.NoError(t, err)
			assert.NotEqual(t, first, other, "prefixes scope the mapping")
		})
	}
}

func TestMinterConcurrentCallersShareID(t *testing.T) {
	ctx := context.Background()
	for name, table := range tables(t) {
		t.Run(name, func(t *testing.T) {
			m := NewMinter(table)
			const workers = 16

			var wg sync.WaitGroup
			ids := make([]tree.ID, workers)
			errs := make([]error, workers)
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func(n int) {
					defer wg.Done()
					ids[n], errs[n] = m.CreateOrGetID(ctx, "people", "same@x.com", tree.NullID)
				}(i)
			}
			wg.Wait()

			for i := 0; i < workers; i++ {
				require.NoError(t, errs[i])
				assert.Equal(t, ids[0], ids[i])
			}
			entries, err := table.List(ctx, "people")
			require.NoError(t, err)
			assert.Len(t, entries, 1)
		})
	}
}

func TestMinterRecoversFromConcurrentWriter(t *testing.T) {
	ctx := context.Background()
	table := NewMemoryTable()
	m := NewMinter(table)

	winner := tree.NewID()
	m.newID = func() tree.ID {
		// 模拟另一个进程在查找与写入之间抢先写入。
		_ = table.Add(ctx, Entry{Prefix: "p", Key: "k", ID: winner})
		return tree.NewID()
	}

	id, err := m.CreateOrGetID(ctx, "p", "k", tree.NullID)
	require.NoError(t, err)
	assert.Equal(t, winner, id)
}

func TestMinterRejectsEmptyKey(t *testing.T) {
	_, err := NewMinter(NewMemoryTable()).CreateOrGetID(context.Background(), "p", "", tree.NullID)
	assert.ErrorIs(t, err, ErrInvalidEntry)
}
