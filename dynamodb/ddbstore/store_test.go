package ddbstore

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/e-lopezc/serverless-product-catalog-api/dynamodb/ddbiface"
	"github.com/e-lopezc/serverless-product-catalog-api/dynamodb/table"
)

// Test table definitions
var singleTableDesign = table.TableDefinition{
	Name: "test-table",
	KeyDefinitions: table.PrimaryKeyDefinition{
		PartitionKey: table.KeyDef{Name: "pk", Kind: table.KeyKindS},
		SortKey:      table.KeyDef{Name: "sk", Kind: table.KeyKindS},
	},
	GSIs: []table.GSIDefinition{
		{
			Name: "gsi1",
			KeyDefinitions: table.PrimaryKeyDefinition{
				PartitionKey: table.KeyDef{Name: "gsi1pk", Kind: table.KeyKindS},
				SortKey:      table.KeyDef{Name: "gsi1sk", Kind: table.KeyKindS},
			},
		},
		{
			Name: "by-rank",
			KeyDefinitions: table.PrimaryKeyDefinition{
				PartitionKey: table.KeyDef{Name: "group", Kind: table.KeyKindS},
				SortKey:      table.KeyDef{Name: "rank", Kind: table.KeyKindN},
			},
		},
	},
}

func newTestStore(t *testing.T, opts ...func(*StoreOptions)) *Store {
	o := StoreOptions{InMemory: true}
	for _, opt := range opts {
		opt(&o)
	}
	store, err := New(o, singleTableDesign)
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

func sv(v string) types.AttributeValue { return &types.AttributeValueMemberS{Value: v} }
func nv(v string) types.AttributeValue { return &types.AttributeValueMemberN{Value: v} }

func key(pk, sk string) table.PrimaryKey { return singleTableDesign.Key(pk, sk) }

func TestStore_PutItem(t *testing.T) {
	t.Run("simple put and retrieve", func(t *testing.T) {
		store := newTestStore(t)
		ctx := context.Background()

		item := ddbiface.Item{
			"pk":   sv("test"),
			"sk":   sv("test"),
			"data": sv("hello world"),
			"tags": &types.AttributeValueMemberL{Value: []types.AttributeValue{sv("a"), nv("1")}},
		}
		require.NoError(t, store.PutItem(ctx, item, nil))

		got, err := store.GetItem(ctx, key("test", "test"))
		require.NoError(t, err)
		assert.Equal(t, item, got)
	})

	t.Run("overwrite existing item", func(t *testing.T) {
		store := newTestStore(t)
		ctx := context.Background()

		require.NoError(t, store.PutItem(ctx, ddbiface.Item{"pk": sv("a"), "sk": sv("a"), "data": sv("original")}, nil))
		require.NoError(t, store.PutItem(ctx, ddbiface.Item{"pk": sv("a"), "sk": sv("a"), "data": sv("updated")}, nil))

		got, err := store.GetItem(ctx, key("a", "a"))
		require.NoError(t, err)
		assert.Equal(t, sv("updated"), got["data"])
	})

	t.Run("item not exists condition", func(t *testing.T) {
		store := newTestStore(t)
		ctx := context.Background()
		item := ddbiface.Item{"pk": sv("a"), "sk": sv("a")}

		require.NoError(t, store.PutItem(ctx, item, ddbiface.ItemNotExists()))
		err := store.PutItem(ctx, item, ddbiface.ItemNotExists())
		require.ErrorIs(t, err, ddbiface.ErrConditionFailed)
		var ccf *types.ConditionalCheckFailedException
		assert.ErrorAs(t, err, &ccf)
	})

	t.Run("missing key attribute", func(t *testing.T) {
		store := newTestStore(t)
		err := store.PutItem(context.Background(), ddbiface.Item{"pk": sv("a")}, nil)
		require.Error(t, err)
	})
}

func TestStore_GetItem_NotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.GetItem(context.Background(), key("nope", "nope"))
	require.ErrorIs(t, err, ddbiface.ErrItemNotFound)
}

func TestStore_Conditions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.PutItem(ctx, ddbiface.Item{
		"pk": sv("a"), "sk": sv("a"), "owner": sv("x"), "version": nv("3"),
	}, nil))

	tests := []struct {
		name string
		cond ddbiface.Condition
		want bool
	}{
		{"nil", nil, true},
		{"item exists", ddbiface.ItemExists(), true},
		{"item not exists", ddbiface.ItemNotExists(), false},
		{"attribute exists", ddbiface.AttributeExists("owner"), true},
		{"attribute not exists", ddbiface.AttributeNotExists("owner"), false},
		{"equals", ddbiface.AttributeEquals("owner", "x"), true},
		{"equals other", ddbiface.AttributeEquals("owner", "y"), false},
		{"equals number", ddbiface.AttributeEquals("version", 3), true},
		{"equals number wrong", ddbiface.AttributeEquals("version", 4), false},
		{"equals missing attr", ddbiface.AttributeEquals("nope", "x"), false},
		{"or", ddbiface.Or(ddbiface.ItemNotExists(), ddbiface.AttributeEquals("owner", "x")), true},
		{"or none", ddbiface.Or(ddbiface.ItemNotExists(), ddbiface.AttributeEquals("owner", "y")), false},
		{"and", ddbiface.And(ddbiface.ItemExists(), ddbiface.AttributeEquals("version", 3)), true},
		{"and one fails", ddbiface.And(ddbiface.ItemExists(), ddbiface.AttributeEquals("version", 2)), false},
		{"empty and", ddbiface.And(), true},
		{"empty or", ddbiface.Or(), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.UpdateItem(ctx, key("a", "a"), ddbiface.Update{ddbiface.SetFieldOp("touched", tt.name)}, tt.cond)
			if tt.want {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ddbiface.ErrConditionFailed)
			}
		})
	}
}

func TestStore_UpdateItem(t *testing.T) {
	t.Run("set add remove", func(t *testing.T) {
		store := newTestStore(t)
		ctx := context.Background()
		require.NoError(t, store.PutItem(ctx, ddbiface.Item{
			"pk": sv("a"), "sk": sv("a"), "stock": nv("10"), "note": sv("x"),
		}, nil))

		got, err := store.UpdateItem(ctx, key("a", "a"), ddbiface.Update{
			ddbiface.AddNumberOp("stock", -3),
			ddbiface.SetFieldOp("name", "widget"),
			ddbiface.RemoveFieldOp("note"),
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, nv("7"), got["stock"])
		assert.Equal(t, sv("widget"), got["name"])
		assert.NotContains(t, got, "note")

		stored, err := store.GetItem(ctx, key("a", "a"))
		require.NoError(t, err)
		assert.Equal(t, got, stored)
	})

	t.Run("add to missing field starts at zero", func(t *testing.T) {
		store := newTestStore(t)
		ctx := context.Background()
		got, err := store.UpdateItem(ctx, key("new", "new"), ddbiface.Update{ddbiface.AddNumberOp("version", 1)}, nil)
		require.NoError(t, err)
		assert.Equal(t, nv("1"), got["version"])
		assert.Equal(t, sv("new"), got["pk"])
	})

	t.Run("failed condition leaves item unchanged", func(t *testing.T) {
		store := newTestStore(t)
		ctx := context.Background()
		require.NoError(t, store.PutItem(ctx, ddbiface.Item{"pk": sv("a"), "sk": sv("a"), "version": nv("1")}, nil))

		_, err := store.UpdateItem(ctx, key("a", "a"), ddbiface.Update{ddbiface.SetFieldOp("x", 1)},
			ddbiface.AttributeEquals("version", 2))
		require.ErrorIs(t, err, ddbiface.ErrConditionFailed)

		got, err := store.GetItem(ctx, key("a", "a"))
		require.NoError(t, err)
		assert.NotContains(t, got, "x")
	})

	t.Run("rejects key attribute update", func(t *testing.T) {
		store := newTestStore(t)
		_, err := store.UpdateItem(context.Background(), key("a", "a"), ddbiface.Update{ddbiface.SetFieldOp("sk", "b")}, nil)
		require.Error(t, err)
	})

	t.Run("add to non number", func(t *testing.T) {
		store := newTestStore(t)
		ctx := context.Background()
		require.NoError(t, store.PutItem(ctx, ddbiface.Item{"pk": sv("a"), "sk": sv("a"), "stock": sv("ten")}, nil))
		_, err := store.UpdateItem(ctx, key("a", "a"), ddbiface.Update{ddbiface.AddNumberOp("stock", 1)}, nil)
		require.Error(t, err)
	})

	t.Run("concurrent increments serialize", func(t *testing.T) {
		store := newTestStore(t, func(o *StoreOptions) { o.ConflictRetries = 1000 })
		ctx := context.Background()
		require.NoError(t, store.PutItem(ctx, ddbiface.Item{"pk": sv("c"), "sk": sv("c"), "count": nv("0")}, nil))

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 5; j++ {
					_, err := store.UpdateItem(ctx, key("c", "c"), ddbiface.Update{ddbiface.AddNumberOp("count", 1)}, nil)
					assert.NoError(t, err)
				}
			}()
		}
		wg.Wait()

		got, err := store.GetItem(ctx, key("c", "c"))
		require.NoError(t, err)
		assert.Equal(t, nv("50"), got["count"])
	})
}

func TestStore_DeleteItem(t *testing.T) {
	t.Run("returns old item and removes index entries", func(t *testing.T) {
		store := newTestStore(t)
		ctx := context.Background()
		item := ddbiface.Item{"pk": sv("a"), "sk": sv("a"), "gsi1pk": sv("g"), "gsi1sk": sv("1")}
		require.NoError(t, store.PutItem(ctx, item, nil))

		old, err := store.DeleteItem(ctx, key("a", "a"), nil)
		require.NoError(t, err)
		assert.Equal(t, item, old)

		_, err = store.GetItem(ctx, key("a", "a"))
		require.ErrorIs(t, err, ddbiface.ErrItemNotFound)

		page, err := store.Query(ctx, ddbiface.Query{Index: "gsi1", Partition: "g"})
		require.NoError(t, err)
		assert.Empty(t, page.Items)
	})

	t.Run("absent item without condition", func(t *testing.T) {
		store := newTestStore(t)
		old, err := store.DeleteItem(context.Background(), key("a", "a"), nil)
		require.NoError(t, err)
		assert.Nil(t, old)
	})

	t.Run("condition", func(t *testing.T) {
		store := newTestStore(t)
		ctx := context.Background()
		require.NoError(t, store.PutItem(ctx, ddbiface.Item{"pk": sv("a"), "sk": sv("a"), "owner": sv("x")}, nil))

		_, err := store.DeleteItem(ctx, key("a", "a"), ddbiface.AttributeEquals("owner", "y"))
		require.ErrorIs(t, err, ddbiface.ErrConditionFailed)

		_, err = store.DeleteItem(ctx, key("a", "a"), ddbiface.AttributeEquals("owner", "x"))
		require.NoError(t, err)
	})
}

func TestStore_Query(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.PutItem(ctx, ddbiface.Item{
			"pk":     sv("p"),
			"sk":     sv(fmt.Sprintf("item#%d", i)),
			"gsi1pk": sv("shared"),
			"gsi1sk": sv("same"),
			"group":  sv("g"),
			"rank":   nv(fmt.Sprintf("%d", 10-i*3)),
		}, nil))
	}
	require.NoError(t, store.PutItem(ctx, ddbiface.Item{"pk": sv("other"), "sk": sv("x")}, nil))
	require.NoError(t, store.PutItem(ctx, ddbiface.Item{"pk": sv("pp"), "sk": sv("x")}, nil))

	sks := func(items []ddbiface.Item) []string {
		var out []string
		for _, it := range items {
			out = append(out, it["sk"].(*types.AttributeValueMemberS).Value)
		}
		return out
	}

	t.Run("partition only", func(t *testing.T) {
		page, err := store.Query(ctx, ddbiface.Query{Partition: "p"})
		require.NoError(t, err)
		assert.Equal(t, []string{"item#0", "item#1", "item#2", "item#3", "item#4"}, sks(page.Items))
		assert.Nil(t, page.LastKey)
	})

	t.Run("descending", func(t *testing.T) {
		page, err := store.Query(ctx, ddbiface.Query{Partition: "p", Descending: true})
		require.NoError(t, err)
		assert.Equal(t, []string{"item#4", "item#3", "item#2", "item#1", "item#0"}, sks(page.Items))
	})

	t.Run("pagination", func(t *testing.T) {
		var all []string
		var start ddbiface.Item
		pages := 0
		for {
			page, err := store.Query(ctx, ddbiface.Query{Partition: "p", Limit: 2, StartKey: start})
			require.NoError(t, err)
			pages++
			all = append(all, sks(page.Items)...)
			if page.LastKey == nil {
				break
			}
			start = page.LastKey
		}
		assert.Equal(t, []string{"item#0", "item#1", "item#2", "item#3", "item#4"}, all)
		assert.Equal(t, 3, pages)
	})

	t.Run("descending pagination", func(t *testing.T) {
		first, err := store.Query(ctx, ddbiface.Query{Partition: "p", Limit: 2, Descending: true})
		require.NoError(t, err)
		second, err := store.Query(ctx, ddbiface.Query{Partition: "p", Limit: 2, Descending: true, StartKey: first.LastKey})
		require.NoError(t, err)
		assert.Equal(t, []string{"item#2", "item#1"}, sks(second.Items))
	})

	t.Run("gsi with duplicate keys", func(t *testing.T) {
		var all []string
		var start ddbiface.Item
		for {
			page, err := store.Query(ctx, ddbiface.Query{Index: "gsi1", Partition: "shared", Limit: 2, StartKey: start})
			require.NoError(t, err)
			all = append(all, sks(page.Items)...)
			if page.LastKey == nil {
				break
			}
			assert.Contains(t, page.LastKey, "gsi1pk")
			assert.Contains(t, page.LastKey, "pk")
			start = page.LastKey
		}
		assert.Len(t, all, 5)
	})

	t.Run("numeric gsi sort key orders by value", func(t *testing.T) {
		page, err := store.Query(ctx, ddbiface.Query{Index: "by-rank", Partition: "g"})
		require.NoError(t, err)
		// ranks are 10, 7, 4, 1, -2
		assert.Equal(t, []string{"item#4", "item#3", "item#2", "item#1", "item#0"}, sks(page.Items))
	})

	t.Run("start key from another partition", func(t *testing.T) {
		_, err := store.Query(ctx, ddbiface.Query{Partition: "p", StartKey: ddbiface.Item{"pk": sv("other"), "sk": sv("x")}})
		require.Error(t, err)
	})

	t.Run("unknown index", func(t *testing.T) {
		_, err := store.Query(ctx, ddbiface.Query{Index: "nope", Partition: "p"})
		require.Error(t, err)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := store.Query(cctx, ddbiface.Query{Partition: "p"})
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestStore_GSIMaintenance(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.PutItem(ctx, ddbiface.Item{"pk": sv("a"), "sk": sv("a"), "gsi1pk": sv("old"), "gsi1sk": sv("1")}, nil))
	_, err := store.UpdateItem(ctx, key("a", "a"), ddbiface.Update{ddbiface.SetFieldOp("gsi1pk", "new")}, nil)
	require.NoError(t, err)

	old, err := store.Query(ctx, ddbiface.Query{Index: "gsi1", Partition: "old"})
	require.NoError(t, err)
	assert.Empty(t, old.Items)

	moved, err := store.Query(ctx, ddbiface.Query{Index: "gsi1", Partition: "new"})
	require.NoError(t, err)
	require.Len(t, moved.Items, 1)

	// Removing an index key attribute drops the item from the index.
	_, err = store.UpdateItem(ctx, key("a", "a"), ddbiface.Update{ddbiface.RemoveFieldOp("gsi1sk")}, nil)
	require.NoError(t, err)
	moved, err = store.Query(ctx, ddbiface.Query{Index: "gsi1", Partition: "new"})
	require.NoError(t, err)
	assert.Empty(t, moved.Items)
}

func TestStore_ConflictRetriesExhausted(t *testing.T) {
	store := newTestStore(t, func(o *StoreOptions) { o.ConflictRetries = 3 })

	calls := 0
	err := store.update(context.Background(), func(*badger.Txn) error {
		calls++
		return badger.ErrConflict
	})
	require.ErrorIs(t, err, ddbiface.ErrContention)
	assert.NotErrorIs(t, err, ddbiface.ErrUnavailable)
	assert.Equal(t, 3, calls)
}

func TestEncodeKeyValue_Ordering(t *testing.T) {
	enc := func(v any, kind table.KeyKind) []byte {
		b, err := encodeKeyValue(v, kind)
		require.NoError(t, err)
		return b
	}
	assert.Less(t, string(enc("a", table.KeyKindS)), string(enc("ab", table.KeyKindS)))
	assert.Less(t, string(enc("a\x00", table.KeyKindS)), string(enc("a\x01", table.KeyKindS)))
	assert.Less(t, string(enc("-5", table.KeyKindN)), string(enc("-1", table.KeyKindN)))
	assert.Less(t, string(enc("2", table.KeyKindN)), string(enc("10", table.KeyKindN)))
	assert.NotContains(t, string(enc("a\x00b", table.KeyKindS)), "\x00")

	_, err := encodeKeyValue(12, table.KeyKindS)
	require.Error(t, err)
}
