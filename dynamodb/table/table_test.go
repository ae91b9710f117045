package table

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTable = TableDefinition{
	Name: "test",
	KeyDefinitions: PrimaryKeyDefinition{
		PartitionKey: KeyDef{Name: "PK", Kind: KeyKindS},
		SortKey:      KeyDef{Name: "SK", Kind: KeyKindS},
	},
	GSIs: []GSIDefinition{
		{
			Name: "by-owner",
			KeyDefinitions: PrimaryKeyDefinition{
				PartitionKey: KeyDef{Name: "owner", Kind: KeyKindS},
				SortKey:      KeyDef{Name: "rank", Kind: KeyKindN},
			},
		},
		{
			Name: "hash-only",
			KeyDefinitions: PrimaryKeyDefinition{
				PartitionKey: KeyDef{Name: "tag", Kind: KeyKindS},
			},
		},
	},
}

func TestPrimaryKey_Marshal(t *testing.T) {
	t.Run("partition and sort", func(t *testing.T) {
		got, err := testTable.Key("a", "b").Marshal()
		require.NoError(t, err)
		assert.Equal(t, map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: "a"},
			"SK": &types.AttributeValueMemberS{Value: "b"},
		}, got)
	})

	t.Run("missing sort key", func(t *testing.T) {
		_, err := testTable.Key("a", nil).Marshal()
		require.Error(t, err)
	})

	t.Run("kind mismatch", func(t *testing.T) {
		_, err := testTable.Key(12, "b").Marshal()
		require.Error(t, err)
	})

	t.Run("hash only index", func(t *testing.T) {
		g, ok := testTable.GSI("hash-only")
		require.True(t, ok)
		got, err := PrimaryKey{Definition: g.KeyDefinitions, Values: PrimaryKeyValues{PartitionKey: "x"}}.Marshal()
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})

	t.Run("DDB panics on bad key", func(t *testing.T) {
		assert.Panics(t, func() { testTable.Key("a", nil).DDB() })
	})
}

func TestExtractPrimaryKey(t *testing.T) {
	doc := map[string]types.AttributeValue{
		"PK":    &types.AttributeValueMemberS{Value: "a"},
		"SK":    &types.AttributeValueMemberS{Value: "b"},
		"owner": &types.AttributeValueMemberS{Value: "o"},
		"rank":  &types.AttributeValueMemberN{Value: "3"},
	}

	pk, err := testTable.ExtractPrimaryKey(doc)
	require.NoError(t, err)
	assert.Equal(t, PrimaryKeyValues{PartitionKey: "a", SortKey: "b"}, pk.Values)

	g, _ := testTable.GSI("by-owner")
	gk, err := g.ExtractPrimaryKey(doc)
	require.NoError(t, err)
	assert.Equal(t, PrimaryKeyValues{PartitionKey: "o", SortKey: "3"}, gk.Values)

	_, err = testTable.ExtractPrimaryKey(map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: "a"},
	})
	require.Error(t, err)

	_, err = testTable.ExtractPrimaryKey(map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberN{Value: "1"},
		"SK": &types.AttributeValueMemberS{Value: "b"},
	})
	require.Error(t, err)
}

func TestTableDefinition_Validate(t *testing.T) {
	require.NoError(t, testTable.Validate())

	tests := []struct {
		name string
		def  TableDefinition
	}{
		{"no name", TableDefinition{KeyDefinitions: testTable.KeyDefinitions}},
		{"no partition key", TableDefinition{Name: "x"}},
		{"duplicate gsi", TableDefinition{
			Name:           "x",
			KeyDefinitions: testTable.KeyDefinitions,
			GSIs:           []GSIDefinition{testTable.GSIs[0], testTable.GSIs[0]},
		}},
		{"unnamed gsi", TableDefinition{
			Name:           "x",
			KeyDefinitions: testTable.KeyDefinitions,
			GSIs:           []GSIDefinition{{KeyDefinitions: testTable.KeyDefinitions}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.def.Validate())
		})
	}
}

func TestKeyDefinitionsFor(t *testing.T) {
	kd, err := testTable.KeyDefinitionsFor("")
	require.NoError(t, err)
	assert.Equal(t, []string{"PK", "SK"}, kd.Names())

	kd, err = testTable.KeyDefinitionsFor("hash-only")
	require.NoError(t, err)
	assert.Equal(t, []string{"tag"}, kd.Names())

	_, err = testTable.KeyDefinitionsFor("nope")
	require.Error(t, err)
}
