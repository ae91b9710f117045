package table

import (
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type TableDefinition struct {
	Name           string
	KeyDefinitions PrimaryKeyDefinition
	GSIs           []GSIDefinition
}

// GSIDefinition represents a Global Secondary Index definition.
// Indexes project every attribute of the item.
type GSIDefinition struct {
	Name           string
	KeyDefinitions PrimaryKeyDefinition
}

// ExtractPrimaryKey extracts the index key values from a document.
func (g GSIDefinition) ExtractPrimaryKey(doc map[string]types.AttributeValue) (PrimaryKey, error) {
	return g.KeyDefinitions.ExtractPrimaryKey(doc)
}

func (t TableDefinition) ExtractPrimaryKey(doc map[string]types.AttributeValue) (PrimaryKey, error) {
	return t.KeyDefinitions.ExtractPrimaryKey(doc)
}

// Key builds a primary key for the table from raw values.
func (t TableDefinition) Key(partition, sort any) PrimaryKey {
	return PrimaryKey{
		Definition: t.KeyDefinitions,
		Values:     PrimaryKeyValues{PartitionKey: partition, SortKey: sort},
	}
}

// GSI looks up an index definition by name.
func (t TableDefinition) GSI(name string) (GSIDefinition, bool) {
	for _, g := range t.GSIs {
		if g.Name == name {
			return g, true
		}
	}
	return GSIDefinition{}, false
}

// KeyDefinitionsFor returns the key schema of the table when index is empty,
// or of the named GSI.
func (t TableDefinition) KeyDefinitionsFor(index string) (PrimaryKeyDefinition, error) {
	if index == "" {
		return t.KeyDefinitions, nil
	}
	g, ok := t.GSI(index)
	if !ok {
		return PrimaryKeyDefinition{}, fmt.Errorf("GSI not found: %s", index)
	}
	return g.KeyDefinitions, nil
}

// Validate checks that the definition is usable by a store.
func (t TableDefinition) Validate() error {
	if t.Name == "" {
		return errors.New("table name is required")
	}
	if t.KeyDefinitions.PartitionKey.Name == "" {
		return fmt.Errorf("table %s: partition key name is required", t.Name)
	}
	seen := make(map[string]bool, len(t.GSIs))
	for _, g := range t.GSIs {
		if g.Name == "" {
			return fmt.Errorf("table %s: GSI name is required", t.Name)
		}
		if seen[g.Name] {
			return fmt.Errorf("table %s: duplicate GSI %s", t.Name, g.Name)
		}
		seen[g.Name] = true
		if g.KeyDefinitions.PartitionKey.Name == "" {
			return fmt.Errorf("table %s: GSI %s: partition key name is required", t.Name, g.Name)
		}
	}
	return nil
}

func (k PrimaryKeyDefinition) ExtractPrimaryKey(doc map[string]types.AttributeValue) (PrimaryKey, error) {
	part, ok := doc[k.PartitionKey.Name]
	if !ok {
		return PrimaryKey{}, fmt.Errorf("partition key %q not found", k.PartitionKey.Name)
	}
	if err := attributeMatchesDefinition(k.PartitionKey.Kind, part); err != nil {
		return PrimaryKey{}, fmt.Errorf("document key %q kind does not match definition: %w", k.PartitionKey.Name, err)
	}
	pk := PrimaryKey{
		Definition: k,
		Values: PrimaryKeyValues{
			PartitionKey: keyValueFromAV(part),
		},
	}
	if !k.HasSortKey() {
		return pk, nil
	}
	sort, ok := doc[k.SortKey.Name]
	if !ok {
		return PrimaryKey{}, fmt.Errorf("sort key %q not found on document", k.SortKey.Name)
	}
	if err := attributeMatchesDefinition(k.SortKey.Kind, sort); err != nil {
		return PrimaryKey{}, fmt.Errorf("sort key %q kind does not match definition: %w", k.SortKey.Name, err)
	}
	pk.Values.SortKey = keyValueFromAV(sort)
	return pk, nil
}

// keyValueFromAV assumes av already passed attributeMatchesDefinition.
func keyValueFromAV(av types.AttributeValue) any {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return v.Value
	case *types.AttributeValueMemberN:
		return v.Value
	case *types.AttributeValueMemberB:
		return v.Value
	default:
		panic(fmt.Sprintf("unsupported attribute value %T for dynamodb keys", v))
	}
}
