package catalog

import (
	"github.com/e-lopezc/serverless-product-catalog-api/dynamodb/table"
)

// DefaultTableName is the table the catalog uses unless configured otherwise.
const DefaultTableName = "products_catalog"

// Attribute names shared by the catalog items.
const (
	AttrPK         = "PK"
	AttrSK         = "SK"
	AttrEntityType = "entity_type"
	AttrBrandID    = "brand_id"
	AttrCategoryID = "category_id"
	AttrProductID  = "product_id"
	AttrGSI3PK     = "GSI3PK"
	AttrGSI3SK     = "GSI3SK"
	AttrVersion    = "version"
	AttrOwnerID    = "owner_id"
	AttrStock      = "stock_quantity"
	AttrUpdatedAt  = "updated_at"
	AttrParentID   = "parent_category_id"
)

// Secondary index names.
const (
	// IndexInverted has hash SK and range PK.
	IndexInverted = "GSI-1"
	// IndexByBrand has hash brand_id and range product_id.
	IndexByBrand = "GSI-2"
	// IndexByCategory has hash "CATEGORY#<category_id>" and range product_id.
	IndexByCategory = "GSI-3"
	// IndexByName is the same index read under the hashes "BRAND_LIST" and
	// "CATEGORY_LIST", ranged by upper-cased name.
	IndexByName = IndexByCategory
	// IndexByKind has hash entity_type and range PK.
	IndexByKind = "GSI-4"
)

func strKey(name string) table.KeyDef {
	return table.KeyDef{Name: name, Kind: table.KeyKindS}
}

// TableDefinition returns the catalog table layout under the given name.
func TableDefinition(name string) table.TableDefinition {
	if name == "" {
		name = DefaultTableName
	}
	return table.TableDefinition{
		Name: name,
		KeyDefinitions: table.PrimaryKeyDefinition{
			PartitionKey: strKey(AttrPK),
			SortKey:      strKey(AttrSK),
		},
		GSIs: []table.GSIDefinition{
			{Name: IndexInverted, KeyDefinitions: table.PrimaryKeyDefinition{
				PartitionKey: strKey(AttrSK), SortKey: strKey(AttrPK),
			}},
			{Name: IndexByBrand, KeyDefinitions: table.PrimaryKeyDefinition{
				PartitionKey: strKey(AttrBrandID), SortKey: strKey(AttrProductID),
			}},
			{Name: IndexByCategory, KeyDefinitions: table.PrimaryKeyDefinition{
				PartitionKey: strKey(AttrGSI3PK), SortKey: strKey(AttrGSI3SK),
			}},
			{Name: IndexByKind, KeyDefinitions: table.PrimaryKeyDefinition{
				PartitionKey: strKey(AttrEntityType), SortKey: strKey(AttrPK),
			}},
		},
	}
}

// indexKeyAttrs lists the attributes of a page's last evaluated key for
// each index: the index key followed by the table key. IndexByName shares
// the IndexByCategory entry.
var indexKeyAttrs = map[string][]string{
	IndexByKind:     {AttrEntityType, AttrPK, AttrSK},
	IndexByBrand:    {AttrBrandID, AttrProductID, AttrPK, AttrSK},
	IndexByCategory: {AttrGSI3PK, AttrGSI3SK, AttrPK, AttrSK},
}
