package catalog

import (
	"fmt"
	"reflect"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"

	"github.com/e-lopezc/serverless-product-catalog-api/catalog/keys"
	"github.com/e-lopezc/serverless-product-catalog-api/dynamodb/ddbiface"
)

// Every catalog item carries its key and its kind. The remaining attributes
// depend on entity_type, which tags the variant.
type itemHeader struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"entity_type"`
}

type brandRecord struct {
	itemHeader
	ID          string    `dynamodbav:"id"`
	Name        string    `dynamodbav:"name"`
	Description string    `dynamodbav:"description,omitempty"`
	Website     string    `dynamodbav:"website,omitempty"`
	GSI3PK      string    `dynamodbav:"GSI3PK"`
	GSI3SK      string    `dynamodbav:"GSI3SK"`
	CreatedAt   time.Time `dynamodbav:"created_at"`
	UpdatedAt   time.Time `dynamodbav:"updated_at"`
	Version     int64     `dynamodbav:"version"`
}

type categoryRecord struct {
	itemHeader
	ID          string    `dynamodbav:"id"`
	Name        string    `dynamodbav:"name"`
	Description string    `dynamodbav:"description,omitempty"`
	ParentID    string    `dynamodbav:"parent_category_id,omitempty"`
	GSI3PK      string    `dynamodbav:"GSI3PK"`
	GSI3SK      string    `dynamodbav:"GSI3SK"`
	CreatedAt   time.Time `dynamodbav:"created_at"`
	UpdatedAt   time.Time `dynamodbav:"updated_at"`
	Version     int64     `dynamodbav:"version"`
}

type productRecord struct {
	itemHeader
	ID            string    `dynamodbav:"id"`
	ProductID     string    `dynamodbav:"product_id"`
	Name          string    `dynamodbav:"name"`
	Description   string    `dynamodbav:"description,omitempty"`
	Price         number    `dynamodbav:"price"`
	SKU           string    `dynamodbav:"sku,omitempty"`
	BrandID       string    `dynamodbav:"brand_id"`
	CategoryID    string    `dynamodbav:"category_id"`
	GSI3PK        string    `dynamodbav:"GSI3PK"`
	GSI3SK        string    `dynamodbav:"GSI3SK"`
	StockQuantity int64     `dynamodbav:"stock_quantity"`
	Images        []string  `dynamodbav:"images,omitempty"`
	CreatedAt     time.Time `dynamodbav:"created_at"`
	UpdatedAt     time.Time `dynamodbav:"updated_at"`
	Version       int64     `dynamodbav:"version"`
}

// number stores a decimal as a DynamoDB N without passing through float64.
type number struct {
	decimal.Decimal
}

func (n number) MarshalDynamoDBAttributeValue() (types.AttributeValue, error) {
	return &types.AttributeValueMemberN{Value: n.Decimal.String()}, nil
}

func (n *number) UnmarshalDynamoDBAttributeValue(av types.AttributeValue) error {
	v, ok := av.(*types.AttributeValueMemberN)
	if !ok {
		return fmt.Errorf("decimal: expected N attribute, got %T", av)
	}
	d, err := decimal.NewFromString(v.Value)
	if err != nil {
		return fmt.Errorf("decimal: %w", err)
	}
	n.Decimal = d
	return nil
}

// rawValue passes an already marshaled attribute value through
// attributevalue.Marshal unchanged.
type rawValue struct {
	av types.AttributeValue
}

func (r rawValue) MarshalDynamoDBAttributeValue() (types.AttributeValue, error) {
	return r.av, nil
}

func header(kind keys.Kind, id string) (itemHeader, error) {
	pk, sk, err := keys.PrimaryKey(kind, id)
	if err != nil {
		return itemHeader{}, err
	}
	return itemHeader{PK: pk, SK: sk, EntityType: string(kind)}, nil
}

func brandToRecord(b Brand) (brandRecord, error) {
	h, err := header(keys.KindBrand, b.ID)
	if err != nil {
		return brandRecord{}, err
	}
	byName, err := keys.ByNameKey(keys.KindBrand, b.Name)
	if err != nil {
		return brandRecord{}, err
	}
	return brandRecord{
		itemHeader: h, ID: b.ID, Name: b.Name, Description: b.Description, Website: b.Website,
		GSI3PK: byName.Hash, GSI3SK: byName.Range,
		CreatedAt: b.CreatedAt, UpdatedAt: b.UpdatedAt, Version: b.Version,
	}, nil
}

func (r brandRecord) entity() Brand {
	return Brand{
		ID: r.ID, Name: r.Name, Description: r.Description, Website: r.Website,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt, Version: r.Version,
	}
}

func categoryToRecord(c Category) (categoryRecord, error) {
	h, err := header(keys.KindCategory, c.ID)
	if err != nil {
		return categoryRecord{}, err
	}
	byName, err := keys.ByNameKey(keys.KindCategory, c.Name)
	if err != nil {
		return categoryRecord{}, err
	}
	return categoryRecord{
		itemHeader: h, ID: c.ID, Name: c.Name, Description: c.Description, ParentID: c.ParentID,
		GSI3PK: byName.Hash, GSI3SK: byName.Range,
		CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt, Version: c.Version,
	}, nil
}

func (r categoryRecord) entity() Category {
	return Category{
		ID: r.ID, Name: r.Name, Description: r.Description, ParentID: r.ParentID,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt, Version: r.Version,
	}
}

func productToRecord(p Product) (productRecord, error) {
	h, err := header(keys.KindProduct, p.ID)
	if err != nil {
		return productRecord{}, err
	}
	byBrand, err := keys.ByBrandKey(p.BrandID, p.ID)
	if err != nil {
		return productRecord{}, err
	}
	byCategory, err := keys.ByCategoryKey(p.CategoryID, p.ID)
	if err != nil {
		return productRecord{}, err
	}
	return productRecord{
		itemHeader:    h,
		ID:            p.ID,
		ProductID:     byBrand.Range,
		Name:          p.Name,
		Description:   p.Description,
		Price:         number{p.Price},
		SKU:           p.SKU,
		BrandID:       byBrand.Hash,
		CategoryID:    p.CategoryID,
		GSI3PK:        byCategory.Hash,
		GSI3SK:        byCategory.Range,
		StockQuantity: p.StockQuantity,
		Images:        p.Images,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
		Version:       p.Version,
	}, nil
}

func (r productRecord) entity() Product {
	return Product{
		ID: r.ID, Name: r.Name, Description: r.Description, Price: r.Price.Decimal,
		SKU: r.SKU, BrandID: r.BrandID, CategoryID: r.CategoryID,
		StockQuantity: r.StockQuantity, Images: r.Images,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt, Version: r.Version,
	}
}

// decodeItem unmarshals item into out after checking that it is of the
// expected kind.
func decodeItem(kind keys.Kind, item ddbiface.Item, out any) error {
	et, ok := item[AttrEntityType].(*types.AttributeValueMemberS)
	if !ok || et.Value != string(kind) {
		return fmt.Errorf("item %v is not a %s", item[AttrPK], kind)
	}
	if err := attributevalue.UnmarshalMap(item, out); err != nil {
		return fmt.Errorf("unmarshal %s: %w", kind, err)
	}
	return nil
}

// diffUpdate returns the clauses that turn old into next. Key attributes
// and version are left out; version is bumped by the caller.
func diffUpdate(old, next ddbiface.Item) ddbiface.Update {
	var upd ddbiface.Update
	for name, av := range next {
		if name == AttrPK || name == AttrSK || name == AttrVersion {
			continue
		}
		if prev, ok := old[name]; ok && reflect.DeepEqual(prev, av) {
			continue
		}
		upd = append(upd, ddbiface.SetFieldOp(name, rawValue{av}))
	}
	for name := range old {
		if name == AttrPK || name == AttrSK || name == AttrVersion {
			continue
		}
		if _, ok := next[name]; !ok {
			upd = append(upd, ddbiface.RemoveFieldOp(name))
		}
	}
	return upd
}

func marshalItem(v any) (ddbiface.Item, error) {
	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		return nil, fmt.Errorf("marshal item: %w", err)
	}
	return item, nil
}
