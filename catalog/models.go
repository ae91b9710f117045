package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

type Brand struct {
	ID          string    `json:"id"`
	Name        string    `json:"name" validate:"required,min=2,max=100,brandname"`
	Description string    `json:"description,omitempty" validate:"omitempty,min=10,max=500"`
	Website     string    `json:"website,omitempty" validate:"omitempty,weburl"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Version     int64     `json:"version"`
}

type Category struct {
	ID          string    `json:"id"`
	Name        string    `json:"name" validate:"required,min=2,max=100"`
	Description string    `json:"description,omitempty" validate:"omitempty,min=10,max=500"`
	ParentID    string    `json:"parent_category_id,omitempty" validate:"omitempty,keyid"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Version     int64     `json:"version"`
}

type Product struct {
	ID            string          `json:"id"`
	Name          string          `json:"name" validate:"required,min=2,max=200,productname"`
	Description   string          `json:"description,omitempty" validate:"omitempty,min=10,max=1000"`
	Price         decimal.Decimal `json:"price" validate:"price"`
	SKU           string          `json:"sku,omitempty" validate:"omitempty,min=3,max=64,sku"`
	BrandID       string          `json:"brand_id" validate:"required,keyid"`
	CategoryID    string          `json:"category_id" validate:"required,keyid"`
	StockQuantity int64           `json:"stock_quantity" validate:"gte=0,lte=999999"`
	Images        []string        `json:"images,omitempty" validate:"max=10,dive,imageurl"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Version       int64           `json:"version"`
}

// Patches carry only the fields to change. A non-nil pointer to an empty
// string clears an optional field. IfVersion, when set, makes the update
// conditional on the stored version.

type BrandPatch struct {
	Name        *string
	Description *string
	Website     *string
	IfVersion   *int64
}

type CategoryPatch struct {
	Name        *string
	Description *string
	ParentID    *string
	IfVersion   *int64
}

type ProductPatch struct {
	Name          *string
	Description   *string
	Price         *decimal.Decimal
	SKU           *string
	BrandID       *string
	CategoryID    *string
	StockQuantity *int64
	Images        *[]string
	IfVersion     *int64
}

func (p BrandPatch) empty() bool {
	return p.Name == nil && p.Description == nil && p.Website == nil
}

func (p CategoryPatch) empty() bool {
	return p.Name == nil && p.Description == nil && p.ParentID == nil
}

func (p ProductPatch) empty() bool {
	return p.Name == nil && p.Description == nil && p.Price == nil && p.SKU == nil &&
		p.BrandID == nil && p.CategoryID == nil && p.StockQuantity == nil && p.Images == nil
}

func (b Brand) apply(p BrandPatch) Brand {
	setString(&b.Name, p.Name)
	setString(&b.Description, p.Description)
	setString(&b.Website, p.Website)
	return b
}

func (c Category) apply(p CategoryPatch) Category {
	setString(&c.Name, p.Name)
	setString(&c.Description, p.Description)
	setString(&c.ParentID, p.ParentID)
	return c
}

func (pr Product) apply(p ProductPatch) Product {
	setString(&pr.Name, p.Name)
	setString(&pr.Description, p.Description)
	setString(&pr.SKU, p.SKU)
	setString(&pr.BrandID, p.BrandID)
	setString(&pr.CategoryID, p.CategoryID)
	if p.Price != nil {
		pr.Price = *p.Price
	}
	if p.StockQuantity != nil {
		pr.StockQuantity = *p.StockQuantity
	}
	if p.Images != nil {
		pr.Images = append([]string(nil), (*p.Images)...)
	}
	return pr
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
