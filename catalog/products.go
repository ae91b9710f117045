package catalog

import (
	"context"
	"strings"

	"github.com/e-lopezc/serverless-product-catalog-api/catalog/keys"
	"github.com/e-lopezc/serverless-product-catalog-api/dynamodb/ddbiface"
)

type ProductRepository struct {
	*deps
}

func cleanProduct(p *Product) {
	trimAll(&p.Name, &p.Description, &p.SKU, &p.BrandID, &p.CategoryID)
	if len(p.Images) == 0 {
		p.Images = nil
		return
	}
	images := make([]string, len(p.Images))
	for i, img := range p.Images {
		images[i] = strings.TrimSpace(img)
	}
	p.Images = images
}

// Create stores a new product after checking that its brand and category
// exist and claiming its SKU, if it has one.
func (r *ProductRepository) Create(ctx context.Context, in Product) (Product, error) {
	p := Product{
		Name: in.Name, Description: in.Description, Price: in.Price, SKU: in.SKU,
		BrandID: in.BrandID, CategoryID: in.CategoryID,
		StockQuantity: in.StockQuantity, Images: in.Images,
	}
	cleanProduct(&p)
	if err := validateEntity(r.validate, entityProduct, p); err != nil {
		return Product{}, err
	}
	if err := r.refs.CheckProductReferences(ctx, p.BrandID, p.CategoryID); err != nil {
		return Product{}, err
	}
	id, err := r.newEntityID(entityProduct)
	if err != nil {
		return Product{}, err
	}
	now := r.timestamp()
	p.ID, p.CreatedAt, p.UpdatedAt, p.Version = id, now, now, 1

	rec, err := productToRecord(p)
	if err != nil {
		return Product{}, storageError(entityProduct, id, err)
	}
	item, err := marshalItem(rec)
	if err != nil {
		return Product{}, storageError(entityProduct, id, err)
	}

	sku := normalizeName(p.SKU)
	if sku != "" {
		if err := r.guard.Reserve(ctx, ScopeProductSKU, sku, id); err != nil {
			return Product{}, err
		}
	}
	if err := r.insert(ctx, entityProduct, id, item); err != nil {
		r.guard.release(ctx, ScopeProductSKU, sku, id)
		return Product{}, err
	}
	return p, nil
}

func (r *ProductRepository) GetByID(ctx context.Context, id string) (Product, error) {
	item, err := r.get(ctx, keys.KindProduct, entityProduct, id)
	if err != nil {
		return Product{}, err
	}
	return decodeProduct(item)
}

// GetBySKU finds a product by its SKU, compared case-insensitively.
func (r *ProductRepository) GetBySKU(ctx context.Context, sku string) (Product, error) {
	norm := normalizeName(sku)
	if norm == "" {
		return Product{}, invalidArgument(entityProduct, "sku", "is required")
	}
	id, err := r.guard.Owner(ctx, ScopeProductSKU, norm)
	if err != nil {
		return Product{}, err
	}
	p, err := r.GetByID(ctx, id)
	if err != nil {
		return Product{}, err
	}
	if normalizeName(p.SKU) != norm {
		return Product{}, &Error{Kind: KindNotFound, Entity: entityProduct, Field: "sku", Message: "no product with this sku"}
	}
	return p, nil
}

// Update applies patch to the stored product. References are rechecked
// only when brand_id or category_id change, and the SKU is claimed only
// when it changes.
func (r *ProductRepository) Update(ctx context.Context, id string, patch ProductPatch) (Product, error) {
	patch.Name = trimmed(patch.Name)
	patch.Description = trimmed(patch.Description)
	patch.SKU = trimmed(patch.SKU)
	patch.BrandID = trimmed(patch.BrandID)
	patch.CategoryID = trimmed(patch.CategoryID)

	item, err := r.get(ctx, keys.KindProduct, entityProduct, id)
	if err != nil {
		return Product{}, err
	}
	cur, err := decodeProduct(item)
	if err != nil {
		return Product{}, err
	}
	if err := r.checkVersion(entityProduct, id, patch.IfVersion, cur.Version); err != nil {
		return Product{}, err
	}
	if patch.empty() {
		return cur, nil
	}

	next := cur.apply(patch)
	cleanProduct(&next)
	if err := validateEntity(r.validate, entityProduct, next); err != nil {
		return Product{}, err
	}
	if next.BrandID != cur.BrandID || next.CategoryID != cur.CategoryID {
		if err := r.refs.CheckProductReferences(ctx, next.BrandID, next.CategoryID); err != nil {
			return Product{}, err
		}
	}
	next.UpdatedAt = r.timestamp()

	oldSKU, newSKU := normalizeName(cur.SKU), normalizeName(next.SKU)
	skuChanged := oldSKU != newSKU
	if skuChanged && newSKU != "" {
		if err := r.guard.Reserve(ctx, ScopeProductSKU, newSKU, id); err != nil {
			return Product{}, err
		}
	}

	nextRec, err := productToRecord(next)
	if err != nil {
		return Product{}, storageError(entityProduct, id, err)
	}
	nextItem, err := marshalItem(nextRec)
	if err != nil {
		return Product{}, storageError(entityProduct, id, err)
	}
	updated, err := r.replace(ctx, keys.KindProduct, entityProduct, id, item, nextItem, cur.Version)
	if err != nil {
		if skuChanged {
			r.guard.release(ctx, ScopeProductSKU, newSKU, id)
		}
		return Product{}, err
	}
	if skuChanged {
		r.guard.release(ctx, ScopeProductSKU, oldSKU, id)
	}
	return decodeProduct(updated)
}

// Delete removes the product and frees its SKU.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	old, err := r.remove(ctx, keys.KindProduct, entityProduct, id)
	if err != nil {
		return err
	}
	p, err := decodeProduct(old)
	if err != nil {
		return err
	}
	r.guard.release(ctx, ScopeProductSKU, normalizeName(p.SKU), id)
	return nil
}

// List returns a page of all products ordered by key.
func (r *ProductRepository) List(ctx context.Context, pageSize int, token string) ([]Product, string, error) {
	return r.list(ctx, IndexByKind, string(keys.KindProduct), pageSize, token)
}

// ListByBrand returns a page of the brand's products ordered by id. It
// fails with NotFound when the brand does not exist, so an unknown brand
// is told apart from a brand without products.
func (r *ProductRepository) ListByBrand(ctx context.Context, brandID string, pageSize int, token string) ([]Product, string, error) {
	if err := r.mustExist(ctx, keys.KindBrand, entityBrand, brandID); err != nil {
		return nil, "", err
	}
	return r.list(ctx, IndexByBrand, brandID, pageSize, token)
}

// ListByCategory is ListByBrand for categories.
func (r *ProductRepository) ListByCategory(ctx context.Context, categoryID string, pageSize int, token string) ([]Product, string, error) {
	if err := r.mustExist(ctx, keys.KindCategory, entityCategory, categoryID); err != nil {
		return nil, "", err
	}
	return r.list(ctx, IndexByCategory, keys.ByCategoryHash(categoryID), pageSize, token)
}

func (r *ProductRepository) mustExist(ctx context.Context, kind keys.Kind, entity, id string) error {
	ok, err := r.refs.Exists(ctx, kind, id)
	if err != nil {
		return storageError(entity, id, err)
	}
	if !ok {
		return notFound(entity, id)
	}
	return nil
}

func (r *ProductRepository) list(ctx context.Context, index, partition string, pageSize int, token string) ([]Product, string, error) {
	items, next, err := r.pager.page(ctx, entityProduct, index, partition, pageSize, token)
	if err != nil {
		return nil, "", err
	}
	out := make([]Product, 0, len(items))
	for _, item := range items {
		p, err := decodeProduct(item)
		if err != nil {
			return nil, "", err
		}
		out = append(out, p)
	}
	return out, next, nil
}

func decodeProduct(item ddbiface.Item) (Product, error) {
	rec, err := decode[productRecord](keys.KindProduct, entityProduct, item)
	if err != nil {
		return Product{}, err
	}
	return rec.entity(), nil
}
