package catalog

import (
	"context"

	"github.com/e-lopezc/serverless-product-catalog-api/catalog/keys"
	"github.com/e-lopezc/serverless-product-catalog-api/dynamodb/ddbiface"
)

type BrandRepository struct {
	*deps
}

// Create stores a new brand. Only Name, Description and Website are read
// from in; id, timestamps and version are assigned.
func (r *BrandRepository) Create(ctx context.Context, in Brand) (Brand, error) {
	b := Brand{Name: in.Name, Description: in.Description, Website: in.Website}
	trimAll(&b.Name, &b.Description, &b.Website)
	if err := validateEntity(r.validate, entityBrand, b); err != nil {
		return Brand{}, err
	}
	id, err := r.newEntityID(entityBrand)
	if err != nil {
		return Brand{}, err
	}
	now := r.timestamp()
	b.ID, b.CreatedAt, b.UpdatedAt, b.Version = id, now, now, 1

	rec, err := brandToRecord(b)
	if err != nil {
		return Brand{}, storageError(entityBrand, id, err)
	}
	item, err := marshalItem(rec)
	if err != nil {
		return Brand{}, storageError(entityBrand, id, err)
	}

	name := normalizeName(b.Name)
	if err := r.guard.Reserve(ctx, ScopeBrandName, name, id); err != nil {
		return Brand{}, err
	}
	if err := r.insert(ctx, entityBrand, id, item); err != nil {
		r.guard.release(ctx, ScopeBrandName, name, id)
		return Brand{}, err
	}
	return b, nil
}

func (r *BrandRepository) GetByID(ctx context.Context, id string) (Brand, error) {
	item, err := r.get(ctx, keys.KindBrand, entityBrand, id)
	if err != nil {
		return Brand{}, err
	}
	rec, err := decode[brandRecord](keys.KindBrand, entityBrand, item)
	if err != nil {
		return Brand{}, err
	}
	return rec.entity(), nil
}

// Exists reports whether a brand with the id is stored.
func (r *BrandRepository) Exists(ctx context.Context, id string) (bool, error) {
	ok, err := r.refs.Exists(ctx, keys.KindBrand, id)
	if err != nil {
		return false, storageError(entityBrand, id, err)
	}
	return ok, nil
}

// Update applies patch to the stored brand. A rename claims the new name
// before the write and frees the old one after it.
func (r *BrandRepository) Update(ctx context.Context, id string, patch BrandPatch) (Brand, error) {
	patch.Name = trimmed(patch.Name)
	patch.Description = trimmed(patch.Description)
	patch.Website = trimmed(patch.Website)

	item, err := r.get(ctx, keys.KindBrand, entityBrand, id)
	if err != nil {
		return Brand{}, err
	}
	rec, err := decode[brandRecord](keys.KindBrand, entityBrand, item)
	if err != nil {
		return Brand{}, err
	}
	cur := rec.entity()
	if err := r.checkVersion(entityBrand, id, patch.IfVersion, cur.Version); err != nil {
		return Brand{}, err
	}
	if patch.empty() {
		return cur, nil
	}

	next := cur.apply(patch)
	if err := validateEntity(r.validate, entityBrand, next); err != nil {
		return Brand{}, err
	}
	next.UpdatedAt = r.timestamp()

	oldName, newName := normalizeName(cur.Name), normalizeName(next.Name)
	renamed := oldName != newName
	if renamed {
		if err := r.guard.Reserve(ctx, ScopeBrandName, newName, id); err != nil {
			return Brand{}, err
		}
	}

	nextRec, err := brandToRecord(next)
	if err != nil {
		return Brand{}, storageError(entityBrand, id, err)
	}
	nextItem, err := marshalItem(nextRec)
	if err != nil {
		return Brand{}, storageError(entityBrand, id, err)
	}
	updated, err := r.replace(ctx, keys.KindBrand, entityBrand, id, item, nextItem, cur.Version)
	if err != nil {
		if renamed {
			r.guard.release(ctx, ScopeBrandName, newName, id)
		}
		return Brand{}, err
	}
	if renamed {
		r.guard.release(ctx, ScopeBrandName, oldName, id)
	}

	out, err := decode[brandRecord](keys.KindBrand, entityBrand, updated)
	if err != nil {
		return Brand{}, err
	}
	return out.entity(), nil
}

// Delete removes the brand. It fails with Conflict while any product
// references it.
func (r *BrandRepository) Delete(ctx context.Context, id string) error {
	has, err := r.refs.HasDependents(ctx, keys.KindBrand, id)
	if err != nil {
		return storageError(entityBrand, id, err)
	}
	if has {
		return conflict(entityBrand, id, "brand has dependent products")
	}
	old, err := r.remove(ctx, keys.KindBrand, entityBrand, id)
	if err != nil {
		return err
	}
	rec, err := decode[brandRecord](keys.KindBrand, entityBrand, old)
	if err != nil {
		return err
	}
	r.guard.release(ctx, ScopeBrandName, normalizeName(rec.Name), id)
	return nil
}

// List returns a page of brands ordered by key. An empty next token means
// there are no more pages.
func (r *BrandRepository) List(ctx context.Context, pageSize int, token string) ([]Brand, string, error) {
	items, next, err := r.pager.page(ctx, entityBrand, IndexByKind, string(keys.KindBrand), pageSize, token)
	if err != nil {
		return nil, "", err
	}
	return r.decodeAll(items, next)
}

// ListByName returns a page of brands ordered by name, ignoring case.
func (r *BrandRepository) ListByName(ctx context.Context, pageSize int, token string) ([]Brand, string, error) {
	items, next, err := r.pager.page(ctx, entityBrand, IndexByName, keys.NameListHash(keys.KindBrand), pageSize, token)
	if err != nil {
		return nil, "", err
	}
	return r.decodeAll(items, next)
}

func (r *BrandRepository) decodeAll(items []ddbiface.Item, next string) ([]Brand, string, error) {
	out := make([]Brand, 0, len(items))
	for _, item := range items {
		rec, err := decode[brandRecord](keys.KindBrand, entityBrand, item)
		if err != nil {
			return nil, "", err
		}
		out = append(out, rec.entity())
	}
	return out, next, nil
}
