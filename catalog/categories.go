package catalog

import (
	"context"

	"github.com/e-lopezc/serverless-product-catalog-api/catalog/keys"
	"github.com/e-lopezc/serverless-product-catalog-api/dynamodb/ddbiface"
)

type CategoryRepository struct {
	*deps
}

// Create stores a new category. Only Name, Description and ParentID are
// read from in; id, timestamps and version are assigned.
func (r *CategoryRepository) Create(ctx context.Context, in Category) (Category, error) {
	c := Category{Name: in.Name, Description: in.Description, ParentID: in.ParentID}
	trimAll(&c.Name, &c.Description, &c.ParentID)
	if err := validateEntity(r.validate, entityCategory, c); err != nil {
		return Category{}, err
	}
	id, err := r.newEntityID(entityCategory)
	if err != nil {
		return Category{}, err
	}
	if c.ParentID != "" {
		if err := r.refs.CheckCategoryParent(ctx, id, c.ParentID); err != nil {
			return Category{}, err
		}
	}
	now := r.timestamp()
	c.ID, c.CreatedAt, c.UpdatedAt, c.Version = id, now, now, 1

	rec, err := categoryToRecord(c)
	if err != nil {
		return Category{}, storageError(entityCategory, id, err)
	}
	item, err := marshalItem(rec)
	if err != nil {
		return Category{}, storageError(entityCategory, id, err)
	}

	name := normalizeName(c.Name)
	if err := r.guard.Reserve(ctx, ScopeCategoryName, name, id); err != nil {
		return Category{}, err
	}
	if err := r.insert(ctx, entityCategory, id, item); err != nil {
		r.guard.release(ctx, ScopeCategoryName, name, id)
		return Category{}, err
	}
	return c, nil
}

func (r *CategoryRepository) GetByID(ctx context.Context, id string) (Category, error) {
	item, err := r.get(ctx, keys.KindCategory, entityCategory, id)
	if err != nil {
		return Category{}, err
	}
	rec, err := decode[categoryRecord](keys.KindCategory, entityCategory, item)
	if err != nil {
		return Category{}, err
	}
	return rec.entity(), nil
}

// Exists reports whether a category with the id is stored.
func (r *CategoryRepository) Exists(ctx context.Context, id string) (bool, error) {
	ok, err := r.refs.Exists(ctx, keys.KindCategory, id)
	if err != nil {
		return false, storageError(entityCategory, id, err)
	}
	return ok, nil
}

// Update applies patch to the stored category. A rename claims the new name
// before the write and frees the old one after it.
func (r *CategoryRepository) Update(ctx context.Context, id string, patch CategoryPatch) (Category, error) {
	patch.Name = trimmed(patch.Name)
	patch.Description = trimmed(patch.Description)
	patch.ParentID = trimmed(patch.ParentID)

	item, err := r.get(ctx, keys.KindCategory, entityCategory, id)
	if err != nil {
		return Category{}, err
	}
	rec, err := decode[categoryRecord](keys.KindCategory, entityCategory, item)
	if err != nil {
		return Category{}, err
	}
	cur := rec.entity()
	if err := r.checkVersion(entityCategory, id, patch.IfVersion, cur.Version); err != nil {
		return Category{}, err
	}
	if patch.empty() {
		return cur, nil
	}

	next := cur.apply(patch)
	if err := validateEntity(r.validate, entityCategory, next); err != nil {
		return Category{}, err
	}
	if next.ParentID != "" && next.ParentID != cur.ParentID {
		if err := r.refs.CheckCategoryParent(ctx, id, next.ParentID); err != nil {
			return Category{}, err
		}
	}
	next.UpdatedAt = r.timestamp()

	oldName, newName := normalizeName(cur.Name), normalizeName(next.Name)
	renamed := oldName != newName
	if renamed {
		if err := r.guard.Reserve(ctx, ScopeCategoryName, newName, id); err != nil {
			return Category{}, err
		}
	}

	nextRec, err := categoryToRecord(next)
	if err != nil {
		return Category{}, storageError(entityCategory, id, err)
	}
	nextItem, err := marshalItem(nextRec)
	if err != nil {
		return Category{}, storageError(entityCategory, id, err)
	}
	updated, err := r.replace(ctx, keys.KindCategory, entityCategory, id, item, nextItem, cur.Version)
	if err != nil {
		if renamed {
			r.guard.release(ctx, ScopeCategoryName, newName, id)
		}
		return Category{}, err
	}
	if renamed {
		r.guard.release(ctx, ScopeCategoryName, oldName, id)
	}

	out, err := decode[categoryRecord](keys.KindCategory, entityCategory, updated)
	if err != nil {
		return Category{}, err
	}
	return out.entity(), nil
}

// Delete removes the category. It fails with Conflict while any product
// references it.
func (r *CategoryRepository) Delete(ctx context.Context, id string) error {
	has, err := r.refs.HasDependents(ctx, keys.KindCategory, id)
	if err != nil {
		return storageError(entityCategory, id, err)
	}
	if has {
		return conflict(entityCategory, id, "category has dependent products")
	}
	old, err := r.remove(ctx, keys.KindCategory, entityCategory, id)
	if err != nil {
		return err
	}
	rec, err := decode[categoryRecord](keys.KindCategory, entityCategory, old)
	if err != nil {
		return err
	}
	r.guard.release(ctx, ScopeCategoryName, normalizeName(rec.Name), id)
	return nil
}

// List returns a page of categories ordered by key. An empty next token means
// there are no more pages.
func (r *CategoryRepository) List(ctx context.Context, pageSize int, token string) ([]Category, string, error) {
	items, next, err := r.pager.page(ctx, entityCategory, IndexByKind, string(keys.KindCategory), pageSize, token)
	if err != nil {
		return nil, "", err
	}
	return r.decodeAll(items, next)
}

// ListByName returns a page of categories ordered by name, ignoring case.
func (r *CategoryRepository) ListByName(ctx context.Context, pageSize int, token string) ([]Category, string, error) {
	items, next, err := r.pager.page(ctx, entityCategory, IndexByName, keys.NameListHash(keys.KindCategory), pageSize, token)
	if err != nil {
		return nil, "", err
	}
	return r.decodeAll(items, next)
}

func (r *CategoryRepository) decodeAll(items []ddbiface.Item, next string) ([]Category, string, error) {
	out := make([]Category, 0, len(items))
	for _, item := range items {
		rec, err := decode[categoryRecord](keys.KindCategory, entityCategory, item)
		if err != nil {
			return nil, "", err
		}
		out = append(out, rec.entity())
	}
	return out, next, nil
}
