package catalog

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/e-lopezc/serverless-product-catalog-api/catalog/keys"
	"github.com/e-lopezc/serverless-product-catalog-api/dynamodb/ddbiface"
)

// ReferenceChecker verifies the references between catalog entities.
//
// CheckProductReferences is a read before a separate write. A brand or
// category deleted between the check and the product write leaves the
// product pointing at nothing. HasDependents is authoritative for the
// operation it guards only as far as no product is written concurrently.
type ReferenceChecker struct {
	store ddbiface.Store
}

func NewReferenceChecker(store ddbiface.Store) *ReferenceChecker {
	return &ReferenceChecker{store: store}
}

// Exists reports whether the entity of the given kind and id is stored.
func (c *ReferenceChecker) Exists(ctx context.Context, kind keys.Kind, id string) (bool, error) {
	pk, sk, err := keys.PrimaryKey(kind, id)
	if err != nil {
		return false, err
	}
	_, err = c.store.GetItem(ctx, c.store.Table().Key(pk, sk))
	switch {
	case errors.Is(err, ddbiface.ErrItemNotFound):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}

// CheckProductReferences looks up the brand and the category concurrently
// and fails with InvalidReference naming whichever is missing.
func (c *ReferenceChecker) CheckProductReferences(ctx context.Context, brandID, categoryID string) error {
	var brandOK, categoryOK bool
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		brandOK, err = c.Exists(gctx, keys.KindBrand, brandID)
		return err
	})
	g.Go(func() error {
		var err error
		categoryOK, err = c.Exists(gctx, keys.KindCategory, categoryID)
		return err
	})
	if err := g.Wait(); err != nil {
		return storageError(entityProduct, "", err)
	}

	switch {
	case !brandOK && !categoryOK:
		return &Error{Kind: KindInvalidReference, Entity: entityProduct, Field: "brand_id",
			Message: fmt.Sprintf("brand %q and category %q do not exist", brandID, categoryID)}
	case !brandOK:
		return &Error{Kind: KindInvalidReference, Entity: entityProduct, Field: "brand_id",
			Message: fmt.Sprintf("brand %q does not exist", brandID)}
	case !categoryOK:
		return &Error{Kind: KindInvalidReference, Entity: entityProduct, Field: "category_id",
			Message: fmt.Sprintf("category %q does not exist", categoryID)}
	}
	return nil
}

// MaxCategoryDepth bounds the ancestor chain above a category.
const MaxCategoryDepth = 32

// CheckCategoryParent verifies that parentID names a stored category and
// that making it the parent of categoryID closes no cycle. The walk up the
// ancestors stops at a root or at an ancestor that no longer exists.
func (c *ReferenceChecker) CheckCategoryParent(ctx context.Context, categoryID, parentID string) error {
	next := parentID
	for depth := 0; next != ""; depth++ {
		if next == categoryID {
			return &Error{Kind: KindInvalidArgument, Entity: entityCategory, ID: categoryID, Field: AttrParentID,
				Message: "category cannot be its own ancestor"}
		}
		if depth == MaxCategoryDepth {
			return &Error{Kind: KindInvalidArgument, Entity: entityCategory, ID: categoryID, Field: AttrParentID,
				Message: fmt.Sprintf("category hierarchy deeper than %d", MaxCategoryDepth)}
		}
		parent, err := c.category(ctx, next)
		switch {
		case errors.Is(err, ddbiface.ErrItemNotFound) && depth == 0:
			return &Error{Kind: KindInvalidReference, Entity: entityCategory, ID: categoryID, Field: AttrParentID,
				Message: fmt.Sprintf("category %q does not exist", parentID)}
		case errors.Is(err, ddbiface.ErrItemNotFound):
			return nil
		case err != nil:
			return storageError(entityCategory, categoryID, err)
		}
		next = parent.ParentID
	}
	return nil
}

func (c *ReferenceChecker) category(ctx context.Context, id string) (categoryRecord, error) {
	pk, sk, err := keys.PrimaryKey(keys.KindCategory, id)
	if err != nil {
		return categoryRecord{}, err
	}
	item, err := c.store.GetItem(ctx, c.store.Table().Key(pk, sk))
	if err != nil {
		return categoryRecord{}, err
	}
	var rec categoryRecord
	if err := decodeItem(keys.KindCategory, item, &rec); err != nil {
		return categoryRecord{}, err
	}
	return rec, nil
}

// HasDependents reports whether at least one product references the brand
// or category.
func (c *ReferenceChecker) HasDependents(ctx context.Context, kind keys.Kind, id string) (bool, error) {
	if err := keys.ValidateID(id); err != nil {
		return false, err
	}
	q := ddbiface.Query{Limit: 1}
	switch kind {
	case keys.KindBrand:
		q.Index, q.Partition = IndexByBrand, id
	case keys.KindCategory:
		q.Index, q.Partition = IndexByCategory, keys.ByCategoryHash(id)
	default:
		return false, fmt.Errorf("%s entities have no dependents", kind)
	}
	page, err := c.store.Query(ctx, q)
	if err != nil {
		return false, err
	}
	return len(page.Items) > 0, nil
}
