package catalog

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategories_Lifecycle(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	cat, err := c.Categories.Create(ctx, Category{Name: "  Running Shoes ", Description: "Everything for runners"})
	require.NoError(t, err)
	assert.Equal(t, "Running Shoes", cat.Name)
	assert.Equal(t, int64(1), cat.Version)

	_, err = c.Categories.Create(ctx, Category{Name: "running shoes"})
	assert.ErrorIs(t, err, ErrDuplicateName)

	_, err = c.Categories.Create(ctx, Category{Name: "X"})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = c.Categories.Create(ctx, Category{Name: "Socks", Description: "short"})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	ok, err := c.Categories.Exists(ctx, cat.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	t.Run("rename frees the old name", func(t *testing.T) {
		up, err := c.Categories.Update(ctx, cat.ID, CategoryPatch{Name: ptr("Trail Shoes"), IfVersion: ptr(int64(1))})
		require.NoError(t, err)
		assert.Equal(t, "Trail Shoes", up.Name)
		assert.Equal(t, "Everything for runners", up.Description)
		assert.Equal(t, int64(2), up.Version)

		_, err = c.Categories.Create(ctx, Category{Name: "Running Shoes"})
		assert.NoError(t, err)
	})

	t.Run("stale version", func(t *testing.T) {
		_, err := c.Categories.Update(ctx, cat.ID, CategoryPatch{Description: ptr("A stale description"), IfVersion: ptr(int64(1))})
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("clearing the description", func(t *testing.T) {
		up, err := c.Categories.Update(ctx, cat.ID, CategoryPatch{Description: ptr("")})
		require.NoError(t, err)
		assert.Empty(t, up.Description)
		got, err := c.Categories.GetByID(ctx, cat.ID)
		require.NoError(t, err)
		assert.Equal(t, up, got)
	})

	t.Run("delete blocked by products", func(t *testing.T) {
		b, err := c.Brands.Create(ctx, Brand{Name: "Salomon"})
		require.NoError(t, err)
		p, err := c.Products.Create(ctx, newProduct(b, cat, "Speedcross"))
		require.NoError(t, err)

		assert.ErrorIs(t, c.Categories.Delete(ctx, cat.ID), ErrConflict)
		require.NoError(t, c.Products.Delete(ctx, p.ID))
		require.NoError(t, c.Categories.Delete(ctx, cat.ID))

		_, err = c.Categories.GetByID(ctx, cat.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, c.Categories.Delete(ctx, cat.ID), ErrNotFound)

		_, err = c.Categories.Create(ctx, Category{Name: "Trail Shoes"})
		assert.NoError(t, err, "deleted category name is free again")
	})
}

func TestCategories_List(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()
	names := []string{"Apparel", "Bags", "Caps", "Denim", "Eyewear"}
	for _, n := range names {
		_, err := c.Categories.Create(ctx, Category{Name: n})
		require.NoError(t, err)
	}
	_, err := c.Brands.Create(ctx, Brand{Name: "Levis"})
	require.NoError(t, err)

	var got []string
	token := ""
	pages := 0
	for {
		page, next, err := c.Categories.List(ctx, 2, token)
		require.NoError(t, err)
		pages++
		for _, cat := range page {
			got = append(got, cat.Name)
		}
		if next == "" {
			break
		}
		token = next
	}
	assert.Equal(t, names, got, "brands are not listed with categories")
	assert.Equal(t, 3, pages)

	_, _, err = c.Categories.List(ctx, 2, "not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestCategories_ListByName(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()
	ids := map[string]string{}
	for _, n := range []string{"socks", "Boots", "apparel"} {
		cat, err := c.Categories.Create(ctx, Category{Name: n})
		require.NoError(t, err)
		ids[n] = cat.ID
	}
	_, err := c.Brands.Create(ctx, Brand{Name: "Bata"})
	require.NoError(t, err)

	names := func() []string {
		var out []string
		token := ""
		for {
			page, next, err := c.Categories.ListByName(ctx, 2, token)
			require.NoError(t, err)
			for _, cat := range page {
				out = append(out, cat.Name)
			}
			if next == "" {
				return out
			}
			token = next
		}
	}
	assert.Equal(t, []string{"apparel", "Boots", "socks"}, names())

	_, err = c.Categories.Update(ctx, ids["apparel"], CategoryPatch{Name: ptr("Tops")})
	require.NoError(t, err)
	assert.Equal(t, []string{"Boots", "socks", "Tops"}, names(), "a rename moves the category")

	_, err = c.Categories.Update(ctx, ids["Boots"], CategoryPatch{Description: ptr("Footwear for all seasons")})
	require.NoError(t, err)
	assert.Equal(t, []string{"Boots", "socks", "Tops"}, names(), "other updates keep the position")
}

func TestCategories_Parent(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	root, err := c.Categories.Create(ctx, Category{Name: "Apparel"})
	require.NoError(t, err)
	mid, err := c.Categories.Create(ctx, Category{Name: "Footwear", ParentID: " " + root.ID + " "})
	require.NoError(t, err)
	assert.Equal(t, root.ID, mid.ParentID)
	leaf, err := c.Categories.Create(ctx, Category{Name: "Trail", ParentID: mid.ID})
	require.NoError(t, err)

	got, err := c.Categories.GetByID(ctx, leaf.ID)
	require.NoError(t, err)
	assert.Equal(t, mid.ID, got.ParentID)

	_, err = c.Categories.Create(ctx, Category{Name: "Orphan", ParentID: "ghost"})
	require.ErrorIs(t, err, ErrInvalidReference)
	var cerr *Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, AttrParentID, cerr.Field)

	_, err = c.Categories.Create(ctx, Category{Name: "Broken", ParentID: "a#b"})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	tests := []struct {
		name   string
		id     string
		parent string
		want   error
	}{
		{"self", root.ID, root.ID, ErrInvalidArgument},
		{"direct cycle", mid.ID, leaf.ID, ErrInvalidArgument},
		{"indirect cycle", root.ID, leaf.ID, ErrInvalidArgument},
		{"missing parent", leaf.ID, "ghost", ErrInvalidReference},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Categories.Update(ctx, tt.id, CategoryPatch{ParentID: ptr(tt.parent)})
			assert.ErrorIs(t, err, tt.want)
		})
	}

	up, err := c.Categories.Update(ctx, leaf.ID, CategoryPatch{ParentID: ptr(root.ID)})
	require.NoError(t, err)
	assert.Equal(t, root.ID, up.ParentID)

	up, err = c.Categories.Update(ctx, leaf.ID, CategoryPatch{ParentID: ptr("")})
	require.NoError(t, err)
	assert.Empty(t, up.ParentID)

	_, err = c.Categories.Update(ctx, root.ID, CategoryPatch{ParentID: ptr(leaf.ID)})
	assert.NoError(t, err, "leaf is no longer below root")
}

func TestReferenceChecker_CategoryDepth(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	parent := ""
	var last Category
	for i := 0; i <= MaxCategoryDepth; i++ {
		cat, err := c.Categories.Create(ctx, Category{Name: fmt.Sprintf("Level %02d", i), ParentID: parent})
		require.NoError(t, err)
		parent, last = cat.ID, cat
	}

	_, err := c.Categories.Create(ctx, Category{Name: "Too deep", ParentID: last.ID})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}
