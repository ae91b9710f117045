// Package keys maps catalog entity identities to the physical keys of the
// single catalog table and back.
//
// Every entity item has PK = SK = "<KIND>#<id>". Products are additionally
// projected into a by-brand index (hash brand_id, range product_id) and a
// by-category index (hash "CATEGORY#<category_id>", range product_id).
// Brands and categories share that last index under the hashes "BRAND_LIST"
// and "CATEGORY_LIST", ranged by their upper-cased name.
//
// The inverted index (hash SK, range PK) only answers exact-SK lookups: the
// store requires equality on an index hash key, and every item has a
// distinct SK, so the inverted index cannot enumerate a kind. Listing a kind
// uses the kind index instead, whose hash is the bare kind name and whose
// range is PK.
package keys

import (
	"errors"
	"fmt"
	"strings"
)

// Separator joins the kind and the id inside a key.
const Separator = "#"

// ErrMalformedIdentifier is returned for ids that are empty or contain the
// separator, and for keys that do not parse.
var ErrMalformedIdentifier = errors.New("malformed identifier")

type Kind string

const (
	KindBrand    Kind = "BRAND"
	KindCategory Kind = "CATEGORY"
	KindProduct  Kind = "PRODUCT"
)

func (k Kind) Valid() bool {
	switch k {
	case KindBrand, KindCategory, KindProduct:
		return true
	}
	return false
}

// ValidateID checks that id can be embedded in a key.
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty id", ErrMalformedIdentifier)
	}
	if strings.Contains(id, Separator) {
		return fmt.Errorf("%w: id %q contains %q", ErrMalformedIdentifier, id, Separator)
	}
	return nil
}

// PrimaryKey returns the table key of an entity. PK and SK are equal.
func PrimaryKey(kind Kind, id string) (pk, sk string, err error) {
	if !kind.Valid() {
		return "", "", fmt.Errorf("%w: unknown kind %q", ErrMalformedIdentifier, kind)
	}
	if err := ValidateID(id); err != nil {
		return "", "", err
	}
	k := string(kind) + Separator + id
	return k, k, nil
}

// ParsePrimaryKey is the inverse of PrimaryKey.
func ParsePrimaryKey(pk, sk string) (Kind, string, error) {
	if pk != sk {
		return "", "", fmt.Errorf("%w: PK %q and SK %q differ", ErrMalformedIdentifier, pk, sk)
	}
	kind, id, ok := strings.Cut(pk, Separator)
	if !ok {
		return "", "", fmt.Errorf("%w: key %q has no kind", ErrMalformedIdentifier, pk)
	}
	k := Kind(kind)
	if !k.Valid() {
		return "", "", fmt.Errorf("%w: unknown kind %q", ErrMalformedIdentifier, kind)
	}
	if err := ValidateID(id); err != nil {
		return "", "", err
	}
	return k, id, nil
}

// IndexKey is the hash and range value of an item in a secondary index.
type IndexKey struct {
	Hash  string
	Range string
}

// InvertedIndexKey swaps the table key: hash SK, range PK.
func InvertedIndexKey(pk, sk string) IndexKey {
	return IndexKey{Hash: sk, Range: pk}
}

// ByBrandKey returns the by-brand index key of a product.
func ByBrandKey(brandID, productID string) (IndexKey, error) {
	if err := ValidateID(brandID); err != nil {
		return IndexKey{}, fmt.Errorf("brand_id: %w", err)
	}
	if err := ValidateID(productID); err != nil {
		return IndexKey{}, fmt.Errorf("product_id: %w", err)
	}
	return IndexKey{Hash: brandID, Range: productID}, nil
}

// ByCategoryHash is the by-category index hash for a category.
func ByCategoryHash(categoryID string) string {
	return string(KindCategory) + Separator + categoryID
}

// ByCategoryKey returns the by-category index key of a product.
func ByCategoryKey(categoryID, productID string) (IndexKey, error) {
	if err := ValidateID(categoryID); err != nil {
		return IndexKey{}, fmt.Errorf("category_id: %w", err)
	}
	if err := ValidateID(productID); err != nil {
		return IndexKey{}, fmt.Errorf("product_id: %w", err)
	}
	return IndexKey{Hash: ByCategoryHash(categoryID), Range: productID}, nil
}

// NameListHash is the by-name index hash under which every entity of kind
// is listed.
func NameListHash(kind Kind) string {
	return string(kind) + "_LIST"
}

// ByNameKey returns the by-name index key of a brand or category.
func ByNameKey(kind Kind, name string) (IndexKey, error) {
	if kind != KindBrand && kind != KindCategory {
		return IndexKey{}, fmt.Errorf("%w: %s entities are not listed by name", ErrMalformedIdentifier, kind)
	}
	if strings.TrimSpace(name) == "" {
		return IndexKey{}, fmt.Errorf("%w: empty name", ErrMalformedIdentifier)
	}
	return IndexKey{Hash: NameListHash(kind), Range: strings.ToUpper(name)}, nil
}

// KindIndexKey returns the kind index key of an item with table key pk.
func KindIndexKey(kind Kind, pk string) IndexKey {
	return IndexKey{Hash: string(kind), Range: pk}
}

// UniqueKey returns the table key of the reservation item that holds a
// unique value within scope. The value must already be normalized. Unlike
// ids, values may contain the separator: the key is never parsed back.
func UniqueKey(scope, value string) (pk, sk string, err error) {
	if scope == "" || strings.Contains(scope, Separator) {
		return "", "", fmt.Errorf("%w: scope %q", ErrMalformedIdentifier, scope)
	}
	if value == "" {
		return "", "", fmt.Errorf("%w: empty unique value", ErrMalformedIdentifier)
	}
	k := "UNIQUE" + Separator + scope + Separator + value
	return k, k, nil
}
