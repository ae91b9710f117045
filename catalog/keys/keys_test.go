package keys

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrimaryKey(t *testing.T) {
	pk, sk, err := PrimaryKey(KindBrand, "b1")
	require.NoError(t, err)
	assert.Equal(t, "BRAND#b1", pk)
	assert.Equal(t, pk, sk)

	tests := []struct {
		name string
		kind Kind
		id   string
	}{
		{"empty id", KindProduct, ""},
		{"separator in id", KindProduct, "a#b"},
		{"unknown kind", Kind("USER"), "u1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := PrimaryKey(tt.kind, tt.id)
			assert.ErrorIs(t, err, ErrMalformedIdentifier)
		})
	}
}

func TestParsePrimaryKey(t *testing.T) {
	kind, id, err := ParsePrimaryKey("PRODUCT#p1", "PRODUCT#p1")
	require.NoError(t, err)
	assert.Equal(t, KindProduct, kind)
	assert.Equal(t, "p1", id)

	bad := [][2]string{
		{"PRODUCT#p1", "PRODUCT#p2"},
		{"PRODUCT", "PRODUCT"},
		{"USER#u", "USER#u"},
		{"PRODUCT#", "PRODUCT#"},
		{"PRODUCT#a#b", "PRODUCT#a#b"},
	}
	for _, b := range bad {
		_, _, err := ParsePrimaryKey(b[0], b[1])
		assert.ErrorIs(t, err, ErrMalformedIdentifier, b[0])
	}
}

func TestIndexKeys(t *testing.T) {
	assert.Equal(t, IndexKey{Hash: "SKV", Range: "PKV"}, InvertedIndexKey("PKV", "SKV"))

	k, err := ByBrandKey("b1", "p1")
	require.NoError(t, err)
	assert.Equal(t, IndexKey{Hash: "b1", Range: "p1"}, k)

	k, err = ByCategoryKey("c1", "p1")
	require.NoError(t, err)
	assert.Equal(t, IndexKey{Hash: "CATEGORY#c1", Range: "p1"}, k)

	_, err = ByBrandKey("", "p1")
	assert.ErrorIs(t, err, ErrMalformedIdentifier)
	_, err = ByCategoryKey("c1", "p#1")
	assert.ErrorIs(t, err, ErrMalformedIdentifier)

	assert.Equal(t, IndexKey{Hash: "PRODUCT", Range: "PRODUCT#p1"}, KindIndexKey(KindProduct, "PRODUCT#p1"))
}

func TestByNameKey(t *testing.T) {
	k, err := ByNameKey(KindBrand, "Nike Air")
	require.NoError(t, err)
	assert.Equal(t, IndexKey{Hash: "BRAND_LIST", Range: "NIKE AIR"}, k)
	assert.NotEqual(t, ByCategoryHash("x"), NameListHash(KindCategory))

	k, err = ByNameKey(KindCategory, "shoes#2")
	require.NoError(t, err)
	assert.Equal(t, IndexKey{Hash: "CATEGORY_LIST", Range: "SHOES#2"}, k)

	_, err = ByNameKey(KindProduct, "Air Max")
	assert.ErrorIs(t, err, ErrMalformedIdentifier)
	_, err = ByNameKey(KindBrand, "  ")
	assert.ErrorIs(t, err, ErrMalformedIdentifier)
}

func TestUniqueKey(t *testing.T) {
	pk, sk, err := UniqueKey("NAME-BRAND", "nike # air")
	require.NoError(t, err)
	assert.Equal(t, "UNIQUE#NAME-BRAND#nike # air", pk)
	assert.Equal(t, pk, sk)

	_, _, err = UniqueKey("", "x")
	assert.ErrorIs(t, err, ErrMalformedIdentifier)
	_, _, err = UniqueKey("A#B", "x")
	assert.ErrorIs(t, err, ErrMalformedIdentifier)
	_, _, err = UniqueKey("NAME-BRAND", "")
	assert.ErrorIs(t, err, ErrMalformedIdentifier)
}

func TestPrimaryKey_RoundTrip(t *testing.T) {
	properties := gopter.NewProperties(nil)

	validID := gen.AnyString().SuchThat(func(s string) bool {
		return s != "" && !strings.Contains(s, Separator)
	})
	kind := gen.OneConstOf(KindBrand, KindCategory, KindProduct)

	properties.Property("parse inverts encode", prop.ForAll(
		func(k Kind, id string) bool {
			pk, sk, err := PrimaryKey(k, id)
			if err != nil {
				return false
			}
			gotKind, gotID, err := ParsePrimaryKey(pk, sk)
			return err == nil && gotKind == k && gotID == id
		},
		kind, validID,
	))

	properties.Property("ids with a separator are rejected", prop.ForAll(
		func(k Kind, a, b string) bool {
			_, _, err := PrimaryKey(k, a+Separator+b)
			return err != nil
		},
		kind, gen.AlphaString(), gen.AlphaString(),
	))

	properties.TestingRun(t)
}
