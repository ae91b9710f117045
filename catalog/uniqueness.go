package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/e-lopezc/serverless-product-catalog-api/catalog/keys"
	"github.com/e-lopezc/serverless-product-catalog-api/dynamodb/ddbiface"
)

// Scope is a namespace in which a value may be held by one owner at a time.
type Scope string

const (
	ScopeBrandName    Scope = "BRAND-NAME"
	ScopeCategoryName Scope = "CATEGORY-NAME"
	ScopeProductSKU   Scope = "PRODUCT-SKU"
)

const reservationType = "UNIQUE"

func (s Scope) duplicateKind() ErrorKind {
	if s == ScopeProductSKU {
		return KindDuplicateSKU
	}
	return KindDuplicateName
}

func (s Scope) entity() string {
	switch s {
	case ScopeBrandName:
		return entityBrand
	case ScopeCategoryName:
		return entityCategory
	}
	return entityProduct
}

func (s Scope) field() string {
	if s == ScopeProductSKU {
		return "sku"
	}
	return "name"
}

// UniquenessGuard holds reservation items that map a normalized value to
// the id of the entity owning it.
//
// A reservation and the entity write that follows are separate calls. If
// the process dies between them the reservation is left behind and the
// value stays taken until Release is called for the same owner.
type UniquenessGuard struct {
	store  ddbiface.Store
	logger *zap.Logger
}

func NewUniquenessGuard(store ddbiface.Store, logger *zap.Logger) *UniquenessGuard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UniquenessGuard{store: store, logger: logger}
}

type reservationRecord struct {
	itemHeader
	Scope   string `dynamodbav:"scope"`
	Value   string `dynamodbav:"value"`
	OwnerID string `dynamodbav:"owner_id"`
}

func (g *UniquenessGuard) key(scope Scope, value string) (itemHeader, error) {
	pk, sk, err := keys.UniqueKey(string(scope), value)
	if err != nil {
		return itemHeader{}, err
	}
	return itemHeader{PK: pk, SK: sk, EntityType: reservationType}, nil
}

// Reserve claims value in scope for ownerID. Reserving a value the owner
// already holds succeeds. The value must be normalized.
func (g *UniquenessGuard) Reserve(ctx context.Context, scope Scope, value, ownerID string) error {
	h, err := g.key(scope, value)
	if err != nil {
		return storageError(scope.entity(), ownerID, err)
	}
	item, err := marshalItem(reservationRecord{itemHeader: h, Scope: string(scope), Value: value, OwnerID: ownerID})
	if err != nil {
		return storageError(scope.entity(), ownerID, err)
	}
	cond := ddbiface.Or(ddbiface.ItemNotExists(), ddbiface.AttributeEquals(AttrOwnerID, ownerID))
	err = g.store.PutItem(ctx, item, cond)
	if errors.Is(err, ddbiface.ErrConditionFailed) {
		return &Error{
			Kind:    scope.duplicateKind(),
			Entity:  scope.entity(),
			Field:   scope.field(),
			Message: fmt.Sprintf("%q is already taken", value),
		}
	}
	return storageError(scope.entity(), ownerID, err)
}

// Release frees value in scope if ownerID holds it. Releasing a value held
// by someone else, or by no one, is a no-op.
func (g *UniquenessGuard) Release(ctx context.Context, scope Scope, value, ownerID string) error {
	h, err := g.key(scope, value)
	if err != nil {
		return storageError(scope.entity(), ownerID, err)
	}
	key := g.store.Table().Key(h.PK, h.SK)
	_, err = g.store.DeleteItem(ctx, key, ddbiface.AttributeEquals(AttrOwnerID, ownerID))
	if errors.Is(err, ddbiface.ErrConditionFailed) {
		return nil
	}
	return storageError(scope.entity(), ownerID, err)
}

// Owner returns the id holding value in scope.
func (g *UniquenessGuard) Owner(ctx context.Context, scope Scope, value string) (string, error) {
	h, err := g.key(scope, value)
	if err != nil {
		return "", storageError(scope.entity(), "", err)
	}
	item, err := g.store.GetItem(ctx, g.store.Table().Key(h.PK, h.SK))
	if errors.Is(err, ddbiface.ErrItemNotFound) {
		return "", &Error{Kind: KindNotFound, Entity: scope.entity(), Field: scope.field(), Message: fmt.Sprintf("no owner for %q", value)}
	}
	if err != nil {
		return "", storageError(scope.entity(), "", err)
	}
	owner, ok := item[AttrOwnerID].(*types.AttributeValueMemberS)
	if !ok {
		return "", &Error{Kind: KindInternal, Message: "reservation without owner"}
	}
	return owner.Value, nil
}

// release is Release for cleanup paths. Failures are logged, not returned.
func (g *UniquenessGuard) release(ctx context.Context, scope Scope, value, ownerID string) {
	if value == "" {
		return
	}
	if err := g.Release(context.WithoutCancel(ctx), scope, value, ownerID); err != nil {
		g.logger.Warn("release reservation failed",
			zap.String("scope", string(scope)),
			zap.String("owner_id", ownerID),
			zap.Error(err))
	}
}
