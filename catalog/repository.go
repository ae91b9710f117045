package catalog

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/e-lopezc/serverless-product-catalog-api/catalog/keys"
	"github.com/e-lopezc/serverless-product-catalog-api/dynamodb/ddbiface"
	"github.com/e-lopezc/serverless-product-catalog-api/dynamodb/table"
)

func (d *deps) key(kind keys.Kind, entity, id string) (table.PrimaryKey, error) {
	pk, sk, err := keys.PrimaryKey(kind, id)
	if err != nil {
		return table.PrimaryKey{}, storageError(entity, id, err)
	}
	return d.store.Table().Key(pk, sk), nil
}

func (d *deps) get(ctx context.Context, kind keys.Kind, entity, id string) (ddbiface.Item, error) {
	key, err := d.key(kind, entity, id)
	if err != nil {
		return nil, err
	}
	item, err := d.store.GetItem(ctx, key)
	if errors.Is(err, ddbiface.ErrItemNotFound) {
		return nil, notFound(entity, id)
	}
	if err != nil {
		return nil, storageError(entity, id, err)
	}
	return item, nil
}

// insert writes a new item. The condition only guards against id
// collisions; business duplicates are caught by the uniqueness guard.
func (d *deps) insert(ctx context.Context, entity, id string, item ddbiface.Item) error {
	err := d.store.PutItem(ctx, item, ddbiface.ItemNotExists())
	if errors.Is(err, ddbiface.ErrConditionFailed) {
		return conflict(entity, id, "id already exists")
	}
	if err != nil {
		return storageError(entity, id, err)
	}
	d.logger.Debug("created", zap.String("entity", entity), zap.String("id", id))
	return nil
}

// replace turns the stored item old, read at version, into next.
func (d *deps) replace(ctx context.Context, kind keys.Kind, entity, id string, old, next ddbiface.Item, version int64) (ddbiface.Item, error) {
	key, err := d.key(kind, entity, id)
	if err != nil {
		return nil, err
	}
	upd := append(diffUpdate(old, next), ddbiface.AddNumberOp(AttrVersion, 1))
	item, err := d.store.UpdateItem(ctx, key, upd, ddbiface.AttributeEquals(AttrVersion, version))
	if errors.Is(err, ddbiface.ErrConditionFailed) {
		return nil, d.lostRace(ctx, kind, entity, id)
	}
	if err != nil {
		return nil, storageError(entity, id, err)
	}
	d.logger.Debug("updated", zap.String("entity", entity), zap.String("id", id))
	return item, nil
}

// lostRace explains a failed version check: the item is gone or was
// written by someone else.
func (d *deps) lostRace(ctx context.Context, kind keys.Kind, entity, id string) error {
	if _, err := d.get(ctx, kind, entity, id); err != nil {
		return err
	}
	return conflict(entity, id, "modified concurrently")
}

// remove deletes the item and returns it as it was.
func (d *deps) remove(ctx context.Context, kind keys.Kind, entity, id string) (ddbiface.Item, error) {
	key, err := d.key(kind, entity, id)
	if err != nil {
		return nil, err
	}
	old, err := d.store.DeleteItem(ctx, key, ddbiface.ItemExists())
	if errors.Is(err, ddbiface.ErrConditionFailed) {
		return nil, notFound(entity, id)
	}
	if err != nil {
		return nil, storageError(entity, id, err)
	}
	d.logger.Debug("deleted", zap.String("entity", entity), zap.String("id", id))
	return old, nil
}

// newEntityID draws an id and checks it can be embedded in a key.
func (d *deps) newEntityID(entity string) (string, error) {
	id := d.newID()
	if err := keys.ValidateID(id); err != nil {
		return "", &Error{Kind: KindInternal, Entity: entity, Message: "generated id is not a valid key", Err: err}
	}
	return id, nil
}

func (d *deps) checkVersion(entity, id string, want *int64, have int64) error {
	if want != nil && *want != have {
		return conflict(entity, id, "version mismatch")
	}
	return nil
}

// decode unmarshals a stored item of the given kind.
func decode[R any](kind keys.Kind, entity string, item ddbiface.Item) (R, error) {
	var rec R
	if err := decodeItem(kind, item, &rec); err != nil {
		return rec, &Error{Kind: KindInternal, Entity: entity, Err: err}
	}
	return rec, nil
}

// trimmed returns a trimmed copy of an optional patch field.
func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
