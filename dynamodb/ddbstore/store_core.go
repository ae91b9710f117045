package ddbstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/e-lopezc/serverless-product-catalog-api/dynamodb/ddbiface"
	"github.com/e-lopezc/serverless-product-catalog-api/dynamodb/table"
)

// Store is a DynamoDB-compatible single-table store backed by BadgerDB.
// Every write, its condition and the maintenance of all GSIs run in one
// badger transaction.
type Store struct {
	db         *badger.DB
	definition table.TableDefinition
	main       *keyEncoder
	gsis       map[string]*keyEncoder
	maxRetries int
}

var _ ddbiface.Store = &Store{}

// StoreOptions configures the BadgerDB store.
type StoreOptions struct {
	// Path to the database directory. If empty, uses in-memory mode.
	Path string
	// InMemory forces in-memory mode even if Path is set.
	InMemory bool
	// Logger for BadgerDB. If nil, logging is disabled.
	Logger badger.Logger
	// ConflictRetries bounds how often a write is retried after badger
	// reports a conflicting concurrent transaction. Defaults to 16.
	ConflictRetries int
}

const defaultConflictRetries = 16

// New creates a new BadgerDB-backed store serving def.
func New(opts StoreOptions, def table.TableDefinition) (*Store, error) {
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("invalid table definition: %w", err)
	}

	badgerOpts := badger.DefaultOptions(opts.Path)
	if opts.Path == "" || opts.InMemory {
		badgerOpts = badgerOpts.WithInMemory(true).WithDir("").WithValueDir("")
	}
	// A nil logger disables badger's default stderr logging.
	badgerOpts = badgerOpts.WithLogger(opts.Logger)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("open badger db: %w", err)
	}

	s := &Store{
		db:         db,
		definition: def,
		main: &keyEncoder{
			tableName: def.Name,
			keyDef:    def.KeyDefinitions,
		},
		gsis:       make(map[string]*keyEncoder, len(def.GSIs)),
		maxRetries: opts.ConflictRetries,
	}
	if s.maxRetries <= 0 {
		s.maxRetries = defaultConflictRetries
	}
	for _, g := range def.GSIs {
		s.gsis[g.Name] = &keyEncoder{
			tableName:   def.Name,
			gsiName:     g.Name,
			keyDef:      g.KeyDefinitions,
			tableKeyDef: def.KeyDefinitions,
		}
	}
	return s, nil
}

// Close closes the BadgerDB database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Table() table.TableDefinition {
	return s.definition
}

func (s *Store) encoderFor(index string) (*keyEncoder, error) {
	if index == "" {
		return s.main, nil
	}
	e, ok := s.gsis[index]
	if !ok {
		return nil, fmt.Errorf("GSI not found: %s", index)
	}
	return e, nil
}

// update runs fn in a read-write transaction, retrying when badger detects
// a conflict with a concurrent transaction. fn must be safe to re-run.
func (s *Store) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return fmt.Errorf("%w: %d conflicting transactions", ddbiface.ErrContention, s.maxRetries)
}

// getItem reads the item stored under key, returning nil when absent.
func getItem(txn *badger.Txn, key []byte) (ddbiface.Item, error) {
	entry, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var item ddbiface.Item
	err = entry.Value(func(val []byte) error {
		var err error
		item, err = deserializeItem(val)
		return err
	})
	return item, err
}

// writeItem stores newItem in place of oldItem (either may be nil) and keeps
// every GSI in step.
func (s *Store) writeItem(txn *badger.Txn, key []byte, oldItem, newItem ddbiface.Item) error {
	for _, gsi := range s.gsis {
		if err := updateGSI(txn, gsi, oldItem, newItem); err != nil {
			return fmt.Errorf("update GSI %s: %w", gsi.gsiName, err)
		}
	}
	if newItem == nil {
		return txn.Delete(key)
	}
	itemBytes, err := serializeItem(newItem)
	if err != nil {
		return fmt.Errorf("serialize item: %w", err)
	}
	return txn.Set(key, itemBytes)
}

// updateGSI replaces the index entry projected from oldItem with the one
// projected from newItem. Items lacking the index key attributes are not
// projected.
func updateGSI(txn *badger.Txn, gsi *keyEncoder, oldItem, newItem ddbiface.Item) error {
	if oldItem != nil {
		oldKey, ok, err := gsi.encodeItemKey(oldItem)
		if err != nil {
			return err
		}
		if ok {
			if err := txn.Delete(oldKey); err != nil {
				return err
			}
		}
	}
	if newItem == nil {
		return nil
	}
	newKey, ok, err := gsi.encodeItemKey(newItem)
	if err != nil || !ok {
		return err
	}
	// GSIs store the full item
	itemBytes, err := serializeItem(newItem)
	if err != nil {
		return fmt.Errorf("serialize item for GSI: %w", err)
	}
	return txn.Set(newKey, itemBytes)
}
