package dbbadger

import (
	"context"
	"fmt"
	"math/big"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/dgraph-io/badger/v3/options"
	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/ctf-amm/internal/core/domain"
	"github.com/tdex-network/ctf-amm/internal/storageutil/uow"
	"github.com/timshannon/badgerhold/v4"
)

const (
	bookPrefix     = "book/"
	eventSequence  = "event_sequence"
	gcInterval     = 30 * time.Minute
	gcDiscardRatio = 0.5
)

// DbManager holds the badgerhold store of the daemon. The market, the audit
// log and the ledgers' book all live in the same database, so that a single
// badger transaction makes an operation atomic.
type DbManager struct {
	store    *badgerhold.Store
	sequence *badger.Sequence
	stopGC   chan struct{}

	marketRepository domain.MarketRepository
	eventRepository  domain.EventRepository
}

// NewDbManager opens (or creates if not exists) the badger store on disk. It
// expects a base data dir and an optional logger. An empty dir makes the store
// in-memory.
func NewDbManager(baseDbDir string, logger badger.Logger) (*DbManager, error) {
	var dbDir string
	if len(baseDbDir) > 0 {
		dbDir = filepath.Join(baseDbDir, "db")
	}

	store, err := createDb(dbDir, logger)
	if err != nil {
		return nil, fmt.Errorf("opening main db: %w", err)
	}

	sequence, err := store.Badger().GetSequence([]byte(eventSequence), 100)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("opening event sequence: %w", err)
	}

	d := &DbManager{
		store:    store,
		sequence: sequence,
		stopGC:   make(chan struct{}),
	}
	d.marketRepository = marketRepositoryImpl{d}
	d.eventRepository = eventRepositoryImpl{d}

	if len(dbDir) > 0 {
		go d.runValueLogGC()
	}
	return d, nil
}

func (d *DbManager) MarketRepository() domain.MarketRepository {
	return d.marketRepository
}

func (d *DbManager) EventRepository() domain.EventRepository {
	return d.eventRepository
}

func (d *DbManager) Transactionals() []uow.Transactional {
	return []uow.Transactional{d}
}

// Store returns the underlying badgerhold store.
func (d *DbManager) Store() *badgerhold.Store {
	return d.store
}

func (d *DbManager) Close() {
	close(d.stopGC)
	if err := d.sequence.Release(); err != nil {
		log.WithError(err).Warn("failed to release event sequence")
	}
	d.store.Close()
}

// Begin implements uow.Transactional. The returned transaction can be used as
// a ledger book.
func (d *DbManager) Begin() (uow.Tx, error) {
	return &Tx{d.store.Badger().NewTransaction(true)}, nil
}

// ContextKey implements uow.ContextProvider.
func (d *DbManager) ContextKey() interface{} {
	return d
}

// update runs fn within the transaction carried by ctx, or within a new one.
func (d *DbManager) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if tx, ok := uow.TxFromContext(ctx, d); ok {
		if btx, ok := tx.(*Tx); ok {
			return fn(btx.txn)
		}
	}
	return d.store.Badger().Update(fn)
}

// view is like update, but any transaction it opens is read-only.
func (d *DbManager) view(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if tx, ok := uow.TxFromContext(ctx, d); ok {
		if btx, ok := tx.(*Tx); ok {
			return fn(btx.txn)
		}
	}
	return d.store.Badger().View(fn)
}

func (d *DbManager) runValueLogGC() {
	ticker := time.NewTicker(gcInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.stopGC:
			return
		case <-ticker.C:
			if err := d.store.Badger().RunValueLogGC(gcDiscardRatio); err != nil &&
				err != badger.ErrNoRewrite {
				log.Error(err)
			}
		}
	}
}

// Tx wraps a read-write badger transaction.
type Tx struct {
	txn *badger.Txn
}

func (t *Tx) Commit() error {
	return t.txn.Commit()
}

func (t *Tx) Rollback() error {
	t.txn.Discard()
	return nil
}

// Get implements ledger.KV, missing entries are zero.
func (t *Tx) Get(key string) (*big.Int, error) {
	item, err := t.txn.Get([]byte(bookPrefix + key))
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return big.NewInt(0), nil
		}
		return nil, err
	}

	value, err := item.ValueCopy(nil)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(value), nil
}

// Set implements ledger.KV, zero values are deleted.
func (t *Tx) Set(key string, value *big.Int) error {
	if value.Sign() == 0 {
		return t.txn.Delete([]byte(bookPrefix + key))
	}
	return t.txn.Set([]byte(bookPrefix+key), value.Bytes())
}

func createDb(dbDir string, logger badger.Logger) (*badgerhold.Store, error) {
	isInMemory := len(dbDir) <= 0

	opts := badger.DefaultOptions(dbDir)
	opts.Logger = logger

	if isInMemory {
		opts.InMemory = true
	} else {
		opts.Compression = options.ZSTD
	}

	return badgerhold.Open(badgerhold.Options{
		Encoder:          badgerhold.DefaultEncode,
		Decoder:          badgerhold.DefaultDecode,
		SequenceBandwith: 100,
		Options:          opts,
	})
}
