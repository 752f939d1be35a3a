package ledger

import (
	"math/big"
	"sync"

	"github.com/tdex-network/ctf-amm/internal/storageutil/uow"
)

type inMemoryBook struct {
	lock    *sync.RWMutex
	entries map[string]*big.Int
}

// NewInMemoryBook returns a Book keeping its entries in memory. Writes are
// staged by the transaction and applied at once on commit.
func NewInMemoryBook() Book {
	return &inMemoryBook{
		lock:    &sync.RWMutex{},
		entries: map[string]*big.Int{},
	}
}

func (b *inMemoryBook) Begin() (uow.Tx, error) {
	return &inMemoryTx{book: b, writes: map[string]*big.Int{}}, nil
}

func (b *inMemoryBook) ContextKey() interface{} {
	return b
}

type inMemoryTx struct {
	book   *inMemoryBook
	writes map[string]*big.Int
}

func (t *inMemoryTx) Get(key string) (*big.Int, error) {
	if v, ok := t.writes[key]; ok {
		return new(big.Int).Set(v), nil
	}

	t.book.lock.RLock()
	defer t.book.lock.RUnlock()

	if v, ok := t.book.entries[key]; ok {
		return new(big.Int).Set(v), nil
	}
	return big.NewInt(0), nil
}

func (t *inMemoryTx) Set(key string, value *big.Int) error {
	t.writes[key] = new(big.Int).Set(value)
	return nil
}

func (t *inMemoryTx) Commit() error {
	t.book.lock.Lock()
	defer t.book.lock.Unlock()

	for k, v := range t.writes {
		if v.Sign() == 0 {
			delete(t.book.entries, k)
			continue
		}
		t.book.entries[k] = v
	}
	t.writes = map[string]*big.Int{}
	return nil
}

func (t *inMemoryTx) Rollback() error {
	t.writes = map[string]*big.Int{}
	return nil
}
