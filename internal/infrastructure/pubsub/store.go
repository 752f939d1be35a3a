package pubsub

import (
	"errors"
	"sort"
	"sync"

	"github.com/timshannon/badgerhold/v4"
)

// WebhookStore persists the webhook subscriptions.
type WebhookStore interface {
	Add(sub Webhook) error
	Get(id string) (*Webhook, error)
	Remove(id string) error
	ListForTopic(topic string) ([]Webhook, error)
}

type inMemoryStore struct {
	lock *sync.RWMutex
	subs map[string]Webhook
}

// NewInMemoryStore returns a store that loses the webhooks at shutdown.
func NewInMemoryStore() WebhookStore {
	return &inMemoryStore{
		lock: &sync.RWMutex{},
		subs: make(map[string]Webhook),
	}
}

func (s *inMemoryStore) Add(sub Webhook) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.subs[sub.ID] = sub
	return nil
}

func (s *inMemoryStore) Get(id string) (*Webhook, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	sub, ok := s.subs[id]
	if !ok {
		return nil, ErrSubscriptionNotFound
	}
	return &sub, nil
}

func (s *inMemoryStore) Remove(id string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.subs[id]; !ok {
		return ErrSubscriptionNotFound
	}
	delete(s.subs, id)
	return nil
}

func (s *inMemoryStore) ListForTopic(topic string) ([]Webhook, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	hooks := make([]Webhook, 0)
	for _, hook := range s.subs {
		if hook.EventTopic == topic {
			hooks = append(hooks, hook)
		}
	}
	sort.SliceStable(hooks, func(i, j int) bool {
		if hooks[i].CreatedAt != hooks[j].CreatedAt {
			return hooks[i].CreatedAt < hooks[j].CreatedAt
		}
		return hooks[i].ID < hooks[j].ID
	})
	return hooks, nil
}

type badgerStore struct {
	store *badgerhold.Store
}

// NewBadgerStore returns a store keeping the webhooks in the given
// badgerhold store.
func NewBadgerStore(store *badgerhold.Store) (WebhookStore, error) {
	if store == nil {
		return nil, ErrNullStore
	}
	return badgerStore{store}, nil
}

func (s badgerStore) Add(sub Webhook) error {
	return s.store.Upsert(sub.ID, sub)
}

func (s badgerStore) Get(id string) (*Webhook, error) {
	sub := &Webhook{}
	if err := s.store.Get(id, sub); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	return sub, nil
}

func (s badgerStore) Remove(id string) error {
	if err := s.store.Delete(id, Webhook{}); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return ErrSubscriptionNotFound
		}
		return err
	}
	return nil
}

func (s badgerStore) ListForTopic(topic string) ([]Webhook, error) {
	var hooks []Webhook
	query := badgerhold.Where("EventTopic").Eq(topic).SortBy("CreatedAt", "ID")
	if err := s.store.Find(&hooks, query); err != nil {
		return nil, err
	}
	if hooks == nil {
		hooks = make([]Webhook, 0)
	}
	return hooks, nil
}
