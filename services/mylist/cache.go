package mylist

import (
	"sync"

	"pleura/models"
	"pleura/services/users"
)

// Cache mirrors a user's myList as an in-memory membership set so UI
// surfaces can answer "is this saved?" synchronously. It subscribes to the
// user document store and rebuilds the set on every snapshot.
type Cache struct {
	mu     sync.RWMutex
	users  *users.Service
	userID string
	keys   map[string]struct{}
	items  []models.ContentItem
	unsub  users.UnsubscribeFunc
}

// NewCache attaches to the user's document stream. Close releases the
// subscription.
func NewCache(svc *users.Service, userID string) *Cache {
	c := &Cache{
		users:  svc,
		userID: userID,
		keys:   make(map[string]struct{}),
	}
	c.unsub = svc.Watch(userID, c.apply)
	return c
}

func (c *Cache) apply(u models.User) {
	keys := make(map[string]struct{}, len(u.MyList))
	for _, item := range u.MyList {
		keys[item.Key()] = struct{}{}
	}
	c.mu.Lock()
	c.keys = keys
	c.items = u.MyList
	c.mu.Unlock()
}

// IsMember reports whether the item is in the list, keyed by (id, kind).
func (c *Cache) IsMember(item models.ContentItem) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.keys[item.Key()]
	return ok
}

// Items returns the current list snapshot in stored order.
func (c *Cache) Items() []models.ContentItem {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.ContentItem, len(c.items))
	copy(out, c.items)
	return out
}

// Toggle adds the item when absent and removes it when present, returning
// the resulting membership.
func (c *Cache) Toggle(item models.ContentItem) (bool, error) {
	if c.IsMember(item) {
		if err := c.users.RemoveFromList(c.userID, item); err != nil {
			return true, err
		}
		return false, nil
	}
	if err := c.users.AddToList(c.userID, item); err != nil {
		return false, err
	}
	return true, nil
}

// Close detaches the cache from the document stream.
func (c *Cache) Close() {
	if c.unsub != nil {
		c.unsub()
		c.unsub = nil
	}
}
