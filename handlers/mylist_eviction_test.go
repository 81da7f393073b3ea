package handlers

import (
	"testing"
	"time"

	"github.com/spf13/afero"

	"pleura/models"
	"pleura/services/users"
)

func TestMyListHandler_EvictsIdleCaches(t *testing.T) {
	svc, err := users.NewService(afero.NewMemMapFs(), "data")
	if err != nil {
		t.Fatalf("failed to create users service: %v", err)
	}
	if _, err := svc.Create(models.User{ID: "u1"}); err != nil {
		t.Fatal(err)
	}

	h := NewMyListHandler(svc)
	defer h.Close()

	h.cacheFor("u1")
	h.evictIdle(time.Now().Add(myListCacheTTL + time.Minute))

	h.mu.Lock()
	remaining := len(h.caches)
	h.mu.Unlock()
	if remaining != 0 {
		t.Fatalf("expected idle cache to be evicted, %d remain", remaining)
	}

	// A fresh access rebuilds the cache with current data.
	if err := svc.AddToList("u1", models.ContentItem{ID: 9, MediaType: models.MediaTypeMovie}); err != nil {
		t.Fatal(err)
	}
	if !h.cacheFor("u1").IsMember(models.ContentItem{ID: 9, MediaType: models.MediaTypeMovie}) {
		t.Error("expected rebuilt cache to see the stored list")
	}
}

func TestMyListHandler_RecentCacheSurvivesEviction(t *testing.T) {
	svc, err := users.NewService(afero.NewMemMapFs(), "data")
	if err != nil {
		t.Fatalf("failed to create users service: %v", err)
	}
	if _, err := svc.Create(models.User{ID: "u1"}); err != nil {
		t.Fatal(err)
	}

	h := NewMyListHandler(svc)
	defer h.Close()

	h.cacheFor("u1")
	h.evictIdle(time.Now())

	h.mu.Lock()
	remaining := len(h.caches)
	h.mu.Unlock()
	if remaining != 1 {
		t.Fatalf("expected recently used cache to survive, %d remain", remaining)
	}
}
