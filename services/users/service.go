package users

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"

	"pleura/models"
)

var (
	ErrStorageDirRequired = errors.New("storage directory not provided")
	ErrUserIDRequired     = errors.New("user id is required")
	ErrUserNotFound       = errors.New("user not found")
	ErrItemIDRequired     = errors.New("item id is required")
)

// SnapshotFunc receives the full user document after every change.
type SnapshotFunc func(models.User)

// UnsubscribeFunc detaches a watcher registered with Watch.
type UnsubscribeFunc func()

// Service persists per-user profile documents (profile fields plus the
// myList array) as one JSON file per user and pushes full-document
// snapshots to subscribers on every mutation. The filesystem is abstracted
// behind afero so tests run against an in-memory fs.
type Service struct {
	mu       sync.RWMutex
	fs       afero.Fs
	dir      string
	users    map[string]models.User
	watchers map[string]map[int]SnapshotFunc
	nextID   int
}

// NewService loads existing user documents from storageDir on fs.
func NewService(fs afero.Fs, storageDir string) (*Service, error) {
	if strings.TrimSpace(storageDir) == "" {
		return nil, ErrStorageDirRequired
	}
	if fs == nil {
		fs = afero.NewOsFs()
	}

	dir := filepath.Join(storageDir, "users")
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create users dir: %w", err)
	}

	svc := &Service{
		fs:       fs,
		dir:      dir,
		users:    make(map[string]models.User),
		watchers: make(map[string]map[int]SnapshotFunc),
	}
	if err := svc.load(); err != nil {
		return nil, err
	}
	return svc, nil
}

func (s *Service) load() error {
	entries, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		return fmt.Errorf("read users dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		data, err := afero.ReadFile(s.fs, filepath.Join(s.dir, entry.Name()))
		if err != nil {
			return fmt.Errorf("read user file %s: %w", entry.Name(), err)
		}
		var u models.User
		if err := json.Unmarshal(data, &u); err != nil {
			log.Printf("[users] skipping malformed user file %s: %v", entry.Name(), err)
			continue
		}
		if u.ID != "" {
			s.users[u.ID] = u
		}
	}
	return nil
}

func (s *Service) saveLocked(u models.User) error {
	data, err := json.MarshalIndent(u, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(s.dir, u.ID+".json")
	tmp := path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o644); err != nil {
		return err
	}
	return s.fs.Rename(tmp, path)
}

// notifyLocked pushes the current document to every watcher of the user.
// Callbacks run synchronously, matching snapshot-listener semantics where
// the listener sees every committed write in order.
func (s *Service) notifyLocked(u models.User) {
	for _, fn := range s.watchers[u.ID] {
		fn(cloneUser(u))
	}
}

// Get returns the user document if present.
func (s *Service) Get(id string) (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return models.User{}, false
	}
	return cloneUser(u), true
}

// Create writes a fresh user document. An existing document with the same
// id is overwritten; sign-up flows own that decision.
func (s *Service) Create(u models.User) (models.User, error) {
	if strings.TrimSpace(u.ID) == "" {
		return models.User{}, ErrUserIDRequired
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	if u.MyList == nil {
		u.MyList = []models.ContentItem{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.saveLocked(u); err != nil {
		return models.User{}, fmt.Errorf("persist user: %w", err)
	}
	s.users[u.ID] = u
	s.notifyLocked(u)
	return cloneUser(u), nil
}

// UpdateProfile applies a partial profile write. Nil fields are left
// untouched (merge semantics). The write fails without touching state when
// persistence fails.
func (s *Service) UpdateProfile(id string, update models.ProfileUpdate) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return models.User{}, ErrUserNotFound
	}
	if update.Name != nil {
		u.Name = *update.Name
	}
	if update.Surname != nil {
		u.Surname = *update.Surname
	}
	if update.Avatar != nil {
		u.Avatar = *update.Avatar
	}
	u.UpdatedAt = time.Now().UTC()

	if err := s.saveLocked(u); err != nil {
		return models.User{}, fmt.Errorf("persist user: %w", err)
	}
	s.users[id] = u
	s.notifyLocked(u)
	return cloneUser(u), nil
}

// AddToList unions an item into the user's myList. Membership is keyed by
// (id, media kind); adding a present item is a no-op that still succeeds.
func (s *Service) AddToList(id string, item models.ContentItem) error {
	if item.ID == 0 {
		return ErrItemIDRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return ErrUserNotFound
	}
	for _, existing := range u.MyList {
		if existing.Key() == item.Key() {
			return nil
		}
	}
	u.MyList = append(append([]models.ContentItem{}, u.MyList...), item)
	u.UpdatedAt = time.Now().UTC()

	if err := s.saveLocked(u); err != nil {
		return fmt.Errorf("persist user: %w", err)
	}
	s.users[id] = u
	s.notifyLocked(u)
	return nil
}

// RemoveFromList removes the entry matching the item's (id, kind) key.
// Removing an absent entry is silently a no-op.
func (s *Service) RemoveFromList(id string, item models.ContentItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return ErrUserNotFound
	}
	idx := -1
	for i, existing := range u.MyList {
		if existing.Key() == item.Key() {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	list := append([]models.ContentItem{}, u.MyList[:idx]...)
	u.MyList = append(list, u.MyList[idx+1:]...)
	u.UpdatedAt = time.Now().UTC()

	if err := s.saveLocked(u); err != nil {
		return fmt.Errorf("persist user: %w", err)
	}
	s.users[id] = u
	s.notifyLocked(u)
	return nil
}

// Watch subscribes fn to document snapshots for the user. The current
// document (if any) is delivered immediately; every subsequent change
// delivers the full document. The returned function detaches the watcher.
func (s *Service) Watch(id string, fn SnapshotFunc) UnsubscribeFunc {
	s.mu.Lock()
	if s.watchers[id] == nil {
		s.watchers[id] = make(map[int]SnapshotFunc)
	}
	s.nextID++
	key := s.nextID
	s.watchers[id][key] = fn
	current, ok := s.users[id]
	if ok {
		current = cloneUser(current)
	}
	s.mu.Unlock()

	if ok {
		fn(current)
	}

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.watchers[id], key)
	}
}

func cloneUser(u models.User) models.User {
	list := make([]models.ContentItem, len(u.MyList))
	copy(list, u.MyList)
	u.MyList = list
	return u
}
