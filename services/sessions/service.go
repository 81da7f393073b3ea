package sessions

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"pleura/models"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
	ErrInvalidToken    = errors.New("invalid token")
)

const (
	// DefaultSessionDuration is the lifetime of a regular sign-in.
	DefaultSessionDuration = 30 * 24 * time.Hour

	// PersistentSessionDuration backs "remember me" sign-ins and guest
	// devices, which stay signed in until they explicitly leave.
	PersistentSessionDuration = 100 * 365 * 24 * time.Hour

	tokenBytes = 32
)

// Service issues and validates opaque session tokens. Sessions are held in
// memory keyed by token and mirrored to sessions.json after every change.
type Service struct {
	mu      sync.RWMutex
	path    string
	byToken map[string]models.Session
	ttl     time.Duration
}

// NewService loads any persisted sessions from storageDir. An empty
// storageDir keeps sessions in memory only, which the tests use.
func NewService(storageDir string, ttl time.Duration) (*Service, error) {
	if ttl <= 0 {
		ttl = DefaultSessionDuration
	}
	svc := &Service{byToken: make(map[string]models.Session), ttl: ttl}

	if dir := strings.TrimSpace(storageDir); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sessions dir: %w", err)
		}
		svc.path = filepath.Join(dir, "sessions.json")
		if err := svc.load(); err != nil {
			return nil, err
		}
	}

	go svc.sweepLoop()
	return svc, nil
}

// Create issues a session with the service's default lifetime.
func (s *Service) Create(accountID string, isGuest bool, userAgent, ipAddress string) (models.Session, error) {
	return s.CreateWithDuration(accountID, isGuest, userAgent, ipAddress, s.ttl)
}

// CreatePersistent issues a session that effectively never expires.
func (s *Service) CreatePersistent(accountID string, isGuest bool, userAgent, ipAddress string) (models.Session, error) {
	return s.CreateWithDuration(accountID, isGuest, userAgent, ipAddress, PersistentSessionDuration)
}

// CreateWithDuration issues a session with an explicit lifetime.
func (s *Service) CreateWithDuration(accountID string, isGuest bool, userAgent, ipAddress string, d time.Duration) (models.Session, error) {
	raw := make([]byte, tokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return models.Session{}, fmt.Errorf("generate token: %w", err)
	}

	now := time.Now().UTC()
	session := models.Session{
		Token:     base64.URLEncoding.EncodeToString(raw),
		AccountID: accountID,
		IsGuest:   isGuest,
		ExpiresAt: now.Add(d),
		CreatedAt: now,
		UserAgent: userAgent,
		IPAddress: ipAddress,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.byToken[session.Token] = session
	if err := s.saveLocked(); err != nil {
		delete(s.byToken, session.Token)
		return models.Session{}, err
	}
	return session, nil
}

// Validate resolves a token to its live session. Expired sessions are
// dropped on sight.
func (s *Service) Validate(token string) (models.Session, error) {
	if token == "" {
		return models.Session{}, ErrInvalidToken
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.byToken[token]
	if !ok {
		return models.Session{}, ErrSessionNotFound
	}
	if session.IsExpired() {
		delete(s.byToken, token)
		_ = s.saveLocked()
		return models.Session{}, ErrSessionExpired
	}
	return session, nil
}

// Refresh pushes a session's expiry out by the default lifetime.
func (s *Service) Refresh(token string) (models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.byToken[token]
	if !ok {
		return models.Session{}, ErrSessionNotFound
	}
	if session.IsExpired() {
		delete(s.byToken, token)
		_ = s.saveLocked()
		return models.Session{}, ErrSessionExpired
	}

	session.ExpiresAt = time.Now().UTC().Add(s.ttl)
	s.byToken[token] = session
	_ = s.saveLocked()
	return session, nil
}

// Revoke invalidates one token.
func (s *Service) Revoke(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byToken[token]; !ok {
		return ErrSessionNotFound
	}
	delete(s.byToken, token)
	return s.saveLocked()
}

// RevokeOthers invalidates every session for an account except keepToken.
// Used after a password change so stolen tokens die with the old password.
func (s *Service) RevokeOthers(accountID, keepToken string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	dropped := 0
	for token, session := range s.byToken {
		if session.AccountID == accountID && token != keepToken {
			delete(s.byToken, token)
			dropped++
		}
	}
	if dropped > 0 {
		_ = s.saveLocked()
	}
	return dropped
}

// Count reports the number of sessions currently held, expired or not.
func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byToken)
}

// Sweep drops every expired session and reports how many went.
func (s *Service) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	dropped := 0
	for token, session := range s.byToken {
		if session.IsExpired() {
			delete(s.byToken, token)
			dropped++
		}
	}
	if dropped > 0 {
		_ = s.saveLocked()
	}
	return dropped
}

func (s *Service) sweepLoop() {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for range ticker.C {
		s.Sweep()
	}
}

func (s *Service) load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read sessions file: %w", err)
	}

	var stored map[string]models.Session
	if err := json.Unmarshal(data, &stored); err != nil {
		return fmt.Errorf("decode sessions: %w", err)
	}

	for token, session := range stored {
		if token == "" || session.IsExpired() {
			continue
		}
		session.Token = token
		s.byToken[token] = session
	}
	return nil
}

// saveLocked mirrors the session map to disk via a temp file and rename.
func (s *Service) saveLocked() error {
	if s.path == "" {
		return nil
	}

	data, err := json.MarshalIndent(s.byToken, "", "  ")
	if err != nil {
		return fmt.Errorf("encode sessions: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write sessions temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace sessions file: %w", err)
	}
	return nil
}
