// Package session issues demo login sessions for the dashboard client.
//
// Users, hashes and tokens live in process memory only. The store is an
// explicit object handed to the HTTP layer; nothing here is ambient.
package session

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mr1hm/go-trial-monitor/internal/apperr"
)

type Role string

const (
	RoleClinic  Role = "clinic"
	RoleManager Role = "manager"
)

// MinPasswordLength applies to registered accounts, not to seeded ones.
const MinPasswordLength = 8

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountExists      = errors.New("account already exists")
)

type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	ClinicID string `json:"clinicId,omitempty"`
	Role     Role   `json:"role"`
	Password string `json:"-"`
}

type Session struct {
	Token    string    `json:"token"`
	User     User      `json:"user"`
	IssuedAt time.Time `json:"issuedAt"`
}

type Credentials struct {
	Role     Role   `json:"role"`
	ClinicID string `json:"clinicId"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type account struct {
	user User
	hash []byte
}

type Store struct {
	ttl  time.Duration
	cost int
	now  func() time.Time

	mu       sync.RWMutex
	accounts []account
	sessions map[string]*Session
}

// NewStore hashes each user's password with the given bcrypt cost.
func NewStore(users []User, ttl time.Duration, cost int) (*Store, error) {
	s := &Store{
		ttl:      ttl,
		cost:     cost,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
	for _, u := range users {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), cost)
		if err != nil {
			return nil, err
		}
		u.Password = ""
		s.accounts = append(s.accounts, account{user: u, hash: hash})
	}
	return s, nil
}

func (s *Store) Login(c Credentials) (*Session, error) {
	acct, ok := s.find(c)
	if !ok {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(acct.hash, []byte(c.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	sess := &Session{
		Token:    uuid.NewString(),
		User:     acct.user,
		IssuedAt: s.now(),
	}

	s.mu.Lock()
	s.sessions[sess.Token] = sess
	s.mu.Unlock()

	return sess, nil
}

// Normalize trims the account key and checks that c can be registered.
func (c Credentials) Normalize() (Credentials, error) {
	switch c.Role {
	case RoleClinic:
		c.ClinicID = strings.TrimSpace(c.ClinicID)
		if c.ClinicID == "" {
			return c, apperr.Validation("clinicId", "is required")
		}
	case RoleManager:
		c.Email = strings.TrimSpace(c.Email)
		if !strings.Contains(c.Email, "@") {
			return c, apperr.Validation("email", "must be an email address")
		}
	default:
		return c, apperr.Validation("role", "must be %q or %q", RoleClinic, RoleManager)
	}
	if len(c.Password) < MinPasswordLength {
		return c, apperr.Validation("password", "must be at least %d characters", MinPasswordLength)
	}
	return c, nil
}

// Register adds an account for c. Clinic accounts are keyed by clinic id and
// manager accounts by email; a second account for the same key is rejected
// with ErrAccountExists.
func (s *Store) Register(c Credentials) (User, error) {
	c, err := c.Normalize()
	if err != nil {
		return User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(c.Password), s.cost)
	if err != nil {
		return User{}, err
	}

	u := User{
		ID:       uuid.NewString(),
		Email:    c.Email,
		ClinicID: c.ClinicID,
		Role:     c.Role,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.findLocked(c); exists {
		return User{}, ErrAccountExists
	}
	s.accounts = append(s.accounts, account{user: u, hash: hash})
	return u, nil
}

func (s *Store) find(c Credentials) (account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findLocked(c)
}

func (s *Store) findLocked(c Credentials) (account, bool) {
	for _, a := range s.accounts {
		if a.user.Role != c.Role {
			continue
		}
		switch c.Role {
		case RoleClinic:
			if c.ClinicID != "" && a.user.ClinicID == c.ClinicID {
				return a, true
			}
		case RoleManager:
			if c.Email != "" && strings.EqualFold(a.user.Email, c.Email) {
				return a, true
			}
		}
	}
	return account{}, false
}

// Lookup returns the live session for token. Expired sessions are dropped.
func (s *Store) Lookup(token string) (*Session, bool) {
	if token == "" {
		return nil, false
	}

	s.mu.RLock()
	sess, ok := s.sessions[token]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if s.ttl > 0 && s.now().Sub(sess.IssuedAt) > s.ttl {
		s.Logout(token)
		return nil, false
	}
	return sess, true
}

func (s *Store) Logout(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}
