// Package userfile persists operator accounts in a single JSON document.
package userfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/hylla/shopfloor/internal/domain"
)

// Store reads and writes a users.json file. Writes replace the file atomically.
type Store struct {
	mu   sync.Mutex
	path string
}

// Open prepares a store at path, creating the parent directory and an empty list if needed.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("users file path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create users dir: %w", err)
	}
	s := &Store{path: path}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := s.write([]domain.User{}); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, fmt.Errorf("stat users file: %w", err)
	}
	return s, nil
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// ListUsers returns every stored user in file order.
func (s *Store) ListUsers(_ context.Context) ([]domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

// GetUser returns one user by id.
func (s *Store) GetUser(_ context.Context, id string) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.read()
	if err != nil {
		return domain.User{}, err
	}
	idx := slices.IndexFunc(users, func(u domain.User) bool { return u.ID == id })
	if idx < 0 {
		return domain.User{}, fmt.Errorf("%w: user %q", domain.ErrNotFound, id)
	}
	return users[idx], nil
}

// GetUserByEmail returns one user by case-insensitive email.
func (s *Store) GetUserByEmail(_ context.Context, email string) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.read()
	if err != nil {
		return domain.User{}, err
	}
	idx := slices.IndexFunc(users, func(u domain.User) bool { return strings.EqualFold(u.Email, email) })
	if idx < 0 {
		return domain.User{}, fmt.Errorf("%w: user %q", domain.ErrNotFound, email)
	}
	return users[idx], nil
}

// CreateUser appends a user. Duplicate ids are rejected.
func (s *Store) CreateUser(_ context.Context, user domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.read()
	if err != nil {
		return err
	}
	if slices.ContainsFunc(users, func(u domain.User) bool { return u.ID == user.ID }) {
		return fmt.Errorf("%w: duplicate user id %q", domain.ErrValidation, user.ID)
	}
	return s.write(append(users, user))
}

// UpdateUser replaces a stored user.
func (s *Store) UpdateUser(_ context.Context, user domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.read()
	if err != nil {
		return err
	}
	idx := slices.IndexFunc(users, func(u domain.User) bool { return u.ID == user.ID })
	if idx < 0 {
		return fmt.Errorf("%w: user %q", domain.ErrNotFound, user.ID)
	}
	users[idx] = user
	return s.write(users)
}

// DeleteUser removes a stored user.
func (s *Store) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.read()
	if err != nil {
		return err
	}
	idx := slices.IndexFunc(users, func(u domain.User) bool { return u.ID == id })
	if idx < 0 {
		return fmt.Errorf("%w: user %q", domain.ErrNotFound, id)
	}
	return s.write(slices.Delete(users, idx, idx+1))
}

// read decodes the file. A missing or blank file is an empty list.
func (s *Store) read() ([]domain.User, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []domain.User{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read users file: %w", err)
	}
	if strings.TrimSpace(string(raw)) == "" {
		return []domain.User{}, nil
	}
	var users []domain.User
	if err := json.Unmarshal(raw, &users); err != nil {
		return nil, fmt.Errorf("decode users file %s: %w", s.path, err)
	}
	if users == nil {
		users = []domain.User{}
	}
	return users, nil
}

// write encodes users to a temp file in the same directory and renames it into place.
func (s *Store) write(users []domain.User) error {
	raw, err := json.MarshalIndent(users, "", "  ")
	if err != nil {
		return fmt.Errorf("encode users file: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".users-*.json")
	if err != nil {
		return fmt.Errorf("create users temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()
	if _, err := tmp.Write(append(raw, '\n')); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write users temp file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod users temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close users temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace users file: %w", err)
	}
	return nil
}
